package dictionary

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"testing/fstest"

	"pantryscan/internal/model"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

type fakeRepo struct {
	ingredients []model.Ingredient
	err         error
}

func (f *fakeRepo) ReplaceAll(ingredients []model.Ingredient) error {
	f.ingredients = ingredients
	return f.err
}
func (f *fakeRepo) GetAll() ([]model.Ingredient, error) { return f.ingredients, f.err }
func (f *fakeRepo) GetByName(string) (*model.Ingredient, error) {
	return nil, f.err
}
func (f *fakeRepo) Count() (int, error) { return len(f.ingredients), f.err }

func TestParse_SkipsMalformedLines(t *testing.T) {
	d, err := Parse(strings.NewReader("tomato;12\nbadline\nonion;7"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if d.Len() != 2 {
		t.Fatalf("Expected 2 entries, got %d", d.Len())
	}
	for name, want := range map[string]int{"tomato": 12, "onion": 7} {
		got, ok := d.Count(name)
		if !ok || got != want {
			t.Errorf("Count(%q) = %d, %v; expected %d", name, got, ok, want)
		}
	}
	if !reflect.DeepEqual(d.Names(), []string{"tomato", "onion"}) {
		t.Errorf("Unexpected names order: %v", d.Names())
	}
}

func TestParse_RecordRules(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]int
	}{
		{"empty resource", "", map[string]int{}},
		{"three fields", "tomato;1;2", map[string]int{}},
		{"negative count", "tomato;-1", map[string]int{}},
		{"non integer count", "tomato;1.5\nonion;x", map[string]int{}},
		{"blank name", " ;4", map[string]int{}},
		{"zero count", "salt;0", map[string]int{"salt": 0}},
		{"crlf line endings", "tomato;12\r\nonion;7\r\n", map[string]int{"tomato": 12, "onion": 7}},
		{"names normalized", "  Cooking Oil ; 3", map[string]int{"cooking oil": 3}},
		{"duplicate takes last count", "egg;1\negg;9", map[string]int{"egg": 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if d.Len() != len(tt.want) {
				t.Fatalf("Expected %d entries, got %d (%v)", len(tt.want), d.Len(), d.Names())
			}
			for name, count := range tt.want {
				if got, ok := d.Count(name); !ok || got != count {
					t.Errorf("Count(%q) = %d, %v; expected %d", name, got, ok, count)
				}
			}
		})
	}
}

func TestParse_ReaderFailureIsLoadError(t *testing.T) {
	_, err := Parse(failingReader{})
	if !errors.Is(err, ErrLoad) {
		t.Errorf("Expected ErrLoad, got %v", err)
	}
}

func TestContains_CaseInsensitive(t *testing.T) {
	d := New(map[string]int{"tomato": 10, "onion": 5})

	for _, name := range []string{"tomato", "TOMATO", " Onion "} {
		if !d.Contains(name) {
			t.Errorf("Expected %q to be contained", name)
		}
	}
	if d.Contains("xyzzy") {
		t.Error("Did not expect xyzzy to be contained")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ingredients.txt")
	if err := os.WriteFile(path, []byte("carrot;3\n"), 0644); err != nil {
		t.Fatalf("Failed to write resource: %v", err)
	}

	d, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if !d.Contains("carrot") {
		t.Error("Expected carrot to be loaded")
	}

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.txt"))
	if !errors.Is(err, ErrLoad) {
		t.Errorf("Expected ErrLoad for missing file, got %v", err)
	}
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{"dict.txt": {Data: []byte("beet;2")}}

	d, err := LoadFS(fsys, "dict.txt")
	if err != nil {
		t.Fatalf("LoadFS failed: %v", err)
	}
	if !d.Contains("beet") {
		t.Error("Expected beet to be loaded")
	}

	if _, err := LoadFS(fsys, "other.txt"); !errors.Is(err, ErrLoad) {
		t.Errorf("Expected ErrLoad, got %v", err)
	}
}

func TestLoadEmbedded(t *testing.T) {
	d, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded failed: %v", err)
	}
	for _, name := range []string{"tomato", "onion", "cooking oil", "Jalapeño"} {
		if !d.Contains(name) {
			t.Errorf("Expected packaged dictionary to contain %q", name)
		}
	}
}

func TestLoadRepository(t *testing.T) {
	repo := &fakeRepo{ingredients: []model.Ingredient{
		{Name: "Tomato", Count: 4},
		{Name: "", Count: 1},
		{Name: "onion", Count: -3},
	}}

	d, err := LoadRepository(repo)
	if err != nil {
		t.Fatalf("LoadRepository failed: %v", err)
	}
	if d.Len() != 1 || !d.Contains("tomato") {
		t.Errorf("Expected only tomato, got %v", d.Names())
	}

	repo.err = errors.New("database is locked")
	if _, err := LoadRepository(repo); !errors.Is(err, ErrLoad) {
		t.Errorf("Expected ErrLoad, got %v", err)
	}
}

func TestIngredients_RoundTripOrder(t *testing.T) {
	d, err := Parse(strings.NewReader("tomato;12\nonion;7"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := []model.Ingredient{{Name: "tomato", Count: 12}, {Name: "onion", Count: 7}}
	if got := d.Ingredients(); !reflect.DeepEqual(got, want) {
		t.Errorf("Ingredients() = %+v, expected %+v", got, want)
	}
}

func TestNilDictionary(t *testing.T) {
	var d *Dictionary
	if d.Contains("tomato") || d.Len() != 0 || d.Names() != nil {
		t.Error("nil dictionary should behave as empty")
	}
}
