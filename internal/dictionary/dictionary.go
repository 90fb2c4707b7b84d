// Package dictionary loads the table of known ingredient names used to filter
// recognized receipt text.
//
// The resource format is one `name;count` record per line, no header and no
// escaping. Parsing is permissive: a record is kept only when it has exactly
// two fields, a non-empty name and a non-negative integer count, and anything
// else is skipped silently. Only a missing or unreadable resource is an error.
package dictionary

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"pantryscan/internal/model"
	"pantryscan/internal/normalize"
	"pantryscan/internal/repository"
)

// Delimiter separates the name and count fields of a record.
const Delimiter = ";"

// EmbeddedResource is the name of the packaged dictionary inside Resources.
const EmbeddedResource = "ingredients.txt"

// Resources holds the packaged dictionary shipped with the binary.
//
//go:embed ingredients.txt
var Resources embed.FS

// ErrLoad reports that a dictionary resource could not be read at all.
var ErrLoad = errors.New("dictionary load failure")

// Dictionary maps normalized ingredient names to their frequency count.
// It is immutable once built and safe for concurrent readers.
type Dictionary struct {
	counts map[string]int
	names  []string
}

// New builds a dictionary from a name->count map. Names are normalized and
// negative counts are dropped. The order reported by Names is unspecified.
func New(entries map[string]int) *Dictionary {
	d := empty()
	for name, count := range entries {
		d.put(name, count)
	}
	return d
}

func empty() *Dictionary {
	return &Dictionary{counts: make(map[string]int)}
}

func (d *Dictionary) put(name string, count int) bool {
	name = normalize.Name(name)
	if name == "" || count < 0 {
		return false
	}
	if _, exists := d.counts[name]; !exists {
		d.names = append(d.names, name)
	}
	// A repeated name keeps its first position and takes the latest count.
	d.counts[name] = count
	return true
}

// Parse reads a `name;count` resource. Malformed records are skipped; an error
// is returned only when r itself fails.
func Parse(r io.Reader) (*Dictionary, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}

	d := empty()
	for _, line := range strings.Split(string(data), "\n") {
		name, count, ok := parseRecord(strings.TrimRight(line, "\r"))
		if !ok {
			continue
		}
		d.put(name, count)
	}
	return d, nil
}

func parseRecord(line string) (string, int, bool) {
	fields := strings.Split(line, Delimiter)
	if len(fields) != 2 {
		return "", 0, false
	}
	count, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil || count < 0 {
		return "", 0, false
	}
	return fields[0], count, true
}

// LoadFile parses the dictionary stored at path.
func LoadFile(path string) (*Dictionary, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	defer file.Close()

	return Parse(file)
}

// LoadFS parses the named resource from fsys.
func LoadFS(fsys fs.FS, name string) (*Dictionary, error) {
	file, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	defer file.Close()

	return Parse(file)
}

// LoadEmbedded parses the packaged dictionary.
func LoadEmbedded() (*Dictionary, error) {
	return LoadFS(Resources, EmbeddedResource)
}

// LoadRepository builds a dictionary from the ingredient store. Rows with a
// blank name or negative count are skipped like malformed file records.
func LoadRepository(repo repository.IngredientRepository) (*Dictionary, error) {
	ingredients, err := repo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}

	d := empty()
	for _, ing := range ingredients {
		d.put(ing.Name, ing.Count)
	}
	return d, nil
}

// Contains reports whether name, after normalization, is a known ingredient.
func (d *Dictionary) Contains(name string) bool {
	if d == nil {
		return false
	}
	_, ok := d.counts[normalize.Name(name)]
	return ok
}

// Count returns the frequency recorded for name.
func (d *Dictionary) Count(name string) (int, bool) {
	if d == nil {
		return 0, false
	}
	count, ok := d.counts[normalize.Name(name)]
	return count, ok
}

// Len returns the number of entries.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.counts)
}

// Names returns the normalized names in resource order.
func (d *Dictionary) Names() []string {
	if d == nil {
		return nil
	}
	return append([]string(nil), d.names...)
}

// Ingredients converts the dictionary into store records, in resource order.
func (d *Dictionary) Ingredients() []model.Ingredient {
	if d == nil {
		return nil
	}
	ingredients := make([]model.Ingredient, 0, len(d.names))
	for _, name := range d.names {
		ingredients = append(ingredients, model.Ingredient{Name: name, Count: d.counts[name]})
	}
	return ingredients
}
