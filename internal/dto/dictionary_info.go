package dto

// DictionaryInfo describes the installed dictionary.
type DictionaryInfo struct {
	Source  string `json:"source"`
	Entries int    `json:"entries"`
}

// DictionaryLookup answers GET /api/dictionary?name=.
type DictionaryLookup struct {
	Name  string `json:"name"`
	Known bool   `json:"known"`
	Count int    `json:"count,omitempty"`
}
