package handler

import (
	"net/http"

	"pantryscan/internal/dictionary"
	"pantryscan/internal/dto"
	"pantryscan/internal/logger"
)

// DictionaryHandler handles GET /api/dictionary. With ?name= it looks the
// name up, otherwise it describes the installed dictionary.
func DictionaryHandler(store *dictionary.Store, source string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		name := r.URL.Query().Get("name")
		if name == "" {
			writeJSON(w, http.StatusOK, dto.DictionaryInfo{Source: source, Entries: store.Current().Len()})
			return
		}

		count, known := store.Current().Count(name)
		writeJSON(w, http.StatusOK, dto.DictionaryLookup{Name: name, Known: known, Count: count})
	}
}

// ReloadDictionaryHandler handles POST /api/dictionary/reload. On failure the
// installed dictionary is kept.
func ReloadDictionaryHandler(store *dictionary.Store, source string, load func() (*dictionary.Dictionary, error), logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if err := store.Reload(load); err != nil {
			logger.Error("Dictionary reload from %s failed: %v", source, err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		entries := store.Current().Len()
		logger.Info("Dictionary reloaded from %s: %d entries", source, entries)
		writeJSON(w, http.StatusOK, dto.DictionaryInfo{Source: source, Entries: entries})
	}
}
