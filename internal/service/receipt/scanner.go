package receipt

import (
	"context"
	"errors"
	"fmt"

	"pantryscan/internal/dictionary"
	"pantryscan/internal/logger"
)

// ErrRecognition reports that no page of a scan could be recognized.
var ErrRecognition = errors.New("text recognition failure")

// Recognizer returns the text lines found on one page image.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) ([]string, error)
}

// Result is the outcome of scanning one receipt.
type Result struct {
	Pages       int      `json:"pages"`
	FailedPages int      `json:"failed_pages"`
	Lines       []string `json:"lines"`
	Ingredients []string `json:"ingredients"`
}

// Scanner runs OCR over receipt pages and matches the text against the
// currently installed dictionary. Scans share no state and may run
// concurrently.
type Scanner struct {
	recognizer Recognizer
	store      *dictionary.Store
	logger     *logger.Logger
}

func NewScanner(recognizer Recognizer, store *dictionary.Store, logger *logger.Logger) *Scanner {
	return &Scanner{recognizer: recognizer, store: store, logger: logger}
}

// Scan recognizes every page in order. A page that fails is logged and
// skipped; ErrRecognition is returned only when every page failed.
func (s *Scanner) Scan(ctx context.Context, pages [][]byte) (Result, error) {
	result := Result{Pages: len(pages), Lines: []string{}, Ingredients: []string{}}

	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		lines, err := s.recognizer.Recognize(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			result.FailedPages++
			s.logger.Warning("Receipt page %d: %v", i+1, err)
			continue
		}
		result.Lines = append(result.Lines, lines...)
	}

	if result.Pages > 0 && result.FailedPages == result.Pages {
		return result, fmt.Errorf("%w: all %d pages failed", ErrRecognition, result.Pages)
	}

	result.Ingredients = Match(Expand(result.Lines), s.store.Current())
	s.logger.Info("Receipt scan: %d pages, %d lines, %d ingredients", result.Pages, len(result.Lines), len(result.Ingredients))
	return result, nil
}

// MatchStrings filters already-recognized strings against the current
// dictionary without expanding them.
func (s *Scanner) MatchStrings(strs []string) []string {
	return Match(strs, s.store.Current())
}
