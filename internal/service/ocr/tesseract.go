package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"pantryscan/internal/normalize"
)

// TesseractEngine recognizes receipt pages with a fresh gosseract client per
// page. Tesseract has no cancellation hook, so ctx is only checked before a
// page is handed over.
type TesseractEngine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// NewTesseractEngine constructs an engine for the given Tesseract language
// codes, e.g. "eng".
func NewTesseractEngine(languages []string) *TesseractEngine {
	return &TesseractEngine{
		languages:     append([]string(nil), languages...),
		clientFactory: gosseract.NewClient,
	}
}

// Recognize returns the non-blank text lines of one page image, top to bottom.
func (e *TesseractEngine) Recognize(ctx context.Context, image []byte) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := e.clientFactory()
	defer c.Close()

	if len(e.languages) > 0 {
		if err := c.SetLanguage(e.languages...); err != nil {
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetImageFromBytes(image); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return nil, fmt.Errorf("recognize text: %w", err)
	}
	return normalize.Lines(text), nil
}
