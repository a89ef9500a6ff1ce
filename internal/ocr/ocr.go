// Package ocr turns PDF files into per-page text.
package ocr

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/report-qa/internal/config"
)

// Page is the text of one PDF page. Index is zero-based.
type Page struct {
	Index int
	Text  string
}

// Extractor extracts per-page text content from PDF files.
type Extractor interface {
	ExtractPages(ctx context.Context, pdfPath string) ([]Page, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.OCRConfig) (Extractor, error) {
	switch cfg.Provider {
	case "native", "":
		return NewNative(), nil
	case "local":
		return NewPdfToText(cfg.PdfToTextPath), nil
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, eris.New("ocr: mistral provider requires mistral_api_key")
		}
		return NewMistralOCR(cfg.MistralKey, cfg.MistralModel), nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}
