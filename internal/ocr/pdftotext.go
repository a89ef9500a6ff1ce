package ocr

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"
)

// PdfToText extracts text from PDFs using the pdftotext CLI tool.
type PdfToText struct {
	binPath string
}

// NewPdfToText creates a PdfToText extractor. If binPath is empty, "pdftotext" is used.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// ExtractPages runs pdftotext -layout on the given PDF and splits stdout
// into pages on form feeds.
func (p *PdfToText) ExtractPages(ctx context.Context, pdfPath string) ([]Page, error) {
	cmd := exec.CommandContext(ctx, p.binPath, "-layout", pdfPath, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, eris.Wrapf(err, "ocr: pdftotext failed for %s: %s", pdfPath, stderr.String())
	}

	return splitFormFeeds(stdout.String()), nil
}

// splitFormFeeds splits pdftotext output into pages. pdftotext terminates
// every page, including the last, with \f.
func splitFormFeeds(out string) []Page {
	out = strings.TrimSuffix(out, "\f")
	if out == "" {
		return nil
	}
	parts := strings.Split(out, "\f")
	pages := make([]Page, len(parts))
	for i, text := range parts {
		pages[i] = Page{Index: i, Text: text}
	}
	return pages
}
