package ocr

import (
	"context"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Native extracts text in-process with a pure-Go PDF reader.
type Native struct{}

// NewNative creates a Native extractor.
func NewNative() *Native { return &Native{} }

// ExtractPages reads every page's plain text. Pages whose content cannot be
// decoded are returned empty rather than failing the whole document.
func (n *Native) ExtractPages(ctx context.Context, pdfPath string) (pages []Page, err error) {
	// The reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = eris.Errorf("ocr: read PDF %s: %v", pdfPath, r)
		}
	}()

	f, rdr, err := pdf.Open(pdfPath)
	if err != nil {
		return nil, eris.Wrapf(err, "ocr: open PDF %s", pdfPath)
	}
	defer f.Close() //nolint:errcheck

	total := rdr.NumPage()
	pages = make([]Page, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "ocr: extract pages")
		}

		p := rdr.Page(i)
		if p.V.IsNull() {
			pages = append(pages, Page{Index: i - 1})
			continue
		}
		// Font resource names are scoped to the page.
		fonts := make(map[string]*pdf.Font)
		for _, name := range p.Fonts() {
			font := p.Font(name)
			fonts[name] = &font
		}

		text, err := p.GetPlainText(fonts)
		if err != nil {
			zap.L().Warn("ocr: page text unreadable",
				zap.String("pdf", pdfPath),
				zap.Int("page", i-1),
				zap.Error(err),
			)
		}
		pages = append(pages, Page{Index: i - 1, Text: text})
	}

	return pages, nil
}
