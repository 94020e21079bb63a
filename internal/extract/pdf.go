package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

var pdfMagic = []byte("%PDF-")

// PDF extracts text page by page with ledongthuc/pdf.
type PDF struct{}

func NewPDF() *PDF {
	return &PDF{}
}

func (p *PDF) Name() string { return "pdf" }

func (p *PDF) CanHandle(ext string, head []byte) bool {
	return ext == ".pdf" || bytes.HasPrefix(head, pdfMagic)
}

// ExtractBytes joins the plain text of all pages with a space. The parser
// panics on some malformed files; that is reported as an error.
func (p *PDF) ExtractBytes(ctx context.Context, data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, content)
	}

	return strings.Join(pages, " "), nil
}
