package extract

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

var (
	xmlTagRe     = regexp.MustCompile(`<[^>]+>`)
	blankLinesRe = regexp.MustCompile(`[ \t]*\n[\s]*`)
)

// DOCX extracts the text of Word documents.
type DOCX struct{}

func NewDOCX() *DOCX {
	return &DOCX{}
}

func (d *DOCX) Name() string { return "docx" }

func (d *DOCX) CanHandle(ext string, _ []byte) bool {
	return ext == ".docx"
}

func (d *DOCX) ExtractBytes(_ context.Context, data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read docx: %w", err)
	}
	defer doc.Close()

	return docxPlainText(doc.Editable().GetContent()), nil
}

// docxPlainText turns document.xml markup into text, one paragraph per line.
func docxPlainText(markup string) string {
	replacer := strings.NewReplacer("</w:p>", "\n", "<w:tab/>", "\t", "<w:br/>", "\n")
	text := xmlTagRe.ReplaceAllString(replacer.Replace(markup), "")
	text = html.UnescapeString(text)
	return strings.TrimSpace(blankLinesRe.ReplaceAllString(text, "\n"))
}
