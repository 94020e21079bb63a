package extract

import (
	"bytes"
	"context"
	"unicode/utf8"
)

// Text accepts plain UTF-8 files.
type Text struct{}

func NewText() *Text {
	return &Text{}
}

func (t *Text) Name() string { return "text" }

func (t *Text) CanHandle(ext string, head []byte) bool {
	switch ext {
	case ".txt", ".md", ".text":
		return true
	}
	return len(head) > 0 && !bytes.ContainsRune(head, 0) && utf8.Valid(head)
}

func (t *Text) ExtractBytes(_ context.Context, data []byte) (string, error) {
	return string(bytes.ToValidUTF8(data, []byte("�"))), nil
}
