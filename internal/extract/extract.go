// Package extract turns résumé files into plain text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/resume-scorer/internal/logger"
)

const (
	// DefaultMaxFileSize bounds the files read into memory.
	DefaultMaxFileSize = 20 << 20

	sniffLen = 512
)

var (
	// ErrEmptyText is returned when a backend produced no text at all.
	// Whitespace-only text is a valid, if poor, document.
	ErrEmptyText = errors.New("no text extracted")
	// ErrUnsupported is returned when no backend accepts the file.
	ErrUnsupported = errors.New("unsupported document format")
)

// Extractor returns the plain text of the document stored at path.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Backend extracts text from one document format.
type Backend interface {
	Name() string
	// CanHandle decides by file extension and the first bytes of the content.
	CanHandle(ext string, head []byte) bool
	ExtractBytes(ctx context.Context, data []byte) (string, error)
}

// Registry selects the first backend able to handle a file.
type Registry struct {
	backends    []Backend
	maxFileSize int64
	logger      *zap.Logger
}

// NewRegistry creates a registry with the given backends. Order matters:
// the first backend that accepts a file wins.
func NewRegistry(log *zap.Logger, backends ...Backend) *Registry {
	return &Registry{
		backends:    backends,
		maxFileSize: DefaultMaxFileSize,
		logger:      logger.WithFields(log),
	}
}

// Default returns a registry with PDF, DOCX and plain text backends.
func Default(log *zap.Logger) *Registry {
	return NewRegistry(log, NewPDF(), NewDOCX(), NewText())
}

// Extract reads the file and delegates to the matching backend.
func (r *Registry) Extract(ctx context.Context, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("file path is required")
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat document: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%q is a directory", path)
	}
	if r.maxFileSize > 0 && info.Size() > r.maxFileSize {
		return "", fmt.Errorf("document is %d bytes, limit is %d", info.Size(), r.maxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}

	backend, err := r.selectBackend(path, data)
	if err != nil {
		return "", err
	}

	start := time.Now()
	text, err := backend.ExtractBytes(ctx, data)
	if err != nil {
		return "", fmt.Errorf("%s extractor: %w", backend.Name(), err)
	}

	if text == "" {
		return "", fmt.Errorf("%s extractor: %w", backend.Name(), ErrEmptyText)
	}

	logger.WithDocument(r.logger, path).Debug("text extracted",
		zap.String("backend", backend.Name()),
		zap.Int("bytes", len(data)),
		zap.Int("characters", len([]rune(text))),
		zap.Duration("took", time.Since(start)),
	)

	return text, nil
}

func (r *Registry) selectBackend(path string, data []byte) (Backend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	head := data
	if len(head) > sniffLen {
		head = trimPartialRune(head[:sniffLen])
	}

	for _, backend := range r.backends {
		if backend.CanHandle(ext, head) {
			return backend, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupported, filepath.Base(path))
}

// trimPartialRune drops a multi-byte character cut off at the end of b.
func trimPartialRune(b []byte) []byte {
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		if !utf8.RuneStart(b[len(b)-i]) {
			continue
		}
		if utf8.FullRune(b[len(b)-i:]) {
			return b
		}
		return b[:len(b)-i]
	}
	return b
}

// Backends returns the names of the registered backends.
func (r *Registry) Backends() []string {
	names := make([]string, len(r.backends))
	for i, backend := range r.backends {
		names[i] = backend.Name()
	}
	return names
}
