package secrets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key")
	if err := os.WriteFile(keyFile, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}

	t.Setenv("TEST_SECRET_KEY", " from-env ")

	tests := []struct {
		name   string
		src    Source
		expect string
	}{
		{name: "file wins", src: Source{File: keyFile, Value: "inline", Env: "TEST_SECRET_KEY"}, expect: "from-file"},
		{name: "inline before env", src: Source{Value: " inline ", Env: "TEST_SECRET_KEY"}, expect: "inline"},
		{name: "env fallback", src: Source{Env: "TEST_SECRET_KEY"}, expect: "from-env"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	emptyFile := filepath.Join(dir, "empty")
	if err := os.WriteFile(emptyFile, []byte("\n"), 0o600); err != nil {
		t.Fatalf("write empty file: %v", err)
	}

	t.Setenv("TEST_SECRET_EMPTY", "")

	if _, err := Load(Source{Name: "gemini api key", File: filepath.Join(dir, "missing")}); err == nil {
		t.Fatal("expected error for missing file")
	}

	if _, err := Load(Source{Name: "gemini api key", File: emptyFile, Value: "inline"}); err == nil {
		t.Fatal("expected error for empty file")
	}

	_, err := Load(Source{Name: "gemini api key", Env: "TEST_SECRET_EMPTY"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if err.Error() != "gemini api key: secret is not configured" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}
