package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"logtail/internal/config"
)

// WriteServed replaces the content of name in cfg's files directory.
func WriteServed(t testing.TB, cfg *config.Config, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(cfg.Paths.FilesDir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// AppendServed appends content to name in cfg's files directory.
func AppendServed(t testing.TB, cfg *config.Config, name, content string) {
	t.Helper()
	f, err := os.OpenFile(filepath.Join(cfg.Paths.FilesDir, name), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open %s: %v", name, err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append %s: %v", name, err)
	}
}
