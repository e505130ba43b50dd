package logs_test

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

// fsSource adapts an afero filesystem to logs.Source for tests.
type fsSource struct {
	fs   afero.Fs
	root string
}

func newMemSource() *fsSource {
	return &fsSource{fs: afero.NewMemMapFs()}
}

func (s *fsSource) Stat(name string) (fs.FileInfo, error) {
	return s.fs.Stat(name)
}

func (s *fsSource) ReadRange(name string, offset int64, length int) ([]byte, error) {
	f, err := s.fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, length)
	n, err := f.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}

// osSource additionally exposes local paths so notifications can be used.
type osSource struct {
	fsSource
}

func newOSSource(t *testing.T) *osSource {
	t.Helper()
	root := t.TempDir()
	return &osSource{fsSource{fs: afero.NewBasePathFs(afero.NewOsFs(), root), root: root}}
}

func (s *osSource) LocalPath(name string) (string, bool) {
	return filepath.Join(s.root, name), true
}

func writeFile(t *testing.T, fsys afero.Fs, name, content string) {
	t.Helper()
	if err := afero.WriteFile(fsys, name, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func appendFile(t *testing.T, fsys afero.Fs, name, content string) {
	t.Helper()
	f, err := fsys.OpenFile(name, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open %s for append: %v", name, err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append %s: %v", name, err)
	}
}
