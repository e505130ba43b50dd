package files

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

// ErrInvalidName reports a file name that is empty or not a bare name.
var ErrInvalidName = errors.New("invalid file name")

// Entry describes one served file.
type Entry struct {
	Name     string
	Size     int64
	Modified time.Time
}

// Store is a flat directory of files rooted at a fixed path.
type Store struct {
	fs        afero.Fs
	root      string
	localRoot string
}

// Open returns a Store over the host directory root, creating it if needed.
func Open(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve files dir: %w", err)
	}
	store, err := NewStore(afero.NewOsFs(), abs)
	if err != nil {
		return nil, err
	}
	store.localRoot = abs
	return store, nil
}

// NewStore returns a Store over root inside fsys, creating root if needed.
func NewStore(fsys afero.Fs, root string) (*Store, error) {
	if err := fsys.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create files dir %q: %w", root, err)
	}
	return &Store{fs: afero.NewBasePathFs(fsys, root), root: root}, nil
}

// Root returns the directory the store serves.
func (s *Store) Root() string { return s.root }

// ValidateName accepts only bare file names.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	switch {
	case trimmed == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case trimmed != name:
		return fmt.Errorf("%w: %q has surrounding whitespace", ErrInvalidName, name)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	return nil
}

// Stat returns file info for name.
func (s *Store) Stat(name string) (fs.FileInfo, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	return s.fs.Stat(name)
}

// Exists reports whether name is a regular file in the store.
func (s *Store) Exists(name string) bool {
	info, err := s.Stat(name)
	return err == nil && info.Mode().IsRegular()
}

// Size returns the current size of name.
func (s *Store) Size(name string) (int64, error) {
	info, err := s.Stat(name)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// ReadRange returns up to length bytes of name starting at offset.
func (s *Store) ReadRange(name string, offset int64, length int) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if offset < 0 || length < 0 {
		return nil, fmt.Errorf("read %s: invalid range %d+%d", name, offset, length)
	}
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

// List returns the regular files in the store sorted by name.
func (s *Store) List() ([]Entry, error) {
	infos, err := afero.ReadDir(s.fs, "")
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		if !info.Mode().IsRegular() {
			continue
		}
		entries = append(entries, Entry{Name: info.Name(), Size: info.Size(), Modified: info.ModTime()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Save writes r to name, replacing any existing content in place. The file
// keeps its identity, so a host path watched by fsnotify stays valid.
func (s *Store) Save(name string, r io.Reader) (int64, error) {
	if err := ValidateName(name); err != nil {
		return 0, err
	}
	out, err := s.fs.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", name, err)
	}
	written, err := io.Copy(out, r)
	if err != nil {
		_ = out.Close()
		return written, fmt.Errorf("write %s: %w", name, err)
	}
	if err := out.Close(); err != nil {
		return written, fmt.Errorf("close %s: %w", name, err)
	}
	return written, nil
}

// Delete removes name. A missing file yields an error matching fs.ErrNotExist.
func (s *Store) Delete(name string) error {
	info, err := s.Stat(name)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %q is not a regular file", ErrInvalidName, name)
	}
	return s.fs.Remove(name)
}

// Open opens name for reading.
func (s *Store) Open(name string) (afero.File, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	return s.fs.Open(name)
}

// LocalPath returns the host path of name for OS-backed stores.
func (s *Store) LocalPath(name string) (string, bool) {
	if s.localRoot == "" || ValidateName(name) != nil {
		return "", false
	}
	return filepath.Join(s.localRoot, name), true
}

// CheckAccess verifies the daemon can list, read and create files in the root.
// In-memory stores always pass.
func (s *Store) CheckAccess() error {
	if s.localRoot == "" {
		return nil
	}
	if err := unix.Access(s.localRoot, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("files dir %s not accessible: %w", s.localRoot, err)
	}
	return nil
}
