package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/starford/orgstamp/internal/checksum"
	"github.com/starford/orgstamp/internal/models"
)

const tmpPrefix = ".orgstamp-tmp-"

// ErrOutsideVault is returned for paths that are absolute or leave the vault.
var ErrOutsideVault = errors.New("path outside vault")

var tmpSeq atomic.Uint64

// FS implements Provider on a directory opened with os.OpenRoot, so no
// operation can reach outside it, symlinks included.
type FS struct {
	dir  string // absolute path to vault directory
	root *os.Root
	exts map[string]struct{}
}

// NewFS opens an existing vault directory. With no extensions
// DefaultExtensions are used.
func NewFS(dir string, extensions ...string) (*FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	root, err := os.OpenRoot(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: open root: %w", err)
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	exts := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		exts[strings.ToLower(e)] = struct{}{}
	}
	return &FS{dir: abs, root: root, exts: exts}, nil
}

// Root returns the absolute vault directory.
func (f *FS) Root() string { return f.dir }

// Close releases the vault directory handle.
func (f *FS) Close() error { return f.root.Close() }

// IsNote reports whether name carries one of the configured extensions.
func (f *FS) IsNote(name string) bool {
	if strings.HasPrefix(filepath.Base(name), tmpPrefix) {
		return false
	}
	_, ok := f.exts[strings.ToLower(filepath.Ext(name))]
	return ok
}

// local cleans a vault-relative path. "" and "." mean the vault itself.
func local(rel string) (string, error) {
	if rel == "" {
		return ".", nil
	}
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("storage: %s: %w", rel, ErrOutsideVault)
	}
	return filepath.Clean(rel), nil
}

// List walks dir (relative to root) and returns metadata for every note.
func (f *FS) List(dir string) ([]models.NoteMetadata, error) {
	base, err := local(dir)
	if err != nil {
		return nil, err
	}
	fsys := f.root.FS()
	var out []models.NoteMetadata
	err = fs.WalkDir(fsys, filepath.ToSlash(base), func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !f.IsNote(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		out = append(out, models.NoteMetadata{
			Path:      filepath.FromSlash(p),
			Checksum:  checksum.Sum(data),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return out, nil
}

// Read returns the raw bytes of a vault file.
func (f *FS) Read(path string) ([]byte, error) {
	rel, err := local(path)
	if err != nil {
		return nil, err
	}
	data, err := f.root.ReadFile(rel)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Write replaces a note atomically: temp file, fsync, rename. The existing
// file mode is kept; new notes get 0644.
func (f *FS) Write(path string, content []byte) error {
	rel, err := local(path)
	if err != nil {
		return err
	}
	if !f.IsNote(rel) {
		return fmt.Errorf("storage: not a note file: %s", path)
	}
	dir := filepath.Dir(rel)
	if err := f.root.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	mode := os.FileMode(0o644)
	if info, err := f.root.Stat(rel); err == nil {
		mode = info.Mode().Perm()
	}

	tmpName := filepath.Join(dir, tmpPrefix+strconv.Itoa(os.Getpid())+"-"+strconv.FormatUint(tmpSeq.Add(1), 10))
	tmp, err := f.root.OpenFile(tmpName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = f.root.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		return fmt.Errorf("storage: chmod temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := f.root.Rename(tmpName, rel); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	committed = true
	return nil
}
