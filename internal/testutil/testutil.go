// Package testutil provides a throwaway vault with its index for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/orgstamp/internal/index"
	"github.com/starford/orgstamp/internal/storage"
)

// Vault is a temp notes directory, its store and a fresh SQLite index.
// Everything is released when the test ends.
type Vault struct {
	Dir   string
	Store *storage.FS
	DB    *index.DB
}

// NewVault creates an empty vault.
func NewVault(t *testing.T) *Vault {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	db, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	return &Vault{Dir: dir, Store: store, DB: db}
}

// Note writes a note to disk and indexes it.
func (v *Vault) Note(t *testing.T, path, content string) {
	t.Helper()
	abs := filepath.Join(v.Dir, path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := index.IndexFile(v.DB, path, []byte(content), time.Time{}); err != nil {
		t.Fatal(err)
	}
}

// Content reads a note back from disk.
func (v *Vault) Content(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(v.Dir, path))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}
