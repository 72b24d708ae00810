// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/orgstamp/internal/models"

// DefaultExtensions are the note file types kept in a vault.
var DefaultExtensions = []string{".org", ".md"}

// Provider is the interface for vault file operations.
type Provider interface {
	// List returns metadata for every note under dir (relative to vault root).
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to vault root).
	Write(path string, content []byte) error
	// IsNote reports whether a file name has one of the vault's note extensions.
	IsNote(name string) bool
}
