package index

import (
	"github.com/starford/orgstamp/internal/models"
	"github.com/starford/orgstamp/internal/orgdate"
)

// NoteIndex defines the interface for note indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type NoteIndex interface {
	UpsertNote(n NoteRow, stamps []orgdate.Located) error
	DeleteNote(path string) error
	GetChecksum(path string) (string, error)
	GetNote(path string) (*NoteRow, error)
	ListNotes(limit, offset int) ([]NoteRow, int, error)
	Stamps(path string) ([]models.StampEntry, error)
	Agenda(from, to orgdate.Moment, includeInactive bool) ([]models.StampEntry, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies NoteIndex at compile time.
var _ NoteIndex = (*DB)(nil)
