// Package noteservice coordinates the vault, the index and the stamper.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/starford/orgstamp/internal/apperr"
	"github.com/starford/orgstamp/internal/checksum"
	"github.com/starford/orgstamp/internal/index"
	"github.com/starford/orgstamp/internal/models"
	"github.com/starford/orgstamp/internal/orgdate"
	"github.com/starford/orgstamp/internal/parser"
	"github.com/starford/orgstamp/internal/stamper"
	"github.com/starford/orgstamp/internal/storage"
)

// MaxAgendaDays bounds the agenda window.
const MaxAgendaDays = 366

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	Path        string              `json:"path"`
	Title       string              `json:"title"`
	Content     string              `json:"content"`
	Checksum    string              `json:"checksum"`
	Frontmatter map[string]any      `json:"frontmatter,omitempty"`
	Stamps      []models.StampEntry `json:"stamps"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Inserted describes a timestamp written into a note.
type Inserted struct {
	Path     string          `json:"path"`
	Stamp    string          `json:"stamp"`
	Position models.Position `json:"position"`
	Checksum string          `json:"checksum"`
}

// StampHook is notified after a timestamp has been written and indexed.
type StampHook func(ins Inserted)

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock that supplies "today". Defaults to the wall clock.
func WithClock(c stamper.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithStampHook registers a callback for inserted timestamps.
func WithStampHook(h StampHook) Option {
	return func(s *Service) { s.onStamp = h }
}

// Service coordinates storage and index operations.
type Service struct {
	store   storage.Provider
	db      index.NoteIndex
	clock   stamper.Clock
	logger  *slog.Logger
	onStamp StampHook

	// writeMu serialises read-modify-write cycles on notes.
	writeMu sync.Mutex
}

// NewService creates a new note service.
func NewService(store storage.Provider, db index.NoteIndex, opts ...Option) *Service {
	s := &Service{store: store, db: db, clock: stamper.RealClock{}}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// Today returns the current calendar date according to the service clock.
func (s *Service) Today() orgdate.Moment {
	return orgdate.DateOf(s.clock.Now())
}

// Resolve interprets modifier against anchor, or against today when anchor
// is nil.
func (s *Service) Resolve(_ context.Context, anchor *orgdate.Moment, modifier string) (orgdate.Resolution, error) {
	if anchor != nil {
		return orgdate.Explain(*anchor, modifier)
	}
	return orgdate.Explain(s.Today(), modifier)
}

// GetNote reads a note from storage and parses its timestamps.
func (s *Service) GetNote(_ context.Context, path string) (*NoteDetail, error) {
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	return s.buildNoteDetail(path, data)
}

// ListNotes returns paginated notes ordered by path.
func (s *Service) ListNotes(_ context.Context, limit, offset int) ([]NoteListItem, int, error) {
	rows, total, err := s.db.ListNotes(limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items := make([]NoteListItem, len(rows))
	for i, r := range rows {
		items[i] = NoteListItem{
			Path:      r.Path,
			Title:     r.Title,
			Checksum:  r.Checksum,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Agenda lists the timestamps of days days starting at from. days is
// clamped to [1, MaxAgendaDays].
func (s *Service) Agenda(_ context.Context, from orgdate.Moment, days int, includeInactive bool) ([]models.StampEntry, error) {
	days = min(max(days, 1), MaxAgendaDays)
	to, err := from.Date().AddDays(days - 1)
	if err != nil {
		// Window runs past year 9999; stop at the last representable day.
		to, _ = orgdate.NewDate(9999, 12, 31)
	}
	entries, err := s.db.Agenda(from.Date(), to, includeInactive)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(entries), nil
}

// InsertTimestamp resolves modifier against today and writes the resulting
// timestamp into the note at pos. A non-empty ifMatch must equal the
// note's current checksum.
func (s *Service) InsertTimestamp(ctx context.Context, path string, pos models.Position, modifier string, active bool, ifMatch string) (*Inserted, error) {
	return s.Stamp(ctx, path, pos, stamper.StaticPrompt(modifier), active, ifMatch)
}

// Stamp runs the stamper with the given prompt and inserts its timestamp
// into the note at pos.
func (s *Service) Stamp(ctx context.Context, path string, pos models.Position, prompt stamper.UserPrompt, active bool, ifMatch string) (*Inserted, error) {
	var out Inserted
	ins := stamper.InserterFunc(func(ctx context.Context, text string) error {
		cs, err := s.InsertText(ctx, path, pos, text, ifMatch)
		if err != nil {
			return err
		}
		out = Inserted{Path: path, Stamp: text, Position: pos, Checksum: cs}
		return nil
	})
	if _, err := stamper.New(s.clock, prompt, ins, s.logger).Insert(ctx, active); err != nil {
		return nil, err
	}
	if s.onStamp != nil {
		s.onStamp(out)
	}
	return &out, nil
}

// InsertText writes text into the note at pos, re-indexes it and returns
// the new checksum.
func (s *Service) InsertText(_ context.Context, path string, pos models.Position, text, ifMatch string) (string, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	data, err := s.read(path)
	if err != nil {
		return "", err
	}
	if !checksum.Matches(data, ifMatch) {
		return "", apperr.ErrConflict
	}
	off, err := offsetOf(data, pos)
	if err != nil {
		return "", err
	}
	updated := insertAt(data, off, text)
	if err := s.store.Write(path, updated); err != nil {
		return "", err
	}
	if err := s.IndexFile(path, updated); err != nil {
		return "", err
	}
	s.logger.Info("note stamped",
		slog.String("path", path),
		slog.Int("line", pos.Line),
		slog.Int("column", pos.Column),
		slog.String("text", text))
	return checksum.Sum(updated), nil
}

// IndexFile parses data and upserts it into the index.
func (s *Service) IndexFile(path string, data []byte) error {
	return index.IndexFile(s.db, path, data, time.Now())
}

func (s *Service) read(path string) ([]byte, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, storage.ErrOutsideVault) {
			return nil, fmt.Errorf("%s: %w", path, apperr.ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}

// buildNoteDetail constructs a NoteDetail from raw data without re-reading the file.
func (s *Service) buildNoteDetail(path string, data []byte) (*NoteDetail, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	stamps := make([]models.StampEntry, len(res.Stamps))
	for i, l := range res.Stamps {
		stamps[i] = entryOf(path, res.Title, l)
	}
	updated := time.Now()
	if row, err := s.db.GetNote(path); err == nil {
		updated = row.UpdatedAt
	}
	return &NoteDetail{
		Path:        path,
		Title:       res.Title,
		Content:     string(data),
		Checksum:    checksum.Sum(data),
		Frontmatter: res.Frontmatter,
		Stamps:      stamps,
		UpdatedAt:   updated,
	}, nil
}

func entryOf(path, title string, l orgdate.Located) models.StampEntry {
	e := models.StampEntry{
		Path:   path,
		Title:  title,
		Line:   l.Line,
		Column: l.Column,
		Raw:    l.Raw,
		Date:   l.Moment.Time().Format("2006-01-02"),
		Active: l.Active,
	}
	if l.Moment.HasTime() {
		e.Time = l.Moment.Time().Format("15:04")
	}
	return e
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
