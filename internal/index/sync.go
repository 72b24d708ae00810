package index

import (
	"log/slog"
	"time"

	"github.com/starford/orgstamp/internal/checksum"
	"github.com/starford/orgstamp/internal/parser"
	"github.com/starford/orgstamp/internal/storage"
)

// SyncReport lists the notes a Sync pass touched.
type SyncReport struct {
	Indexed []string
	Removed []string
}

// Sync compares the vault with the index by checksum. Notes that are new or
// changed on disk are reparsed and upserted; index entries without a file
// are deleted. Per-note failures are logged and skipped.
func Sync(db NoteIndex, store storage.Provider, logger *slog.Logger) (SyncReport, error) {
	var rep SyncReport

	metas, err := store.List("")
	if err != nil {
		return rep, err
	}
	indexed, err := db.AllChecksums()
	if err != nil {
		return rep, err
	}

	for _, m := range metas {
		old, known := indexed[m.Path]
		delete(indexed, m.Path)
		if known && old == m.Checksum {
			continue
		}
		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(db, m.Path, data, m.UpdatedAt); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: indexed", slog.String("path", m.Path))
		rep.Indexed = append(rep.Indexed, m.Path)
	}

	// Whatever is left in indexed has no file behind it.
	for p := range indexed {
		if err := db.DeleteNote(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: removed stale", slog.String("path", p))
		rep.Removed = append(rep.Removed, p)
	}

	return rep, nil
}

// IndexFile parses data and upserts the note and its timestamps.
// A zero modTime records the current time.
func IndexFile(db NoteIndex, path string, data []byte, modTime time.Time) error {
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}
	if modTime.IsZero() {
		modTime = time.Now()
	}
	return db.UpsertNote(NoteRow{
		Path:      path,
		Title:     res.Title,
		Checksum:  checksum.Sum(data),
		UpdatedAt: modTime,
	}, res.Stamps)
}
