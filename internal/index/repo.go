package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/orgstamp/internal/apperr"
	"github.com/starford/orgstamp/internal/models"
	"github.com/starford/orgstamp/internal/orgdate"
)

// NoteRow represents a row in the notes table.
type NoteRow struct {
	Path      string
	Title     string
	Checksum  string
	UpdatedAt time.Time
}

const (
	dayLayout   = "2006-01-02"
	clockLayout = "15:04"
)

// UpsertNote inserts or replaces a note and its timestamps within a transaction.
func (db *DB) UpsertNote(n NoteRow, stamps []orgdate.Located) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = time.Now()
	}
	_, err = tx.Exec(`
		INSERT INTO notes (path, title, checksum, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title      = excluded.title,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, n.Path, n.Title, n.Checksum, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	// Replace stamps: delete old then bulk insert.
	if _, err := tx.Exec(`DELETE FROM stamps WHERE path = ?`, n.Path); err != nil {
		return fmt.Errorf("index: clear stamps: %w", err)
	}
	if len(stamps) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO stamps (path, line, col, raw, day, clock, active) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare stamp insert: %w", err)
		}
		defer stmt.Close()
		for _, s := range stamps {
			day, clock := columnsOf(s.Moment)
			if _, err := stmt.Exec(n.Path, s.Line, s.Column, s.Raw, day, clock, s.Active); err != nil {
				return fmt.Errorf("index: insert stamp: %w", err)
			}
		}
	}

	return tx.Commit()
}

func columnsOf(m orgdate.Moment) (day, clock string) {
	t := m.Time()
	day = t.Format(dayLayout)
	if m.HasTime() {
		clock = t.Format(clockLayout)
	}
	return day, clock
}

// DeleteNote removes a note and its timestamps.
func (db *DB) DeleteNote(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, _ = tx.Exec(`DELETE FROM stamps WHERE path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM notes WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a note, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM notes WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums returns path → checksum for every indexed note.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// GetNote returns the indexed row for path, or apperr.ErrNotFound.
func (db *DB) GetNote(path string) (*NoteRow, error) {
	var n NoteRow
	err := db.conn.QueryRow(`SELECT path, title, checksum, updated_at FROM notes WHERE path = ?`, path).
		Scan(&n.Path, &n.Title, &n.Checksum, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get note: %w", err)
	}
	return &n, nil
}

// ListNotes returns a page of notes ordered by path and the total count.
func (db *DB) ListNotes(limit, offset int) ([]NoteRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count notes: %w", err)
	}
	rows, err := db.conn.Query(`
		SELECT path, title, checksum, updated_at
		FROM notes
		ORDER BY path
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list notes: %w", err)
	}
	defer rows.Close()

	var out []NoteRow
	for rows.Next() {
		var n NoteRow
		if err := rows.Scan(&n.Path, &n.Title, &n.Checksum, &n.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

// Stamps returns the timestamps of one note in document order.
func (db *DB) Stamps(path string) ([]models.StampEntry, error) {
	return db.queryStamps(`
		SELECT s.path, n.title, s.line, s.col, s.raw, s.day, s.clock, s.active
		FROM stamps s JOIN notes n ON n.path = s.path
		WHERE s.path = ?
		ORDER BY s.line, s.col
	`, path)
}

// Agenda returns the timestamps falling on days in [from, to], ordered by
// day, time of day (all-day entries first) and location. Inactive stamps
// are included only when includeInactive is set.
func (db *DB) Agenda(from, to orgdate.Moment, includeInactive bool) ([]models.StampEntry, error) {
	return db.queryStamps(`
		SELECT s.path, n.title, s.line, s.col, s.raw, s.day, s.clock, s.active
		FROM stamps s JOIN notes n ON n.path = s.path
		WHERE s.day BETWEEN ? AND ? AND (s.active = 1 OR ?)
		ORDER BY s.day, s.clock, s.path, s.line, s.col
	`, from.Time().Format(dayLayout), to.Time().Format(dayLayout), includeInactive)
}

func (db *DB) queryStamps(query string, args ...any) ([]models.StampEntry, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: query stamps: %w", err)
	}
	defer rows.Close()

	var out []models.StampEntry
	for rows.Next() {
		var e models.StampEntry
		if err := rows.Scan(&e.Path, &e.Title, &e.Line, &e.Column, &e.Raw, &e.Date, &e.Time, &e.Active); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
