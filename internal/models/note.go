// Package models defines the domain types shared by storage, index and API.
package models

import "time"

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Position is a cursor in a note: 1-based line, 1-based byte column.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// StampEntry is one timestamp found in a note.
type StampEntry struct {
	Path   string `json:"path"`
	Title  string `json:"title,omitempty"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Raw    string `json:"raw"`
	Date   string `json:"date"`           // YYYY-MM-DD
	Time   string `json:"time,omitempty"` // HH:MM
	Active bool   `json:"active"`
}
