package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/orgstamp/internal/models"
	"github.com/starford/orgstamp/internal/noteservice"
)

// StampRequest is the request body for inserting a timestamp into a note.
type StampRequest struct {
	Line     int    `json:"line" example:"3" validate:"required"`
	Column   int    `json:"column" example:"12" validate:"required"`
	Modifier string `json:"modifier" example:"+1w"`
	// Active selects <...> over [...]; the server default applies when unset.
	Active *bool `json:"active,omitempty"`
}

// Validate checks the cursor fields.
func (r StampRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Line, validation.Required, validation.Min(1)),
		validation.Field(&r.Column, validation.Required, validation.Min(1)),
		validation.Field(&r.Modifier, validation.Length(0, 256)),
	)
}

// ResolveResponse is the result of resolving a modifier.
type ResolveResponse struct {
	Anchor   string `json:"anchor" example:"2024-05-01" validate:"required"`
	Modifier string `json:"modifier" example:"fri"`
	Rule     string `json:"rule,omitempty" example:"weekday"`
	Date     string `json:"date" example:"2024-05-03" validate:"required"`
	Time     string `json:"time,omitempty" example:"09:30"`
	Stamp    string `json:"stamp" example:"<2024-05-03 Fri>" validate:"required"`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListItem is a lightweight item in a list response (aliased from the domain layer).
type NoteListItem = noteservice.NoteListItem

// StampResponse is returned after a timestamp was inserted.
type StampResponse = noteservice.Inserted

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// AgendaResponse lists the timestamps in a window of days.
type AgendaResponse struct {
	From    string              `json:"from" example:"2024-05-01" validate:"required"`
	Days    int                 `json:"days" example:"7" validate:"required"`
	Entries []models.StampEntry `json:"entries" validate:"required"`
}
