package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	// ErrInvalidDate reports a field combination that is not a calendar
	// point (day 32, month 13, minute 90, year outside 1..9999).
	ErrInvalidDate = errors.New("invalid calendar value")

	// ErrInvalidPosition reports a cursor outside the document.
	ErrInvalidPosition = errors.New("invalid position")
)
