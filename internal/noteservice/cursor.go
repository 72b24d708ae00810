package noteservice

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/starford/orgstamp/internal/apperr"
	"github.com/starford/orgstamp/internal/models"
)

// offsetOf converts a 1-based line and byte column into a byte offset in
// data. Column len(line)+1 addresses the end of the line; a column inside a
// multi-byte character is rejected.
func offsetOf(data []byte, pos models.Position) (int, error) {
	if pos.Line < 1 || pos.Column < 1 {
		return 0, fmt.Errorf("%w: %d:%d", apperr.ErrInvalidPosition, pos.Line, pos.Column)
	}
	start := 0
	for line := 1; line < pos.Line; line++ {
		i := bytes.IndexByte(data[start:], '\n')
		if i < 0 {
			return 0, fmt.Errorf("%w: line %d beyond end of note", apperr.ErrInvalidPosition, pos.Line)
		}
		start += i + 1
	}
	end := len(data)
	if i := bytes.IndexByte(data[start:], '\n'); i >= 0 {
		end = start + i
	}
	if end > start && data[end-1] == '\r' {
		end--
	}
	// Compare before adding so a huge column cannot overflow the offset.
	if pos.Column-1 > end-start {
		return 0, fmt.Errorf("%w: column %d beyond end of line %d", apperr.ErrInvalidPosition, pos.Column, pos.Line)
	}
	off := start + pos.Column - 1
	if off < end && !utf8.RuneStart(data[off]) {
		return 0, fmt.Errorf("%w: column %d splits a character", apperr.ErrInvalidPosition, pos.Column)
	}
	return off, nil
}

// insertAt returns a copy of data with text inserted at off.
func insertAt(data []byte, off int, text string) []byte {
	out := make([]byte, 0, len(data)+len(text))
	out = append(out, data[:off]...)
	out = append(out, text...)
	return append(out, data[off:]...)
}
