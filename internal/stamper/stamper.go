// Package stamper asks the user for a date modifier and hands the resulting
// org timestamp to whatever holds the cursor. The host (terminal, HTTP
// request, MCP call, note on disk) supplies the Clock, the UserPrompt and the
// TextInserter; the stamper itself does no I/O.
package stamper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/orgstamp/internal/orgdate"
)

// Clock supplies "today".
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current local time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// FixedClock always reports the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// UserPrompt asks the user for a modifier. message shows today's date.
type UserPrompt interface {
	Prompt(ctx context.Context, message string) (string, error)
}

// TextInserter places text at the host's cursor.
type TextInserter interface {
	Insert(ctx context.Context, text string) error
}

// Stamper resolves a prompted modifier against today and inserts the stamp.
type Stamper struct {
	clock    Clock
	prompt   UserPrompt
	inserter TextInserter
	logger   *slog.Logger
}

// New creates a Stamper. A nil logger discards log output.
func New(clock Clock, prompt UserPrompt, inserter TextInserter, logger *slog.Logger) *Stamper {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Stamper{clock: clock, prompt: prompt, inserter: inserter, logger: logger}
}

// Insert prompts for a modifier, resolves it and inserts the timestamp.
// Nothing is inserted when prompting or resolving fails.
func (s *Stamper) Insert(ctx context.Context, active bool) (orgdate.Stamp, error) {
	today := orgdate.DateOf(s.clock.Now())

	modifier, err := s.prompt.Prompt(ctx, PromptMessage(today))
	if err != nil {
		return orgdate.Stamp{}, fmt.Errorf("stamper: prompt: %w", err)
	}

	res, err := orgdate.Explain(today, modifier)
	if err != nil {
		return orgdate.Stamp{}, fmt.Errorf("stamper: resolve: %w", err)
	}
	st := orgdate.Stamp{Moment: res.Moment, Active: active}

	if err := s.inserter.Insert(ctx, st.String()); err != nil {
		return orgdate.Stamp{}, fmt.Errorf("stamper: insert: %w", err)
	}

	s.logger.Debug("timestamp inserted",
		slog.String("modifier", modifier),
		slog.String("rule", res.Rule),
		slog.String("timestamp", st.String()))
	return st, nil
}

// PromptMessage is the text shown when asking for a modifier.
func PromptMessage(today orgdate.Moment) string {
	return "Insert Date: " + today.String() + " | Change date"
}
