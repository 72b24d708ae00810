package stamper

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrCancelled is returned when the user closes the prompt without answering.
var ErrCancelled = errors.New("prompt cancelled")

// StaticPrompt answers every prompt with the same modifier.
type StaticPrompt string

func (p StaticPrompt) Prompt(_ context.Context, _ string) (string, error) {
	return string(p), nil
}

// ReaderPrompt writes the prompt message to Out and reads one line from In.
type ReaderPrompt struct {
	in  *bufio.Reader
	out io.Writer
}

// NewReaderPrompt creates a line-oriented prompt, e.g. over stdin/stderr.
func NewReaderPrompt(in io.Reader, out io.Writer) *ReaderPrompt {
	return &ReaderPrompt{in: bufio.NewReader(in), out: out}
}

// Prompt returns the entered line without its line ending. End of input
// before any character was read yields ErrCancelled.
func (p *ReaderPrompt) Prompt(ctx context.Context, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := fmt.Fprintf(p.out, "%s: ", message); err != nil {
		return "", err
	}
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line == "" {
			return "", ErrCancelled
		}
		if !errors.Is(err, io.EOF) {
			return "", err
		}
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// WriterInserter writes each inserted text as one line to an io.Writer.
type WriterInserter struct {
	W io.Writer
}

func (w WriterInserter) Insert(_ context.Context, text string) error {
	_, err := fmt.Fprintln(w.W, text)
	return err
}

// InserterFunc adapts a function to TextInserter.
type InserterFunc func(ctx context.Context, text string) error

func (f InserterFunc) Insert(ctx context.Context, text string) error { return f(ctx, text) }
