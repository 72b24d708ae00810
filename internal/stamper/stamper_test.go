package stamper

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/starford/orgstamp/internal/apperr"
)

// Wednesday, 2024-05-01 14:20 local time.
var testNow = time.Date(2024, 5, 1, 14, 20, 0, 0, time.Local)

type recordingInserter struct {
	texts []string
}

func (r *recordingInserter) Insert(_ context.Context, text string) error {
	r.texts = append(r.texts, text)
	return nil
}

type messagePrompt struct {
	answer  string
	message string
}

func (p *messagePrompt) Prompt(_ context.Context, message string) (string, error) {
	p.message = message
	return p.answer, nil
}

func TestInsert_ActiveAndInactive(t *testing.T) {
	tests := []struct {
		modifier string
		active   bool
		want     string
	}{
		{"", true, "<2024-05-01 Wed>"},
		{"", false, "[2024-05-01 Wed]"},
		{"+1d", true, "<2024-05-02 Thu>"},
		{"9:30", false, "[2024-05-01 Wed 09:30]"},
		{"fri", true, "<2024-05-03 Fri>"},
	}
	for _, tt := range tests {
		ins := &recordingInserter{}
		s := New(FixedClock(testNow), StaticPrompt(tt.modifier), ins, nil)
		st, err := s.Insert(context.Background(), tt.active)
		if err != nil {
			t.Fatalf("Insert(%q): %v", tt.modifier, err)
		}
		if st.String() != tt.want {
			t.Errorf("Insert(%q) = %q, want %q", tt.modifier, st.String(), tt.want)
		}
		if len(ins.texts) != 1 || ins.texts[0] != tt.want {
			t.Errorf("inserted %q, want [%q]", ins.texts, tt.want)
		}
	}
}

func TestInsert_PromptShowsToday(t *testing.T) {
	p := &messagePrompt{answer: ""}
	s := New(FixedClock(testNow), p, &recordingInserter{}, nil)
	if _, err := s.Insert(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	if p.message != "Insert Date: 2024-05-01 Wed | Change date" {
		t.Errorf("prompt message = %q", p.message)
	}
}

func TestInsert_InvalidDateInsertsNothing(t *testing.T) {
	ins := &recordingInserter{}
	s := New(FixedClock(testNow), StaticPrompt("2/30"), ins, nil)
	_, err := s.Insert(context.Background(), true)
	if !errors.Is(err, apperr.ErrInvalidDate) {
		t.Fatalf("err = %v, want ErrInvalidDate", err)
	}
	if len(ins.texts) != 0 {
		t.Errorf("inserted %q after failed resolve", ins.texts)
	}
}

func TestInsert_CancelledPromptInsertsNothing(t *testing.T) {
	ins := &recordingInserter{}
	p := NewReaderPrompt(strings.NewReader(""), &bytes.Buffer{})
	s := New(FixedClock(testNow), p, ins, nil)
	_, err := s.Insert(context.Background(), true)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if len(ins.texts) != 0 {
		t.Errorf("inserted %q after cancelled prompt", ins.texts)
	}
}

func TestInsert_InserterErrorPropagates(t *testing.T) {
	boom := errors.New("read-only buffer")
	ins := InserterFunc(func(context.Context, string) error { return boom })
	s := New(FixedClock(testNow), StaticPrompt("+1w"), ins, nil)
	if _, err := s.Insert(context.Background(), true); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestReaderPrompt(t *testing.T) {
	var out bytes.Buffer
	p := NewReaderPrompt(strings.NewReader("+2w\r\nsecond\nlast"), &out)
	ctx := context.Background()

	for _, want := range []string{"+2w", "second", "last"} {
		got, err := p.Prompt(ctx, "Insert Date")
		if err != nil {
			t.Fatalf("Prompt: %v", err)
		}
		if got != want {
			t.Errorf("Prompt = %q, want %q", got, want)
		}
	}
	if _, err := p.Prompt(ctx, "Insert Date"); !errors.Is(err, ErrCancelled) {
		t.Errorf("Prompt at EOF err = %v, want ErrCancelled", err)
	}
	if !strings.HasPrefix(out.String(), "Insert Date: ") {
		t.Errorf("prompt output = %q", out.String())
	}
}

func TestWriterInserter(t *testing.T) {
	var buf bytes.Buffer
	s := New(FixedClock(testNow), StaticPrompt("12/25"), WriterInserter{W: &buf}, nil)
	if _, err := s.Insert(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "<2024-12-25 Wed>\n" {
		t.Errorf("output = %q", buf.String())
	}
}
