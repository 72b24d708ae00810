package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// collect reads n frames or fails after a second.
func collect(t *testing.T, ch <-chan []byte, n int) []string {
	t.Helper()
	var got []string
	for len(got) < n {
		select {
		case msg := <-ch:
			got = append(got, string(msg))
		case <-time.After(time.Second):
			t.Fatalf("timeout after %d of %d frames: %q", len(got), n, got)
		}
	}
	return got
}

// drain returns whatever is buffered once the broker has had time to run.
func drain(ch <-chan []byte) []string {
	time.Sleep(50 * time.Millisecond)
	var got []string
	for {
		select {
		case msg := <-ch:
			got = append(got, string(msg))
		default:
			return got
		}
	}
}

func TestBroker_ClientCount(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	a, c := b.Subscribe(), b.Subscribe()
	if n := b.ClientCount(); n != 2 {
		t.Fatalf("ClientCount = %d, want 2", n)
	}
	b.Unsubscribe(a)
	b.Unsubscribe(a) // second call is a no-op
	if n := b.ClientCount(); n != 1 {
		t.Fatalf("ClientCount = %d, want 1", n)
	}
	b.Unsubscribe(c)
	if n := b.ClientCount(); n != 0 {
		t.Fatalf("ClientCount = %d, want 0", n)
	}
}

func TestBroker_PublishFrame(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()

	b.Publish(Event{Type: TypeNoteCreated, Data: map[string]string{"path": "a.org"}})

	got := collect(t, ch, 1)[0]
	want := "id: 1\nevent: note.created\ndata: {\"path\":\"a.org\"}\n\n"
	if got != want {
		t.Errorf("frame = %q, want %q", got, want)
	}
}

func TestBroker_NoteEventKinds(t *testing.T) {
	tests := []struct {
		kind string
		want string
	}{
		{"created", "event: note.created\n"},
		{"updated", "event: note.updated\n"},
		{"deleted", "event: note.deleted\n"},
		{"renamed", ""},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			b := NewBroker(time.Hour)
			defer b.Close()
			ch := b.Subscribe()

			b.PublishNoteEvent(tt.kind, "x.org")
			got := drain(ch)

			if tt.want == "" {
				if len(got) != 0 {
					t.Errorf("unknown kind produced %q", got)
				}
				return
			}
			if len(got) != 2 || !strings.Contains(got[0], tt.want) || !strings.Contains(got[1], "agenda.updated") {
				t.Errorf("frames = %q", got)
			}
		})
	}
}

func TestBroker_AgendaThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()

	b.PublishNoteEvent("created", "a.org")
	b.PublishNoteEvent("updated", "b.org")
	b.PublishStamp(StampData{Path: "b.org", Stamp: "<2024-05-01 Wed>"})

	agenda := 0
	frames := drain(ch)
	for _, f := range frames {
		if strings.Contains(f, "event: agenda.updated") {
			agenda++
		}
	}
	if len(frames)-agenda != 3 {
		t.Errorf("change frames = %d, want 3", len(frames)-agenda)
	}
	if agenda != 1 {
		t.Errorf("agenda frames = %d, want 1", agenda)
	}
}

func TestBroker_PublishStamp(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()

	b.PublishStamp(StampData{Path: "todo.org", Stamp: "<2024-05-01 Wed>", Line: 3, Column: 7})

	got := collect(t, ch, 2)
	if !strings.HasPrefix(got[0], "id: 1\nevent: stamp.inserted\n") {
		t.Errorf("first frame = %q", got[0])
	}
	if !strings.Contains(got[0], `"stamp":"<2024-05-01 Wed>"`) || !strings.Contains(got[0], `"line":3`) {
		t.Errorf("missing payload in %q", got[0])
	}
	if !strings.HasPrefix(got[1], "id: 2\nevent: agenda.updated\n") {
		t.Errorf("second frame = %q", got[1])
	}
}

func TestBroker_SubscribeAfterReplays(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	first := b.Subscribe()

	for _, p := range []string{"a.org", "b.org", "c.org"} {
		b.Publish(Event{Type: TypeNoteUpdated, Data: map[string]string{"path": p}})
	}
	collect(t, first, 3)

	late := b.SubscribeAfter(1)
	got := collect(t, late, 2)
	if !strings.HasPrefix(got[0], "id: 2\n") || !strings.HasPrefix(got[1], "id: 3\n") {
		t.Errorf("replayed = %q", got)
	}

	fresh := b.Subscribe()
	if extra := drain(fresh); len(extra) != 0 {
		t.Errorf("Subscribe replayed %q", extra)
	}
}

func TestBroker_SlowClientDoesNotBlock(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()

	for range clientBuffer + 10 {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	if got := drain(ch); len(got) != clientBuffer {
		t.Errorf("buffered %d frames, want %d", len(got), clientBuffer)
	}
}

func TestBroker_Close(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()

	b.Close()
	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("subscriber channel still open")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}
	if n := b.ClientCount(); n != 0 {
		t.Fatalf("ClientCount after Close = %d", n)
	}
	if _, ok := <-b.Subscribe(); ok {
		t.Fatal("Subscribe after Close returned an open channel")
	}
	b.Publish(Event{Type: TypeNoteUpdated})
	b.PublishNoteEvent("updated", "x.org")
}

func TestBroker_ServeHTTP(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	b.Publish(Event{Type: TypeNoteCreated, Data: map[string]string{"path": "old.org"}})

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	req.Header.Set("Last-Event-ID", "0")
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if n := b.ClientCount(); n != 1 {
		t.Fatalf("ClientCount = %d, want 1", n)
	}
	b.Publish(Event{Type: TypeNoteUpdated, Data: map[string]string{"path": "x.org"}})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "id: 2\nevent: note.updated\n") {
		t.Errorf("body missing event: %q", body)
	}
	if strings.Contains(body, "old.org") {
		t.Errorf("Last-Event-ID 0 replayed history: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if n := b.ClientCount(); n != 0 {
		t.Errorf("client not cleaned up, count %d", n)
	}
}
