// Package sse implements a Server-Sent Events broker for vault and agenda updates.
package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Event types emitted by the broker.
const (
	TypeNoteCreated   = "note.created"
	TypeNoteUpdated   = "note.updated"
	TypeNoteDeleted   = "note.deleted"
	TypeStampInserted = "stamp.inserted"
	TypeAgendaUpdated = "agenda.updated"
)

const (
	clientBuffer = 64
	historySize  = 128
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// StampData is the payload of a stamp.inserted event.
type StampData struct {
	Path   string `json:"path"`
	Stamp  string `json:"stamp"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

type publishReq struct {
	event Event
	// agenda marks events that may change the agenda.
	agenda bool
}

type joinReq struct {
	ch    chan []byte
	after uint64
}

// Broker fans events out to SSE clients.
//
// All state lives in a hub owned by one goroutine; public methods reach it
// through channels and become no-ops after Close.
type Broker struct {
	keepAlive time.Duration

	join    chan joinReq
	leave   chan chan []byte
	publish chan publishReq
	count   chan chan int

	quit   chan struct{}
	done   chan struct{}
	closed atomic.Bool
}

// NewBroker creates a broker that emits at most one agenda.updated event
// per agendaThrottle.
func NewBroker(agendaThrottle time.Duration) *Broker {
	if agendaThrottle <= 0 {
		agendaThrottle = 2 * time.Second
	}
	b := &Broker{
		keepAlive: 30 * time.Second,
		join:      make(chan joinReq),
		leave:     make(chan chan []byte),
		publish:   make(chan publishReq, 256),
		count:     make(chan chan int),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	h := &hub{clients: make(map[chan []byte]struct{}), throttle: agendaThrottle}
	go b.loop(h)
	return b
}

func (b *Broker) loop(h *hub) {
	defer close(b.done)
	for {
		select {
		case <-b.quit:
			h.closeAll()
			return
		case req := <-b.join:
			h.add(req.ch, req.after)
		case ch := <-b.leave:
			h.remove(ch)
		case req := <-b.publish:
			h.broadcast(req.event)
			if req.agenda && h.agendaDue(time.Now()) {
				h.broadcast(Event{Type: TypeAgendaUpdated, Data: map[string]string{}})
			}
		case resp := <-b.count:
			resp <- len(h.clients)
		}
	}
}

type frame struct {
	id  uint64
	raw []byte
}

type hub struct {
	clients    map[chan []byte]struct{}
	seq        uint64
	history    []frame
	throttle   time.Duration
	lastAgenda time.Time
}

func (h *hub) add(ch chan []byte, after uint64) {
	if after > 0 {
		for _, f := range h.history {
			if f.id <= after {
				continue
			}
			select {
			case ch <- f.raw:
			default:
			}
		}
	}
	h.clients[ch] = struct{}{}
}

func (h *hub) remove(ch chan []byte) {
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
}

func (h *hub) closeAll() {
	for ch := range h.clients {
		close(ch)
	}
	h.clients = nil
}

func (h *hub) agendaDue(now time.Time) bool {
	if now.Sub(h.lastAgenda) < h.throttle {
		return false
	}
	h.lastAgenda = now
	return true
}

func (h *hub) broadcast(event Event) {
	var payload bytes.Buffer
	enc := json.NewEncoder(&payload)
	enc.SetEscapeHTML(false) // keep <...> stamps readable
	if err := enc.Encode(event.Data); err != nil {
		return
	}
	h.seq++
	f := frame{
		id:  h.seq,
		raw: fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", h.seq, event.Type, bytes.TrimRight(payload.Bytes(), "\n")),
	}
	if len(h.history) == historySize {
		h.history = h.history[1:]
	}
	h.history = append(h.history, f)

	for ch := range h.clients {
		select {
		case ch <- f.raw:
		default:
			// Slow client; drop rather than block the loop.
		}
	}
}

// Close stops the broker and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.quit)
	}
	<-b.done
}

// Subscribe adds a client that receives events published from now on.
func (b *Broker) Subscribe() chan []byte {
	return b.SubscribeAfter(0)
}

// SubscribeAfter adds a client and first replays retained events with an
// id greater than lastID. Zero replays nothing.
func (b *Broker) SubscribeAfter(lastID uint64) chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.join <- joinReq{ch: ch, after: lastID}:
	case <-b.done:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.leave <- ch:
	case <-b.done:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.count <- resp:
	case <-b.done:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.done:
		return 0
	}
}

func (b *Broker) send(req publishReq) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publish <- req:
	case <-b.done:
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	b.send(publishReq{event: event})
}

// PublishNoteEvent publishes a note change followed by a throttled
// agenda.updated event. kind is "created", "updated" or "deleted";
// anything else is ignored.
func (b *Broker) PublishNoteEvent(kind, path string) {
	typ, ok := map[string]string{
		"created": TypeNoteCreated,
		"updated": TypeNoteUpdated,
		"deleted": TypeNoteDeleted,
	}[kind]
	if !ok {
		return
	}
	b.send(publishReq{event: Event{Type: typ, Data: map[string]string{"path": path}}, agenda: true})
}

// PublishStamp announces a timestamp written into a note.
func (b *Broker) PublishStamp(data StampData) {
	b.send(publishReq{event: Event{Type: TypeStampInserted, Data: data}, agenda: true})
}

// ServeHTTP streams events to one client (GET /api/events). A Last-Event-ID
// header replays what the client missed while it was disconnected.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	lastID, _ := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.SubscribeAfter(lastID)
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.keepAlive)
	defer ping.Stop()

	for {
		var msg []byte
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			msg = []byte(": ping\n\n")
		case m, ok := <-ch:
			if !ok {
				return
			}
			msg = m
		}
		if _, err := w.Write(msg); err != nil {
			return
		}
		flusher.Flush()
	}
}
