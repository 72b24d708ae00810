package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/orgstamp/internal/models"
	"github.com/starford/orgstamp/internal/noteservice"
	"github.com/starford/orgstamp/internal/orgdate"
)

// Defaults are the server-side fallbacks for optional request fields.
type Defaults struct {
	Active     bool
	AgendaDays int
}

// Handler holds API route handlers.
type Handler struct {
	svc      *noteservice.Service
	defaults Defaults
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service, defaults Defaults) *Handler {
	if defaults.AgendaDays <= 0 {
		defaults.AgendaDays = 7
	}
	return &Handler{svc: svc, defaults: defaults}
}

// notePath extracts the note path from the URL wildcard.
// Supports encoded slashes from OpenAPI clients (e.g. projects%2Fplan.org).
func notePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// boolParam reads an optional boolean query parameter.
func boolParam(q url.Values, name string, def bool) (bool, error) {
	v := q.Get(name)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, validation.Errors{name: validation.NewError("validation_is_bool", "must be a boolean")}
	}
	return b, nil
}

// dateParam reads an optional YYYY-MM-DD query parameter.
func dateParam(q url.Values, name string) (*orgdate.Moment, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	m, err := orgdate.ParseDate(v)
	if err != nil {
		return nil, validation.Errors{name: validation.NewError("validation_is_date", "must be a date in YYYY-MM-DD format")}
	}
	return &m, nil
}

// Resolve handles GET /api/resolve.
//
//	@Summary		Resolve a date modifier
//	@Tags			dates
//	@Produce		json
//	@Param			modifier	query		string	false	"Modifier, e.g. +1w, fri, 12/25, 9:30"
//	@Param			anchor		query		string	false	"Anchor date (YYYY-MM-DD), default today"
//	@Param			active		query		bool	false	"Render an active timestamp"
//	@Success		200			{object}	ResolveResponse
//	@Failure		400			{object}	errResponse
//	@Failure		422			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/resolve [get]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	anchor, err := dateParam(q, "anchor")
	if err != nil {
		writeError(w, "resolve", err)
		return
	}
	active, err := boolParam(q, "active", h.defaults.Active)
	if err != nil {
		writeError(w, "resolve", err)
		return
	}
	modifier := q.Get("modifier")

	a := h.svc.Today()
	if anchor != nil {
		a = *anchor
	}
	res, err := h.svc.Resolve(r.Context(), &a, modifier)
	if err != nil {
		writeError(w, "resolve", err)
		return
	}
	out := ResolveResponse{
		Anchor:   a.Time().Format("2006-01-02"),
		Modifier: modifier,
		Rule:     res.Rule,
		Date:     res.Moment.Time().Format("2006-01-02"),
		Stamp:    orgdate.Format(res.Moment, active),
	}
	if res.Moment.HasTime() {
		out.Time = res.Moment.Time().Format("15:04")
	}
	writeJSON(w, http.StatusOK, out)
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes with optional pagination
//	@Tags			notes
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListNotes(r.Context(), limit, max(offset, 0))
	if err != nil {
		writeError(w, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: total})
}

// GetNote handles GET /api/notes/*.
//
//	@Summary		Get a single note with its timestamps
//	@Tags			notes
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	NoteDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	note, err := h.svc.GetNote(r.Context(), path)
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(note.Checksum))
	writeJSON(w, http.StatusOK, note)
}

// InsertStamp handles POST /api/stamp/*.
//
//	@Summary		Insert a timestamp into a note at a cursor position
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			path		path		string			true	"Note path"
//	@Param			If-Match	header		string			false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body		StampRequest	true	"Cursor and modifier"
//	@Success		201			{object}	StampResponse
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Failure		422			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/stamp/{path} [post]
func (h *Handler) InsertStamp(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req StampRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, "insert stamp", err)
		return
	}
	active := h.defaults.Active
	if req.Active != nil {
		active = *req.Active
	}

	pos := models.Position{Line: req.Line, Column: req.Column}
	ins, err := h.svc.InsertTimestamp(r.Context(), path, pos, req.Modifier, active, r.Header.Get("If-Match"))
	if err != nil {
		writeError(w, "insert stamp", err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(ins.Checksum))
	writeJSON(w, http.StatusCreated, ins)
}

// Agenda handles GET /api/agenda.
//
//	@Summary		List timestamps in a window of days
//	@Tags			agenda
//	@Produce		json
//	@Param			from		query		string	false	"First day (YYYY-MM-DD), default today"
//	@Param			days		query		int		false	"Number of days"
//	@Param			inactive	query		bool	false	"Include inactive timestamps"
//	@Success		200			{object}	AgendaResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/agenda [get]
func (h *Handler) Agenda(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := dateParam(q, "from")
	if err != nil {
		writeError(w, "agenda", err)
		return
	}
	start := h.svc.Today()
	if from != nil {
		start = *from
	}
	days := h.defaults.AgendaDays
	if v := q.Get("days"); v != "" {
		days, err = strconv.Atoi(v)
		if err == nil {
			err = validation.Validate(days, validation.Required, validation.Min(1), validation.Max(noteservice.MaxAgendaDays))
		}
		if err != nil {
			writeError(w, "agenda", validation.Errors{"days": err})
			return
		}
	}
	inactive, err := boolParam(q, "inactive", false)
	if err != nil {
		writeError(w, "agenda", err)
		return
	}

	entries, err := h.svc.Agenda(r.Context(), start, days, inactive)
	if err != nil {
		writeError(w, "agenda", err)
		return
	}
	writeJSON(w, http.StatusOK, AgendaResponse{
		From:    start.Time().Format("2006-01-02"),
		Days:    days,
		Entries: entries,
	})
}
