// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes date resolution and note stamping to LLM clients via stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/orgstamp/internal/models"
	"github.com/starford/orgstamp/internal/noteservice"
	"github.com/starford/orgstamp/internal/orgdate"
)

const grammarURI = "orgstamp://modifier-grammar"

// Defaults are the fallbacks for optional tool arguments.
type Defaults struct {
	Active     bool
	AgendaDays int
}

// Server wraps the MCP server with orgstamp tools.
type Server struct {
	mcp      *server.MCPServer
	svc      *noteservice.Service
	defaults Defaults
}

// New creates a new MCP server with all tools registered.
func New(svc *noteservice.Service, defaults Defaults) *Server {
	if defaults.AgendaDays <= 0 {
		defaults.AgendaDays = 7
	}
	s := &Server{svc: svc, defaults: defaults}

	s.mcp = server.NewMCPServer(
		"orgstamp",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
	)

	s.mcp.AddTool(mcp.NewTool("resolve_date",
		mcp.WithDescription("Resolve a short date modifier (e.g. +1w, fri, 12/25, 9:30) to an org timestamp. "+
			"Read the orgstamp://modifier-grammar resource for the full grammar."),
		mcp.WithString("modifier", mcp.Description("Date modifier; empty means the anchor date")),
		mcp.WithString("anchor", mcp.Description("Anchor date YYYY-MM-DD (default today)")),
		mcp.WithBoolean("active", mcp.Description("Render <...> instead of [...]")),
	), s.resolveDate)

	s.mcp.AddTool(mcp.NewTool("insert_timestamp",
		mcp.WithDescription("Resolve a modifier against today and insert the timestamp into a note at a 1-based line and byte column."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. projects/plan.org)")),
		mcp.WithNumber("line", mcp.Required(), mcp.Description("1-based line")),
		mcp.WithNumber("column", mcp.Required(), mcp.Description("1-based byte column; line length + 1 appends")),
		mcp.WithString("modifier", mcp.Description("Date modifier; empty inserts today")),
		mcp.WithBoolean("active", mcp.Description("Insert <...> instead of [...]")),
		mcp.WithString("checksum", mcp.Description("Expected note checksum from read_note; rejects stale edits")),
	), s.insertTimestamp)

	s.mcp.AddTool(mcp.NewTool("agenda",
		mcp.WithDescription("List timestamps found in notes for a window of days."),
		mcp.WithString("from", mcp.Description("First day YYYY-MM-DD (default today)")),
		mcp.WithNumber("days", mcp.Description("Number of days in the window")),
		mcp.WithBoolean("include_inactive", mcp.Description("Also list [...] timestamps")),
	), s.agenda)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note with its checksum and the timestamps it contains."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List indexed notes ordered by path."),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	), s.listNotes)

	s.mcp.AddResource(
		mcp.NewResource(grammarURI, "Date Modifier Grammar",
			mcp.WithResourceDescription("Modifier forms accepted by resolve_date and insert_timestamp, in priority order."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGrammarResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func optionalDate(req mcp.CallToolRequest, key string) (*orgdate.Moment, error) {
	v := req.GetString(key, "")
	if v == "" {
		return nil, nil
	}
	m, err := orgdate.ParseDate(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &m, nil
}

func (s *Server) resolveDate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	anchor, err := optionalDate(req, "anchor")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	modifier := req.GetString("modifier", "")
	res, err := s.svc.Resolve(ctx, anchor, modifier)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]string{
		"modifier": modifier,
		"rule":     res.Rule,
		"stamp":    orgdate.Format(res.Moment, req.GetBool("active", s.defaults.Active)),
	})
}

func (s *Server) insertTimestamp(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	line, err := req.RequireInt("line")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	column, err := req.RequireInt("column")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ins, err := s.svc.InsertTimestamp(ctx, path,
		models.Position{Line: line, Column: column},
		req.GetString("modifier", ""),
		req.GetBool("active", s.defaults.Active),
		req.GetString("checksum", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(ins)
}

func (s *Server) agenda(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, err := optionalDate(req, "from")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	start := s.svc.Today()
	if from != nil {
		start = *from
	}
	entries, err := s.svc.Agenda(ctx, start, req.GetInt("days", s.defaults.AgendaDays), req.GetBool("include_inactive", false))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("no timestamps in range"), nil
	}
	return jsonResult(entries)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetNote(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(note)
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, total, err := s.svc.ListNotes(ctx, req.GetInt("limit", 50), max(req.GetInt("offset", 0), 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if total == 0 {
		return mcp.NewToolResultText("no notes indexed"), nil
	}
	paths := make([]string, len(items))
	for i, it := range items {
		paths[i] = it.Path
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) readGrammarResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      grammarURI,
			MIMEType: "text/markdown",
			Text:     ModifierGrammar(),
		},
	}, nil
}
