package parser

import (
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\n---\n# Hello\nBody text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "Hello" {
		t.Errorf("title = %q, want %q", r.Title, "Hello")
	}
	if r.Body != "# Hello\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	input := []byte("# Just a heading\nSome text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
}

func TestParse_StampPositionsCountFrontmatter(t *testing.T) {
	input := []byte("---\ntitle: Plan\n---\nMeet <2024-05-01 Wed 09:30>\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Stamps) != 1 {
		t.Fatalf("len(stamps) = %d, want 1", len(r.Stamps))
	}
	if r.Stamps[0].Line != 4 || r.Stamps[0].Column != 6 {
		t.Errorf("position = %d:%d, want 4:6", r.Stamps[0].Line, r.Stamps[0].Column)
	}
}

func TestDeriveTitle_FrontmatterOverHeading(t *testing.T) {
	fm := map[string]any{"title": "FM Title"}
	got := deriveTitle(fm, "#+TITLE: Keyword\n* Heading\n")
	if got != "FM Title" {
		t.Errorf("title = %q, want %q", got, "FM Title")
	}
}

func TestDeriveTitle_OrgKeyword(t *testing.T) {
	got := deriveTitle(nil, "* First heading\n#+title:  Weekly plan \n")
	if got != "Weekly plan" {
		t.Errorf("title = %q, want %q", got, "Weekly plan")
	}
}

func TestDeriveTitle_OrgHeading(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{"* Groceries\n", "Groceries"},
		{"intro\n** TODO Call mom <2024-05-01 Wed>\n", "Call mom"},
		{"* DONE Taxes\n", "Taxes"},
		{"plain text only\n", ""},
	}
	for _, tt := range tests {
		if got := deriveTitle(nil, tt.body); got != tt.want {
			t.Errorf("deriveTitle(%q) = %q, want %q", tt.body, got, tt.want)
		}
	}
}
