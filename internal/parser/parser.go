// Package parser extracts frontmatter, titles and timestamps from note content.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/orgstamp/internal/orgdate"
)

var (
	orgTitleRe   = regexp.MustCompile(`(?i)^#\+title:\s*(.*)$`)
	orgHeadingRe = regexp.MustCompile(`^\*+\s+(?:(?:TODO|DONE)\s+)?(.*?)\s*$`)
)

// Result holds the output of parsing a note file.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	Title       string
	// Stamps are located against the whole file, frontmatter included,
	// so that positions line up with what an editor shows.
	Stamps []orgdate.Located
}

// Parse extracts frontmatter, body, title and timestamps from raw bytes.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Title:       deriveTitle(fm, body),
		Stamps:      orgdate.FindStamps(string(data)),
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML: keep the whole file as body.
		return nil, string(data), nil
	}

	return fm, body, nil
}

// deriveTitle returns the frontmatter "title" if present, then an org
// #+TITLE keyword, then the first org or Markdown heading.
func deriveTitle(fm map[string]interface{}, body string) string {
	if fm != nil {
		if t, ok := fm["title"]; ok {
			if s, ok := t.(string); ok && s != "" {
				return s
			}
		}
	}
	lines := strings.Split(body, "\n")
	for _, line := range lines {
		if m := orgTitleRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil && m[1] != "" {
			return strings.TrimSpace(m[1])
		}
	}
	for _, line := range lines {
		trimmed := strings.TrimRight(line, "\r")
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
		if m := orgHeadingRe.FindStringSubmatch(trimmed); m != nil {
			return stripStamps(m[1])
		}
	}
	return ""
}

// stripStamps drops timestamps from a heading so titles read cleanly.
func stripStamps(heading string) string {
	for _, loc := range orgdate.FindStamps(heading) {
		heading = strings.Replace(heading, loc.Raw, "", 1)
	}
	return strings.Join(strings.Fields(heading), " ")
}
