package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/starford/orgstamp/internal/models"
)

func TestPrintAgenda(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	printAgenda(&buf, []models.StampEntry{
		{Path: "a.org", Title: "Dentist", Line: 2, Date: "2024-05-03", Time: "09:30", Active: true},
		{Path: "b.org", Line: 5, Date: "2024-05-03", Active: true},
		{Path: "c.org", Title: "Log", Line: 1, Date: "2024-05-04", Active: false},
	})

	want := strings.Join([]string{
		"2024-05-03 Fri",
		"  09:30  Dentist  (a.org:2)",
		"         b.org  (b.org:5)",
		"2024-05-04 Sat",
		"         Log  (c.org:1)",
		"",
	}, "\n")
	if buf.String() != want {
		t.Errorf("output =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestPrintAgenda_Empty(t *testing.T) {
	var buf bytes.Buffer
	printAgenda(&buf, nil)
	if buf.String() != "No timestamps in range.\n" {
		t.Errorf("output = %q", buf.String())
	}
}
