package index

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/orgstamp/internal/apperr"
	"github.com/starford/orgstamp/internal/orgdate"
	"github.com/starford/orgstamp/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "orgstamp-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func day(t *testing.T, s string) orgdate.Moment {
	t.Helper()
	m, err := orgdate.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&count); err != nil {
		t.Fatalf("notes table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM stamps`).Scan(&count); err != nil {
		t.Fatalf("stamps table missing: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	row := NoteRow{
		Path:      "hello.org",
		Title:     "Hello World",
		Checksum:  "abc123",
		UpdatedAt: time.Now(),
	}
	stamps := orgdate.FindStamps("* Call <2024-05-01 Wed>")
	if err := db.UpsertNote(row, stamps); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	cs, err := db.GetChecksum("hello.org")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}
}

func TestStamps(t *testing.T) {
	db := testDB(t)
	text := "* Plan\n<2024-05-02 Thu 09:30> then [2024-05-01 Wed]\n"
	_ = db.UpsertNote(NoteRow{Path: "p.org", Title: "Plan", Checksum: "1"}, orgdate.FindStamps(text))

	got, err := db.Stamps("p.org")
	if err != nil {
		t.Fatalf("Stamps: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	first := got[0]
	if first.Date != "2024-05-02" || first.Time != "09:30" || !first.Active || first.Line != 2 || first.Column != 1 {
		t.Errorf("first stamp = %+v", first)
	}
	if got[1].Active || got[1].Time != "" || got[1].Title != "Plan" {
		t.Errorf("second stamp = %+v", got[1])
	}
}

func TestAgenda(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "a.org", Title: "A", Checksum: "1"},
		orgdate.FindStamps("<2024-05-03 Fri 14:00>\n<2024-05-03 Fri>\n<2024-06-01 Sat>"))
	_ = db.UpsertNote(NoteRow{Path: "b.org", Title: "B", Checksum: "2"},
		orgdate.FindStamps("<2024-05-03 Fri 08:00> [2024-05-04 Sat]"))

	got, err := db.Agenda(day(t, "2024-05-01"), day(t, "2024-05-07"), false)
	if err != nil {
		t.Fatalf("Agenda: %v", err)
	}
	want := []string{"<2024-05-03 Fri>", "<2024-05-03 Fri 08:00>", "<2024-05-03 Fri 14:00>"}
	if len(got) != len(want) {
		t.Fatalf("agenda = %+v, want %v", got, want)
	}
	for i, w := range want {
		if got[i].Raw != w {
			t.Errorf("agenda[%d] = %q, want %q", i, got[i].Raw, w)
		}
	}

	all, _ := db.Agenda(day(t, "2024-05-01"), day(t, "2024-05-07"), true)
	if len(all) != 4 {
		t.Errorf("with inactive: len = %d, want 4", len(all))
	}
}

func TestDeleteNote(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "del.org", Checksum: "x"}, orgdate.FindStamps("<2024-05-01 Wed>"))

	if err := db.DeleteNote("del.org"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	cs, _ := db.GetChecksum("del.org")
	if cs != "" {
		t.Errorf("deleted note still has checksum %q", cs)
	}
	st, _ := db.Stamps("del.org")
	if len(st) != 0 {
		t.Errorf("expected 0 stamps after delete, got %d", len(st))
	}
}

func TestUpsertReplacesStamps(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "up.org", Title: "Old", Checksum: "1"}, orgdate.FindStamps("<2024-05-01 Wed>"))
	_ = db.UpsertNote(NoteRow{Path: "up.org", Title: "New", Checksum: "2"}, orgdate.FindStamps("<2024-07-01 Mon>"))

	cs, _ := db.GetChecksum("up.org")
	if cs != "2" {
		t.Errorf("checksum = %q, want %q", cs, "2")
	}
	st, _ := db.Stamps("up.org")
	if len(st) != 1 || st[0].Date != "2024-07-01" {
		t.Errorf("stamps = %+v, want only 2024-07-01", st)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.org")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestGetNoteAndList(t *testing.T) {
	db := testDB(t)
	for _, p := range []string{"c.org", "a.org", "b.md"} {
		_ = db.UpsertNote(NoteRow{Path: p, Title: p, Checksum: p}, nil)
	}

	n, err := db.GetNote("a.org")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if n.Title != "a.org" {
		t.Errorf("title = %q", n.Title)
	}
	if _, err := db.GetNote("missing.org"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	rows, total, err := db.ListNotes(2, 0)
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if total != 3 || len(rows) != 2 || rows[0].Path != "a.org" || rows[1].Path != "b.md" {
		t.Errorf("rows = %+v total = %d", rows, total)
	}
	rows, _, _ = db.ListNotes(2, 2)
	if len(rows) != 1 || rows[0].Path != "c.org" {
		t.Errorf("second page = %+v", rows)
	}
}

func TestSync(t *testing.T) {
	db := testDB(t)
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	logger := slog.New(slog.DiscardHandler)

	_ = os.WriteFile(filepath.Join(dir, "keep.org"), []byte("#+TITLE: Keep\n<2024-05-01 Wed>\n"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("<2024-05-01 Wed>"), 0o644)
	_ = db.UpsertNote(NoteRow{Path: "gone.org", Checksum: "old"}, nil)

	rep, err := Sync(db, store, logger)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(rep.Indexed) != 1 || rep.Indexed[0] != "keep.org" {
		t.Errorf("Indexed = %v", rep.Indexed)
	}
	if len(rep.Removed) != 1 || rep.Removed[0] != "gone.org" {
		t.Errorf("Removed = %v", rep.Removed)
	}
	n, err := db.GetNote("keep.org")
	if err != nil || n.Title != "Keep" {
		t.Fatalf("keep.org = %+v, %v", n, err)
	}
	if cs, _ := db.GetChecksum("gone.org"); cs != "" {
		t.Error("stale entry survived sync")
	}
	if cs, _ := db.GetChecksum("notes.txt"); cs != "" {
		t.Error("non-note file was indexed")
	}
	st, _ := db.Stamps("keep.org")
	if len(st) != 1 || st[0].Line != 2 {
		t.Errorf("stamps = %+v", st)
	}
}

func TestSync_UnchangedNotesSkipped(t *testing.T) {
	db := testDB(t)
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	logger := slog.New(slog.DiscardHandler)

	_ = os.WriteFile(filepath.Join(dir, "a.org"), []byte("<2024-05-01 Wed>\n"), 0o644)
	if _, err := Sync(db, store, logger); err != nil {
		t.Fatal(err)
	}

	rep, err := Sync(db, store, logger)
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Indexed) != 0 || len(rep.Removed) != 0 {
		t.Errorf("second pass changed %+v", rep)
	}

	_ = os.WriteFile(filepath.Join(dir, "a.org"), []byte("[2024-05-02 Thu]\n"), 0o644)
	rep, err = Sync(db, store, logger)
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Indexed) != 1 {
		t.Errorf("changed note not reindexed: %+v", rep)
	}
}

func TestPing(t *testing.T) {
	db := testDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
