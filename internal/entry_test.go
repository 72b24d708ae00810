package internal

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/orgstamp/internal/models"
	"github.com/starford/orgstamp/internal/stamper"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Vault.Path = filepath.Join(dir, "notes")
	cfg.SQLite.Path = filepath.Join(dir, "index.db")
	return cfg
}

func TestOpenVault_RequiresConfig(t *testing.T) {
	if _, err := OpenVault(nil); !errors.Is(err, errConfigRequired) {
		t.Fatalf("err = %v, want errConfigRequired", err)
	}
}

func TestOpenVault_SyncsAndStamps(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		t.Fatal(err)
	}
	note := filepath.Join(cfg.Vault.Path, "inbox.org")
	if err := os.WriteFile(note, []byte("* Call mum \n<2024-05-03 Fri>\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)
	vault, err := OpenVault([]Option{
		WithConfig(cfg),
		WithLogger(slog.New(slog.DiscardHandler)),
		WithClock(stamper.FixedClock(now)),
	})
	if err != nil {
		t.Fatalf("OpenVault: %v", err)
	}
	defer vault.Close()

	ctx := context.Background()
	items, total, err := vault.Service.ListNotes(ctx, 10, 0)
	if err != nil || total != 1 || items[0].Path != "inbox.org" {
		t.Fatalf("ListNotes = %+v, %d, %v", items, total, err)
	}

	ins, err := vault.Service.InsertTimestamp(ctx, "inbox.org", models.Position{Line: 1, Column: 12}, "+1d", cfg.Stamp.Active, "")
	if err != nil {
		t.Fatalf("InsertTimestamp: %v", err)
	}
	if ins.Stamp != "<2024-05-02 Thu>" {
		t.Errorf("stamp = %q", ins.Stamp)
	}
	data, _ := os.ReadFile(note)
	if string(data) != "* Call mum <2024-05-02 Thu>\n<2024-05-03 Fri>\n" {
		t.Errorf("note = %q", data)
	}

	entries, err := vault.Service.Agenda(ctx, vault.Service.Today(), 7, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Date != "2024-05-02" || entries[1].Date != "2024-05-03" {
		t.Errorf("agenda = %+v", entries)
	}
}

func TestOpenVault_CreatesMissingVault(t *testing.T) {
	cfg := testConfig(t)
	vault, err := OpenVault([]Option{WithConfig(cfg), WithLogger(slog.New(slog.DiscardHandler))})
	if err != nil {
		t.Fatalf("OpenVault: %v", err)
	}
	defer vault.Close()
	if info, err := os.Stat(cfg.Vault.Path); err != nil || !info.IsDir() {
		t.Fatalf("vault dir not created: %v", err)
	}
}

func TestRunMCP_StopsWatcherBeforeClosingVault(t *testing.T) {
	cfg := testConfig(t)
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	w.Close()
	stdin := os.Stdin
	os.Stdin = r
	t.Cleanup(func() {
		os.Stdin = stdin
		r.Close()
	})

	done := make(chan error, 1)
	go func() {
		done <- RunMCP(context.Background(), WithConfig(cfg), WithLogger(slog.New(slog.DiscardHandler)))
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Logf("RunMCP: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("RunMCP did not return after stdin closed")
	}

	// The index must be free for the next open once RunMCP has returned.
	vault, err := OpenVault([]Option{WithConfig(cfg), WithLogger(slog.New(slog.DiscardHandler))})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	vault.Close()
}
