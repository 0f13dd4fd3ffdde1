package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"streakwatch/pkg/logx"
)

func sampleEntries(n int) []Entry {
	base := time.Date(2025, 6, 15, 20, 0, 0, 0, time.UTC)
	out := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		e := Entry{
			RunID: string(rune('a' + i)),
			At:    base.Add(time.Duration(i) * time.Minute),
			Login: "octocat",
			Sent:  i%2 == 0,
		}
		if !e.Sent {
			e.Reason = "already contributed today"
		}
		out = append(out, e)
	}
	return out
}

func testDriver(t *testing.T, cfg Config) {
	t.Helper()
	st, err := Open(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	entries := sampleEntries(5)
	for _, e := range entries {
		if err := st.AppendOutcome(ctx, e); err != nil {
			t.Fatalf("AppendOutcome: %v", err)
		}
	}

	got, err := st.ListRecent(ctx, 3)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// Oldest first, ending at the newest entry.
	for i, e := range got {
		want := entries[len(entries)-3+i]
		if e.RunID != want.RunID || e.Sent != want.Sent || e.Reason != want.Reason {
			t.Fatalf("entry %d = %+v, want %+v", i, e, want)
		}
		if e.Login != "octocat" {
			t.Fatalf("entry %d login = %q", i, e.Login)
		}
	}

	// Asking for more than exists returns everything.
	all, err := st.ListRecent(ctx, 100)
	if err != nil {
		t.Fatalf("ListRecent(100): %v", err)
	}
	if len(all) != len(entries) {
		t.Fatalf("len = %d, want %d", len(all), len(entries))
	}
}

func TestFileStore(t *testing.T) {
	t.Parallel()
	testDriver(t, Config{
		Driver: "file",
		Path:   filepath.Join(t.TempDir(), "journal.jsonl"),
	})
}

func TestSQLiteStore(t *testing.T) {
	t.Parallel()
	testDriver(t, Config{
		Driver:      "sqlite",
		Path:        filepath.Join(t.TempDir(), "journal.db"),
		BusyTimeout: time.Second,
	})
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none"} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("Open(%q): %v", driver, err)
		}
		if st != nil {
			t.Fatalf("Open(%q) = %v, want nil store", driver, st)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
