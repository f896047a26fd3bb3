package backup

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWatcher_SeedsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"notemaster-backup-2025-01-01.json",
		"notemaster-backup-2025-02-01.json",
		"unrelated.txt",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	w, err := NewWatcher(dir)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	got := w.List()
	if len(got) != 2 {
		t.Fatalf("List = %v, want 2 backup files", got)
	}
	// Newest first.
	if got[0] != "notemaster-backup-2025-02-01.json" {
		t.Errorf("List[0] = %q, want newest backup first", got[0])
	}
}

func TestWatcher_TracksCreateAndRemove(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan string, 16)
	go func() {
		_ = w.Watch(ctx, discardLogger(), func(kind, name string) {
			events <- kind + ":" + name
		})
	}()
	// Give the fsnotify watch a moment to attach.
	time.Sleep(100 * time.Millisecond)

	name := "notemaster-backup-2025-03-01.json"
	if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitForEvent(t, events, "created:"+name)
	if got := w.List(); len(got) != 1 || got[0] != name {
		t.Fatalf("List = %v after create", got)
	}

	if err := os.Remove(filepath.Join(dir, name)); err != nil {
		t.Fatal(err)
	}
	waitForEvent(t, events, "deleted:"+name)
	if got := w.List(); len(got) != 0 {
		t.Fatalf("List = %v after remove", got)
	}
}

func TestWatcher_IgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Watch(ctx, discardLogger(), nil) }()
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	if got := w.List(); len(got) != 0 {
		t.Errorf("List = %v, foreign file tracked", got)
	}
}

func waitForEvent(t *testing.T, events <-chan string, want string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-events:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timeout waiting for event %q", want)
		}
	}
}
