package backup

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called when a backup file appears or disappears.
// kind is one of "created", "deleted".
type EventCallback func(kind string, name string)

// Watcher keeps the set of backup files in dir current so the UI can list
// restore candidates without rescanning the directory on every request.
type Watcher struct {
	dir string

	mu    sync.Mutex
	files map[string]struct{}
}

// NewWatcher creates a watcher over dir and seeds it with the files already
// present on disk.
func NewWatcher(dir string) (*Watcher, error) {
	w := &Watcher{dir: dir, files: make(map[string]struct{})}
	if err := w.rescan(); err != nil {
		return nil, err
	}
	return w, nil
}

// List returns the known backup file names, sorted descending so the newest
// dated backup comes first.
func (w *Watcher) List() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.files))
	for name := range w.files {
		out = append(out, name)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}

// Watch runs the fsnotify loop until ctx is cancelled, calling cb (if
// non-nil) after each set change.
func (w *Watcher) Watch(ctx context.Context, logger *slog.Logger, cb EventCallback) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return err
	}
	logger.Info("backup watcher: started", slog.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			logger.Info("backup watcher: stopped")
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if !isBackupName(name) {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if w.add(name) {
					logger.Debug("backup watcher: file added", slog.String("name", name))
					if cb != nil {
						cb("created", name)
					}
				}
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				if w.remove(name) {
					logger.Debug("backup watcher: file removed", slog.String("name", name))
					if cb != nil {
						cb("deleted", name)
					}
				}
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Error("backup watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (w *Watcher) rescan() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, e := range entries {
		if !e.IsDir() && isBackupName(e.Name()) {
			w.files[e.Name()] = struct{}{}
		}
	}
	return nil
}

func (w *Watcher) add(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.files[name]; ok {
		return false
	}
	w.files[name] = struct{}{}
	return true
}

func (w *Watcher) remove(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.files[name]; !ok {
		return false
	}
	delete(w.files, name)
	return true
}

func isBackupName(name string) bool {
	return strings.HasPrefix(name, "notemaster-backup-") && strings.HasSuffix(name, ".json")
}
