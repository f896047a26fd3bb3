// Package backup implements full-state export/import through external JSON
// files, independent of the incremental slot persistence.
package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notemaster/internal/apperr"
	"github.com/starford/notemaster/internal/models"
)

// Filename returns the backup file name for the given date.
func Filename(t time.Time) string {
	return fmt.Sprintf("notemaster-backup-%s.json", t.Format("2006-01-02"))
}

// Export writes the snapshot as a dated JSON backup into dir and returns the
// full path. The write is atomic (tmp file, fsync, rename) so a crashed
// export never leaves a truncated backup behind.
func Export(snap models.Snapshot, dir string) (string, error) {
	return exportAt(snap, dir, time.Now())
}

func exportAt(snap models.Snapshot, dir string, at time.Time) (string, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("backup: encode: %w", err)
	}
	path := filepath.Join(dir, Filename(at))
	if err := writeAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// writeAtomic writes content via a tmp file, fsync and rename.
func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("backup: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".notemaster-tmp-*")
	if err != nil {
		return fmt.Errorf("backup: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("backup: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("backup: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("backup: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("backup: rename: %w", err)
	}
	success = true
	return nil
}

// Parse decodes and validates a backup document. Validation is all-or-nothing:
// any structural or per-entity failure returns apperr.ErrInvalidBackup and the
// caller must not apply anything. The top-level keys folders, notes, and
// config are required; globalAIMessages may be absent.
func Parse(data []byte) (models.Snapshot, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: not a JSON object: %v", apperr.ErrInvalidBackup, err)
	}
	for _, required := range []string{"folders", "notes", "config"} {
		if _, ok := keys[required]; !ok {
			return models.Snapshot{}, fmt.Errorf("%w: missing key %q", apperr.ErrInvalidBackup, required)
		}
	}

	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %v", apperr.ErrInvalidBackup, err)
	}
	if err := validateSnapshot(snap); err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %v", apperr.ErrInvalidBackup, err)
	}
	return snap, nil
}

// ReadFile loads and parses a backup file from disk.
func ReadFile(path string) (models.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("backup: read %s: %w", path, err)
	}
	return Parse(data)
}

// validateSnapshot applies entity-level schema checks: required ids, enum
// fields, fontSize bounds, and id uniqueness across each collection.
func validateSnapshot(snap models.Snapshot) error {
	seen := make(map[string]struct{}, len(snap.Folders)+len(snap.Notes))

	for i, f := range snap.Folders {
		if err := validation.ValidateStruct(&f,
			validation.Field(&f.ID, validation.Required),
			validation.Field(&f.Name, validation.Required),
		); err != nil {
			return fmt.Errorf("folders[%d]: %v", i, err)
		}
		if _, dup := seen[f.ID]; dup {
			return fmt.Errorf("folders[%d]: duplicate id %q", i, f.ID)
		}
		seen[f.ID] = struct{}{}
	}

	for i, n := range snap.Notes {
		if err := validation.ValidateStruct(&n,
			validation.Field(&n.ID, validation.Required),
			validation.Field(&n.FolderID, validation.Required),
		); err != nil {
			return fmt.Errorf("notes[%d]: %v", i, err)
		}
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("notes[%d]: duplicate id %q", i, n.ID)
		}
		seen[n.ID] = struct{}{}
		for j, m := range n.AIMessages {
			if err := validateMessage(m); err != nil {
				return fmt.Errorf("notes[%d].aiMessages[%d]: %v", i, j, err)
			}
		}
	}

	for i, m := range snap.GlobalAIMessages {
		if err := validateMessage(m); err != nil {
			return fmt.Errorf("globalAIMessages[%d]: %v", i, err)
		}
	}

	cfg := snap.Config
	return validation.ValidateStruct(&cfg,
		validation.Field(&cfg.Theme, validation.Required,
			validation.In(models.ThemeLight, models.ThemeDark, models.ThemeSystem)),
		validation.Field(&cfg.FontSize, validation.Required, validation.Min(12), validation.Max(24)),
		validation.Field(&cfg.AutoSaveInterval, validation.Min(0)),
		validation.Field(&cfg.AIProvider, validation.Required,
			validation.In(models.ProviderMiniMax, models.ProviderKimi, models.ProviderGLM)),
	)
}

func validateMessage(m models.AIMessage) error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.ID, validation.Required),
		validation.Field(&m.Role, validation.Required,
			validation.In(models.RoleUser, models.RoleAssistant)),
	)
}
