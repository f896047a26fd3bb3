package backup

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/starford/notemaster/internal/apperr"
	"github.com/starford/notemaster/internal/models"
)

func validSnapshot() models.Snapshot {
	return models.Snapshot{
		Folders: []models.Folder{{ID: "f1", Name: "我的笔记", IsExpanded: true, CreatedAt: 1, UpdatedAt: 1}},
		Notes: []models.Note{{
			ID: "n1", Title: "hello", Content: "# Hi", FolderID: "f1",
			Tags:       []string{},
			AIMessages: []models.AIMessage{{ID: "m1", Role: models.RoleUser, Content: "q", Timestamp: 2}},
			CreatedAt:  1, UpdatedAt: 2,
		}},
		Config:           models.DefaultSettings(),
		GlobalAIMessages: []models.AIMessage{},
	}
}

func TestFilename(t *testing.T) {
	at := time.Date(2025, 3, 9, 14, 30, 0, 0, time.UTC)
	if got := Filename(at); got != "notemaster-backup-2025-03-09.json" {
		t.Errorf("Filename = %q", got)
	}
}

func TestExportParseRoundTrip(t *testing.T) {
	dir := t.TempDir()
	snap := validSnapshot()

	path, err := Export(snap, dir)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("path = %q, not in %q", path, dir)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !reflect.DeepEqual(got, snap) {
		t.Errorf("round trip diverged:\n got %+v\nwant %+v", got, snap)
	}
}

func TestExport_NoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	if _, err := Export(validSnapshot(), dir); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, want only the backup file", len(entries))
	}
}

func TestParse_MissingRequiredKeys(t *testing.T) {
	cases := map[string]string{
		"no folders": `{"notes":[],"config":{}}`,
		"no notes":   `{"folders":[],"config":{}}`,
		"no config":  `{"folders":[],"notes":[]}`,
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); !errors.Is(err, apperr.ErrInvalidBackup) {
			t.Errorf("%s: err = %v, want ErrInvalidBackup", name, err)
		}
	}
}

func TestParse_OptionalGlobalMessages(t *testing.T) {
	snap := validSnapshot()
	raw, _ := json.Marshal(map[string]any{
		"folders": snap.Folders,
		"notes":   snap.Notes,
		"config":  snap.Config,
	})
	got, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse without globalAIMessages: %v", err)
	}
	if got.GlobalAIMessages != nil {
		t.Errorf("globalAIMessages = %+v, want empty", got.GlobalAIMessages)
	}
}

func TestParse_NotJSON(t *testing.T) {
	if _, err := Parse([]byte("not json at all")); !errors.Is(err, apperr.ErrInvalidBackup) {
		t.Errorf("err = %v, want ErrInvalidBackup", err)
	}
}

func TestParse_EntityValidation(t *testing.T) {
	mutate := func(fn func(*models.Snapshot)) []byte {
		snap := validSnapshot()
		fn(&snap)
		raw, _ := json.Marshal(snap)
		return raw
	}

	cases := map[string][]byte{
		"folder without id":   mutate(func(s *models.Snapshot) { s.Folders[0].ID = "" }),
		"folder without name": mutate(func(s *models.Snapshot) { s.Folders[0].Name = "" }),
		"note without folder": mutate(func(s *models.Snapshot) { s.Notes[0].FolderID = "" }),
		"bad message role":    mutate(func(s *models.Snapshot) { s.Notes[0].AIMessages[0].Role = "system" }),
		"duplicate ids":       mutate(func(s *models.Snapshot) { s.Notes[0].ID = s.Folders[0].ID }),
		"bad theme":           mutate(func(s *models.Snapshot) { s.Config.Theme = "neon" }),
		"font size too small": mutate(func(s *models.Snapshot) { s.Config.FontSize = 8 }),
		"font size too large": mutate(func(s *models.Snapshot) { s.Config.FontSize = 40 }),
		"unknown provider":    mutate(func(s *models.Snapshot) { s.Config.AIProvider = "gpt9" }),
	}
	for name, raw := range cases {
		if _, err := Parse(raw); !errors.Is(err, apperr.ErrInvalidBackup) {
			t.Errorf("%s: err = %v, want ErrInvalidBackup", name, err)
		}
	}
}

func TestParse_ValidDocumentPasses(t *testing.T) {
	raw, _ := json.Marshal(validSnapshot())
	if _, err := Parse(raw); err != nil {
		t.Fatalf("valid document rejected: %v", err)
	}
}
