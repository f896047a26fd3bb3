package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/notemaster/internal/ai"
	"github.com/starford/notemaster/internal/backup"
	"github.com/starford/notemaster/internal/models"
	"github.com/starford/notemaster/internal/sse"
	"github.com/starford/notemaster/internal/store"
)

type transportFunc func(ctx context.Context, req ai.Request) ([]byte, error)

func (f transportFunc) Complete(ctx context.Context, req ai.Request) ([]byte, error) {
	return f(ctx, req)
}

func okTransport(reply string) ai.Transport {
	return transportFunc(func(context.Context, ai.Request) ([]byte, error) {
		body, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": reply}},
			},
		})
		return body, nil
	})
}

// testEnv sets up a seeded store, a chat with a stub transport, and a router.
// authToken="" means auth disabled.
func testEnv(t *testing.T, authToken string) (*store.Store, http.Handler) {
	t.Helper()
	st, router, _ := testEnvWithBackups(t, authToken, false)
	return st, router
}

func testEnvWithBackups(t *testing.T, authToken string, withBackups bool) (*store.Store, http.Handler, string) {
	t.Helper()

	st := store.New()
	st.Initialize()
	st.UpdateConfig(store.SettingsUpdate{AIAPIKey: ptr("test-key")})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	chat := ai.NewChat(st, okTransport("hi"), logger)

	var (
		watcher   *backup.Watcher
		backupDir string
	)
	if withBackups {
		backupDir = t.TempDir()
		var err error
		watcher, err = backup.NewWatcher(backupDir)
		if err != nil {
			t.Fatalf("NewWatcher: %v", err)
		}
	}

	enabled := authToken != ""
	router := NewRouter(st, chat, watcher, backupDir, enabled, authToken, nil)
	return st, router, backupDir
}

func ptr[T any](v T) *T { return &v }

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestStateIncludesSeedData(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/state", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var state StateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &state); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(state.Folders) != 1 || state.Folders[0].Name != models.DefaultFolderName {
		t.Errorf("folders = %+v", state.Folders)
	}
	if len(state.Notes) != 1 {
		t.Fatalf("notes = %d, want 1", len(state.Notes))
	}
	if state.SelectedNoteID != state.Notes[0].ID {
		t.Errorf("selectedNoteId = %q, want welcome note", state.SelectedNoteID)
	}
	if !state.AIPanelOpen {
		t.Error("AI panel should default to open")
	}
}

func TestFolderLifecycle(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/folders", map[string]string{"name": "工作"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var folder models.Folder
	_ = json.Unmarshal(w.Body.Bytes(), &folder)
	if folder.Name != "工作" || folder.ID == "" {
		t.Fatalf("folder = %+v", folder)
	}

	w = do(t, router, http.MethodPatch, "/folders/"+folder.ID, map[string]string{"name": "归档"})
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d", w.Code)
	}
	var updated models.Folder
	_ = json.Unmarshal(w.Body.Bytes(), &updated)
	if updated.Name != "归档" {
		t.Errorf("name = %q, want 归档", updated.Name)
	}

	w = do(t, router, http.MethodPost, "/folders/"+folder.ID+"/toggle", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("toggle status = %d", w.Code)
	}

	w = do(t, router, http.MethodDelete, "/folders/"+folder.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}

	w = do(t, router, http.MethodDelete, "/folders/"+folder.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestFolderReparentCycleConflicts(t *testing.T) {
	st, router := testEnv(t, "")
	parent := st.AddFolder("parent", "")
	child := st.AddFolder("child", parent.ID)

	w := do(t, router, http.MethodPatch, "/folders/"+parent.ID,
		map[string]string{"parentId": child.ID})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409, body = %s", w.Code, w.Body.String())
	}
	got, _ := st.Folder(parent.ID)
	if got.ParentID != "" {
		t.Errorf("parentId = %q, want unchanged", got.ParentID)
	}
}

func TestFolderCreateRequiresName(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/folders", map[string]string{"name": ""})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestNoteLifecycle(t *testing.T) {
	st, router := testEnv(t, "")
	folder := st.AddFolder("工作", "")

	w := do(t, router, http.MethodPost, "/notes", map[string]string{"folderId": folder.ID})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var note models.Note
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if note.Title != models.DefaultNoteTitle {
		t.Errorf("title = %q, want default", note.Title)
	}
	if st.SelectedNoteID() != note.ID {
		t.Error("new note should become selected")
	}

	w = do(t, router, http.MethodPatch, "/notes/"+note.ID, map[string]any{
		"content": "# 第一稿",
		"tags":    []string{"draft"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d", w.Code)
	}
	var updated models.Note
	_ = json.Unmarshal(w.Body.Bytes(), &updated)
	if updated.Content != "# 第一稿" || len(updated.Tags) != 1 {
		t.Errorf("updated = %+v", updated)
	}

	w = do(t, router, http.MethodPost, "/notes/"+note.ID+"/favorite", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("favorite status = %d", w.Code)
	}
	_ = json.Unmarshal(w.Body.Bytes(), &updated)
	if !updated.IsFavorite {
		t.Error("favorite should toggle on")
	}

	other := st.AddFolder("归档", "")
	w = do(t, router, http.MethodPost, "/notes/"+note.ID+"/move", map[string]string{"targetFolderId": other.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("move status = %d", w.Code)
	}
	_ = json.Unmarshal(w.Body.Bytes(), &updated)
	if updated.FolderID != other.ID {
		t.Errorf("folderId = %q, want %q", updated.FolderID, other.ID)
	}

	w = do(t, router, http.MethodDelete, "/notes/"+note.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	if w = do(t, router, http.MethodPatch, "/notes/"+note.ID, map[string]string{"title": "x"}); w.Code != http.StatusNotFound {
		t.Errorf("patch after delete status = %d, want 404", w.Code)
	}
}

func TestListNotesFilters(t *testing.T) {
	st, router := testEnv(t, "")
	folder := st.AddFolder("工作", "")
	note := st.AddNote(folder.ID, "任务清单")
	_ = st.ToggleFavorite(note.ID)

	var notes []models.Note
	w := do(t, router, http.MethodGet, "/notes", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &notes)
	if len(notes) != 2 {
		t.Errorf("all notes = %d, want 2", len(notes))
	}

	w = do(t, router, http.MethodGet, "/notes?folderId="+folder.ID, nil)
	notes = nil
	_ = json.Unmarshal(w.Body.Bytes(), &notes)
	if len(notes) != 1 || notes[0].ID != note.ID {
		t.Errorf("folder notes = %+v", notes)
	}

	w = do(t, router, http.MethodGet, "/notes?favorite=true", nil)
	notes = nil
	_ = json.Unmarshal(w.Body.Bytes(), &notes)
	if len(notes) != 1 || !notes[0].IsFavorite {
		t.Errorf("favorite notes = %+v", notes)
	}
}

func TestSelectionEndpoint(t *testing.T) {
	st, router := testEnv(t, "")
	folder := st.AddFolder("工作", "")

	w := do(t, router, http.MethodPost, "/selection", map[string]string{"folderId": folder.ID})
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if st.SelectedFolderID() != folder.ID {
		t.Errorf("selectedFolderId = %q", st.SelectedFolderID())
	}

	// Explicit empty string clears, absent field leaves untouched.
	w = do(t, router, http.MethodPost, "/selection", map[string]string{"noteId": ""})
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if st.SelectedNoteID() != "" {
		t.Error("noteId should be cleared")
	}
	if st.SelectedFolderID() != folder.ID {
		t.Error("folderId should be untouched")
	}
}

func TestConfigPatchMerges(t *testing.T) {
	st, router := testEnv(t, "")

	w := do(t, router, http.MethodPatch, "/config", map[string]any{"fontSize": 18})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var cfg models.Settings
	_ = json.Unmarshal(w.Body.Bytes(), &cfg)
	if cfg.FontSize != 18 {
		t.Errorf("fontSize = %d, want 18", cfg.FontSize)
	}
	if cfg.Theme != st.Config().Theme {
		t.Error("untouched fields should survive")
	}
	if cfg.AIAPIKey != "test-key" {
		t.Errorf("aiApiKey = %q, key should be untouched", cfg.AIAPIKey)
	}
}

func TestSendMessageGlobal(t *testing.T) {
	st, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/ai/messages", map[string]string{"content": "你好"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var reply models.AIMessage
	_ = json.Unmarshal(w.Body.Bytes(), &reply)
	if reply.Role != models.RoleAssistant || reply.Content != "hi" {
		t.Errorf("reply = %+v", reply)
	}
	if got := len(st.GlobalAIMessages()); got != 2 {
		t.Errorf("global thread length = %d, want 2", got)
	}
}

func TestSendMessageValidation(t *testing.T) {
	st, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/ai/messages", map[string]string{"content": "   "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty content status = %d, want 400", w.Code)
	}

	w = do(t, router, http.MethodPost, "/ai/messages", map[string]string{"noteId": "missing", "content": "hi"})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown note status = %d, want 404", w.Code)
	}

	st.UpdateConfig(store.SettingsUpdate{AIAPIKey: ptr("")})
	w = do(t, router, http.MethodPost, "/ai/messages", map[string]string{"content": "hi"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing key status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "MiniMax") {
		t.Errorf("error should name the provider, got %s", w.Body.String())
	}
}

func TestClearMessages(t *testing.T) {
	st, router := testEnv(t, "")
	noteID := st.SelectedNoteID()

	do(t, router, http.MethodPost, "/ai/messages", map[string]string{"noteId": noteID, "content": "一"})
	do(t, router, http.MethodPost, "/ai/messages", map[string]string{"content": "二"})

	w := do(t, router, http.MethodDelete, "/ai/messages?noteId="+noteID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("clear note thread status = %d", w.Code)
	}
	note, _ := st.Note(noteID)
	if len(note.AIMessages) != 0 {
		t.Errorf("note thread length = %d, want 0", len(note.AIMessages))
	}
	if len(st.GlobalAIMessages()) == 0 {
		t.Error("global thread should be untouched")
	}

	w = do(t, router, http.MethodDelete, "/ai/messages", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("clear global thread status = %d", w.Code)
	}
	if len(st.GlobalAIMessages()) != 0 {
		t.Error("global thread should be empty")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	st, router := testEnv(t, "")
	folder := st.AddFolder("往事", "")
	st.AddNote(folder.ID, "回忆")

	w := do(t, router, http.MethodGet, "/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "notemaster-backup-") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	exported := w.Body.Bytes()

	// Import into a fresh environment and compare collections.
	st2, router2 := testEnv(t, "")
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/import", bytes.NewReader(exported))
	router2.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("import status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(st2.Folders()) != 2 || len(st2.Notes()) != 2 {
		t.Errorf("imported folders = %d, notes = %d", len(st2.Folders()), len(st2.Notes()))
	}
	if st2.SelectedNoteID() != "" {
		t.Error("import should clear selection")
	}
}

func TestImportRejectsInvalidDocument(t *testing.T) {
	st, router := testEnv(t, "")
	before := len(st.Notes())

	w := do(t, router, http.MethodPost, "/import", map[string]any{"folders": []any{}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if len(st.Notes()) != before {
		t.Error("rejected import must not mutate state")
	}
}

func TestBackupEndpoints(t *testing.T) {
	_, router, _ := testEnvWithBackups(t, "", true)

	w := do(t, router, http.MethodGet, "/backups", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list BackupListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Backups) != 0 {
		t.Errorf("backups = %v, want empty", list.Backups)
	}

	w = do(t, router, http.MethodPost, "/backups", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var created map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	if !strings.HasPrefix(created["file"], "notemaster-backup-") {
		t.Errorf("file = %q", created["file"])
	}
}

func TestBackupsNotConfigured(t *testing.T) {
	_, router := testEnv(t, "")

	if w := do(t, router, http.MethodGet, "/backups", nil); w.Code != http.StatusNotFound {
		t.Errorf("list status = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/backups", nil); w.Code != http.StatusNotFound {
		t.Errorf("create status = %d, want 404", w.Code)
	}
}

func TestNoteExportFormats(t *testing.T) {
	st, router := testEnv(t, "")
	f := st.AddFolder("docs", "")
	n := st.AddNote(f.ID, "会议记录")
	content := "# Agenda\n\n**bold** point"
	if err := st.UpdateNote(n.ID, store.NoteUpdate{Content: ptr(content)}); err != nil {
		t.Fatal(err)
	}

	w := do(t, router, http.MethodGet, "/notes/"+n.ID+"/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("md status = %d, body = %s", w.Code, w.Body.String())
	}
	if w.Body.String() != content {
		t.Errorf("md body = %q, want raw content", w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "会议记录.md") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	w = do(t, router, http.MethodGet, "/notes/"+n.ID+"/export?format=txt", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("txt status = %d", w.Code)
	}
	if got := w.Body.String(); strings.Contains(got, "#") || strings.Contains(got, "**") {
		t.Errorf("txt body still marked up: %q", got)
	}

	if w = do(t, router, http.MethodGet, "/notes/"+n.ID+"/export?format=pdf", nil); w.Code != http.StatusBadRequest {
		t.Errorf("unknown format status = %d, want 400", w.Code)
	}
	if w = do(t, router, http.MethodGet, "/notes/missing/export", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing note status = %d, want 404", w.Code)
	}
}

func TestEventsEndpointBehindAuth(t *testing.T) {
	st := store.New()
	st.Initialize()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	chat := ai.NewChat(st, okTransport("hi"), logger)
	broker := sse.NewBroker(time.Second)
	defer broker.Close()
	router := NewRouter(st, chat, nil, "", true, "secret", broker)

	w := do(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d, want 401", w.Code)
	}

	// A pre-cancelled request context makes the stream handler return after
	// writing its headers.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestAuthModes(t *testing.T) {
	_, router := testEnv(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/state", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/state", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token status = %d, want 200", w.Code)
	}
}
