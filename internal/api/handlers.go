package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notemaster/internal/ai"
	"github.com/starford/notemaster/internal/apperr"
	"github.com/starford/notemaster/internal/backup"
	"github.com/starford/notemaster/internal/models"
	"github.com/starford/notemaster/internal/store"
)

// Handler holds API route handlers.
type Handler struct {
	store     *store.Store
	chat      *ai.Chat
	backups   *backup.Watcher
	backupDir string
}

// NewHandler creates a new Handler. backups may be nil when the backup
// directory is not watched.
func NewHandler(st *store.Store, chat *ai.Chat, backups *backup.Watcher, backupDir string) *Handler {
	return &Handler{store: st, chat: chat, backups: backups, backupDir: backupDir}
}

// GetState handles GET /state.
//
//	@Summary		Get the full store state including transient selection
//	@Tags			state
//	@Produce		json
//	@Success		200	{object}	StateResponse
//	@Security		BearerAuth
//	@Router			/state [get]
func (h *Handler) GetState(w http.ResponseWriter, _ *http.Request) {
	open, expanded := h.store.AIPanelState()
	writeJSON(w, http.StatusOK, StateResponse{
		Snapshot:         h.store.Snapshot(),
		SelectedNoteID:   h.store.SelectedNoteID(),
		SelectedFolderID: h.store.SelectedFolderID(),
		AIPanelOpen:      open,
		AIPanelExpanded:  expanded,
	})
}

// GetTree handles GET /tree.
//
//	@Summary		Get the folder forest reconstructed from the flat collections
//	@Tags			state
//	@Produce		json
//	@Success		200	{object}	TreeResponse
//	@Security		BearerAuth
//	@Router			/tree [get]
func (h *Handler) GetTree(w http.ResponseWriter, _ *http.Request) {
	roots := h.store.Tree()
	if roots == nil {
		roots = []*store.TreeNode{}
	}
	writeJSON(w, http.StatusOK, TreeResponse{Roots: roots})
}

// CreateFolder handles POST /folders.
//
//	@Summary		Create a folder
//	@Tags			folders
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateFolderRequest	true	"Folder to create"
//	@Success		201		{object}	models.Folder
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders [post]
func (h *Handler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req CreateFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	folder := h.store.AddFolder(req.Name, req.ParentID)
	writeJSON(w, http.StatusCreated, folder)
}

// UpdateFolder handles PATCH /folders/{id}.
func (h *Handler) UpdateFolder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	err := h.store.UpdateFolder(id, store.FolderUpdate{
		Name:       req.Name,
		ParentID:   req.ParentID,
		IsExpanded: req.IsExpanded,
	})
	switch {
	case errors.Is(err, apperr.ErrCyclicFolder):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	folder, _ := h.store.Folder(id)
	writeJSON(w, http.StatusOK, folder)
}

// DeleteFolder handles DELETE /folders/{id}. Deletion cascades to the whole
// descendant closure and the notes inside it.
func (h *Handler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteFolder(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleFolder handles POST /folders/{id}/toggle.
func (h *Handler) ToggleFolder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.ToggleFolderExpanded(id); err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	folder, _ := h.store.Folder(id)
	writeJSON(w, http.StatusOK, folder)
}

// ListNotes handles GET /notes. Supports ?folderId= and ?favorite=true filters.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var notes []models.Note
	switch {
	case q.Get("folderId") != "":
		notes = h.store.NotesInFolder(q.Get("folderId"))
	case q.Get("favorite") == "true":
		notes = h.store.FavoriteNotes()
	default:
		notes = h.store.Notes()
	}
	if notes == nil {
		notes = []models.Note{}
	}
	writeJSON(w, http.StatusOK, notes)
}

// CreateNote handles POST /notes. The new note becomes the selected note.
//
//	@Summary		Create a note inside a folder
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.FolderID == "" {
		writeError(w, http.StatusBadRequest, "folderId is required")
		return
	}
	note := h.store.AddNote(req.FolderID, req.Title)
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PATCH /notes/{id}.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	id := chi.URLParam(r, "id")
	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	err := h.store.UpdateNote(id, store.NoteUpdate{
		Title:      req.Title,
		Content:    req.Content,
		FolderID:   req.FolderID,
		IsFavorite: req.IsFavorite,
		Tags:       req.Tags,
	})
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	note, _ := h.store.Note(id)
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /notes/{id}.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteNote(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleFavorite handles POST /notes/{id}/favorite.
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.ToggleFavorite(id); err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	note, _ := h.store.Note(id)
	writeJSON(w, http.StatusOK, note)
}

// MoveNote handles POST /notes/{id}/move.
func (h *Handler) MoveNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req MoveNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.TargetFolderID == "" {
		writeError(w, http.StatusBadRequest, "targetFolderId is required")
		return
	}
	if err := h.store.MoveNote(id, req.TargetFolderID); err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	note, _ := h.store.Note(id)
	writeJSON(w, http.StatusOK, note)
}

// SetSelection handles POST /selection. Selection ids are not validated
// against the collections; clients only pass ids they obtained from us.
func (h *Handler) SetSelection(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.NoteID != nil {
		h.store.SelectNote(*req.NoteID)
	}
	if req.FolderID != nil {
		h.store.SelectFolder(*req.FolderID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleAIPanel handles POST /ai/panel/toggle.
func (h *Handler) ToggleAIPanel(w http.ResponseWriter, _ *http.Request) {
	open := h.store.ToggleAIPanel()
	writeJSON(w, http.StatusOK, map[string]bool{"isAIPanelOpen": open})
}

// SetAIPanelExpanded handles PUT /ai/panel/expanded.
func (h *Handler) SetAIPanelExpanded(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Expanded bool `json:"expanded"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	h.store.SetAIPanelExpanded(req.Expanded)
	w.WriteHeader(http.StatusNoContent)
}

// GetConfig handles GET /config.
func (h *Handler) GetConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Config())
}

// UpdateConfig handles PATCH /config. No range validation here: the
// presentation layer owns input bounds, the store merges what it is given.
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req UpdateConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	cfg := h.store.UpdateConfig(store.SettingsUpdate{
		Theme:            req.Theme,
		FontSize:         req.FontSize,
		AutoSaveInterval: req.AutoSaveInterval,
		AIProvider:       req.AIProvider,
		AIAPIKey:         req.AIAPIKey,
	})
	writeJSON(w, http.StatusOK, cfg)
}
