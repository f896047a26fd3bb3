package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notemaster/internal/ai"
	"github.com/starford/notemaster/internal/apperr"
	"github.com/starford/notemaster/internal/backup"
)

// SendMessage handles POST /ai/messages. Provider and transport failures are
// not surfaced here; they come back as an assistant message so the transcript
// stays coherent. Only precondition failures produce an error status.
//
//	@Summary		Send a chat message to the configured AI provider
//	@Tags			ai
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SendMessageRequest	true	"Message and target thread"
//	@Success		200		{object}	models.AIMessage
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/ai/messages [post]
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	reply, err := h.chat.Send(r.Context(), req.NoteID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrEmptyMessage):
			writeError(w, http.StatusBadRequest, "message content is empty")
		case errors.Is(err, apperr.ErrMissingAPIKey):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, apperr.ErrNotFound):
			writeError(w, http.StatusNotFound, "not found")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// ClearMessages handles DELETE /ai/messages. With a noteId query parameter it
// clears that note's thread, otherwise the global thread.
func (h *Handler) ClearMessages(w http.ResponseWriter, r *http.Request) {
	noteID := r.URL.Query().Get("noteId")
	if noteID == "" {
		h.store.ClearGlobalAIMessages()
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := h.store.ClearAIMessages(noteID); err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetQuickActions handles GET /ai/quick-actions.
func (h *Handler) GetQuickActions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ai.QuickActions())
}

// ExportState handles GET /export. The response is the portable snapshot
// document served as a download with the dated backup filename.
//
//	@Summary		Download the full state as a backup document
//	@Tags			backup
//	@Produce		json
//	@Success		200	{object}	models.Snapshot
//	@Security		BearerAuth
//	@Router			/export [get]
func (h *Handler) ExportState(w http.ResponseWriter, _ *http.Request) {
	snap := h.store.Snapshot()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", backup.Filename(time.Now())))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ExportNote handles GET /notes/{id}/export. The format query parameter picks
// Markdown ("md", the default) or plain text ("txt"); the download filename is
// the sanitized note title.
//
//	@Summary		Download a single note as Markdown or plain text
//	@Tags			backup
//	@Produce		plain
//	@Param			id		path	string	true	"Note id"
//	@Param			format	query	string	false	"md or txt"	default(md)
//	@Success		200
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/export [get]
func (h *Handler) ExportNote(w http.ResponseWriter, r *http.Request) {
	note, found := h.store.Note(chi.URLParam(r, "id"))
	if !found {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	format := backup.FormatMarkdown
	if q := r.URL.Query().Get("format"); q != "" {
		format = backup.NoteFormat(q)
	}
	content, err := backup.RenderNote(note, format)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unsupported format")
		return
	}
	contentType := "text/markdown; charset=utf-8"
	if format == backup.FormatText {
		contentType = "text/plain; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", backup.NoteFilename(note, format)))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(content))
}

// ImportState handles POST /import. The body is a backup document; it either
// replaces the full state or is rejected whole.
//
//	@Summary		Replace the full state from a backup document
//	@Tags			backup
//	@Accept			json
//	@Success		204
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/import [post]
func (h *Handler) ImportState(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 32<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	snap, err := backup.Parse(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.store.Import(snap)
	w.WriteHeader(http.StatusNoContent)
}

// ListBackups handles GET /backups. Returns 404 when no backup directory is
// configured.
func (h *Handler) ListBackups(w http.ResponseWriter, _ *http.Request) {
	if h.backups == nil {
		writeError(w, http.StatusNotFound, "backups are not configured")
		return
	}
	files := h.backups.List()
	if files == nil {
		files = []string{}
	}
	writeJSON(w, http.StatusOK, BackupListResponse{Backups: files})
}

// CreateBackup handles POST /backups. Writes a dated backup file into the
// configured backup directory.
func (h *Handler) CreateBackup(w http.ResponseWriter, _ *http.Request) {
	if h.backupDir == "" {
		writeError(w, http.StatusNotFound, "backups are not configured")
		return
	}
	path, err := backup.Export(h.store.Snapshot(), h.backupDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "backup write failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"file": filepath.Base(path)})
}
