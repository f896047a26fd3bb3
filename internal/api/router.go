package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notemaster/internal/ai"
	"github.com/starford/notemaster/internal/backup"
	"github.com/starford/notemaster/internal/store"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// backups and backupDir may be zero when no backup directory is configured.
func NewRouter(st *store.Store, chat *ai.Chat, backups *backup.Watcher, backupDir string, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(st, chat, backups, backupDir)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// State views.
	r.Get("/state", h.GetState)
	r.Get("/tree", h.GetTree)

	// Folders CRUD.
	r.Post("/folders", h.CreateFolder)
	r.Patch("/folders/{id}", h.UpdateFolder)
	r.Delete("/folders/{id}", h.DeleteFolder)
	r.Post("/folders/{id}/toggle", h.ToggleFolder)

	// Notes CRUD.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Patch("/notes/{id}", h.UpdateNote)
	r.Delete("/notes/{id}", h.DeleteNote)
	r.Post("/notes/{id}/favorite", h.ToggleFavorite)
	r.Post("/notes/{id}/move", h.MoveNote)
	r.Get("/notes/{id}/export", h.ExportNote)

	// Selection and settings.
	r.Post("/selection", h.SetSelection)
	r.Get("/config", h.GetConfig)
	r.Patch("/config", h.UpdateConfig)

	// AI chat.
	r.Post("/ai/messages", h.SendMessage)
	r.Delete("/ai/messages", h.ClearMessages)
	r.Get("/ai/quick-actions", h.GetQuickActions)
	r.Post("/ai/panel/toggle", h.ToggleAIPanel)
	r.Put("/ai/panel/expanded", h.SetAIPanelExpanded)

	// Import and export.
	r.Get("/export", h.ExportState)
	r.Post("/import", h.ImportState)
	r.Get("/backups", h.ListBackups)
	r.Post("/backups", h.CreateBackup)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
