package api

import (
	"github.com/starford/notemaster/internal/models"
	"github.com/starford/notemaster/internal/store"
)

// CreateFolderRequest is the request body for creating a folder.
type CreateFolderRequest struct {
	Name     string `json:"name" example:"工作" validate:"required"`
	ParentID string `json:"parentId" example:""`
}

// UpdateFolderRequest is a partial folder update; absent fields are unchanged.
type UpdateFolderRequest struct {
	Name       *string `json:"name,omitempty"`
	ParentID   *string `json:"parentId,omitempty"`
	IsExpanded *bool   `json:"isExpanded,omitempty"`
}

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	FolderID string `json:"folderId" validate:"required"`
	Title    string `json:"title" example:"新建笔记"`
}

// UpdateNoteRequest is a partial note update; absent fields are unchanged.
type UpdateNoteRequest struct {
	Title      *string   `json:"title,omitempty"`
	Content    *string   `json:"content,omitempty"`
	FolderID   *string   `json:"folderId,omitempty"`
	IsFavorite *bool     `json:"isFavorite,omitempty"`
	Tags       *[]string `json:"tags,omitempty"`
}

// MoveNoteRequest is the request body for moving a note to another folder.
type MoveNoteRequest struct {
	TargetFolderID string `json:"targetFolderId" validate:"required"`
}

// SelectionRequest sets the selected note and/or folder; absent fields are
// unchanged and an explicit empty string clears.
type SelectionRequest struct {
	NoteID   *string `json:"noteId,omitempty"`
	FolderID *string `json:"folderId,omitempty"`
}

// UpdateConfigRequest is a partial settings update; absent fields are unchanged.
type UpdateConfigRequest struct {
	Theme            *string `json:"theme,omitempty"`
	FontSize         *int    `json:"fontSize,omitempty"`
	AutoSaveInterval *int    `json:"autoSaveInterval,omitempty"`
	AIProvider       *string `json:"aiProvider,omitempty"`
	AIAPIKey         *string `json:"aiApiKey,omitempty"`
}

// SendMessageRequest is the request body for an AI chat turn. An empty NoteID
// targets the global thread.
type SendMessageRequest struct {
	NoteID  string `json:"noteId"`
	Content string `json:"content" validate:"required"`
}

// StateResponse is the full store view returned by GET /state.
type StateResponse struct {
	models.Snapshot
	SelectedNoteID   string `json:"selectedNoteId"`
	SelectedFolderID string `json:"selectedFolderId"`
	AIPanelOpen      bool   `json:"isAIPanelOpen"`
	AIPanelExpanded  bool   `json:"isAIPanelExpanded"`
}

// TreeResponse wraps the on-demand folder tree.
type TreeResponse struct {
	Roots []*store.TreeNode `json:"roots"`
}

// BackupListResponse lists backup files available for restore, newest first.
type BackupListResponse struct {
	Backups []string `json:"backups"`
}
