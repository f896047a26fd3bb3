// Package models defines the domain types for NoteMaster.
//
// JSON field names are camelCase and timestamps are Unix milliseconds: this is
// the on-disk persistence format and the backup file format, so the tags here
// are an external contract, not an implementation detail.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Theme values for Settings.Theme.
const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// AI provider identifiers for Settings.AIProvider.
const (
	ProviderMiniMax = "minimax"
	ProviderKimi    = "kimi"
	ProviderGLM     = "glm"
)

// Message roles. System prompts are synthesized per request and never stored,
// so only user and assistant appear in persisted threads.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Folder is a node in the folder forest. ParentID is empty for roots; the
// parent graph is acyclic (no folder-move operation exists that could break it).
type Folder struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ParentID   string `json:"parentId"`
	IsExpanded bool   `json:"isExpanded"`
	CreatedAt  int64  `json:"createdAt"`
	UpdatedAt  int64  `json:"updatedAt"`
}

// Note is a rich-text note. Content is an opaque marked-up string owned by the
// editing surface; the core never parses it. AIMessages is the note's private
// chat thread, insertion-ordered.
type Note struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Content    string      `json:"content"`
	FolderID   string      `json:"folderId"`
	IsFavorite bool        `json:"isFavorite"`
	Tags       []string    `json:"tags"`
	AIMessages []AIMessage `json:"aiMessages"`
	CreatedAt  int64       `json:"createdAt"`
	UpdatedAt  int64       `json:"updatedAt"`
}

// AIMessage is one turn in a chat thread. Timestamp is assigned at append time
// and is monotonic non-decreasing within a thread; insertion order is the
// canonical order.
type AIMessage struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// Settings is the user-facing configuration entity (distinct from the
// application config in internal). A single API key applies to whichever
// provider is currently selected.
type Settings struct {
	Theme            string `json:"theme"`
	FontSize         int    `json:"fontSize"`
	AutoSaveInterval int    `json:"autoSaveInterval"`
	AIProvider       string `json:"aiProvider"`
	AIAPIKey         string `json:"aiApiKey"`
}

// Snapshot is the durable subset of store state: what survives restarts and
// what a backup file contains. Selection state and panel flags are transient
// and deliberately absent.
type Snapshot struct {
	Folders          []Folder    `json:"folders"`
	Notes            []Note      `json:"notes"`
	Config           Settings    `json:"config"`
	GlobalAIMessages []AIMessage `json:"globalAIMessages"`
}

// NewID returns a fresh collision-resistant entity identifier.
func NewID() string {
	return uuid.NewString()
}

// Now returns the current time in Unix milliseconds.
func Now() int64 {
	return time.Now().UnixMilli()
}

// DefaultSettings returns the settings applied on first run.
func DefaultSettings() Settings {
	return Settings{
		Theme:            ThemeLight,
		FontSize:         15,
		AutoSaveInterval: 3000,
		AIProvider:       ProviderMiniMax,
	}
}

// cloneSlice copies a slice preserving nilness, so that a cloned snapshot is
// deep-equal to its source even for empty-but-non-nil collections.
func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// Clone returns a deep copy of the note, including its chat thread.
func (n Note) Clone() Note {
	c := n
	c.Tags = cloneSlice(n.Tags)
	c.AIMessages = cloneSlice(n.AIMessages)
	return c
}

// Clone returns a deep copy of the snapshot safe for independent mutation.
func (s Snapshot) Clone() Snapshot {
	c := Snapshot{
		Folders:          cloneSlice(s.Folders),
		Notes:            cloneSlice(s.Notes),
		Config:           s.Config,
		GlobalAIMessages: cloneSlice(s.GlobalAIMessages),
	}
	for i := range c.Notes {
		c.Notes[i] = c.Notes[i].Clone()
	}
	return c
}
