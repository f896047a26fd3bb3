// Package store implements the single authoritative state container for all
// NoteMaster application data: the folder forest, notes with their private AI
// threads, the global AI thread, user settings, and transient UI state.
//
// Consistency contract: every exported mutation leaves the store with no
// dangling references (deleting a folder removes its whole descendant closure
// and every note inside it; deleting the selected note clears the selection in
// the same mutation). Folders and notes are flat collections related only
// through ParentID/FolderID; tree shape is computed on demand, never cached.
package store

import (
	"sync"

	"github.com/starford/notemaster/internal/apperr"
	"github.com/starford/notemaster/internal/models"
)

// Listener receives a deep-copied snapshot of the durable subset after every
// successful mutation, in commit order. Listeners must not call back into the
// store and should return quickly; dispatch is serialized across mutations.
type Listener func(models.Snapshot)

// Store holds all application state. It is safe for concurrent use; the mutex
// serializes mutations so each one observes and produces a consistent state.
type Store struct {
	mu sync.Mutex

	// notifyMu serializes listener dispatch so snapshots reach listeners in
	// commit order. Always acquired while mu is still held, never the reverse.
	notifyMu sync.Mutex

	folders          []models.Folder
	notes            []models.Note
	config           models.Settings
	globalAIMessages []models.AIMessage

	// Transient UI state, excluded from the durable subset.
	selectedNoteID   string
	selectedFolderID string
	aiPanelOpen      bool
	aiPanelExpanded  bool

	now       func() int64
	newID     func() string
	listeners []Listener
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the millisecond clock (tests).
func WithClock(now func() int64) Option {
	return func(s *Store) { s.now = now }
}

// WithIDFunc overrides the id generator (tests).
func WithIDFunc(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// New creates an empty store with default settings.
func New(opts ...Option) *Store {
	s := &Store{
		config:          models.DefaultSettings(),
		now:             models.Now,
		newID:           models.NewID,
		aiPanelOpen:     true,
		aiPanelExpanded: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnMutation registers a listener called after every successful mutation.
func (s *Store) OnMutation(fn Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Seed replaces the durable subset with a previously persisted snapshot.
// Called once at startup before Initialize; does not notify listeners.
func (s *Store) Seed(snap models.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := snap.Clone()
	s.folders = c.Folders
	s.notes = c.Notes
	s.config = c.Config
	s.globalAIMessages = c.GlobalAIMessages
}

// Initialize populates the default folder and welcome note when both
// collections are empty, and selects them. Idempotent: a second call on a
// non-empty store is a no-op.
func (s *Store) Initialize() {
	s.mu.Lock()
	if len(s.folders) != 0 || len(s.notes) != 0 {
		s.mu.Unlock()
		return
	}
	now := s.now()
	folder := models.Folder{
		ID:         s.newID(),
		Name:       models.DefaultFolderName,
		IsExpanded: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	note := models.Note{
		ID:         s.newID(),
		Title:      models.WelcomeNoteTitle,
		Content:    models.WelcomeNoteContent,
		FolderID:   folder.ID,
		Tags:       []string{},
		AIMessages: []models.AIMessage{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.folders = append(s.folders, folder)
	s.notes = append(s.notes, note)
	s.selectedFolderID = folder.ID
	s.selectedNoteID = note.ID
	s.finish()
}

// finish builds the post-mutation snapshot, releases the lock, and notifies
// listeners. notifyMu is taken before mu is released, so two overlapping
// mutations cannot deliver their snapshots out of commit order. Callers must
// hold mu and must not use it afterwards.
func (s *Store) finish() {
	snap := s.snapshotLocked()
	listeners := s.listeners
	s.notifyMu.Lock()
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}
	s.notifyMu.Unlock()
}

func (s *Store) snapshotLocked() models.Snapshot {
	return models.Snapshot{
		Folders:          s.folders,
		Notes:            s.notes,
		Config:           s.config,
		GlobalAIMessages: s.globalAIMessages,
	}.Clone()
}

// AddFolder creates a folder under parentID ("" for root). The parent is not
// validated: an orphaned ParentID is tolerated and renders as a root in tree
// reconstruction.
func (s *Store) AddFolder(name, parentID string) models.Folder {
	s.mu.Lock()
	now := s.now()
	f := models.Folder{
		ID:         s.newID(),
		Name:       name,
		ParentID:   parentID,
		IsExpanded: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.folders = append(s.folders, f)
	s.finish()
	return f
}

// FolderUpdate is a partial folder mutation; nil fields are left unchanged.
type FolderUpdate struct {
	Name       *string
	ParentID   *string
	IsExpanded *bool
}

// UpdateFolder merges upd into the folder with the given id. Reparenting a
// folder under itself or any of its descendants returns ErrCyclicFolder and
// leaves the folder untouched; the parent graph stays acyclic.
func (s *Store) UpdateFolder(id string, upd FolderUpdate) error {
	s.mu.Lock()
	i := s.folderIndexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return apperr.ErrNotFound
	}
	if upd.ParentID != nil && *upd.ParentID != "" {
		if _, cyclic := s.descendantClosureLocked(id)[*upd.ParentID]; cyclic {
			s.mu.Unlock()
			return apperr.ErrCyclicFolder
		}
	}
	f := &s.folders[i]
	if upd.Name != nil {
		f.Name = *upd.Name
	}
	if upd.ParentID != nil {
		f.ParentID = *upd.ParentID
	}
	if upd.IsExpanded != nil {
		f.IsExpanded = *upd.IsExpanded
	}
	f.UpdatedAt = s.now()
	s.finish()
	return nil
}

// DeleteFolder removes the folder, its full descendant-folder closure, and
// every note contained in any folder of that closure, atomically. The closure
// is computed from a single consistent view before anything is removed. The
// selection is cleared when the selected note or folder is among the deleted.
func (s *Store) DeleteFolder(id string) error {
	s.mu.Lock()
	if s.folderIndexLocked(id) < 0 {
		s.mu.Unlock()
		return apperr.ErrNotFound
	}

	doomed := s.descendantClosureLocked(id)

	folders := s.folders[:0]
	for _, f := range s.folders {
		if _, gone := doomed[f.ID]; !gone {
			folders = append(folders, f)
		}
	}
	s.folders = folders

	notes := s.notes[:0]
	for _, n := range s.notes {
		if _, gone := doomed[n.FolderID]; gone {
			if n.ID == s.selectedNoteID {
				s.selectedNoteID = ""
			}
			continue
		}
		notes = append(notes, n)
	}
	s.notes = notes

	if _, gone := doomed[s.selectedFolderID]; gone {
		s.selectedFolderID = ""
	}
	s.finish()
	return nil
}

// descendantClosureLocked returns the set of root and all transitively
// reachable child folder ids. Terminates because the parent graph is acyclic.
func (s *Store) descendantClosureLocked(root string) map[string]struct{} {
	children := make(map[string][]string, len(s.folders))
	for _, f := range s.folders {
		children[f.ParentID] = append(children[f.ParentID], f.ID)
	}
	closure := map[string]struct{}{root: {}}
	queue := []string{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range children[cur] {
			if _, seen := closure[child]; !seen {
				closure[child] = struct{}{}
				queue = append(queue, child)
			}
		}
	}
	return closure
}

// ToggleFolderExpanded flips the expansion flag of one folder.
func (s *Store) ToggleFolderExpanded(id string) error {
	s.mu.Lock()
	i := s.folderIndexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return apperr.ErrNotFound
	}
	s.folders[i].IsExpanded = !s.folders[i].IsExpanded
	s.finish()
	return nil
}

// AddNote creates an empty note in folderID and selects it. A blank title
// falls back to the default. The folder is not validated (same permissive
// policy as AddFolder).
func (s *Store) AddNote(folderID, title string) models.Note {
	if title == "" {
		title = models.DefaultNoteTitle
	}
	s.mu.Lock()
	now := s.now()
	n := models.Note{
		ID:         s.newID(),
		Title:      title,
		FolderID:   folderID,
		Tags:       []string{},
		AIMessages: []models.AIMessage{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.notes = append(s.notes, n)
	s.selectedNoteID = n.ID
	s.finish()
	return n.Clone()
}

// NoteUpdate is a partial note mutation; nil fields are left unchanged.
type NoteUpdate struct {
	Title      *string
	Content    *string
	FolderID   *string
	IsFavorite *bool
	Tags       *[]string
}

// UpdateNote merges upd into the note with the given id.
func (s *Store) UpdateNote(id string, upd NoteUpdate) error {
	s.mu.Lock()
	i := s.noteIndexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return apperr.ErrNotFound
	}
	n := &s.notes[i]
	if upd.Title != nil {
		n.Title = *upd.Title
	}
	if upd.Content != nil {
		n.Content = *upd.Content
	}
	if upd.FolderID != nil {
		n.FolderID = *upd.FolderID
	}
	if upd.IsFavorite != nil {
		n.IsFavorite = *upd.IsFavorite
	}
	if upd.Tags != nil {
		n.Tags = append([]string(nil), *upd.Tags...)
	}
	n.UpdatedAt = s.now()
	s.finish()
	return nil
}

// DeleteNote removes one note, clearing the selection if it was selected.
func (s *Store) DeleteNote(id string) error {
	s.mu.Lock()
	i := s.noteIndexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return apperr.ErrNotFound
	}
	s.notes = append(s.notes[:i], s.notes[i+1:]...)
	if s.selectedNoteID == id {
		s.selectedNoteID = ""
	}
	s.finish()
	return nil
}

// SelectNote sets the selected note id ("" clears). Existence is not
// validated; the presentation layer only passes valid ids.
func (s *Store) SelectNote(id string) {
	s.mu.Lock()
	s.selectedNoteID = id
	s.finish()
}

// SelectFolder sets the selected folder id ("" clears).
func (s *Store) SelectFolder(id string) {
	s.mu.Lock()
	s.selectedFolderID = id
	s.finish()
}

// ToggleFavorite flips the favorite flag of one note.
func (s *Store) ToggleFavorite(id string) error {
	s.mu.Lock()
	i := s.noteIndexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return apperr.ErrNotFound
	}
	s.notes[i].IsFavorite = !s.notes[i].IsFavorite
	s.finish()
	return nil
}

// MoveNote reassigns a note to targetFolderID. The target folder is not
// validated (permissive policy).
func (s *Store) MoveNote(noteID, targetFolderID string) error {
	s.mu.Lock()
	i := s.noteIndexLocked(noteID)
	if i < 0 {
		s.mu.Unlock()
		return apperr.ErrNotFound
	}
	s.notes[i].FolderID = targetFolderID
	s.notes[i].UpdatedAt = s.now()
	s.finish()
	return nil
}

// SettingsUpdate is a partial settings mutation; nil fields are left unchanged.
// Range checking (fontSize bounds etc.) is the caller's responsibility.
type SettingsUpdate struct {
	Theme            *string
	FontSize         *int
	AutoSaveInterval *int
	AIProvider       *string
	AIAPIKey         *string
}

// UpdateConfig shallow-merges upd into the settings and returns the result.
func (s *Store) UpdateConfig(upd SettingsUpdate) models.Settings {
	s.mu.Lock()
	if upd.Theme != nil {
		s.config.Theme = *upd.Theme
	}
	if upd.FontSize != nil {
		s.config.FontSize = *upd.FontSize
	}
	if upd.AutoSaveInterval != nil {
		s.config.AutoSaveInterval = *upd.AutoSaveInterval
	}
	if upd.AIProvider != nil {
		s.config.AIProvider = *upd.AIProvider
	}
	if upd.AIAPIKey != nil {
		s.config.AIAPIKey = *upd.AIAPIKey
	}
	cfg := s.config
	s.finish()
	return cfg
}

// AddAIMessage appends a message to a note's private thread and refreshes the
// note's UpdatedAt.
func (s *Store) AddAIMessage(noteID, role, content string) (models.AIMessage, error) {
	s.mu.Lock()
	i := s.noteIndexLocked(noteID)
	if i < 0 {
		s.mu.Unlock()
		return models.AIMessage{}, apperr.ErrNotFound
	}
	now := s.now()
	msg := models.AIMessage{ID: s.newID(), Role: role, Content: content, Timestamp: now}
	s.notes[i].AIMessages = append(s.notes[i].AIMessages, msg)
	s.notes[i].UpdatedAt = now
	s.finish()
	return msg, nil
}

// AddGlobalAIMessage appends a message to the global thread.
func (s *Store) AddGlobalAIMessage(role, content string) models.AIMessage {
	s.mu.Lock()
	msg := models.AIMessage{ID: s.newID(), Role: role, Content: content, Timestamp: s.now()}
	s.globalAIMessages = append(s.globalAIMessages, msg)
	s.finish()
	return msg
}

// ClearAIMessages empties a note's private thread.
func (s *Store) ClearAIMessages(noteID string) error {
	s.mu.Lock()
	i := s.noteIndexLocked(noteID)
	if i < 0 {
		s.mu.Unlock()
		return apperr.ErrNotFound
	}
	s.notes[i].AIMessages = []models.AIMessage{}
	s.notes[i].UpdatedAt = s.now()
	s.finish()
	return nil
}

// ClearGlobalAIMessages empties the global thread.
func (s *Store) ClearGlobalAIMessages() {
	s.mu.Lock()
	s.globalAIMessages = []models.AIMessage{}
	s.finish()
}

// ToggleAIPanel flips the panel-open flag and returns the new value.
func (s *Store) ToggleAIPanel() bool {
	s.mu.Lock()
	s.aiPanelOpen = !s.aiPanelOpen
	open := s.aiPanelOpen
	s.finish()
	return open
}

// SetAIPanelExpanded sets the panel-expanded flag.
func (s *Store) SetAIPanelExpanded(expanded bool) {
	s.mu.Lock()
	s.aiPanelExpanded = expanded
	s.finish()
}

// Import wholesale-replaces the durable subset with the supplied snapshot and
// clears both selections (import never merges; stale selection ids must not
// survive into the new state).
func (s *Store) Import(snap models.Snapshot) {
	s.mu.Lock()
	c := snap.Clone()
	s.folders = c.Folders
	s.notes = c.Notes
	s.config = c.Config
	s.globalAIMessages = c.GlobalAIMessages
	s.selectedNoteID = ""
	s.selectedFolderID = ""
	s.finish()
}

func (s *Store) folderIndexLocked(id string) int {
	for i := range s.folders {
		if s.folders[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) noteIndexLocked(id string) int {
	for i := range s.notes {
		if s.notes[i].ID == id {
			return i
		}
	}
	return -1
}
