package store

import "github.com/starford/notemaster/internal/models"

// Snapshot returns a deep copy of the durable subset.
func (s *Store) Snapshot() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Folders returns a copy of all folders in insertion order.
func (s *Store) Folders() []models.Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Folder(nil), s.folders...)
}

// Notes returns a deep copy of all notes in insertion order.
func (s *Store) Notes() []models.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Note, len(s.notes))
	for i, n := range s.notes {
		out[i] = n.Clone()
	}
	return out
}

// Note returns a deep copy of one note.
func (s *Store) Note(id string) (models.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.noteIndexLocked(id); i >= 0 {
		return s.notes[i].Clone(), true
	}
	return models.Note{}, false
}

// Folder returns one folder.
func (s *Store) Folder(id string) (models.Folder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.folderIndexLocked(id); i >= 0 {
		return s.folders[i], true
	}
	return models.Folder{}, false
}

// Config returns the current settings.
func (s *Store) Config() models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// GlobalAIMessages returns a copy of the global thread.
func (s *Store) GlobalAIMessages() []models.AIMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AIMessage(nil), s.globalAIMessages...)
}

// SelectedNoteID returns the selected note id ("" when none).
func (s *Store) SelectedNoteID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedNoteID
}

// SelectedFolderID returns the selected folder id ("" when none).
func (s *Store) SelectedFolderID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedFolderID
}

// AIPanelState returns the transient panel flags (open, expanded).
func (s *Store) AIPanelState() (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aiPanelOpen, s.aiPanelExpanded
}

// TreeNode is one folder in the on-demand tree view with its notes and
// child folders.
type TreeNode struct {
	Folder   models.Folder `json:"folder"`
	Notes    []models.Note `json:"notes"`
	Children []*TreeNode   `json:"children"`
}

// Tree reconstructs the folder forest from the flat collections in a single
// pass over each. Folders whose ParentID does not resolve are treated as
// roots rather than dropped.
func (s *Store) Tree() []*TreeNode {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes := make(map[string]*TreeNode, len(s.folders))
	order := make([]*TreeNode, 0, len(s.folders))
	for _, f := range s.folders {
		n := &TreeNode{Folder: f, Notes: []models.Note{}, Children: []*TreeNode{}}
		nodes[f.ID] = n
		order = append(order, n)
	}

	var roots []*TreeNode
	for _, n := range order {
		parent, ok := nodes[n.Folder.ParentID]
		if n.Folder.ParentID == "" || !ok {
			roots = append(roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
	}

	for _, note := range s.notes {
		if n, ok := nodes[note.FolderID]; ok {
			n.Notes = append(n.Notes, note.Clone())
		}
	}
	return roots
}

// NotesInFolder returns the notes directly inside one folder.
func (s *Store) NotesInFolder(folderID string) []models.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Note
	for _, n := range s.notes {
		if n.FolderID == folderID {
			out = append(out, n.Clone())
		}
	}
	return out
}

// FolderChildren returns the immediate child folders of parentID ("" for roots).
func (s *Store) FolderChildren(parentID string) []models.Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Folder
	for _, f := range s.folders {
		if f.ParentID == parentID {
			out = append(out, f)
		}
	}
	return out
}

// FavoriteNotes returns all notes flagged as favorites.
func (s *Store) FavoriteNotes() []models.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Note
	for _, n := range s.notes {
		if n.IsFavorite {
			out = append(out, n.Clone())
		}
	}
	return out
}
