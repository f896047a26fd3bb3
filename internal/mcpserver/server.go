// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes NoteMaster tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notemaster/internal/store"
)

// Server wraps the MCP server with NoteMaster tools.
type Server struct {
	mcp   *server.MCPServer
	store *store.Store
}

// New creates a new MCP server with all NoteMaster tools registered.
func New(st *store.Store) *Server {
	s := &Server{store: st}

	s.mcp = server.NewMCPServer(
		"NoteMaster",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_folders",
		mcp.WithDescription("List all folders as an indented tree with ids."),
	), s.listFolders)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes with id, title and folder. Optionally restricted to one folder."),
		mcp.WithString("folderId", mcp.Description("Optional folder id to list (empty for all notes)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note's full Markdown content by id."),
		mcp.WithString("noteId", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note inside a folder. Content is standard Markdown."),
		mcp.WithString("folderId", mcp.Required(), mcp.Description("Target folder id")),
		mcp.WithString("title", mcp.Description("Note title (defaults to 新建笔记)")),
		mcp.WithString("content", mcp.Description("Initial Markdown content")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Update a note's title and/or content. Omitted fields are unchanged."),
		mcp.WithString("noteId", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("content", mcp.Description("New Markdown content")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("move_note",
		mcp.WithDescription("Move a note to another folder."),
		mcp.WithString("noteId", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("folderId", mcp.Required(), mcp.Description("Target folder id")),
	), s.moveNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note by id."),
		mcp.WithString("noteId", mcp.Required(), mcp.Description("Note id")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("get_backup_contract",
		mcp.WithDescription("Returns the canonical backup document format. "+
			"Call this before generating documents for import."),
	), s.getBackupContract)

	// Resource: backup document contract.
	s.mcp.AddResource(
		mcp.NewResource("notemaster://state-format", "Backup Document Contract",
			mcp.WithResourceDescription("Canonical JSON backup document format accepted by import."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readStateFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listFolders(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var b strings.Builder
	var walk func(nodes []*store.TreeNode, depth int)
	walk = func(nodes []*store.TreeNode, depth int) {
		for _, n := range nodes {
			fmt.Fprintf(&b, "%s%s (%s)\n", strings.Repeat("  ", depth), n.Folder.Name, n.Folder.ID)
			walk(n.Children, depth+1)
		}
	}
	walk(s.store.Tree(), 0)
	if b.Len() == 0 {
		return mcp.NewToolResultText("no folders"), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folderID := ""
	if f, err := req.RequireString("folderId"); err == nil {
		folderID = f
	}

	notes := s.store.Notes()
	if folderID != "" {
		notes = s.store.NotesInFolder(folderID)
	}

	type row struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		FolderID string `json:"folderId"`
	}
	rows := make([]row, 0, len(notes))
	for _, n := range notes {
		rows = append(rows, row{ID: n.ID, Title: n.Title, FolderID: n.FolderID})
	}
	out, _ := json.MarshalIndent(rows, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("noteId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, ok := s.store.Note(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return mcp.NewToolResultText(note.Content), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folderID, err := req.RequireString("folderId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	title := ""
	if v, err := req.RequireString("title"); err == nil {
		title = v
	}
	note := s.store.AddNote(folderID, title)

	if content, err := req.RequireString("content"); err == nil && content != "" {
		_ = s.store.UpdateNote(note.ID, store.NoteUpdate{Content: &content})
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", note.ID)), nil
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("noteId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var upd store.NoteUpdate
	if v, err := req.RequireString("title"); err == nil {
		upd.Title = &v
	}
	if v, err := req.RequireString("content"); err == nil {
		upd.Content = &v
	}
	if err := s.store.UpdateNote(id, upd); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s", id)), nil
}

func (s *Server) moveNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("noteId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	folderID, err := req.RequireString("folderId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.store.MoveNote(id, folderID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("moved: %s", id)), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("noteId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.store.DeleteNote(id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) getBackupContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(BackupFormatContract), nil
}

func (s *Server) readStateFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "notemaster://state-format",
			MIMEType: "text/markdown",
			Text:     BackupFormatContract,
		},
	}, nil
}
