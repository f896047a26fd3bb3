package backup

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/starford/notemaster/internal/models"
)

// NoteFormat selects the single-note export format.
type NoteFormat string

const (
	// FormatMarkdown exports the raw note content.
	FormatMarkdown NoteFormat = "md"
	// FormatText exports the content with Markdown markup stripped.
	FormatText NoteFormat = "txt"
)

var unsafeFilenameChars = regexp.MustCompile(`[\\/:*?"<>|]`)

// RenderNote returns the note content in the given format: the raw Markdown,
// or plain text with the markup stripped.
func RenderNote(note models.Note, format NoteFormat) (string, error) {
	switch format {
	case FormatMarkdown:
		return note.Content, nil
	case FormatText:
		return StripMarkdown(note.Content), nil
	default:
		return "", fmt.Errorf("backup: unsupported note format %q", format)
	}
}

// NoteFilename builds the download filename for a note: the sanitized title
// plus the format extension.
func NoteFilename(note models.Note, format NoteFormat) string {
	name := unsafeFilenameChars.ReplaceAllString(note.Title, "_")
	if name == "" {
		name = "未命名笔记"
	}
	return fmt.Sprintf("%s.%s", name, format)
}

// ExportNote writes a single note into dir as Markdown or plain text and
// returns the path.
func ExportNote(note models.Note, format NoteFormat, dir string) (string, error) {
	content, err := RenderNote(note, format)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, NoteFilename(note, format))
	if err := writeAtomic(path, []byte(content)); err != nil {
		return "", err
	}
	return path, nil
}

var (
	reCodeBlock  = regexp.MustCompile("(?s)```.*?```")
	reInlineCode = regexp.MustCompile("`[^`]+`")
	reHeading    = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	reBoldStar   = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	reBoldUnder  = regexp.MustCompile(`__([^_]+)__`)
	reItalicStar = regexp.MustCompile(`\*([^*]+)\*`)
	reItalicUnd  = regexp.MustCompile(`_([^_]+)_`)
	reStrike     = regexp.MustCompile(`~~([^~]+)~~`)
	reLink       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	reImage      = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	reQuote      = regexp.MustCompile(`(?m)^>\s+`)
	reBullet     = regexp.MustCompile(`(?m)^[-*+]\s+`)
	reOrdered    = regexp.MustCompile(`(?m)^\d+\.\s+`)
	reHRule      = regexp.MustCompile(`(?m)^(-{3,}|\*{3,}|_{3,})\s*$`)
	reBlankRuns  = regexp.MustCompile(`\n{3,}`)
)

// StripMarkdown converts marked-up note content to plain text. Images are
// dropped; links keep their display text.
func StripMarkdown(text string) string {
	out := reCodeBlock.ReplaceAllString(text, "")
	out = reInlineCode.ReplaceAllString(out, "")
	out = reHeading.ReplaceAllString(out, "")
	out = reBoldStar.ReplaceAllString(out, "$1")
	out = reBoldUnder.ReplaceAllString(out, "$1")
	out = reItalicStar.ReplaceAllString(out, "$1")
	out = reItalicUnd.ReplaceAllString(out, "$1")
	out = reStrike.ReplaceAllString(out, "$1")
	out = reImage.ReplaceAllString(out, "")
	out = reLink.ReplaceAllString(out, "$1")
	out = reQuote.ReplaceAllString(out, "")
	out = reBullet.ReplaceAllString(out, "")
	out = reOrdered.ReplaceAllString(out, "")
	out = reHRule.ReplaceAllString(out, "")
	out = reBlankRuns.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
