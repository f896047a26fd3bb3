package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/starford/notemaster/internal/apperr"
	"github.com/starford/notemaster/internal/models"
	"github.com/starford/notemaster/internal/store"
)

// System prompts are synthesized per request and never stored in a thread.
const (
	noteSystemPrompt   = "你是一个智能笔记助手，擅长帮助用户写作、润色文章、回答问题。请用中文回复。"
	globalSystemPrompt = "你是一个智能AI助手，擅长回答各种问题、帮助用户解决问题。请用中文回复。"
)

// historyWindow is how many trailing thread messages accompany each request.
const historyWindow = 10

// rawDumpLimit caps the diagnostic dump of an unrecognized response shape.
const rawDumpLimit = 200

// Chat routes messages between the user, the store's threads, and the
// provider transport.
type Chat struct {
	store     *store.Store
	transport Transport
	logger    *slog.Logger
}

// NewChat creates a chat router over the given store and transport.
func NewChat(st *store.Store, transport Transport, logger *slog.Logger) *Chat {
	return &Chat{store: st, transport: transport, logger: logger}
}

// Send processes one user message. noteID selects the thread mode: a non-empty
// id targets that note's private thread with the note-assistant prompt and the
// note content injected as context; an empty id targets the global thread.
//
// The user message is appended optimistically before the network round trip,
// and the thread target is captured here, so a reply that arrives after the
// user has navigated elsewhere still lands on the original thread. Every
// transport or provider failure is folded into the transcript as an assistant
// message; the already-appended user message is never removed.
//
// Errors are returned only for conditions that must not touch the thread:
// empty input, missing API key, unknown provider, or an unknown note id.
func (c *Chat) Send(ctx context.Context, noteID, text string) (models.AIMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.AIMessage{}, apperr.ErrEmptyMessage
	}

	cfg := c.store.Config()
	provider, ok := ProviderByID(cfg.AIProvider)
	if !ok {
		return models.AIMessage{}, fmt.Errorf("ai: unsupported provider %q", cfg.AIProvider)
	}
	if cfg.AIAPIKey == "" {
		return models.AIMessage{}, fmt.Errorf("%w: %s", apperr.ErrMissingAPIKey, provider.DisplayName)
	}

	// The thread is captured before the optimistic append: the window holds
	// prior turns only, and the new user text goes out exactly once, as the
	// final entry.
	noteMode := noteID != ""
	var noteContent string
	var thread []models.AIMessage
	if noteMode {
		note, found := c.store.Note(noteID)
		if !found {
			return models.AIMessage{}, apperr.ErrNotFound
		}
		noteContent = note.Content
		thread = note.AIMessages
	} else {
		thread = c.store.GlobalAIMessages()
	}

	// Optimistic append: the user turn is visible before the round trip.
	if noteMode {
		if _, err := c.store.AddAIMessage(noteID, models.RoleUser, text); err != nil {
			return models.AIMessage{}, err
		}
	} else {
		c.store.AddGlobalAIMessage(models.RoleUser, text)
	}

	messages := buildOutbound(thread, text, noteMode, noteContent)

	c.logger.Debug("ai: dispatching",
		slog.String("provider", provider.ID),
		slog.String("model", provider.Model),
		slog.Int("messages", len(messages)),
		slog.Bool("note_mode", noteMode))

	raw, err := c.transport.Complete(ctx, Request{
		Endpoint:       provider.Endpoint,
		APIKey:         cfg.AIAPIKey,
		Model:          provider.Model,
		Messages:       messages,
		Temperature:    provider.Temperature,
		HasTemperature: provider.HasTemperature,
	})

	var reply string
	if err != nil {
		c.logger.Warn("ai: transport failure", slog.String("error", err.Error()))
		reply = "请求失败: " + err.Error()
	} else {
		reply = interpretResponse(raw)
	}

	return c.appendAssistant(noteID, noteMode, reply)
}

// buildOutbound assembles the provider message list: one system turn, the
// trailing window of prior thread messages, and a final user turn carrying
// the note content as context when note mode is active. thread must not
// include the message being sent.
func buildOutbound(thread []models.AIMessage, userText string, noteMode bool, noteContent string) []Message {
	system := globalSystemPrompt
	if noteMode {
		system = noteSystemPrompt
	}

	window := thread
	if len(window) > historyWindow {
		window = window[len(window)-historyWindow:]
	}

	out := make([]Message, 0, len(window)+2)
	out = append(out, Message{Role: "system", Content: system})
	for _, m := range window {
		out = append(out, Message{Role: m.Role, Content: m.Content})
	}

	final := userText
	if noteMode && noteContent != "" {
		final = "当前笔记内容：\n" + noteContent + "\n\n用户问题：" + userText
	}
	return append(out, Message{Role: "user", Content: final})
}

// interpretResponse maps the three recognized response shapes to transcript
// text: an OpenAI-style success, a MiniMax base_resp error envelope, or a
// bare msg error field. Anything else becomes a truncated diagnostic dump.
func interpretResponse(raw []byte) string {
	if content := gjson.GetBytes(raw, "choices.0.message.content"); content.Exists() && content.String() != "" {
		return content.String()
	}
	if statusMsg := gjson.GetBytes(raw, "base_resp.status_msg"); statusMsg.Exists() && statusMsg.String() != "" {
		return "API 错误: " + statusMsg.String()
	}
	if msg := gjson.GetBytes(raw, "msg"); msg.Exists() && msg.String() != "" {
		return msg.String()
	}
	dump := string(raw)
	if runes := []rune(dump); len(runes) > rawDumpLimit {
		dump = string(runes[:rawDumpLimit])
	}
	return "抱歉，API 返回格式异常。请检查 API Key 是否正确。响应: " + dump
}

func (c *Chat) appendAssistant(noteID string, noteMode bool, content string) (models.AIMessage, error) {
	if noteMode {
		msg, err := c.store.AddAIMessage(noteID, models.RoleAssistant, content)
		if err != nil {
			// The note was deleted while the request was in flight; the reply
			// has nowhere to land.
			c.logger.Warn("ai: target note gone, dropping reply", slog.String("note_id", noteID))
			return models.AIMessage{}, err
		}
		return msg, nil
	}
	return c.store.AddGlobalAIMessage(models.RoleAssistant, content), nil
}
