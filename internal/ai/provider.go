// Package ai implements the chat routing policy on top of the store: whether
// a message belongs to a note's private thread or the global thread, how the
// outbound context window is assembled, and how provider replies and failures
// are folded back into the transcript.
package ai

import "github.com/starford/notemaster/internal/models"

// Provider describes one of the interchangeable chat-completion backends.
// They differ only in endpoint and model identifiers; MiniMax additionally
// takes no temperature parameter.
type Provider struct {
	ID             string
	DisplayName    string
	Endpoint       string
	Model          string
	Temperature    float64
	HasTemperature bool
}

var providers = map[string]Provider{
	models.ProviderMiniMax: {
		ID:          models.ProviderMiniMax,
		DisplayName: "MiniMax",
		Endpoint:    "https://api.minimax.chat/v1/text/chatcompletion_v2",
		Model:       "abab6.5s-chat",
	},
	models.ProviderKimi: {
		ID:             models.ProviderKimi,
		DisplayName:    "Kimi",
		Endpoint:       "https://api.moonshot.cn/v1/chat/completions",
		Model:          "moonshot-v1-8k",
		Temperature:    0.7,
		HasTemperature: true,
	},
	models.ProviderGLM: {
		ID:             models.ProviderGLM,
		DisplayName:    "GLM",
		Endpoint:       "https://open.bigmodel.cn/api/paas/v4/chat/completions",
		Model:          "glm-4-flash",
		Temperature:    0.7,
		HasTemperature: true,
	},
}

// ProviderByID looks up a provider by its settings identifier.
func ProviderByID(id string) (Provider, bool) {
	p, ok := providers[id]
	return p, ok
}

// QuickAction is a canned prompt the UI offers for the selected note.
type QuickAction struct {
	Label  string `json:"label"`
	Prompt string `json:"prompt"`
}

// quickActionContentLimit caps how much note content a quick action inlines.
const quickActionContentLimit = 2000

// QuickActions returns the built-in writing-assistant prompts.
func QuickActions() []QuickAction {
	return []QuickAction{
		{Label: "润色", Prompt: "请帮我润色以下内容，使语言更流畅优美："},
		{Label: "摘要", Prompt: "请为以下内容生成简洁的摘要："},
		{Label: "扩写", Prompt: "请帮我扩写以下内容，使其更丰富详细："},
		{Label: "翻译", Prompt: "请翻译以下内容为英文："},
	}
}

// Expand combines the action prompt with (clamped) note content into a
// ready-to-send message.
func (a QuickAction) Expand(noteContent string) string {
	runes := []rune(noteContent)
	if len(runes) > quickActionContentLimit {
		noteContent = string(runes[:quickActionContentLimit])
	}
	return a.Prompt + "\n\n" + noteContent
}
