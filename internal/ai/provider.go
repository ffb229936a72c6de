package ai

import (
	"errors"

	"github.com/thinkscotty/postmuse/internal/models"
)

// ErrMissingAPIKey is returned before any network call when no key resolves
// for a capability.
var ErrMissingAPIKey = errors.New("missing API key")

// SettingsResolver is a minimal interface so the ai package does not import prefs.
type SettingsResolver interface {
	Endpoint(c models.Capability) string
	Model(c models.Capability) string
	UseGlobalAPIKey() bool
}

// KeyResolver returns the API key for a capability, "" if none.
type KeyResolver interface {
	APIKey(c models.Capability, useGlobal bool) (string, error)
}

// ChatRequest is a provider-agnostic request.
type ChatRequest struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// ChatResponse is a provider-agnostic response. NoChoices is set when the
// endpoint answered successfully but returned an empty choices array.
type ChatResponse struct {
	Content    string
	TokensUsed int
	Model      string
	NoChoices  bool
}

// Message represents a single message in a chat conversation.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
	Images  [][]byte // sent as inline data URLs after Content
}

func System(content string) Message { return Message{Role: "system", Content: content} }
func User(content string) Message   { return Message{Role: "user", Content: content} }
