// Package llm provides LLM client interfaces and implementations.
package llm

import (
	"context"

	"github.com/relaylabs/chatrelay/internal/model"
)

// Message roles in the provider wire format.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Params holds the fixed sampling configuration for completions. These are
// deployment constants loaded once at startup, never chosen per request.
type Params struct {
	Model            string
	Temperature      float32
	TopP             float32
	PresencePenalty  float32
	FrequencyPenalty float32
	MaxTokens        int
}

// CompletionRequest represents a single completion request.
type CompletionRequest struct {
	// Directive is the system directive, always first in the prompt.
	Directive string
	// History holds prior exchanges, replayed in original order.
	History []model.Turn
	// Message is the new user message, always last.
	Message string
}

// ChatMessage represents a chat message for the provider wire format.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content   string
	Model     string
	TokensIn  int
	TokensOut int
	LatencyMs int64
}

// Client is the interface for LLM providers.
type Client interface {
	// Complete sends a single completion attempt and returns the reply
	// with surrounding whitespace trimmed. There is no retry; failures
	// come back as *Error with a classification (see errors.go).
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string
}

// BuildMessages assembles the ordered prompt: the system directive first,
// then each historical turn as a user entry followed by an assistant entry,
// then the new message. The relative order must be preserved exactly; the
// remote model is sensitive to it.
func BuildMessages(req *CompletionRequest) []ChatMessage {
	messages := make([]ChatMessage, 0, 2*len(req.History)+2)
	messages = append(messages, ChatMessage{Role: RoleSystem, Content: req.Directive})
	for _, turn := range req.History {
		messages = append(messages, ChatMessage{Role: RoleUser, Content: turn.User})
		messages = append(messages, ChatMessage{Role: RoleAssistant, Content: turn.Assistant})
	}
	messages = append(messages, ChatMessage{Role: RoleUser, Content: req.Message})
	return messages
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// NewClient creates a new LLM client based on provider.
func NewClient(provider Provider, apiKey, baseURL string, params Params) Client {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropicClient(apiKey, params)
	default:
		return NewOpenAIClient(apiKey, baseURL, params)
	}
}
