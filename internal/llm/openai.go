package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient talks to any provider speaking the OpenAI chat-completion
// wire protocol. The default deployment points it at DeepSeek.
type OpenAIClient struct {
	client *openai.Client
	apiKey string
	params Params
}

// NewOpenAIClient creates a client for an OpenAI-compatible endpoint. An
// empty or malformed key is accepted here; Complete reports it as a
// configuration failure without making a network call.
func NewOpenAIClient(apiKey, baseURL string, params Params) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		apiKey: apiKey,
		params: params,
	}
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Complete sends a completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	if err := validateKey(c.apiKey); err != nil {
		return nil, err
	}

	// Convert messages to OpenAI format
	msgs := BuildMessages(req)
	messages := make([]openai.ChatCompletionMessage, len(msgs))
	for i, msg := range msgs {
		messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:            c.params.Model,
		Messages:         messages,
		MaxTokens:        c.params.MaxTokens,
		Temperature:      c.params.Temperature,
		TopP:             c.params.TopP,
		PresencePenalty:  c.params.PresencePenalty,
		FrequencyPenalty: c.params.FrequencyPenalty,
		Stream:           false,
	})
	if err != nil {
		return nil, classifyOpenAI(err)
	}

	var content string
	if len(resp.Choices) > 0 {
		content = strings.TrimSpace(resp.Choices[0].Message.Content)
	}

	return &CompletionResponse{
		Content:   content,
		Model:     resp.Model,
		TokensIn:  resp.Usage.PromptTokens,
		TokensOut: resp.Usage.CompletionTokens,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

// validateKey is the local credential preflight. Provider keys are
// "sk-" prefixed; anything else never reaches the network.
func validateKey(key string) error {
	if key == "" || !strings.HasPrefix(key, "sk-") {
		return &Error{Kind: KindConfiguration, cause: errors.New("API key missing or malformed")}
	}
	return nil
}

func classifyOpenAI(err error) *Error {
	if te, ok := classifyTransport(err); ok {
		return te
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &Error{Kind: KindAuth, cause: err}
	case http.StatusTooManyRequests:
		return &Error{Kind: KindThrottle, cause: err}
	}

	return &Error{Kind: KindUnknown, cause: err}
}
