package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient is the Anthropic LLM client.
type AnthropicClient struct {
	client *anthropic.Client
	apiKey string
	params Params
}

// NewAnthropicClient creates a new Anthropic client. Credential problems
// surface from Complete as configuration failures, not here.
func NewAnthropicClient(apiKey string, params Params) *AnthropicClient {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	return &AnthropicClient{
		client: client,
		apiKey: apiKey,
		params: params,
	}
}

// Name returns the provider name.
func (c *AnthropicClient) Name() string {
	return "anthropic"
}

// Complete sends a completion request. The system directive maps to the
// Messages API system field; presence and frequency penalties have no
// Anthropic equivalent and are not sent.
func (c *AnthropicClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	if err := validateKey(c.apiKey); err != nil {
		return nil, err
	}

	// Convert turns to Anthropic format, original order
	messages := make([]anthropic.MessageParam, 0, 2*len(req.History)+1)
	for _, turn := range req.History {
		messages = append(messages,
			messageParam(anthropic.MessageParamRoleUser, turn.User),
			messageParam(anthropic.MessageParamRoleAssistant, turn.Assistant),
		)
	}
	messages = append(messages, messageParam(anthropic.MessageParamRoleUser, req.Message))

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.F(c.params.Model),
		MaxTokens: anthropic.F(int64(c.params.MaxTokens)),
		System: anthropic.F([]anthropic.TextBlockParam{
			{
				Type: anthropic.F(anthropic.TextBlockParamTypeText),
				Text: anthropic.F(req.Directive),
			},
		}),
		Messages:    anthropic.F(messages),
		Temperature: anthropic.F(float64(c.params.Temperature)),
		TopP:        anthropic.F(float64(c.params.TopP)),
	})
	if err != nil {
		return nil, classifyAnthropic(err)
	}

	// Extract content
	var content string
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			content += block.Text
		}
	}

	return &CompletionResponse{
		Content:   strings.TrimSpace(content),
		Model:     resp.Model,
		TokensIn:  int(resp.Usage.InputTokens),
		TokensOut: int(resp.Usage.OutputTokens),
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

func messageParam(role anthropic.MessageParamRole, text string) anthropic.MessageParam {
	return anthropic.MessageParam{
		Role: anthropic.F(role),
		Content: anthropic.F([]anthropic.ContentBlockParamUnion{
			anthropic.TextBlockParam{
				Type: anthropic.F(anthropic.TextBlockParamTypeText),
				Text: anthropic.F(text),
			},
		}),
	}
}

func classifyAnthropic(err error) *Error {
	if te, ok := classifyTransport(err); ok {
		return te
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &Error{Kind: KindAuth, cause: err}
		case http.StatusTooManyRequests:
			return &Error{Kind: KindThrottle, cause: err}
		}
	}

	return &Error{Kind: KindUnknown, cause: err}
}
