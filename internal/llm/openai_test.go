package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relaylabs/chatrelay/internal/llm"
	"github.com/relaylabs/chatrelay/internal/model"
)

var testParams = llm.Params{
	Model:            "deepseek-chat",
	Temperature:      1.5,
	TopP:             0.85,
	PresencePenalty:  -0.3,
	FrequencyPenalty: 0.4,
	MaxTokens:        1000,
}

// wireRequest mirrors the OpenAI chat-completion payload for inspection.
type wireRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"top_p"`
	PresencePenalty  float64 `json:"presence_penalty"`
	FrequencyPenalty float64 `json:"frequency_penalty"`
	MaxTokens        int     `json:"max_tokens"`
	Stream           bool    `json:"stream"`
}

func completionBody(content string) string {
	resp := map[string]any{
		"id":      "cmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "deepseek-chat",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 7, "total_tokens": 19},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func errorBody(message, errType string) string {
	data, _ := json.Marshal(map[string]any{
		"error": map[string]any{"message": message, "type": errType},
	})
	return string(data)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *llm.OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return llm.NewOpenAIClient("sk-test", srv.URL+"/v1", testParams)
}

func TestCompleteSendsOrderedPromptAndFixedSampling(t *testing.T) {
	var got wireRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody("hi")))
	})

	resp, err := client.Complete(context.Background(), &llm.CompletionRequest{
		Directive: "be brief",
		History: []model.Turn{
			{User: "q1", Assistant: "a1"},
			{User: "q2", Assistant: "a2"},
		},
		Message: "q3",
	})
	require.NoError(t, err)
	require.Equal(t, "hi", resp.Content)
	require.Equal(t, 12, resp.TokensIn)
	require.Equal(t, 7, resp.TokensOut)

	require.Equal(t, "deepseek-chat", got.Model)
	require.InDelta(t, 1.5, got.Temperature, 1e-6)
	require.InDelta(t, 0.85, got.TopP, 1e-6)
	require.InDelta(t, -0.3, got.PresencePenalty, 1e-6)
	require.InDelta(t, 0.4, got.FrequencyPenalty, 1e-6)
	require.Equal(t, 1000, got.MaxTokens)
	require.False(t, got.Stream)

	require.Len(t, got.Messages, 6)
	wantRoles := []string{"system", "user", "assistant", "user", "assistant", "user"}
	wantContent := []string{"be brief", "q1", "a1", "q2", "a2", "q3"}
	for i, msg := range got.Messages {
		require.Equal(t, wantRoles[i], msg.Role)
		require.Equal(t, wantContent[i], msg.Content)
	}
}

func TestCompleteTrimsReply(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody("  hello there \n")))
	})

	resp, err := client.Complete(context.Background(), &llm.CompletionRequest{Message: "hi"})
	require.NoError(t, err)
	require.Equal(t, "hello there", resp.Content)
}

func TestCompleteEmptyReplyPassesThrough(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody("")))
	})

	resp, err := client.Complete(context.Background(), &llm.CompletionRequest{Message: "hi"})
	require.NoError(t, err)
	require.Equal(t, "", resp.Content)
}

func TestCompleteClassifiesAuthFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(errorBody("invalid api key", "invalid_request_error")))
	})

	_, err := client.Complete(context.Background(), &llm.CompletionRequest{Message: "hi"})
	require.Error(t, err)
	require.Equal(t, llm.KindAuth, llm.KindOf(err))
}

func TestCompleteClassifiesThrottle(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(errorBody("rate limit exceeded", "rate_limit_error")))
	})

	_, err := client.Complete(context.Background(), &llm.CompletionRequest{Message: "hi"})
	require.Error(t, err)
	require.Equal(t, llm.KindThrottle, llm.KindOf(err))
}

func TestCompleteClassifiesServerErrorAsUnknown(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(errorBody("upstream exploded", "server_error")))
	})

	_, err := client.Complete(context.Background(), &llm.CompletionRequest{Message: "hi"})
	require.Error(t, err)
	require.Equal(t, llm.KindUnknown, llm.KindOf(err))
}

func TestCompleteClassifiesNetworkFailure(t *testing.T) {
	// Nothing listens on this port; the dial fails before any response.
	client := llm.NewOpenAIClient("sk-test", "http://127.0.0.1:1/v1", testParams)

	_, err := client.Complete(context.Background(), &llm.CompletionRequest{Message: "hi"})
	require.Error(t, err)
	require.Equal(t, llm.KindNetwork, llm.KindOf(err))
}

func TestMalformedKeyShortCircuits(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(completionBody("hi")))
	}))
	defer srv.Close()

	for _, key := range []string{"", "bogus", "api-key-without-prefix"} {
		client := llm.NewOpenAIClient(key, srv.URL+"/v1", testParams)
		_, err := client.Complete(context.Background(), &llm.CompletionRequest{Message: "hi"})
		require.Error(t, err)
		require.Equal(t, llm.KindConfiguration, llm.KindOf(err))
	}

	// Credential preflight happens locally, before any network call.
	require.Equal(t, int64(0), hits.Load())
}
