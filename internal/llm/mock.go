package llm

import (
	"context"
	"sync"
)

// MockClient is a scripted Client for tests and offline development.
type MockClient struct {
	mu       sync.Mutex
	Reply    string
	Err      error
	Requests []*CompletionRequest
}

// NewMockClient creates a mock client that always returns reply.
func NewMockClient(reply string) *MockClient {
	return &MockClient{Reply: reply}
}

// Complete records the request and returns the scripted reply or error.
func (m *MockClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	err := m.Err
	reply := m.Reply
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return &CompletionResponse{Content: reply, Model: "mock"}, nil
}

// Name returns the provider name.
func (m *MockClient) Name() string {
	return "mock"
}
