package llm

import (
	"context"
	"sync"
)

// MockClient is a mock implementation of Client for testing.
type MockClient struct {
	GenerateResponseFunc func(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error)
	GetModelFunc         func() string

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a single GenerateResponse invocation.
type MockCall struct {
	Prompt        string
	SystemMessage string
	Temperature   float64
}

var _ Client = (*MockClient)(nil)

// GenerateResponse calls the mock function if set, otherwise returns empty.
func (m *MockClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Prompt: prompt, SystemMessage: systemMessage, Temperature: temperature})
	m.mu.Unlock()

	if m.GenerateResponseFunc != nil {
		return m.GenerateResponseFunc(ctx, prompt, systemMessage, temperature)
	}
	return "", nil
}

// GetModel calls the mock function if set, otherwise returns a default.
func (m *MockClient) GetModel() string {
	if m.GetModelFunc != nil {
		return m.GetModelFunc()
	}
	return "mock-model"
}

// Calls returns a copy of the recorded invocations.
func (m *MockClient) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of GenerateResponse invocations.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
