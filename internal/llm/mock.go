package llm

import (
	"context"
	"sync"
)

// MockResult is a canned result for the MockProvider.
type MockResult struct {
	Text  string
	Usage Usage
	Err   error
}

// MockProvider is a deterministic Provider for tests. It serves canned
// results in FIFO order and records every prompt it receives.
type MockProvider struct {
	mu      sync.Mutex
	results []MockResult
	Prompts []Prompt
}

// NewMockProvider creates a MockProvider with the given canned results.
func NewMockProvider(results ...MockResult) *MockProvider {
	return &MockProvider{results: results}
}

// Complete returns the next canned result, or ErrUnavailable when the
// queue is empty.
func (m *MockProvider) Complete(_ context.Context, p Prompt) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Prompts = append(m.Prompts, p)

	if len(m.results) == 0 {
		return nil, &ErrUnavailable{}
	}
	res := m.results[0]
	m.results = m.results[1:]

	if res.Err != nil {
		return nil, res.Err
	}
	return &Result{Text: res.Text, Usage: res.Usage, Model: "mock"}, nil
}

// Model returns "mock".
func (m *MockProvider) Model() string { return "mock" }

// Enqueue appends a canned result to the queue.
func (m *MockProvider) Enqueue(res MockResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, res)
}

// CallCount returns the number of Complete calls made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}
