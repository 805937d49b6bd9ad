package llm

import (
	"context"
	"sync"
)

// MockClient is a scripted client for tests and development. Replies are
// consumed in order; when the script runs out the last reply repeats.
type MockClient struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   []MockCall
}

// MockCall records one Complete invocation.
type MockCall struct {
	System string
	Prompt string
}

var _ Client = (*MockClient)(nil)

// NewMockClient creates a mock that replays the given replies.
func NewMockClient(replies ...string) *MockClient {
	return &MockClient{replies: replies}
}

// FailWith makes every call return err.
func (m *MockClient) FailWith(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

func (m *MockClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockCall{System: system, Prompt: prompt})
	if m.err != nil {
		return "", m.err
	}
	if len(m.replies) == 0 {
		return "", nil
	}
	reply := m.replies[0]
	if len(m.replies) > 1 {
		m.replies = m.replies[1:]
	}
	return reply, nil
}

// Calls returns a copy of the recorded invocations.
func (m *MockClient) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}
