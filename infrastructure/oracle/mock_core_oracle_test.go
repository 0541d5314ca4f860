package oracle

import (
	"context"
	"sync"
	"time"
)

// mockCore is an in-package CoreOracle test double with a scripted outcome
// and an optional artificial delay for timeout tests.
type mockCore struct {
	BaseProvider

	mu        sync.Mutex
	response  string
	tokensIn  int
	tokensOut int
	err       error
	delay     time.Duration

	calls   int
	prompts []string
	opts    []map[string]any
}

func newMockCore(model, response string) *mockCore {
	m := &mockCore{response: response, tokensIn: 10, tokensOut: 20}
	m.SetModel(model)
	return m
}

func (m *mockCore) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	m.mu.Lock()
	m.calls++
	m.prompts = append(m.prompts, prompt)
	m.opts = append(m.opts, opts)
	delay, err := m.delay, m.err
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return "", 0, 0, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return "", 0, 0, err
	}
	if ctx.Err() != nil {
		return "", 0, 0, ctx.Err()
	}
	return m.response, m.tokensIn, m.tokensOut, nil
}

func (m *mockCore) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
