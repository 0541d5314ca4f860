// Package testutils provides shared test doubles and fixtures for the
// evaluation engine's test suites.
package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/procurelane/evalengine/internal/ports"
)

// MockOracle implements ports.ScoringOracle with scripted responses for
// deterministic pipeline testing. Responses are consumed in call order,
// which matches the pipeline's fixed narrative-then-restatement sequence;
// an error scripted at a given call index simulates that call failing.
type MockOracle struct {
	mu sync.Mutex

	// model is the mock model identifier.
	model string
	// responses are returned one per Generate call, in order.
	responses []string
	// errs maps a zero-based call index to an injected failure.
	errs map[int]error
	// prompts records every prompt received, for assertions.
	prompts []string
	calls   int
}

// NewMockOracle creates a mock oracle that replays the given responses.
func NewMockOracle(model string, responses ...string) *MockOracle {
	return &MockOracle{
		model:     model,
		responses: responses,
		errs:      make(map[int]error),
	}
}

// FailCall injects an error for the zero-based call index. Call 0 is the
// narrative request, call 1 the restatement.
func (m *MockOracle) FailCall(index int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[index] = err
}

// Generate returns the next scripted response or injected error.
func (m *MockOracle) Generate(ctx context.Context, prompt string, options map[string]any) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	index := m.calls
	m.calls++
	m.prompts = append(m.prompts, prompt)

	if err, ok := m.errs[index]; ok {
		return "", err
	}
	if index >= len(m.responses) {
		return "", fmt.Errorf("mock oracle has no response scripted for call %d", index)
	}
	return m.responses[index], nil
}

// EstimateTokens approximates tokens at four characters per token, the
// usual rough figure for English text.
func (m *MockOracle) EstimateTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	tokens := len(text) / 4
	if tokens == 0 {
		tokens = 1
	}
	return tokens, nil
}

// GetModel returns the mock model identifier.
func (m *MockOracle) GetModel() string { return m.model }

// Calls reports how many Generate calls were made.
func (m *MockOracle) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Prompt returns the prompt received by the zero-based call index.
func (m *MockOracle) Prompt(index int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.prompts) {
		return ""
	}
	return m.prompts[index]
}

// Verify interface compliance at compile time.
var _ ports.ScoringOracle = (*MockOracle)(nil)
