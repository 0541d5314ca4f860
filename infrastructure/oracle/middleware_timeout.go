package oracle

import (
	"context"
	"time"
)

// timeoutOracle enforces a per-request deadline so oracle calls cannot hang
// indefinitely.
type timeoutOracle struct {
	next    CoreOracle
	timeout time.Duration
}

// TimeoutMiddleware creates middleware that bounds each request with a
// deadline. Expiry surfaces as context.DeadlineExceeded, which the pipeline
// reports as an oracle failure.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next CoreOracle) CoreOracle {
		return &timeoutOracle{next: next, timeout: timeout}
	}
}

// DoRequest executes the request under a timeout context.
func (t *timeoutOracle) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.DoRequest(ctx, prompt, opts)
}

// GetModel returns the model name from the wrapped implementation.
func (t *timeoutOracle) GetModel() string { return t.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (t *timeoutOracle) SetModel(m string) { t.next.SetModel(m) }
