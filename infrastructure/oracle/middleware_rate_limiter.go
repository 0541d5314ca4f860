package oracle

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// rateLimitedOracle paces requests with a token bucket so the engine stays
// inside the provider's rate limits.
type rateLimitedOracle struct {
	next    CoreOracle
	limiter *rate.Limiter
}

// RateLimitMiddleware creates middleware that enforces a requests-per-second
// limit with the given burst allowance. The limiter is shared by every
// request passing through this middleware instance.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, burst)

	return func(next CoreOracle) CoreOracle {
		return &rateLimitedOracle{next: next, limiter: limiter}
	}
}

// DoRequest blocks until the limiter grants a token, then forwards the
// request.
func (r *rateLimitedOracle) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", 0, 0, fmt.Errorf("rate limit: %w", err)
	}
	return r.next.DoRequest(ctx, prompt, opts)
}

// GetModel returns the model name from the wrapped implementation.
func (r *rateLimitedOracle) GetModel() string { return r.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (r *rateLimitedOracle) SetModel(m string) { r.next.SetModel(m) }
