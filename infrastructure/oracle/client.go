// Package oracle provides the scoring-oracle adapter over external AI
// providers, with middleware for rate limiting, timeouts, metrics, tracing,
// and logging.
//
// The package abstracts multiple providers (OpenAI, Anthropic, Google)
// behind ports.ScoringOracle while adding operational cross-cutting concerns
// through a middleware chain. The engine treats every call as a fresh,
// non-deterministic external request: there is deliberately no retry
// middleware here, because a failed review is surfaced to the operator for
// manual re-invocation rather than retried automatically.
//
// Basic usage:
//
//	client, err := oracle.NewClient("openai", oracle.ClientConfig{
//	    APIKey: os.Getenv("OPENAI_API_KEY"),
//	    Model:  "gpt-4o",
//	})
//	response, err := client.Generate(ctx, prompt, nil)
//
// With middleware:
//
//	client, err := oracle.NewClient("anthropic", oracle.ClientConfig{
//	    APIKey: os.Getenv("ANTHROPIC_API_KEY"),
//	    Model:  "claude-3-5-sonnet-20241022",
//	    Middleware: []oracle.Middleware{
//	        oracle.RateLimitMiddleware(10, 20),
//	        oracle.TimeoutMiddleware(60 * time.Second),
//	        oracle.MetricsMiddleware(collector),
//	    },
//	})
package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/procurelane/evalengine/internal/ports"
)

// CoreOracle is the minimal interface a provider must implement. The
// middleware system wraps any conforming implementation.
type CoreOracle interface {
	// DoRequest sends a prompt to the provider and returns the generated
	// text along with input and output token counts.
	DoRequest(ctx context.Context, prompt string, opts map[string]any) (response string, tokensIn, tokensOut int, err error)

	// GetModel returns the currently configured model name.
	GetModel() string

	// SetModel updates the model used for subsequent requests.
	SetModel(model string)
}

// TokenEstimator provides pluggable token estimation strategies for cost
// estimation before a request is made.
type TokenEstimator interface {
	EstimateTokens(text string) int
}

// ClientConfig holds all options for creating a scoring-oracle client.
type ClientConfig struct {
	// APIKey authenticates requests to the provider.
	APIKey string

	// Model specifies which model to use for requests.
	Model string

	// BaseURL overrides the provider's default endpoint. Empty uses the
	// default.
	BaseURL string

	// Timeout bounds individual provider requests. Zero means no timeout.
	Timeout time.Duration

	// TokenEstimator provides custom token counting. Nil uses a simple
	// character-based estimator.
	TokenEstimator TokenEstimator

	// Middleware is applied in the order given, first entry outermost.
	Middleware []Middleware
}

// Middleware wraps a CoreOracle to add cross-cutting behavior without
// touching provider logic.
type Middleware func(CoreOracle) CoreOracle

// Client implements ports.ScoringOracle over a provider wrapped in the
// configured middleware chain.
type Client struct {
	core      CoreOracle
	estimator TokenEstimator
}

// NewClient creates a scoring-oracle client for the named provider.
func NewClient(providerType string, config ClientConfig) (ports.ScoringOracle, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	if config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	factory, ok := providerFactories[providerType]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", providerType)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	// Apply middleware in reverse order so the first entry is outermost.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	estimator := config.TokenEstimator
	if estimator == nil {
		estimator = &SimpleTokenEstimator{}
	}

	return &Client{core: core, estimator: estimator}, nil
}

// Generate sends a prompt through the middleware chain and returns the raw
// generated text.
func (c *Client) Generate(ctx context.Context, prompt string, options map[string]any) (string, error) {
	response, _, _, err := c.core.DoRequest(ctx, prompt, options)
	return response, err
}

// EstimateTokens returns an approximate token count for the given text.
func (c *Client) EstimateTokens(text string) (int, error) {
	return c.estimator.EstimateTokens(text), nil
}

// GetModel returns the configured model name from the underlying provider.
func (c *Client) GetModel() string { return c.core.GetModel() }

// SimpleTokenEstimator approximates tokens at roughly four characters per
// token, a reasonable heuristic for English text.
type SimpleTokenEstimator struct{}

// EstimateTokens returns an approximate token count using the
// characters-per-token heuristic.
func (e *SimpleTokenEstimator) EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// ProviderFactory creates a CoreOracle implementation from configuration.
type ProviderFactory func(ClientConfig) (CoreOracle, error)

// providerFactories registers the built-in providers at init time and
// accepts custom providers through RegisterProviderFactory.
var providerFactories = map[string]ProviderFactory{}

// RegisterProviderFactory registers a custom provider factory under the
// given name.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	providerFactories[providerType] = factory
}

// Verify interface compliance at compile time.
var _ ports.ScoringOracle = (*Client)(nil)
