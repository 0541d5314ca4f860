package ports

import "context"

// ScoringOracle is the engine's view of the external AI text-generation
// service used for advisory scoring. A single stateless completion call with
// no guaranteed determinism and no guaranteed valid-JSON output; retries and
// timeouts are the caller's responsibility.
// Implementations handle provider-specific details like authentication,
// request formatting, and response parsing.
type ScoringOracle interface {
	// Generate sends a prompt to the oracle and returns the raw generated
	// text. The options map carries provider-specific settings without
	// widening the interface. Common options:
	//   - "temperature": float64
	//   - "max_tokens": int
	//   - "model": string
	Generate(ctx context.Context, prompt string, options map[string]any) (string, error)

	// EstimateTokens approximates the token count of the given text for
	// cost estimation before a call is made.
	EstimateTokens(text string) (int, error)

	// GetModel returns the model identifier behind this oracle,
	// for logging and diagnostics.
	GetModel() string
}
