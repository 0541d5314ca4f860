package oracle

import (
	"fmt"
	"net/url"
	"sync"
	"time"
)

// Valid ranges for common provider parameters, applied consistently across
// providers.
const (
	// DefaultMaxTokens bounds a response when the caller does not specify one.
	DefaultMaxTokens = 2048
	// MinTemperature and MaxTemperature bound the sampling temperature.
	// The upper bound is 2.0 to accommodate providers like Gemini.
	MinTemperature = 0.0
	MaxTemperature = 2.0
	// MinTopP and MaxTopP bound nucleus sampling.
	MinTopP = 0.0
	MaxTopP = 1.0
	// MinTimeout and MaxTimeout bound a per-request timeout.
	MinTimeout = 1 * time.Second
	MaxTimeout = 10 * time.Minute
)

// BaseProvider provides thread-safe model-name handling shared by all
// providers.
type BaseProvider struct {
	mu    sync.RWMutex
	model string
}

// GetModel returns the currently configured model name.
func (b *BaseProvider) GetModel() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.model
}

// SetModel updates the model name.
func (b *BaseProvider) SetModel(model string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.model = model
}

// RequestOptions is the standardized parameter set for a generation
// request, consolidating common settings across providers.
type RequestOptions struct {
	// MaxTokens bounds the generated response length.
	MaxTokens int
	// Model identifies the model to use for this request.
	Model string
	// Temperature controls output randomness; nil uses the provider default.
	Temperature *float64
	// TopP configures nucleus sampling; nil uses the provider default.
	TopP *float64
	// System carries an optional system prompt.
	System string
	// Extra holds provider-specific options outside the standard set.
	Extra map[string]any
}

// ParseRequestOptions extracts standardized parameters from an options map,
// falling back to defaults for missing or invalid entries. Unrecognized
// keys are collected into Extra.
func ParseRequestOptions(opts map[string]any, defaultModel string) RequestOptions {
	options := RequestOptions{
		MaxTokens: extractInt(opts, "max_tokens", DefaultMaxTokens, func(v int) bool { return v > 0 }),
		Model:     extractString(opts, "model", defaultModel),
		System:    extractString(opts, "system", ""),
		Extra:     make(map[string]any),
	}

	if temp := extractFloat(opts, "temperature", -1, isValidTemperature); temp != -1 {
		options.Temperature = &temp
	}
	if topP := extractFloat(opts, "top_p", -1, isValidTopP); topP != -1 {
		options.TopP = &topP
	}

	for k, v := range opts {
		switch k {
		case "max_tokens", "model", "system", "temperature", "top_p":
		default:
			options.Extra[k] = v
		}
	}
	return options
}

func extractInt(opts map[string]any, key string, defaultVal int, valid func(int) bool) int {
	v, ok := opts[key].(int)
	if !ok || (valid != nil && !valid(v)) {
		return defaultVal
	}
	return v
}

func extractString(opts map[string]any, key, defaultVal string) string {
	v, ok := opts[key].(string)
	if !ok || v == "" {
		return defaultVal
	}
	return v
}

func extractFloat(opts map[string]any, key string, defaultVal float64, valid func(float64) bool) float64 {
	v, ok := opts[key].(float64)
	if !ok || (valid != nil && !valid(v)) {
		return defaultVal
	}
	return v
}

func isValidTemperature(v float64) bool { return v >= MinTemperature && v <= MaxTemperature }

func isValidTopP(v float64) bool { return v >= MinTopP && v <= MaxTopP }

// ValidateBaseURL checks that an endpoint override is an http(s) URL with a
// host. An empty string is valid and means the provider default.
func ValidateBaseURL(baseURL string) (string, error) {
	if baseURL == "" {
		return "", nil
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("URL scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("URL must include a host")
	}
	return parsed.String(), nil
}

// ValidateTimeout clamps a timeout into [MinTimeout, MaxTimeout]. Zero or
// negative means no timeout and is returned as zero.
func ValidateTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return 0
	}
	if timeout < MinTimeout {
		return MinTimeout
	}
	if timeout > MaxTimeout {
		return MaxTimeout
	}
	return timeout
}

// ClampFloat64 restricts a value to the given range.
func ClampFloat64(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// ClampInt restricts a value to the given range.
func ClampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// TokenCounter estimates token counts when an exact tokenizer is not
// available for a model.
type TokenCounter struct {
	// CharactersPerToken is the assumed average characters per token.
	CharactersPerToken float64
}

// NewTokenCounter creates a TokenCounter with the usual English-text ratio.
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{CharactersPerToken: 4.0}
}

// EstimateTokens estimates the token count of text.
func (tc *TokenCounter) EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return int(float64(len(text)) / tc.CharactersPerToken)
}

// GetTokenCount prefers the provider-reported count, falling back to
// estimation when it is absent.
func (tc *TokenCounter) GetTokenCount(actualCount int, text string) int {
	if actualCount > 0 {
		return actualCount
	}
	return tc.EstimateTokens(text)
}
