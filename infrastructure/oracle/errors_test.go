package oracle

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassifier_ClassifyHTTPError(t *testing.T) {
	classifier := &ErrorClassifier{Provider: "openai"}

	tests := []struct {
		name       string
		statusCode int
		wantType   ErrorType
	}{
		{"unauthorized", 401, ErrorTypeAuthentication},
		{"forbidden", 403, ErrorTypeAuthentication},
		{"rate limited", 429, ErrorTypeRateLimit},
		{"bad request", 400, ErrorTypeBadRequest},
		{"not found", 404, ErrorTypeNotFound},
		{"internal error", 500, ErrorTypeServerError},
		{"bad gateway", 502, ErrorTypeServerError},
		{"service unavailable", 503, ErrorTypeServerError},
		{"gateway timeout", 504, ErrorTypeServerError},
		{"other 4xx", 422, ErrorTypeBadRequest},
		{"other 5xx", 599, ErrorTypeServerError},
		{"unclassifiable", 302, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perr := classifier.ClassifyHTTPError(tt.statusCode, "detail", fmt.Errorf("upstream"))

			assert.Equal(t, tt.wantType, perr.Type)
			assert.Equal(t, "openai", perr.Provider)
			assert.Equal(t, tt.statusCode, perr.StatusCode)
		})
	}
}

func TestErrorClassifier_ClassifyContextError(t *testing.T) {
	classifier := &ErrorClassifier{Provider: "anthropic"}

	t.Run("deadline exceeded is a timeout", func(t *testing.T) {
		perr := classifier.ClassifyContextError(context.DeadlineExceeded)
		assert.Equal(t, ErrorTypeTimeout, perr.Type)
		assert.True(t, errors.Is(perr, context.DeadlineExceeded))
	})

	t.Run("cancellation is a network failure", func(t *testing.T) {
		perr := classifier.ClassifyContextError(context.Canceled)
		assert.Equal(t, ErrorTypeNetwork, perr.Type)
	})

	t.Run("anything else is unknown", func(t *testing.T) {
		perr := classifier.ClassifyContextError(fmt.Errorf("mystery"))
		assert.Equal(t, ErrorTypeUnknown, perr.Type)
	})
}

func TestProviderError_IsRetryable(t *testing.T) {
	retryable := []ErrorType{ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeNetwork, ErrorTypeTimeout}
	terminal := []ErrorType{ErrorTypeUnknown, ErrorTypeAuthentication, ErrorTypeBadRequest, ErrorTypeNotFound, ErrorTypeContentPolicy}

	for _, typ := range retryable {
		perr := &ProviderError{Type: typ}
		assert.True(t, perr.IsRetryable(), "type %d is transient", typ)
	}
	for _, typ := range terminal {
		perr := &ProviderError{Type: typ}
		assert.False(t, perr.IsRetryable(), "type %d needs operator attention, not a retry", typ)
	}
}

func TestProviderError_ErrorString(t *testing.T) {
	perr := NewProviderError("google", ErrorTypeRateLimit, 429, "quota exhausted", fmt.Errorf("upstream"))

	msg := perr.Error()

	assert.Contains(t, msg, "google error")
	assert.Contains(t, msg, "HTTP 429")
	assert.Contains(t, msg, "rate_limit")
	assert.Contains(t, msg, "quota exhausted")
	assert.Contains(t, msg, "upstream")
}

func TestProviderError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("socket closed")
	perr := NewProviderError("openai", ErrorTypeNetwork, 0, "", inner)

	require.ErrorIs(t, perr, inner)
}
