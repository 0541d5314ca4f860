package oracle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequestOptions(t *testing.T) {
	t.Run("empty map yields defaults", func(t *testing.T) {
		options := ParseRequestOptions(nil, "default-model")

		assert.Equal(t, DefaultMaxTokens, options.MaxTokens)
		assert.Equal(t, "default-model", options.Model)
		assert.Nil(t, options.Temperature)
		assert.Nil(t, options.TopP)
		assert.Empty(t, options.System)
	})

	t.Run("standard keys are extracted", func(t *testing.T) {
		options := ParseRequestOptions(map[string]any{
			"max_tokens":  4096,
			"model":       "override-model",
			"temperature": 0.7,
			"top_p":       0.9,
			"system":      "be concise",
		}, "default-model")

		assert.Equal(t, 4096, options.MaxTokens)
		assert.Equal(t, "override-model", options.Model)
		require.NotNil(t, options.Temperature)
		assert.Equal(t, 0.7, *options.Temperature)
		require.NotNil(t, options.TopP)
		assert.Equal(t, 0.9, *options.TopP)
		assert.Equal(t, "be concise", options.System)
	})

	t.Run("invalid values fall back to defaults", func(t *testing.T) {
		options := ParseRequestOptions(map[string]any{
			"max_tokens":  -5,
			"temperature": 3.5,
			"top_p":       1.5,
		}, "default-model")

		assert.Equal(t, DefaultMaxTokens, options.MaxTokens)
		assert.Nil(t, options.Temperature, "an out-of-range temperature is ignored, not clamped")
		assert.Nil(t, options.TopP)
	})

	t.Run("unrecognized keys go to Extra", func(t *testing.T) {
		options := ParseRequestOptions(map[string]any{
			"temperature":     0.2,
			"safety_settings": "strict",
		}, "default-model")

		assert.Equal(t, "strict", options.Extra["safety_settings"])
		_, standardLeaked := options.Extra["temperature"]
		assert.False(t, standardLeaked)
	})
}

func TestValidateBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{"empty means provider default", "", false},
		{"https endpoint", "https://gateway.internal/v1", false},
		{"http endpoint", "http://localhost:8080", false},
		{"missing scheme", "gateway.internal/v1", true},
		{"unsupported scheme", "ftp://gateway.internal", true},
		{"scheme without host", "https://", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateBaseURL(tt.baseURL)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateTimeout(t *testing.T) {
	assert.Equal(t, time.Duration(0), ValidateTimeout(0))
	assert.Equal(t, time.Duration(0), ValidateTimeout(-time.Second))
	assert.Equal(t, MinTimeout, ValidateTimeout(time.Millisecond))
	assert.Equal(t, 30*time.Second, ValidateTimeout(30*time.Second))
	assert.Equal(t, MaxTimeout, ValidateTimeout(time.Hour))
}

func TestClampHelpers(t *testing.T) {
	assert.Equal(t, 0.0, ClampFloat64(-1, 0, 1))
	assert.Equal(t, 1.0, ClampFloat64(2, 0, 1))
	assert.Equal(t, 0.5, ClampFloat64(0.5, 0, 1))

	assert.Equal(t, 1, ClampInt(0, 1, 10))
	assert.Equal(t, 10, ClampInt(99, 1, 10))
	assert.Equal(t, 5, ClampInt(5, 1, 10))
}

func TestTokenCounter(t *testing.T) {
	tc := NewTokenCounter()

	assert.Equal(t, 0, tc.EstimateTokens(""))
	assert.Equal(t, 3, tc.EstimateTokens("twelve chars"))

	t.Run("prefers the provider-reported count", func(t *testing.T) {
		assert.Equal(t, 128, tc.GetTokenCount(128, "anything at all"))
		assert.Equal(t, 3, tc.GetTokenCount(0, "twelve chars"))
	})
}

func TestBaseProvider_ModelAccess(t *testing.T) {
	var b BaseProvider
	b.SetModel("model-a")
	assert.Equal(t, "model-a", b.GetModel())
	b.SetModel("model-b")
	assert.Equal(t, "model-b", b.GetModel())
}
