package application

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurelane/evalengine/internal/aireview"
)

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := LoadConfig(strings.NewReader(""))

	require.NoError(t, err)
	assert.False(t, config.Oracle.Enabled())
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "text", config.Logging.Format)
	assert.Equal(t, aireview.DefaultConfig(), config.Review)
}

func TestLoadConfig_FullDocument(t *testing.T) {
	doc := `
oracle:
  provider: openai
  model: gpt-4o-mini
  api_key: sk-test
  timeout_seconds: 60
  requests_per_second: 5
  burst: 10
review:
  temperature: 0.1
  max_tokens: 4096
  similarity_threshold: 0.85
logging:
  level: debug
  format: json
`
	config, err := LoadConfig(strings.NewReader(doc))

	require.NoError(t, err)
	assert.True(t, config.Oracle.Enabled())
	assert.Equal(t, "openai", config.Oracle.Provider)
	assert.Equal(t, "gpt-4o-mini", config.Oracle.Model)
	assert.Equal(t, 60, config.Oracle.TimeoutSeconds)
	assert.Equal(t, 0.1, config.Review.Temperature)
	assert.Equal(t, 4096, config.Review.MaxTokens)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadConfig_StrictDecodingRejectsUnknownFields(t *testing.T) {
	doc := `
oracle:
  provider: openai
  model: gpt-4o-mini
  temprature: 0.5
`
	_, err := LoadConfig(strings.NewReader(doc))

	require.Error(t, err, "a misspelled field fails loudly instead of being ignored")
	assert.Contains(t, err.Error(), "temprature")
}

func TestLoadConfig_ExpandsAPIKeyFromEnvironment(t *testing.T) {
	t.Setenv("TEST_ORACLE_KEY", "sk-from-env")

	doc := `
oracle:
  provider: anthropic
  model: claude-3-5-sonnet-20241022
  api_key: ${TEST_ORACLE_KEY}
`
	config, err := LoadConfig(strings.NewReader(doc))

	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", config.Oracle.APIKey)
}

func TestLoadConfig_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "unknown provider",
			doc:  "oracle:\n  provider: cohere\n  model: command-r\n",
		},
		{
			name: "provider without model",
			doc:  "oracle:\n  provider: openai\n",
		},
		{
			name: "malformed base url",
			doc:  "oracle:\n  provider: openai\n  model: gpt-4o-mini\n  base_url: not-a-url\n",
		},
		{
			name: "timeout out of range",
			doc:  "oracle:\n  provider: openai\n  model: gpt-4o-mini\n  timeout_seconds: 9000\n",
		},
		{
			name: "bad log level",
			doc:  "logging:\n  level: loud\n",
		},
		{
			name: "review max tokens below floor",
			doc:  "review:\n  max_tokens: 8\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "validation")
		})
	}
}

func TestLoadConfigFile_MissingFile(t *testing.T) {
	_, err := LoadConfigFile("/nonexistent/engine.yaml")
	require.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	t.Run("level applied", func(t *testing.T) {
		entry := NewLogger(LoggingConfig{Level: "debug", Format: "text"})
		assert.Equal(t, logrus.DebugLevel, entry.Logger.GetLevel())
	})

	t.Run("json format", func(t *testing.T) {
		entry := NewLogger(LoggingConfig{Level: "info", Format: "json"})
		_, ok := entry.Logger.Formatter.(*logrus.JSONFormatter)
		assert.True(t, ok)
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		entry := NewLogger(LoggingConfig{Level: "shouting"})
		assert.Equal(t, logrus.InfoLevel, entry.Logger.GetLevel())
	})
}
