package application

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/procurelane/evalengine/internal/aireview"
)

// Config is the engine's deployment configuration, loaded from YAML.
// It covers the scoring oracle, the AI review pipeline, and logging; store
// wiring stays in code because the store choice is a compile-time decision.
type Config struct {
	// Oracle selects and configures the AI provider behind the scoring
	// oracle. Optional: an engine without an oracle serves every operation
	// except AI review.
	Oracle OracleConfig `yaml:"oracle"`

	// Review tunes the AI scoring pipeline.
	Review aireview.Config `yaml:"review"`

	// Logging controls the structured logger.
	Logging LoggingConfig `yaml:"logging"`
}

// OracleConfig configures the external AI provider.
type OracleConfig struct {
	// Provider selects the backing AI service.
	Provider string `yaml:"provider" validate:"omitempty,oneof=openai anthropic google"`

	// Model is the provider-specific model identifier.
	Model string `yaml:"model" validate:"required_with=Provider"`

	// APIKey authenticates against the provider. Prefer the environment
	// variable form (${VAR}) over a literal key in the file.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default endpoint, for proxies and
	// compatible gateways.
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`

	// TimeoutSeconds bounds each oracle round trip. Zero disables the
	// timeout middleware.
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"min=0,max=600"`

	// RequestsPerSecond throttles oracle calls. Zero disables the rate
	// limiter middleware.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"min=0,max=1000"`

	// Burst is the rate limiter's burst allowance.
	Burst int `yaml:"burst" validate:"min=0,max=1000"`
}

// Enabled reports whether an oracle provider is configured.
func (c OracleConfig) Enabled() bool { return c.Provider != "" }

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	// Level is the minimum severity emitted.
	Level string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error"`

	// Format selects the output encoding.
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// DefaultConfig returns a Config with the pipeline defaults, no oracle, and
// info-level text logging.
func DefaultConfig() Config {
	return Config{
		Review: aireview.DefaultConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig reads, parses, and validates a YAML configuration. Decoding is
// strict so a misspelled field fails loudly instead of being ignored.
// Omitted sections fall back to defaults; ${VAR} references in the API key
// are expanded from the environment.
func LoadConfig(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("reading configuration: %w", err)
	}

	config := DefaultConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("decoding configuration: %w", err)
	}

	config.Oracle.APIKey = os.Expand(config.Oracle.APIKey, os.Getenv)

	if err := validator.New().Struct(config); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// LoadConfigFile loads configuration from the file at path.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("opening configuration file: %w", err)
	}
	defer f.Close()

	config, err := LoadConfig(f)
	if err != nil {
		return Config{}, fmt.Errorf("loading %s: %w", path, err)
	}
	return config, nil
}

// NewLogger builds a logrus entry from the logging configuration.
func NewLogger(config LoggingConfig) *logrus.Entry {
	logger := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if config.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logrus.NewEntry(logger)
}
