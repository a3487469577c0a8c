package completion

import (
	"fmt"
	"log/slog"
	"time"
)

// Config holds the fixed parameters of every completion call. It is built
// once at startup and shared by pointer; nothing mutates it afterwards.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	MaxTokens      int
	Temperature    float32
	RequestTimeout time.Duration
}

// DefaultConfig returns the model parameters used when none are given.
func DefaultConfig() Config {
	return Config{
		Model:          "gpt-3.5-turbo",
		MaxTokens:      200,
		Temperature:    0.7,
		RequestTimeout: 30 * time.Second,
	}
}

// HasAPIKey reports whether a key is configured.
func (c *Config) HasAPIKey() bool {
	return c.APIKey != ""
}

// String renders the config without the API key.
func (c *Config) String() string {
	return fmt.Sprintf("model=%s max_tokens=%d temperature=%.2f api_key=%s",
		c.Model, c.MaxTokens, c.Temperature, c.redactedKey())
}

// LogValue keeps the API key out of structured logs.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("model", c.Model),
		slog.Int("max_tokens", c.MaxTokens),
		slog.Float64("temperature", float64(c.Temperature)),
		slog.String("api_key", c.redactedKey()),
	)
}

func (c *Config) redactedKey() string {
	if c.APIKey == "" {
		return "<unset>"
	}
	return "<redacted>"
}
