package classify

import (
	"log/slog"
	"net/http"
	"time"
)

// Config holds backend configuration shared by the classifier variants.
type Config struct {
	// Remote backend
	Model        string        // Gemini model name
	PollInterval time.Duration // upload processing poll interval
	Timeout      time.Duration // per-request timeout

	// Generation parameters
	Temperature     float32
	TopP            float32
	TopK            float32
	MaxOutputTokens int32

	// Observability
	Logger *slog.Logger

	// HTTPClient overrides the transport used for remote calls.
	HTTPClient *http.Client
}

// Option is a functional option for configuring classifiers.
type Option func(*Config)

// WithModel sets the remote model name.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithPollInterval sets how often the remote upload state is polled.
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) { c.PollInterval = d }
}

// WithTimeout sets the per-request timeout for remote calls.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithHTTPClient sets the HTTP client used for remote calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Config) { c.HTTPClient = hc }
}

// DefaultConfig returns the production defaults for the Gemini backend.
func DefaultConfig() *Config {
	return &Config{
		Model:           "gemini-2.5-flash",
		PollInterval:    100 * time.Millisecond,
		Timeout:         15 * time.Second,
		Temperature:     0.1,
		TopP:            0.95,
		TopK:            40,
		MaxOutputTokens: 256,
		Logger:          slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}
