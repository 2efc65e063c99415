// Package config provides environment-driven configuration for amd
// commands.
package config

import (
	"os"
	"strconv"
	"time"
)

// Default service configuration.
const (
	DefaultPort             = "8000"
	DefaultSampleRate       = 16000
	DefaultBufferMs         = 3000
	DefaultIdleTimeout      = 5 * time.Second
	DefaultThreshold        = 0.85
	DefaultPredictPerMinute = 20
	DefaultHealthPerMinute  = 100
	DefaultMaxUploadMB      = 10
	DefaultMinUploadBytes   = 1000
)

// Config holds everything the server binary needs to start.
type Config struct {
	Port     string
	LogLevel string
	Debug    bool

	GeminiAPIKey string
	GeminiModel  string
	PollInterval time.Duration

	ModelPath  string
	SampleRate int

	BufferThresholdMs int
	IdleTimeout       time.Duration
	DecisionThreshold float64

	PredictPerMinute int
	HealthPerMinute  int
	MaxUploadBytes   int64
	MinUploadBytes   int64
}

// Load reads configuration from the environment, falling back to
// defaults for anything unset.
func Load() Config {
	return Config{
		Port:     envString("PORT", DefaultPort),
		LogLevel: envString("LOG_LEVEL", "info"),
		Debug:    envBool("DEBUG", false),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  envString("GEMINI_MODEL", "gemini-2.5-flash"),
		PollInterval: envDuration("GEMINI_POLL_INTERVAL", 100*time.Millisecond),

		ModelPath:  os.Getenv("AMD_MODEL_PATH"),
		SampleRate: envInt("AMD_SAMPLE_RATE", DefaultSampleRate),

		BufferThresholdMs: envInt("AMD_BUFFER_MS", DefaultBufferMs),
		IdleTimeout:       envDuration("AMD_IDLE_TIMEOUT", DefaultIdleTimeout),
		DecisionThreshold: envFloat("AMD_DECISION_THRESHOLD", DefaultThreshold),

		PredictPerMinute: envInt("AMD_PREDICT_RATE_LIMIT", DefaultPredictPerMinute),
		HealthPerMinute:  envInt("AMD_HEALTH_RATE_LIMIT", DefaultHealthPerMinute),
		MaxUploadBytes:   int64(envInt("AMD_MAX_UPLOAD_MB", DefaultMaxUploadMB)) << 20,
		MinUploadBytes:   int64(envInt("AMD_MIN_UPLOAD_BYTES", DefaultMinUploadBytes)),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
