// Package config provides environment configuration for the API server.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application. The provider
// credential and sampling parameters are loaded once here and handed to
// the completion client at construction, never read per request.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	StaticDir          string

	// Storage settings; empty DSN selects the in-memory store
	DatabaseURL string

	// NATS settings; empty URL disables turn events
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// LLM settings
	Provider        string
	DeepSeekAPIKey  string
	AnthropicAPIKey string
	BaseURL         string
	SystemPrompt    string

	// Fixed sampling configuration
	Model            string
	Temperature      float64
	TopP             float64
	PresencePenalty  float64
	FrequencyPenalty float64
	MaxTokens        int

	CompletionTimeout time.Duration

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),
		StaticDir:          getEnv("STATIC_DIR", "static"),

		// Storage
		DatabaseURL: getEnv("DATABASE_URL", ""),

		// NATS
		NATSURL:      getEnv("NATS_URL", ""),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// LLM
		Provider:        getEnv("LLM_PROVIDER", "openai"),
		DeepSeekAPIKey:  getEnv("DEEPSEEK_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		BaseURL:         getEnv("LLM_BASE_URL", "https://api.deepseek.com/v1"),
		SystemPrompt:    getEnv("SYSTEM_PROMPT", "You are a helpful assistant."),

		// Sampling
		Model:            getEnv("LLM_MODEL", "deepseek-chat"),
		Temperature:      getFloatEnv("LLM_TEMPERATURE", 1.5),
		TopP:             getFloatEnv("LLM_TOP_P", 0.85),
		PresencePenalty:  getFloatEnv("LLM_PRESENCE_PENALTY", -0.3),
		FrequencyPenalty: getFloatEnv("LLM_FREQUENCY_PENALTY", 0.4),
		MaxTokens:        getIntEnv("LLM_MAX_TOKENS", 1000),

		CompletionTimeout: getDurationEnv("COMPLETION_TIMEOUT", 60*time.Second),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

// APIKey returns the credential matching the configured provider.
func (c *Config) APIKey() string {
	if c.Provider == "anthropic" {
		return c.AnthropicAPIKey
	}
	return c.DeepSeekAPIKey
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
