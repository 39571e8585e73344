package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	Model         string

	MaxOutputTokens  int
	Temperature      float64
	RequestTimeout   time.Duration
	MaxMessageLength int

	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "")),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		Model:         getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		MaxOutputTokens:  getEnvAsInt("LLM_MAX_OUTPUT_TOKENS", 512),
		Temperature:      getEnvAsFloat("LLM_TEMPERATURE", 0.7),
		RequestTimeout:   getEnvAsDuration("LLM_REQUEST_TIMEOUT", 30*time.Second),
		MaxMessageLength: getEnvAsInt("MAX_MESSAGE_LENGTH", 4000),

		RetryMaxAttempts: getEnvAsInt("LLM_RETRY_MAX_ATTEMPTS", 2),
		RetryBaseDelay:   getEnvAsDuration("LLM_RETRY_BASE_DELAY", time.Second),
		RetryMaxDelay:    getEnvAsDuration("LLM_RETRY_MAX_DELAY", 8*time.Second),
	}
}

// Validate reports startup-fatal configuration problems. A missing upstream
// credential is an operator error, not something to surface per request.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.OpenAIAPIKey) == "" {
		return errors.New("config: OPENAI_API_KEY is required")
	}
	if c.MaxMessageLength <= 0 {
		return errors.New("config: MAX_MESSAGE_LENGTH must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("config: LLM_REQUEST_TIMEOUT must be positive")
	}
	if c.RetryMaxAttempts < 0 {
		return errors.New("config: LLM_RETRY_MAX_ATTEMPTS must not be negative")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitAndTrim(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
