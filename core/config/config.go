package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"basegraph.app/inference/core/db"
)

type Config struct {
	OTel      OTelConfig
	LLM       LLMConfig
	RateLimit RateLimitConfig
	Env       string
	Port      string
	DB        db.Config
	// TrustedProxies lists the proxy IPs or CIDRs whose X-Forwarded-For is
	// honoured. Empty means the peer address is the client IP.
	TrustedProxies []string
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
	// SampleRatio is the share of root traces kept, 0 to 1.
	SampleRatio float64
}

type LLMConfig struct {
	Provider     string // "openai" or "anthropic"
	APIKey       string
	BaseURL      string // Optional: for OpenAI-compatible endpoints
	Model        string
	SystemPrompt string
	MaxTokens    int
	Temperature  *float64 // nil = provider default
	Timeout      time.Duration
	MaxRetries   int
}

type RateLimitConfig struct {
	RedisURL          string
	RequestsPerMinute int
}

// Load loads configuration from environment variables.
// In development a .env file in the working directory is read first;
// variables already present in the environment win.
func Load() (Config, error) {
	if getEnv("APP_ENV", "development") == "development" {
		_ = godotenv.Load(".env")
	}

	provider := getEnv("LLM_PROVIDER", "openai")

	cfg := Config{
		Env:            getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		TrustedProxies: getEnvList("TRUSTED_PROXIES"),
		DB: db.Config{
			DSN:      getEnv("DATABASE_URL", ""),
			MaxConns: getEnvInt32("DB_MAX_CONNS", 10),
			MinConns: getEnvInt32("DB_MIN_CONNS", 2),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "inference"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
			SampleRatio:    getEnvFloat("OTEL_TRACES_SAMPLER_RATIO", 1),
		},
		LLM: LLMConfig{
			Provider:     provider,
			APIKey:       apiKey(provider),
			BaseURL:      getEnv("LLM_BASE_URL", ""),
			Model:        getEnv("LLM_MODEL", ""),
			SystemPrompt: getEnv("LLM_SYSTEM_PROMPT", ""),
			MaxTokens:    getEnvInt("LLM_MAX_TOKENS", 1024),
			Temperature:  getEnvFloatPtr("LLM_TEMPERATURE"),
			Timeout:      getEnvDuration("LLM_TIMEOUT", 60*time.Second),
			MaxRetries:   getEnvInt("LLM_MAX_RETRIES", 2),
		},
		RateLimit: RateLimitConfig{
			RedisURL:          getEnv("REDIS_URL", ""),
			RequestsPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		},
	}

	if cfg.LLM.APIKey == "" {
		return Config{}, fmt.Errorf("LLM_API_KEY is required")
	}

	if cfg.LLM.Provider != "openai" && cfg.LLM.Provider != "anthropic" {
		return Config{}, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLM.Provider)
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c RateLimitConfig) Enabled() bool {
	return c.RedisURL != "" && c.RequestsPerMinute > 0
}

// apiKey prefers LLM_API_KEY and falls back to the provider's conventional
// variable. Empty values count as unset.
func apiKey(provider string) string {
	if key := getEnv("LLM_API_KEY", ""); key != "" {
		return key
	}
	return providerAPIKey(provider)
}

func providerAPIKey(provider string) string {
	switch provider {
	case "anthropic":
		return getEnv("ANTHROPIC_API_KEY", "")
	default:
		return getEnv("OPENAI_API_KEY", "")
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt32(key string, fallback int32) int32 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(i)
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	var values []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}

func getEnvFloat(key string, fallback float64) float64 {
	if f := getEnvFloatPtr(key); f != nil {
		return *f
	}
	return fallback
}

func getEnvFloatPtr(key string) *float64 {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return &f
		}
	}
	return nil
}
