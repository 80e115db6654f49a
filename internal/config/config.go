package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port string
	Env  string

	// Storage
	DatabaseURL string // Postgres; empty selects SQLite
	SQLitePath  string
	RedisURL    string // optional moderation verdict cache

	// Generation backend (OpenAI-compatible)
	OpenAIKey       string
	OpenAIBaseURL   string
	ChatModel       string
	ModerationModel string

	// Bot behavior
	CommandPrefix  string
	CallbackSecret string
	PersonaQuota   int
	QuotaExemptIDs []int64 // users exempt from the persona quota; empty by default
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		SQLitePath:      os.Getenv("SQLITE_PATH"),
		RedisURL:        os.Getenv("REDIS_URL"),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		ChatModel:       getEnv("CHAT_MODEL", "gpt-4o-mini"),
		ModerationModel: getEnv("MODERATION_MODEL", "omni-moderation-latest"),
		CommandPrefix:   getEnv("COMMAND_PREFIX", "!"),
		CallbackSecret:  os.Getenv("CALLBACK_SECRET"),
		PersonaQuota:    getEnvInt("PERSONA_QUOTA", 5),
		QuotaExemptIDs:  parseIDList(os.Getenv("QUOTA_EXEMPT_IDS")),
	}

	// In production, require the generation backend key and webhook secret
	if cfg.Env == "production" {
		if cfg.OpenAIKey == "" {
			panic("OPENAI_API_KEY is required in production")
		}
		if cfg.CallbackSecret == "" {
			panic("CALLBACK_SECRET is required in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// parseIDList parses a comma-separated list of user ids, skipping
// malformed entries.
func parseIDList(raw string) []int64 {
	var ids []int64
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, err := strconv.ParseInt(entry, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
