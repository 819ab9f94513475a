package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime configuration, loaded from the environment with an
// optional .env file for local development.
type Config struct {
	Environment string
	Port        string
	LogLevel    slog.Level

	DatabaseURL string
	RedisURL    string

	// Identity
	JWTSecret string
	TokenTTL  time.Duration

	// File storage
	UploadDir string

	// Language model collaborator
	OllamaURL     string
	OllamaModel   string
	OllamaTimeout time.Duration

	// Generation
	ExtractPageLimit int

	// Status stream
	StreamPollInterval time.Duration

	// Eventing; empty means in-process gochannel publisher
	KafkaBrokers string
	KafkaTopic   string
}

func LoadConfig() (*Config, error) {
	// Missing .env is fine, the environment may carry everything already
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnv("PORT", "8080"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		TokenTTL:  getDurationEnv("TOKEN_TTL", time.Hour),

		UploadDir: getEnv("UPLOAD_DIR", "uploads"),

		OllamaURL:     getEnv("OLLAMA_URL", "http://127.0.0.1:11434"),
		OllamaModel:   getEnv("OLLAMA_MODEL", "llama3"),
		OllamaTimeout: getDurationEnv("OLLAMA_TIMEOUT", 5*time.Minute),

		ExtractPageLimit: getIntEnv("EXTRACT_PAGE_LIMIT", 5),

		StreamPollInterval: getDurationEnv("STREAM_POLL_INTERVAL", 3*time.Second),

		KafkaBrokers: getEnv("KAFKA_BROKERS", ""),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "flashcard-events"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
