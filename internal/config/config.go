package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	DatabaseURL string
	// SQLitePath stores achievements in a local file when no DatabaseURL is set.
	SQLitePath string
	EggsFile   string
	LogLevel   string
	SessionTTL time.Duration
	// InputRate is the sustained number of input events per second a session
	// may send; InputBurst is the bucket size.
	InputRate  float64
	InputBurst int
	// MaxSessions caps live sessions across all visitors.
	MaxSessions int
}

func Load() Config {
	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  os.Getenv("SQLITE_PATH"),
		EggsFile:    os.Getenv("EGGS_FILE"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		SessionTTL:  getEnvDuration("SESSION_TTL", 1*time.Hour),
		InputRate:   getEnvFloat("INPUT_RATE", 20),
		InputBurst:  getEnvInt("INPUT_BURST", 60),
		MaxSessions: getEnvInt("MAX_SESSIONS", 10000),
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
