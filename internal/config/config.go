// Package config reads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port             string
	DBPath           string
	LogLevel         string
	LogFormat        string // "text" or "json"
	Timezone         string
	GenerateInterval time.Duration
	MissedGraceDays  int
	SessionTTL       time.Duration
	CORSOrigins      []string
	ParentPIN        string // seeds the parent PIN when none is stored yet
}

// Load reads environment variables into Config, applying defaults for local use.
func Load() Config {
	return Config{
		Port:             getEnv("CHORES_PORT", "8080"),
		DBPath:           getEnv("CHORES_DB_PATH", "chores.db"),
		LogLevel:         getEnv("CHORES_LOG_LEVEL", "info"),
		LogFormat:        getEnv("CHORES_LOG_FORMAT", "text"),
		Timezone:         getEnv("CHORES_TIMEZONE", "Local"),
		GenerateInterval: getDurationEnv("CHORES_GENERATE_INTERVAL", 15*time.Minute),
		MissedGraceDays:  getIntEnv("CHORES_MISSED_GRACE_DAYS", 1),
		SessionTTL:       getDurationEnv("CHORES_SESSION_TTL", 12*time.Hour),
		CORSOrigins:      splitAndTrim(getEnv("CHORES_CORS_ORIGINS", "")),
		ParentPIN:        getEnv("CHORES_PARENT_PIN", ""),
	}
}

// Location resolves Timezone. Calendar dates for generation are computed in it.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
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
