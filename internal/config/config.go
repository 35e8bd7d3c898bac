// Package config handles application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port    int
	BaseURL string

	// Database
	DatabaseURL string

	// Listing site
	ListingBaseURL string
	UserAgent      string
	FetchTimeout   time.Duration // per-page fetch bound
	RequestDelay   time.Duration // mandatory pause between listing-site requests
	PreviewLimit   int           // item pages fetched eagerly per scraped page

	// Import
	ImportBudget time.Duration // wall-clock bound for one import batch

	// Store matching
	ITunesAPIURL       string
	ITunesCountry      string
	ITunesLimit        int
	MatchMinConfidence float64 // floor below which an attempt is failed
	MatchAutoApply     float64 // threshold at or above which a match is written
	MatchNameWeight    float64 // name share of the combined score

	// CORS
	CORSOrigins []string

	// Match worker
	WorkerEnabled      bool
	WorkerPollInterval time.Duration // how often to poll for unmatched apps
	WorkerBatchSize    int           // apps pulled per poll
	WorkerConcurrency  int           // concurrent lookups per batch
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnvInt("PORT", 8080),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		DatabaseURL: getEnv("DATABASE_URL", "file:appgrove.db?_journal=WAL&_timeout=5000"),

		ListingBaseURL: getEnv("LISTING_BASE_URL", ""),
		UserAgent:      getEnv("USER_AGENT", ""),
		FetchTimeout:   getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
		RequestDelay:   getEnvDuration("REQUEST_DELAY", 1*time.Second),
		PreviewLimit:   getEnvInt("PREVIEW_LIMIT", 10),

		ImportBudget: getEnvDuration("IMPORT_BUDGET", 25*time.Second),

		ITunesAPIURL:       getEnv("ITUNES_API_URL", "https://itunes.apple.com/search"),
		ITunesCountry:      getEnv("ITUNES_COUNTRY", "us"),
		ITunesLimit:        getEnvInt("ITUNES_LIMIT", 10),
		MatchMinConfidence: getEnvFloat("MATCH_MIN_CONFIDENCE", 0.3),
		MatchAutoApply:     getEnvFloat("MATCH_AUTO_APPLY", 0.8),
		MatchNameWeight:    getEnvFloat("MATCH_NAME_WEIGHT", 0.7),

		CORSOrigins: getEnvSlice("CORS_ORIGINS", []string{"http://localhost:3000"}),

		WorkerEnabled:      getEnvBool("MATCH_WORKER_ENABLED", true),
		WorkerPollInterval: getEnvDuration("MATCH_WORKER_POLL_INTERVAL", 30*time.Second),
		WorkerBatchSize:    getEnvInt("MATCH_WORKER_BATCH_SIZE", 20),
		WorkerConcurrency:  getEnvInt("MATCH_WORKER_CONCURRENCY", 3),
	}

	if cfg.MatchMinConfidence < 0 || cfg.MatchMinConfidence > 1 {
		return nil, fmt.Errorf("MATCH_MIN_CONFIDENCE must be in [0,1], got %v", cfg.MatchMinConfidence)
	}
	if cfg.MatchAutoApply < 0 || cfg.MatchAutoApply > 1 {
		return nil, fmt.Errorf("MATCH_AUTO_APPLY must be in [0,1], got %v", cfg.MatchAutoApply)
	}
	if cfg.MatchNameWeight < 0 || cfg.MatchNameWeight > 1 {
		return nil, fmt.Errorf("MATCH_NAME_WEIGHT must be in [0,1], got %v", cfg.MatchNameWeight)
	}
	if cfg.ImportBudget <= 0 {
		return nil, fmt.Errorf("IMPORT_BUDGET must be positive, got %v", cfg.ImportBudget)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "true" || lower == "1" || lower == "yes"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
