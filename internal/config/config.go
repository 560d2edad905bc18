package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the device agent.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// Redis (durable key/value storage + background task transport)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Remote scheduling backend
	RemoteAPIBaseURL string
	RemoteAPITimeout time.Duration

	// Server
	ApiPort string

	// Offer lifecycle
	OfferLifetime time.Duration
	UndoWindow    time.Duration
	SweepInterval time.Duration

	// Sync queue
	SyncMaxRetries  int
	SyncBackoffBase time.Duration
	SyncBackoffCap  time.Duration
	DrainInterval   time.Duration

	// Connectivity probing
	ConnProbeInterval time.Duration

	// Rate Limiting Defaults
	RateLimitBucketSize int
	RateLimitRefillRate int // tokens per second

	// App Defaults
	AppName string
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	godotenv.Load()

	cfg := &Config{
		RunMode: runMode, // Set from flag
	}

	var err error

	// Helper function to get env var or default
	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	// Helper function to get required env var
	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.RemoteAPIBaseURL, err = getRequiredEnv("REMOTE_API_BASE_URL")
	if err != nil {
		return nil, err
	}
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.AppName = getEnv("APP_NAME", "ClarityTechAgent")

	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	remoteTimeoutSeconds, err := strconv.ParseInt(getEnv("REMOTE_API_TIMEOUT_SECONDS", "5"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid REMOTE_API_TIMEOUT_SECONDS: %w", err)
	}
	cfg.RemoteAPITimeout = time.Duration(remoteTimeoutSeconds) * time.Second

	offerLifetimeMinutes, err := strconv.ParseInt(getEnv("OFFER_LIFETIME_MINUTES", "30"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid OFFER_LIFETIME_MINUTES: %w", err)
	}
	cfg.OfferLifetime = time.Duration(offerLifetimeMinutes) * time.Minute

	undoWindowSeconds, err := strconv.ParseInt(getEnv("UNDO_WINDOW_SECONDS", "120"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid UNDO_WINDOW_SECONDS: %w", err)
	}
	cfg.UndoWindow = time.Duration(undoWindowSeconds) * time.Second

	sweepIntervalSeconds, err := strconv.ParseInt(getEnv("SWEEP_INTERVAL_SECONDS", "60"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SWEEP_INTERVAL_SECONDS: %w", err)
	}
	cfg.SweepInterval = time.Duration(sweepIntervalSeconds) * time.Second

	cfg.SyncMaxRetries, err = strconv.Atoi(getEnv("SYNC_MAX_RETRIES", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_MAX_RETRIES: %w", err)
	}

	backoffBaseMs, err := strconv.ParseInt(getEnv("SYNC_BACKOFF_BASE_MS", "2000"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_BACKOFF_BASE_MS: %w", err)
	}
	cfg.SyncBackoffBase = time.Duration(backoffBaseMs) * time.Millisecond

	backoffCapSeconds, err := strconv.ParseInt(getEnv("SYNC_BACKOFF_CAP_SECONDS", "300"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_BACKOFF_CAP_SECONDS: %w", err)
	}
	cfg.SyncBackoffCap = time.Duration(backoffCapSeconds) * time.Second

	drainIntervalSeconds, err := strconv.ParseInt(getEnv("DRAIN_INTERVAL_SECONDS", "30"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid DRAIN_INTERVAL_SECONDS: %w", err)
	}
	cfg.DrainInterval = time.Duration(drainIntervalSeconds) * time.Second

	probeIntervalSeconds, err := strconv.ParseInt(getEnv("CONN_PROBE_INTERVAL_SECONDS", "15"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid CONN_PROBE_INTERVAL_SECONDS: %w", err)
	}
	cfg.ConnProbeInterval = time.Duration(probeIntervalSeconds) * time.Second

	cfg.RateLimitBucketSize, err = strconv.Atoi(getEnv("RATE_LIMIT_BUCKET_SIZE", "8"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BUCKET_SIZE: %w", err)
	}
	cfg.RateLimitRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_REFILL_RATE", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_REFILL_RATE: %w", err)
	}

	return cfg, nil
}
