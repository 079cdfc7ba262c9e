// Package config handles environment variable loading for ports, database strings, etc.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dizid/site-improver/internal/breaker"
)

// Config holds all configuration values for the application.
type Config struct {
	// Database connection string. Empty means the in-memory store (dev mode).
	DatabaseURL string

	// HTTP server port
	HTTPPort int

	// Redis address for the shared usage ledger. Empty means the in-memory
	// ledger (single-process deployments).
	RedisAddr string

	// Shared secret for the /internal/* endpoints
	SystemSecret string

	// OTLP collector endpoint for traces
	OTELEndpoint string

	// External service endpoints for the pipeline stages
	ScraperURL         string
	ScraperFallbackURL string
	AIURL              string
	DeployURL          string

	// Per-dependency circuit breaker tunables, keyed by breaker name
	Breakers map[string]breaker.Config

	// Overage spending cap in cents and the cap percentages that fire alerts
	SpendingCapCents int64
	AlertThresholds  []int

	// Pipeline worker pool
	PipelineConcurrency int
	PipelineBacklog     int

	// SSE keepalive interval for the events endpoint
	SSEHeartbeat time.Duration
}

// breakerNames are the dependencies with dedicated BREAKER_<NAME>_* env vars.
var breakerNames = []string{"scraper_api", "scraper_fallback_api", "ai_api", "deploy_api"}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		SystemSecret:       os.Getenv("SYSTEM_SECRET"),
		ScraperURL:         os.Getenv("SCRAPER_API_URL"),
		ScraperFallbackURL: os.Getenv("SCRAPER_FALLBACK_URL"),
		AIURL:              os.Getenv("AI_API_URL"),
		DeployURL:          os.Getenv("DEPLOY_API_URL"),
	}

	port, err := intEnv("PORT", 6161)
	if err != nil {
		return nil, err
	}
	cfg.HTTPPort = port

	cfg.OTELEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if cfg.OTELEndpoint == "" {
		cfg.OTELEndpoint = "localhost:4317"
	}

	cfg.Breakers = make(map[string]breaker.Config)
	for _, name := range breakerNames {
		bc, err := breakerEnv(name)
		if err != nil {
			return nil, err
		}
		cfg.Breakers[name] = bc
	}

	capCents, err := intEnv("SPENDING_CAP_CENTS", 10000)
	if err != nil {
		return nil, err
	}
	cfg.SpendingCapCents = int64(capCents)

	cfg.AlertThresholds, err = thresholdsEnv("SPENDING_ALERT_THRESHOLDS", []int{50, 80, 95})
	if err != nil {
		return nil, err
	}

	cfg.PipelineConcurrency, err = intEnv("PIPELINE_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}

	cfg.PipelineBacklog, err = intEnv("PIPELINE_BACKLOG", 64)
	if err != nil {
		return nil, err
	}

	cfg.SSEHeartbeat, err = durationEnv("SSE_HEARTBEAT_INTERVAL", 25*time.Second)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// breakerEnv reads BREAKER_<NAME>_THRESHOLD and BREAKER_<NAME>_RESET_TIMEOUT
// for a dependency, with the registry defaults as fallback.
func breakerEnv(name string) (breaker.Config, error) {
	bc := breaker.DefaultConfig()
	prefix := "BREAKER_" + strings.ToUpper(name)

	threshold, err := intEnv(prefix+"_THRESHOLD", bc.FailureThreshold)
	if err != nil {
		return bc, err
	}
	bc.FailureThreshold = threshold

	reset, err := durationEnv(prefix+"_RESET_TIMEOUT", bc.ResetTimeout)
	if err != nil {
		return bc, err
	}
	bc.ResetTimeout = reset

	return bc, nil
}

func intEnv(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// thresholdsEnv parses a comma-separated list of percentages, e.g. "50,80,95".
func thresholdsEnv(key string, def []int) ([]int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		out = append(out, v)
	}
	return out, nil
}
