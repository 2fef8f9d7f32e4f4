// Package config loads runtime configuration from the environment. A .env
// file in the working directory is honored when present. The resulting
// Config is passed explicitly into constructors; nothing here is consulted
// as ambient global state after load.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full runtime configuration.
type Config struct {
	// eBay API credentials. AppID is required for live API access; CertID
	// and DevID are accepted for completeness but unused by the public
	// search and shopping calls.
	EbayAppID  string
	EbayCertID string
	EbayDevID  string

	// DBPath is the SQLite tracking database file.
	DBPath string

	// RequestTimeout bounds each upstream HTTP request.
	RequestTimeout time.Duration
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// Deal detection defaults.
	SampleSize        int
	LookbackDays      int
	DiscountThreshold float64
}

// Load reads configuration from a .env file (if present) and the process
// environment. Missing values fall back to defaults; a missing eBay app ID
// is tolerated here and reported at call time, so offline tooling still
// works.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: could not load .env file: %v", err)
	}

	cfg := &Config{
		EbayAppID:         os.Getenv("EBAY_APP_ID"),
		EbayCertID:        os.Getenv("EBAY_CERT_ID"),
		EbayDevID:         os.Getenv("EBAY_DEV_ID"),
		DBPath:            envString("DEALWATCH_DB", "ebay_tracking.db"),
		RequestTimeout:    envDuration("DEALWATCH_REQUEST_TIMEOUT", 15*time.Second),
		MaxRetries:        envInt("DEALWATCH_MAX_RETRIES", 2),
		SampleSize:        envInt("DEALWATCH_SAMPLE_SIZE", 75),
		LookbackDays:      envInt("DEALWATCH_LOOKBACK_DAYS", 90),
		DiscountThreshold: envFloat("DEALWATCH_DISCOUNT_THRESHOLD", 15.0),
	}

	if cfg.SampleSize < 1 || cfg.SampleSize > 100 {
		return nil, fmt.Errorf("DEALWATCH_SAMPLE_SIZE must be 1..100, got %d", cfg.SampleSize)
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("DEALWATCH_MAX_RETRIES must be >= 0, got %d", cfg.MaxRetries)
	}
	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("config: ignoring invalid %s=%q", key, v)
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("config: ignoring invalid %s=%q", key, v)
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("config: ignoring invalid %s=%q", key, v)
	}
	return fallback
}
