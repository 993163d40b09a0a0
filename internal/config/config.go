// Package config loads runtime settings from ACHIEVIO_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds everything the api binary needs at startup.
type Config struct {
	Addr  string
	PGDSN string

	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	BcryptCost    int

	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigins    []string
}

// Load reads the environment. The two JWT secrets are mandatory;
// everything else has a default suitable for local development.
func Load() (Config, error) {
	cfg := Config{
		Addr:           getEnv("ACHIEVIO_ADDR", ":8080"),
		PGDSN:          os.Getenv("ACHIEVIO_PG_DSN"),
		AccessSecret:   os.Getenv("ACHIEVIO_JWT_ACCESS_SECRET"),
		RefreshSecret:  os.Getenv("ACHIEVIO_JWT_REFRESH_SECRET"),
		AccessTTL:      time.Hour,
		RefreshTTL:     7 * 24 * time.Hour,
		BcryptCost:     12,
		RateLimitRPS:   5,
		RateLimitBurst: 20,
	}

	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return Config{}, errors.New("config: ACHIEVIO_JWT_ACCESS_SECRET and ACHIEVIO_JWT_REFRESH_SECRET are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return Config{}, errors.New("config: access and refresh secrets must differ")
	}

	var err error
	if cfg.AccessTTL, err = getDuration("ACHIEVIO_ACCESS_TTL", cfg.AccessTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTTL, err = getDuration("ACHIEVIO_REFRESH_TTL", cfg.RefreshTTL); err != nil {
		return Config{}, err
	}
	if cfg.BcryptCost, err = getInt("ACHIEVIO_BCRYPT_COST", cfg.BcryptCost); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitRPS, err = getFloat("ACHIEVIO_RATE_RPS", cfg.RateLimitRPS); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitBurst, err = getInt("ACHIEVIO_RATE_BURST", cfg.RateLimitBurst); err != nil {
		return Config{}, err
	}

	if raw := os.Getenv("ACHIEVIO_CORS_ORIGINS"); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
			}
		}
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return f, nil
}
