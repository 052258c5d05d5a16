// Package config loads shelfly settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	MinBcryptCost = 4
	MaxBcryptCost = 14
)

// Config holds application configuration.
type Config struct {
	DBPath     string
	LogLevel   slog.Level
	Hasher     string
	BcryptCost int
	ResetTTL   time.Duration
}

// Load reads configuration. Values from envFiles (default ".env") fill in
// variables that are not already set in the process environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	v.SetDefault("SHELFLY_DB_PATH", "shelfly.db")
	v.SetDefault("SHELFLY_LOG_LEVEL", "info")
	v.SetDefault("SHELFLY_HASHER", "sha256")
	v.SetDefault("SHELFLY_BCRYPT_COST", 12)
	v.SetDefault("SHELFLY_RESET_TTL", "2m")
	v.AutomaticEnv()

	cfg := &Config{
		DBPath: strings.TrimSpace(v.GetString("SHELFLY_DB_PATH")),
		Hasher: strings.ToLower(strings.TrimSpace(v.GetString("SHELFLY_HASHER"))),
	}
	if cfg.DBPath == "" {
		return nil, errors.New("SHELFLY_DB_PATH must not be empty")
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("SHELFLY_LOG_LEVEL"))); err != nil {
		return nil, fmt.Errorf("invalid SHELFLY_LOG_LEVEL: %w", err)
	}

	switch cfg.Hasher {
	case "sha256", "bcrypt":
	default:
		return nil, fmt.Errorf("SHELFLY_HASHER must be sha256 or bcrypt, got %q", cfg.Hasher)
	}

	cost, err := strconv.Atoi(strings.TrimSpace(v.GetString("SHELFLY_BCRYPT_COST")))
	if err != nil {
		return nil, fmt.Errorf("invalid SHELFLY_BCRYPT_COST: %w", err)
	}
	if cost < MinBcryptCost || cost > MaxBcryptCost {
		return nil, fmt.Errorf("SHELFLY_BCRYPT_COST must be between %d and %d, got %d", MinBcryptCost, MaxBcryptCost, cost)
	}
	cfg.BcryptCost = cost

	ttl, err := time.ParseDuration(v.GetString("SHELFLY_RESET_TTL"))
	if err != nil {
		return nil, fmt.Errorf("invalid SHELFLY_RESET_TTL: %w", err)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("SHELFLY_RESET_TTL must be positive, got %s", ttl)
	}
	cfg.ResetTTL = ttl

	return cfg, nil
}
