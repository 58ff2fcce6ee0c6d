package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	Env         string

	// SweepSecret protects the sweep and manual-verify endpoints.
	SweepSecret string

	// SweepInterval is how often the background worker runs a sweep.
	SweepInterval time.Duration

	Gateways map[string]GatewayConfig
}

// GatewayConfig holds one payment gateway's credentials and endpoint.
type GatewayConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BaseURL   string `yaml:"base_url"`
	SecretKey string `yaml:"-"`
}

// LoadConfig reads .env (if present), the environment, and an optional
// gateways.yml. Missing credentials for an enabled gateway are fatal:
// there is no point sweeping against a gateway we cannot talk to.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, relying on system env variables")
	}

	cfg := &Config{
		Port:          getEnv("PORT", "3000"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		Env:           getEnv("ENV", "development"),
		SweepSecret:   getEnv("SWEEP_SECRET", ""),
		SweepInterval: getDurationEnv("SWEEP_INTERVAL_MINUTES", 15) * time.Minute,
		Gateways: map[string]GatewayConfig{
			"paystack": {
				Enabled:   getBoolEnv("PAYSTACK_ENABLED", true),
				SecretKey: getEnv("PAYSTACK_SECRET_KEY", ""),
			},
			"flutterwave": {
				Enabled:   getBoolEnv("FLUTTERWAVE_ENABLED", true),
				SecretKey: getEnv("FLUTTERWAVE_SECRET_KEY", ""),
			},
		},
	}

	if path := getEnv("GATEWAYS_FILE", ""); path != "" {
		if err := cfg.applyGatewaysFile(path); err != nil {
			return nil, err
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.SweepSecret == "" {
		return nil, fmt.Errorf("SWEEP_SECRET is required")
	}
	for name, gw := range cfg.Gateways {
		if gw.Enabled && gw.SecretKey == "" {
			return nil, fmt.Errorf("gateway %s is enabled but has no secret key", name)
		}
	}

	return cfg, nil
}

// Helper to get env with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		slog.Warn("Invalid boolean env value, using fallback", "key", key, "value", value)
		return fallback
	}
	return parsed
}

func getDurationEnv(key string, fallback int) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return time.Duration(fallback)
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		slog.Warn("Invalid duration env value, using fallback", "key", key, "value", value)
		return time.Duration(fallback)
	}
	return time.Duration(parsed)
}
