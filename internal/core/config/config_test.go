package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/panel")
	t.Setenv("SWEEP_SECRET", "sweep-secret")
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test_ps")
	t.Setenv("FLUTTERWAVE_SECRET_KEY", "sk_test_flw")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Port != "3000" {
		t.Errorf("Expected default port 3000, got %s", cfg.Port)
	}
	if cfg.SweepInterval != 15*time.Minute {
		t.Errorf("Expected default sweep interval 15m, got %s", cfg.SweepInterval)
	}
	for _, name := range []string{"paystack", "flutterwave"} {
		gw, ok := cfg.Gateways[name]
		if !ok || !gw.Enabled {
			t.Errorf("Expected %s enabled by default, got %+v", name, gw)
		}
	}
}

func TestLoadConfig_MissingDatabaseURL(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DATABASE_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("Expected an error without DATABASE_URL")
	}
}

func TestLoadConfig_MissingSweepSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SWEEP_SECRET", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("Expected an error without SWEEP_SECRET")
	}
}

func TestLoadConfig_EnabledGatewayWithoutSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("FLUTTERWAVE_SECRET_KEY", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("Expected an error for an enabled gateway without a secret key")
	}
}

func TestLoadConfig_DisabledGatewayNeedsNoSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("FLUTTERWAVE_SECRET_KEY", "")
	t.Setenv("FLUTTERWAVE_ENABLED", "false")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Gateways["flutterwave"].Enabled {
		t.Error("Expected flutterwave disabled")
	}
}

func TestLoadConfig_GatewaysFileOverlay(t *testing.T) {
	setBaseEnv(t)

	path := filepath.Join(t.TempDir(), "gateways.yml")
	content := []byte("gateways:\n  flutterwave:\n    enabled: false\n  paystack:\n    enabled: true\n    base_url: https://sandbox.paystack.co\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GATEWAYS_FILE", path)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Gateways["flutterwave"].Enabled {
		t.Error("Expected flutterwave disabled by the overlay")
	}
	if got := cfg.Gateways["paystack"].BaseURL; got != "https://sandbox.paystack.co" {
		t.Errorf("Expected the overlaid base url, got %q", got)
	}
}

func TestLoadConfig_GatewaysFileUnknownGateway(t *testing.T) {
	setBaseEnv(t)

	path := filepath.Join(t.TempDir(), "gateways.yml")
	if err := os.WriteFile(path, []byte("gateways:\n  stripe:\n    enabled: true\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GATEWAYS_FILE", path)

	if _, err := LoadConfig(); err == nil {
		t.Fatal("Expected an error for an unknown gateway in the file")
	}
}
