package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(WithoutSystemEnv())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %s", cfg.LogLevel)
	}
	if cfg.ReadTimeout != 10*time.Second || cfg.WriteTimeout != 20*time.Second || cfg.IdleTimeout != 60*time.Second {
		t.Errorf("unexpected timeouts: %+v", cfg)
	}
	if cfg.DatabaseURL != "" || cfg.TablesPath != "" {
		t.Errorf("expected optional values to be empty, got %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(WithoutSystemEnv(), WithEnvMap(map[string]string{
		"PORT":               "9090",
		"DATABASE_URL":       "postgres://localhost/quotes",
		"TARIFF_TABLES_PATH": "/etc/shipquote/tables.yaml",
		"LOG_LEVEL":          "DEBUG",
		"HTTP_WRITE_TIMEOUT": "45s",
	}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Port != "9090" || cfg.DatabaseURL != "postgres://localhost/quotes" || cfg.TablesPath != "/etc/shipquote/tables.yaml" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected debug, got %s", cfg.LogLevel)
	}
	if cfg.WriteTimeout != 45*time.Second {
		t.Errorf("expected 45s write timeout, got %s", cfg.WriteTimeout)
	}
}

func TestLoadEnvMapBeatsSystemEnv(t *testing.T) {
	t.Setenv("PORT", "7000")
	cfg, err := Load(WithEnvMap(map[string]string{"PORT": "7001"}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Port != "7001" {
		t.Errorf("expected env map to win, got %s", cfg.Port)
	}
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load(WithoutSystemEnv(), WithEnvMap(map[string]string{
		"HTTP_READ_TIMEOUT": "soon",
		"HTTP_IDLE_TIMEOUT": "-1s",
		"LOG_LEVEL":         "loud",
	}))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	fields := verr.Fields()
	if len(fields) != 3 {
		t.Fatalf("expected 3 invalid fields, got %v", fields)
	}
}
