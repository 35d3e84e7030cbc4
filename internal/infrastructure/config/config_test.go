package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.App.Name != "TaskTrail" {
		t.Errorf("unexpected app name %q", cfg.App.Name)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("unexpected server port %d", cfg.Server.Port)
	}
	if cfg.Backend.RecordURL == "" || cfg.Backend.IdentityURL == "" {
		t.Error("backend URLs must default to the local dev stack")
	}
	if cfg.State.Path == "" {
		t.Error("state path must have a default")
	}
	if cfg.DevStack.SessionTTL <= 0 {
		t.Errorf("unexpected session ttl %v", cfg.DevStack.SessionTTL)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("BACKEND_RECORD_URL", "https://records.example.com")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("SERVER_PORT override not applied, got %d", cfg.Server.Port)
	}
	if cfg.Backend.RecordURL != "https://records.example.com" {
		t.Errorf("BACKEND_RECORD_URL override not applied, got %q", cfg.Backend.RecordURL)
	}
	if cfg.Logger.Level != "debug" {
		t.Errorf("LOG_LEVEL override not applied, got %q", cfg.Logger.Level)
	}
}

func TestValidateConfigRejectsBadPort(t *testing.T) {
	t.Setenv("SERVER_PORT", "-1")

	if _, err := Load(); err == nil {
		t.Error("expected a validation error for a negative port")
	}
}

func TestEnvironmentHelpers(t *testing.T) {
	dev := AppConfig{Environment: "development"}
	if !dev.IsDevelopment() || dev.IsProduction() {
		t.Error("development environment misreported")
	}

	prod := AppConfig{Environment: "production"}
	if prod.IsDevelopment() || !prod.IsProduction() {
		t.Error("production environment misreported")
	}
}
