package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsWithSecretFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerPort != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.ServerPort)
	}
	if cfg.DatabasePath != "data/tasks.db" {
		t.Errorf("expected default database path, got %s", cfg.DatabasePath)
	}
	if cfg.JWTExpiryHours != 2 {
		t.Errorf("expected default expiry 2h, got %d", cfg.JWTExpiryHours)
	}
	if cfg.JWTSecret != "env-secret" {
		t.Errorf("expected secret from env, got %q", cfg.JWTSecret)
	}
}

func TestLoad_MissingSecretFails(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(""); err == nil {
		t.Error("expected error when JWT_SECRET is unset")
	}
}

func TestLoad_FileValuesAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("server_port: \"9000\"\ndatabase_path: file.db\njwt_secret: file-secret\njwt_expiry_hours: 4\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerPort != "9100" {
		t.Errorf("expected env to override file port, got %s", cfg.ServerPort)
	}
	if cfg.DatabasePath != "file.db" {
		t.Errorf("expected file database path, got %s", cfg.DatabasePath)
	}
	if cfg.JWTSecret != "file-secret" {
		t.Errorf("expected secret from file, got %q", cfg.JWTSecret)
	}
	if cfg.JWTExpiryHours != 4 {
		t.Errorf("expected expiry 4h from file, got %d", cfg.JWTExpiryHours)
	}
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerPort != "8000" {
		t.Errorf("expected defaults, got port %s", cfg.ServerPort)
	}
}

func TestLoad_BadExpiryEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("JWT_EXPIRY_HOURS", "soon")

	if _, err := Load(""); err == nil {
		t.Error("expected error for non-numeric JWT_EXPIRY_HOURS")
	}
}
