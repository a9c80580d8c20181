// Package config loads service configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the tasks service.
type Config struct {
	ServerPort       string `yaml:"server_port"`
	DatabasePath     string `yaml:"database_path"`
	LogFile          string `yaml:"log_file"`
	JWTSecret        string `yaml:"jwt_secret"`
	JWTExpiryHours   int    `yaml:"jwt_expiry_hours"`
	NotificationsURL string `yaml:"notifications_url"`
}

// Load reads the YAML file at path (if it exists) and then applies
// environment overrides. Missing file is not an error; env-only deployments
// are the norm.
func Load(path string) (*Config, error) {
	cfg := &Config{
		ServerPort:     "8000",
		DatabasePath:   "data/tasks.db",
		LogFile:        "logs/tasks.log",
		JWTExpiryHours: 2,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	overrideString(&cfg.ServerPort, "SERVER_PORT")
	overrideString(&cfg.DatabasePath, "DATABASE_PATH")
	overrideString(&cfg.LogFile, "LOG_FILE")
	overrideString(&cfg.JWTSecret, "JWT_SECRET")
	overrideString(&cfg.NotificationsURL, "NOTIFICATIONS_URL")
	if v := os.Getenv("JWT_EXPIRY_HOURS"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid JWT_EXPIRY_HOURS: %w", err)
		}
		cfg.JWTExpiryHours = hours
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}
	return cfg, nil
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
