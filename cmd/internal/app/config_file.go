package app

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML overlay shape. Pointers distinguish "absent" from
// zero values so the file only overrides what it mentions.
type fileConfig struct {
	HTTPAddr *string `yaml:"http_addr"`
	LogLevel *string `yaml:"log_level"`

	Passphrase        *string `yaml:"passphrase"`
	RequirePassphrase *bool   `yaml:"require_passphrase"`

	DefaultDB      *string        `yaml:"default_db"`
	PresenceWindow *time.Duration `yaml:"presence_window"`

	DatabaseURL *string `yaml:"database_url"`
	RedisAddr   *string `yaml:"redis_addr"`

	WSOriginPatterns []string `yaml:"ws_origin_patterns"`
}

// applyConfigFile overlays the YAML file at path onto cfg.
func applyConfigFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}

	if fc.HTTPAddr != nil {
		cfg.HTTPAddr = *fc.HTTPAddr
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	if fc.Passphrase != nil {
		cfg.Passphrase = *fc.Passphrase
	}
	if fc.RequirePassphrase != nil {
		cfg.RequirePassphrase = *fc.RequirePassphrase
	}
	if fc.DefaultDB != nil {
		cfg.DefaultDB = *fc.DefaultDB
	}
	if fc.PresenceWindow != nil && *fc.PresenceWindow > 0 {
		cfg.PresenceWindow = *fc.PresenceWindow
	}
	if fc.DatabaseURL != nil {
		cfg.DatabaseURL = *fc.DatabaseURL
	}
	if fc.RedisAddr != nil {
		cfg.RedisAddr = *fc.RedisAddr
	}
	if fc.WSOriginPatterns != nil {
		cfg.WSOriginPatterns = fc.WSOriginPatterns
	}

	return nil
}
