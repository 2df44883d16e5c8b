// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for the
// aegis client.
//
// Supports TOML configuration with sensible defaults and environment
// variable overrides.
//
// Configuration file location:
//   - ~/.aegis/config.toml
//   - Built-in defaults
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete aegis client configuration.
type Config struct {
	// Server configuration
	Server ServerConfig `toml:"server"`

	// Session configuration
	Session SessionConfig `toml:"session"`

	// Audit configuration
	Audit AuditConfig `toml:"audit"`

	// UI configuration
	UI UIConfig `toml:"ui"`
}

// ServerConfig contains backend connectivity configuration.
type ServerConfig struct {
	// URL is the base URL of the portal backend (e.g. "https://portal.example.org").
	URL string `toml:"url"`
	// DemoMode replaces the HTTP backend with the built-in in-memory backend.
	// No network traffic is generated in demo mode.
	DemoMode bool `toml:"demo_mode"`
	// TimeoutSecs is the per-request timeout in seconds.
	TimeoutSecs int `toml:"timeout_secs"`
}

// SessionConfig contains session persistence and second-factor configuration.
type SessionConfig struct {
	// TokenPath is where the session token is persisted across restarts.
	// Empty means the default ~/.aegis/session.token.
	TokenPath string `toml:"token_path"`
	// OTPTTLSecs is the local second-factor countdown in seconds.
	// The server remains authoritative for actual code expiry.
	// Clamped to 30-600; default 120.
	OTPTTLSecs int `toml:"otp_ttl_secs"`
}

// AuditConfig contains the local audit trail configuration.
type AuditConfig struct {
	// Enabled turns the local audit trail on or off.
	Enabled bool `toml:"enabled"`
	// DatabasePath is the SQLite database path (empty = ~/.aegis/audit.db).
	DatabasePath string `toml:"database_path"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// CompactMode reduces vertical padding in list views.
	CompactMode bool `toml:"compact_mode"`
}

// =============================================================================
// DEFAULTS AND VALIDATION
// =============================================================================

// OTP TTL bounds. The reference portal issues codes valid for two
// minutes; the local countdown is clamped so a misconfigured client
// cannot hide a code's real lifetime.
const (
	DefaultOTPTTLSecs = 120
	MinOTPTTLSecs     = 30
	MaxOTPTTLSecs     = 600
)

// DefaultConfig returns the built-in default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:         "http://localhost:5000",
			DemoMode:    false,
			TimeoutSecs: 15,
		},
		Session: SessionConfig{
			TokenPath:  "",
			OTPTTLSecs: DefaultOTPTTLSecs,
		},
		Audit: AuditConfig{
			Enabled:      true,
			DatabasePath: "",
		},
		UI: UIConfig{
			CompactMode: false,
		},
	}
}

// Validate checks the configuration and clamps out-of-range values.
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server.url must not be empty")
	}
	u, err := url.Parse(c.Server.URL)
	if err != nil {
		return fmt.Errorf("server.url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server.url must use http or https, got %q", u.Scheme)
	}

	if c.Server.TimeoutSecs <= 0 {
		c.Server.TimeoutSecs = 15
	}

	if c.Session.OTPTTLSecs == 0 {
		c.Session.OTPTTLSecs = DefaultOTPTTLSecs
	}
	if c.Session.OTPTTLSecs < MinOTPTTLSecs {
		c.Session.OTPTTLSecs = MinOTPTTLSecs
	}
	if c.Session.OTPTTLSecs > MaxOTPTTLSecs {
		c.Session.OTPTTLSecs = MaxOTPTTLSecs
	}

	return nil
}

// TokenPath returns the effective session token path.
func (c *Config) TokenPath() string {
	if c.Session.TokenPath != "" {
		return c.Session.TokenPath
	}
	return filepath.Join(configDir(), "session.token")
}

// AuditDatabasePath returns the effective audit database path.
func (c *Config) AuditDatabasePath() string {
	if c.Audit.DatabasePath != "" {
		return c.Audit.DatabasePath
	}
	return filepath.Join(configDir(), "audit.db")
}

// =============================================================================
// LOADING
// =============================================================================

// ConfigPath returns the path of the TOML config file.
func ConfigPath() string {
	return filepath.Join(configDir(), "config.toml")
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".aegis")
	}
	return filepath.Join(home, ".aegis")
}

// Load reads the configuration from disk, applies environment variable
// overrides, and validates the result. A missing config file is not an
// error; defaults are used.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads the configuration from an explicit path.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies AEGIS_* environment variables on top of the
// file configuration. Environment always wins.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AEGIS_SERVER_URL"); v != "" {
		cfg.Server.URL = v
	}
	if v := os.Getenv("AEGIS_DEMO"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Server.DemoMode = b
		}
	}
	if v := os.Getenv("AEGIS_TOKEN_PATH"); v != "" {
		cfg.Session.TokenPath = v
	}
	if v := os.Getenv("AEGIS_OTP_TTL_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Session.OTPTTLSecs = n
		}
	}
}

// =============================================================================
// GLOBAL ACCESS
// =============================================================================

var (
	globalMu     sync.RWMutex
	globalConfig *Config
)

// Global returns the process-wide configuration, loading it on first use.
// Load errors fall back to defaults; the TUI surfaces configuration
// problems through the status command instead of refusing to start.
func Global() *Config {
	globalMu.RLock()
	if globalConfig != nil {
		defer globalMu.RUnlock()
		return globalConfig
	}
	globalMu.RUnlock()

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			cfg = DefaultConfig()
		}
		globalConfig = cfg
	}
	return globalConfig
}

// SetGlobal replaces the process-wide configuration.
func SetGlobal(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting clears the global config so tests start clean.
func ResetGlobalForTesting() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig = nil
}
