package cliconfig

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvConfig holds the FOLIO_* environment variables.
type EnvConfig struct {
	Backend       string        `env:"BACKEND"`
	SupabaseURL   string        `env:"SUPABASE_URL"`
	SupabaseKey   string        `env:"SUPABASE_KEY"`
	DataDir       string        `env:"DATA_DIR"`
	ListenAddr    string        `env:"LISTEN"`
	PublicURL     string        `env:"PUBLIC_URL"`
	Bucket        string        `env:"BUCKET"`
	AdminUsername string        `env:"ADMIN_USERNAME"`
	AdminPassword string        `env:"ADMIN_PASSWORD"`
	TokenSecret   string        `env:"TOKEN_SECRET"`
	TokenFile     string        `env:"TOKEN_FILE"`
	HTTPTimeout   time.Duration `env:"HTTP_TIMEOUT"`
	Heartbeat     time.Duration `env:"HEARTBEAT"`
	LogLevel      string        `env:"LOG_LEVEL"`
}

// EnvPrefix prefixes every environment variable folio reads.
const EnvPrefix = "FOLIO_"

// LoadEnvConfig parses the FOLIO_* environment variables.
func LoadEnvConfig() (EnvConfig, error) {
	var ec EnvConfig
	if err := env.ParseWithOptions(&ec, env.Options{Prefix: EnvPrefix}); err != nil {
		return ec, fmt.Errorf("parse env: %w", err)
	}
	return ec, nil
}

// ApplyEnvConfig applies configuration from environment variables (FOLIO_*).
// Values override the config file but never explicitly set flags.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	ec, err := LoadEnvConfig()
	if err != nil {
		return err
	}
	s := newConfigSetter(changed)

	s.setString("backend", ec.Backend, &cfg.Backend)
	s.setString("supabase-url", ec.SupabaseURL, &cfg.SupabaseURL)
	s.setString("supabase-key", ec.SupabaseKey, &cfg.SupabaseKey)
	s.setString("data-dir", ec.DataDir, &cfg.DataDir)
	s.setString("listen", ec.ListenAddr, &cfg.ListenAddr)
	s.setString("public-url", ec.PublicURL, &cfg.PublicURL)
	s.setString("bucket", ec.Bucket, &cfg.Bucket)
	s.setString("admin-username", ec.AdminUsername, &cfg.AdminUsername)
	s.setString("admin-password", ec.AdminPassword, &cfg.AdminPassword)
	s.setString("token-secret", ec.TokenSecret, &cfg.TokenSecret)
	s.setString("token-file", ec.TokenFile, &cfg.TokenFile)
	s.setString("log-level", ec.LogLevel, &cfg.LogLevel)

	s.setDurationValue("timeout", ec.HTTPTimeout, &cfg.HTTPTimeout)
	s.setDurationValue("heartbeat", ec.Heartbeat, &cfg.Heartbeat)
	return nil
}
