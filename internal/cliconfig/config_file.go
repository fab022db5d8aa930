package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Backend       string `toml:"backend"`
	SupabaseURL   string `toml:"supabase_url"`
	SupabaseKey   string `toml:"supabase_key"`
	DataDir       string `toml:"data_dir"`
	ListenAddr    string `toml:"listen"`
	PublicURL     string `toml:"public_url"`
	Bucket        string `toml:"bucket"`
	AdminUsername string `toml:"admin_username"`
	AdminPassword string `toml:"admin_password"`
	TokenSecret   string `toml:"token_secret"`
	TokenFile     string `toml:"token_file"`
	HTTPTimeout   string `toml:"http_timeout"`
	Heartbeat     string `toml:"heartbeat"`
	LogLevel      string `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.folio/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".folio", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("backend", fc.Backend, &cfg.Backend)
	s.setString("supabase-url", fc.SupabaseURL, &cfg.SupabaseURL)
	s.setString("supabase-key", fc.SupabaseKey, &cfg.SupabaseKey)
	s.setString("data-dir", fc.DataDir, &cfg.DataDir)
	s.setString("listen", fc.ListenAddr, &cfg.ListenAddr)
	s.setString("public-url", fc.PublicURL, &cfg.PublicURL)
	s.setString("bucket", fc.Bucket, &cfg.Bucket)
	s.setString("admin-username", fc.AdminUsername, &cfg.AdminUsername)
	s.setString("admin-password", fc.AdminPassword, &cfg.AdminPassword)
	s.setString("token-secret", fc.TokenSecret, &cfg.TokenSecret)
	s.setString("token-file", fc.TokenFile, &cfg.TokenFile)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("heartbeat", fc.Heartbeat, &cfg.Heartbeat); err != nil {
		return err
	}
	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
