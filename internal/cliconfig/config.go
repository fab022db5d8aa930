package cliconfig

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bft-labs/folio/internal/auth"
	"github.com/bft-labs/folio/internal/upload"
)

// Storage backends.
const (
	BackendHosted = "hosted"
	BackendLocal  = "local"
)

// DefaultListenAddr is where the HTTP server listens unless configured.
const DefaultListenAddr = ":8080"

// Config holds CLI configuration for folio.
type Config struct {
	Backend string

	SupabaseURL string
	SupabaseKey string

	DataDir    string
	ListenAddr string
	PublicURL  string
	Bucket     string

	AdminUsername string
	AdminPassword string
	TokenSecret   string
	TokenFile     string

	HTTPTimeout time.Duration
	Heartbeat   time.Duration
	LogLevel    string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Backend:       BackendLocal,
		ListenAddr:    DefaultListenAddr,
		Bucket:        upload.DefaultBucket,
		AdminUsername: auth.DefaultUsername,
		AdminPassword: auth.DefaultPassword,
		HTTPTimeout:   15 * time.Second,
		Heartbeat:     30 * time.Second,
		LogLevel:      "info",
	}
}

// DefaultDataDir returns ~/.folio, or ".folio" when the home directory is unknown.
func DefaultDataDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".folio")
	}
	return ".folio"
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case BackendHosted:
		if c.SupabaseURL == "" {
			return fmt.Errorf("supabase-url is required for the hosted backend")
		}
		if c.SupabaseKey == "" {
			return fmt.Errorf("supabase-key is required for the hosted backend")
		}
	case BackendLocal:
	default:
		return fmt.Errorf("backend must be %q or %q, got %q", BackendHosted, BackendLocal, c.Backend)
	}

	if c.DataDir == "" {
		c.DataDir = DefaultDataDir()
	}
	if c.TokenFile == "" {
		c.TokenFile = filepath.Join(c.DataDir, "admin_token.json")
	}
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.PublicURL == "" {
		c.PublicURL = publicURLFor(c.ListenAddr)
	}
	if c.Bucket == "" {
		c.Bucket = upload.DefaultBucket
	}
	c.SupabaseURL = strings.TrimRight(c.SupabaseURL, "/")
	c.PublicURL = strings.TrimRight(c.PublicURL, "/")

	if c.AdminUsername == "" || c.AdminPassword == "" {
		return fmt.Errorf("admin username and password must not be empty")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive")
	}
	if c.Heartbeat <= 0 {
		return fmt.Errorf("heartbeat interval must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	return nil
}

// DatabasePath is the SQLite file used by the local backend.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "folio.db")
}

// ObjectsDir is the root of locally stored uploads.
func (c Config) ObjectsDir() string {
	return filepath.Join(c.DataDir, "objects")
}

// Redacted returns a copy with secrets masked for logging.
func (c Config) Redacted() Config {
	for _, s := range []*string{&c.SupabaseKey, &c.AdminPassword, &c.TokenSecret} {
		if *s != "" {
			*s = "*****"
		}
	}
	return c
}

func publicURLFor(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://localhost"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setDurationValue sets an already parsed duration if positive and flag not changed.
func (s *configSetter) setDurationValue(flag string, value time.Duration, dst *time.Duration) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}
