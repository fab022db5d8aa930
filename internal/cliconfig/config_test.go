package cliconfig

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Backend != BackendLocal {
		t.Errorf("Backend = %v, want %v", cfg.Backend, BackendLocal)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("ListenAddr = %v, want %v", cfg.ListenAddr, DefaultListenAddr)
	}
	if cfg.Bucket != "uploads" {
		t.Errorf("Bucket = %v, want uploads", cfg.Bucket)
	}
	if cfg.AdminUsername != "admin" || cfg.AdminPassword != "admin123" {
		t.Errorf("admin credential = %v/%v, want admin/admin123", cfg.AdminUsername, cfg.AdminPassword)
	}
	if cfg.Heartbeat != 30*time.Second {
		t.Errorf("Heartbeat = %v, want 30s", cfg.Heartbeat)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func(mut func(*Config)) Config {
		c := DefaultConfig()
		c.DataDir = "/tmp/folio"
		mut(&c)
		return c
	}

	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "valid local config",
			config: valid(func(c *Config) {}),
		},
		{
			name: "valid hosted config",
			config: valid(func(c *Config) {
				c.Backend = "Hosted"
				c.SupabaseURL = "https://abc.supabase.co"
				c.SupabaseKey = "anon"
			}),
		},
		{
			name:    "hosted without url",
			config:  valid(func(c *Config) { c.Backend = BackendHosted; c.SupabaseKey = "anon" }),
			wantErr: true,
		},
		{
			name:    "hosted without key",
			config:  valid(func(c *Config) { c.Backend = BackendHosted; c.SupabaseURL = "https://abc.supabase.co" }),
			wantErr: true,
		},
		{
			name:    "unknown backend",
			config:  valid(func(c *Config) { c.Backend = "firebase" }),
			wantErr: true,
		},
		{
			name:    "empty password",
			config:  valid(func(c *Config) { c.AdminPassword = "" }),
			wantErr: true,
		},
		{
			name:    "invalid timeout",
			config:  valid(func(c *Config) { c.HTTPTimeout = -1 }),
			wantErr: true,
		},
		{
			name:    "invalid heartbeat",
			config:  valid(func(c *Config) { c.Heartbeat = 0 }),
			wantErr: true,
		},
		{
			name:    "invalid log level",
			config:  valid(func(c *Config) { c.LogLevel = "verbose" }),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Validate_Derivations(t *testing.T) {
	c := DefaultConfig()
	c.DataDir = "/srv/folio"
	c.Backend = BackendHosted
	c.SupabaseURL = "https://abc.supabase.co/"
	c.SupabaseKey = "anon"
	c.PublicURL = "https://cdn.example.com//"
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if c.SupabaseURL != "https://abc.supabase.co" {
		t.Errorf("SupabaseURL = %v, want trailing slash trimmed", c.SupabaseURL)
	}
	if c.PublicURL != "https://cdn.example.com" {
		t.Errorf("PublicURL = %v, want trailing slashes trimmed", c.PublicURL)
	}
	if want := filepath.Join("/srv/folio", "admin_token.json"); c.TokenFile != want {
		t.Errorf("TokenFile = %v, want %v", c.TokenFile, want)
	}
	if want := filepath.Join("/srv/folio", "folio.db"); c.DatabasePath() != want {
		t.Errorf("DatabasePath = %v, want %v", c.DatabasePath(), want)
	}
	if want := filepath.Join("/srv/folio", "objects"); c.ObjectsDir() != want {
		t.Errorf("ObjectsDir = %v, want %v", c.ObjectsDir(), want)
	}

	// Token file respects explicit override
	c2 := DefaultConfig()
	c2.DataDir = "/srv/folio"
	c2.TokenFile = "/run/token.json"
	if err := c2.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if c2.TokenFile != "/run/token.json" {
		t.Errorf("TokenFile = %v, want /run/token.json", c2.TokenFile)
	}
}

func TestPublicURLFor(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{":8080", "http://localhost:8080"},
		{"0.0.0.0:9000", "http://localhost:9000"},
		{"127.0.0.1:3000", "http://127.0.0.1:3000"},
		{"folio.internal:80", "http://folio.internal:80"},
		{"garbage", "http://localhost"},
	}
	for _, tt := range tests {
		if got := publicURLFor(tt.addr); got != tt.want {
			t.Errorf("publicURLFor(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}

func TestConfig_Redacted(t *testing.T) {
	c := DefaultConfig()
	c.SupabaseKey = "anon"
	c.TokenSecret = ""

	r := c.Redacted()
	if r.SupabaseKey != "*****" || r.AdminPassword != "*****" {
		t.Errorf("Redacted() left secrets visible: %+v", r)
	}
	if r.TokenSecret != "" {
		t.Errorf("TokenSecret = %v, want empty to stay empty", r.TokenSecret)
	}
	if c.SupabaseKey != "anon" {
		t.Error("Redacted() modified the receiver")
	}
}
