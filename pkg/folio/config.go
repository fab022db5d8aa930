package folio

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/bft-labs/folio/internal/adapters/fs"
	"github.com/bft-labs/folio/internal/auth"
	"github.com/bft-labs/folio/internal/domain"
	"github.com/bft-labs/folio/internal/upload"
)

// Storage backends.
const (
	BackendHosted = "hosted"
	BackendLocal  = "local"
)

// Config configures a Folio instance.
type Config struct {
	// Backend is BackendHosted or BackendLocal. Default: BackendLocal.
	Backend string

	// SupabaseURL and SupabaseKey address the hosted project.
	SupabaseURL string
	SupabaseKey string

	// DataDir holds the SQLite file and local uploads. Required for the local backend.
	DataDir string

	// ListenAddr is the HTTP listen address. Default: ":8080".
	ListenAddr string

	// PublicURL is the externally visible base URL, used for local upload links.
	PublicURL string

	// Bucket is the upload bucket. Default: "uploads".
	Bucket string

	AdminUsername string
	AdminPassword string
	TokenSecret   string

	// TokenFile persists the admin token. Default: DataDir/admin_token.json.
	TokenFile string

	// HTTPTimeout bounds calls to the hosted backend. Default: 15s.
	HTTPTimeout time.Duration

	// Heartbeat is the realtime ping interval. Default: 30s.
	Heartbeat time.Duration

	// ShutdownTimeout bounds Stop. Default: 30s.
	ShutdownTimeout time.Duration
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = BackendLocal
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.Bucket == "" {
		c.Bucket = upload.DefaultBucket
	}
	if c.AdminUsername == "" {
		c.AdminUsername = auth.DefaultUsername
	}
	if c.AdminPassword == "" {
		c.AdminPassword = auth.DefaultPassword
	}
	if c.TokenFile == "" && c.DataDir != "" {
		c.TokenFile = filepath.Join(c.DataDir, fs.DefaultTokenFileName)
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 15 * time.Second
	}
	if c.Heartbeat <= 0 {
		c.Heartbeat = 30 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	if c.PublicURL == "" {
		c.PublicURL = "http://localhost" + c.ListenAddr
		if !strings.HasPrefix(c.ListenAddr, ":") {
			c.PublicURL = "http://" + c.ListenAddr
		}
	}
	c.SupabaseURL = strings.TrimRight(c.SupabaseURL, "/")
	c.PublicURL = strings.TrimRight(c.PublicURL, "/")
}

// Validate checks the configuration. Call SetDefaults first.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendHosted:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return fmt.Errorf("%w: hosted backend requires SupabaseURL and SupabaseKey", domain.ErrInvalidConfig)
		}
	case BackendLocal:
		if c.DataDir == "" {
			return fmt.Errorf("%w: local backend requires DataDir", domain.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown backend %q", domain.ErrInvalidConfig, c.Backend)
	}
	if c.TokenFile == "" {
		return fmt.Errorf("%w: TokenFile is required when DataDir is empty", domain.ErrInvalidConfig)
	}
	return nil
}

func (c Config) databasePath() string { return filepath.Join(c.DataDir, "folio.db") }

func (c Config) objectsDir() string { return filepath.Join(c.DataDir, "objects") }
