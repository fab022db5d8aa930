package folio

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bft-labs/folio/internal/adapters/fs"
	httpAdapter "github.com/bft-labs/folio/internal/adapters/http"
	"github.com/bft-labs/folio/internal/adapters/realtime"
	"github.com/bft-labs/folio/internal/adapters/sqlite"
	"github.com/bft-labs/folio/internal/app"
	"github.com/bft-labs/folio/internal/auth"
	"github.com/bft-labs/folio/internal/domain"
	"github.com/bft-labs/folio/internal/httpapi"
	"github.com/bft-labs/folio/internal/ports"
	"github.com/bft-labs/folio/internal/upload"
)

// Sentinel lifecycle errors.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrInvalidConfig   = domain.ErrInvalidConfig
)

// uploadsPrefix is where local uploads are served.
const uploadsPrefix = "/uploads"

// startable is implemented by feeds that hold a connection open.
type startable interface {
	Start(ctx context.Context) error
}

// Folio is the portfolio server. Use New() to create an instance, then
// Start() to begin serving.
type Folio struct {
	config    Config
	opts      options
	lifecycle *app.Lifecycle
	logger    ports.Logger

	mu        sync.RWMutex
	portfolio *app.Portfolio
	auth      *auth.Authenticator
	watcher   *fs.FileWatcher
	server    *http.Server
	addr      string
	closers   []func() error
}

// New creates a new Folio instance with the given configuration.
// The instance is created in StateStopped; call Start() to begin serving.
func New(cfg Config, opts ...Option) (*Folio, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions(&http.Client{Timeout: cfg.HTTPTimeout})
	for _, opt := range opts {
		opt(&o)
	}

	return &Folio{
		config:    cfg,
		opts:      o,
		lifecycle: app.NewLifecycle(o.logger, stateObserver{handler: o.eventHandler}),
		logger:    o.logger,
	}, nil
}

// Start opens the adapters, warms every query and starts the HTTP server.
// It returns once the server is listening.
func (f *Folio) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.lifecycle.CanStart() {
		return ErrAlreadyRunning
	}
	if err := f.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	// Leftovers of a crashed run.
	f.teardown()

	runCtx, cancel := context.WithCancel(ctx)
	f.lifecycle.SetCancel(cancel)

	if err := f.start(runCtx); err != nil {
		f.logger.Error("start failed", ports.Err(err))
		f.teardown()
		_ = f.lifecycle.TransitionTo(app.StateCrashed, err.Error())
		return err
	}
	return f.lifecycle.TransitionTo(app.StateRunning, "serving on "+f.addr)
}

func (f *Folio) start(ctx context.Context) error {
	cfg := f.config
	logger := f.logger

	b, err := f.openBackend(ctx)
	if err != nil {
		return err
	}
	if s, ok := b.feed.(startable); ok && f.opts.feed == nil {
		if err := s.Start(ctx); err != nil {
			return fmt.Errorf("start feed: %w", err)
		}
	}

	uploader := upload.New(b.objects, logger, upload.WithBucket(cfg.Bucket))
	f.portfolio = app.NewPortfolio(b.store, b.feed, uploader, logger)
	if err := f.portfolio.Warm(ctx); err != nil {
		return fmt.Errorf("warm queries: %w", err)
	}

	tokens := f.opts.tokens
	if tokens == nil {
		if err := os.MkdirAll(filepath.Dir(cfg.TokenFile), 0o700); err != nil {
			return fmt.Errorf("create token dir: %w", err)
		}
		file := fs.NewTokenFile(cfg.TokenFile)
		tokens = file
		f.auth = auth.New(f.authConfig(), tokens, logger)
		f.watcher = fs.NewFileWatcher(file.Path(), fs.DefaultDebounce, func(ctx context.Context) {
			if err := f.auth.Reload(ctx); err != nil {
				logger.Warn("token reload failed", ports.Err(err))
			}
		}, logger)
		if err := f.watcher.Start(ctx); err != nil {
			logger.Warn("token watcher disabled", ports.Err(err))
			f.watcher = nil
		}
	} else {
		f.auth = auth.New(f.authConfig(), tokens, logger)
	}
	if err := f.auth.Reload(ctx); err != nil {
		logger.Warn("token load failed", ports.Err(err))
	}

	var apiOpts []httpapi.Option
	if b.uploadsDir != "" {
		apiOpts = append(apiOpts, httpapi.WithUploadsDir(b.uploadsDir, uploadsPrefix))
	}
	handler := httpapi.New(f.portfolio, f.auth, logger, apiOpts...)

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
	}
	f.addr = ln.Addr().String()
	f.server = &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	srv := f.server
	f.lifecycle.Go(func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", ports.Err(err))
			_ = f.lifecycle.TransitionTo(app.StateCrashed, err.Error())
		}
	})
	logger.Info("http server listening", ports.String("addr", f.addr))
	return nil
}

func (f *Folio) authConfig() auth.Config {
	return auth.Config{
		Username: f.config.AdminUsername,
		Password: f.config.AdminPassword,
		Secret:   f.config.TokenSecret,
	}
}

type backend struct {
	store      ports.DataStore
	feed       ports.Feed
	objects    ports.ObjectStore
	uploadsDir string
}

// openBackend builds the configured adapters, keeping any that were injected.
func (f *Folio) openBackend(ctx context.Context) (backend, error) {
	cfg := f.config
	b := backend{store: f.opts.store, feed: f.opts.feed, objects: f.opts.objects}

	switch cfg.Backend {
	case BackendHosted:
		client := httpAdapter.NewClient(cfg.SupabaseURL, cfg.SupabaseKey, f.opts.httpClient, f.logger)
		if b.store == nil {
			b.store = client
		}
		if b.objects == nil {
			b.objects = client
		}
		if b.feed == nil {
			rt := realtime.New(realtime.Config{
				URL:       cfg.SupabaseURL,
				APIKey:    cfg.SupabaseKey,
				Heartbeat: cfg.Heartbeat,
			}, f.logger)
			b.feed = rt
			f.closers = append(f.closers, rt.Close)
		}
	case BackendLocal:
		if b.store == nil {
			if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
				return b, fmt.Errorf("create data dir: %w", err)
			}
			st, err := sqlite.Open(ctx, cfg.databasePath(), f.logger)
			if err != nil {
				return b, err
			}
			f.closers = append(f.closers, st.Close)
			b.store = st
		}
		if b.objects == nil {
			b.uploadsDir = cfg.objectsDir()
			b.objects = fs.NewObjectDir(b.uploadsDir, cfg.PublicURL+uploadsPrefix)
		}
	}

	if b.feed == nil {
		if feed, ok := b.store.(ports.Feed); ok {
			b.feed = feed
		}
	}
	return b, nil
}

// Stop shuts the HTTP server down, releases every subscription and closes
// the adapters. Returns ErrShutdownTimeout if shutdown does not finish in
// time; the instance is then Crashed.
func (f *Folio) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.lifecycle.CanStop() {
		return ErrNotRunning
	}
	if err := f.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		return err
	}

	timeout := f.config.ShutdownTimeout
	if f.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := f.server.Shutdown(ctx); err != nil {
			f.logger.Warn("http shutdown", ports.Err(err))
		}
		cancel()
	}
	f.teardown()

	if err := f.lifecycle.WaitWithTimeout(timeout); err != nil {
		_ = f.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
		return err
	}
	return f.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
}

// teardown releases everything start created. Callers hold f.mu.
func (f *Folio) teardown() {
	f.lifecycle.Cancel()
	if f.server != nil {
		_ = f.server.Close()
		f.server = nil
	}
	if f.watcher != nil {
		f.watcher.Stop()
		f.watcher = nil
	}
	if f.portfolio != nil {
		f.portfolio.Close()
	}
	for i := len(f.closers) - 1; i >= 0; i-- {
		if err := f.closers[i](); err != nil {
			f.logger.Warn("adapter close failed", ports.Err(err))
		}
	}
	f.closers = nil
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (f *Folio) Status() State {
	return convertState(f.lifecycle.State())
}

// Addr returns the address the HTTP server listens on, or "" before Start.
func (f *Folio) Addr() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.addr
}

// Portfolio returns the service, or nil before the first Start.
func (f *Folio) Portfolio() *app.Portfolio {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.portfolio
}
