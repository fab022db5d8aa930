package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/folio/internal/cliconfig"
	"github.com/bft-labs/folio/pkg/folio"
	pkglog "github.com/bft-labs/folio/pkg/log"
)

const helpDescription = `
Serve a personal portfolio with a live admin backend.

Highlights:
  - Reads are cached and kept current by the data store's change feed.
  - Admin edits apply instantly and roll back if the store rejects them.
  - Runs on a Supabase project or on a local SQLite file.
  - Configure via file ($HOME/.folio/config.toml), FOLIO_* env, or flags.
`

var longHelp = strings.TrimSpace(helpDescription)

var exampleUsage = strings.TrimSpace(`
  folio --data-dir ~/.folio --listen :8080
  folio --backend hosted --supabase-url https://<ref>.supabase.co --supabase-key <anon-key>
  folio login --admin-password <password>
  folio upload --kind image ./portrait.jpg
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// cli carries the configuration shared by every subcommand.
type cli struct {
	cfg     cliconfig.Config
	cfgPath string
	log     zerolog.Logger
}

// load applies file, env and flag configuration (flags win) and validates.
func (c *cli) load(cmd *cobra.Command) error {
	cfgFile := c.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&c.cfg, fc, changed); err != nil {
			return err
		}
	}

	// Environment overrides the file but not explicit flags.
	if err := cliconfig.ApplyEnvConfig(&c.cfg, changed); err != nil {
		return err
	}

	if err := c.cfg.Validate(); err != nil {
		return err
	}
	c.log = pkglog.NewConsoleLogger(c.cfg.LogLevel)
	return nil
}

func (c *cli) libConfig() folio.Config {
	cfg := c.cfg
	return folio.Config{
		Backend:       cfg.Backend,
		SupabaseURL:   cfg.SupabaseURL,
		SupabaseKey:   cfg.SupabaseKey,
		DataDir:       cfg.DataDir,
		ListenAddr:    cfg.ListenAddr,
		PublicURL:     cfg.PublicURL,
		Bucket:        cfg.Bucket,
		AdminUsername: cfg.AdminUsername,
		AdminPassword: cfg.AdminPassword,
		TokenSecret:   cfg.TokenSecret,
		TokenFile:     cfg.TokenFile,
		HTTPTimeout:   cfg.HTTPTimeout,
		Heartbeat:     cfg.Heartbeat,
	}
}

func (c *cli) serve(cmd *cobra.Command, args []string) error {
	if err := c.load(cmd); err != nil {
		return err
	}
	log := c.log
	log.Info().Interface("config", c.cfg.Redacted()).Msg("configuration")

	f, err := folio.New(c.libConfig(), folio.WithLogger(pkglog.NewZerologAdapterWithLogger(log)))
	if err != nil {
		return fmt.Errorf("create folio: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := f.Start(ctx); err != nil {
		return fmt.Errorf("start folio: %w", err)
	}

	// Detect a crash of the running server.
	crashed := make(chan struct{})
	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if f.Status() == folio.StateCrashed {
					close(crashed)
					return
				}
			}
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("received signal, stopping...")
	case <-crashed:
		log.Error().Msg("folio crashed")
		return fmt.Errorf("server crashed")
	}

	if err := f.Stop(); err != nil {
		return fmt.Errorf("stop folio: %w", err)
	}
	return nil
}

func main() {
	c := &cli{cfg: cliconfig.DefaultConfig(), log: pkglog.NewConsoleLogger("info")}

	root := &cobra.Command{
		Use:           "folio",
		Short:         "Serve a personal portfolio with a live admin backend",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          c.serve,
	}

	cfg := &c.cfg
	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgPath, "config", "", "path to config file (default: $HOME/.folio/config.toml)")
	pf.StringVar(&cfg.Backend, "backend", cfg.Backend, `data backend: "hosted" (Supabase) or "local" (SQLite)`)
	pf.StringVar(&cfg.SupabaseURL, "supabase-url", cfg.SupabaseURL, "Supabase project URL")
	pf.StringVar(&cfg.SupabaseKey, "supabase-key", cfg.SupabaseKey, "Supabase anon key")
	pf.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for the local database, uploads and token (default: $HOME/.folio)")
	pf.StringVar(&cfg.Bucket, "bucket", cfg.Bucket, "upload bucket")
	pf.StringVar(&cfg.PublicURL, "public-url", cfg.PublicURL, "externally visible base URL (local upload links)")
	pf.StringVar(&cfg.AdminUsername, "admin-username", cfg.AdminUsername, "admin username")
	pf.StringVar(&cfg.AdminPassword, "admin-password", cfg.AdminPassword, "admin password")
	pf.StringVar(&cfg.TokenSecret, "token-secret", cfg.TokenSecret, "admin token signing secret (default: derived from the credential)")
	pf.StringVar(&cfg.TokenFile, "token-file", cfg.TokenFile, "admin token file (default: <data-dir>/admin_token.json)")
	pf.DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout for the hosted backend")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")

	root.Flags().StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "HTTP listen address")
	root.Flags().DurationVar(&cfg.Heartbeat, "heartbeat", cfg.Heartbeat, "realtime heartbeat interval")
	if err := root.Flags().MarkHidden("heartbeat"); err != nil {
		c.log.Info().Err(err).Msg("failed to hide heartbeat flag")
	}

	root.AddCommand(newLoginCmd(c), newLogoutCmd(c), newUploadCmd(c))

	if err := root.Execute(); err != nil {
		c.log.Error().Err(err).Msg("folio")
		os.Exit(1)
	}
}
