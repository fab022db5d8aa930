// Package folio provides the embeddable portfolio server.
//
// A Folio instance keeps a live, cached read model of the portfolio
// (site content, projects, skills, gallery, messages and theme) in sync with
// the data store's change feed, applies admin writes optimistically, and
// serves both over HTTP.
//
// # Basic Usage
//
//	cfg := folio.Config{
//	    Backend: folio.BackendLocal,
//	    DataDir: "/var/lib/folio",
//	}
//
//	f, err := folio.New(cfg, folio.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := f.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	// ... run until shutdown signal ...
//
//	if err := f.Stop(); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// # Backends
//
// [BackendHosted] talks to a Supabase project: PostgREST for rows, the
// Realtime socket for changes and Storage for uploads. [BackendLocal] keeps
// rows in a SQLite file under DataDir, publishes changes in process and
// stores uploads on disk, served under /uploads/.
//
// Any adapter can be replaced with [WithDataStore], [WithFeed],
// [WithObjectStore] or [WithTokenStore].
//
// # Lifecycle
//
// A Folio instance can be in one of five states: [StateStopped],
// [StateStarting], [StateRunning], [StateStopping] and [StateCrashed].
// Start warms every query before the server accepts requests; Stop shuts the
// server down, releases every subscription and closes the adapters.
package folio
