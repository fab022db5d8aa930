package folio

import (
	"net/http"

	"github.com/bft-labs/folio/internal/ports"
	"github.com/bft-labs/folio/pkg/log"
)

// Re-exported port types so embedders can supply their own adapters.
type (
	// Logger is the structured logger interface from pkg/log.
	Logger = log.Logger

	// HTTPClient is satisfied by *http.Client.
	HTTPClient = ports.HTTPClient

	// DataStore hands out table accessors.
	DataStore = ports.DataStore

	// Feed opens row-change subscriptions.
	Feed = ports.Feed

	// ObjectStore stores uploaded files.
	ObjectStore = ports.ObjectStore

	// TokenStore persists the admin token.
	TokenStore = ports.TokenStore
)

// Option configures optional behavior of Folio.
type Option func(*options)

type options struct {
	httpClient   ports.HTTPClient
	logger       ports.Logger
	eventHandler EventHandler
	store        ports.DataStore
	feed         ports.Feed
	objects      ports.ObjectStore
	tokens       ports.TokenStore
}

func defaultOptions(client *http.Client) options {
	return options{
		httpClient: client,
		logger:     log.NewNoopLogger(),
	}
}

// WithHTTPClient sets the client used for the hosted backend.
// If not provided, a client with the configured timeout is used.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for lifecycle events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithDataStore replaces the backend's data store. When store also
// implements Feed and no feed is given, it is used as the feed.
func WithDataStore(store DataStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithFeed replaces the backend's change feed.
func WithFeed(feed Feed) Option {
	return func(o *options) {
		o.feed = feed
	}
}

// WithObjectStore replaces the backend's object store.
func WithObjectStore(objects ObjectStore) Option {
	return func(o *options) {
		o.objects = objects
	}
}

// WithTokenStore replaces the token file. The file watcher is only started
// for the default token file.
func WithTokenStore(tokens TokenStore) Option {
	return func(o *options) {
		o.tokens = tokens
	}
}
