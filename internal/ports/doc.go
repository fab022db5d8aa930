// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// Ports are the boundaries between the cache/sync core and the hosted
// backend. They say what the core needs from the outside world without
// saying how it is fulfilled.
//
// # Port Interfaces
//
//   - [DataStore], [Table]: CRUD against the relational tables
//   - [Feed], [Subscription]: per-table row-change notifications
//   - [ObjectStore]: file uploads and public URLs
//   - [TokenStore]: local persistence of the admin token
//   - [Logger]: structured logging, scoped per component with With
//   - [HTTPClient]: transport for the hosted REST and storage APIs
//
// # Usage
//
// The core packages (internal/cache, internal/livequery, internal/mutation,
// internal/app) depend only on these interfaces. Adapters under
// internal/adapters implement them for the hosted backend (REST, realtime
// websocket), for local development (SQLite, filesystem) and for logging.
package ports
