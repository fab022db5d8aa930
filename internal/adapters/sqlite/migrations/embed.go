package migrations

import "embed"

// FS contains embedded SQLite migrations for the local data store.
//
//go:embed *.sql
var FS embed.FS
