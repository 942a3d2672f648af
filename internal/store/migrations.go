package store

import "embed"

// Migrations holds the embedded schema migrations, applied by the server
// binaries and the tooling entrypoint, never by the per-request path.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsTable names the goose bookkeeping table.
const MigrationsTable = "schema_migrations"
