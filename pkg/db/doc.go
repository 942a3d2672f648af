// Package db provides the PostgreSQL plumbing shared by every runtime:
// a connection pool with startup retry, a process-wide pool cache keyed by
// connection string, goose migrations over embedded SQL files, and a small
// transaction helper.
//
// The pool cache is the one intentionally long-lived resource in the
// system. Containers are rebuilt per request, but Shared hands every
// container with the same connection string the same pgx pool, so request
// isolation does not cost a connection handshake per request.
package db
