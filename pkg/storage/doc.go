// Package storage defines the persistence model for TaskHub: the User and
// Item records, the partial-update type, the Store interface implemented by
// the sqlite and postgres backends, and the sentinel errors (ErrNotFound,
// ErrDuplicate) the API layer maps to HTTP status codes.
//
// Backends live in subpackages:
//
//   - pkg/storage/sqlite: embedded default, mattn/go-sqlite3
//   - pkg/storage/postgres: production backend, lib/pq
//
// Every method takes a context.Context and performs a single round trip or a
// single transaction; no backend spawns goroutines or caches rows.
package storage
