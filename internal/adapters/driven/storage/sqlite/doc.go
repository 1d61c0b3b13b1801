// Package sqlite provides the SQLite-backed DocumentStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Documents and their chunks, including each
// chunk's embedding, live in a single database file so chunk text can be hydrated
// after a vector search without re-embedding anything.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files;
// applied versions are recorded in schema_migrations.
//
// # Data Location
//
// The database is stored at <index dir>/metadata.db.
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
