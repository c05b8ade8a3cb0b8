// Package storage owns the relational connection shared by the queue and
// invoice stores.
//
// Open selects SQLite (modernc.org/sqlite, the default) or PostgreSQL
// (pgx through database/sql) from configuration, applies the embedded
// migrations for that dialect once each, and returns a DB handle that is
// injected into every store. Queries are written with '?' placeholders and
// rebound to '$n' for PostgreSQL. WithTx runs a function inside one
// transaction and retries the whole attempt when SQLite reports the database
// as busy.
//
// Timestamps are stored as fixed-width UTC text in both dialects so ordering
// by the column matches chronological order.
package storage
