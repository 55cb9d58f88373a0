// Package store manages the canonical SQLite database shared by the ingest
// gateway, merge engine, and enrichment queue.
//
// The Store is an explicit session handle passed into every operation; there
// is no process-wide connection. It owns connection setup (WAL, foreign
// keys, busy timeout), schema initialization, busy-retry execution helpers,
// and the canonical network accessors. Component-specific SQL lives with the
// component that owns the semantics: ingest writes observations, merge
// reconciles them, queue drives enrichment items.
//
// Cross-writer invariants (at-most-once insertion, single claim) are
// enforced by UNIQUE constraints and transactions in this database, never by
// application locks, because independent process invocations share it.
//
// Schema changes bump the version in schema.go; the database is recreated
// rather than migrated.
package store
