// Package ingest is the gateway through which every observation reaches the
// canonical store.
//
// The gateway guarantees at-most-once persistence per logical fingerprint:
// uniqueness is enforced by the store's UNIQUE constraint, never re-checked
// in application memory, so concurrent gateway instances racing on the same
// fingerprint resolve to exactly one winner. Fingerprint collisions are a
// normal duplicate outcome, not an error.
//
// Batches commit as a unit: a mid-batch store failure rolls back the whole
// batch while earlier batches stay intact. Malformed records are skipped and
// counted, never aborting the batch.
//
// Format-specific adapters (subpackages kml and backup) normalize raw
// producer data into observation records; the gateway itself is
// format-agnostic.
package ingest
