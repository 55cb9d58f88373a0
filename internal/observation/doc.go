// Package observation defines the uniform sighting record shared by every
// ingest adapter and the merge engine.
//
// An Observation is one sighting of a wireless transceiver at a place and
// time. Adapters normalize their source format into this shape; the gateway
// validates it and derives the deduplication fingerprint from it. Records are
// immutable once persisted apart from merge bookkeeping columns, so nothing
// in this package mutates an Observation after construction.
package observation
