// Package store persists the registry's append-only event journal. The ledger
// appends an event before touching in-memory state and replays the journal at
// boot, so implementations must return events in exactly the order they were
// appended and must not partially persist an append.
//
// The Journal contract itself is defined by the consumer in the registry
// package; Memory and Postgres both satisfy it.
package store
