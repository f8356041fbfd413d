// Package shard implements the fundamental storage unit of torusdb: a
// self-contained, single-writer/many-reader data partition combining
// the typed triple store (C1), its index maintainer (C2), and the CDC
// buffer (C4) that feeds the pipeline coordinator.
//
// # Overview
//
// A shard owns one namespace's worth of triples end to end. Writes
// (createEntity, updateEntity, deleteEntity, and their batch forms)
// serialize through writeMu, matching the single-writer execution
// model: the SQL engine's own single connection already serializes
// individual statements, but check-then-act sequences (does this
// entity already exist?) need the same discipline at the shard level.
// Reads (getEntity, traverse, query) run uncoordinated against the
// same store and take its snapshot-read guarantees as given.
//
// # Entity materialization
//
// The triple store is a flat (subject, predicate) -> object table; it
// has no native notion of "all fields belonging to this entity" or
// "every subject carrying this predicate" beyond a linear scan. The
// shard keeps a small in-memory fields index (subject -> live
// predicate set) updated alongside every write specifically to answer
// those two questions cheaply: AllFields for entity materialization
// and AllSubjectsForPredicate for query.DataSource's scan fallback.
// Unlike the index maintainer's sub-indexes, this structure is not
// described by the component design — it is shard-local bookkeeping,
// not a queryable secondary index. It is held in memory only: Open
// starts it empty and does not repopulate it from rows already in the
// store.
//
// # External interfaces
//
// Shard implements both the RPC-style API the external interfaces
// section names (getEntity/createEntity/.../batchExecute, as the Go
// interface API) and query.DataSource, so the query executor runs
// directly against a live shard without a network hop or an adapter
// type.
package shard
