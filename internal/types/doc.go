// Package types defines torusdb's wire- and storage-level data model: the
// EntityId, Predicate, TransactionId, and TypedObject primitives and the
// Triple they compose into.
//
// # Design
//
// TypedObject is a tagged sum (discriminated union), not a runtime-typed
// map: exactly one of its scalar fields is meaningful for a given Tag, and
// the zero value of every other field is ignored. This mirrors the
// storage engine's column-per-tag layout (see internal/triplestore and
// internal/graphcol) so a TypedObject can be projected straight into its
// owning column without a type switch at the boundary — the type switch
// happens once, here, at construction and validation time.
//
// EntityId and Predicate are validated at construction so that every other
// package can treat a types.EntityId/types.Predicate value as already
// well-formed; they do not re-validate on every use.
package types
