// Package coordinator implements the CDC pipeline coordinator (C8): a
// long-lived, single-instance process that accepts a persistent
// session from every shard, reliably buffers their change-data-capture
// events, and periodically flushes compacted GraphCol chunks to object
// storage grouped by namespace.
//
// # Overview
//
// One gorilla/websocket connection per shard carries the session
// protocol (register/deregister/cdc/ack/error, §6's wire envelopes).
// The coordinator tracks each shard's session state, buffers incoming
// events per namespace, and flushes on a size- or time-driven trigger,
// encoding each namespace's pending events with internal/graphcol and
// publishing the resulting chunk plus an updated manifest through
// internal/objectstore.
//
// # Single-threaded cooperative scheduler
//
// Session reader loops, the flush alarm, and the HTTP status surface
// each run in their own goroutine, but every mutation of shared
// coordinator state (sessions, pending buffers, stats) is submitted as
// a command function over a single channel and executed by one run
// loop goroutine. This gives the cooperative-suspension contract of
// §5 — each task runs to completion before the next one is picked up —
// without literally serializing the goroutines that feed it.
//
// # Session state machine
//
// LISTENING (no session) -> OPEN (accepted, pre-register) ->
// REGISTERED (register handled) -> ACTIVE (at least one cdc batch
// received) -> DRAINING (unexpected transport close, treated as an
// implicit deregister) -> CLOSED. An explicit deregister removes the
// session at once and marks it CLOSED without a DRAINING step. A
// session that closes unexpectedly from REGISTERED or ACTIVE is held in
// DRAINING for a grace period before its registration is dropped. In
// both cases its buffered-but-unflushed events are unaffected since
// they already live in the namespace-keyed pending queue, not on the
// session.
//
// # Recovery
//
// Each shard's lastSequence is persisted to a local modernc.org/sqlite
// table (coordinator_state) after every successful flush. On restart,
// the persisted value and a reconnecting shard's declared lastSequence
// are reconciled by taking the max, so a shard that fell behind its own
// durable record never causes duplicate processing.
package coordinator
