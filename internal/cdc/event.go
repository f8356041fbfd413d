// Package cdc implements the per-shard change-data-capture buffer: a
// bounded, single-producer/single-consumer FIFO of triple mutations
// that backs the shard's stream to the coordinator.
package cdc

import (
	"github.com/dreamware/torusdb/internal/types"
)

// EventType discriminates the three mutation kinds a shard emits.
type EventType uint8

const (
	EventInsert EventType = iota
	EventUpdate
	EventDelete
)

func (e EventType) String() string {
	switch e {
	case EventInsert:
		return "insert"
	case EventUpdate:
		return "update"
	case EventDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Event is one buffered mutation. PreviousValue is only meaningful for
// EventUpdate and EventDelete, where it holds the value the hook
// contract's onUpdate/onDelete saw as "old".
type Event struct {
	Type          EventType
	Triple        types.Triple
	PreviousValue *types.Triple
	Timestamp     int64
}
