package coordinator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dreamware/torusdb/internal/graphcol"
	"github.com/dreamware/torusdb/internal/types"
	"github.com/dreamware/torusdb/internal/wire"
)

// armAlarm schedules exactly one pending flush alarm. Repeated calls
// while one is already pending are no-ops, matching §4.8: the alarm
// starts on the first event buffered since the last flush, not on
// every event.
func (c *Coordinator) armAlarm(st *state) {
	if st.alarmPending {
		return
	}
	st.alarmPending = true
	d := time.Duration(c.cfg.BatchTimeoutMs) * time.Millisecond
	time.AfterFunc(d, func() {
		c.submit(func(s *state) {
			s.alarmPending = false
			c.doFlush(s)
		})
	})
}

// doFlush encodes and publishes every namespace with pending events.
// A namespace whose encode or publish step fails keeps its events
// buffered for the next alarm cycle rather than dropping or acking
// them (§4.8: "if object storage fails, keep buffered events, do not
// ack, and retry at the next alarm").
func (c *Coordinator) doFlush(st *state) {
	if st.pendingCount == 0 {
		return
	}
	ctx := context.Background()

	for namespace, events := range st.pending {
		if len(events) == 0 {
			delete(st.pending, namespace)
			continue
		}
		if c.flushNamespace(ctx, st, namespace, events) {
			delete(st.pending, namespace)
			st.pendingCount -= len(events)
		}
	}

	if st.pendingCount > 0 {
		c.armAlarm(st)
	}
}

// flushNamespace publishes one namespace's pending events as a single
// chunk + manifest update. It reports whether the flush succeeded; on
// failure the caller leaves the namespace's events in st.pending.
func (c *Coordinator) flushNamespace(ctx context.Context, st *state, namespace string, events []pendingEvent) bool {
	sort.Slice(events, func(i, j int) bool {
		if events[i].sequence != events[j].sequence {
			return events[i].sequence < events[j].sequence
		}
		return events[i].eventIndex < events[j].eventIndex
	})

	triples := make([]types.Triple, len(events))
	maxSeqByShard := make(map[string]uint64)
	for i, ev := range events {
		triples[i] = ev.triple
		if ev.sequence > maxSeqByShard[ev.shardID] {
			maxSeqByShard[ev.shardID] = ev.sequence
		}
	}

	chunk, err := graphcol.Encode(namespace, triples)
	if err != nil {
		c.logger.Error().Err(err).Str("namespace", namespace).Msg("flush encode failed, retrying next alarm")
		return false
	}

	chunkID := string(c.idGen.Next())
	chunkKey := fmt.Sprintf("datasets/%s/chunks/%s.chunk", namespace, chunkID)
	if err := c.store.Put(ctx, chunkKey, chunk); err != nil {
		c.logger.Error().Err(err).Str("namespace", namespace).Msg("flush publish failed, retrying next alarm")
		return false
	}

	if err := c.publishManifest(ctx, namespace, triples, len(chunk)); err != nil {
		c.logger.Error().Err(err).Str("namespace", namespace).Msg("manifest publish failed, retrying next alarm")
		return false
	}

	st.stats.eventsFlushed += len(events)
	st.stats.flushCount++
	st.stats.bytesWritten += int64(len(chunk))

	for shardID, seq := range maxSeqByShard {
		if err := c.state.Save(ctx, shardID, seq); err != nil {
			c.logger.Error().Err(err).Str("shardId", shardID).Msg("failed to persist lastSequence")
		}
		sess, ok := st.sessions[shardID]
		if !ok {
			continue
		}
		sess.lastSequence = seq
		if err := sess.send(wire.KindAck, wire.AckPayload{ShardID: shardID, Sequence: seq}); err != nil {
			c.logger.Warn().Err(err).Str("shardId", shardID).Msg("failed to send ack")
		}
	}

	c.logger.Info().
		Str("namespace", namespace).
		Int("triples", len(triples)).
		Str("chunk", chunkKey).
		Msg("flushed namespace")
	return true
}
