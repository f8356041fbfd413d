package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/dreamware/torusdb/internal/cdc"
	"github.com/dreamware/torusdb/internal/wire"
)

// cdcPublisher drains a shard's CDC buffer and pushes batches to the
// coordinator over a client-side gorilla/websocket session, redialing
// on any transport error. It owns the session's sequence counter: each
// published batch gets the next number after the last one persisted.
type cdcPublisher struct {
	shardID      string
	namespace    string
	coordURL     string
	buf          *cdc.Buffer
	seq          *seqState
	logger       zerolog.Logger
	pollInterval time.Duration
}

func sendMsg(conn *websocket.Conn, kind wire.Kind, payload any) error {
	data, err := wire.Encode(kind, payload)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func readMsg(conn *websocket.Conn) (wire.Message, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return wire.Message{}, err
	}
	return wire.Decode(data)
}

// run dials, registers, and drains the buffer until ctx is cancelled,
// reconnecting after any session error.
func (p *cdcPublisher) run(ctx context.Context) {
	for ctx.Err() == nil {
		if err := p.runOnce(ctx); err != nil {
			p.logger.Warn().Err(err).Msg("cdc session ended, reconnecting")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func (p *cdcPublisher) runOnce(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, p.coordURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	seq := p.seq.Load()
	if err := sendMsg(conn, wire.KindRegister, wire.RegisterPayload{
		ShardID: p.shardID, Namespace: p.namespace, LastSequence: seq,
	}); err != nil {
		return err
	}
	reply, err := readMsg(conn)
	if err != nil {
		return err
	}
	if reply.Kind != wire.KindRegister {
		return fmt.Errorf("unexpected register reply kind %q", reply.Kind)
	}
	p.logger.Info().Str("shardId", p.shardID).Uint64("lastSequence", seq).Msg("cdc session registered")

	incoming := make(chan wire.Message, 8)
	readErrs := make(chan error, 1)
	go func() {
		for {
			msg, err := readMsg(conn)
			if err != nil {
				readErrs <- err
				return
			}
			incoming <- msg
		}
	}()

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = sendMsg(conn, wire.KindDeregister, wire.DeregisterPayload{ShardID: p.shardID})
			return nil

		case err := <-readErrs:
			return err

		case msg := <-incoming:
			p.handleReply(msg)

		case <-ticker.C:
			events := p.buf.Flush()
			if len(events) == 0 {
				continue
			}
			wireEvents, err := wire.ToWireEvents(events)
			if err != nil {
				p.logger.Error().Err(err).Msg("failed to encode cdc batch")
				continue
			}
			seq++
			if err := sendMsg(conn, wire.KindCDC, wire.CDCPayload{
				ShardID: p.shardID, Events: wireEvents, Sequence: seq,
			}); err != nil {
				return err
			}
			if err := p.seq.Save(seq); err != nil {
				p.logger.Error().Err(err).Msg("failed to persist cdc sequence")
			}
		}
	}
}

func (p *cdcPublisher) handleReply(msg wire.Message) {
	switch msg.Kind {
	case wire.KindAck:
		var ack wire.AckPayload
		if err := json.Unmarshal(msg.Payload, &ack); err == nil {
			p.logger.Debug().Uint64("sequence", ack.Sequence).Msg("cdc batch acked")
		}
	case wire.KindError:
		var e wire.ErrorPayload
		if err := json.Unmarshal(msg.Payload, &e); err == nil {
			p.logger.Warn().Str("code", e.Code).Str("message", e.Message).Msg("coordinator rejected cdc batch")
		}
	}
}
