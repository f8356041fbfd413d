// Package wire defines the JSON message envelope carried over the
// shard<->coordinator WebSocket session (§4.8's session protocol): one
// Kind per semantic operation, framed with gorilla/websocket.
package wire

import (
	"encoding/json"
)

// Kind discriminates the five session message kinds.
type Kind string

const (
	KindRegister   Kind = "register"
	KindDeregister Kind = "deregister"
	KindCDC        Kind = "cdc"
	KindAck        Kind = "ack"
	KindError      Kind = "error"
)

// Message is the outer envelope every session frame carries. Payload
// holds the kind-specific body, deferred as raw JSON so a session loop
// can dispatch on Kind before deciding how to unmarshal the rest.
type Message struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// RegisterPayload is the body of a register message: the shard's
// first message on a session, declaring its identity and resume point.
type RegisterPayload struct {
	ShardID       string `json:"shardId"`
	Namespace     string `json:"namespace"`
	LastSequence  uint64 `json:"lastSequence"`
}

// RegisteredPayload acknowledges a register.
type RegisteredPayload struct {
	ShardID string `json:"shardId"`
}

// DeregisterPayload announces graceful shard shutdown.
type DeregisterPayload struct {
	ShardID string `json:"shardId"`
}

// WireEvent is the over-the-wire form of a cdc.Event: the triple's
// fields flattened to JSON-friendly primitives rather than carrying
// types.Triple's internal representation directly.
type WireEvent struct {
	Type          string `json:"type"`
	Subject       string `json:"subject"`
	Predicate     string `json:"predicate"`
	ObjectTag     uint8  `json:"objectTag"`
	ObjectJSON    []byte `json:"objectJson"`
	Timestamp     int64  `json:"timestamp"`
	TxID          string `json:"txId"`
	EventIndex    int    `json:"eventIndex"`
}

// CDCPayload is an event batch with the highest sequence of its events.
type CDCPayload struct {
	ShardID  string      `json:"shardId"`
	Events   []WireEvent `json:"events"`
	Sequence uint64      `json:"sequence"`
}

// AckPayload is sent after a durable flush that includes events up to
// and including Sequence.
type AckPayload struct {
	ShardID  string `json:"shardId"`
	Sequence uint64 `json:"sequence"`
}

// ErrorPayload is non-fatal: it does not tear the connection down
// unless the shard chooses to.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Encode marshals kind and payload into a Message's wire bytes.
func Encode(kind Kind, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Kind: kind, Payload: body})
}

// Decode unmarshals data into a Message envelope; callers switch on
// Kind and unmarshal Payload into the matching *Payload type.
func Decode(data []byte) (Message, error) {
	var msg Message
	err := json.Unmarshal(data, &msg)
	return msg, err
}

// decodePayload unmarshals msg.Payload into target, a pointer to one of
// the *Payload types above.
func decodePayload(msg Message, target any) error {
	return json.Unmarshal(msg.Payload, target)
}
