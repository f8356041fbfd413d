package coordinator

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dreamware/torusdb/internal/wire"
)

// SessionState is the per-shard session state machine from §4.8.
// LISTENING (no Session value exists yet) is not a member of this
// type; it describes the coordinator before any connection arrives.
type SessionState uint8

const (
	// StateOpen is a session accepted but not yet registered.
	StateOpen SessionState = iota
	// StateRegistered has handled a register message.
	StateRegistered
	// StateActive has received at least one cdc batch.
	StateActive
	// StateDraining is a session whose transport closed unexpectedly,
	// held for the grace period before its registration is dropped.
	StateDraining
	// StateClosed has been fully removed from the coordinator. An
	// explicit deregister moves a session here directly, without
	// passing through StateDraining.
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateRegistered:
		return "REGISTERED"
	case StateActive:
		return "ACTIVE"
	case StateDraining:
		return "DRAINING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// session is one shard's websocket connection plus the state the
// coordinator's run loop tracks for it. Every field is touched only
// from the run loop goroutine except writeMu/conn, which the alarm and
// flush paths also use to send acks; writeMu serializes those writes
// since gorilla/websocket connections do not support concurrent
// writers.
type session struct {
	connID       uuid.UUID
	shardID      string
	namespace    string
	state        SessionState
	lastSequence uint64

	conn    *websocket.Conn
	writeMu sync.Mutex

	graceTimer *time.Timer
}

// newSession assigns a fresh connID per accepted transport connection,
// distinct from shardID: a shard reconnecting after a drop gets a new
// session with the same shardID but a new connID, which disambiguates
// which physical connection a log line or grace-period race refers to.
func newSession(shardID string, conn *websocket.Conn) *session {
	return &session{connID: uuid.New(), shardID: shardID, state: StateOpen, conn: conn}
}

// send frames and writes one wire message, serialized against
// concurrent writers on the same connection.
func (sess *session) send(kind wire.Kind, payload any) error {
	data, err := wire.Encode(kind, payload)
	if err != nil {
		return err
	}
	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	return sess.conn.WriteMessage(websocket.TextMessage, data)
}

func (sess *session) closeConn() {
	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	_ = sess.conn.Close()
}

// Info is the public, copy-safe snapshot of a session used by the
// /shards status endpoint and tests.
type Info struct {
	ConnID       string `json:"connId"`
	ShardID      string `json:"shardId"`
	Namespace    string `json:"namespace"`
	State        string `json:"state"`
	LastSequence uint64 `json:"lastSequence"`
}

func (sess *session) info() Info {
	return Info{
		ConnID:       sess.connID.String(),
		ShardID:      sess.shardID,
		Namespace:    sess.namespace,
		State:        sess.state.String(),
		LastSequence: sess.lastSequence,
	}
}
