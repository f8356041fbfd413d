package coordinator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/dreamware/torusdb/internal/objectstore"
	"github.com/dreamware/torusdb/internal/types"
	"github.com/dreamware/torusdb/internal/wire"
)

// pendingEvent is one triple mutation buffered for flush, carrying
// enough of its origin to order it correctly within a flush group and
// to ack the right shard once it's durable.
type pendingEvent struct {
	shardID    string
	sequence   uint64
	eventIndex int
	triple     types.Triple
}

// runStats accumulates the counters behind the /stats endpoint.
type runStats struct {
	eventsFlushed int
	flushCount    int
	bytesWritten  int64
	startup       time.Time
}

// state is every piece of data the run loop's command functions are
// allowed to touch; nothing outside coordinator.go ever reads or
// writes it directly.
type state struct {
	sessions     map[string]*session  // shardID -> session
	pending      map[string][]pendingEvent // namespace -> buffered events
	pendingCount int
	persistedSeq map[string]uint64 // shardID -> lastSequence, loaded at startup
	alarmPending bool
	stats        runStats
}

// Stats is the observability snapshot from §4.8.
type Stats struct {
	EventsBuffered   int   `json:"eventsBuffered"`
	EventsFlushed    int   `json:"eventsFlushed"`
	FlushCount       int   `json:"flushCount"`
	RegisteredShards int   `json:"registeredShards"`
	StartupTimestamp int64 `json:"startupTimestamp"`
	UptimeMs         int64 `json:"uptimeMs"`
	BytesWritten     int64 `json:"bytesWritten"`
}

// Coordinator is the CDC pipeline coordinator (C8). Every mutation of
// shared state is submitted as a command over cmds and executed
// serially by the single run-loop goroutine started in New.
type Coordinator struct {
	cfg    Config
	store  objectstore.Store
	state  *StateStore
	logger zerolog.Logger
	idGen  *types.TxIDGenerator

	cmds chan func(*state)
	done chan struct{}
}

// New constructs a Coordinator and starts its run loop. store backs
// chunk/manifest publishing; stateStore persists per-shard
// lastSequence for restart recovery.
func New(cfg Config, store objectstore.Store, stateStore *StateStore, logger zerolog.Logger) *Coordinator {
	c := &Coordinator{
		cfg:    cfg,
		store:  store,
		state:  stateStore,
		logger: logger,
		idGen:  types.NewTxIDGenerator(),
		cmds:   make(chan func(*state), 256),
		done:   make(chan struct{}),
	}
	go c.run()
	return c
}

func nowMillis() int64 { return time.Now().UnixMilli() }

func (c *Coordinator) run() {
	st := &state{
		sessions: make(map[string]*session),
		pending:  make(map[string][]pendingEvent),
		stats:    runStats{startup: time.Now()},
	}
	if persisted, err := c.state.LoadAll(context.Background()); err == nil {
		st.persistedSeq = persisted
	} else {
		c.logger.Error().Err(err).Msg("failed to load persisted coordinator state")
		st.persistedSeq = map[string]uint64{}
	}

	for {
		select {
		case cmd := <-c.cmds:
			cmd(st)
		case <-c.done:
			return
		}
	}
}

// submit enqueues fn to run on the single state-owning goroutine,
// blocking until there is room (or the coordinator is shutting down).
func (c *Coordinator) submit(fn func(*state)) {
	select {
	case c.cmds <- fn:
	case <-c.done:
	}
}

// Close stops the run loop. In-flight flushes started before Close is
// called still run to completion, matching §5's "partially-completed
// flushes ... run to completion, then ack".
func (c *Coordinator) Close() error {
	close(c.done)
	return nil
}

// Stats returns a point-in-time snapshot of the observability surface.
func (c *Coordinator) Stats() Stats {
	resp := make(chan Stats, 1)
	c.submit(func(st *state) {
		resp <- Stats{
			EventsBuffered:   st.pendingCount,
			EventsFlushed:    st.stats.eventsFlushed,
			FlushCount:       st.stats.flushCount,
			RegisteredShards: len(st.sessions),
			StartupTimestamp: st.stats.startup.UnixMilli(),
			UptimeMs:         time.Since(st.stats.startup).Milliseconds(),
			BytesWritten:     st.stats.bytesWritten,
		}
	})
	return <-resp
}

// Shards lists every currently-tracked session.
func (c *Coordinator) Shards() []Info {
	resp := make(chan []Info, 1)
	c.submit(func(st *state) {
		out := make([]Info, 0, len(st.sessions))
		for _, sess := range st.sessions {
			out = append(out, sess.info())
		}
		resp <- out
	})
	return <-resp
}

// Connect takes ownership of an accepted websocket connection and runs
// its session reader loop until the connection closes.
func (c *Coordinator) Connect(conn *websocket.Conn) {
	sess := newSession("", conn)
	defer sess.closeConn()

	var shardID string
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if shardID != "" {
				c.submit(func(st *state) { c.handleDisconnect(st, shardID) })
			}
			return
		}

		msg, err := wire.Decode(data)
		if err != nil {
			c.logger.Warn().Err(err).Msg("malformed session frame")
			continue
		}

		switch msg.Kind {
		case wire.KindRegister:
			var p wire.RegisterPayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				c.logger.Warn().Err(err).Msg("malformed register payload")
				continue
			}
			shardID = p.ShardID
			sess.shardID = p.ShardID
			sess.namespace = p.Namespace
			c.submit(func(st *state) { c.handleRegister(st, sess, p) })

		case wire.KindCDC:
			var p wire.CDCPayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				c.logger.Warn().Err(err).Msg("malformed cdc payload")
				continue
			}
			c.submit(func(st *state) { c.handleCDC(st, sess, p) })

		case wire.KindDeregister:
			var p wire.DeregisterPayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				c.logger.Warn().Err(err).Msg("malformed deregister payload")
				continue
			}
			c.submit(func(st *state) { c.handleDeregister(st, p.ShardID) })

		default:
			c.logger.Warn().Str("kind", string(msg.Kind)).Msg("unexpected message kind from shard")
		}
	}
}

func (c *Coordinator) handleRegister(st *state, sess *session, p wire.RegisterPayload) {
	last := p.LastSequence
	if persisted, ok := st.persistedSeq[p.ShardID]; ok && persisted > last {
		last = persisted
	}
	if old, ok := st.sessions[p.ShardID]; ok && old != sess && old.graceTimer != nil {
		old.graceTimer.Stop()
	}

	sess.lastSequence = last
	sess.state = StateRegistered
	st.sessions[p.ShardID] = sess

	c.logger.Info().
		Str("connId", sess.connID.String()).
		Str("shardId", p.ShardID).
		Str("namespace", p.Namespace).
		Uint64("lastSequence", last).
		Msg("shard registered")

	if err := sess.send(wire.KindRegister, wire.RegisteredPayload{ShardID: p.ShardID}); err != nil {
		c.logger.Warn().Err(err).Str("shardId", p.ShardID).Msg("failed to ack register")
	}
}

func (c *Coordinator) handleDeregister(st *state, shardID string) {
	sess, ok := st.sessions[shardID]
	if !ok {
		return
	}
	c.logger.Info().Str("shardId", shardID).Msg("shard deregistered")
	delete(st.sessions, shardID)
	sess.state = StateClosed
}

func (c *Coordinator) handleDisconnect(st *state, shardID string) {
	sess, ok := st.sessions[shardID]
	if !ok || sess.state == StateDraining || sess.state == StateClosed {
		return
	}
	sess.state = StateDraining
	c.logger.Warn().Str("shardId", shardID).Msg("session closed unexpectedly; entering grace period")

	d := time.Duration(c.cfg.SessionGraceMs) * time.Millisecond
	sess.graceTimer = time.AfterFunc(d, func() {
		c.submit(func(st *state) { c.finalizeClose(st, shardID, sess) })
	})
}

func (c *Coordinator) finalizeClose(st *state, shardID string, sess *session) {
	cur, ok := st.sessions[shardID]
	if !ok || cur != sess || cur.state != StateDraining {
		return // superseded by a reconnect or explicit deregister
	}
	delete(st.sessions, shardID)
	cur.state = StateClosed
	c.logger.Info().Str("shardId", shardID).Msg("shard registration dropped after grace period")
}

func (c *Coordinator) handleCDC(st *state, sess *session, p wire.CDCPayload) {
	if sess.state != StateRegistered && sess.state != StateActive {
		_ = sess.send(wire.KindError, wire.ErrorPayload{Code: "unregistered", Message: "cdc received before register"})
		return
	}
	if p.Sequence <= sess.lastSequence {
		_ = sess.send(wire.KindError, wire.ErrorPayload{
			Code:    "sequence",
			Message: "sequence does not exceed last acked sequence",
		})
		return
	}
	if st.pendingCount+len(p.Events) > c.cfg.MaxBufferedEvents {
		_ = sess.send(wire.KindError, wire.ErrorPayload{Code: "overload", Message: "pending queue full"})
		return
	}

	triples, err := wire.FromWireEvents(p.Events)
	if err != nil {
		_ = sess.send(wire.KindError, wire.ErrorPayload{Code: "decode", Message: err.Error()})
		return
	}

	wasEmpty := st.pendingCount == 0
	for i, t := range triples {
		st.pending[sess.namespace] = append(st.pending[sess.namespace], pendingEvent{
			shardID:    sess.shardID,
			sequence:   p.Sequence,
			eventIndex: p.Events[i].EventIndex,
			triple:     t,
		})
	}
	st.pendingCount += len(triples)
	sess.state = StateActive

	if wasEmpty && st.pendingCount > 0 {
		c.armAlarm(st)
	}
	if st.pendingCount >= c.cfg.BatchSize {
		c.doFlush(st)
	}
}
