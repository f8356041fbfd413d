package coordinator

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Shard agents connect from inside the cluster; origin checking is
	// the transport's job (mTLS/network policy), not this handler's.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler returns the coordinator's HTTP mux: /health, /stats, /shards,
// and the POST /connect websocket upgrade that a shard uses to open its
// session.
func (c *Coordinator) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", c.handleHealth)
	mux.HandleFunc("/stats", c.handleStats)
	mux.HandleFunc("/shards", c.handleShards)
	mux.HandleFunc("/connect", c.handleConnect)
	return mux
}

func (c *Coordinator) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(struct {
		Status string `json:"status"`
	}{Status: "ok"}); err != nil {
		c.logger.Error().Err(err).Msg("failed to encode health response")
	}
}

func (c *Coordinator) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(c.Stats()); err != nil {
		c.logger.Error().Err(err).Msg("failed to encode stats response")
	}
}

func (c *Coordinator) handleShards(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(struct {
		Shards []Info `json:"shards"`
	}{Shards: c.Shards()}); err != nil {
		c.logger.Error().Err(err).Msg("failed to encode shards response")
	}
}

func (c *Coordinator) handleConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	go c.Connect(conn)
}
