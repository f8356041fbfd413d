// Package main runs one triple-store shard: its HTTP+JSON exposure of
// shard.API, and a background publisher that drains the shard's CDC
// buffer to the coordinator over a websocket session.
//
// Configuration (all environment variables, all optional except
// SHARD_ID and SHARD_NAMESPACE):
//
//	SHARD_ID           Unique shard identifier (required)
//	SHARD_NAMESPACE    Namespace this shard owns (required)
//	SHARD_LISTEN       HTTP listen address (default ":8081")
//	SHARD_DATA_PATH    sqlite triple-store path (default "<id>.db")
//	SHARD_SEQ_PATH     CDC sequence counter path (default "<id>.seq")
//	SHARD_CDC_CAPACITY CDC buffer capacity (default cdc.DefaultCapacity)
//	COORDINATOR_WS_URL Coordinator websocket URL (default "ws://127.0.0.1:8090/connect")
//	SHARD_CDC_POLL_MS  How often to drain the CDC buffer, in ms (default 50)
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dreamware/torusdb/internal/index"
	"github.com/dreamware/torusdb/internal/shard"
)

func main() {
	logger := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Str("component", "shard").Logger()

	id := getenv("SHARD_ID", "")
	namespace := getenv("SHARD_NAMESPACE", "")
	if id == "" || namespace == "" {
		logger.Fatal().Msg("SHARD_ID and SHARD_NAMESPACE are required")
	}

	addr := getenv("SHARD_LISTEN", ":8081")
	dataPath := getenv("SHARD_DATA_PATH", id+".db")
	seqPath := getenv("SHARD_SEQ_PATH", id+".seq")
	coordURL := getenv("COORDINATOR_WS_URL", "ws://127.0.0.1:8090/connect")
	cdcCapacity := getenvInt("SHARD_CDC_CAPACITY", 0)
	pollMs := getenvInt("SHARD_CDC_POLL_MS", 50)

	s, err := shard.Open(id, namespace, dataPath, index.DefaultConfig(), cdcCapacity)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open shard")
	}
	logger.Info().Str("shardId", id).Str("namespace", namespace).Str("path", dataPath).Msg("shard opened")

	api := &apiServer{shard: s, logger: logger.With().Str("subcomponent", "api").Logger()}

	publisherCtx, cancelPublisher := context.WithCancel(context.Background())
	publisher := &cdcPublisher{
		shardID:      id,
		namespace:    namespace,
		coordURL:     coordURL,
		buf:          s.CDC,
		seq:          newSeqState(seqPath),
		logger:       logger.With().Str("subcomponent", "cdc").Logger(),
		pollInterval: time.Duration(pollMs) * time.Millisecond,
	}
	go publisher.run(publisherCtx)

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           api.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("shard listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutting down")
	cancelPublisher()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown error")
	}
	logger.Info().Msg("shard stopped")
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
