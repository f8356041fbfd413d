// Package main runs the CDC pipeline coordinator: a single long-lived
// process that accepts a persistent session from every shard, buffers
// their change events, and flushes compacted GraphCol chunks to object
// storage.
//
// Configuration (all environment variables, all optional):
//
//	COORDINATOR_ADDR       Listen address (default ":8090")
//	COORDINATOR_STATE_PATH sqlite recovery-state path (default "coordinator.db")
//	COORDINATOR_BUCKET     S3 bucket for chunk/manifest storage
//	COORDINATOR_BATCH_SIZE Size-driven flush trigger (default 1000)
//	COORDINATOR_BATCH_MS   Time-driven flush trigger, in ms (default 100)
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/dreamware/torusdb/internal/coordinator"
	"github.com/dreamware/torusdb/internal/objectstore"
)

func main() {
	logger := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Str("component", "coordinator").Logger()

	addr := getenv("COORDINATOR_ADDR", ":8090")
	statePath := getenv("COORDINATOR_STATE_PATH", "coordinator.db")
	bucket := getenv("COORDINATOR_BUCKET", "")

	cfg := coordinator.DefaultConfig()
	cfg.BatchSize = getenvInt("COORDINATOR_BATCH_SIZE", cfg.BatchSize)
	cfg.BatchTimeoutMs = getenvInt("COORDINATOR_BATCH_MS", cfg.BatchTimeoutMs)

	stateStore, err := coordinator.OpenStateStore(statePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open coordinator state store")
	}
	defer stateStore.Close()

	store := newObjectStore(bucket, logger)

	coord := coordinator.New(cfg, store, stateStore, logger)
	defer coord.Close()

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           coord.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("coordinator listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown error")
	}
	logger.Info().Msg("coordinator stopped")
}

// newObjectStore wires an S3-backed store when a bucket is configured,
// falling back to an in-memory store for local/dev runs so the
// coordinator is runnable without cloud credentials.
func newObjectStore(bucket string, logger zerolog.Logger) objectstore.Store {
	if bucket == "" {
		logger.Warn().Msg("COORDINATOR_BUCKET unset; using in-memory object store")
		return objectstore.NewMemory()
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load AWS config")
	}
	client := s3.NewFromConfig(awsCfg)
	return objectstore.NewS3Store(client, bucket)
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
