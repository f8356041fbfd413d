package coordinator

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite"

	"github.com/dreamware/torusdb/internal/terrors"
)

const stateSchemaDDL = `
CREATE TABLE IF NOT EXISTS coordinator_state (
	shard_id      TEXT PRIMARY KEY,
	last_sequence INTEGER NOT NULL
);`

// StateStore persists {shardId -> lastSequence} so a coordinator
// restart recovers each shard's durable flush point (§4.8 Recovery)
// instead of starting from zero.
type StateStore struct {
	db *sql.DB
}

// OpenStateStore opens (creating if absent) the sqlite database at
// path and ensures the coordinator_state table exists. path may be
// ":memory:" for tests.
func OpenStateStore(path string) (*StateStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, terrors.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(context.Background(), stateSchemaDDL); err != nil {
		db.Close()
		return nil, terrors.Fatal(err)
	}
	return &StateStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *StateStore) Close() error { return s.db.Close() }

// LoadAll returns every persisted shardId -> lastSequence pair,
// seeding the coordinator's in-memory view on startup.
func (s *StateStore) LoadAll(ctx context.Context) (map[string]uint64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT shard_id, last_sequence FROM coordinator_state`)
	if err != nil {
		return nil, terrors.Transient(err)
	}
	defer rows.Close()

	out := make(map[string]uint64)
	for rows.Next() {
		var shardID string
		var seq int64
		if err := rows.Scan(&shardID, &seq); err != nil {
			return nil, terrors.Fatal(err)
		}
		out[shardID] = uint64(seq)
	}
	if err := rows.Err(); err != nil {
		return nil, terrors.Transient(err)
	}
	return out, nil
}

// Save durably records shardID's lastSequence, overwriting any prior
// value. Called only after a flush's object-storage writes succeed.
func (s *StateStore) Save(ctx context.Context, shardID string, lastSequence uint64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO coordinator_state (shard_id, last_sequence) VALUES (?, ?)
		 ON CONFLICT(shard_id) DO UPDATE SET last_sequence = excluded.last_sequence`,
		shardID, int64(lastSequence))
	if err != nil {
		return terrors.Transient(err)
	}
	return nil
}
