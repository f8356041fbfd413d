// Package triplestore is the per-shard, single-writer, append-only
// typed triple store (C1): durable storage and primary access for
// triples within a namespace, backed by modernc.org/sqlite (a pure-Go,
// cgo-free embedded SQL engine — out-of-pack, see DESIGN.md).
package triplestore

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dreamware/torusdb/internal/graphcol"
	"github.com/dreamware/torusdb/internal/terrors"
	"github.com/dreamware/torusdb/internal/types"
)

// Store is a single shard's triple store. All writes serialize through
// a single *sql.DB connection (single-writer discipline);
// reads may run concurrently against snapshot views the engine
// provides.
type Store struct {
	db       *sql.DB
	hooks    Hooks
	chunkGen *types.TxIDGenerator
}

// Open opens (creating if absent) the SQLite database at path and
// ensures its schema exists. hooks receives synchronous index-update
// callbacks for every write; pass NoopHooks{} to run without one.
func Open(path string, hooks Hooks) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, terrors.Fatal(err)
	}
	// A single-writer shard never benefits from connection pooling on
	// the write path and SQLite serializes writers anyway; one
	// connection avoids "database is locked" churn under concurrent
	// callers.
	db.SetMaxOpenConns(1)

	if hooks == nil {
		hooks = NoopHooks{}
	}
	s := &Store{db: db, hooks: hooks, chunkGen: types.NewTxIDGenerator()}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaDDL); err != nil {
		return terrors.Fatal(err)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO schema_meta (key, value) VALUES ('version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, schemaVersion)
	if err != nil {
		return terrors.Fatal(err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

type rowValues struct {
	objRef    sql.NullString
	objStr    sql.NullString
	objI64    sql.NullInt64
	objF64    sql.NullFloat64
	objBool   sql.NullInt64
	objTS     sql.NullInt64
	objLat    sql.NullFloat64
	objLng    sql.NullFloat64
	objBinary []byte
	objLang   sql.NullString
	objUnit   sql.NullString
}

func toRowValues(o types.TypedObject) rowValues {
	var rv rowValues
	switch o.Tag {
	case types.TagRef:
		rv.objRef = sql.NullString{String: o.Ref.String(), Valid: true}
	case types.TagString, types.TagURL:
		rv.objStr = sql.NullString{String: o.Str, Valid: true}
	case types.TagInt32:
		rv.objI64 = sql.NullInt64{Int64: int64(o.I32), Valid: true}
	case types.TagInt64:
		rv.objI64 = sql.NullInt64{Int64: o.I64, Valid: true}
	case types.TagFloat64:
		rv.objF64 = sql.NullFloat64{Float64: o.F64, Valid: true}
	case types.TagBool:
		v := int64(0)
		if o.Bool {
			v = 1
		}
		rv.objBool = sql.NullInt64{Int64: v, Valid: true}
	case types.TagTimestamp:
		rv.objTS = sql.NullInt64{Int64: o.TS, Valid: true}
	case types.TagGeoPoint:
		rv.objLat = sql.NullFloat64{Float64: o.Geo.Lat, Valid: true}
		rv.objLng = sql.NullFloat64{Float64: o.Geo.Lng, Valid: true}
	case types.TagMonolingual:
		rv.objStr = sql.NullString{String: o.Mono.Text, Valid: true}
		rv.objLang = sql.NullString{String: o.Mono.Lang, Valid: true}
	case types.TagQuantity:
		rv.objF64 = sql.NullFloat64{Float64: o.Quant.Value, Valid: true}
		if o.Quant.Unit != "" {
			rv.objUnit = sql.NullString{String: o.Quant.Unit, Valid: true}
		}
	case types.TagJSON, types.TagBinary:
		rv.objBinary = o.Bytes
	}
	return rv
}

func fromRow(objType uint8, rv rowValues) types.TypedObject {
	o := types.TypedObject{Tag: types.Tag(objType)}
	switch o.Tag {
	case types.TagRef:
		o.Ref = types.EntityId(rv.objRef.String)
	case types.TagString, types.TagURL:
		o.Str = rv.objStr.String
	case types.TagInt32:
		o.I32 = int32(rv.objI64.Int64)
	case types.TagInt64:
		o.I64 = rv.objI64.Int64
	case types.TagFloat64:
		o.F64 = rv.objF64.Float64
	case types.TagBool:
		o.Bool = rv.objBool.Int64 != 0
	case types.TagTimestamp:
		o.TS = rv.objTS.Int64
	case types.TagGeoPoint:
		o.Geo = types.GeoPoint{Lat: rv.objLat.Float64, Lng: rv.objLng.Float64}
	case types.TagMonolingual:
		o.Mono = types.Monolingual{Text: rv.objStr.String, Lang: rv.objLang.String}
	case types.TagQuantity:
		o.Quant = types.Quantity{Value: rv.objF64.Float64, Unit: rv.objUnit.String}
	case types.TagJSON, types.TagBinary:
		o.Bytes = rv.objBinary
	}
	return o
}

const insertColumns = `subject, predicate, obj_type, obj_ref, obj_string, obj_int64, obj_float64,
	obj_bool, obj_timestamp, obj_lat, obj_lng, obj_binary, obj_lang, obj_unit, timestamp, tx_id`

func insertArgs(t types.Triple) []any {
	rv := toRowValues(t.Object)
	return []any{
		t.Subject.String(), t.Predicate.String(), uint8(t.Object.Tag),
		rv.objRef, rv.objStr, rv.objI64, rv.objF64, rv.objBool, rv.objTS,
		rv.objLat, rv.objLng, rv.objBinary, rv.objLang, rv.objUnit,
		t.Timestamp, t.TxID.String(),
	}
}

func insertTx(ctx context.Context, tx *sql.Tx, t types.Triple) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO triples (`+insertColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`, insertArgs(t)...)
	if err != nil {
		return terrors.Transient(err)
	}
	return nil
}

// InsertTriple appends t as a new row. Fails with ValidationError for
// any type-specific invariant violation (checked by t.Validate() before
// any row is written); otherwise the write and the Index Maintainer's
// OnInsert run in the same transaction.
func (s *Store) InsertTriple(ctx context.Context, t types.Triple) error {
	if err := t.Validate(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return terrors.Transient(err)
	}
	defer tx.Rollback()

	if err := insertTx(ctx, tx, t); err != nil {
		return err
	}
	if err := s.hooks.OnInsert(t); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return terrors.Transient(err)
	}
	return nil
}

func (s *Store) latestTx(ctx context.Context, q queryer, subject types.EntityId, predicate types.Predicate) (types.Triple, bool, error) {
	row := q.QueryRowContext(ctx, `
		SELECT obj_type, obj_ref, obj_string, obj_int64, obj_float64, obj_bool,
		       obj_timestamp, obj_lat, obj_lng, obj_binary, obj_lang, obj_unit,
		       timestamp, tx_id
		FROM triples
		WHERE subject = ? AND predicate = ?
		ORDER BY timestamp DESC, tx_id DESC
		LIMIT 1`, subject.String(), predicate.String())

	var objType uint8
	var rv rowValues
	var timestamp int64
	var txID string
	err := row.Scan(&objType, &rv.objRef, &rv.objStr, &rv.objI64, &rv.objF64, &rv.objBool,
		&rv.objTS, &rv.objLat, &rv.objLng, &rv.objBinary, &rv.objLang, &rv.objUnit,
		&timestamp, &txID)
	if err == sql.ErrNoRows {
		return types.Triple{}, false, nil
	}
	if err != nil {
		return types.Triple{}, false, terrors.Transient(err)
	}

	return types.Triple{
		Subject:   subject,
		Predicate: predicate,
		Object:    fromRow(objType, rv),
		Timestamp: timestamp,
		TxID:      types.TransactionId(txID),
	}, true, nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// GetLatestTriple returns the latest non-tombstone row for (subject,
// predicate), or (zero value, false, nil) if absent or the latest
// version is a tombstone.
func (s *Store) GetLatestTriple(ctx context.Context, subject types.EntityId, predicate types.Predicate) (types.Triple, bool, error) {
	t, ok, err := s.latestTx(ctx, s.db, subject, predicate)
	if err != nil || !ok {
		return types.Triple{}, false, err
	}
	if t.Object.IsTombstone() {
		return types.Triple{}, false, nil
	}
	return t, true, nil
}

// UpdateTriple appends a new row for (subject, predicate). Fails with
// NotFound if no prior triple exists for the key; the Index
// Maintainer's OnUpdate(old, new) runs with both versions so it can
// remove stale index entries and insert fresh ones.
func (s *Store) UpdateTriple(ctx context.Context, subject types.EntityId, predicate types.Predicate, newValue types.TypedObject, txID types.TransactionId, timestamp int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return terrors.Transient(err)
	}
	defer tx.Rollback()

	old, ok, err := s.latestTx(ctx, tx, subject, predicate)
	if err != nil {
		return err
	}
	if !ok {
		return terrors.NewNotFound("triple", string(subject)+" "+string(predicate))
	}

	newTriple, err := types.NewTriple(subject, predicate, newValue, timestamp, txID)
	if err != nil {
		return err
	}
	if err := insertTx(ctx, tx, newTriple); err != nil {
		return err
	}
	if err := s.hooks.OnUpdate(old, newTriple); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return terrors.Transient(err)
	}
	return nil
}

// DeleteTriple appends a NULL-typed tombstone. Idempotent: a second
// delete still appends a new tombstone row (the store never rejects a
// repeat delete) but OnDelete is only meaningful once per distinct
// live-to-tombstone transition; callers invoking DeleteTriple on an
// already-deleted key get a harmless extra tombstone version.
func (s *Store) DeleteTriple(ctx context.Context, subject types.EntityId, predicate types.Predicate, txID types.TransactionId, timestamp int64) error {
	tombstone, err := types.NewTriple(subject, predicate, types.Null(), timestamp, txID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return terrors.Transient(err)
	}
	defer tx.Rollback()

	if err := insertTx(ctx, tx, tombstone); err != nil {
		return err
	}
	if err := s.hooks.OnDelete(tombstone); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return terrors.Transient(err)
	}
	return nil
}

// BatchInsertTriples appends all of ts atomically: either every row is
// appended or none are. The Index Maintainer's OnBatchInsert is called
// once with the full batch, letting it defer per-triple index work
// until the end.
func (s *Store) BatchInsertTriples(ctx context.Context, ts []types.Triple) error {
	for _, t := range ts {
		if err := t.Validate(); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return terrors.Transient(err)
	}
	defer tx.Rollback()

	for _, t := range ts {
		if err := insertTx(ctx, tx, t); err != nil {
			return err
		}
	}
	if err := s.hooks.OnBatchInsert(ts); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return terrors.Transient(err)
	}
	return nil
}

// ScanResult is one page of a cursor-based id-ordered scan.
type ScanResult struct {
	Triples []types.Triple
	NextID  int64 // pass as the next call's cursor; 0 means no more rows
}

// Scan reads up to limit rows with id > cursor, ordered by id: a
// stable, resumable, total order over every row ever written
// (including superseded versions and tombstones).
func (s *Store) Scan(ctx context.Context, cursor int64, limit int) (ScanResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subject, predicate, obj_type, obj_ref, obj_string, obj_int64, obj_float64,
		       obj_bool, obj_timestamp, obj_lat, obj_lng, obj_binary, obj_lang, obj_unit,
		       timestamp, tx_id
		FROM triples
		WHERE id > ?
		ORDER BY id ASC
		LIMIT ?`, cursor, limit)
	if err != nil {
		return ScanResult{}, terrors.Transient(err)
	}
	defer rows.Close()

	var result ScanResult
	for rows.Next() {
		var id int64
		var subject, predicate, txID string
		var objType uint8
		var timestamp int64
		var rv rowValues
		if err := rows.Scan(&id, &subject, &predicate, &objType, &rv.objRef, &rv.objStr,
			&rv.objI64, &rv.objF64, &rv.objBool, &rv.objTS, &rv.objLat, &rv.objLng,
			&rv.objBinary, &rv.objLang, &rv.objUnit, &timestamp, &txID); err != nil {
			return ScanResult{}, terrors.Transient(err)
		}
		result.Triples = append(result.Triples, types.Triple{
			Subject:   types.EntityId(subject),
			Predicate: types.Predicate(predicate),
			Object:    fromRow(objType, rv),
			Timestamp: timestamp,
			TxID:      types.TransactionId(txID),
		})
		result.NextID = id
	}
	if err := rows.Err(); err != nil {
		return ScanResult{}, terrors.Transient(err)
	}
	return result, nil
}

// VacuumNamespace removes superseded (non-latest) versions for every
// (subject, predicate) key whose subject falls under namespace,
// reclaiming space from the append-only history. It is a repair/
// maintenance path, not part of the normal write path: the triple
// store's MVCC semantics never require compaction for correctness,
// only for bounding storage growth.
func (s *Store) VacuumNamespace(ctx context.Context, namespace string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, terrors.Transient(err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM triples
		WHERE id IN (
			SELECT t.id FROM triples t
			WHERE t.subject LIKE ? || '%'
			AND t.id NOT IN (
				SELECT t2.id FROM triples t2
				WHERE t2.subject = t.subject AND t2.predicate = t.predicate
				ORDER BY t2.timestamp DESC, t2.tx_id DESC
				LIMIT 1
			)
		)`, namespace)
	if err != nil {
		return 0, terrors.Transient(err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, terrors.Transient(err)
	}
	if err := tx.Commit(); err != nil {
		return 0, terrors.Transient(err)
	}
	return removed, nil
}

// latestTriplesForNamespace returns exactly one row per (subject,
// predicate) key whose subject falls under namespace: the latest-wins
// view VacuumNamespace's delete targets the complement of.
func (s *Store) latestTriplesForNamespace(ctx context.Context, namespace string) ([]types.Triple, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT subject, predicate, obj_type, obj_ref, obj_string, obj_int64, obj_float64,
		       obj_bool, obj_timestamp, obj_lat, obj_lng, obj_binary, obj_lang, obj_unit,
		       timestamp, tx_id
		FROM triples t
		WHERE t.subject LIKE ? || '%'
		AND t.id IN (
			SELECT t2.id FROM triples t2
			WHERE t2.subject = t.subject AND t2.predicate = t.predicate
			ORDER BY t2.timestamp DESC, t2.tx_id DESC
			LIMIT 1
		)`, namespace)
	if err != nil {
		return nil, terrors.Transient(err)
	}
	defer rows.Close()

	var triples []types.Triple
	for rows.Next() {
		var subject, predicate, txID string
		var objType uint8
		var timestamp int64
		var rv rowValues
		if err := rows.Scan(&subject, &predicate, &objType, &rv.objRef, &rv.objStr,
			&rv.objI64, &rv.objF64, &rv.objBool, &rv.objTS, &rv.objLat, &rv.objLng,
			&rv.objBinary, &rv.objLang, &rv.objUnit, &timestamp, &txID); err != nil {
			return nil, terrors.Transient(err)
		}
		triples = append(triples, types.Triple{
			Subject:   types.EntityId(subject),
			Predicate: types.Predicate(predicate),
			Object:    fromRow(objType, rv),
			Timestamp: timestamp,
			TxID:      types.TransactionId(txID),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, terrors.Transient(err)
	}
	return triples, nil
}

// CompactNamespace reads every latest-wins triple for namespace and
// hands them to the GraphCol encoder (C6) directly, independent of the
// CDC pipeline, caching the encoded chunk locally in the chunks table
// for re-serving without a round trip to object storage. This is the
// "indexes are... reconstructable from the triple store as source of
// truth" guarantee made concrete as a callable repair/bootstrap path,
// since the original design implies it but never gives it an entry
// point of its own.
func (s *Store) CompactNamespace(ctx context.Context, namespace string) (*graphcol.Chunk, error) {
	triples, err := s.latestTriplesForNamespace(ctx, namespace)
	if err != nil {
		return nil, err
	}

	data, err := graphcol.Encode(namespace, triples)
	if err != nil {
		return nil, terrors.Transient(err)
	}
	chunk, err := graphcol.Decode(data)
	if err != nil {
		return nil, terrors.Transient(err)
	}

	id := string(s.chunkGen.Next())
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO chunks (id, namespace, data, created_at) VALUES (?, ?, ?, ?)`,
		id, namespace, data, time.Now().UnixMilli()); err != nil {
		return nil, terrors.Transient(err)
	}
	return chunk, nil
}
