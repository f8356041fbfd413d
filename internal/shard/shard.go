package shard

import (
	"context"
	"sync"
	"time"

	"github.com/dreamware/torusdb/internal/cdc"
	"github.com/dreamware/torusdb/internal/index"
	"github.com/dreamware/torusdb/internal/query"
	"github.com/dreamware/torusdb/internal/terrors"
	"github.com/dreamware/torusdb/internal/triplestore"
	"github.com/dreamware/torusdb/internal/types"
)

// Entity is one materialized entity: its identity plus every live
// predicate -> object pair known for it.
type Entity = query.Entity

// Shard is one namespace's triple store, indexes, and CDC buffer.
type Shard struct {
	ID        string
	Namespace string

	// CDC is the shard's outbound change buffer; a coordinator session
	// drains it on a flush cycle. Exported because draining it is the
	// coordinator's job, not the shard's.
	CDC *cdc.Buffer

	store     *triplestore.Store
	idx       *index.Maintainer
	txGen     *types.TxIDGenerator
	planCache *query.PlanCache

	writeMu sync.Mutex // serializes check-then-act write sequences

	mu     sync.RWMutex
	fields map[types.EntityId]map[types.Predicate]bool
}

// Open opens (or creates) the shard's store at path, wiring its index
// maintainer as the store's write hooks and sizing its CDC buffer at
// cdcCapacity (<=0 for cdc.DefaultCapacity).
func Open(id, namespace, path string, idxCfg index.Config, cdcCapacity int) (*Shard, error) {
	idx, err := index.NewMaintainer(idxCfg)
	if err != nil {
		return nil, err
	}
	store, err := triplestore.Open(path, idx)
	if err != nil {
		return nil, err
	}
	planCache, err := query.NewPlanCache(query.DefaultPlanCacheSize)
	if err != nil {
		store.Close()
		return nil, err
	}
	return &Shard{
		ID:        id,
		Namespace: namespace,
		CDC:       cdc.New(cdcCapacity),
		store:     store,
		idx:       idx,
		txGen:     types.NewTxIDGenerator(),
		planCache: planCache,
		fields:    make(map[types.EntityId]map[types.Predicate]bool),
	}, nil
}

// Close releases the underlying store handle.
func (s *Shard) Close() error { return s.store.Close() }

func (s *Shard) trackField(subject types.EntityId, predicate types.Predicate, live bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.fields[subject]
	if live {
		if set == nil {
			set = make(map[types.Predicate]bool)
			s.fields[subject] = set
		}
		set[predicate] = true
		return
	}
	if set == nil {
		return
	}
	delete(set, predicate)
	if len(set) == 0 {
		delete(s.fields, subject)
	}
}

func (s *Shard) emit(ctx context.Context, evType cdc.EventType, t types.Triple, prev *types.Triple) error {
	return s.CDC.Append(ctx, cdc.Event{Type: evType, Triple: t, PreviousValue: prev, Timestamp: t.Timestamp})
}

func nowMillis() int64 { return time.Now().UnixMilli() }

// CreateEntity inserts a new entity identified by id with the given
// fields, failing with Conflict if id already exists. A reserved $id
// self-reference triple is inserted alongside fields, marking id as a
// known entity even when fields is empty.
func (s *Shard) CreateEntity(ctx context.Context, id types.EntityId, fields map[types.Predicate]types.TypedObject) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, exists, err := s.store.GetLatestTriple(ctx, id, types.PredicateID)
	if err != nil {
		return err
	}
	if exists {
		return terrors.NewConflict("entity already exists: " + id.String())
	}

	now := nowMillis()
	triples := make([]types.Triple, 0, len(fields)+1)

	idTriple, err := types.NewTriple(id, types.PredicateID, types.RefValue(id), now, s.txGen.Next())
	if err != nil {
		return err
	}
	triples = append(triples, idTriple)

	for pred, val := range fields {
		t, err := types.NewTriple(id, pred, val, now, s.txGen.Next())
		if err != nil {
			return err
		}
		triples = append(triples, t)
	}

	if err := s.store.BatchInsertTriples(ctx, triples); err != nil {
		return err
	}
	for _, t := range triples {
		s.trackField(t.Subject, t.Predicate, true)
		if err := s.emit(ctx, cdc.EventInsert, t, nil); err != nil {
			return err
		}
	}
	return nil
}

// UpdateEntity applies props to an existing entity, failing with
// NotFound if id is unknown. A predicate absent from the entity so far
// is inserted rather than rejected, letting updateEntity extend an
// entity's schema as well as revise it.
func (s *Shard) UpdateEntity(ctx context.Context, id types.EntityId, props map[types.Predicate]types.TypedObject) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, exists, err := s.store.GetLatestTriple(ctx, id, types.PredicateID)
	if err != nil {
		return err
	}
	if !exists {
		return terrors.NewNotFound("entity", id.String())
	}

	now := nowMillis()
	for pred, val := range props {
		old, hadOld, err := s.store.GetLatestTriple(ctx, id, pred)
		if err != nil {
			return err
		}
		txID := s.txGen.Next()
		if hadOld {
			if err := s.store.UpdateTriple(ctx, id, pred, val, txID, now); err != nil {
				return err
			}
		} else {
			t, err := types.NewTriple(id, pred, val, now, txID)
			if err != nil {
				return err
			}
			if err := s.store.InsertTriple(ctx, t); err != nil {
				return err
			}
		}
		newTriple := types.Triple{Subject: id, Predicate: pred, Object: val, Timestamp: now, TxID: txID}
		s.trackField(id, pred, true)
		var prev *types.Triple
		evType := cdc.EventInsert
		if hadOld {
			prev = &old
			evType = cdc.EventUpdate
		}
		if err := s.emit(ctx, evType, newTriple, prev); err != nil {
			return err
		}
	}
	return nil
}

// DeleteEntity tombstones every live field of id. An unknown or
// already-deleted id is a no-op, not an error: deletion is idempotent
// at the entity level even though the RPC surface conservatively
// classifies deleteEntity as non-idempotent for client retry purposes.
func (s *Shard) DeleteEntity(ctx context.Context, id types.EntityId) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	preds := make([]types.Predicate, 0, len(s.fields[id]))
	for p := range s.fields[id] {
		preds = append(preds, p)
	}
	s.mu.RUnlock()

	now := nowMillis()
	for _, pred := range preds {
		old, ok, err := s.store.GetLatestTriple(ctx, id, pred)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		txID := s.txGen.Next()
		if err := s.store.DeleteTriple(ctx, id, pred, txID, now); err != nil {
			return err
		}
		tombstone := types.Triple{Subject: id, Predicate: pred, Object: types.Null(), Timestamp: now, TxID: txID}
		s.trackField(id, pred, false)
		if err := s.emit(ctx, cdc.EventDelete, tombstone, &old); err != nil {
			return err
		}
	}
	return nil
}

// GetEntity materializes id's live fields, reporting ok=false if id is
// unknown.
func (s *Shard) GetEntity(ctx context.Context, id types.EntityId) (*Entity, bool, error) {
	s.mu.RLock()
	preds := make([]types.Predicate, 0, len(s.fields[id]))
	for p := range s.fields[id] {
		preds = append(preds, p)
	}
	s.mu.RUnlock()
	if len(preds) == 0 {
		return nil, false, nil
	}

	fields := make(map[types.Predicate]types.TypedObject, len(preds))
	for _, pred := range preds {
		obj, ok, err := s.store.GetLatestTriple(ctx, id, pred)
		if err != nil {
			return nil, false, err
		}
		if ok {
			fields[pred] = obj
		}
	}
	return &Entity{ID: id, Fields: fields}, true, nil
}
