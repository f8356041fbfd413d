package shard

import (
	"context"

	"github.com/dreamware/torusdb/internal/query"
	"github.com/dreamware/torusdb/internal/types"
)

// Shard implements query.DataSource directly: the executor runs
// against live shard state with no adapter type and no network hop.
var _ query.DataSource = (*Shard)(nil)

// GetObject returns the live object for (subject, predicate), or
// ok=false if there is none.
func (s *Shard) GetObject(ctx context.Context, subject types.EntityId, predicate types.Predicate) (types.TypedObject, bool, error) {
	return s.store.GetLatestTriple(ctx, subject, predicate)
}

// AllFields returns subject's live predicate -> object pairs, from the
// shard's fields index rather than a store scan.
func (s *Shard) AllFields(ctx context.Context, subject types.EntityId) (map[types.Predicate]types.TypedObject, error) {
	e, ok, err := s.GetEntity(ctx, subject)
	if err != nil {
		return nil, err
	}
	if !ok {
		return map[types.Predicate]types.TypedObject{}, nil
	}
	return e.Fields, nil
}

// SubjectsWithValue is a POS probe delegated to the index maintainer.
func (s *Shard) SubjectsWithValue(predicate types.Predicate, value types.TypedObject) []types.EntityId {
	return s.idx.SubjectsWithValue(predicate, value)
}

// ReverseTraverse is an OSP probe delegated to the index maintainer.
func (s *Shard) ReverseTraverse(target types.EntityId, predicate types.Predicate) []types.EntityId {
	return s.idx.ReverseTraverse(target, predicate)
}

// AllSubjectsForPredicate linear-scans the shard's fields index for
// every subject carrying predicate at all. It backs the query
// executor's bare-predicate-Start fallback when that Start is not
// immediately fused with an equality Filter into a POS probe.
func (s *Shard) AllSubjectsForPredicate(ctx context.Context, predicate types.Predicate) ([]types.EntityId, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.EntityId
	for subj, preds := range s.fields {
		if preds[predicate] {
			out = append(out, subj)
		}
	}
	return out, nil
}

// QueryOptions bounds a Query call's result page, per §6's
// QueryOptions shape.
type QueryOptions struct {
	Limit  int
	Cursor string
}

// Query compiles (or fetches from cache) q and executes it against
// this shard, returning one page of results.
func (s *Shard) Query(ctx context.Context, q string, opts QueryOptions) (query.Result, error) {
	plan, err := s.planCache.GetOrCompile(q)
	if err != nil {
		return query.Result{}, err
	}
	return query.Execute(ctx, s, plan, opts.Cursor, opts.Limit)
}
