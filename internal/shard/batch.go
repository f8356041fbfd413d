package shard

import (
	"context"

	"github.com/dreamware/torusdb/internal/terrors"
	"github.com/dreamware/torusdb/internal/types"
)

// BatchItem is one result slot in a batch call: exactly one of Value
// or Err is meaningful, matching §6's BatchResult<T> shape (a per-item
// outcome, not a single all-or-nothing result).
type BatchItem[T any] struct {
	ID    types.EntityId
	Value T
	Err   error
}

// EntityInput is one entity to create in a BatchCreate call.
type EntityInput struct {
	ID     types.EntityId
	Fields map[types.Predicate]types.TypedObject
}

// OpKind discriminates a BatchExecute operation.
type OpKind string

const (
	OpGet    OpKind = "get"
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// Op is one heterogeneous operation in a BatchExecute call.
type Op struct {
	Kind   OpKind
	ID     types.EntityId
	Fields map[types.Predicate]types.TypedObject
}

// BatchGet resolves each id independently; a miss is Value=nil,
// Err=nil, not an error, matching getEntity's own "Entity?|null"
// return shape.
func (s *Shard) BatchGet(ctx context.Context, ids []types.EntityId) []BatchItem[*Entity] {
	out := make([]BatchItem[*Entity], len(ids))
	for i, id := range ids {
		e, ok, err := s.GetEntity(ctx, id)
		if err != nil {
			out[i] = BatchItem[*Entity]{ID: id, Err: err}
			continue
		}
		if !ok {
			out[i] = BatchItem[*Entity]{ID: id}
			continue
		}
		out[i] = BatchItem[*Entity]{ID: id, Value: e}
	}
	return out
}

// BatchCreate creates each entity independently: one entity's Conflict
// does not abort the rest of the batch.
func (s *Shard) BatchCreate(ctx context.Context, entities []EntityInput) []BatchItem[struct{}] {
	out := make([]BatchItem[struct{}], len(entities))
	for i, e := range entities {
		err := s.CreateEntity(ctx, e.ID, e.Fields)
		out[i] = BatchItem[struct{}]{ID: e.ID, Err: err}
	}
	return out
}

// BatchExecute runs a heterogeneous sequence of get/create/update/
// delete operations, each independently outcome-reported. batchExecute
// is conservatively classified non-idempotent even when every op in a
// particular call happens to be a read: the classification is per
// method, not per call (see Idempotent).
func (s *Shard) BatchExecute(ctx context.Context, ops []Op) []BatchItem[any] {
	out := make([]BatchItem[any], len(ops))
	for i, op := range ops {
		switch op.Kind {
		case OpGet:
			e, _, err := s.GetEntity(ctx, op.ID)
			out[i] = BatchItem[any]{ID: op.ID, Value: e, Err: err}
		case OpCreate:
			err := s.CreateEntity(ctx, op.ID, op.Fields)
			out[i] = BatchItem[any]{ID: op.ID, Err: err}
		case OpUpdate:
			err := s.UpdateEntity(ctx, op.ID, op.Fields)
			out[i] = BatchItem[any]{ID: op.ID, Err: err}
		case OpDelete:
			err := s.DeleteEntity(ctx, op.ID)
			out[i] = BatchItem[any]{ID: op.ID, Err: err}
		default:
			out[i] = BatchItem[any]{ID: op.ID, Err: terrors.NewValidation("op.kind", "unknown")}
		}
	}
	return out
}
