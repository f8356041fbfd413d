package shard

import (
	"context"

	"github.com/dreamware/torusdb/internal/query"
	"github.com/dreamware/torusdb/internal/types"
)

// API is the client RPC surface from §6, exposed as a plain Go
// interface rather than a wire protocol: cmd/shard drives it directly,
// and tests call it with no network hop.
type API interface {
	GetEntity(ctx context.Context, id types.EntityId) (*Entity, bool, error)
	CreateEntity(ctx context.Context, id types.EntityId, fields map[types.Predicate]types.TypedObject) error
	UpdateEntity(ctx context.Context, id types.EntityId, props map[types.Predicate]types.TypedObject) error
	DeleteEntity(ctx context.Context, id types.EntityId) error

	Traverse(ctx context.Context, start types.EntityId, predicate types.Predicate, opts TraversalOptions) (query.Result, error)
	TraverseBack(ctx context.Context, target types.EntityId, predicate types.Predicate, opts TraversalOptions) (query.Result, error)
	PathTraverse(ctx context.Context, start types.EntityId, path []types.Predicate, opts TraversalOptions) (query.Result, error)

	Query(ctx context.Context, q string, opts QueryOptions) (query.Result, error)

	BatchGet(ctx context.Context, ids []types.EntityId) []BatchItem[*Entity]
	BatchCreate(ctx context.Context, entities []EntityInput) []BatchItem[struct{}]
	BatchExecute(ctx context.Context, ops []Op) []BatchItem[any]
}

var _ API = (*Shard)(nil)

// Idempotent reports whether method's RPC surface classification
// permits automatic client-side retry on Timeout/Transient, per §6's
// table. Unknown methods are conservatively non-idempotent.
func Idempotent(method string) bool {
	switch method {
	case "getEntity", "traverse", "reverseTraverse", "pathTraverse", "query", "batchGet":
		return true
	default:
		return false
	}
}
