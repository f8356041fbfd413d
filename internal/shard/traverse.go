package shard

import (
	"context"
	"encoding/base64"
	"sort"
	"time"

	"github.com/dreamware/torusdb/internal/query"
	"github.com/dreamware/torusdb/internal/terrors"
	"github.com/dreamware/torusdb/internal/types"
)

// TraversalOptions shapes a traverse/reverseTraverse/pathTraverse call,
// per §6's TraversalOptions.
type TraversalOptions struct {
	MaxDepth int // hops to follow; <=0 means 1
	Limit    int // page size; <=0 means query.DefaultPageSize
	Cursor   string
}

func encodeTraverseCursor(last types.EntityId) string {
	return base64.StdEncoding.EncodeToString([]byte(last))
}

func decodeTraverseCursor(cursor string) (types.EntityId, error) {
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return "", terrors.NewValidation("cursor", "not valid base64")
	}
	return types.EntityId(raw), nil
}

func (s *Shard) paginateIDs(ctx context.Context, ids []types.EntityId, opts TraversalOptions, shardQueries int) (query.Result, error) {
	started := time.Now()
	limit := opts.Limit
	if limit <= 0 {
		limit = query.DefaultPageSize
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	startAt := 0
	if opts.Cursor != "" {
		last, err := decodeTraverseCursor(opts.Cursor)
		if err != nil {
			return query.Result{}, err
		}
		startAt = sort.Search(len(ids), func(i int) bool { return ids[i] > last })
	}
	end := startAt + limit
	hasMore := end < len(ids)
	if end > len(ids) {
		end = len(ids)
	}
	page := ids[startAt:end]

	entities := make([]Entity, 0, len(page))
	for _, id := range page {
		fields, err := s.AllFields(ctx, id)
		if err != nil {
			return query.Result{}, err
		}
		entities = append(entities, Entity{ID: id, Fields: fields})
	}

	result := query.Result{
		Entities: entities,
		HasMore:  hasMore,
		Stats: query.Stats{
			ShardQueries:    shardQueries,
			EntitiesScanned: len(ids),
			DurationMs:      time.Since(started).Milliseconds(),
		},
	}
	if hasMore && len(page) > 0 {
		result.Cursor = encodeTraverseCursor(page[len(page)-1])
	}
	return result, nil
}

// Traverse walks predicate forward from start up to opts.MaxDepth hops
// (default 1), collecting every distinct entity reached along the way
// (not just the final hop's frontier), then paginates the result.
// Because the triple store holds at most one live object per
// (subject, predicate), following a predicate from one subject reaches
// at most one next subject per hop.
func (s *Shard) Traverse(ctx context.Context, start types.EntityId, predicate types.Predicate, opts TraversalOptions) (query.Result, error) {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 1
	}

	visited := map[types.EntityId]bool{}
	frontier := []types.EntityId{start}
	var all []types.EntityId
	shardQueries := 0

	for depth := 0; depth < maxDepth; depth++ {
		var next []types.EntityId
		for _, subj := range frontier {
			shardQueries++
			obj, ok, err := s.GetObject(ctx, subj, predicate)
			if err != nil {
				return query.Result{}, err
			}
			if !ok || obj.Tag != types.TagRef {
				continue
			}
			if !visited[obj.Ref] {
				visited[obj.Ref] = true
				all = append(all, obj.Ref)
				next = append(next, obj.Ref)
			}
		}
		if len(next) == 0 {
			break
		}
		frontier = next
	}
	return s.paginateIDs(ctx, all, opts, shardQueries)
}

// TraverseBack is Traverse's OSP-driven mirror: it fans out from
// target via the index maintainer's reverse index, which is
// multi-valued (many subjects may point at the same target), rather
// than a single GetObject probe per hop. It is named distinctly from
// the DataSource.ReverseTraverse probe it's built on: that one returns
// a single hop's raw subject list, this one walks and paginates.
func (s *Shard) TraverseBack(ctx context.Context, target types.EntityId, predicate types.Predicate, opts TraversalOptions) (query.Result, error) {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 1
	}

	visited := map[types.EntityId]bool{}
	frontier := []types.EntityId{target}
	var all []types.EntityId
	shardQueries := 0

	for depth := 0; depth < maxDepth; depth++ {
		var next []types.EntityId
		for _, tgt := range frontier {
			shardQueries++
			for _, subj := range s.idx.ReverseTraverse(tgt, predicate) {
				if !visited[subj] {
					visited[subj] = true
					all = append(all, subj)
					next = append(next, subj)
				}
			}
		}
		if len(next) == 0 {
			break
		}
		frontier = next
	}
	return s.paginateIDs(ctx, all, opts, shardQueries)
}

// PathTraverse follows a fixed sequence of predicates from start,
// reusing the query executor's forward-follow step so path traversal
// and query Follow segments share one execution semantics.
func (s *Shard) PathTraverse(ctx context.Context, start types.EntityId, path []types.Predicate, opts TraversalOptions) (query.Result, error) {
	plan := &query.Plan{Steps: []query.Step{{Kind: query.StepPointLookup, ID: start}}}
	for _, pred := range path {
		plan.Steps = append(plan.Steps, query.Step{Kind: query.StepForwardFollow, Predicate: pred})
	}
	return query.Execute(ctx, s, plan, opts.Cursor, opts.Limit)
}
