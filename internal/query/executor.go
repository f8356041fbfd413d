package query

import (
	"context"
	"encoding/base64"
	"sort"
	"time"

	"github.com/dreamware/torusdb/internal/terrors"
	"github.com/dreamware/torusdb/internal/types"
)

// DataSource is the executor's dependency boundary onto the shard's C1
// triple store and C2 indexes, kept as a narrow interface here so this
// package can be tested without either concrete dependency.
type DataSource interface {
	// GetObject returns the live (non-tombstone) object for
	// (subject, predicate), or ok=false if there is none.
	GetObject(ctx context.Context, subject types.EntityId, predicate types.Predicate) (obj types.TypedObject, ok bool, err error)
	// AllFields returns every live predicate->object pair for subject,
	// used to materialize a result entity when no Project step narrows
	// the field set.
	AllFields(ctx context.Context, subject types.EntityId) (map[types.Predicate]types.TypedObject, error)
	// SubjectsWithValue is a POS probe: subjects where predicate==value.
	SubjectsWithValue(predicate types.Predicate, value types.TypedObject) []types.EntityId
	// ReverseTraverse is an OSP probe: subjects pointing at target via
	// predicate.
	ReverseTraverse(target types.EntityId, predicate types.Predicate) []types.EntityId
	// AllSubjectsForPredicate linear-scans for every subject with
	// predicate set at all; the fallback for a bare-predicate Start not
	// immediately fused with an equality Filter into a POS probe.
	AllSubjectsForPredicate(ctx context.Context, predicate types.Predicate) ([]types.EntityId, error)
}

// Entity is one query result row.
type Entity struct {
	ID     types.EntityId
	Fields map[types.Predicate]types.TypedObject
}

// Stats reports per-execution counters per §4.3.
type Stats struct {
	ShardQueries    int
	EntitiesScanned int
	DurationMs      int64
}

// Result is a cursor-paginated page of query output.
type Result struct {
	Entities []Entity
	Cursor   string
	HasMore  bool
	Stats    Stats
}

// DefaultPageSize bounds a single Execute call absent an explicit
// limit.
const DefaultPageSize = 100

// Execute runs plan against ds, returning at most limit entities
// (falling back to DefaultPageSize when limit <= 0) starting just after
// cursor (empty cursor starts from the beginning). Execution is
// deterministic: frontiers are sorted by EntityId at every stage so
// repeated calls against the same plan and database state produce the
// same page boundaries.
func Execute(ctx context.Context, ds DataSource, plan *Plan, cursor string, limit int) (Result, error) {
	started := time.Now()
	if limit <= 0 {
		limit = DefaultPageSize
	}
	stats := Stats{}

	if len(plan.Steps) == 0 {
		return Result{}, PlanError("plan has no steps")
	}

	frontier, projectFields, err := runSteps(ctx, ds, plan.Steps, &stats)
	if err != nil {
		return Result{}, err
	}
	sort.Slice(frontier, func(i, j int) bool { return frontier[i] < frontier[j] })

	startAt := 0
	if cursor != "" {
		lastSubject, decErr := decodeCursor(cursor)
		if decErr != nil {
			return Result{}, decErr
		}
		startAt = sort.Search(len(frontier), func(i int) bool { return frontier[i] > lastSubject })
	}

	end := startAt + limit
	hasMore := end < len(frontier)
	if end > len(frontier) {
		end = len(frontier)
	}
	page := frontier[startAt:end]

	entities := make([]Entity, 0, len(page))
	for _, id := range page {
		fields, ferr := materializeFields(ctx, ds, id, projectFields, &stats)
		if ferr != nil {
			return Result{}, ferr
		}
		entities = append(entities, Entity{ID: id, Fields: fields})
	}

	result := Result{
		Entities: entities,
		HasMore:  hasMore,
		Stats:    stats,
	}
	if hasMore && len(page) > 0 {
		result.Cursor = encodeCursor(page[len(page)-1])
	}
	result.Stats.DurationMs = time.Since(started).Milliseconds()
	return result, nil
}

func runSteps(ctx context.Context, ds DataSource, steps []Step, stats *Stats) ([]types.EntityId, []types.Predicate, error) {
	var frontier []types.EntityId
	var projectFields []types.Predicate

	for i := 0; i < len(steps); i++ {
		step := steps[i]
		switch step.Kind {
		case StepPointLookup:
			frontier = []types.EntityId{step.ID}
			stats.ShardQueries++

		case StepPOSScan:
			// Fuse with an immediately following equality Filter on the
			// same predicate into a single POS probe per §4.3's
			// optimization rule (c).
			if i+1 < len(steps) && steps[i+1].Kind == StepFilter &&
				steps[i+1].Predicate == step.Predicate && steps[i+1].Op == OpEq {
				frontier = ds.SubjectsWithValue(step.Predicate, steps[i+1].Value)
				stats.ShardQueries++
				i++ // consume the fused Filter
				break
			}
			scanned, err := ds.AllSubjectsForPredicate(ctx, step.Predicate)
			if err != nil {
				return nil, nil, err
			}
			frontier = scanned
			stats.ShardQueries++

		case StepForwardFollow:
			next := make([]types.EntityId, 0, len(frontier))
			for _, subj := range frontier {
				stats.EntitiesScanned++
				obj, ok, err := ds.GetObject(ctx, subj, step.Predicate)
				if err != nil {
					return nil, nil, err
				}
				if !ok || obj.Tag != types.TagRef {
					continue
				}
				next = append(next, obj.Ref)
			}
			frontier = dedupeEntities(next)
			stats.ShardQueries++

		case StepReverseFollow:
			next := make([]types.EntityId, 0, len(frontier))
			for _, target := range frontier {
				stats.EntitiesScanned++
				next = append(next, ds.ReverseTraverse(target, step.Predicate)...)
			}
			frontier = dedupeEntities(next)
			stats.ShardQueries++

		case StepFilter:
			kept := make([]types.EntityId, 0, len(frontier))
			for _, subj := range frontier {
				stats.EntitiesScanned++
				obj, ok, err := ds.GetObject(ctx, subj, step.Predicate)
				if err != nil {
					return nil, nil, err
				}
				if !ok {
					continue
				}
				match, err := compareMatches(obj, step.Op, step.Value)
				if err != nil {
					return nil, nil, err
				}
				if match {
					kept = append(kept, subj)
				}
			}
			frontier = kept
			stats.ShardQueries++

		case StepProject:
			projectFields = step.Fields

		default:
			return nil, nil, PlanError("unknown step kind")
		}
	}
	return frontier, projectFields, nil
}

func materializeFields(ctx context.Context, ds DataSource, id types.EntityId, fields []types.Predicate, stats *Stats) (map[types.Predicate]types.TypedObject, error) {
	if len(fields) == 0 {
		stats.ShardQueries++
		return ds.AllFields(ctx, id)
	}
	out := make(map[types.Predicate]types.TypedObject, len(fields))
	for _, f := range fields {
		stats.ShardQueries++
		obj, ok, err := ds.GetObject(ctx, id, f)
		if err != nil {
			return nil, err
		}
		if ok {
			out[f] = obj
		}
	}
	return out, nil
}

func dedupeEntities(ids []types.EntityId) []types.EntityId {
	seen := make(map[types.EntityId]bool, len(ids))
	out := make([]types.EntityId, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func encodeCursor(last types.EntityId) string {
	return base64.StdEncoding.EncodeToString([]byte(last))
}

func decodeCursor(cursor string) (types.EntityId, error) {
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return "", terrors.NewValidation("cursor", "not valid base64")
	}
	return types.EntityId(raw), nil
}
