package query

import lru "github.com/hashicorp/golang-lru/v2"

// DefaultPlanCacheSize is §4.3's default plan cache bound.
const DefaultPlanCacheSize = 1000

// PlanCache is a thread-safe, bounded LRU of compiled plans keyed by
// the raw query string it was built from.
type PlanCache struct {
	cache *lru.Cache[string, *Plan]
}

// NewPlanCache builds a PlanCache bounded at size entries, falling back
// to DefaultPlanCacheSize for size <= 0.
func NewPlanCache(size int) (*PlanCache, error) {
	if size <= 0 {
		size = DefaultPlanCacheSize
	}
	c, err := lru.New[string, *Plan](size)
	if err != nil {
		return nil, err
	}
	return &PlanCache{cache: c}, nil
}

// GetOrCompile returns the cached Plan for query, compiling (parse +
// plan) and caching it on a miss. The lru.Cache's internal locking
// makes this safe for concurrent callers without an extra mutex here;
// PeekOrAdd makes the insert atomic, so callers that miss on the same
// query at once all receive the one Plan that was cached first.
func (c *PlanCache) GetOrCompile(query string) (*Plan, error) {
	if plan, ok := c.cache.Get(query); ok {
		return plan, nil
	}
	ast, err := Parse(query)
	if err != nil {
		return nil, err
	}
	plan, err := BuildPlan(ast)
	if err != nil {
		return nil, err
	}
	plan.Query = query
	if prev, ok, _ := c.cache.PeekOrAdd(query, plan); ok {
		return prev, nil
	}
	return plan, nil
}

// Len reports the number of cached plans.
func (c *PlanCache) Len() int { return c.cache.Len() }
