package query

import "testing"

func TestPlanCacheCompilesOnMiss(t *testing.T) {
	c, err := NewPlanCache(10)
	if err != nil {
		t.Fatalf("NewPlanCache: %v", err)
	}
	plan, err := c.GetOrCompile(`<https://example.org/alice>`)
	if err != nil {
		t.Fatalf("GetOrCompile: %v", err)
	}
	if plan.Query != `<https://example.org/alice>` {
		t.Fatalf("unexpected plan query: %s", plan.Query)
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 cached entry, got %d", c.Len())
	}
}

func TestPlanCacheHitReturnsSamePlan(t *testing.T) {
	c, _ := NewPlanCache(10)
	first, err := c.GetOrCompile("status")
	if err != nil {
		t.Fatalf("GetOrCompile: %v", err)
	}
	second, err := c.GetOrCompile("status")
	if err != nil {
		t.Fatalf("GetOrCompile: %v", err)
	}
	if first != second {
		t.Fatal("expected cache hit to return the identical *Plan")
	}
}

func TestPlanCacheEvictsLRU(t *testing.T) {
	c, _ := NewPlanCache(1)
	if _, err := c.GetOrCompile("status"); err != nil {
		t.Fatalf("GetOrCompile: %v", err)
	}
	if _, err := c.GetOrCompile("age"); err != nil {
		t.Fatalf("GetOrCompile: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("expected bound of 1 entry, got %d", c.Len())
	}
}

func TestPlanCachePropagatesParseError(t *testing.T) {
	c, _ := NewPlanCache(10)
	if _, err := c.GetOrCompile("<unterminated"); err == nil {
		t.Fatal("expected parse error to propagate")
	}
}

func TestNewPlanCacheDefaultSize(t *testing.T) {
	c, err := NewPlanCache(0)
	if err != nil {
		t.Fatalf("NewPlanCache: %v", err)
	}
	if c == nil {
		t.Fatal("expected non-nil cache with default size")
	}
}
