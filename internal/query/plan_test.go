package query

import "testing"

func TestBuildPlanPointLookup(t *testing.T) {
	ast, _ := Parse("<https://example.org/alice>")
	plan, err := BuildPlan(ast)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Steps) != 1 || plan.Steps[0].Kind != StepPointLookup {
		t.Fatalf("unexpected plan: %+v", plan.Steps)
	}
}

// TestBuildPlanLeavesStartFilterUnfused covers the build-time half of
// optimization rule (c): a bare-predicate Start immediately followed by
// an equality Filter on the same predicate stays two steps in the plan;
// runSteps fuses them into one POS probe at execution time.
func TestBuildPlanLeavesStartFilterUnfused(t *testing.T) {
	ast, _ := Parse(`status[?status="active"]`)
	plan, err := BuildPlan(ast)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Steps) != 2 {
		t.Fatalf("expected Start+Filter unfused at plan build time (fusion happens at execution), got %d steps", len(plan.Steps))
	}
}

func TestBuildPlanRejectsEmptyAST(t *testing.T) {
	if _, err := BuildPlan(&AST{}); err == nil {
		t.Fatal("expected PlanErr for empty AST")
	}
}

func TestBuildPlanFollowKinds(t *testing.T) {
	ast, _ := Parse("<https://example.org/alice>.memberOf.^managerOf")
	plan, err := BuildPlan(ast)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Steps[1].Kind != StepForwardFollow || plan.Steps[1].Predicate != "memberOf" {
		t.Fatalf("unexpected forward step: %+v", plan.Steps[1])
	}
	if plan.Steps[2].Kind != StepReverseFollow || plan.Steps[2].Predicate != "managerOf" {
		t.Fatalf("unexpected reverse step: %+v", plan.Steps[2])
	}
}
