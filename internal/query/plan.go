package query

import "github.com/dreamware/torusdb/internal/types"

// StepKind discriminates a planned execution step.
type StepKind int

const (
	StepPointLookup   StepKind = iota // start from one EntityId
	StepPOSScan                       // start/narrow by a POS index probe
	StepForwardFollow                 // SPO: subject -> object via predicate
	StepReverseFollow                 // OSP: object -> subject via predicate
	StepFilter                        // keep entities where predicate op value
	StepProject                       // narrow to fields
)

// Step is one planned operation, lowered from an AST Node.
type Step struct {
	Kind      StepKind
	ID        types.EntityId
	Predicate types.Predicate
	Op        Op
	Value     types.TypedObject
	Fields    []types.Predicate
}

// Plan is an optimized, ordered sequence of Steps ready for execution.
type Plan struct {
	Steps []Step
	Query string
}

// BuildPlan lowers ast into a Plan: each Follow becomes a forward or
// reverse probe Step and each Filter/Project becomes its own Step.
// Filters already appear in parse order immediately after the segment
// that produces their predicate, so no reordering is needed to satisfy
// "push filters to the earliest available segment". The POS-probe
// fusion of a bare-predicate Start with an immediately following
// equality Filter (optimization rule (c)) is applied at execution time
// in runSteps, where the live index is available to probe directly.
func BuildPlan(ast *AST) (*Plan, error) {
	if len(ast.Nodes) == 0 {
		return nil, PlanError("empty query")
	}
	plan := &Plan{}

	start, ok := ast.Nodes[0].(Start)
	if !ok {
		return nil, PlanError("query must begin with a Start node")
	}
	if start.IsID {
		plan.Steps = append(plan.Steps, Step{Kind: StepPointLookup, ID: start.ID})
	} else {
		plan.Steps = append(plan.Steps, Step{Kind: StepPOSScan, Predicate: start.Predicate})
	}

	for _, n := range ast.Nodes[1:] {
		switch v := n.(type) {
		case Follow:
			kind := StepForwardFollow
			if v.Reverse {
				kind = StepReverseFollow
			}
			plan.Steps = append(plan.Steps, Step{Kind: kind, Predicate: v.Predicate})
		case Filter:
			plan.Steps = append(plan.Steps, Step{
				Kind:      StepFilter,
				Predicate: v.Predicate,
				Op:        v.Op,
				Value:     v.Value,
			})
		case Project:
			plan.Steps = append(plan.Steps, Step{Kind: StepProject, Fields: v.Fields})
		default:
			return nil, PlanError("unknown AST node type")
		}
	}
	return plan, nil
}
