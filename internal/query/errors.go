package query

import "fmt"

// ParseErr reports a syntax error at a byte position in the query
// string, naming what the parser expected there.
type ParseErr struct {
	Position int
	Expected string
}

func (e *ParseErr) Error() string {
	return fmt.Sprintf("query: parse error at position %d: expected %s", e.Position, e.Expected)
}

// ParseError constructs a ParseErr.
func ParseError(position int, expected string) error {
	return &ParseErr{Position: position, Expected: expected}
}

// PlanErr reports a query that parsed but cannot be planned (e.g. an
// empty AST, or one that does not begin with a Start node).
type PlanErr struct {
	Reason string
}

func (e *PlanErr) Error() string {
	return "query: plan error: " + e.Reason
}

// PlanError constructs a PlanErr.
func PlanError(reason string) error {
	return &PlanErr{Reason: reason}
}
