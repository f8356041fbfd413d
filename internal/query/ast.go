// Package query implements the path-expression query surface (C3): a
// recursive-descent parser, a planner that lowers the parsed AST into
// index probes, a bounded plan cache, and a single-shard executor.
package query

import "github.com/dreamware/torusdb/internal/types"

// Op is a filter comparison operator.
type Op string

const (
	OpEq Op = "="
	OpNe Op = "!="
	OpLt Op = "<"
	OpLe Op = "<="
	OpGt Op = ">"
	OpGe Op = ">="
)

// Node is one segment of a parsed path expression.
type Node interface {
	node()
}

// Start anchors a query either at a fixed EntityId (a point lookup) or
// at a predicate name (a POS-seeded scan over every subject that has
// that predicate set at all).
type Start struct {
	ID        types.EntityId
	Predicate types.Predicate
	IsID      bool
}

func (Start) node() {}

// Follow navigates predicate from the current entity set to the
// objects (when Reverse is false) or from object back to subject (when
// Reverse is true, i.e. an OSP probe).
type Follow struct {
	Predicate types.Predicate
	Reverse   bool
}

func (Follow) node() {}

// Filter keeps only entities whose Predicate compares true against
// Value under Op.
type Filter struct {
	Predicate types.Predicate
	Op        Op
	Value     types.TypedObject
}

func (Filter) node() {}

// Project narrows the result's fields to exactly Fields.
type Project struct {
	Fields []types.Predicate
}

func (Project) node() {}

// AST is a fully parsed query: an ordered sequence of path segments.
type AST struct {
	Nodes []Node
}
