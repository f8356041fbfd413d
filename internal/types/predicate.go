package types

import (
	"strings"

	"github.com/dreamware/torusdb/internal/terrors"
)

// Predicate is a field name without colons, e.g. "name", "knows", "$type".
type Predicate string

// MaxPredicateLen is the recommended upper bound on predicate length.
const MaxPredicateLen = 256

// Reserved predicates carrying system meaning.
const (
	PredicateID      Predicate = "$id"
	PredicateType    Predicate = "$type"
	PredicateContext Predicate = "$context"
)

// ParsePredicate validates p: no colon, non-empty, within the length
// bound. Reserved predicates ($id, $type, $context) are valid but callers
// that don't expect system predicates should check for them explicitly.
func ParsePredicate(p string) (Predicate, error) {
	if p == "" {
		return "", terrors.NewValidation("predicate", "empty")
	}
	if strings.Contains(p, ":") {
		return "", terrors.NewValidation("predicate", "must not contain ':'")
	}
	if len(p) > MaxPredicateLen {
		return "", terrors.NewValidation("predicate", "exceeds max length")
	}
	return Predicate(p), nil
}

// IsReserved reports whether p is one of the reserved system predicates.
func (p Predicate) IsReserved() bool {
	switch p {
	case PredicateID, PredicateType, PredicateContext:
		return true
	default:
		return false
	}
}

func (p Predicate) String() string { return string(p) }
