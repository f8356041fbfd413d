package query

import (
	"strings"

	"github.com/dreamware/torusdb/internal/terrors"
	"github.com/dreamware/torusdb/internal/types"
)

// compareMatches evaluates `obj op value` for a Filter step. Equality
// (=, !=) is supported across every tag; ordering (<, <=, >, >=) is
// supported only for the ordered tags named in §4.2 (numeric types,
// timestamps, and strings compared lexically).
func compareMatches(obj types.TypedObject, op Op, value types.TypedObject) (bool, error) {
	if op == OpEq || op == OpNe {
		eq := objectsEqual(obj, value)
		if op == OpEq {
			return eq, nil
		}
		return !eq, nil
	}

	cmp, err := compareOrdered(obj, value)
	if err != nil {
		return false, err
	}
	switch op {
	case OpLt:
		return cmp < 0, nil
	case OpLe:
		return cmp <= 0, nil
	case OpGt:
		return cmp > 0, nil
	case OpGe:
		return cmp >= 0, nil
	default:
		return false, PlanError("unsupported filter operator")
	}
}

func objectsEqual(a, b types.TypedObject) bool {
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case types.TagNull:
		return true
	case types.TagBool:
		return a.Bool == b.Bool
	case types.TagInt32:
		return a.I32 == b.I32
	case types.TagInt64:
		return a.I64 == b.I64
	case types.TagFloat64:
		return a.F64 == b.F64
	case types.TagString, types.TagURL:
		return a.Str == b.Str
	case types.TagRef:
		return a.Ref == b.Ref
	case types.TagTimestamp:
		return a.TS == b.TS
	case types.TagMonolingual:
		return a.Mono == b.Mono
	case types.TagGeoPoint:
		return a.Geo == b.Geo
	case types.TagQuantity:
		return a.Quant == b.Quant
	default:
		return false
	}
}

// compareOrdered returns -1, 0, or 1 for a compared to b, or an error
// if the tag isn't an ordered one.
func compareOrdered(a, b types.TypedObject) (int, error) {
	if a.Tag != b.Tag {
		return 0, terrors.NewValidation("filter.value", "ordering comparison requires matching types")
	}
	switch a.Tag {
	case types.TagInt32:
		return compareInt64(int64(a.I32), int64(b.I32)), nil
	case types.TagInt64:
		return compareInt64(a.I64, b.I64), nil
	case types.TagFloat64:
		return compareFloat64(a.F64, b.F64), nil
	case types.TagTimestamp:
		return compareInt64(a.TS, b.TS), nil
	case types.TagString, types.TagURL:
		return strings.Compare(a.Str, b.Str), nil
	default:
		return 0, terrors.NewValidation("filter.predicate", "tag does not support ordering comparisons")
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
