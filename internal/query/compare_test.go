package query

import (
	"testing"

	"github.com/dreamware/torusdb/internal/types"
)

func TestCompareMatchesEquality(t *testing.T) {
	got, err := compareMatches(types.StringValue("active"), OpEq, types.StringValue("active"))
	if err != nil || !got {
		t.Fatalf("expected equal strings to match, got %v, %v", got, err)
	}
	got, err = compareMatches(types.StringValue("active"), OpNe, types.StringValue("inactive"))
	if err != nil || !got {
		t.Fatalf("expected != to match distinct strings, got %v, %v", got, err)
	}
}

func TestCompareMatchesOrdering(t *testing.T) {
	cases := []struct {
		op   Op
		a, b int64
		want bool
	}{
		{OpLt, 10, 20, true},
		{OpLt, 20, 10, false},
		{OpLe, 10, 10, true},
		{OpGt, 20, 10, true},
		{OpGe, 10, 10, true},
	}
	for _, tc := range cases {
		got, err := compareMatches(types.Int64Value(tc.a), tc.op, types.Int64Value(tc.b))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tc.want {
			t.Fatalf("%d %s %d: got %v, want %v", tc.a, tc.op, tc.b, got, tc.want)
		}
	}
}

func TestCompareOrderedRejectsUnorderedTag(t *testing.T) {
	_, err := compareMatches(types.BoolValue(true), OpLt, types.BoolValue(false))
	if err == nil {
		t.Fatal("expected error for ordering comparison on an unordered tag")
	}
}

func TestCompareOrderedRejectsMismatchedTags(t *testing.T) {
	_, err := compareMatches(types.Int64Value(5), OpLt, types.StringValue("5"))
	if err == nil {
		t.Fatal("expected error for ordering comparison across mismatched tags")
	}
}
