package shard

import "testing"

func TestIdempotentClassification(t *testing.T) {
	cases := map[string]bool{
		"getEntity":       true,
		"traverse":        true,
		"reverseTraverse": true,
		"pathTraverse":    true,
		"query":           true,
		"batchGet":        true,
		"createEntity":    false,
		"updateEntity":    false,
		"deleteEntity":    false,
		"batchCreate":     false,
		"batchExecute":    false,
		"unknownMethod":   false,
	}
	for method, want := range cases {
		if got := Idempotent(method); got != want {
			t.Errorf("Idempotent(%q) = %v, want %v", method, got, want)
		}
	}
}
