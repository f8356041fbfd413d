package types

import "testing"

func TestParsePredicate(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"empty", "", true},
		{"contains colon", "has:name", true},
		{"too long", string(make([]byte, MaxPredicateLen+1)), true},
		{"plain", "name", false},
		{"reserved id", "$id", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := ParsePredicate(c.in)
			if (err != nil) != c.wantErr {
				t.Errorf("ParsePredicate(%q) error = %v, wantErr %v", c.in, err, c.wantErr)
			}
		})
	}
}

func TestIsReserved(t *testing.T) {
	if !PredicateType.IsReserved() {
		t.Error("$type must be reserved")
	}
	if Predicate("name").IsReserved() {
		t.Error("name must not be reserved")
	}
}
