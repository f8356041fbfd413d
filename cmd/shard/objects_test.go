package main

import (
	"reflect"
	"testing"

	"github.com/dreamware/torusdb/internal/types"
)

func TestJSONObjectRoundTrip(t *testing.T) {
	cases := []types.TypedObject{
		types.StringValue("Alice"),
		types.RefValue("https://example.org/b"),
		types.TimestampValue(1234),
		{Tag: types.TagGeoPoint, Geo: types.GeoPoint{Lat: 1.5, Lng: -2.5}},
		{Tag: types.TagQuantity, Quant: types.Quantity{Value: 3, Unit: "https://example.org/units/kg"}},
	}

	for _, want := range cases {
		got := fromJSONObject(toJSONObject(want))
		if !reflect.DeepEqual(got, want) {
			t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
		}
	}
}

func TestJSONFieldsRoundTrip(t *testing.T) {
	fields := map[types.Predicate]types.TypedObject{
		"name": types.StringValue("Alice"),
		"age":  {Tag: types.TagInt32, I32: 30},
	}
	got := fromJSONFields(toJSONFields(fields))
	if len(got) != len(fields) {
		t.Fatalf("expected %d fields, got %d", len(fields), len(got))
	}
	for p, want := range fields {
		if !reflect.DeepEqual(got[p], want) {
			t.Errorf("field %q mismatch: got %+v, want %+v", p, got[p], want)
		}
	}
}
