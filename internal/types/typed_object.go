package types

import (
	"github.com/dreamware/torusdb/internal/terrors"
)

// Tag discriminates the payload carried by a TypedObject.
type Tag uint8

const (
	TagNull Tag = iota
	TagBool
	TagInt32
	TagInt64
	TagFloat64
	TagString
	TagURL
	TagRef
	TagTimestamp
	TagGeoPoint
	TagMonolingual
	TagQuantity
	TagJSON
	TagBinary
)

func (t Tag) String() string {
	switch t {
	case TagNull:
		return "NULL"
	case TagBool:
		return "BOOL"
	case TagInt32:
		return "INT32"
	case TagInt64:
		return "INT64"
	case TagFloat64:
		return "FLOAT64"
	case TagString:
		return "STRING"
	case TagURL:
		return "URL"
	case TagRef:
		return "REF"
	case TagTimestamp:
		return "TIMESTAMP"
	case TagGeoPoint:
		return "GEO_POINT"
	case TagMonolingual:
		return "MONOLINGUAL"
	case TagQuantity:
		return "QUANTITY"
	case TagJSON:
		return "JSON"
	case TagBinary:
		return "BINARY"
	default:
		return "UNKNOWN"
	}
}

// MaxStringLen bounds STRING/URL/MONOLINGUAL text payloads.
const MaxStringLen = 1 << 20 // 1 MiB, generous length bound

// GeoPoint is a validated (lat, lng) pair in degrees.
type GeoPoint struct {
	Lat float64
	Lng float64
}

// Monolingual is a language-tagged string; both Text and Lang must be
// present together (no partial population).
type Monolingual struct {
	Text string
	Lang string
}

// Quantity is a numeric value with an optional unit URL.
type Quantity struct {
	Value float64
	Unit  string // empty if absent
}

// TypedObject is a tagged sum over the admissible value types. Exactly
// one payload field is meaningful, selected by Tag; the zero value of
// every other field is ignored by all code that inspects a TypedObject.
// A NULL tag is a tombstone when it is the latest write for a
// (subject, predicate) key.
type TypedObject struct {
	Tag   Tag
	Bool  bool
	I32   int32
	I64   int64
	F64   float64
	Str   string // STRING, URL payload
	Ref   EntityId
	TS    int64 // ms since epoch
	Geo   GeoPoint
	Mono  Monolingual
	Quant Quantity
	Bytes []byte // JSON, BINARY payload
}

// Null returns the tombstone TypedObject.
func Null() TypedObject { return TypedObject{Tag: TagNull} }

// BoolValue, Int32Value, ... construct a TypedObject of the matching tag.
func BoolValue(v bool) TypedObject      { return TypedObject{Tag: TagBool, Bool: v} }
func Int32Value(v int32) TypedObject    { return TypedObject{Tag: TagInt32, I32: v} }
func Int64Value(v int64) TypedObject    { return TypedObject{Tag: TagInt64, I64: v} }
func Float64Value(v float64) TypedObject { return TypedObject{Tag: TagFloat64, F64: v} }
func StringValue(v string) TypedObject  { return TypedObject{Tag: TagString, Str: v} }
func URLValue(v string) TypedObject     { return TypedObject{Tag: TagURL, Str: v} }
func RefValue(v EntityId) TypedObject   { return TypedObject{Tag: TagRef, Ref: v} }
func TimestampValue(v int64) TypedObject { return TypedObject{Tag: TagTimestamp, TS: v} }
func JSONValue(v []byte) TypedObject    { return TypedObject{Tag: TagJSON, Bytes: v} }
func BinaryValue(v []byte) TypedObject  { return TypedObject{Tag: TagBinary, Bytes: v} }

// GeoPointValue constructs a validated GEO_POINT object: lat must be in
// [-90, 90] and lng in [-180, 180].
func GeoPointValue(lat, lng float64) (TypedObject, error) {
	if lat < -90 || lat > 90 {
		return TypedObject{}, terrors.NewValidation("geo_point.lat", "out of range [-90, 90]")
	}
	if lng < -180 || lng > 180 {
		return TypedObject{}, terrors.NewValidation("geo_point.lng", "out of range [-180, 180]")
	}
	return TypedObject{Tag: TagGeoPoint, Geo: GeoPoint{Lat: lat, Lng: lng}}, nil
}

// MonolingualValue constructs a MONOLINGUAL object; text and lang must
// both be non-empty (no partial population).
func MonolingualValue(text, lang string) (TypedObject, error) {
	if text == "" || lang == "" {
		return TypedObject{}, terrors.NewValidation("monolingual", "text and lang must both be present")
	}
	return TypedObject{Tag: TagMonolingual, Mono: Monolingual{Text: text, Lang: lang}}, nil
}

// QuantityValue constructs a QUANTITY object; unit is optional.
func QuantityValue(value float64, unit string) TypedObject {
	return TypedObject{Tag: TagQuantity, Quant: Quantity{Value: value, Unit: unit}}
}

// IsTombstone reports whether o represents a deletion marker.
func (o TypedObject) IsTombstone() bool { return o.Tag == TagNull }

// Validate checks type-specific invariants (length bounds, GEO_POINT
// range, monolingual/quantity completeness) for an already-constructed
// TypedObject, used when decoding from storage or the wire where the
// smart constructors above were bypassed.
func (o TypedObject) Validate() error {
	switch o.Tag {
	case TagString, TagURL:
		if len(o.Str) > MaxStringLen {
			return terrors.NewValidation("typed_object", "string payload too long")
		}
	case TagGeoPoint:
		if o.Geo.Lat < -90 || o.Geo.Lat > 90 {
			return terrors.NewValidation("geo_point.lat", "out of range [-90, 90]")
		}
		if o.Geo.Lng < -180 || o.Geo.Lng > 180 {
			return terrors.NewValidation("geo_point.lng", "out of range [-180, 180]")
		}
	case TagMonolingual:
		if o.Mono.Text == "" || o.Mono.Lang == "" {
			return terrors.NewValidation("monolingual", "text and lang must both be present")
		}
		if len(o.Mono.Text) > MaxStringLen {
			return terrors.NewValidation("monolingual", "text payload too long")
		}
	}
	return nil
}
