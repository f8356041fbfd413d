package main

import "github.com/dreamware/torusdb/internal/types"

// jsonObject is the wire-friendly mirror of types.TypedObject used only
// at the HTTP boundary, mirroring internal/wire's identical convention
// for the shard<->coordinator session protocol.
type jsonObject struct {
	Tag   uint8   `json:"tag"`
	Bool  bool    `json:"bool,omitempty"`
	I32   int32   `json:"i32,omitempty"`
	I64   int64   `json:"i64,omitempty"`
	F64   float64 `json:"f64,omitempty"`
	Str   string  `json:"str,omitempty"`
	Ref   string  `json:"ref,omitempty"`
	TS    int64   `json:"ts,omitempty"`
	Lat   float64 `json:"lat,omitempty"`
	Lng   float64 `json:"lng,omitempty"`
	Text  string  `json:"text,omitempty"`
	Lang  string  `json:"lang,omitempty"`
	Value float64 `json:"value,omitempty"`
	Unit  string  `json:"unit,omitempty"`
	Bytes []byte  `json:"bytes,omitempty"`
}

func toJSONObject(o types.TypedObject) jsonObject {
	return jsonObject{
		Tag: uint8(o.Tag), Bool: o.Bool, I32: o.I32, I64: o.I64, F64: o.F64,
		Str: o.Str, Ref: o.Ref.String(), TS: o.TS,
		Lat: o.Geo.Lat, Lng: o.Geo.Lng,
		Text: o.Mono.Text, Lang: o.Mono.Lang,
		Value: o.Quant.Value, Unit: o.Quant.Unit,
		Bytes: o.Bytes,
	}
}

func fromJSONObject(j jsonObject) types.TypedObject {
	return types.TypedObject{
		Tag: types.Tag(j.Tag), Bool: j.Bool, I32: j.I32, I64: j.I64, F64: j.F64,
		Str: j.Str, Ref: types.EntityId(j.Ref), TS: j.TS,
		Geo:   types.GeoPoint{Lat: j.Lat, Lng: j.Lng},
		Mono:  types.Monolingual{Text: j.Text, Lang: j.Lang},
		Quant: types.Quantity{Value: j.Value, Unit: j.Unit},
		Bytes: j.Bytes,
	}
}

func toJSONFields(fields map[types.Predicate]types.TypedObject) map[types.Predicate]jsonObject {
	out := make(map[types.Predicate]jsonObject, len(fields))
	for p, o := range fields {
		out[p] = toJSONObject(o)
	}
	return out
}

func fromJSONFields(fields map[types.Predicate]jsonObject) map[types.Predicate]types.TypedObject {
	out := make(map[types.Predicate]types.TypedObject, len(fields))
	for p, o := range fields {
		out[p] = fromJSONObject(o)
	}
	return out
}
