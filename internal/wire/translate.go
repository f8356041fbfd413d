package wire

import (
	"encoding/json"

	"github.com/dreamware/torusdb/internal/cdc"
	"github.com/dreamware/torusdb/internal/terrors"
	"github.com/dreamware/torusdb/internal/types"
)

// wireObject is the JSON-friendly mirror of types.TypedObject used only
// at the wire boundary; internal code never holds a wireObject.
type wireObject struct {
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

func toWireObject(o types.TypedObject) wireObject {
	return wireObject{
		Tag: uint8(o.Tag), Bool: o.Bool, I32: o.I32, I64: o.I64, F64: o.F64,
		Str: o.Str, Ref: o.Ref.String(), TS: o.TS,
		Lat: o.Geo.Lat, Lng: o.Geo.Lng,
		Text: o.Mono.Text, Lang: o.Mono.Lang,
		Value: o.Quant.Value, Unit: o.Quant.Unit,
		Bytes: o.Bytes,
	}
}

func fromWireObject(w wireObject) types.TypedObject {
	return types.TypedObject{
		Tag: types.Tag(w.Tag), Bool: w.Bool, I32: w.I32, I64: w.I64, F64: w.F64,
		Str: w.Str, Ref: types.EntityId(w.Ref), TS: w.TS,
		Geo:   types.GeoPoint{Lat: w.Lat, Lng: w.Lng},
		Mono:  types.Monolingual{Text: w.Text, Lang: w.Lang},
		Quant: types.Quantity{Value: w.Value, Unit: w.Unit},
		Bytes: w.Bytes,
	}
}

// ToWireEvents renders shard-local cdc.Events into their wire form,
// tagging each with its position in the batch (eventIndex) so the
// coordinator can order events within a sequence (§4.8's flush
// ordering is (sequence, event-index)).
func ToWireEvents(events []cdc.Event) ([]WireEvent, error) {
	out := make([]WireEvent, len(events))
	for i, ev := range events {
		objJSON, err := json.Marshal(toWireObject(ev.Triple.Object))
		if err != nil {
			return nil, terrors.Fatal(err)
		}
		out[i] = WireEvent{
			Type:       ev.Type.String(),
			Subject:    ev.Triple.Subject.String(),
			Predicate:  ev.Triple.Predicate.String(),
			ObjectTag:  uint8(ev.Triple.Object.Tag),
			ObjectJSON: objJSON,
			Timestamp:  ev.Triple.Timestamp,
			TxID:       ev.Triple.TxID.String(),
			EventIndex: i,
		}
	}
	return out, nil
}

// FromWireEvents parses wire events back into types.Triple. It does not
// reconstruct cdc.Event.PreviousValue: that field is shard-local
// bookkeeping and is not transmitted.
func FromWireEvents(events []WireEvent) ([]types.Triple, error) {
	out := make([]types.Triple, len(events))
	for i, ev := range events {
		var wo wireObject
		if err := json.Unmarshal(ev.ObjectJSON, &wo); err != nil {
			return nil, terrors.NewValidation("wire_event.object", "invalid JSON: "+err.Error())
		}
		out[i] = types.Triple{
			Subject:   types.EntityId(ev.Subject),
			Predicate: types.Predicate(ev.Predicate),
			Object:    fromWireObject(wo),
			Timestamp: ev.Timestamp,
			TxID:      types.TransactionId(ev.TxID),
		}
	}
	return out, nil
}
