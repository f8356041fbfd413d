package graphcol

import (
	"sort"

	"github.com/klauspost/compress/zstd"

	"github.com/dreamware/torusdb/internal/bloom"
	"github.com/dreamware/torusdb/internal/terrors"
	"github.com/dreamware/torusdb/internal/types"
)

// bloomCapacityFloor is the minimum capacity handed to bloom.New so
// tiny chunks (a handful of triples) still get a usably-sized filter.
const bloomCapacityFloor = 64

// Encode sorts triples by (subject sort key, subject) and packs them
// into a self-describing columnar chunk for namespace. An empty triples
// slice is valid and produces a chunk with TripleCount 0.
func Encode(namespace string, triples []types.Triple) ([]byte, error) {
	if namespace == "" {
		return nil, terrors.NewValidation("graphcol.namespace", "empty")
	}

	sorted := make([]types.Triple, len(triples))
	copy(sorted, triples)
	sort.SliceStable(sorted, func(i, j int) bool {
		ki := types.SortKey(sorted[i].Subject)
		kj := types.SortKey(sorted[j].Subject)
		if ki != kj {
			return ki < kj
		}
		return sorted[i].Subject < sorted[j].Subject
	})

	n := len(sorted)
	subjects := make([]string, n)
	predicates := make([]string, n)
	objTypes := make([]uint8, n)
	timestamps := make([]int64, n)
	txIDs := make([]string, n)

	var minTS, maxTS int64
	if n > 0 {
		minTS, maxTS = sorted[0].Timestamp, sorted[0].Timestamp
	}

	refPresent := newBitset(n)
	var refVals []string
	strPresent := newBitset(n)
	var strVals []string
	i64Present := newBitset(n)
	var i64Vals []int64
	f64Present := newBitset(n)
	var f64Vals []float64
	boolPresent := newBitset(n)
	boolVals := newBitset(n)
	tsPresent := newBitset(n)
	var tsVals []int64
	latPresent := newBitset(n)
	var latVals []float64
	lngPresent := newBitset(n)
	var lngVals []float64
	binPresent := newBitset(n)
	var binVals [][]byte
	langPresent := newBitset(n)
	var langVals []string
	unitPresent := newBitset(n)
	var unitVals []string

	cap, _ := bloom.New(uint64(max(n, bloomCapacityFloor)), 0.01)
	seen := make(map[types.EntityId]bool, n)

	for i, t := range sorted {
		subjects[i] = t.Subject.String()
		predicates[i] = t.Predicate.String()
		objTypes[i] = uint8(t.Object.Tag)
		timestamps[i] = t.Timestamp
		txIDs[i] = t.TxID.String()

		if t.Timestamp < minTS {
			minTS = t.Timestamp
		}
		if t.Timestamp > maxTS {
			maxTS = t.Timestamp
		}

		if !seen[t.Subject] {
			seen[t.Subject] = true
			cap.Add([]byte(t.Subject.String()))
		}

		switch t.Object.Tag {
		case types.TagRef:
			refPresent.set(i, true)
			refVals = append(refVals, t.Object.Ref.String())
		case types.TagString, types.TagURL:
			strPresent.set(i, true)
			strVals = append(strVals, t.Object.Str)
		case types.TagInt32:
			i64Present.set(i, true)
			i64Vals = append(i64Vals, int64(t.Object.I32))
		case types.TagInt64:
			i64Present.set(i, true)
			i64Vals = append(i64Vals, t.Object.I64)
		case types.TagFloat64:
			f64Present.set(i, true)
			f64Vals = append(f64Vals, t.Object.F64)
		case types.TagBool:
			boolPresent.set(i, true)
			boolVals.set(i, t.Object.Bool)
		case types.TagTimestamp:
			tsPresent.set(i, true)
			tsVals = append(tsVals, t.Object.TS)
		case types.TagGeoPoint:
			latPresent.set(i, true)
			latVals = append(latVals, t.Object.Geo.Lat)
			lngPresent.set(i, true)
			lngVals = append(lngVals, t.Object.Geo.Lng)
		case types.TagMonolingual:
			strPresent.set(i, true)
			strVals = append(strVals, t.Object.Mono.Text)
			langPresent.set(i, true)
			langVals = append(langVals, t.Object.Mono.Lang)
		case types.TagQuantity:
			f64Present.set(i, true)
			f64Vals = append(f64Vals, t.Object.Quant.Value)
			if t.Object.Quant.Unit != "" {
				unitPresent.set(i, true)
				unitVals = append(unitVals, t.Object.Quant.Unit)
			}
		case types.TagJSON, types.TagBinary:
			binPresent.set(i, true)
			binVals = append(binVals, t.Object.Bytes)
		case types.TagNull:
			// tombstone: no sparse column populated
		}
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, terrors.Fatal(err)
	}
	defer enc.Close()

	type rawColumn struct {
		name     string
		encoding Encoding
		raw      []byte
	}
	var cols []rawColumn

	cols = append(cols,
		rawColumn{ColSubject, EncodingPlain, encodePlainStrings(subjects)},
		rawColumn{ColPredicate, EncodingDictionary, encodeDictionary(predicates)},
		rawColumn{ColObjType, EncodingFixed, encodeFixedUint8(objTypes)},
		rawColumn{ColTimestamp, EncodingFixed, encodeFixedInt64(timestamps)},
		rawColumn{ColTxID, EncodingPlain, encodePlainStrings(txIDs)},
	)
	if len(refVals) > 0 {
		cols = append(cols, rawColumn{ColObjRef, EncodingPlain, encodeSparseStrings(refPresent, refVals)})
	}
	if len(strVals) > 0 {
		cols = append(cols, rawColumn{ColObjString, EncodingPlain, encodeSparseStrings(strPresent, strVals)})
	}
	if len(i64Vals) > 0 {
		cols = append(cols, rawColumn{ColObjInt64, EncodingFixed, encodeSparseInt64(i64Present, i64Vals)})
	}
	if len(f64Vals) > 0 {
		cols = append(cols, rawColumn{ColObjFloat64, EncodingFixed, encodeSparseFloat64(f64Present, f64Vals)})
	}
	if boolPresent.bits != nil && hasAny(boolPresent) {
		cols = append(cols, rawColumn{ColObjBool, EncodingBitset, encodeSparseBools(boolPresent, boolVals)})
	}
	if len(tsVals) > 0 {
		cols = append(cols, rawColumn{ColObjTime, EncodingFixed, encodeSparseInt64(tsPresent, tsVals)})
	}
	if len(latVals) > 0 {
		cols = append(cols, rawColumn{ColObjLat, EncodingFixed, encodeSparseFloat64(latPresent, latVals)})
	}
	if len(lngVals) > 0 {
		cols = append(cols, rawColumn{ColObjLng, EncodingFixed, encodeSparseFloat64(lngPresent, lngVals)})
	}
	if len(binVals) > 0 {
		cols = append(cols, rawColumn{ColObjBinary, EncodingPlain, encodeSparseBytes(binPresent, binVals)})
	}
	if len(langVals) > 0 {
		cols = append(cols, rawColumn{ColObjLang, EncodingPlain, encodeSparseStrings(langPresent, langVals)})
	}
	if len(unitVals) > 0 {
		cols = append(cols, rawColumn{ColObjUnit, EncodingPlain, encodeSparseStrings(unitPresent, unitVals)})
	}

	dir := make([]directoryEntry, len(cols))
	payload := make([]byte, 0)
	for i, c := range cols {
		compressed := enc.EncodeAll(c.raw, nil)
		dir[i] = directoryEntry{
			Name:     c.name,
			Encoding: c.encoding,
			Offset:   uint32(len(payload)),
			Size:     uint32(len(compressed)),
		}
		payload = append(payload, compressed...)
	}

	bloomBytes := cap.Serialize()

	buf := make([]byte, 0, len(payload)+len(bloomBytes)+256)
	buf = putUint32(buf, Magic)
	buf = append(buf, byte(Version>>8), byte(Version))
	buf = putLenPrefixed(buf, []byte(namespace))
	buf = putUint32(buf, uint32(n))
	buf = append(buf, encodeFixedInt64([]int64{minTS, maxTS})...)
	buf = putUint32(buf, 0) // flags: reserved, always zero
	buf = append(buf, byte(len(dir)>>8), byte(len(dir)))
	for _, d := range dir {
		buf = append(buf, byte(len(d.Name)))
		buf = append(buf, []byte(d.Name)...)
		buf = append(buf, byte(d.Encoding))
		buf = putUint32(buf, d.Offset)
		buf = putUint32(buf, d.Size)
	}
	buf = putLenPrefixed(buf, bloomBytes)
	buf = append(buf, payload...)

	return buf, nil
}

func hasAny(b *bitset) bool {
	for _, bt := range b.bits {
		if bt != 0 {
			return true
		}
	}
	return false
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
