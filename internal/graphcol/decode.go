package graphcol

import (
	"github.com/klauspost/compress/zstd"

	"github.com/dreamware/torusdb/internal/bloom"
	"github.com/dreamware/torusdb/internal/terrors"
	"github.com/dreamware/torusdb/internal/types"
)

// Decode validates the header and directory and returns a Chunk whose
// columns are decompressed lazily on first access via Triples or
// column lookups, not eagerly here.
func Decode(data []byte) (*Chunk, error) {
	if len(data) < 4+2+4 {
		return nil, terrors.NewValidation("graphcol", "truncated header")
	}
	magic, off := readUint32(data, 0)
	if magic != Magic {
		return nil, terrors.NewValidation("graphcol", "bad magic")
	}
	version := uint16(data[off])<<8 | uint16(data[off+1])
	off += 2
	if version != Version {
		return nil, terrors.NewValidation("graphcol", "unsupported version")
	}

	var nsRaw []byte
	nsRaw, off = readLenPrefixed(data, off)
	namespace := string(nsRaw)

	tripleCount, off2 := readUint32(data, off)
	off = off2

	minTS := int64(decodeFixedInt64(data[off:off+8], 1)[0])
	maxTS := int64(decodeFixedInt64(data[off+8:off+16], 1)[0])
	off += 16

	flags, off2b := readUint32(data, off)
	off = off2b

	dirLen := int(data[off])<<8 | int(data[off+1])
	off += 2

	dir := make([]directoryEntry, dirLen)
	for i := 0; i < dirLen; i++ {
		nameLen := int(data[off])
		off++
		name := string(data[off : off+nameLen])
		off += nameLen
		encoding := Encoding(data[off])
		off++
		var offset, size uint32
		offset, off = readUint32(data, off)
		size, off = readUint32(data, off)
		dir[i] = directoryEntry{Name: name, Encoding: encoding, Offset: offset, Size: size}
	}

	var bloomRaw []byte
	bloomRaw, off = readLenPrefixed(data, off)
	bf, err := bloom.Deserialize(bloomRaw)
	if err != nil {
		return nil, terrors.NewValidation("graphcol", "bad bloom filter: "+err.Error())
	}

	return &Chunk{
		Header: Header{
			Namespace:    namespace,
			TripleCount:  tripleCount,
			MinTimestamp: minTS,
			MaxTimestamp: maxTS,
			Flags:        flags,
		},
		Bloom:        bf,
		raw:          data,
		dir:          dir,
		payloadStart: off,
	}, nil
}

// column decompresses and returns the raw (pre-decode) bytes for name,
// or nil if the chunk has no such column (a sparse column entirely
// absent from the encoded batch is simply omitted from the directory).
func (c *Chunk) column(name string) ([]byte, bool, error) {
	for _, d := range c.dir {
		if d.Name != name {
			continue
		}
		start := c.payloadStart + int(d.Offset)
		end := start + int(d.Size)
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, true, terrors.Fatal(err)
		}
		defer dec.Close()
		raw, err := dec.DecodeAll(c.raw[start:end], nil)
		if err != nil {
			return nil, true, terrors.NewValidation("graphcol", "corrupt column "+name+": "+err.Error())
		}
		return raw, true, nil
	}
	return nil, false, nil
}

func popcount(b *bitset, upto int) int {
	count := 0
	for i := 0; i < upto; i++ {
		if b.get(i) {
			count++
		}
	}
	return count
}

// Triples reconstructs the full ordered triple list this chunk encodes.
// The reconstructed order is the chunk's single canonical sort order
// (subject sort key, subject); GraphCol never reorders on decode.
func (c *Chunk) Triples() ([]types.Triple, error) {
	n := int(c.Header.TripleCount)
	out := make([]types.Triple, n)
	if n == 0 {
		return out, nil
	}

	subjectRaw, ok, err := c.column(ColSubject)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, terrors.NewValidation("graphcol", "missing subject column")
	}
	subjects := decodePlainStrings(subjectRaw, n)

	predicateRaw, ok, err := c.column(ColPredicate)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, terrors.NewValidation("graphcol", "missing predicate column")
	}
	predicates := decodeDictionary(predicateRaw, n)

	objTypeRaw, ok, err := c.column(ColObjType)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, terrors.NewValidation("graphcol", "missing obj_type column")
	}
	objTypes := decodeFixedUint8(objTypeRaw, n)

	timestampRaw, ok, err := c.column(ColTimestamp)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, terrors.NewValidation("graphcol", "missing timestamp column")
	}
	timestamps := decodeFixedInt64(timestampRaw, n)

	txIDRaw, ok, err := c.column(ColTxID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, terrors.NewValidation("graphcol", "missing tx_id column")
	}
	txIDs := decodePlainStrings(txIDRaw, n)

	refPresent, refVals, err := c.decodeSparseStringCol(ColObjRef, n)
	if err != nil {
		return nil, err
	}
	strPresent, strVals, err := c.decodeSparseStringCol(ColObjString, n)
	if err != nil {
		return nil, err
	}
	i64Present, i64Vals, err := c.decodeSparseInt64Col(ColObjInt64, n)
	if err != nil {
		return nil, err
	}
	f64Present, f64Vals, err := c.decodeSparseFloat64Col(ColObjFloat64, n)
	if err != nil {
		return nil, err
	}
	boolPresent, boolVals, err := c.decodeSparseBoolCol(n)
	if err != nil {
		return nil, err
	}
	tsPresent, tsVals, err := c.decodeSparseInt64Col(ColObjTime, n)
	if err != nil {
		return nil, err
	}
	latPresent, latVals, err := c.decodeSparseFloat64Col(ColObjLat, n)
	if err != nil {
		return nil, err
	}
	lngPresent, lngVals, err := c.decodeSparseFloat64Col(ColObjLng, n)
	if err != nil {
		return nil, err
	}
	binPresent, binVals, err := c.decodeSparseBytesCol(n)
	if err != nil {
		return nil, err
	}
	langPresent, langVals, err := c.decodeSparseStringCol(ColObjLang, n)
	if err != nil {
		return nil, err
	}
	unitPresent, unitVals, err := c.decodeSparseStringCol(ColObjUnit, n)
	if err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		obj := types.TypedObject{Tag: types.Tag(objTypes[i])}
		switch obj.Tag {
		case types.TagRef:
			obj.Ref = types.EntityId(refVals[popcount(refPresent, i)])
		case types.TagString, types.TagURL:
			obj.Str = strVals[popcount(strPresent, i)]
		case types.TagInt32:
			obj.I32 = int32(i64Vals[popcount(i64Present, i)])
		case types.TagInt64:
			obj.I64 = i64Vals[popcount(i64Present, i)]
		case types.TagFloat64:
			obj.F64 = f64Vals[popcount(f64Present, i)]
		case types.TagBool:
			obj.Bool = boolVals.get(i)
		case types.TagTimestamp:
			obj.TS = tsVals[popcount(tsPresent, i)]
		case types.TagGeoPoint:
			obj.Geo = types.GeoPoint{
				Lat: latVals[popcount(latPresent, i)],
				Lng: lngVals[popcount(lngPresent, i)],
			}
		case types.TagMonolingual:
			obj.Mono = types.Monolingual{
				Text: strVals[popcount(strPresent, i)],
				Lang: langVals[popcount(langPresent, i)],
			}
		case types.TagQuantity:
			q := types.Quantity{Value: f64Vals[popcount(f64Present, i)]}
			if unitPresent != nil && unitPresent.get(i) {
				q.Unit = unitVals[popcount(unitPresent, i)]
			}
			obj.Quant = q
		case types.TagJSON, types.TagBinary:
			obj.Bytes = binVals[popcount(binPresent, i)]
		}

		out[i] = types.Triple{
			Subject:   types.EntityId(subjects[i]),
			Predicate: types.Predicate(predicates[i]),
			Object:    obj,
			Timestamp: timestamps[i],
			TxID:      types.TransactionId(txIDs[i]),
		}
	}

	return out, nil
}

func (c *Chunk) decodeSparseStringCol(name string, n int) (*bitset, []string, error) {
	raw, ok, err := c.column(name)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, nil
	}
	bmLen := (n + 7) / 8
	presentCount := popcount(bitsetFromBytes(n, raw[:bmLen]), n)
	bm, vals := decodeSparseStrings(raw, n, presentCount)
	return bm, vals, nil
}

func (c *Chunk) decodeSparseInt64Col(name string, n int) (*bitset, []int64, error) {
	raw, ok, err := c.column(name)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, nil
	}
	bmLen := (n + 7) / 8
	presentCount := popcount(bitsetFromBytes(n, raw[:bmLen]), n)
	bm, vals := decodeSparseInt64(raw, n, presentCount)
	return bm, vals, nil
}

func (c *Chunk) decodeSparseFloat64Col(name string, n int) (*bitset, []float64, error) {
	raw, ok, err := c.column(name)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, nil
	}
	bmLen := (n + 7) / 8
	presentCount := popcount(bitsetFromBytes(n, raw[:bmLen]), n)
	bm, vals := decodeSparseFloat64(raw, n, presentCount)
	return bm, vals, nil
}

func (c *Chunk) decodeSparseBoolCol(n int) (*bitset, *bitset, error) {
	raw, ok, err := c.column(ColObjBool)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return newBitset(n), newBitset(n), nil
	}
	present, values := decodeSparseBools(raw, n)
	return present, values, nil
}

func (c *Chunk) decodeSparseBytesCol(n int) (*bitset, [][]byte, error) {
	raw, ok, err := c.column(ColObjBinary)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, nil
	}
	bmLen := (n + 7) / 8
	presentCount := popcount(bitsetFromBytes(n, raw[:bmLen]), n)
	bm, vals := decodeSparseBytes(raw, n, presentCount)
	return bm, vals, nil
}
