package graphcol

import (
	"encoding/binary"
	"math"
)

// The helpers in this file define the raw (pre-compression) byte layout
// for each Encoding. They are deliberately simple fixed formats so that
// encode/decode stay inverse of each other; zstd handles the actual
// space savings, including over the dictionary encoding's repeated
// index bytes.

func putUint32(buf []byte, v uint32) []byte {
	tmp := make([]byte, 4)
	binary.BigEndian.PutUint32(tmp, v)
	return append(buf, tmp...)
}

func putLenPrefixed(buf []byte, s []byte) []byte {
	buf = putUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func readUint32(data []byte, off int) (uint32, int) {
	return binary.BigEndian.Uint32(data[off : off+4]), off + 4
}

func readLenPrefixed(data []byte, off int) ([]byte, int) {
	n, off := readUint32(data, off)
	return data[off : off+int(n)], off + int(n)
}

// encodePlainStrings writes each value length-prefixed, in row order.
func encodePlainStrings(vals []string) []byte {
	buf := make([]byte, 0, len(vals)*8)
	for _, v := range vals {
		buf = putLenPrefixed(buf, []byte(v))
	}
	return buf
}

func decodePlainStrings(data []byte, n int) []string {
	out := make([]string, n)
	off := 0
	for i := 0; i < n; i++ {
		var raw []byte
		raw, off = readLenPrefixed(data, off)
		out[i] = string(raw)
	}
	return out
}

// encodeDictionary writes a dictionary of distinct values followed by a
// per-row uint32 index into it, in first-seen order.
func encodeDictionary(vals []string) []byte {
	index := make(map[string]uint32)
	dict := make([]string, 0)
	indices := make([]uint32, len(vals))
	for i, v := range vals {
		idx, ok := index[v]
		if !ok {
			idx = uint32(len(dict))
			index[v] = idx
			dict = append(dict, v)
		}
		indices[i] = idx
	}

	buf := make([]byte, 0)
	buf = putUint32(buf, uint32(len(dict)))
	for _, d := range dict {
		buf = putLenPrefixed(buf, []byte(d))
	}
	for _, idx := range indices {
		buf = putUint32(buf, idx)
	}
	return buf
}

func decodeDictionary(data []byte, n int) []string {
	dictLen, off := readUint32(data, 0)
	dict := make([]string, dictLen)
	for i := range dict {
		var raw []byte
		raw, off = readLenPrefixed(data, off)
		dict[i] = string(raw)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		var idx uint32
		idx, off = readUint32(data, off)
		out[i] = dict[idx]
	}
	return out
}

func encodeFixedUint8(vals []uint8) []byte {
	return append([]byte(nil), vals...)
}

func decodeFixedUint8(data []byte, n int) []uint8 {
	out := make([]uint8, n)
	copy(out, data[:n])
	return out
}

func encodeFixedInt64(vals []int64) []byte {
	buf := make([]byte, len(vals)*8)
	for i, v := range vals {
		binary.BigEndian.PutUint64(buf[i*8:], uint64(v))
	}
	return buf
}

func decodeFixedInt64(data []byte, n int) []int64 {
	out := make([]int64, n)
	for i := 0; i < n; i++ {
		out[i] = int64(binary.BigEndian.Uint64(data[i*8:]))
	}
	return out
}

func encodeFixedFloat64(vals []float64) []byte {
	buf := make([]byte, len(vals)*8)
	for i, v := range vals {
		binary.BigEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func decodeFixedFloat64(data []byte, n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float64frombits(binary.BigEndian.Uint64(data[i*8:]))
	}
	return out
}

// sparseStrings encodes a null bitmap over n rows followed by the
// present values' strings, length-prefixed, in row order.
func encodeSparseStrings(present *bitset, vals []string) []byte {
	buf := make([]byte, 0)
	buf = append(buf, present.bits...)
	for _, v := range vals {
		buf = putLenPrefixed(buf, []byte(v))
	}
	return buf
}

func decodeSparseStrings(data []byte, n, presentCount int) (*bitset, []string) {
	bmLen := (n + 7) / 8
	bm := bitsetFromBytes(n, append([]byte(nil), data[:bmLen]...))
	vals := decodePlainStrings(data[bmLen:], presentCount)
	return bm, vals
}

func encodeSparseInt64(present *bitset, vals []int64) []byte {
	buf := append([]byte(nil), present.bits...)
	return append(buf, encodeFixedInt64(vals)...)
}

func decodeSparseInt64(data []byte, n, presentCount int) (*bitset, []int64) {
	bmLen := (n + 7) / 8
	bm := bitsetFromBytes(n, append([]byte(nil), data[:bmLen]...))
	vals := decodeFixedInt64(data[bmLen:], presentCount)
	return bm, vals
}

func encodeSparseFloat64(present *bitset, vals []float64) []byte {
	buf := append([]byte(nil), present.bits...)
	return append(buf, encodeFixedFloat64(vals)...)
}

func decodeSparseFloat64(data []byte, n, presentCount int) (*bitset, []float64) {
	bmLen := (n + 7) / 8
	bm := bitsetFromBytes(n, append([]byte(nil), data[:bmLen]...))
	vals := decodeFixedFloat64(data[bmLen:], presentCount)
	return bm, vals
}

// encodeSparseBools packs null-presence and the boolean values
// themselves into two adjacent bitsets (presence, then value, both over
// n rows; value bits for absent rows are meaningless).
func encodeSparseBools(present *bitset, values *bitset) []byte {
	buf := append([]byte(nil), present.bits...)
	return append(buf, values.bits...)
}

func decodeSparseBools(data []byte, n int) (*bitset, *bitset) {
	bmLen := (n + 7) / 8
	present := bitsetFromBytes(n, append([]byte(nil), data[:bmLen]...))
	values := bitsetFromBytes(n, append([]byte(nil), data[bmLen:2*bmLen]...))
	return present, values
}

func encodeSparseBytes(present *bitset, vals [][]byte) []byte {
	buf := append([]byte(nil), present.bits...)
	for _, v := range vals {
		buf = putLenPrefixed(buf, v)
	}
	return buf
}

func decodeSparseBytes(data []byte, n, presentCount int) (*bitset, [][]byte) {
	bmLen := (n + 7) / 8
	bm := bitsetFromBytes(n, append([]byte(nil), data[:bmLen]...))
	out := make([][]byte, presentCount)
	off := bmLen
	for i := 0; i < presentCount; i++ {
		var raw []byte
		raw, off = readLenPrefixed(data, off)
		out[i] = append([]byte(nil), raw...)
	}
	return bm, out
}
