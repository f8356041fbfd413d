// Package bloom implements a fixed-size bit-array bloom filter used both
// to route CDC chunk reads and to skip shards known not to hold an
// entity. Parameters (bit count m, hash count k) are derived from a
// target capacity and false-positive rate using the standard formulas;
// hashing is double-hashing built from two FNV-1a passes so no external
// hash library is required for the filter's core loop.
package bloom

import (
	"encoding/binary"
	"hash/fnv"
	"math"

	"github.com/dreamware/torusdb/internal/terrors"
)

// Filter is a bit-array bloom filter over arbitrary byte-slice items.
// It never removes a set bit: Add is the only write operation, so
// membership tests are monotonic. Count tracks a logical add/remove
// tally for observability but does not affect bit state.
type Filter struct {
	n     uint64 // configured capacity
	p     float64
	m     uint64 // bit count
	k     uint64 // hash count
	bits  []byte
	count uint64
}

// New creates a Filter sized for capacity n items at target false
// positive rate p (0 < p < 1).
func New(n uint64, p float64) (*Filter, error) {
	if n == 0 {
		return nil, terrors.NewValidation("bloom.n", "must be > 0")
	}
	if p <= 0 || p >= 1 {
		return nil, terrors.NewValidation("bloom.p", "must be in (0, 1)")
	}
	m := optimalM(n, p)
	k := optimalK(m, n)
	return &Filter{
		n:    n,
		p:    p,
		m:    m,
		k:    k,
		bits: make([]byte, (m+7)/8),
	}, nil
}

func optimalM(n uint64, p float64) uint64 {
	m := math.Ceil(-1 * float64(n) * math.Log(p) / (math.Ln2 * math.Ln2))
	if m < 8 {
		m = 8
	}
	return uint64(m)
}

func optimalK(m, n uint64) uint64 {
	k := math.Round(float64(m) / float64(n) * math.Ln2)
	if k < 1 {
		k = 1
	}
	return uint64(k)
}

// hashPair returns the two base hashes used to derive k index hashes
// via double hashing: h_i(x) = h1(x) + i*h2(x) mod m.
func hashPair(item []byte) (uint64, uint64) {
	h1 := fnv.New64a()
	h1.Write(item)
	first := h1.Sum64()

	h2 := fnv.New64a()
	h2.Write(item)
	h2.Write([]byte{0x00})
	second := h2.Sum64()

	return first, second
}

func (f *Filter) indexes(item []byte) []uint64 {
	h1, h2 := hashPair(item)
	idxs := make([]uint64, f.k)
	for i := uint64(0); i < f.k; i++ {
		idxs[i] = (h1 + i*h2) % f.m
	}
	return idxs
}

func (f *Filter) setBit(i uint64) {
	f.bits[i/8] |= 1 << (i % 8)
}

func (f *Filter) getBit(i uint64) bool {
	return f.bits[i/8]&(1<<(i%8)) != 0
}

// Add sets the k bits for item and increments count. Never removes a
// bit: bloom filters in this package are add-only.
func (f *Filter) Add(item []byte) {
	for _, i := range f.indexes(item) {
		f.setBit(i)
	}
	f.count++
}

// AddMany bulk-inserts items.
func (f *Filter) AddMany(items [][]byte) {
	for _, item := range items {
		f.Add(item)
	}
}

// MightExist probes the k bits for item. False means definitely absent;
// true means possibly present.
func (f *Filter) MightExist(item []byte) bool {
	for _, i := range f.indexes(item) {
		if !f.getBit(i) {
			return false
		}
	}
	return true
}

// Count returns the logical item tally: incremented by Add, decremented
// by DecrementCount. The bit array is unaffected by either.
func (f *Filter) Count() uint64 { return f.count }

// DecrementCount records a logical delete without clearing any bits:
// membership tests stay monotonic even though the shard's live count
// of distinct items may have shrunk.
func (f *Filter) DecrementCount() {
	if f.count > 0 {
		f.count--
	}
}

// N, P, M, K expose the filter's sizing parameters.
func (f *Filter) N() uint64    { return f.n }
func (f *Filter) P() float64   { return f.p }
func (f *Filter) M() uint64    { return f.m }
func (f *Filter) K() uint64    { return f.k }

// Serialize produces the compact wire form: n, p, m, k, count, then the
// raw bit array.
func (f *Filter) Serialize() []byte {
	buf := make([]byte, 8+8+8+8+8+len(f.bits))
	binary.BigEndian.PutUint64(buf[0:8], f.n)
	binary.BigEndian.PutUint64(buf[8:16], math.Float64bits(f.p))
	binary.BigEndian.PutUint64(buf[16:24], f.m)
	binary.BigEndian.PutUint64(buf[24:32], f.k)
	binary.BigEndian.PutUint64(buf[32:40], f.count)
	copy(buf[40:], f.bits)
	return buf
}

// Deserialize parses the wire form produced by Serialize.
func Deserialize(data []byte) (*Filter, error) {
	const headerLen = 40
	if len(data) < headerLen {
		return nil, terrors.NewValidation("bloom", "truncated header")
	}
	n := binary.BigEndian.Uint64(data[0:8])
	p := math.Float64frombits(binary.BigEndian.Uint64(data[8:16]))
	m := binary.BigEndian.Uint64(data[16:24])
	k := binary.BigEndian.Uint64(data[24:32])
	count := binary.BigEndian.Uint64(data[32:40])

	wantBits := int((m + 7) / 8)
	if len(data)-headerLen != wantBits {
		return nil, terrors.NewValidation("bloom", "bit array length mismatch")
	}
	bits := make([]byte, wantBits)
	copy(bits, data[headerLen:])

	return &Filter{n: n, p: p, m: m, k: k, bits: bits, count: count}, nil
}
