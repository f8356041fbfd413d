// Package graphcol implements the GraphCol columnar chunk codec: an
// immutable, sorted, columnar encoding of a batch of triples from a
// single namespace, with an embedded bloom filter over the subject
// column. Chunks are produced by the CDC coordinator's flush path and
// consumed by chunk readers that want to skip a chunk entirely when its
// bloom filter rules out the subject they're looking for.
package graphcol

import (
	"github.com/dreamware/torusdb/internal/bloom"
)

// Magic identifies a GraphCol chunk as the big-endian bytes "GCOL";
// Version allows the layout to evolve without breaking readers of old
// chunks (none yet, so readers reject anything but the current version).
const (
	Magic   uint32 = 0x47434F4C // "GCOL"
	Version uint16 = 1
)

// Encoding identifies how a column's payload bytes are laid out before
// compression.
type Encoding uint8

const (
	EncodingPlain      Encoding = iota // length-prefixed values in row order
	EncodingDictionary                 // dictionary + per-row (or per-present-row) index
	EncodingFixed                      // fixed-width values in row order, no length prefix
	EncodingBitset                     // packed bits, one per row
)

// Column names, matching the triple store's per-tag value columns
// (§4.1's schema). Columns beyond the five always-present ones are
// sparse: a null bitmap precedes their packed values.
const (
	ColSubject     = "subject"
	ColPredicate   = "predicate"
	ColObjType     = "obj_type"
	ColTimestamp   = "timestamp"
	ColTxID        = "tx_id"
	ColObjRef      = "obj_ref"
	ColObjString   = "obj_string"
	ColObjInt64    = "obj_int64"
	ColObjFloat64  = "obj_float64"
	ColObjBool     = "obj_bool"
	ColObjTime     = "obj_timestamp"
	ColObjLat      = "obj_lat"
	ColObjLng      = "obj_lng"
	ColObjBinary   = "obj_binary"
	ColObjLang     = "obj_lang"
	ColObjUnit     = "obj_unit"
)

// alwaysPresentColumns appear for every row with no null bitmap.
var alwaysPresentColumns = []string{ColSubject, ColPredicate, ColObjType, ColTimestamp, ColTxID}

// sparseColumns are present only for rows whose obj_type needs them; a
// null bitmap precedes the packed values.
var sparseColumns = []string{
	ColObjRef, ColObjString, ColObjInt64, ColObjFloat64, ColObjBool,
	ColObjTime, ColObjLat, ColObjLng, ColObjBinary, ColObjLang, ColObjUnit,
}

// directoryEntry describes one column's location within the payload
// section and how it was encoded, prior to compression.
type directoryEntry struct {
	Name     string
	Encoding Encoding
	Offset   uint32 // byte offset into the (concatenated, compressed) payload section
	Size     uint32 // compressed size in bytes
}

// Header carries the self-describing metadata every chunk starts with.
// Flags is reserved for future per-chunk bits (none defined yet) and is
// always written as zero.
type Header struct {
	Namespace    string
	TripleCount  uint32
	MinTimestamp int64
	MaxTimestamp int64
	Flags        uint32
}

// Chunk is a decoded GraphCol chunk: the header, the subject bloom
// filter, and a lazily-materialized set of triples.
type Chunk struct {
	Header Header
	Bloom  *bloom.Filter
	raw    []byte
	dir    []directoryEntry
	// payloadStart is the byte offset within raw where compressed
	// column payloads begin; directory offsets are relative to it.
	payloadStart int
}
