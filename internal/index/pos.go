package index

import (
	"math"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/dreamware/torusdb/internal/types"
)

// posIndex answers "which subjects have predicate = value": a POS
// (predicate, obj_type, value) -> {subject} posting list backed by
// RoaringBitmap compressed bitmaps keyed by the idMap's dense subject
// ids.
type posIndex struct {
	mu    sync.RWMutex
	ids   *idMap
	posts map[string]*roaring.Bitmap // valueKey -> subjects
}

func newPOSIndex(ids *idMap) *posIndex {
	return &posIndex{ids: ids, posts: make(map[string]*roaring.Bitmap)}
}

// valueKey derives a POS posting-list key from predicate, obj_type, and
// the object's scalar value, so distinct tags/values never collide.
func valueKey(predicate types.Predicate, o types.TypedObject) string {
	switch o.Tag {
	case types.TagString, types.TagURL:
		return string(predicate) + "\x00" + o.Tag.String() + "\x00" + o.Str
	case types.TagRef:
		return string(predicate) + "\x00" + o.Tag.String() + "\x00" + o.Ref.String()
	case types.TagInt32:
		return string(predicate) + "\x00" + o.Tag.String() + "\x00" + itoa64(int64(o.I32))
	case types.TagInt64:
		return string(predicate) + "\x00" + o.Tag.String() + "\x00" + itoa64(o.I64)
	case types.TagBool:
		if o.Bool {
			return string(predicate) + "\x00" + o.Tag.String() + "\x00true"
		}
		return string(predicate) + "\x00" + o.Tag.String() + "\x00false"
	case types.TagMonolingual:
		return string(predicate) + "\x00" + o.Tag.String() + "\x00" + o.Mono.Lang + "\x00" + o.Mono.Text
	case types.TagFloat64:
		return string(predicate) + "\x00" + o.Tag.String() + "\x00" + itoa64(int64(math.Float64bits(o.F64)))
	case types.TagTimestamp:
		return string(predicate) + "\x00" + o.Tag.String() + "\x00" + itoa64(o.TS)
	case types.TagGeoPoint:
		return string(predicate) + "\x00" + o.Tag.String() + "\x00" + itoa64(int64(math.Float64bits(o.Geo.Lat))) + "\x00" + itoa64(int64(math.Float64bits(o.Geo.Lng)))
	case types.TagQuantity:
		return string(predicate) + "\x00" + o.Tag.String() + "\x00" + itoa64(int64(math.Float64bits(o.Quant.Value))) + "\x00" + o.Quant.Unit
	case types.TagJSON, types.TagBinary:
		return string(predicate) + "\x00" + o.Tag.String() + "\x00" + string(o.Bytes)
	default:
		return string(predicate) + "\x00" + o.Tag.String()
	}
}

func itoa64(v int64) string {
	// Avoid importing strconv for a one-off: base-10 signed formatting.
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func (p *posIndex) add(subject types.EntityId, predicate types.Predicate, o types.TypedObject) {
	key := valueKey(predicate, o)
	id := p.ids.idFor(subject.String())

	p.mu.Lock()
	defer p.mu.Unlock()
	bm, ok := p.posts[key]
	if !ok {
		bm = roaring.New()
		p.posts[key] = bm
	}
	bm.Add(id)
}

func (p *posIndex) remove(subject types.EntityId, predicate types.Predicate, o types.TypedObject) {
	key := valueKey(predicate, o)
	id, ok := p.ids.lookup(subject.String())
	if !ok {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if bm, ok := p.posts[key]; ok {
		bm.Remove(id)
	}
}

// subjectsWith returns every subject with predicate = o (exact match).
func (p *posIndex) subjectsWith(predicate types.Predicate, o types.TypedObject) []types.EntityId {
	key := valueKey(predicate, o)

	p.mu.RLock()
	bm, ok := p.posts[key]
	p.mu.RUnlock()
	if !ok {
		return nil
	}

	out := make([]types.EntityId, 0, bm.GetCardinality())
	for _, id := range bm.ToArray() {
		if s, ok := p.ids.subjectFor(id); ok {
			out = append(out, types.EntityId(s))
		}
	}
	return out
}
