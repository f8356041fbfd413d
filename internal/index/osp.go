package index

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/dreamware/torusdb/internal/types"
)

// ospIndex answers reverse traversal: "which subjects point to target
// via predicate", covering REF-typed objects only (§4.1's OSP
// definition is partial, REF-only).
type ospIndex struct {
	mu    sync.RWMutex
	ids   *idMap
	posts map[string]*roaring.Bitmap // target|predicate -> subjects
}

func newOSPIndex(ids *idMap) *ospIndex {
	return &ospIndex{ids: ids, posts: make(map[string]*roaring.Bitmap)}
}

func ospKey(target types.EntityId, predicate types.Predicate) string {
	return target.String() + "\x00" + predicate.String()
}

func (o *ospIndex) add(subject types.EntityId, predicate types.Predicate, target types.EntityId) {
	key := ospKey(target, predicate)
	id := o.ids.idFor(subject.String())

	o.mu.Lock()
	defer o.mu.Unlock()
	bm, ok := o.posts[key]
	if !ok {
		bm = roaring.New()
		o.posts[key] = bm
	}
	bm.Add(id)
}

func (o *ospIndex) remove(subject types.EntityId, predicate types.Predicate, target types.EntityId) {
	key := ospKey(target, predicate)
	id, ok := o.ids.lookup(subject.String())
	if !ok {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if bm, ok := o.posts[key]; ok {
		bm.Remove(id)
	}
}

// reverseTraverse returns every subject with predicate pointing at
// target.
func (o *ospIndex) reverseTraverse(target types.EntityId, predicate types.Predicate) []types.EntityId {
	key := ospKey(target, predicate)

	o.mu.RLock()
	bm, ok := o.posts[key]
	o.mu.RUnlock()
	if !ok {
		return nil
	}

	out := make([]types.EntityId, 0, bm.GetCardinality())
	for _, id := range bm.ToArray() {
		if s, ok := o.ids.subjectFor(id); ok {
			out = append(out, types.EntityId(s))
		}
	}
	return out
}
