package triplestore

import "github.com/dreamware/torusdb/internal/types"

// Hooks is the Index Maintainer's contract (§4.2): the triple store
// calls these synchronously, inside the same transaction as the row
// write, so a failed hook rolls back the write alongside it.
type Hooks interface {
	OnInsert(t types.Triple) error
	OnUpdate(old, new types.Triple) error
	OnDelete(t types.Triple) error
	OnBatchInsert(ts []types.Triple) error
	OnBatchDelete(ts []types.Triple) error
}

// NoopHooks satisfies Hooks without touching any index; useful for
// tests of the triple store in isolation and as the Store's default
// before an Index Maintainer is attached.
type NoopHooks struct{}

func (NoopHooks) OnInsert(types.Triple) error             { return nil }
func (NoopHooks) OnUpdate(_, _ types.Triple) error        { return nil }
func (NoopHooks) OnDelete(types.Triple) error              { return nil }
func (NoopHooks) OnBatchInsert([]types.Triple) error       { return nil }
func (NoopHooks) OnBatchDelete([]types.Triple) error        { return nil }
