package types

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/dreamware/torusdb/internal/terrors"
)

// TransactionId is a lexicographically sortable, time-ordered 26-character
// identifier (ULID form), monotonic within a writer.
type TransactionId string

// ParseTransactionId validates that s is a well-formed 26-character ULID
// string.
func ParseTransactionId(s string) (TransactionId, error) {
	if len(s) != 26 {
		return "", terrors.NewValidation("tx_id", "must be 26 characters")
	}
	if _, err := ulid.ParseStrict([]byte(s)); err != nil {
		return "", terrors.NewValidation("tx_id", "not a valid ULID: "+err.Error())
	}
	return TransactionId(s), nil
}

func (t TransactionId) String() string { return string(t) }

// Less reports whether t sorts before other, matching ULID's
// lexicographic-equals-chronological ordering.
func (t TransactionId) Less(other TransactionId) bool { return t < other }

// TxIDGenerator produces strictly monotonically increasing TransactionIds
// for a single writer. ULID's millisecond timestamp alone does not
// guarantee monotonicity for back-to-back calls within the same
// millisecond, so the generator uses ulid.Monotonic, which increments the
// random component when the clock does not advance.
type TxIDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewTxIDGenerator creates a generator seeded from crypto/rand.
func NewTxIDGenerator() *TxIDGenerator {
	return &TxIDGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Next returns the next TransactionId, guaranteed to be strictly greater
// than every previous id this generator has produced.
func (g *TxIDGenerator) Next() TransactionId {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
	return TransactionId(id.String())
}
