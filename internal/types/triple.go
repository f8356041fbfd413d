package types

import (
	"github.com/dreamware/torusdb/internal/terrors"
)

// Triple is one (subject, predicate) -> object assertion, versioned by
// Timestamp and TxID. A store holds at most one live Triple per
// (Subject, Predicate) key: the row with the greatest (Timestamp, TxID)
// pair is the latest version, and latest-wins with Object.IsTombstone()
// true means the key is deleted.
type Triple struct {
	Subject   EntityId
	Predicate Predicate
	Object    TypedObject
	Timestamp int64 // ms since epoch
	TxID      TransactionId
}

// NewTriple constructs and validates a Triple from already-parsed
// components.
func NewTriple(subject EntityId, predicate Predicate, object TypedObject, timestamp int64, txID TransactionId) (Triple, error) {
	t := Triple{
		Subject:   subject,
		Predicate: predicate,
		Object:    object,
		Timestamp: timestamp,
		TxID:      txID,
	}
	if err := t.Validate(); err != nil {
		return Triple{}, err
	}
	return t, nil
}

// Validate checks the Triple's own invariants: non-empty key fields, a
// well-formed object payload, and a non-negative timestamp.
func (t Triple) Validate() error {
	if t.Subject == "" {
		return terrors.NewValidation("triple.subject", "empty")
	}
	if t.Predicate == "" {
		return terrors.NewValidation("triple.predicate", "empty")
	}
	if t.Timestamp < 0 {
		return terrors.NewValidation("triple.timestamp", "negative")
	}
	if t.TxID == "" {
		return terrors.NewValidation("triple.tx_id", "empty")
	}
	return t.Object.Validate()
}

// Key returns the (Subject, Predicate) identity this Triple versions.
func (t Triple) Key() TripleKey {
	return TripleKey{Subject: t.Subject, Predicate: t.Predicate}
}

// TripleKey identifies the latest-wins slot a Triple occupies,
// independent of its version.
type TripleKey struct {
	Subject   EntityId
	Predicate Predicate
}

// newerThan orders two Triples that share a Key: the greater (Timestamp,
// TxID) pair wins, with TxID (which is itself time-ordered and strictly
// monotonic per writer) breaking timestamp ties deterministically.
func (t Triple) newerThan(other Triple) bool {
	if t.Timestamp != other.Timestamp {
		return t.Timestamp > other.Timestamp
	}
	return other.TxID.Less(t.TxID)
}

// Newer returns whichever of a, b has the greater (Timestamp, TxID) pair.
func Newer(a, b Triple) Triple {
	if a.newerThan(b) {
		return a
	}
	return b
}
