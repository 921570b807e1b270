package locking

import "github.com/minisql-engine/core/internal/record"

// IsolationLevel controls whether a transaction takes shared locks at all.
type IsolationLevel int

const (
	ReadUncommitted IsolationLevel = iota
	ReadCommitted
	RepeatableRead
)

// TxnState is the strict two-phase-locking state machine: Growing
// transactions may acquire locks; the first Unlock moves a transaction to
// Shrinking, after which it may never acquire another lock.
type TxnState int

const (
	Growing TxnState = iota
	Shrinking
	Committed
	Aborted
)

func (s TxnState) String() string {
	switch s {
	case Growing:
		return "growing"
	case Shrinking:
		return "shrinking"
	case Committed:
		return "committed"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Txn tracks one transaction's isolation level, 2PL state, and the two
// disjoint sets of rows it currently holds locks on. Every field is only
// ever mutated while the owning LockManager's mutex is held, so Txn itself
// carries no lock of its own.
type Txn struct {
	ID        int64
	Isolation IsolationLevel
	State     TxnState

	SharedLocks    map[record.RowID]struct{}
	ExclusiveLocks map[record.RowID]struct{}
}

func newTxn(id int64, isolation IsolationLevel) *Txn {
	return &Txn{
		ID:             id,
		Isolation:      isolation,
		State:          Growing,
		SharedLocks:    make(map[record.RowID]struct{}),
		ExclusiveLocks: make(map[record.RowID]struct{}),
	}
}
