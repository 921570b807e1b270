package locking

import (
	"log/slog"
	"sync"

	"github.com/minisql-engine/core/internal/record"
)

// LockMode is the mode a lock request asks for, or has been granted.
type LockMode int

const (
	ModeNone LockMode = iota
	ModeShared
	ModeExclusive
)

// lockRequest is one entry in a row's FIFO queue.
type lockRequest struct {
	txnID   int64
	mode    LockMode // requested mode
	granted LockMode // ModeNone until the request is satisfied
}

// lockRequestQueue is the per-row wait queue: fields mirror the spec's
// (sharing_count, is_writing, is_upgrading, cv) tuple. cond shares the
// LockManager's single mutex, so every predicate below is evaluated with
// that mutex held.
type lockRequestQueue struct {
	reqs        []*lockRequest
	sharingCnt  int
	isWriting   bool
	isUpgrading bool
	cond        *sync.Cond
}

func (q *lockRequestQueue) find(txnID int64) *lockRequest {
	for _, r := range q.reqs {
		if r.txnID == txnID {
			return r
		}
	}
	return nil
}

func (q *lockRequestQueue) remove(txnID int64) {
	for i, r := range q.reqs {
		if r.txnID == txnID {
			q.reqs = append(q.reqs[:i], q.reqs[i+1:]...)
			return
		}
	}
}

// LockManager grants row-granularity shared/exclusive/upgrade locks under
// strict two-phase locking, with a background worker (see
// deadlock_detector.go) aborting a victim transaction whenever the wait-for
// graph built from these queues contains a cycle.
type LockManager struct {
	mu    sync.Mutex
	table map[record.RowID]*lockRequestQueue

	txnMgr *TxnManager
}

func NewLockManager(txnMgr *TxnManager) *LockManager {
	return &LockManager{
		table:  make(map[record.RowID]*lockRequestQueue),
		txnMgr: txnMgr,
	}
}

func (lm *LockManager) queueFor(rid record.RowID) *lockRequestQueue {
	q, ok := lm.table[rid]
	if !ok {
		q = &lockRequestQueue{}
		q.cond = sync.NewCond(&lm.mu)
		lm.table[rid] = q
	}
	return q
}

// lockPrepare enforces strict 2PL: a Shrinking transaction may never
// acquire another lock. Caller holds lm.mu.
func (lm *LockManager) lockPrepare(txn *Txn) error {
	if txn.State == Shrinking {
		txn.State = Aborted
		return ErrLockOnShrinking
	}
	return nil
}

// checkAbort removes txn's queue entry and returns ErrDeadlock if the
// deadlock detector aborted it while it was waiting. Caller holds lm.mu.
func (lm *LockManager) checkAbort(txn *Txn, q *lockRequestQueue) error {
	if txn.State == Aborted {
		q.remove(txn.ID)
		return ErrDeadlock
	}
	return nil
}

// LockShared acquires a shared lock on rid for txn, blocking while an
// exclusive lock is held by another transaction.
func (lm *LockManager) LockShared(txn *Txn, rid record.RowID) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if txn.Isolation == ReadUncommitted {
		txn.State = Aborted
		return ErrLockSharedOnReadUncommitted
	}
	if err := lm.lockPrepare(txn); err != nil {
		return err
	}

	q := lm.queueFor(rid)
	req := &lockRequest{txnID: txn.ID, mode: ModeShared}
	q.reqs = append(q.reqs, req)

	for q.isWriting && txn.State != Aborted {
		q.cond.Wait()
	}
	if err := lm.checkAbort(txn, q); err != nil {
		return err
	}

	txn.SharedLocks[rid] = struct{}{}
	q.sharingCnt++
	req.granted = ModeShared
	slog.Debug("locking.LockShared", "txn", txn.ID, "row", rid)
	return nil
}

// LockExclusive acquires an exclusive lock on rid for txn, blocking while
// any other transaction holds a shared or exclusive lock.
func (lm *LockManager) LockExclusive(txn *Txn, rid record.RowID) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if err := lm.lockPrepare(txn); err != nil {
		return err
	}

	q := lm.queueFor(rid)
	req := &lockRequest{txnID: txn.ID, mode: ModeExclusive}
	q.reqs = append(q.reqs, req)

	for (q.isWriting || q.sharingCnt > 0) && txn.State != Aborted {
		q.cond.Wait()
	}
	if err := lm.checkAbort(txn, q); err != nil {
		return err
	}

	txn.ExclusiveLocks[rid] = struct{}{}
	q.isWriting = true
	req.granted = ModeExclusive
	slog.Debug("locking.LockExclusive", "txn", txn.ID, "row", rid)
	return nil
}

// LockUpgrade upgrades txn's already-held shared lock on rid to exclusive.
func (lm *LockManager) LockUpgrade(txn *Txn, rid record.RowID) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if err := lm.lockPrepare(txn); err != nil {
		return err
	}

	q := lm.queueFor(rid)
	if q.isUpgrading {
		txn.State = Aborted
		return ErrUpgradeConflict
	}

	req := q.find(txn.ID)
	if req == nil {
		req = &lockRequest{txnID: txn.ID, mode: ModeShared, granted: ModeShared}
		q.reqs = append(q.reqs, req)
	}
	if req.mode == ModeExclusive || req.granted == ModeExclusive {
		return nil
	}
	req.mode = ModeExclusive

	if q.isWriting || q.sharingCnt > 1 {
		q.isUpgrading = true
		for (q.isWriting || q.sharingCnt != 1) && txn.State != Aborted {
			q.cond.Wait()
		}
	}
	if txn.State == Aborted {
		q.isUpgrading = false
	}
	if err := lm.checkAbort(txn, q); err != nil {
		return err
	}

	delete(txn.SharedLocks, rid)
	txn.ExclusiveLocks[rid] = struct{}{}
	q.sharingCnt--
	q.isUpgrading = false
	q.isWriting = true
	req.granted = ModeExclusive
	slog.Debug("locking.LockUpgrade", "txn", txn.ID, "row", rid)
	return nil
}

// Unlock releases txn's lock on rid, notifying every waiter on the row's
// queue. The first Unlock a transaction ever issues moves it from Growing
// to Shrinking, per strict 2PL.
func (lm *LockManager) Unlock(txn *Txn, rid record.RowID) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	q := lm.queueFor(rid)
	req := q.find(txn.ID)
	var granted LockMode
	if req != nil {
		granted = req.granted
	}
	q.remove(txn.ID)

	switch granted {
	case ModeShared:
		q.sharingCnt--
		q.cond.Broadcast()
		delete(txn.SharedLocks, rid)
	case ModeExclusive:
		q.isWriting = false
		q.cond.Broadcast()
		delete(txn.ExclusiveLocks, rid)
	}

	if txn.State == Growing {
		txn.State = Shrinking
	}
	slog.Debug("locking.Unlock", "txn", txn.ID, "row", rid)
	return nil
}
