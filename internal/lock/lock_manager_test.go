package locking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/minisql-engine/core/internal/record"
)

func row(pageID int32) record.RowID {
	return record.RowID{PageID: pageID, SlotID: 0}
}

func TestLockManager_SharedLocksAreCompatible(t *testing.T) {
	txnMgr := NewTxnManager()
	lm := NewLockManager(txnMgr)

	t1 := txnMgr.Begin(RepeatableRead)
	t2 := txnMgr.Begin(RepeatableRead)
	r := row(1)

	require.NoError(t, lm.LockShared(t1, r))
	require.NoError(t, lm.LockShared(t2, r))
	require.NoError(t, lm.Unlock(t1, r))
	require.NoError(t, lm.Unlock(t2, r))
}

func TestLockManager_ExclusiveWaitsForSharedRelease(t *testing.T) {
	txnMgr := NewTxnManager()
	lm := NewLockManager(txnMgr)

	reader := txnMgr.Begin(RepeatableRead)
	writer := txnMgr.Begin(RepeatableRead)
	r := row(7)

	require.NoError(t, lm.LockShared(reader, r))

	grantedAt := make(chan time.Time, 1)
	go func() {
		_ = lm.LockExclusive(writer, r)
		grantedAt <- time.Now()
	}()

	time.Sleep(50 * time.Millisecond)
	select {
	case <-grantedAt:
		t.Fatal("exclusive lock granted before shared lock released")
	default:
	}

	unlockedAt := time.Now()
	require.NoError(t, lm.Unlock(reader, r))

	select {
	case g := <-grantedAt:
		require.True(t, !g.Before(unlockedAt))
	case <-time.After(time.Second):
		t.Fatal("writer never woke up after reader released its shared lock")
	}

	require.NoError(t, lm.Unlock(writer, r))
}

func TestLockManager_LockOnShrinkingIsRejected(t *testing.T) {
	txnMgr := NewTxnManager()
	lm := NewLockManager(txnMgr)

	txn := txnMgr.Begin(RepeatableRead)
	r1, r2 := row(1), row(2)

	require.NoError(t, lm.LockShared(txn, r1))
	require.NoError(t, lm.Unlock(txn, r1))
	require.Equal(t, Shrinking, txn.State)

	err := lm.LockShared(txn, r2)
	require.ErrorIs(t, err, ErrLockOnShrinking)
	require.Equal(t, Aborted, txn.State)
}

func TestLockManager_SharedRejectedUnderReadUncommitted(t *testing.T) {
	txnMgr := NewTxnManager()
	lm := NewLockManager(txnMgr)

	txn := txnMgr.Begin(ReadUncommitted)
	err := lm.LockShared(txn, row(1))
	require.ErrorIs(t, err, ErrLockSharedOnReadUncommitted)
	require.Equal(t, Aborted, txn.State)
}

func TestLockManager_UpgradeConflictWhenTwoTxnsRace(t *testing.T) {
	txnMgr := NewTxnManager()
	lm := NewLockManager(txnMgr)

	t1 := txnMgr.Begin(RepeatableRead)
	t2 := txnMgr.Begin(RepeatableRead)
	r := row(3)

	require.NoError(t, lm.LockShared(t1, r))
	require.NoError(t, lm.LockShared(t2, r))

	upgradeErr := make(chan error, 1)
	go func() {
		upgradeErr <- lm.LockUpgrade(t1, r)
	}()
	time.Sleep(30 * time.Millisecond)

	err := lm.LockUpgrade(t2, r)
	require.ErrorIs(t, err, ErrUpgradeConflict)
	require.Equal(t, Aborted, t2.State)

	require.NoError(t, lm.Unlock(t2, r))

	select {
	case err := <-upgradeErr:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("t1's upgrade never completed")
	}
	require.NoError(t, lm.Unlock(t1, r))
}

func TestDeadlockDetector_AbortsYoungestInCycle(t *testing.T) {
	txnMgr := NewTxnManager()
	lm := NewLockManager(txnMgr)

	t1 := txnMgr.Begin(RepeatableRead) // id 1, older
	t2 := txnMgr.Begin(RepeatableRead) // id 2, younger

	rA := row(10)
	rB := row(20)

	require.NoError(t, lm.LockExclusive(t1, rA))
	require.NoError(t, lm.LockExclusive(t2, rB))

	t1Blocked := make(chan error, 1)
	t2Blocked := make(chan error, 1)
	go func() { t1Blocked <- lm.LockExclusive(t1, rB) }()
	go func() { t2Blocked <- lm.LockExclusive(t2, rA) }()

	time.Sleep(30 * time.Millisecond)

	detector := NewDeadlockDetector(lm, txnMgr, 20*time.Millisecond)
	detector.Start()
	defer detector.Stop()

	var sawAbort, sawGrant error
	select {
	case sawAbort = <-t2Blocked:
	case sawGrant = <-t1Blocked:
	case <-time.After(2 * time.Second):
		t.Fatal("deadlock detector never broke the cycle")
	}

	if sawAbort != nil {
		require.ErrorIs(t, sawAbort, ErrDeadlock)
		require.Equal(t, Aborted, t2.State)
		require.NoError(t, lm.Unlock(t2, rB))
		select {
		case err := <-t1Blocked:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("t1 never acquired rB after t2 was aborted")
		}
	} else {
		require.NoError(t, sawGrant)
		t.Fatal("expected the younger transaction (t2) to be the victim, not t1 to be granted")
	}
}
