package locking

import "errors"

var (
	// ErrLockOnShrinking is returned when a transaction in the Shrinking
	// state attempts to acquire any lock, violating strict 2PL.
	ErrLockOnShrinking = errors.New("locking: cannot acquire lock while shrinking")

	// ErrLockSharedOnReadUncommitted is returned by LockShared for a
	// ReadUncommitted transaction, which never needs shared locks.
	ErrLockSharedOnReadUncommitted = errors.New("locking: shared lock requested under read-uncommitted isolation")

	// ErrUpgradeConflict is returned by LockUpgrade when another upgrade on
	// the same row is already pending.
	ErrUpgradeConflict = errors.New("locking: another upgrade is already pending on this row")

	// ErrDeadlock is returned to a transaction the deadlock detector chose
	// as a victim while it was blocked waiting for a lock.
	ErrDeadlock = errors.New("locking: transaction aborted to break a deadlock")

	// ErrTxnNotFound is returned by TxnManager.GetTransaction for an unknown id.
	ErrTxnNotFound = errors.New("locking: transaction not found")
)
