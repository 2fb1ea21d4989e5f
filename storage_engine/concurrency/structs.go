package concurrency

import (
	"sync"

	"DaemonDB/types"
)

// LockMode is the granularity-less, tuple-level lock mode a transaction
// can hold on a RID. There is no intention/table mode here — that is an
// explicit non-goal; every lock is taken directly on a row pointer.
type LockMode uint8

const (
	Shared LockMode = iota
	Exclusive
)

// AbortReason explains why LockManager refused a lock request and aborted
// the requesting transaction, mirroring BusTub's TransactionAbortException
// cause codes without the exception — Go callers get it back as an error.
type AbortReason uint8

const (
	AbortUpgradeConflict AbortReason = iota
	AbortLockOnShrinking
	AbortSharedOnReadUncommitted
	AbortDeadlockWound
)

func (r AbortReason) String() string {
	switch r {
	case AbortUpgradeConflict:
		return "upgrade conflict: another transaction is already upgrading this lock"
	case AbortLockOnShrinking:
		return "lock requested while transaction is in the shrinking phase"
	case AbortSharedOnReadUncommitted:
		return "READ_UNCOMMITTED transactions may not take shared locks"
	case AbortDeadlockWound:
		return "aborted by an older transaction to break a deadlock"
	default:
		return "unknown abort reason"
	}
}

// AbortError is returned when a lock request cannot be granted and the
// calling transaction must abort.
type AbortError struct {
	TxnID  uint64
	Reason AbortReason
}

func (e *AbortError) Error() string {
	return e.Reason.String()
}

type lockRequest struct {
	txnID   uint64
	mode    LockMode
	granted bool
}

// lockRequestQueue serializes access to a single RID's lock state. cond is
// used both to wait for a conflicting holder to release and to wake a
// waiter that has just been wounded.
type lockRequestQueue struct {
	requests  []*lockRequest
	cond      *sync.Cond
	upgrading uint64 // txnID currently upgrading, 0 if none
}

// LockManager grants and releases tuple-level locks under wound-wait
// deadlock prevention: a request from an older transaction wounds
// (aborts) any younger transaction holding a conflicting lock instead of
// waiting for it, so the system never needs cycle detection.
type LockManager struct {
	mu     sync.Mutex
	queues map[types.RowPointer]*lockRequestQueue

	// wounded marks younger transactions that an older requester has
	// aborted under wound-wait. A waiter asleep on a queue's cond checks
	// this after waking up.
	wounded map[uint64]bool
}

func NewLockManager() *LockManager {
	return &LockManager{
		queues:  make(map[types.RowPointer]*lockRequestQueue),
		wounded: make(map[uint64]bool),
	}
}
