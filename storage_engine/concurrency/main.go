package concurrency

import (
	"fmt"
	"sync"

	txn "DaemonDB/storage_engine/transaction_manager"
	"DaemonDB/types"
)

/*
Wound-wait deadlock prevention, tuple granularity.

Transaction IDs increase monotonically (storage_engine/transaction_manager
hands them out from an atomic counter), so ID order is age order: the
transaction with the smaller ID is older. When a transaction requests a
lock held by a conflicting transaction, the older of the two always wins —
either it wounds (aborts) the younger holder and takes the lock right
away, or, if the requester is the younger one, it waits. Because the
older transaction never waits on a younger one, a wait-for cycle can never
form, so no cycle-detection pass is needed.

All queues share one mutex. This serializes lock bookkeeping across
unrelated RIDs, but keeps the wound/wait decision trivially correct to
reason about — the same tradeoff BusTub's own LockManager makes with a
single latch_ guarding every request queue.
*/

func (lm *LockManager) LockShared(t *txn.Transaction, rid types.RowPointer) error {
	return lm.acquire(t, rid, Shared)
}

func (lm *LockManager) LockExclusive(t *txn.Transaction, rid types.RowPointer) error {
	return lm.acquire(t, rid, Exclusive)
}

// LockUpgrade promotes an already-held shared lock on rid to exclusive.
// Only one transaction may upgrade a given RID at a time; a second
// concurrent upgrader aborts with AbortUpgradeConflict rather than
// deadlocking against the first.
func (lm *LockManager) LockUpgrade(t *txn.Transaction, rid types.RowPointer) error {
	lm.mu.Lock()

	q, ok := lm.queues[rid]
	if !ok {
		lm.mu.Unlock()
		return fmt.Errorf("LockUpgrade: transaction %d does not hold a lock on %+v", t.ID, rid)
	}
	if _, held := t.SharedLocks[rid]; !held {
		lm.mu.Unlock()
		return fmt.Errorf("LockUpgrade: transaction %d does not hold a shared lock on %+v", t.ID, rid)
	}
	if q.upgrading != 0 && q.upgrading != t.ID {
		lm.mu.Unlock()
		return &AbortError{TxnID: t.ID, Reason: AbortUpgradeConflict}
	}
	q.upgrading = t.ID

	// Drop our own shared request so acquire() doesn't see it as a
	// self-conflict, then fall through to the normal exclusive path.
	lm.removeRequestLocked(q, t.ID, Shared)
	lm.mu.Unlock()

	delete(t.SharedLocks, rid)

	err := lm.acquire(t, rid, Exclusive)

	lm.mu.Lock()
	if q.upgrading == t.ID {
		q.upgrading = 0
	}
	lm.mu.Unlock()

	return err
}

// Unlock releases whichever lock (shared or exclusive) t holds on rid.
// Under REPEATABLE_READ this moves t into its shrinking phase on any
// release — no new lock may be acquired afterward. READ_COMMITTED and
// READ_UNCOMMITTED only enter shrinking when the release was an
// exclusive lock; releasing a shared lock under those levels leaves t
// free to keep acquiring locks.
func (lm *LockManager) Unlock(t *txn.Transaction, rid types.RowPointer) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	q, ok := lm.queues[rid]
	if !ok {
		return fmt.Errorf("Unlock: no lock state for %+v", rid)
	}

	_, hadShared := t.SharedLocks[rid]
	_, hadExclusive := t.ExclusiveLocks[rid]
	if !hadShared && !hadExclusive {
		return fmt.Errorf("Unlock: transaction %d does not hold a lock on %+v", t.ID, rid)
	}

	if hadShared {
		lm.removeRequestLocked(q, t.ID, Shared)
		delete(t.SharedLocks, rid)
	}
	if hadExclusive {
		lm.removeRequestLocked(q, t.ID, Exclusive)
		delete(t.ExclusiveLocks, rid)
	}

	// REPEATABLE_READ enters its shrinking phase on any release; the
	// weaker levels only do so when the release was an exclusive lock.
	if t.Isolation == txn.RepeatableRead || hadExclusive {
		t.Phase = txn.Shrinking
	}

	q.cond.Broadcast()
	return nil
}

// UnlockAll releases every lock t holds, used at commit/abort when a
// transaction gives up its entire lock footprint at once.
func (lm *LockManager) UnlockAll(t *txn.Transaction) {
	rids := make([]types.RowPointer, 0, len(t.SharedLocks)+len(t.ExclusiveLocks))
	for rid := range t.SharedLocks {
		rids = append(rids, rid)
	}
	for rid := range t.ExclusiveLocks {
		rids = append(rids, rid)
	}
	for _, rid := range rids {
		_ = lm.Unlock(t, rid)
	}

	lm.mu.Lock()
	delete(lm.wounded, t.ID)
	lm.mu.Unlock()
}

// Wounded reports whether another transaction has already aborted t to
// break a deadlock. Executors should check this after any blocking call
// returns and on transaction boundaries, since a granted lock can still be
// revoked out from under a running transaction by wound-wait.
func (lm *LockManager) Wounded(txnID uint64) bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.wounded[txnID]
}

func (lm *LockManager) acquire(t *txn.Transaction, rid types.RowPointer, mode LockMode) error {
	if t.State != txn.TxnActive {
		return fmt.Errorf("acquire: transaction %d is not active", t.ID)
	}
	if mode == Shared && t.Isolation == txn.ReadUncommitted {
		return &AbortError{TxnID: t.ID, Reason: AbortSharedOnReadUncommitted}
	}
	if t.Phase == txn.Shrinking {
		return &AbortError{TxnID: t.ID, Reason: AbortLockOnShrinking}
	}

	lm.mu.Lock()

	if lm.wounded[t.ID] {
		delete(lm.wounded, t.ID)
		lm.mu.Unlock()
		return &AbortError{TxnID: t.ID, Reason: AbortDeadlockWound}
	}

	q, ok := lm.queues[rid]
	if !ok {
		q = &lockRequestQueue{cond: sync.NewCond(&lm.mu)}
		lm.queues[rid] = q
	}

	req := &lockRequest{txnID: t.ID, mode: mode}
	q.requests = append(q.requests, req)

	for {
		conflicts, olderHolderExists := lm.conflictingHolders(q, req)

		if len(conflicts) == 0 {
			req.granted = true
			lm.mu.Unlock()

			switch mode {
			case Shared:
				t.SharedLocks[rid] = struct{}{}
			case Exclusive:
				t.ExclusiveLocks[rid] = struct{}{}
			}
			return nil
		}

		if olderHolderExists {
			// We are younger than at least one conflicting holder — wait.
			q.cond.Wait()

			if lm.wounded[t.ID] {
				delete(lm.wounded, t.ID)
				lm.removeRequestPointer(q, req)
				lm.mu.Unlock()
				return &AbortError{TxnID: t.ID, Reason: AbortDeadlockWound}
			}
			continue
		}

		// Every conflicting holder is younger than us — wound them all and
		// take the lock on this pass.
		for _, c := range conflicts {
			lm.wounded[c.txnID] = true
			lm.removeRequestPointer(q, c)
		}
		q.cond.Broadcast()
	}
}

// conflictingHolders returns every request ahead of req in q (granted or
// still queued) that conflicts with it, excluding req's own transaction,
// plus whether any of them is older than req's transaction. Scanning only
// granted requests would let a later arrival jump a still-queued older
// request the moment a lock is released and the queue is rechecked, so
// this walks the whole queue up to req's own position the same way
// BusTub's NeedWait does.
func (lm *LockManager) conflictingHolders(q *lockRequestQueue, req *lockRequest) ([]*lockRequest, bool) {
	var conflicts []*lockRequest
	olderExists := false

	reqIdx := -1
	for i, r := range q.requests {
		if r == req {
			reqIdx = i
			break
		}
	}

	for i, other := range q.requests {
		if other == req || other.txnID == req.txnID {
			continue
		}
		if reqIdx == -1 || i >= reqIdx {
			continue
		}
		if !conflictingModes(req.mode, other.mode) {
			continue
		}
		conflicts = append(conflicts, other)
		if other.txnID < req.txnID {
			olderExists = true
		}
	}
	return conflicts, olderExists
}

func conflictingModes(a, b LockMode) bool {
	// Shared/Shared never conflicts; anything touching Exclusive does.
	return a == Exclusive || b == Exclusive
}

func (lm *LockManager) removeRequestPointer(q *lockRequestQueue, target *lockRequest) {
	for i, r := range q.requests {
		if r == target {
			q.requests = append(q.requests[:i], q.requests[i+1:]...)
			return
		}
	}
}

func (lm *LockManager) removeRequestLocked(q *lockRequestQueue, txnID uint64, mode LockMode) {
	for i, r := range q.requests {
		if r.txnID == txnID && r.mode == mode {
			q.requests = append(q.requests[:i], q.requests[i+1:]...)
			return
		}
	}
}
