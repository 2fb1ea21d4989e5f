package concurrency

import (
	"testing"
	"time"

	txn "DaemonDB/storage_engine/transaction_manager"
	"DaemonDB/types"
)

func testRID() types.RowPointer {
	return types.RowPointer{FileID: 1, PageNumber: 1, SlotIndex: 1}
}

// TestWoundWaitOlderWoundsYoungerHolder covers the wound branch: an older
// transaction requesting a conflicting lock never waits on a younger
// holder, it wounds it and takes the lock on the same call.
func TestWoundWaitOlderWoundsYoungerHolder(t *testing.T) {
	tm, _ := txn.NewTxnManager()
	lm := NewLockManager()
	rid := testRID()

	older := tm.BeginWithIsolation(txn.RepeatableRead)
	younger := tm.BeginWithIsolation(txn.RepeatableRead)

	if err := lm.LockExclusive(younger, rid); err != nil {
		t.Fatalf("younger LockExclusive failed: %v", err)
	}

	if err := lm.LockExclusive(older, rid); err != nil {
		t.Fatalf("older LockExclusive should wound the younger holder and succeed, got: %v", err)
	}

	if !lm.Wounded(younger.ID) {
		t.Errorf("expected younger transaction %d to be marked wounded", younger.ID)
	}
}

// TestWoundWaitYoungerWaitsForOlderHolder covers the wait branch: a
// younger transaction requesting a lock held by an older one blocks until
// the older transaction releases, and is never wounded itself.
func TestWoundWaitYoungerWaitsForOlderHolder(t *testing.T) {
	tm, _ := txn.NewTxnManager()
	lm := NewLockManager()
	rid := testRID()

	older := tm.BeginWithIsolation(txn.RepeatableRead)
	younger := tm.BeginWithIsolation(txn.RepeatableRead)

	if err := lm.LockExclusive(older, rid); err != nil {
		t.Fatalf("older LockExclusive failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- lm.LockExclusive(younger, rid)
	}()

	// Give the younger request time to reach the blocked state before
	// releasing the older lock.
	time.Sleep(50 * time.Millisecond)

	if err := lm.Unlock(older, rid); err != nil {
		t.Fatalf("Unlock(older) failed: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("younger LockExclusive should succeed once older releases, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("younger LockExclusive never returned after older released")
	}

	if lm.Wounded(younger.ID) {
		t.Errorf("younger transaction should not be wounded after waiting its turn")
	}
}

// TestLockSharedAbortsUnderReadUncommitted: READ_UNCOMMITTED transactions
// never take shared locks at all — every shared request aborts.
func TestLockSharedAbortsUnderReadUncommitted(t *testing.T) {
	tm, _ := txn.NewTxnManager()
	lm := NewLockManager()
	rid := testRID()

	tx := tm.BeginWithIsolation(txn.ReadUncommitted)

	err := lm.LockShared(tx, rid)
	abortErr, ok := err.(*AbortError)
	if !ok {
		t.Fatalf("expected *AbortError, got %T: %v", err, err)
	}
	if abortErr.Reason != AbortSharedOnReadUncommitted {
		t.Errorf("expected AbortSharedOnReadUncommitted, got %v", abortErr.Reason)
	}
}

// TestLockAbortsOnShrinkingPhase: under REPEATABLE_READ, releasing any
// lock moves the transaction into its shrinking phase, and no further
// lock request may be granted afterward.
func TestLockAbortsOnShrinkingPhase(t *testing.T) {
	tm, _ := txn.NewTxnManager()
	lm := NewLockManager()
	rid1 := testRID()
	rid2 := types.RowPointer{FileID: 1, PageNumber: 1, SlotIndex: 2}

	tx := tm.BeginWithIsolation(txn.RepeatableRead)

	if err := lm.LockShared(tx, rid1); err != nil {
		t.Fatalf("LockShared failed: %v", err)
	}
	if err := lm.Unlock(tx, rid1); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if tx.Phase != txn.Shrinking {
		t.Fatalf("expected transaction to move to Shrinking phase after early unlock, got %v", tx.Phase)
	}

	err := lm.LockShared(tx, rid2)
	abortErr, ok := err.(*AbortError)
	if !ok {
		t.Fatalf("expected *AbortError, got %T: %v", err, err)
	}
	if abortErr.Reason != AbortLockOnShrinking {
		t.Errorf("expected AbortLockOnShrinking, got %v", abortErr.Reason)
	}
}

// TestReadCommittedMayLockAfterEarlyUnlock contrasts the shrinking-phase
// abort above: two-phase locking is only enforced at REPEATABLE_READ, so
// READ_COMMITTED transactions may keep acquiring locks after an early
// release.
func TestReadCommittedMayLockAfterEarlyUnlock(t *testing.T) {
	tm, _ := txn.NewTxnManager()
	lm := NewLockManager()
	rid1 := testRID()
	rid2 := types.RowPointer{FileID: 1, PageNumber: 1, SlotIndex: 2}

	tx := tm.BeginWithIsolation(txn.ReadCommitted)

	if err := lm.LockShared(tx, rid1); err != nil {
		t.Fatalf("LockShared failed: %v", err)
	}
	if err := lm.Unlock(tx, rid1); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if tx.Phase == txn.Shrinking {
		t.Fatalf("READ_COMMITTED transactions should not be forced into Shrinking on early unlock")
	}

	if err := lm.LockShared(tx, rid2); err != nil {
		t.Fatalf("expected READ_COMMITTED to be able to lock again after an early unlock, got: %v", err)
	}
}

// TestQueuedOlderRequestBlocksLaterArrival reproduces the ordering bug a
// granted-only conflict scan would miss: A holds X on rid; B (older than
// C) queues a conflicting request and has to wait on A; C then queues
// another conflicting request behind B. Once A releases, C must still
// wait for B — an older, merely-queued request — rather than jumping
// ahead of it just because B was never granted.
func TestQueuedOlderRequestBlocksLaterArrival(t *testing.T) {
	tm, _ := txn.NewTxnManager()
	lm := NewLockManager()
	rid := testRID()

	a := tm.BeginWithIsolation(txn.RepeatableRead)
	b := tm.BeginWithIsolation(txn.RepeatableRead)
	c := tm.BeginWithIsolation(txn.RepeatableRead)

	if a.ID >= b.ID || b.ID >= c.ID {
		t.Fatalf("test setup expects a < b < c in age order, got a=%d b=%d c=%d", a.ID, b.ID, c.ID)
	}

	if err := lm.LockExclusive(a, rid); err != nil {
		t.Fatalf("a LockExclusive failed: %v", err)
	}

	bDone := make(chan error, 1)
	go func() {
		bDone <- lm.LockShared(b, rid)
	}()
	time.Sleep(50 * time.Millisecond)

	cDone := make(chan error, 1)
	go func() {
		cDone <- lm.LockExclusive(c, rid)
	}()
	time.Sleep(50 * time.Millisecond)

	if err := lm.Unlock(a, rid); err != nil {
		t.Fatalf("Unlock(a) failed: %v", err)
	}

	select {
	case err := <-bDone:
		if err != nil {
			t.Fatalf("b LockShared should succeed once a releases, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("b LockShared never returned after a released")
	}

	select {
	case <-cDone:
		t.Fatal("c LockExclusive should still be blocked behind b's older, still-queued request")
	case <-time.After(100 * time.Millisecond):
	}

	if err := lm.Unlock(b, rid); err != nil {
		t.Fatalf("Unlock(b) failed: %v", err)
	}

	select {
	case err := <-cDone:
		if err != nil {
			t.Fatalf("c LockExclusive should succeed once b releases, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("c LockExclusive never returned after b released")
	}
}

// TestReadCommittedEntersShrinkingOnExclusiveRelease checks the other
// half of the weaker-isolation rule: releasing a shared lock leaves a
// READ_COMMITTED transaction free to keep locking (above), but releasing
// an exclusive lock still moves it into the shrinking phase.
func TestReadCommittedEntersShrinkingOnExclusiveRelease(t *testing.T) {
	tm, _ := txn.NewTxnManager()
	lm := NewLockManager()
	rid := testRID()

	tx := tm.BeginWithIsolation(txn.ReadCommitted)

	if err := lm.LockExclusive(tx, rid); err != nil {
		t.Fatalf("LockExclusive failed: %v", err)
	}
	if err := lm.Unlock(tx, rid); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if tx.Phase != txn.Shrinking {
		t.Fatalf("expected releasing an exclusive lock under READ_COMMITTED to enter Shrinking, got %v", tx.Phase)
	}
}

// TestUnlockAllReleasesEveryLockAndClearsWoundedFlag exercises the
// transaction-boundary cleanup path: commit/abort releases every lock a
// transaction holds and forgets any pending wound against it.
func TestUnlockAllReleasesEveryLockAndClearsWoundedFlag(t *testing.T) {
	tm, _ := txn.NewTxnManager()
	lm := NewLockManager()
	rid1 := testRID()
	rid2 := types.RowPointer{FileID: 1, PageNumber: 1, SlotIndex: 2}

	wounder := tm.BeginWithIsolation(txn.ReadCommitted)
	holder := tm.BeginWithIsolation(txn.RepeatableRead)

	if err := lm.LockShared(holder, rid1); err != nil {
		t.Fatalf("LockShared failed: %v", err)
	}
	if err := lm.LockExclusive(holder, rid2); err != nil {
		t.Fatalf("LockExclusive failed: %v", err)
	}

	// wounder is older than holder (smaller ID) and requests a conflicting
	// lock, wounding holder.
	if wounder.ID >= holder.ID {
		t.Fatalf("test setup expects wounder to be the older transaction")
	}
	if err := lm.LockExclusive(wounder, rid1); err != nil {
		t.Fatalf("wounder LockExclusive failed: %v", err)
	}
	if !lm.Wounded(holder.ID) {
		t.Fatalf("expected holder to be wounded")
	}

	lm.UnlockAll(holder)

	if len(holder.SharedLocks) != 0 || len(holder.ExclusiveLocks) != 0 {
		t.Errorf("expected UnlockAll to drain every lock set, got shared=%v exclusive=%v", holder.SharedLocks, holder.ExclusiveLocks)
	}
	if lm.Wounded(holder.ID) {
		t.Errorf("expected UnlockAll to clear the wounded flag")
	}
}
