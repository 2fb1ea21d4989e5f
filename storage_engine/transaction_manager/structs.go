package txn

import (
	"DaemonDB/types"
	"sync"
)

type TxnState uint8

const (
	TxnActive TxnState = iota
	TxnCommitted
	TxnAborted
)

// IsolationLevel controls which locks a transaction acquires before
// reading a tuple. Exclusive locks, and their release on commit/abort,
// are unaffected by isolation level.
type IsolationLevel uint8

const (
	ReadUncommitted IsolationLevel = iota
	ReadCommitted
	RepeatableRead
)

// Phase tracks two-phase locking progress, independent of State: a
// transaction can be TxnActive while already Shrinking (it has released a
// lock and may not acquire any new one).
type Phase uint8

const (
	Growing Phase = iota
	Shrinking
)

type Transaction struct {
	ID        uint64
	State     TxnState
	Isolation IsolationLevel
	Phase     Phase

	// Tuple-granularity locks held by this transaction, keyed by RID.
	// Populated and drained by storage_engine/concurrency.LockManager.
	SharedLocks    map[types.RowPointer]struct{}
	ExclusiveLocks map[types.RowPointer]struct{}

	// Logical UNDO support
	InsertedRows []InsertedRow
	UpdatedRows  []UpdatedRow
}

type InsertedRow struct {
	Table      string
	RowPtr     types.RowPointer
	PrimaryKey []byte
}

type UpdatedRow struct {
	Table      string
	OldRowPtr  types.RowPointer // location before update (may move on delete+reinsert)
	NewRowPtr  types.RowPointer // location after update
	OldRowData []byte           // serialized old row, used to restore on rollback
	PrimaryKey []byte
}

type TxnManager struct {
	nextID     uint64
	activeTxns map[uint64]*Transaction // all currently active transactions
	mu         sync.RWMutex
}
