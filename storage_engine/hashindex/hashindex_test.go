package hashindex

import (
	"DaemonDB/storage_engine/bufferpool"
	diskmanager "DaemonDB/storage_engine/disk_manager"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func newTestTable(t *testing.T) (*Table[uint64, uint64], *bufferpool.BufferPool, *diskmanager.DiskManager, uint32) {
	testDir := filepath.Join(os.TempDir(), "daemondb_hashindex_test")
	os.MkdirAll(testDir, 0755)
	t.Cleanup(func() { os.RemoveAll(testDir) })

	dm := diskmanager.NewDiskManager()
	bp := bufferpool.NewBufferPool(64, dm)

	opts := Options[uint64, uint64]{
		EncodeKey: func(k uint64) []byte {
			b := make([]byte, 8)
			binary.LittleEndian.PutUint64(b, k)
			return b
		},
		DecodeKey: func(b []byte) uint64 { return binary.LittleEndian.Uint64(b) },
		EncodeVal: func(v uint64) []byte {
			b := make([]byte, 8)
			binary.LittleEndian.PutUint64(b, v)
			return b
		},
		DecodeVal: func(b []byte) uint64 { return binary.LittleEndian.Uint64(b) },
	}

	table, err := OpenTable[uint64, uint64](filepath.Join(testDir, "idx.db"), 1, bp, dm, opts)
	if err != nil {
		t.Fatalf("OpenTable failed: %v", err)
	}
	return table, bp, dm, 1
}

func TestInsertAndGetValue(t *testing.T) {
	table, _, _, _ := newTestTable(t)

	inserted, err := table.Insert(42, 100)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if !inserted {
		t.Fatalf("expected first Insert to report true")
	}
	inserted, err = table.Insert(42, 200)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if !inserted {
		t.Fatalf("expected second, distinct-value Insert to report true")
	}

	vals, err := table.GetValue(42)
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if len(vals) != 2 {
		t.Fatalf("expected 2 values for key 42, got %d", len(vals))
	}

	seen := map[uint64]bool{}
	for _, v := range vals {
		seen[v] = true
	}
	if !seen[100] || !seen[200] {
		t.Errorf("missing expected values, got %v", vals)
	}
}

// TestInsertDuplicateIsNoop asserts the round-trip law directly on the
// returned bool: inserting the exact same (key, value) pair twice must
// report false the second time and leave the structure unchanged.
func TestInsertDuplicateIsNoop(t *testing.T) {
	table, _, _, _ := newTestTable(t)

	inserted, err := table.Insert(7, 7)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if !inserted {
		t.Fatalf("expected first Insert to report true")
	}

	inserted, err = table.Insert(7, 7)
	if err != nil {
		t.Fatalf("duplicate Insert should be a no-op, got error: %v", err)
	}
	if inserted {
		t.Fatalf("expected duplicate Insert to report false, got true")
	}

	vals, err := table.GetValue(7)
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if len(vals) != 1 {
		t.Fatalf("expected exactly 1 value after duplicate insert, got %d", len(vals))
	}
}

func TestGetValueMissingKey(t *testing.T) {
	table, _, _, _ := newTestTable(t)

	vals, err := table.GetValue(999)
	if err != nil {
		t.Fatalf("GetValue on missing key should not error, got: %v", err)
	}
	if len(vals) != 0 {
		t.Errorf("expected no values for missing key, got %v", vals)
	}
}

func TestRemove(t *testing.T) {
	table, _, _, _ := newTestTable(t)

	if _, err := table.Insert(5, 50); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	removed, err := table.Remove(5, 50)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !removed {
		t.Fatalf("expected Remove to report true for a present pair")
	}

	vals, err := table.GetValue(5)
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if len(vals) != 0 {
		t.Errorf("expected key to be gone after Remove, got %v", vals)
	}
}

// TestRemoveMissingPairIsNoop checks Remove reports false, rather than an
// error, for a pair that was never inserted.
func TestRemoveMissingPairIsNoop(t *testing.T) {
	table, _, _, _ := newTestTable(t)

	removed, err := table.Remove(123, 456)
	if err != nil {
		t.Fatalf("Remove of a missing pair should not error, got: %v", err)
	}
	if removed {
		t.Fatalf("expected Remove to report false for a pair that was never inserted")
	}
}

// TestSplitOnOverflow forces enough distinct keys into the same initial
// bucket to exceed one page, verifying the directory grows and buckets
// split rather than silently dropping inserts.
func TestSplitOnOverflow(t *testing.T) {
	table, _, _, _ := newTestTable(t)

	const n = 400
	for i := uint64(0); i < n; i++ {
		if _, err := table.Insert(i, i*10); err != nil {
			t.Fatalf("Insert(%d) failed: %v", i, err)
		}
	}

	for i := uint64(0); i < n; i++ {
		vals, err := table.GetValue(i)
		if err != nil {
			t.Fatalf("GetValue(%d) failed: %v", i, err)
		}
		if len(vals) != 1 || vals[0] != i*10 {
			t.Fatalf("key %d: expected [%d], got %v", i, i*10, vals)
		}
	}

	depth, err := table.GlobalDepth()
	if err != nil {
		t.Fatalf("GlobalDepth failed: %v", err)
	}
	if depth == 0 {
		t.Errorf("expected directory to have grown past depth 0 after %d inserts", n)
	}

	if err := table.VerifyIntegrity(); err != nil {
		t.Errorf("VerifyIntegrity failed after %d inserts: %v", n, err)
	}
}

// TestMergeAfterDrainingBucket inserts enough keys to force a split, then
// removes every key and checks the emptied buckets merge and the directory
// shrinks back to global depth 0 (the merge/shrink path).
func TestMergeAfterDrainingBucket(t *testing.T) {
	table, _, _, _ := newTestTable(t)

	const n = 400
	for i := uint64(0); i < n; i++ {
		if _, err := table.Insert(i, i); err != nil {
			t.Fatalf("Insert(%d) failed: %v", i, err)
		}
	}

	for i := uint64(0); i < n; i++ {
		removed, err := table.Remove(i, i)
		if err != nil {
			t.Fatalf("Remove(%d) failed: %v", i, err)
		}
		if !removed {
			t.Fatalf("Remove(%d) expected to report true", i)
		}
	}

	for i := uint64(0); i < n; i++ {
		vals, err := table.GetValue(i)
		if err != nil {
			t.Fatalf("GetValue(%d) failed: %v", i, err)
		}
		if len(vals) != 0 {
			t.Fatalf("key %d should have been removed, still has %v", i, vals)
		}
	}

	depth, err := table.GlobalDepth()
	if err != nil {
		t.Fatalf("GlobalDepth failed: %v", err)
	}
	if depth != 0 {
		t.Errorf("expected directory to shrink back to depth 0 once every bucket drained, got depth %d", depth)
	}

	if err := table.VerifyIntegrity(); err != nil {
		t.Errorf("VerifyIntegrity failed after full drain: %v", err)
	}
}

// TestVerifyIntegrityOnFreshTable checks a newly opened, empty table
// (global depth 0, a single bucket) already satisfies every invariant.
func TestVerifyIntegrityOnFreshTable(t *testing.T) {
	table, _, _, _ := newTestTable(t)

	depth, err := table.GlobalDepth()
	if err != nil {
		t.Fatalf("GlobalDepth failed: %v", err)
	}
	if depth != 0 {
		t.Errorf("expected a fresh table to start at global depth 0, got %d", depth)
	}
	if err := table.VerifyIntegrity(); err != nil {
		t.Errorf("VerifyIntegrity failed on a fresh table: %v", err)
	}
}

// TestReopenPersistsDirectory checks the directory page id survives a
// close/reopen cycle, the same contract the B+Tree's root id has.
func TestReopenPersistsDirectory(t *testing.T) {
	testDir := filepath.Join(os.TempDir(), fmt.Sprintf("daemondb_hashindex_reopen_%d", 1))
	os.MkdirAll(testDir, 0755)
	t.Cleanup(func() { os.RemoveAll(testDir) })
	indexPath := filepath.Join(testDir, "idx.db")

	opts := Options[uint64, uint64]{
		EncodeKey: func(k uint64) []byte { b := make([]byte, 8); binary.LittleEndian.PutUint64(b, k); return b },
		DecodeKey: func(b []byte) uint64 { return binary.LittleEndian.Uint64(b) },
		EncodeVal: func(v uint64) []byte { b := make([]byte, 8); binary.LittleEndian.PutUint64(b, v); return b },
		DecodeVal: func(b []byte) uint64 { return binary.LittleEndian.Uint64(b) },
	}

	dm1 := diskmanager.NewDiskManager()
	bp1 := bufferpool.NewBufferPool(16, dm1)
	table1, err := OpenTable[uint64, uint64](indexPath, 1, bp1, dm1, opts)
	if err != nil {
		t.Fatalf("OpenTable (create) failed: %v", err)
	}
	if _, err := table1.Insert(1, 11); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := bp1.FlushAllPages(); err != nil {
		t.Fatalf("FlushAllPages failed: %v", err)
	}

	dm2 := diskmanager.NewDiskManager()
	bp2 := bufferpool.NewBufferPool(16, dm2)
	table2, err := OpenTable[uint64, uint64](indexPath, 1, bp2, dm2, opts)
	if err != nil {
		t.Fatalf("OpenTable (reopen) failed: %v", err)
	}

	vals, err := table2.GetValue(1)
	if err != nil {
		t.Fatalf("GetValue after reopen failed: %v", err)
	}
	if len(vals) != 1 || vals[0] != 11 {
		t.Fatalf("expected [11] after reopen, got %v", vals)
	}
}
