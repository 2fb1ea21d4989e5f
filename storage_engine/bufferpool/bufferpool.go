package bufferpool

import (
	diskmanager "DaemonDB/storage_engine/disk_manager"
	"DaemonDB/storage_engine/page"
	"DaemonDB/types"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
)

/*
BufferPool is a parallel buffer pool manager, modeled on BusTub's
ParallelBufferPoolManager: instead of one shared cache guarded by one
mutex, capacity is split across several independent framePoolInstance
shards, each with its own frames, free list and LRU replacer. A page
routes to exactly one shard for its entire lifetime, so FetchPage,
UnpinPage, FlushPage and DeletePage never need to consult more than one
shard's state.

The original BusTub design routes by page_id mod num_instances, because a
single flat page-id counter is striped across instances at allocation
time. DaemonDB's disk manager instead multiplexes many logical files
(each heap file, each index file) through one page-id space keyed by file
id, so routing here is by owning file id mod num_instances: every page of
a given file always lands in the same shard, which is the granularity
this codebase's allocator can actually guarantee.
*/

func fileIDFromPageID(pageID PageID) uint32 {
	return uint32(uint64(pageID) >> 32)
}

// NewBufferPool creates a parallel buffer pool of default shard count
// splitting capacity evenly across shards. This is the constructor every
// existing caller uses; NewParallelBufferPool exposes explicit shard
// control for tests and the CLI.
func NewBufferPool(capacity int, diskManager *diskmanager.DiskManager) *BufferPool {
	const defaultInstances = 4
	numInstances := defaultInstances
	if capacity < numInstances {
		numInstances = 1
	}
	bp, err := NewParallelBufferPool(capacity, numInstances, diskManager)
	if err != nil {
		// capacity>=1 and numInstances>=1 always succeeds; this is
		// unreachable in practice, but NewBufferPool's signature (kept
		// for backward compatibility) can't return an error.
		panic(err)
	}
	return bp
}

// NewParallelBufferPool creates a buffer pool with exactly numInstances
// shards, dividing totalCapacity as evenly as the remainder allows.
func NewParallelBufferPool(totalCapacity, numInstances int, diskManager *diskmanager.DiskManager) (*BufferPool, error) {
	if numInstances <= 0 {
		return nil, fmt.Errorf("numInstances must be positive, got %d", numInstances)
	}
	if totalCapacity < numInstances {
		return nil, fmt.Errorf("totalCapacity %d smaller than numInstances %d", totalCapacity, numInstances)
	}

	base := totalCapacity / numInstances
	remainder := totalCapacity % numInstances

	instances := make([]*framePoolInstance, numInstances)
	for i := 0; i < numInstances; i++ {
		capacity := base
		if i < remainder {
			capacity++
		}
		instances[i] = newFramePoolInstance(capacity, diskManager)
	}

	hotPages, err := ristretto.NewCache(&ristretto.Config[PageID, struct{}]{
		NumCounters: int64(totalCapacity) * 10,
		MaxCost:     int64(totalCapacity) * 10,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("NewParallelBufferPool: failed to build hot-page hint cache: %w", err)
	}

	return &BufferPool{instances: instances, hotPages: hotPages}, nil
}

// recordAccess notes a page touch in the advisory hot-page hint cache.
// Best-effort only — ristretto may drop the set under contention, and
// that is never a correctness problem since nothing consults this cache
// except IsHot.
func (bp *BufferPool) recordAccess(pageID PageID) {
	if bp.hotPages != nil {
		bp.hotPages.Set(pageID, struct{}{}, 1)
	}
}

// IsHot reports whether the hint cache believes pageID has been accessed
// recently/frequently enough to still be tracked. Advisory only: a false
// here does not mean the page isn't in a shard's frames, and a true here
// does not pin it against eviction.
func (bp *BufferPool) IsHot(pageID PageID) bool {
	if bp.hotPages == nil {
		return false
	}
	_, found := bp.hotPages.Get(pageID)
	return found
}

func (bp *BufferPool) NumInstances() int {
	return len(bp.instances)
}

// instanceFor returns the shard owning fileID: ValidatePageId's
// generalization, applied at the file rather than the raw page-id
// granularity (see storage_engine/bufferpool package doc).
func (bp *BufferPool) instanceFor(fileID uint32) *framePoolInstance {
	return bp.instances[int(fileID)%len(bp.instances)]
}

func (bp *BufferPool) SetWALManager(wal WALFlushedLSNGetter) {
	for _, inst := range bp.instances {
		inst.setWALManager(wal)
	}
}

// FetchPage retrieves a page from the buffer pool, loading from disk if
// necessary. Returns the page with pin count incremented.
func (bp *BufferPool) FetchPage(pageID int64) (*page.Page, error) {
	inst := bp.instanceFor(fileIDFromPageID(pageID))
	pg, err := inst.fetchPage(pageID)
	if err == nil {
		bp.recordAccess(pageID)
	}
	return pg, err
}

// NewPage creates a new page for a specific file, routed to the shard
// that owns fileID.
func (bp *BufferPool) NewPage(fileID uint32, pageType types.PageType) (*page.Page, error) {
	inst := bp.instanceFor(fileID)
	pg, err := inst.newPage(fileID, pageType)
	if err == nil {
		bp.recordAccess(pg.ID)
	}
	return pg, err
}

// UnpinPage decrements the pin count for a page.
func (bp *BufferPool) UnpinPage(pageID int64, isDirty bool) error {
	inst := bp.instanceFor(fileIDFromPageID(pageID))
	return inst.unpinPage(pageID, isDirty)
}

// FlushPage writes a specific page to disk if dirty.
func (bp *BufferPool) FlushPage(pageID int64) error {
	inst := bp.instanceFor(fileIDFromPageID(pageID))
	return inst.flushPage(pageID)
}

// FlushAllPages writes all dirty pages, across every shard, to disk.
func (bp *BufferPool) FlushAllPages() error {
	for _, inst := range bp.instances {
		if err := inst.flushAllPages(); err != nil {
			return err
		}
	}
	return nil
}

// DeletePage removes a page from the buffer pool.
func (bp *BufferPool) DeletePage(pageID int64) error {
	inst := bp.instanceFor(fileIDFromPageID(pageID))
	return inst.deletePage(pageID)
}

// GetPoolSize returns total frame capacity across every shard.
func (bp *BufferPool) GetPoolSize() int {
	total := 0
	for _, inst := range bp.instances {
		total += len(inst.frames)
	}
	return total
}

// Stats returns one BufferPoolStats per shard, for diagnostics.
func (bp *BufferPool) Stats() []BufferPoolStats {
	stats := make([]BufferPoolStats, len(bp.instances))
	for i, inst := range bp.instances {
		s := inst.stats()
		s.Instance = i
		stats[i] = s
	}
	return stats
}

// Close releases the hot-page hint cache's background workers. Safe to
// call on a pool that was never given one.
func (bp *BufferPool) Close() {
	if bp.hotPages != nil {
		bp.hotPages.Close()
	}
}
