package bufferpool

import (
	diskmanager "DaemonDB/storage_engine/disk_manager"
	"DaemonDB/storage_engine/page"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
)

// PageID is the global page identifier returned by the disk manager:
// int64(fileID)<<32 | localPageNumber. -1 is reserved invalid, matching
// the narrower int32 page_id space the rest of the index/hash-table code
// is specified against — DaemonDB's disk manager just needs more bits
// because one physical DiskManager multiplexes many logical files.
type PageID = int64

const InvalidPageID PageID = -1

// FrameID identifies a slot inside one framePoolInstance's frame array.
// It is never exposed outside this package.
type FrameID int

// ############################################# BUFFER POOL #############################################

// BufferPool is the parallel buffer pool manager: a fixed set of
// framePoolInstance shards, each an independent LRU-backed cache with its
// own free list and replacer. A page's owning shard is a pure function of
// the file it belongs to (fileID mod len(instances)), so every page of a
// given heap file or index always lives in the same shard — fetching,
// unpinning, flushing and deleting it all route the same way.
type BufferPool struct {
	instances []*framePoolInstance

	// hotPages is an advisory access-frequency hint cache, consulted only
	// by IsHot — it never influences eviction.
	// The LRU replacer in each shard remains the sole source of truth for
	// which frame gets victimized; ristretto's own admission/eviction
	// policy is free to disagree without affecting correctness.
	hotPages *ristretto.Cache[PageID, struct{}]
}

// Stats summarizes one shard's occupancy, returned by BufferPool.Stats.
type BufferPoolStats struct {
	Instance    int
	TotalPages  int
	PinnedPages int
	DirtyPages  int
	Capacity    int
}

// small interface so bufferpool doesn't import the whole wal package
type WALFlushedLSNGetter interface {
	GetFlushedLSN() uint64
}

// framePoolInstance is a single buffer pool shard: capacity frames, a
// page table mapping page id to frame index, a free list of frames not
// currently holding a page, and an LRU replacer tracking frames that are unpinned and
// therefore evictable. This is the BusTub-style single-instance buffer
// pool manager underneath the parallel wrapper.
type framePoolInstance struct {
	frames      []*page.Page // nil entry = frame not holding a page
	pageTable   map[PageID]FrameID
	freeList    []FrameID
	replacer    *lruReplacer
	diskManager *diskmanager.DiskManager
	walManager  WALFlushedLSNGetter
	mu          sync.Mutex
}
