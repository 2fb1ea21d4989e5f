package bufferpool

import (
	"DaemonDB/storage_engine/page"
	"fmt"
)

/*
This file holds helper functions for the bufferpool
*/

// GetStats returns aggregate buffer pool statistics across every shard.
func (bp *BufferPool) GetStats() BufferPoolStats {
	agg := BufferPoolStats{}
	for _, s := range bp.Stats() {
		agg.TotalPages += s.TotalPages
		agg.PinnedPages += s.PinnedPages
		agg.DirtyPages += s.DirtyPages
		agg.Capacity += s.Capacity
	}
	return agg
}

// Size returns the current number of cached pages across every shard.
func (bp *BufferPool) Size() int {
	total := 0
	for _, inst := range bp.instances {
		inst.mu.Lock()
		total += len(inst.pageTable)
		inst.mu.Unlock()
	}
	return total
}

// Capacity returns the maximum total frame capacity across every shard.
func (bp *BufferPool) Capacity() int {
	return bp.GetPoolSize()
}

// GetPage returns a page from the buffer pool without loading it from
// disk. Returns nil if the page is not cached.
func (bp *BufferPool) GetPage(pageID int64) *page.Page {
	inst := bp.instanceFor(fileIDFromPageID(pageID))
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if frameID, ok := inst.pageTable[pageID]; ok {
		return inst.frames[frameID]
	}
	return nil
}

// MarkDirty marks a cached page as dirty. Used by the B+Tree index, which
// mutates node pages in place and relies on the buffer pool to flush them
// later rather than writing through immediately.
func (bp *BufferPool) MarkDirty(pageID int64) error {
	inst := bp.instanceFor(fileIDFromPageID(pageID))
	inst.mu.Lock()
	defer inst.mu.Unlock()

	frameID, exists := inst.pageTable[pageID]
	if !exists {
		return fmt.Errorf("page %d not in buffer pool", pageID)
	}

	pg := inst.frames[frameID]
	pg.Lock()
	pg.IsDirty = true
	pg.Unlock()
	return nil
}
