package bufferpool

import (
	diskmanager "DaemonDB/storage_engine/disk_manager"
	"DaemonDB/storage_engine/page"
	"DaemonDB/types"
	"encoding/binary"
	"fmt"
)

// newFramePoolInstance builds one shard with capacity frames, all initially
// free. Frames are allocated lazily from the free list before the
// replacer is ever consulted for a victim.
func newFramePoolInstance(capacity int, diskManager *diskmanager.DiskManager) *framePoolInstance {
	freeList := make([]FrameID, capacity)
	for i := range freeList {
		freeList[i] = FrameID(i)
	}

	return &framePoolInstance{
		frames:      make([]*page.Page, capacity),
		pageTable:   make(map[PageID]FrameID),
		freeList:    freeList,
		replacer:    newLRUReplacer(),
		diskManager: diskManager,
	}
}

func (fp *framePoolInstance) setWALManager(wal WALFlushedLSNGetter) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.walManager = wal
}

// fetchPage returns the page for pageID, pinned, loading it from disk into
// a frame if it isn't already cached.
func (fp *framePoolInstance) fetchPage(pageID PageID) (*page.Page, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if frameID, exists := fp.pageTable[pageID]; exists {
		pg := fp.frames[frameID]
		fmt.Printf("[BufferPool] HIT  pageID=%d pinCount=%d\n", pageID, pg.PinCount)

		pg.Lock()
		if pg.PinCount == 0 {
			fp.replacer.Pin(frameID)
		}
		pg.PinCount++
		pg.Unlock()
		return pg, nil
	}

	fmt.Printf("[BufferPool] MISS pageID=%d — loading from disk\n", pageID)
	if fp.diskManager == nil {
		return nil, fmt.Errorf("disk manager not set")
	}

	pg, err := fp.diskManager.ReadPage(pageID)
	if err != nil {
		return nil, fmt.Errorf("failed to read page %d from disk: %w", pageID, err)
	}

	if pg.PageType == types.PageTypeHeapData && len(pg.Data) >= 8 {
		pg.LSN = binary.LittleEndian.Uint64(pg.Data[page.PageLSNOffset:])
	}

	frameID, err := fp.allocateFrame()
	if err != nil {
		return nil, fmt.Errorf("failed to add page to buffer pool: %w", err)
	}
	fp.installFrame(frameID, pg)

	pg.Lock()
	pg.PinCount++
	pg.Unlock()

	return pg, nil
}

// newPage allocates a brand new page on disk for fileID and pins it into a
// frame in this instance. Callers must already have verified fileID
// belongs to this shard.
func (fp *framePoolInstance) newPage(fileID uint32, pageType types.PageType) (*page.Page, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if fp.diskManager == nil {
		return nil, fmt.Errorf("disk manager not set")
	}

	pageID, err := fp.diskManager.AllocatePage(fileID, pageType)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate page: %w", err)
	}

	pg := diskmanager.NewPage(pageID, fileID, pageType)
	pg.IsDirty = true

	frameID, err := fp.allocateFrame()
	if err != nil {
		return nil, fmt.Errorf("failed to add new page to buffer pool: %w", err)
	}
	fp.installFrame(frameID, pg)

	pg.Lock()
	pg.PinCount++
	pg.Unlock()

	return pg, nil
}

// unpinPage decrements a page's pin count; once it hits zero the frame
// becomes eligible for eviction.
func (fp *framePoolInstance) unpinPage(pageID PageID, isDirty bool) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	frameID, exists := fp.pageTable[pageID]
	if !exists {
		return fmt.Errorf("page %d not in buffer pool", pageID)
	}
	pg := fp.frames[frameID]

	pg.Lock()
	defer pg.Unlock()

	if pg.PinCount > 0 {
		pg.PinCount--
	}
	if isDirty {
		pg.IsDirty = true
	}
	if pg.PinCount == 0 {
		fp.replacer.Unpin(frameID)
	}
	return nil
}

// flushPage writes pageID to disk if dirty, subject to the WAL gate: a
// dirty page whose LSN outruns the WAL's durable LSN is never written,
// since the record describing that write might not survive a crash yet.
func (fp *framePoolInstance) flushPage(pageID PageID) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	frameID, exists := fp.pageTable[pageID]
	if !exists {
		return fmt.Errorf("page %d not in buffer pool", pageID)
	}
	pg := fp.frames[frameID]

	pg.Lock()
	defer pg.Unlock()

	if !pg.IsDirty {
		return nil
	}

	if fp.walManager != nil {
		flushedLSN := fp.walManager.GetFlushedLSN()
		if pg.LSN > flushedLSN {
			fmt.Printf("[BufferPool] FLUSH BLOCKED pageID=%d pageLSN=%d flushedLSN=%d\n", pageID, pg.LSN, flushedLSN)
			return fmt.Errorf("cannot flush page %d: pageLSN=%d not yet covered by WAL flushedLSN=%d", pageID, pg.LSN, flushedLSN)
		}
		fmt.Printf("[BufferPool] FLUSH pageID=%d pageLSN=%d flushedLSN=%d\n", pageID, pg.LSN, flushedLSN)
	}

	if err := fp.diskManager.WritePage(pg); err != nil {
		return fmt.Errorf("failed to flush page %d: %w", pageID, err)
	}
	pg.IsDirty = false
	return nil
}

// flushAllPages writes every dirty, WAL-cleared page in this instance to
// disk. Pages whose LSN is not yet durable are silently skipped — the WAL
// will cover them on recovery.
func (fp *framePoolInstance) flushAllPages() error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if fp.diskManager == nil {
		return fmt.Errorf("disk manager not set")
	}

	fmt.Printf("[BufferPool] FlushAllPages — pool size=%d\n", len(fp.pageTable))

	for pageID, frameID := range fp.pageTable {
		pg := fp.frames[frameID]
		pg.Lock()
		if pg.IsDirty {
			if fp.walManager != nil && pg.LSN > fp.walManager.GetFlushedLSN() {
				pg.Unlock()
				continue
			}
			if err := fp.diskManager.WritePage(pg); err != nil {
				pg.Unlock()
				return fmt.Errorf("failed to flush page %d: %w", pageID, err)
			}
			fmt.Printf("[BufferPool]   flushing pageID=%d\n", pageID)
			pg.IsDirty = false
		}
		pg.Unlock()
	}

	return nil
}

// deletePage removes pageID from the buffer pool, returning its frame to
// the free list. Refuses to delete a pinned page.
func (fp *framePoolInstance) deletePage(pageID PageID) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	frameID, exists := fp.pageTable[pageID]
	if !exists {
		return nil
	}
	pg := fp.frames[frameID]

	pg.Lock()
	if pg.PinCount > 0 {
		pg.Unlock()
		return fmt.Errorf("cannot delete pinned page %d", pageID)
	}
	pg.Unlock()

	fp.replacer.Pin(frameID) // no-op if already absent; ensures it's not "evictable nothing"
	delete(fp.pageTable, pageID)
	fp.frames[frameID] = nil
	fp.freeList = append(fp.freeList, frameID)
	return nil
}

// allocateFrame returns a frame ready to receive a page: one from the
// free list if available, otherwise the LRU replacer's victim. The
// victim's own page is flushed (if dirty and WAL-cleared) and evicted
// from the page table first. Returns an error only when every frame is
// pinned and the free list is empty.
func (fp *framePoolInstance) allocateFrame() (FrameID, error) {
	if len(fp.freeList) > 0 {
		frameID := fp.freeList[len(fp.freeList)-1]
		fp.freeList = fp.freeList[:len(fp.freeList)-1]
		return frameID, nil
	}

	attempts := fp.replacer.Size()
	for tries := 0; tries <= attempts; tries++ {
		frameID, ok := fp.replacer.Victim()
		if !ok {
			return 0, fmt.Errorf("all pages are pinned, cannot evict")
		}

		victim := fp.frames[frameID]
		if victim == nil {
			return frameID, nil
		}

		victim.Lock()
		dirty := victim.IsDirty
		pinned := victim.PinCount > 0
		victim.Unlock()

		if pinned {
			// Raced with a concurrent pin; try the next victim.
			continue
		}

		if dirty {
			if fp.walManager != nil && victim.LSN > fp.walManager.GetFlushedLSN() {
				// Can't evict yet — WAL not durable for this page. Put it
				// back as evictable and look for another victim instead.
				fp.replacer.Unpin(frameID)
				continue
			}
			fmt.Printf("[BufferPool] EVICT pageID=%d dirty=%v\n", victim.ID, dirty)
			if err := fp.diskManager.WritePage(victim); err != nil {
				return 0, fmt.Errorf("failed to write page %d during eviction: %w", victim.ID, err)
			}
			victim.IsDirty = false
		} else {
			fmt.Printf("[BufferPool] EVICT pageID=%d dirty=%v\n", victim.ID, dirty)
		}

		delete(fp.pageTable, victim.ID)
		fp.frames[frameID] = nil
		return frameID, nil
	}

	return 0, fmt.Errorf("no evictable frame: all candidates pinned or blocked on an unsynced WAL record")
}

// installFrame places pg into frameID and registers it in the page table.
func (fp *framePoolInstance) installFrame(frameID FrameID, pg *page.Page) {
	fp.frames[frameID] = pg
	fp.pageTable[pg.ID] = frameID
}

func (fp *framePoolInstance) stats() BufferPoolStats {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	s := BufferPoolStats{
		TotalPages: len(fp.pageTable),
		Capacity:   len(fp.frames),
	}
	for _, frameID := range fp.pageTable {
		pg := fp.frames[frameID]
		pg.Lock()
		if pg.PinCount > 0 {
			s.PinnedPages++
		}
		if pg.IsDirty {
			s.DirtyPages++
		}
		pg.Unlock()
	}
	return s
}
