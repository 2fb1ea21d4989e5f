package hashindex

import (
	"DaemonDB/storage_engine/bufferpool"
	diskmanager "DaemonDB/storage_engine/disk_manager"
	"DaemonDB/types"
	"fmt"
	"os"
)

// OpenTable opens (or creates) an extendible hash index stored in the
// file identified by fileID, sharing the given BufferPool and DiskManager
// with the rest of the engine — index pages are pinned through the same
// L2 the heap file and B+Tree already use. The directory page's local id
// is persisted on the file's metadata page, the same convention the
// B+Tree uses for its root.
func OpenTable[K comparable, V comparable](indexPath string, fileID uint32, bufferPool *bufferpool.BufferPool, diskManager *diskmanager.DiskManager, opts Options[K, V]) (*Table[K, V], error) {
	_, statErr := os.Stat(indexPath)
	isNew := os.IsNotExist(statErr)

	if _, err := diskManager.OpenFileWithID(indexPath, fileID); err != nil {
		return nil, fmt.Errorf("OpenTable: failed to open index file %s: %w", indexPath, err)
	}

	hashFn := opts.HashKey
	if hashFn == nil {
		hashFn = defaultHash
	}

	t := &Table[K, V]{
		fileID:      fileID,
		bufferPool:  bufferPool,
		diskManager: diskManager,
		encodeKey:   opts.EncodeKey,
		decodeKey:   opts.DecodeKey,
		encodeVal:   opts.EncodeVal,
		decodeVal:   opts.DecodeVal,
		hashKey:     hashFn,
	}

	if isNew {
		if _, err := diskManager.AllocatePage(fileID, types.PageTypeMetadata); err != nil {
			return nil, fmt.Errorf("OpenTable: failed to reserve metadata page: %w", err)
		}

		dirPg, err := bufferPool.NewPage(fileID, types.PageTypeHashDirectory)
		if err != nil {
			return nil, fmt.Errorf("OpenTable: failed to allocate directory page: %w", err)
		}
		dir := newDirectoryPage(dirPg.ID)

		bucketPg, err := bufferPool.NewPage(fileID, types.PageTypeHashBucket)
		if err != nil {
			_ = bufferPool.UnpinPage(dirPg.ID, false)
			return nil, fmt.Errorf("OpenTable: failed to allocate initial bucket page: %w", err)
		}
		bucket := newBucketPage(bucketPg.ID, 0)

		dir.bucketIDs[0] = bucket.pageID
		dir.localDepths[0] = 0

		if err := serializeDirectory(dir, fileID, dirPg.Data); err != nil {
			return nil, err
		}
		if err := serializeBucket(bucket, bucketPg.Data); err != nil {
			return nil, err
		}
		_ = bufferPool.UnpinPage(dirPg.ID, true)
		_ = bufferPool.UnpinPage(bucketPg.ID, true)

		t.dirPageID = dirPg.ID
		localDirID, _ := diskManager.GetLocalPageID(fileID, dirPg.ID)
		if err := diskManager.WriteRootID(fileID, localDirID); err != nil {
			return nil, fmt.Errorf("OpenTable: failed to persist directory page id: %w", err)
		}
	} else {
		fd, err := diskManager.GetFileDescriptor(fileID)
		if err != nil {
			return nil, err
		}
		for localPage := int64(0); localPage < fd.NextPageID; localPage++ {
			_ = diskManager.RegisterPage(fileID, localPage)
		}

		localDirID, err := diskManager.ReadRootID(fileID)
		if err != nil {
			return nil, err
		}
		globalDirID, err := diskManager.GetGlobalPageID(fileID, localDirID)
		if err != nil {
			return nil, err
		}
		t.dirPageID = globalDirID
	}

	return t, nil
}

// fetchDirectory pins and latches the directory page. forWrite selects a
// page.Page writer latch (structural callers: splitInsert, merge) or a
// reader latch (fast-path callers that only read slot assignments).
func (t *Table[K, V]) fetchDirectory(forWrite bool) (*directoryPage, error) {
	pg, err := t.bufferPool.FetchPage(t.dirPageID)
	if err != nil {
		return nil, fmt.Errorf("fetchDirectory: %w", err)
	}
	if forWrite {
		pg.Lock()
	} else {
		pg.RLock()
	}
	d, err := deserializeDirectory(pg.Data, t.fileID)
	if err != nil {
		if forWrite {
			pg.Unlock()
		} else {
			pg.RUnlock()
		}
		_ = t.bufferPool.UnpinPage(t.dirPageID, false)
		return nil, err
	}
	d.pageID = t.dirPageID
	d.pg = pg
	d.forWrite = forWrite
	return d, nil
}

func (t *Table[K, V]) releaseDirectory(d *directoryPage, dirty bool) error {
	var serializeErr error
	if dirty {
		serializeErr = serializeDirectory(d, t.fileID, d.pg.Data)
		if serializeErr == nil {
			d.pg.IsDirty = true
		}
	}
	if d.forWrite {
		d.pg.Unlock()
	} else {
		d.pg.RUnlock()
	}
	if serializeErr != nil {
		_ = t.bufferPool.UnpinPage(d.pageID, false)
		return serializeErr
	}
	return t.bufferPool.UnpinPage(d.pageID, dirty)
}

// fetchBucket pins and latches a bucket page. forWrite selects a
// page.Page writer latch (Insert/Remove's fast path, splitInsert, merge)
// or a reader latch (GetValue).
func (t *Table[K, V]) fetchBucket(pageID int64, forWrite bool) (*bucketPage, error) {
	pg, err := t.bufferPool.FetchPage(pageID)
	if err != nil {
		return nil, fmt.Errorf("fetchBucket: %w", err)
	}
	if forWrite {
		pg.Lock()
	} else {
		pg.RLock()
	}
	b, err := deserializeBucket(pg.Data, t.fileID)
	if err != nil {
		if forWrite {
			pg.Unlock()
		} else {
			pg.RUnlock()
		}
		_ = t.bufferPool.UnpinPage(pageID, false)
		return nil, err
	}
	b.pageID = pageID
	b.pg = pg
	b.forWrite = forWrite
	return b, nil
}

func (t *Table[K, V]) releaseBucket(b *bucketPage, dirty bool) error {
	var serializeErr error
	if dirty {
		serializeErr = serializeBucket(b, b.pg.Data)
		if serializeErr == nil {
			b.pg.IsDirty = true
		}
	}
	if b.forWrite {
		b.pg.Unlock()
	} else {
		b.pg.RUnlock()
	}
	if serializeErr != nil {
		_ = t.bufferPool.UnpinPage(b.pageID, false)
		return serializeErr
	}
	return t.bufferPool.UnpinPage(b.pageID, dirty)
}

// newBucket allocates a fresh bucket page and returns it still pinned and
// write-latched, ready for releaseBucket once the caller has finished
// filling it in (splitInsert's post-split halves).
func (t *Table[K, V]) newBucket(localDepth uint8) (*bucketPage, error) {
	pg, err := t.bufferPool.NewPage(t.fileID, types.PageTypeHashBucket)
	if err != nil {
		return nil, fmt.Errorf("newBucket: %w", err)
	}
	pg.Lock()
	b := newBucketPage(pg.ID, localDepth)
	b.pg = pg
	b.forWrite = true
	if err := serializeBucket(b, pg.Data); err != nil {
		pg.Unlock()
		_ = t.bufferPool.UnpinPage(pg.ID, false)
		return nil, err
	}
	return b, nil
}

// Insert adds (key, value) and reports whether it was actually stored.
// Duplicate (key, value) pairs are rejected — a second Insert of the same
// pair returns (false, nil) and leaves the structure unchanged, rather
// than storing the pair twice. When the target bucket is full, the
// bucket is split (and the directory doubled first if necessary) and
// insert is retried.
//
// The fast path (no split needed) only takes mu as a reader: it reads
// the directory to find the target bucket, then write-latches that one
// bucket page directly, so concurrent inserts into different buckets
// never contend on mu. Splitting requires mu as a writer, since it
// rewrites directory slots the fast path of any other goroutine might be
// reading at the same time.
func (t *Table[K, V]) Insert(key K, value V) (bool, error) {
	encKey := t.encodeKey(key)
	encVal := t.encodeVal(value)
	h := t.hashKey(encKey)

	for {
		t.mu.RLock()
		dir, err := t.fetchDirectory(false)
		if err != nil {
			t.mu.RUnlock()
			return false, err
		}

		idx := bucketIndex(h, dir.globalDepth)
		bucketID := dir.bucketIDs[idx]
		localDepth := dir.localDepths[idx]
		_ = t.releaseDirectory(dir, false)

		bucket, err := t.fetchBucket(bucketID, true)
		if err != nil {
			t.mu.RUnlock()
			return false, err
		}

		if bucket.contains(encKey, encVal) {
			_ = t.releaseBucket(bucket, false)
			t.mu.RUnlock()
			return false, nil
		}

		if bucket.fits(encKey, encVal) {
			bucket.insert(encKey, encVal)
			err := t.releaseBucket(bucket, true)
			t.mu.RUnlock()
			return err == nil, err
		}

		// Bucket is full — release what we hold and split.
		_ = t.releaseBucket(bucket, false)
		t.mu.RUnlock()

		if localDepth >= MaxGlobalDepth {
			return false, fmt.Errorf("Insert: bucket at max local depth %d, cannot split further", MaxGlobalDepth)
		}

		if err := t.splitInsert(idx); err != nil {
			return false, err
		}
		// loop and retry the insert against the post-split layout
	}
}

// splitInsert splits the bucket at directory index idx, doubling the
// directory first if its local depth has caught up to the global depth.
// Takes mu as a writer for its whole duration — every directory slot is
// up for rewriting, so no fast-path reader may run concurrently.
func (t *Table[K, V]) splitInsert(idx uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	dir, err := t.fetchDirectory(true)
	if err != nil {
		return err
	}

	localDepth := dir.localDepths[idx]
	if localDepth == dir.globalDepth {
		if err := dir.grow(); err != nil {
			_ = t.releaseDirectory(dir, false)
			return err
		}
	}

	oldBucket, err := t.fetchBucket(dir.bucketIDs[idx], true)
	if err != nil {
		_ = t.releaseDirectory(dir, false)
		return err
	}

	newLocalDepth := localDepth + 1
	newBucket, err := t.newBucket(newLocalDepth)
	if err != nil {
		_ = t.releaseBucket(oldBucket, false)
		_ = t.releaseDirectory(dir, false)
		return err
	}

	// Redistribute every directory slot that pointed at the old bucket:
	// slots whose newly-significant bit is 1 now point at the new bucket.
	splitBit := uint32(1) << localDepth
	for i := uint32(0); i < dir.size(); i++ {
		if dir.bucketIDs[i] != oldBucket.pageID {
			continue
		}
		dir.localDepths[i] = newLocalDepth
		if i&splitBit != 0 {
			dir.bucketIDs[i] = newBucket.pageID
		}
	}

	// Rehash the old bucket's entries between the two buckets.
	kept := oldBucket.entries[:0:0]
	for _, e := range oldBucket.entries {
		h := t.hashKey(e.key)
		target := bucketIndex(h, dir.globalDepth)
		if dir.bucketIDs[target] == newBucket.pageID {
			newBucket.entries = append(newBucket.entries, e)
		} else {
			kept = append(kept, e)
		}
	}
	oldBucket.entries = kept
	oldBucket.localDepth = newLocalDepth

	if err := t.releaseBucket(oldBucket, true); err != nil {
		return err
	}
	if err := t.releaseBucket(newBucket, true); err != nil {
		return err
	}
	return t.releaseDirectory(dir, true)
}

// GetValue returns every value stored under key. Takes mu and the target
// bucket page both as readers — concurrent GetValue/Insert/Remove calls
// against different buckets never block each other.
func (t *Table[K, V]) GetValue(key K) ([]V, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	encKey := t.encodeKey(key)
	h := t.hashKey(encKey)

	dir, err := t.fetchDirectory(false)
	if err != nil {
		return nil, err
	}
	idx := bucketIndex(h, dir.globalDepth)
	bucketID := dir.bucketIDs[idx]
	_ = t.releaseDirectory(dir, false)

	bucket, err := t.fetchBucket(bucketID, false)
	if err != nil {
		return nil, err
	}
	defer t.releaseBucket(bucket, false)

	encVals := bucket.lookup(encKey)
	vals := make([]V, 0, len(encVals))
	for _, ev := range encVals {
		vals = append(vals, t.decodeVal(ev))
	}
	return vals, nil
}

// Remove deletes the exact (key, value) pair and reports whether it was
// present. If the bucket becomes empty and its split image has the same
// local depth, the two are merged and the directory is repeatedly halved
// while canShrink holds.
//
// Like Insert, the fast path only takes mu as a reader and write-latches
// the one bucket page it touches; merge (the structural case) takes mu
// as a writer.
func (t *Table[K, V]) Remove(key K, value V) (bool, error) {
	t.mu.RLock()

	encKey := t.encodeKey(key)
	encVal := t.encodeVal(value)
	h := t.hashKey(encKey)

	dir, err := t.fetchDirectory(false)
	if err != nil {
		t.mu.RUnlock()
		return false, err
	}
	idx := bucketIndex(h, dir.globalDepth)
	bucketID := dir.bucketIDs[idx]
	localDepth := dir.localDepths[idx]
	_ = t.releaseDirectory(dir, false)

	bucket, err := t.fetchBucket(bucketID, true)
	if err != nil {
		t.mu.RUnlock()
		return false, err
	}

	removed := bucket.remove(encKey, encVal)
	becameEmpty := removed && bucket.isEmpty()
	if err := t.releaseBucket(bucket, removed); err != nil {
		t.mu.RUnlock()
		return false, err
	}
	t.mu.RUnlock()

	if becameEmpty && localDepth > 0 {
		_ = t.merge(idx)
	}

	return removed, nil
}

// merge folds the empty bucket at idx into its split image, when the
// image has the same local depth and is still occupied — a no-op,
// reported as success, whenever that precondition doesn't hold (this
// table's merge contract: refuse silently rather than error). Takes mu
// as a writer for its whole duration, the same as splitInsert.
func (t *Table[K, V]) merge(idx uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	dir, err := t.fetchDirectory(true)
	if err != nil {
		return err
	}

	localDepth := dir.localDepths[idx]
	if localDepth == 0 {
		return t.releaseDirectory(dir, false)
	}

	bucketID := dir.bucketIDs[idx]
	imgIdx := imageIndex(idx, localDepth)
	imageDepth := dir.localDepths[imgIdx]
	imageBucketID := dir.bucketIDs[imgIdx]

	if imageDepth != localDepth || imageBucketID == bucketID {
		return t.releaseDirectory(dir, false)
	}

	bucket, err := t.fetchBucket(bucketID, false)
	if err != nil {
		_ = t.releaseDirectory(dir, false)
		return err
	}
	empty := bucket.isEmpty()
	_ = t.releaseBucket(bucket, false)
	if !empty {
		return t.releaseDirectory(dir, false)
	}

	newDepth := localDepth - 1
	for i := uint32(0); i < dir.size(); i++ {
		if dir.bucketIDs[i] == bucketID || dir.bucketIDs[i] == imageBucketID {
			dir.bucketIDs[i] = imageBucketID
			dir.localDepths[i] = newDepth
		}
	}

	_ = t.bufferPool.DeletePage(bucketID)

	for dir.canShrink() && dir.globalDepth > 0 {
		dir.shrink()
	}

	return t.releaseDirectory(dir, true)
}

// GlobalDepth returns the directory's current global depth: the number
// of low bits of a key's hash used to route it to a directory slot.
func (t *Table[K, V]) GlobalDepth() (uint8, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	dir, err := t.fetchDirectory(false)
	if err != nil {
		return 0, err
	}
	defer t.releaseDirectory(dir, false)
	return dir.globalDepth, nil
}

// VerifyIntegrity walks the directory and every reachable bucket,
// checking the invariants an extendible hash table must hold:
//
//   - every occupied slot's local depth is no greater than the global depth
//   - every slot pointing at the same bucket agrees on that bucket's local
//     depth and on the low bits of the slot index up to that depth (two
//     slots share a bucket iff their low-ℓ bits agree)
//   - every live entry in a bucket hashes to a directory slot that names
//     that same bucket
//
// Returns the first violation found, or nil if the table is consistent.
func (t *Table[K, V]) VerifyIntegrity() error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	dir, err := t.fetchDirectory(false)
	if err != nil {
		return err
	}
	defer t.releaseDirectory(dir, false)

	type bucketInfo struct {
		localDepth uint8
		lowBits    uint32
	}
	byBucket := make(map[int64]bucketInfo)

	for i := uint32(0); i < dir.size(); i++ {
		bucketID := dir.bucketIDs[i]
		if bucketID < 0 {
			continue
		}
		localDepth := dir.localDepths[i]
		if localDepth > dir.globalDepth {
			return fmt.Errorf("VerifyIntegrity: slot %d has local depth %d exceeding global depth %d", i, localDepth, dir.globalDepth)
		}

		mask := uint32(1)<<localDepth - 1
		lowBits := i & mask

		info, ok := byBucket[bucketID]
		if !ok {
			byBucket[bucketID] = bucketInfo{localDepth: localDepth, lowBits: lowBits}
			continue
		}
		if info.localDepth != localDepth {
			return fmt.Errorf("VerifyIntegrity: bucket %d has conflicting local depths %d and %d across directory slots", bucketID, info.localDepth, localDepth)
		}
		if info.lowBits != lowBits {
			return fmt.Errorf("VerifyIntegrity: slot %d shares bucket %d but disagrees on low-%d bits (%d vs %d)", i, bucketID, localDepth, lowBits, info.lowBits)
		}
	}

	for bucketID := range byBucket {
		bucket, err := t.fetchBucket(bucketID, false)
		if err != nil {
			return fmt.Errorf("VerifyIntegrity: failed to fetch bucket %d: %w", bucketID, err)
		}
		for _, e := range bucket.entries {
			h := t.hashKey(e.key)
			idx := bucketIndex(h, dir.globalDepth)
			if dir.bucketIDs[idx] != bucketID {
				_ = t.releaseBucket(bucket, false)
				return fmt.Errorf("VerifyIntegrity: entry in bucket %d hashes to slot %d, which names bucket %d instead", bucketID, idx, dir.bucketIDs[idx])
			}
		}
		_ = t.releaseBucket(bucket, false)
	}

	return nil
}
