package hashindex

import (
	"DaemonDB/storage_engine/page"
	"bytes"
	"encoding/binary"
	"fmt"
)

/*
Bucket page binary layout (all values little-endian):

	Offset  Size  Field
	──────────────────────────────────────────
	0       8     localPageID  int64
	8       1     (page type stamp, written by WritePage)
	9       1     localDepth   uint8
	10      2     numEntries   uint16
	12            entries →
	──────────────────────────────────────────

Each entry: keyLen uint16 | key bytes | valLen uint16 | val bytes.

A bucket is a flat, variable-length entry list rather than BusTub's
fixed-size templated array — the same slotted, space-bounded shape the
heap file manager already uses for tuples. "Full" means the next insert
wouldn't fit in the remaining 4096-12 bytes, not a fixed entry count.
*/

const bucketHeaderSize = 12

func newBucketPage(pageID int64, localDepth uint8) *bucketPage {
	return &bucketPage{pageID: pageID, localDepth: localDepth}
}

func serializeBucket(b *bucketPage, data []byte) error {
	if len(data) != page.PageSize {
		return fmt.Errorf("serializeBucket: data buffer must be %d bytes", page.PageSize)
	}

	localPageID := b.pageID & 0xFFFFFFFF
	binary.LittleEndian.PutUint64(data[0:8], uint64(localPageID))
	data[9] = b.localDepth
	binary.LittleEndian.PutUint16(data[10:12], uint16(len(b.entries)))

	offset := bucketHeaderSize
	for _, e := range b.entries {
		need := 2 + len(e.key) + 2 + len(e.val)
		if offset+need > page.PageSize {
			return fmt.Errorf("serializeBucket: entries no longer fit in one page")
		}
		binary.LittleEndian.PutUint16(data[offset:], uint16(len(e.key)))
		offset += 2
		copy(data[offset:], e.key)
		offset += len(e.key)

		binary.LittleEndian.PutUint16(data[offset:], uint16(len(e.val)))
		offset += 2
		copy(data[offset:], e.val)
		offset += len(e.val)
	}

	return nil
}

func deserializeBucket(data []byte, fileID uint32) (*bucketPage, error) {
	if len(data) != page.PageSize {
		return nil, fmt.Errorf("deserializeBucket: data buffer must be %d bytes", page.PageSize)
	}

	localPageID := int64(binary.LittleEndian.Uint64(data[0:8]))
	b := &bucketPage{
		pageID:     int64(fileID)<<32 | localPageID,
		localDepth: data[9],
	}

	numEntries := binary.LittleEndian.Uint16(data[10:12])
	offset := bucketHeaderSize
	b.entries = make([]bucketEntry, 0, numEntries)
	for i := uint16(0); i < numEntries; i++ {
		keyLen := binary.LittleEndian.Uint16(data[offset:])
		offset += 2
		key := make([]byte, keyLen)
		copy(key, data[offset:offset+int(keyLen)])
		offset += int(keyLen)

		valLen := binary.LittleEndian.Uint16(data[offset:])
		offset += 2
		val := make([]byte, valLen)
		copy(val, data[offset:offset+int(valLen)])
		offset += int(valLen)

		b.entries = append(b.entries, bucketEntry{key: key, val: val})
	}

	return b, nil
}

// usedBytes returns the serialized size of the bucket's current entries.
func (b *bucketPage) usedBytes() int {
	used := bucketHeaderSize
	for _, e := range b.entries {
		used += 2 + len(e.key) + 2 + len(e.val)
	}
	return used
}

// fits reports whether one more (key, val) entry would still serialize
// within a single page.
func (b *bucketPage) fits(key, val []byte) bool {
	return b.usedBytes()+2+len(key)+2+len(val) <= page.PageSize
}

func (b *bucketPage) isEmpty() bool {
	return len(b.entries) == 0
}

// contains reports whether the exact (key, val) pair is already present —
// insert rejects duplicates rather than storing the same pair twice.
func (b *bucketPage) contains(key, val []byte) bool {
	for _, e := range b.entries {
		if bytes.Equal(e.key, key) && bytes.Equal(e.val, val) {
			return true
		}
	}
	return false
}

// lookup returns every value stored under key.
func (b *bucketPage) lookup(key []byte) [][]byte {
	var vals [][]byte
	for _, e := range b.entries {
		if bytes.Equal(e.key, key) {
			vals = append(vals, e.val)
		}
	}
	return vals
}

// insert appends (key, val); caller must have already checked contains
// and fits.
func (b *bucketPage) insert(key, val []byte) {
	b.entries = append(b.entries, bucketEntry{key: key, val: val})
}

// remove deletes the exact (key, val) pair, compacting the entry list.
// Returns false if the pair wasn't present.
func (b *bucketPage) remove(key, val []byte) bool {
	for i, e := range b.entries {
		if bytes.Equal(e.key, key) && bytes.Equal(e.val, val) {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return true
		}
	}
	return false
}
