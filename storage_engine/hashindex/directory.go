package hashindex

import (
	"DaemonDB/storage_engine/page"
	"encoding/binary"
	"fmt"
)

/*
Directory page binary layout (all values little-endian):

	Offset  Size  Field
	────────────────────────────────────────────────
	0       8     localPageID   int64
	8       1     (page type stamp, written by WritePage)
	9       1     globalDepth   uint8
	10      5×512 entries: localDepth uint8 | localBucketID int32 (-1 = unset)
	────────────────────────────────────────────────

Bucket ids are stored as local page numbers, same convention the B+Tree
index uses for child/parent/next pointers, so they stay valid across
restarts regardless of how global ids get reassigned.
*/

const directoryEntrySize = 5 // 1 byte local depth + 4 byte local bucket id
const directoryHeaderSize = 10

func newDirectoryPage(pageID int64) *directoryPage {
	d := &directoryPage{pageID: pageID}
	for i := range d.bucketIDs {
		d.bucketIDs[i] = -1
	}
	return d
}

func serializeDirectory(d *directoryPage, fileID uint32, data []byte) error {
	if len(data) != page.PageSize {
		return fmt.Errorf("serializeDirectory: data buffer must be %d bytes", page.PageSize)
	}

	localPageID := d.pageID & 0xFFFFFFFF
	binary.LittleEndian.PutUint64(data[0:8], uint64(localPageID))
	data[9] = d.globalDepth

	offset := directoryHeaderSize
	for i := 0; i < DirectoryArraySize; i++ {
		data[offset] = d.localDepths[i]
		localBucket := int32(-1)
		if d.bucketIDs[i] >= 0 {
			localBucket = int32(d.bucketIDs[i] & 0xFFFFFFFF)
		}
		binary.LittleEndian.PutUint32(data[offset+1:], uint32(localBucket))
		offset += directoryEntrySize
	}

	return nil
}

func deserializeDirectory(data []byte, fileID uint32) (*directoryPage, error) {
	if len(data) != page.PageSize {
		return nil, fmt.Errorf("deserializeDirectory: data buffer must be %d bytes", page.PageSize)
	}

	localPageID := int64(binary.LittleEndian.Uint64(data[0:8]))
	d := &directoryPage{
		pageID:      int64(fileID)<<32 | localPageID,
		globalDepth: data[9],
	}

	offset := directoryHeaderSize
	for i := 0; i < DirectoryArraySize; i++ {
		d.localDepths[i] = data[offset]
		localBucket := int32(binary.LittleEndian.Uint32(data[offset+1:]))
		if localBucket < 0 {
			d.bucketIDs[i] = -1
		} else {
			d.bucketIDs[i] = int64(fileID)<<32 | int64(localBucket)
		}
		offset += directoryEntrySize
	}

	return d, nil
}

// size returns the number of addressable slots at the current global
// depth: 2^globalDepth.
func (d *directoryPage) size() uint32 {
	return uint32(1) << d.globalDepth
}

// canShrink reports whether every occupied local depth is strictly less
// than the global depth — the precondition for halving the directory.
func (d *directoryPage) canShrink() bool {
	for i := uint32(0); i < d.size(); i++ {
		if d.bucketIDs[i] != -1 && d.localDepths[i] >= d.globalDepth {
			return false
		}
	}
	return true
}

// grow doubles the directory, mirroring every existing slot's bucket and
// local depth into its high-bit twin. Fails once globalDepth would exceed
// MaxGlobalDepth.
func (d *directoryPage) grow() error {
	if d.globalDepth >= MaxGlobalDepth {
		return fmt.Errorf("directory already at max global depth %d", MaxGlobalDepth)
	}
	oldSize := d.size()
	d.globalDepth++
	for i := uint32(0); i < oldSize; i++ {
		d.bucketIDs[i+oldSize] = d.bucketIDs[i]
		d.localDepths[i+oldSize] = d.localDepths[i]
	}
	return nil
}

// shrink halves the directory. Caller must have already verified canShrink.
func (d *directoryPage) shrink() {
	d.globalDepth--
}
