package hashindex

import (
	diskmanager "DaemonDB/storage_engine/disk_manager"

	"DaemonDB/storage_engine/bufferpool"
	"DaemonDB/storage_engine/page"
	"sync"
)

// DirectoryArraySize is the directory's fixed slot count: 2^MaxGlobalDepth,
// mirroring BusTub's own DIRECTORY_ARRAY_SIZE / 512 (max global depth 9).
const DirectoryArraySize = 512

// MaxGlobalDepth bounds how many bits of a key's hash the directory can
// address. Requesting a split past this depth fails rather than growing
// forever.
const MaxGlobalDepth = 9

// Table is a disk-resident extendible hash index mapping key -> set of
// values, generic the same way the existing B+Tree index is generic over
// a key comparator: callers supply how to turn a K or V into bytes and
// back, and the index itself only ever deals in []byte on the wire.
//
// Latching is two-level. The fast path (GetValue, and the non-structural
// branch of Insert/Remove) takes mu as a reader — it only consults the
// directory to find a bucket id, then locks that one bucket page
// directly (page.Page's own RWMutex: RLock for reads, Lock for writes),
// so unrelated buckets never contend with each other. Only the
// structural operations, splitInsert and merge, take mu as a writer,
// since they rewrite directory slots that any concurrent fast-path
// reader might be consulting.
type Table[K comparable, V comparable] struct {
	fileID      uint32
	dirPageID   int64
	bufferPool  *bufferpool.BufferPool
	diskManager *diskmanager.DiskManager

	encodeKey func(K) []byte
	decodeKey func([]byte) K
	encodeVal func(V) []byte
	decodeVal func([]byte) V
	hashKey   func([]byte) uint32

	mu sync.RWMutex
}

// Options configures a new Table. EncodeKey/DecodeKey and EncodeVal/DecodeVal
// must round-trip (DecodeKey(EncodeKey(k)) == k); HashKey defaults to
// xxhash over the encoded key bytes when left nil.
type Options[K comparable, V comparable] struct {
	EncodeKey func(K) []byte
	DecodeKey func([]byte) K
	EncodeVal func(V) []byte
	DecodeVal func([]byte) V
	HashKey   func([]byte) uint32
}

// directoryPage is the in-memory mirror of the on-disk directory page:
// one bucket page id and local depth per directory slot. Bucket ids are
// kept as LOCAL page numbers on disk (consistent with how the B+Tree
// index stores child/parent/next pointers) and reconstructed to global
// ids with this table's fileID on load.
type directoryPage struct {
	pageID      int64
	globalDepth uint8
	localDepths [DirectoryArraySize]uint8
	bucketIDs   [DirectoryArraySize]int64 // global page ids; InvalidPageID if unset

	pg       *page.Page // underlying buffer pool frame, held locked between fetch and release
	forWrite bool
}

// bucketEntry is one live (key, value) pair inside a bucket page.
type bucketEntry struct {
	key []byte
	val []byte
}

// bucketPage is the in-memory mirror of an on-disk hash bucket: a flat,
// variable-length entry list in page-arrival order, the same slotted-page
// shape the heap file manager already uses for tuples. There is no
// separate occupied/tombstone bitmap — entries are compacted on delete —
// because the underlying storage is a variable-length byte page, not
// BusTub's fixed-size templated array.
type bucketPage struct {
	pageID     int64
	localDepth uint8
	entries    []bucketEntry

	pg       *page.Page // underlying buffer pool frame, held locked between fetch and release
	forWrite bool
}
