package wal_manager

import (
	"os"
	"sync"
)

const (
	RecordHeaderSize = 16
	SegmentSize      = 16 * 1024 * 1024
)

// WALManager owns the ordered sequence of segment files that make up the
// write-ahead log. LSNs are allocated up front (AllocateLSN) so a caller can
// stamp an LSN onto a page/operation before the record itself is durable;
// AppendToBuffer then queues the encoded record and GetFlushedLSN reports how
// far the buffer has actually made it to disk. The buffer pool's flush gate
// (storage_engine/bufferpool) reads GetFlushedLSN to enforce WAL-before-data.
type WALManager struct {
	Directory   string
	CurrSegment *WALSegment
	Segments    map[uint64]*WALSegment

	currentLSN uint64 // highest LSN ever allocated
	flushedLSN uint64 // highest LSN known durable on disk

	buffer []bufferedRecord

	mu sync.RWMutex
}

type bufferedRecord struct {
	lsn     uint64
	encoded []byte
}

type WALSegment struct {
	SegmentId uint64
	FilePath  string
	File      *os.File
	Size      int64
	mu        sync.Mutex
}

type WALRecord struct {
	LSN  uint64
	Data []byte
	CRC  uint32
}
