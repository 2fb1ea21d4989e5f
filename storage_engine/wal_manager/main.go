package wal_manager

import (
	"DaemonDB/types"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

/*

WAL Segment File
────────────────────────────────────
| Record | Record | Record | ...   |
────────────────────────────────────

Each Record:
────────────────────────────────────────────
| LSN (8) | LEN (4) | CRC (4) | DATA (LEN) |
────────────────────────────────────────────

The engine needs to stamp an LSN onto a page or an Operation before the
record describing that write is durable, so LSN allocation
(AllocateLSN) is split from making the record durable (Sync). Between
the two, AppendToBuffer holds the encoded record in memory; the buffer
pool's flush gate reads GetFlushedLSN to decide whether a dirty page is
safe to evict — never before the WAL record covering it has been
synced.

*/

func OpenWAL(directory string) (*WALManager, error) {
	if err := os.MkdirAll(directory, 0755); err != nil {
		return nil, err
	}

	wal := &WALManager{
		Directory: directory,
		Segments:  make(map[uint64]*WALSegment),
	}

	if err := wal.recoverWALEntries(); err != nil {
		return nil, err
	}

	if wal.CurrSegment == nil {
		if err := wal.createNewSegment(); err != nil {
			return nil, err
		}
	}

	return wal, nil
}

// recoverWALEntries reopens every existing segment file and determines the
// highest LSN written so far, so allocation resumes past it instead of
// restarting from zero.
func (w *WALManager) recoverWALEntries() error {
	files, err := filepath.Glob(filepath.Join(w.Directory, "wal_*.log"))
	if err != nil {
		return err
	}

	var segmentIDs []uint64
	for _, file := range files {
		name := filepath.Base(file)
		if !strings.HasPrefix(name, "wal_") || !strings.HasSuffix(name, ".log") {
			continue
		}

		hexPart := strings.TrimSuffix(strings.TrimPrefix(name, "wal_"), ".log")
		segmentID, err := strconv.ParseUint(hexPart, 16, 64)
		if err != nil {
			continue
		}

		segmentIDs = append(segmentIDs, segmentID)
	}

	if len(segmentIDs) == 0 {
		return nil
	}

	slices.Sort(segmentIDs)

	maxLSN := uint64(0)
	for _, segmentID := range segmentIDs {
		segment := InitializeWALSegment(segmentID, w.Directory)
		if err := segment.Open(); err != nil {
			return err
		}
		w.Segments[segmentID] = segment

		lsn, err := w.findLargestLSN(segment)
		if err != nil {
			return err
		}
		if lsn > maxLSN {
			maxLSN = lsn
		}
	}

	lastSegmentID := segmentIDs[len(segmentIDs)-1]
	w.CurrSegment = w.Segments[lastSegmentID]
	w.currentLSN = maxLSN
	w.flushedLSN = maxLSN

	fmt.Printf("[WAL] recovered %d segment(s), resuming at LSN %d\n", len(segmentIDs), maxLSN)

	return nil
}

func (w *WALManager) createNewSegment() error {
	segmentID := uint64(len(w.Segments))
	segment := InitializeWALSegment(segmentID, w.Directory)

	if err := segment.Open(); err != nil {
		return err
	}

	w.Segments[segmentID] = segment
	w.CurrSegment = segment
	return nil
}

// AllocateLSN reserves the next LSN without writing anything. dataLen is
// accepted for symmetry with callers that size their record ahead of time;
// LSNs themselves are a flat counter, not byte offsets.
func (w *WALManager) AllocateLSN(dataLen int) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.currentLSN++
	return w.currentLSN
}

// AppendToBuffer stamps lsn onto op, encodes it, and queues the encoded
// record in memory. The record is not durable — and GetFlushedLSN will not
// advance past it — until Sync is called.
func (w *WALManager) AppendToBuffer(op *types.Operation, lsn uint64) error {
	op.LSN = lsn

	data := op.Encode()
	record := &WALRecord{
		LSN:  lsn,
		Data: data,
		CRC:  calculateCRC(lsn, data),
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.buffer = append(w.buffer, bufferedRecord{lsn: lsn, encoded: record.Encode()})
	return nil
}

// AppendOperation allocates an LSN, encodes op, and writes it straight to
// the current segment file — used for control records (transaction
// boundaries, DDL) that do not need buffering. The write is not fsynced;
// callers still call Sync() when they need durability.
func (w *WALManager) AppendOperation(op *types.Operation) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.currentLSN++
	lsn := w.currentLSN
	op.LSN = lsn

	data := op.Encode()
	record := &WALRecord{
		LSN:  lsn,
		Data: data,
		CRC:  calculateCRC(lsn, data),
	}

	if err := w.writeLocked(record.Encode()); err != nil {
		return 0, err
	}

	return lsn, nil
}

// writeLocked appends encoded bytes to the current segment, rolling to a
// new segment first if the current one is full. Caller holds w.mu.
func (w *WALManager) writeLocked(encoded []byte) error {
	if w.CurrSegment.IsFull() {
		if err := w.createNewSegment(); err != nil {
			return err
		}
	}

	_, err := w.CurrSegment.Append(encoded)
	return err
}

// Sync drains the in-memory buffer to the current segment, fsyncs it, and
// advances GetFlushedLSN to cover everything written so far.
func (w *WALManager) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, rec := range w.buffer {
		if err := w.writeLocked(rec.encoded); err != nil {
			return err
		}
	}
	w.buffer = w.buffer[:0]

	if err := w.CurrSegment.Sync(); err != nil {
		return err
	}

	w.flushedLSN = w.currentLSN
	return nil
}

// GetCurrentLSN returns the highest LSN ever allocated, whether or not it
// has been synced yet.
func (w *WALManager) GetCurrentLSN() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.currentLSN
}

// GetFlushedLSN returns the highest LSN known durable on disk. The buffer
// pool must not flush or evict a dirty page whose LSN is greater than this.
func (w *WALManager) GetFlushedLSN() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.flushedLSN
}

func (wm *WALManager) ReplayFromLSN(startLSN uint64, applyFunc func(*types.Operation) error) error {
	wm.mu.RLock()
	defer wm.mu.RUnlock()

	var segmentIDs []uint64
	for id := range wm.Segments {
		segmentIDs = append(segmentIDs, id)
	}
	slices.Sort(segmentIDs)

	for _, segmentID := range segmentIDs {
		segment := wm.Segments[segmentID]
		if err := wm.replaySegment(segment, startLSN, applyFunc); err != nil {
			return fmt.Errorf("failed to replay segment %d: %w", segmentID, err)
		}
	}

	return nil
}

func (wm *WALManager) replaySegment(segment *WALSegment, startLSN uint64, applyFunc func(*types.Operation) error) error {
	segment.mu.Lock()
	defer segment.mu.Unlock()

	file, err := os.Open(segment.FilePath)
	if err != nil {
		return err
	}
	defer file.Close()

	header := make([]byte, RecordHeaderSize)

	for {
		_, err := io.ReadFull(file, header)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		lsn := binary.BigEndian.Uint64(header[0:8])
		dataLen := binary.BigEndian.Uint32(header[8:12])
		crc := binary.BigEndian.Uint32(header[12:16])

		data := make([]byte, dataLen)
		if _, err := io.ReadFull(file, data); err != nil {
			return err
		}

		if calculateCRC(lsn, data) != crc {
			return fmt.Errorf("CRC mismatch at LSN %d", lsn)
		}

		if lsn < startLSN {
			continue
		}

		var op types.Operation
		if err := json.Unmarshal(data, &op); err != nil {
			return fmt.Errorf("failed to decode operation at LSN %d: %w", lsn, err)
		}

		if err := applyFunc(&op); err != nil {
			return fmt.Errorf("failed to apply operation at LSN %d: %w", lsn, err)
		}
	}

	return nil
}

func (w *WALManager) findLargestLSN(segment *WALSegment) (uint64, error) {
	segment.mu.Lock()
	defer segment.mu.Unlock()

	if segment.File == nil {
		return 0, fmt.Errorf("segment not opened")
	}

	file, err := os.Open(segment.FilePath)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	maxLSN := uint64(0)
	header := make([]byte, RecordHeaderSize)

	for {
		_, err := io.ReadFull(file, header)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return 0, err
		}

		lsn := binary.BigEndian.Uint64(header[0:8])
		dataLen := binary.BigEndian.Uint32(header[8:12])
		if lsn > maxLSN {
			maxLSN = lsn
		}

		if _, err := file.Seek(int64(dataLen), io.SeekCurrent); err != nil {
			break
		}
	}

	return maxLSN, nil
}

func (wm *WALManager) Close() error {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	for _, seg := range wm.Segments {
		if seg.File != nil {
			if err := wm.flushAndCloseSegment(seg); err != nil {
				return err
			}
		}
	}

	return nil
}

func (wm *WALManager) flushAndCloseSegment(seg *WALSegment) error {
	if err := seg.File.Sync(); err != nil {
		return err
	}
	if err := seg.File.Close(); err != nil {
		return err
	}
	seg.File = nil
	return nil
}
