// Package wal is the write-ahead log hook the buffer pool calls into before
// it writes a dirty page back on eviction.
// It does not implement redo/undo recovery — that is explicitly out of
// scope — it only guarantees that AppendLogRecord returns an LSN the caller
// can later pass to Flush to force that record (and everything before it)
// durable, the WAL-before-data ordering the buffer pool depends on.
package wal

import (
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/lintang-b-s/storagecore/lib/disk"
)

// RecordKind tags the payload of a log record. The set is intentionally
// small: this module logs enough to support a durability barrier, not full
// ARIES-style redo/undo.
type RecordKind byte

const (
	RecordInsert RecordKind = iota + 1
	RecordUpdate
	RecordDelete
	RecordCommit
	RecordAbort
)

// blockSize is the on-disk unit the log is written in. Reusing the data
// page size keeps one buffer-pool-sized write per flush.
const blockSize = disk.PageSize

// Manager appends log records to a single append-only file, packing them
// from the right-hand edge of a fixed-size block toward the left, exactly
// as the teacher's LogManager does. Grounded in the teacher's block-based
// log design; simplified here to a flat file (no BlockID/filename
// indirection, since a WAL only ever has one file).
type Manager struct {
	file  *os.File
	latch sync.Mutex

	page         *disk.Page
	currentBlock int64
	latestLSN    int64
	flushedLSN   int64
}

// NewManager opens (creating if needed) the log file at path.
func NewManager(path string) (*Manager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "wal: open log file")
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "wal: stat log file")
	}

	m := &Manager{
		file: f,
		page: disk.NewPage(),
	}

	numBlocks := fi.Size() / blockSize
	if numBlocks == 0 {
		m.currentBlock = 0
		m.page.PutInt32(0, blockSize)
		if _, err := f.WriteAt(m.page[:], 0); err != nil {
			f.Close()
			return nil, errors.Wrap(err, "wal: initialize first block")
		}
		return m, nil
	}

	m.currentBlock = numBlocks - 1
	if _, err := f.ReadAt(m.page[:], m.currentBlock*blockSize); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "wal: read last block")
	}
	return m, nil
}

// AppendLogRecord serializes kind and payload into the log buffer and
// returns the LSN assigned to it. The record is not guaranteed durable
// until Flush(lsn) returns nil.
func (m *Manager) AppendLogRecord(kind RecordKind, payload []byte) (int64, error) {
	m.latch.Lock()
	defer m.latch.Unlock()

	record := make([]byte, 1+len(payload))
	record[0] = byte(kind)
	copy(record[1:], payload)

	freeSpace := m.page.GetInt32(0)
	bytesNeeded := int32(4 + len(record))

	if bytesNeeded+4 > freeSpace {
		if err := m.flushLocked(); err != nil {
			return 0, err
		}
		if err := m.appendNewBlockLocked(); err != nil {
			return 0, err
		}
		freeSpace = m.page.GetInt32(0)
	}

	position := int(freeSpace - bytesNeeded)
	if _, err := m.page.PutBytes(position, record); err != nil {
		return 0, errors.Wrap(err, "wal: append record")
	}
	m.page.PutInt32(0, int32(position))

	m.latestLSN++
	return m.latestLSN, nil
}

// Flush forces the current log block to disk if lsn has not already been
// made durable by a previous flush.
func (m *Manager) Flush(lsn int64) error {
	m.latch.Lock()
	defer m.latch.Unlock()
	if lsn <= m.flushedLSN {
		return nil
	}
	return m.flushLocked()
}

func (m *Manager) flushLocked() error {
	if _, err := m.file.WriteAt(m.page[:], m.currentBlock*blockSize); err != nil {
		return errors.Wrap(err, "wal: flush block")
	}
	m.flushedLSN = m.latestLSN
	return nil
}

func (m *Manager) appendNewBlockLocked() error {
	m.currentBlock++
	m.page.Reset()
	m.page.PutInt32(0, blockSize)
	if _, err := m.file.WriteAt(m.page[:], m.currentBlock*blockSize); err != nil {
		return errors.Wrap(err, "wal: append block")
	}
	return nil
}

// ShutDown closes the log file.
func (m *Manager) ShutDown() error {
	m.latch.Lock()
	defer m.latch.Unlock()
	if err := m.file.Close(); err != nil {
		return errors.Wrap(err, "wal: close log file")
	}
	return nil
}

// CurrentLSN returns the most recently assigned LSN, useful for a caller
// that wants to force a flush of "everything appended so far".
func (m *Manager) CurrentLSN() int64 {
	m.latch.Lock()
	defer m.latch.Unlock()
	return m.latestLSN
}
