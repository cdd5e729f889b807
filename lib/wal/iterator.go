package wal

import (
	"iter"
	"os"

	"github.com/pkg/errors"

	"github.com/lintang-b-s/storagecore/lib/disk"
)

// Iterator walks previously appended log records from the most recently
// written back to the oldest, mirroring the teacher's LogIterator: records
// are packed from the right edge of each block, so within a block the
// natural read order already runs newest-to-oldest, and blocks themselves
// are visited in descending order.
type Iterator struct {
	file    *os.File
	page    *disk.Page
	block   int64
	pos     int
	err     error
}

// NewIterator opens path read-only and positions the iterator at the last
// block written.
func NewIterator(path string) (*Iterator, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "wal: open log file for iteration")
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "wal: stat log file")
	}
	numBlocks := fi.Size() / blockSize
	if numBlocks == 0 {
		f.Close()
		return nil, errors.New("wal: empty log file")
	}

	it := &Iterator{
		file:  f,
		page:  disk.NewPage(),
		block: numBlocks - 1,
	}
	if err := it.loadBlock(it.block); err != nil {
		f.Close()
		return nil, err
	}
	return it, nil
}

func (it *Iterator) loadBlock(block int64) error {
	if _, err := it.file.ReadAt(it.page[:], block*blockSize); err != nil {
		return errors.Wrap(err, "wal: read block")
	}
	it.block = block
	it.pos = int(it.page.GetInt32(0))
	return nil
}

// Records yields each raw record (kind byte followed by payload), most
// recent first, until the beginning of the log is reached or an I/O error
// occurs. Check Err after the sequence is exhausted.
func (it *Iterator) Records() iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		for {
			if it.pos >= blockSize {
				if it.block == 0 {
					return
				}
				if err := it.loadBlock(it.block - 1); err != nil {
					it.err = err
					return
				}
			}
			record := it.page.GetBytes(it.pos)
			it.pos += 4 + len(record)
			if !yield(record) {
				return
			}
		}
	}
}

// Err returns the first error encountered while iterating, if any.
func (it *Iterator) Err() error {
	return it.err
}

// Close releases the underlying file handle.
func (it *Iterator) Close() error {
	return it.file.Close()
}
