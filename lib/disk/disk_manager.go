package disk

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// Manager persists pages to a single data file, addressed by PageID at byte
// offset id*PageSize. It knows nothing about frames, pins or dirty bits —
// those belong to the buffer pool. Grounded in the teacher's DiskManager
// (open-file cache guarded by a mutex), collapsed here from
// filename+blockNum addressing to a single file addressed by page id.
type Manager struct {
	file       *os.File
	latch      sync.Mutex
	nextPageID int32
}

// NewManager opens (creating if needed) the data file at path and returns a
// Manager ready to serve ReadPage/WritePage. The next page id to hand out is
// derived from the current file length so that a reopened database resumes
// allocation where it left off.
func NewManager(path string) (*Manager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "disk: open data file")
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "disk: stat data file")
	}
	return &Manager{
		file:       f,
		nextPageID: int32(fi.Size() / PageSize),
	}, nil
}

// ReadPage fills page with the on-disk contents of id. Reading a page past
// the end of the file (never allocated, or allocated but never written) is
// not an error — page is returned zero-filled, matching a page that has
// never had anything flushed to it.
func (m *Manager) ReadPage(id PageID, page *Page) error {
	if id < 0 {
		return errors.Errorf("disk: invalid page id %d", id)
	}
	m.latch.Lock()
	defer m.latch.Unlock()

	page.Reset()
	n, err := m.file.ReadAt(page[:], int64(id)*PageSize)
	if err != nil && n == 0 {
		if errors.Is(err, os.ErrClosed) {
			return errors.Wrap(err, "disk: read page")
		}
		return nil
	}
	if err != nil && n < PageSize {
		return nil
	}
	return nil
}

// WritePage flushes page's contents to id's slot in the data file.
func (m *Manager) WritePage(id PageID, page *Page) error {
	if id < 0 {
		return errors.Errorf("disk: invalid page id %d", id)
	}
	m.latch.Lock()
	defer m.latch.Unlock()

	_, err := m.file.WriteAt(page[:], int64(id)*PageSize)
	if err != nil {
		return errors.Wrap(err, "disk: write page")
	}
	return nil
}

// AllocatePage hands out the next unused page id. Mirrors the reference
// implementation's allocator: a monotonic counter, no reuse of deallocated
// ids within a session.
func (m *Manager) AllocatePage() PageID {
	return PageID(atomic.AddInt32(&m.nextPageID, 1) - 1)
}

// DeallocatePage is a no-op, matching the reference disk manager it is
// grounded on: the id is not recorded as free, AllocatePage never hands it
// out again, and its space in the data file is not reclaimed.
func (m *Manager) DeallocatePage(id PageID) {
}

// ShutDown closes the underlying data file. Safe to call once.
func (m *Manager) ShutDown() error {
	m.latch.Lock()
	defer m.latch.Unlock()
	if err := m.file.Close(); err != nil {
		return errors.Wrap(err, "disk: close data file")
	}
	return nil
}
