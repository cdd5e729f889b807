package buffer

// https://15445.courses.cs.cmu.edu/spring2023/slides/06-bufferpool.pdf

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/lintang-b-s/storagecore/lib/disk"
)

// DiskManager is the page-addressed persistence layer a buffer pool
// instance reads misses from and writes evictions to.
type DiskManager interface {
	ReadPage(id disk.PageID, page *disk.Page) error
	WritePage(id disk.PageID, page *disk.Page) error
	AllocatePage() disk.PageID
	DeallocatePage(id disk.PageID)
}

// LogManager is the write-ahead-log hook a buffer pool instance forces
// before writing a dirty page back, honoring WAL-before-data ordering.
type LogManager interface {
	Flush(lsn int64) error
	CurrentLSN() int64
}

// frame is one slot of buffer-pool memory: the page bytes it currently
// holds plus the bookkeeping the manager needs to decide when it may be
// reused. The frame/page split keeps page identity ("what data") separate
// from frame identity ("which slot"), mirroring the classic buffer pool
// design this package implements.
type frame struct {
	page     *disk.Page
	pageID   disk.PageID
	pinCount int
	isDirty  bool
}

// BufferPoolManagerInstance is one shard of buffer pool memory: a fixed
// number of frames, a page table mapping resident page ids to frames, a
// free list of frames that hold no page, and an LRU replacer for resident
// frames that are unpinned. Grounded in the teacher's BufferPoolManager, adapted
// from block-id addressing to page-id addressing and from a single pool to
// one shard of a sharded pool (§4.C).
type BufferPoolManagerInstance struct {
	mu sync.Mutex

	frames    []*frame
	pageTable map[disk.PageID]int
	freeList  []int
	replacer  *LRUReplacer

	diskManager DiskManager
	logManager  LogManager

	instanceIndex int
	numInstances  int
	nextPageID    int32
}

// NewBufferPoolManagerInstance builds a shard with poolSize frames.
// instanceIndex and numInstances partition the page id space: this
// instance allocates page ids congruent to instanceIndex mod numInstances,
// so two shards never hand out the same id. Pass numInstances=1 for a
// standalone (non-sharded) buffer pool.
func NewBufferPoolManagerInstance(poolSize int, instanceIndex, numInstances int, dm DiskManager, lm LogManager) *BufferPoolManagerInstance {
	frames := make([]*frame, poolSize)
	freeList := make([]int, poolSize)
	for i := range frames {
		frames[i] = &frame{page: disk.NewPage(), pageID: disk.InvalidPageID}
		freeList[i] = i
	}

	return &BufferPoolManagerInstance{
		frames:        frames,
		pageTable:     make(map[disk.PageID]int),
		freeList:      freeList,
		replacer:      NewLRUReplacer(poolSize),
		diskManager:   dm,
		logManager:    lm,
		instanceIndex: instanceIndex,
		numInstances:  numInstances,
		nextPageID:    int32(instanceIndex),
	}
}

// PoolSize returns the number of frames this shard manages.
func (bpm *BufferPoolManagerInstance) PoolSize() int {
	return len(bpm.frames)
}

func (bpm *BufferPoolManagerInstance) allocatePageID() disk.PageID {
	id := atomic.AddInt32(&bpm.nextPageID, int32(bpm.numInstances)) - int32(bpm.numInstances)
	return disk.PageID(id)
}

// pickVictimFrame returns a frame to reuse, preferring the free list over
// evicting a resident page (§5: free list is checked before the replacer).
func (bpm *BufferPoolManagerInstance) pickVictimFrame() (int, bool) {
	if len(bpm.freeList) > 0 {
		frameID := bpm.freeList[0]
		bpm.freeList = bpm.freeList[1:]
		return frameID, true
	}
	var frameID int
	if !bpm.replacer.Victim(&frameID) {
		return 0, false
	}
	return frameID, true
}

// evictFrame flushes frameID's current resident page if dirty and removes
// it from the page table, leaving the frame ready to take on a new
// identity. Called with mu held. On failure the page has not been
// evicted — its old identity and dirty data are left exactly as they
// were, and the frame is handed back to the replacer as an unpinned
// resident page rather than left unreachable by both the free list and
// the replacer.
func (bpm *BufferPoolManagerInstance) evictFrame(frameID int) error {
	f := bpm.frames[frameID]
	if f.pageID == disk.InvalidPageID {
		return nil
	}
	if f.isDirty {
		if bpm.logManager != nil {
			if err := bpm.logManager.Flush(bpm.logManager.CurrentLSN()); err != nil {
				bpm.replacer.Unpin(frameID)
				return errors.Wrap(err, "buffer: flush wal before evicting dirty page")
			}
		}
		if err := bpm.diskManager.WritePage(f.pageID, f.page); err != nil {
			bpm.replacer.Unpin(frameID)
			return errors.Wrap(err, "buffer: write evicted page")
		}
	}
	delete(bpm.pageTable, f.pageID)
	f.pageID = disk.InvalidPageID
	f.isDirty = false
	f.page.Reset()
	return nil
}

// NewPage allocates a fresh page id, backs it with a frame pinned once,
// and returns its (initially zero-filled) contents.
func (bpm *BufferPoolManagerInstance) NewPage() (*disk.Page, disk.PageID, error) {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	frameID, ok := bpm.pickVictimFrame()
	if !ok {
		return nil, disk.InvalidPageID, errors.New("buffer: no available frame")
	}
	if err := bpm.evictFrame(frameID); err != nil {
		return nil, disk.InvalidPageID, err
	}

	id := bpm.allocatePageID()
	f := bpm.frames[frameID]
	f.pageID = id
	f.pinCount = 1
	f.isDirty = false

	bpm.pageTable[id] = frameID
	bpm.replacer.Pin(frameID)

	return f.page, id, nil
}

// FetchPage returns the contents of id, pinning it in memory. If id is not
// resident it is read from disk into a frame taken from the free list or,
// failing that, evicted from the replacer.
func (bpm *BufferPoolManagerInstance) FetchPage(id disk.PageID) (*disk.Page, error) {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	if frameID, ok := bpm.pageTable[id]; ok {
		f := bpm.frames[frameID]
		f.pinCount++
		bpm.replacer.Pin(frameID)
		return f.page, nil
	}

	frameID, ok := bpm.pickVictimFrame()
	if !ok {
		return nil, errors.New("buffer: no available frame")
	}
	if err := bpm.evictFrame(frameID); err != nil {
		return nil, err
	}

	f := bpm.frames[frameID]
	if err := bpm.diskManager.ReadPage(id, f.page); err != nil {
		bpm.freeList = append(bpm.freeList, frameID)
		return nil, errors.Wrap(err, "buffer: read page from disk")
	}
	f.pageID = id
	f.pinCount = 1
	f.isDirty = false

	bpm.pageTable[id] = frameID
	bpm.replacer.Pin(frameID)

	return f.page, nil
}

// UnpinPage decrements id's pin count, marking it dirty if isDirty is true.
// Once the pin count reaches zero the frame becomes an eviction candidate.
// Returns false if id is not resident or is already unpinned.
func (bpm *BufferPoolManagerInstance) UnpinPage(id disk.PageID, isDirty bool) bool {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	frameID, ok := bpm.pageTable[id]
	if !ok {
		return false
	}
	f := bpm.frames[frameID]
	if f.pinCount <= 0 {
		return false
	}
	if isDirty {
		f.isDirty = true
	}
	f.pinCount--
	if f.pinCount == 0 {
		bpm.replacer.Unpin(frameID)
	}
	return true
}

// FlushPage writes id's current contents to disk regardless of its dirty
// bit, clearing the dirty bit on success. Returns false if id is not
// resident.
func (bpm *BufferPoolManagerInstance) FlushPage(id disk.PageID) bool {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	frameID, ok := bpm.pageTable[id]
	if !ok {
		return false
	}
	f := bpm.frames[frameID]
	if err := bpm.diskManager.WritePage(id, f.page); err != nil {
		return false
	}
	f.isDirty = false
	return true
}

// FlushAllPages writes every resident dirty page to disk. It holds the
// instance latch for the entire scan rather than dropping and reacquiring
// it per page, so a concurrent Fetch/Unpin cannot observe a partially
// flushed pool or race with an eviction picking one of the pages this
// call is in the middle of writing.
func (bpm *BufferPoolManagerInstance) FlushAllPages() error {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	for _, f := range bpm.frames {
		if f.pageID == disk.InvalidPageID || !f.isDirty {
			continue
		}
		if err := bpm.diskManager.WritePage(f.pageID, f.page); err != nil {
			return errors.Wrap(err, "buffer: flush all pages")
		}
		f.isDirty = false
	}
	return nil
}

// DeletePage removes id from the buffer pool and returns its frame to the
// free list. Returns false if id is still pinned. Deleting a page that is
// not resident is a no-op success.
func (bpm *BufferPoolManagerInstance) DeletePage(id disk.PageID) bool {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	frameID, ok := bpm.pageTable[id]
	if !ok {
		return true
	}
	f := bpm.frames[frameID]
	if f.pinCount > 0 {
		return false
	}

	delete(bpm.pageTable, id)
	bpm.replacer.Remove(frameID)
	f.page.Reset()
	f.pageID = disk.InvalidPageID
	f.isDirty = false
	bpm.freeList = append(bpm.freeList, frameID)

	bpm.diskManager.DeallocatePage(id)
	return true
}
