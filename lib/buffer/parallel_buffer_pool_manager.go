package buffer

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/lintang-b-s/storagecore/lib/disk"
)

// ParallelBufferPoolManager fans a workload out across numInstances
// independent BufferPoolManagerInstance shards, each guarded by its own
// latch, so unrelated pages never contend on the same mutex. Routing for
// every operation but NewPage is page_id mod numInstances; NewPage sweeps
// the shards round robin so allocation load spreads evenly even when one
// shard's disjoint id range would otherwise let it fill up alone. Grounded
// in the original source's ParallelBufferPoolManager.
type ParallelBufferPoolManager struct {
	instances []*BufferPoolManagerInstance

	mu         sync.Mutex
	startIndex int
}

// NewParallelBufferPoolManager builds numInstances shards of poolSizePerInstance
// frames each, sharing the same disk and log managers.
func NewParallelBufferPoolManager(numInstances, poolSizePerInstance int, dm DiskManager, lm LogManager) *ParallelBufferPoolManager {
	instances := make([]*BufferPoolManagerInstance, numInstances)
	for i := range instances {
		instances[i] = NewBufferPoolManagerInstance(poolSizePerInstance, i, numInstances, dm, lm)
	}
	return &ParallelBufferPoolManager{instances: instances}
}

func (p *ParallelBufferPoolManager) route(id disk.PageID) *BufferPoolManagerInstance {
	idx := int(id) % len(p.instances)
	if idx < 0 {
		idx += len(p.instances)
	}
	return p.instances[idx]
}

// PoolSize returns the total number of frames across every shard.
func (p *ParallelBufferPoolManager) PoolSize() int {
	total := 0
	for _, inst := range p.instances {
		total += inst.PoolSize()
	}
	return total
}

// NewPage tries each shard starting from a rotating index, so repeated
// calls sweep every shard exactly once before any shard is asked twice.
// This is the one operation that does not route by page id, since the page
// id doesn't exist yet.
func (p *ParallelBufferPoolManager) NewPage() (*disk.Page, disk.PageID, error) {
	p.mu.Lock()
	start := p.startIndex
	p.startIndex = (p.startIndex + 1) % len(p.instances)
	p.mu.Unlock()

	for i := 0; i < len(p.instances); i++ {
		idx := (start + i) % len(p.instances)
		page, id, err := p.instances[idx].NewPage()
		if err == nil {
			return page, id, nil
		}
	}
	return nil, disk.InvalidPageID, errors.New("buffer: all shards are full")
}

func (p *ParallelBufferPoolManager) FetchPage(id disk.PageID) (*disk.Page, error) {
	return p.route(id).FetchPage(id)
}

func (p *ParallelBufferPoolManager) UnpinPage(id disk.PageID, isDirty bool) bool {
	return p.route(id).UnpinPage(id, isDirty)
}

func (p *ParallelBufferPoolManager) FlushPage(id disk.PageID) bool {
	return p.route(id).FlushPage(id)
}

func (p *ParallelBufferPoolManager) DeletePage(id disk.PageID) bool {
	return p.route(id).DeletePage(id)
}

// FlushAllPages flushes every shard, each shard holding its own latch for
// the duration of its own scan.
func (p *ParallelBufferPoolManager) FlushAllPages() error {
	for _, inst := range p.instances {
		if err := inst.FlushAllPages(); err != nil {
			return err
		}
	}
	return nil
}
