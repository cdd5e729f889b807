package hash

// DirectoryPage holds the global depth and, per directory slot, a local
// depth and the id of the bucket that slot points at. Slots sharing a
// bucket agree on their low local-depth bits — the directory invariant
// that split and merge maintain.
type DirectoryPage struct {
	maxDepth     int
	globalDepth  uint32
	localDepths  []uint8
	bucketPageID []int64
}

// NewDirectoryPage builds a directory with global depth 0 and a single
// slot pointing at nothing (bucket id -1), sized to hold up to 2^maxDepth
// slots once fully grown.
func NewDirectoryPage(maxDepth int) *DirectoryPage {
	d := &DirectoryPage{
		maxDepth:     maxDepth,
		localDepths:  make([]uint8, 1<<uint(maxDepth)),
		bucketPageID: make([]int64, 1<<uint(maxDepth)),
	}
	d.bucketPageID[0] = -1
	return d
}

// Size returns the number of live slots, 2^globalDepth.
func (d *DirectoryPage) Size() int {
	return 1 << d.globalDepth
}

func (d *DirectoryPage) GlobalDepth() uint32 {
	return d.globalDepth
}

func (d *DirectoryPage) MaxDepth() int {
	return d.maxDepth
}

// GetGlobalDepthMask returns the low globalDepth bits of a hash, the index
// into the directory before any local-depth narrowing.
func (d *DirectoryPage) GetGlobalDepthMask() uint32 {
	return (uint32(1) << d.globalDepth) - 1
}

func (d *DirectoryPage) LocalDepth(i int) uint8 {
	return d.localDepths[i]
}

func (d *DirectoryPage) SetLocalDepth(i int, depth uint8) {
	d.localDepths[i] = depth
}

func (d *DirectoryPage) IncrLocalDepth(i int) {
	d.localDepths[i]++
}

func (d *DirectoryPage) DecrLocalDepth(i int) {
	d.localDepths[i]--
}

// GetLocalDepthMask returns the low local-depth bits of slot i's index.
func (d *DirectoryPage) GetLocalDepthMask(i int) uint32 {
	return (uint32(1) << d.localDepths[i]) - 1
}

// GetLocalHighBit returns the bit that distinguishes slot i from its
// sibling once its local depth increases by one: bit (localDepth-1) of i.
func (d *DirectoryPage) GetLocalHighBit(i int) uint32 {
	l := d.localDepths[i]
	if l == 0 {
		return 0
	}
	return (uint32(i) >> (l - 1)) & 1
}

func (d *DirectoryPage) BucketPageID(i int) int64 {
	return d.bucketPageID[i]
}

func (d *DirectoryPage) SetBucketPageID(i int, id int64) {
	d.bucketPageID[i] = id
}

// Grow doubles the directory: global depth increases by one and every slot
// i in the old range is copied to i + old_size, both entries still
// pointing at the same bucket with the same local depth.
func (d *DirectoryPage) Grow() {
	oldSize := d.Size()
	d.globalDepth++
	for i := 0; i < oldSize; i++ {
		d.localDepths[i+oldSize] = d.localDepths[i]
		d.bucketPageID[i+oldSize] = d.bucketPageID[i]
	}
}

// CanShrink reports whether every live slot's local depth is strictly
// below the global depth, meaning the directory can be halved without
// losing any distinction between slots.
func (d *DirectoryPage) CanShrink() bool {
	for i := 0; i < d.Size(); i++ {
		if d.localDepths[i] >= uint8(d.globalDepth) {
			return false
		}
	}
	return true
}

// Shrink halves the directory by decrementing the global depth. Callers
// must check CanShrink first.
func (d *DirectoryPage) Shrink() {
	d.globalDepth--
}

// VerifyIntegrity checks the directory invariant: any two slots that share
// a bucket page id agree on their low local-depth bits, and no local depth
// exceeds the global depth.
func (d *DirectoryPage) VerifyIntegrity() bool {
	size := d.Size()
	for i := 0; i < size; i++ {
		if uint32(d.localDepths[i]) > d.globalDepth {
			return false
		}
	}
	for i := 0; i < size; i++ {
		for j := i + 1; j < size; j++ {
			if d.bucketPageID[i] != d.bucketPageID[j] {
				continue
			}
			if d.localDepths[i] != d.localDepths[j] {
				return false
			}
			maskI := d.GetLocalDepthMask(i)
			if uint32(i)&maskI != uint32(j)&maskI {
				return false
			}
		}
	}
	return true
}
