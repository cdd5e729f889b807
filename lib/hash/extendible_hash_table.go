// Package hash implements an extendible hash index: a directory of
// hash-prefix-addressed buckets that grows by directory doubling and bucket
// splitting, and shrinks by bucket merging. The directory and buckets are
// held in memory; they are not stored in buffer-pool pages or on disk.
package hash

import (
	"sync"
)

// ExtendibleHashTable maps keys to values via a directory of buckets,
// each holding the keys whose hash agrees on a prefix of bits. Concurrent
// access follows latch crabbing: a table latch orders structural changes
// against readers, and each bucket carries its own latch for the actual
// key/value mutation.
//
// The directory does not store bucket page ids directly; it stores a
// fingerprint that refToPage resolves to the actual bucket. This mirrors
// the source's indirection table, which exists so a bucket can be
// relocated by updating one refToPage entry instead of rewriting every
// directory slot that names it.
type ExtendibleHashTable[K, V comparable] struct {
	tableLatch sync.RWMutex

	directory *DirectoryPage
	buckets   map[int64]*BucketPage[K, V]
	latches   map[int64]*sync.RWMutex
	refToPage map[int64]int64

	bucketCapacity int
	nextBucketID   int64
}

// NewExtendibleHashTable builds an empty index with one bucket, directory
// global depth 0, bucket capacity slots per bucket, and a hard cap of
// maxDepth on any bucket's local depth (and hence the directory's global
// depth).
func NewExtendibleHashTable[K, V comparable](bucketCapacity, maxDepth int) *ExtendibleHashTable[K, V] {
	e := &ExtendibleHashTable[K, V]{
		directory:      NewDirectoryPage(maxDepth),
		buckets:        make(map[int64]*BucketPage[K, V]),
		latches:        make(map[int64]*sync.RWMutex),
		refToPage:      make(map[int64]int64),
		bucketCapacity: bucketCapacity,
	}
	rootID := e.newBucketID()
	e.buckets[rootID] = NewBucketPage[K, V](bucketCapacity)
	e.latches[rootID] = &sync.RWMutex{}
	e.refToPage[rootID] = rootID
	e.directory.SetBucketPageID(0, rootID)
	return e
}

func (e *ExtendibleHashTable[K, V]) newBucketID() int64 {
	id := e.nextBucketID
	e.nextBucketID++
	return id
}

func (e *ExtendibleHashTable[K, V]) keyToDirectoryIndex(key K) int {
	return int(keyHash(key)) & int(e.directory.GetGlobalDepthMask())
}

// keyToPageID resolves a directory index to its bucket's real id through
// the indirection table. Must be called with tableLatch held.
func (e *ExtendibleHashTable[K, V]) keyToPageID(idx int) int64 {
	return e.refToPage[e.directory.BucketPageID(idx)]
}

func (e *ExtendibleHashTable[K, V]) bucketLatch(id int64) *sync.RWMutex {
	return e.latches[id]
}

// GetGlobalDepth returns the directory's current global depth.
func (e *ExtendibleHashTable[K, V]) GetGlobalDepth() uint32 {
	e.tableLatch.RLock()
	defer e.tableLatch.RUnlock()
	return e.directory.GlobalDepth()
}

// GetValue returns every value stored under key.
func (e *ExtendibleHashTable[K, V]) GetValue(key K) ([]V, bool) {
	e.tableLatch.RLock()
	defer e.tableLatch.RUnlock()

	idx := e.keyToDirectoryIndex(key)
	pageID := e.keyToPageID(idx)
	bl := e.bucketLatch(pageID)
	bl.RLock()
	defer bl.RUnlock()

	var out []V
	found := e.buckets[pageID].GetValue(key, &out)
	return out, found
}

// Insert adds (key, value). Returns false if the pair is already present
// or the index has hit MAX_DEPTH and cannot split further.
func (e *ExtendibleHashTable[K, V]) Insert(key K, value V) bool {
	for {
		e.tableLatch.RLock()
		idx := e.keyToDirectoryIndex(key)
		pageID := e.keyToPageID(idx)
		bl := e.bucketLatch(pageID)
		bl.Lock()
		result := e.buckets[pageID].Insert(key, value)
		localDepth := e.directory.LocalDepth(idx)
		bl.Unlock()
		e.tableLatch.RUnlock()

		switch result {
		case OK:
			return true
		case Duplicate:
			return false
		case Full:
			if int(localDepth) >= e.directory.MaxDepth() {
				return false
			}
			e.splitInsert(key)
			// retry: bounded by MAX_DEPTH splits before either the key
			// fits or the index reports it is at capacity.
		}
	}
}

// splitInsert allocates an image bucket for the bucket currently owning
// key, doubling the directory first if the bucket's local depth has
// caught up to the global depth, then redistributes the original bucket's
// entries between the two. Runs under the write table latch.
func (e *ExtendibleHashTable[K, V]) splitInsert(key K) {
	e.tableLatch.Lock()
	defer e.tableLatch.Unlock()

	idx := e.keyToDirectoryIndex(key)
	bucketID := e.keyToPageID(idx)
	bucket := e.buckets[bucketID]
	L := e.directory.LocalDepth(idx)

	if int(L) >= e.directory.MaxDepth() {
		return
	}
	if !bucket.IsFull() {
		// a concurrent split already made room; nothing to do.
		return
	}

	if int(L) >= int(e.directory.GlobalDepth()) {
		e.directory.Grow()
	}

	imageIndex := idx ^ (1 << L)
	imageBucketID := e.newBucketID()
	imageBucket := NewBucketPage[K, V](e.bucketCapacity)
	e.buckets[imageBucketID] = imageBucket
	e.latches[imageBucketID] = &sync.RWMutex{}
	e.refToPage[imageBucketID] = imageBucketID

	newLocalDepth := L + 1
	newMask := (uint32(1) << newLocalDepth) - 1
	imageLowBits := uint32(imageIndex) & newMask
	oldFingerprint := e.directory.BucketPageID(idx)

	size := e.directory.Size()
	for i := 0; i < size; i++ {
		if e.directory.BucketPageID(i) != oldFingerprint {
			continue
		}
		e.directory.SetLocalDepth(i, newLocalDepth)
		if uint32(i)&newMask == imageLowBits {
			e.directory.SetBucketPageID(i, imageBucketID)
		}
	}

	for _, kv := range bucket.entries() {
		h := keyHash(kv.Key)
		if h&newMask == imageLowBits {
			imageBucket.Insert(kv.Key, kv.Value)
		}
	}
	rebuilt := NewBucketPage[K, V](e.bucketCapacity)
	for _, kv := range bucket.entries() {
		h := keyHash(kv.Key)
		if h&newMask != imageLowBits {
			rebuilt.Insert(kv.Key, kv.Value)
		}
	}
	e.buckets[bucketID] = rebuilt
}

// Remove deletes (key, value) if present. If the owning bucket becomes
// empty as a result, it is merged with its image (subject to the merge
// rule), and merging repeats while the surviving bucket is itself empty.
func (e *ExtendibleHashTable[K, V]) Remove(key K, value V) bool {
	e.tableLatch.RLock()
	idx := e.keyToDirectoryIndex(key)
	pageID := e.keyToPageID(idx)
	bl := e.bucketLatch(pageID)
	bl.Lock()
	ok := e.buckets[pageID].Remove(key, value)
	empty := ok && e.buckets[pageID].IsEmpty()
	bl.Unlock()
	e.tableLatch.RUnlock()

	if empty {
		for e.merge(idx) {
		}
	}
	return ok
}

// merge coalesces the bucket at idx with its image if the merge rule
// holds: local depth > 0, the bucket is empty, and its image has the same
// local depth. Runs under the write table latch, and re-validates its
// preconditions after acquiring it since another writer may have changed
// the bucket in between. Returns true if a merge happened and the
// surviving bucket is empty, so the caller can try again from idx.
func (e *ExtendibleHashTable[K, V]) merge(idx int) bool {
	e.tableLatch.Lock()
	defer e.tableLatch.Unlock()

	idx &= int(e.directory.GetGlobalDepthMask())
	fingerprint := e.directory.BucketPageID(idx)
	pageID := e.refToPage[fingerprint]
	bucket, ok := e.buckets[pageID]
	if !ok || !bucket.IsEmpty() {
		return false
	}
	L := e.directory.LocalDepth(idx)
	if L == 0 {
		return false
	}

	imageIndex := idx ^ (1 << (L - 1))
	if imageIndex >= e.directory.Size() {
		return false
	}
	if e.directory.LocalDepth(imageIndex) != L {
		return false
	}
	imageFingerprint := e.directory.BucketPageID(imageIndex)
	if imageFingerprint == fingerprint {
		return false
	}
	if _, ok := e.buckets[e.refToPage[imageFingerprint]]; !ok {
		return false
	}

	newLocalDepth := L - 1
	size := e.directory.Size()
	for i := 0; i < size; i++ {
		bp := e.directory.BucketPageID(i)
		if bp == fingerprint || bp == imageFingerprint {
			e.directory.SetBucketPageID(i, imageFingerprint)
			e.directory.SetLocalDepth(i, newLocalDepth)
		}
	}

	delete(e.buckets, pageID)
	delete(e.latches, pageID)
	delete(e.refToPage, fingerprint)

	for e.directory.GlobalDepth() > 0 && e.directory.CanShrink() {
		e.directory.Shrink()
	}
	return e.buckets[e.refToPage[imageFingerprint]].IsEmpty()
}

// VerifyIntegrity checks the directory's structural invariants.
func (e *ExtendibleHashTable[K, V]) VerifyIntegrity() bool {
	e.tableLatch.RLock()
	defer e.tableLatch.RUnlock()
	return e.directory.VerifyIntegrity()
}
