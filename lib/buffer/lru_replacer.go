// Package buffer implements the buffer pool: the LRU victim selector, the
// buffer pool instance, its sharded/parallel variant, and a background
// writer that proactively flushes dirty pages.
package buffer

import "sync"

type listNode struct {
	frameID  int
	next     *listNode
	prev     *listNode
}

type doublyLinkedList struct {
	head *listNode // sentinel, head.next is most recently used
	tail *listNode // sentinel, tail.prev is least recently used
}

func newDoublyLinkedList() *doublyLinkedList {
	head := &listNode{frameID: -1}
	tail := &listNode{frameID: -1}
	head.next = tail
	tail.prev = head
	return &doublyLinkedList{head: head, tail: tail}
}

func (d *doublyLinkedList) remove(n *listNode) {
	n.prev.next = n.next
	n.next.prev = n.prev
}

// pushFront inserts frameID right after the head sentinel, marking it most
// recently used.
func (d *doublyLinkedList) pushFront(frameID int) *listNode {
	n := &listNode{frameID: frameID}
	n.next = d.head.next
	n.prev = d.head
	d.head.next.prev = n
	d.head.next = n
	return n
}

// back returns the least recently used node, or nil if the list is empty.
func (d *doublyLinkedList) back() *listNode {
	if d.tail.prev == d.head {
		return nil
	}
	return d.tail.prev
}

// LRUReplacer tracks unpinned frames and selects the least recently used
// one for eviction. A frame becomes a victim candidate on Unpin and stops
// being one on Pin or Victim.
type LRUReplacer struct {
	mu       sync.Mutex
	capacity int
	list     *doublyLinkedList
	index    map[int]*listNode
}

// NewLRUReplacer builds a replacer that tracks at most capacity frames,
// one per frame in the buffer pool it backs.
func NewLRUReplacer(capacity int) *LRUReplacer {
	return &LRUReplacer{
		capacity: capacity,
		list:     newDoublyLinkedList(),
		index:    make(map[int]*listNode),
	}
}

// Unpin marks frameID as evictable. Unpinning a frame that is already
// tracked is a no-op — it must not move in the LRU order or be counted
// twice.
func (r *LRUReplacer) Unpin(frameID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[frameID]; ok {
		return
	}
	if len(r.index) >= r.capacity {
		return
	}
	r.index[frameID] = r.list.pushFront(frameID)
}

// Pin removes frameID from the victim pool, making it ineligible for
// eviction. A no-op if the frame is not currently tracked.
func (r *LRUReplacer) Pin(frameID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n, ok := r.index[frameID]; ok {
		r.list.remove(n)
		delete(r.index, frameID)
	}
}

// Victim evicts and returns the least recently used tracked frame. Returns
// false if no frame is currently evictable.
func (r *LRUReplacer) Victim(frameID *int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.list.back()
	if n == nil {
		return false
	}
	r.list.remove(n)
	delete(r.index, n.frameID)
	*frameID = n.frameID
	return true
}

// Remove drops frameID from tracking without treating it as a victim, used
// when a page owning the frame is deleted outright.
func (r *LRUReplacer) Remove(frameID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n, ok := r.index[frameID]; ok {
		r.list.remove(n)
		delete(r.index, frameID)
	}
}

// Size returns the number of frames currently eligible for eviction.
func (r *LRUReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.index)
}
