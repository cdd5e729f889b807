// Package concurrency implements row-granularity two-phase locking with a
// wound-wait deadlock prevention protocol.
package concurrency

import "github.com/lintang-b-s/storagecore/lib/disk"

// RID identifies a row by the page it lives on and its slot within that
// page. It is the granularity the lock manager and the hash index's
// canonical (key, RID) configuration both operate on.
type RID struct {
	PageID  disk.PageID
	SlotNum uint32
}
