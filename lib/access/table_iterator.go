// Package access is the thin locking-contract layer a sequential scan and
// row mutations must follow when they consume the lock manager. It does
// not implement heap-page tuple storage — the tuple/row format and the
// query executor tree that walks it are external collaborators — it only
// encodes the acquire/release discipline correct isolation depends on.
package access

import "github.com/lintang-b-s/storagecore/lib/concurrency"

// RIDIterator is the minimal contract a heap scan implements: yield the
// next row identifier, or report exhaustion. A real executor's
// sequential-scan operator implements this over its own heap file.
type RIDIterator interface {
	Next() (concurrency.RID, bool)
}

// LockManager is the subset of concurrency.LockManager this package
// drives.
type LockManager interface {
	LockShared(txn *concurrency.Transaction, rid concurrency.RID) bool
	LockExclusive(txn *concurrency.Transaction, rid concurrency.RID) bool
	LockUpgrade(txn *concurrency.Transaction, rid concurrency.RID) bool
	Unlock(txn *concurrency.Transaction, rid concurrency.RID) bool
}

// ScanRIDs walks it, acquiring a shared lock on each RID according to
// txn's isolation level before calling visit, and releases it immediately
// afterward under READ_COMMITTED unless txn also holds an exclusive lock
// on the same row. READ_UNCOMMITTED acquires no locks at all. Stops early
// and returns false if a lock cannot be granted (the transaction has been
// wounded).
func ScanRIDs(txn *concurrency.Transaction, lm LockManager, it RIDIterator, visit func(concurrency.RID)) bool {
	level := txn.IsolationLevel()

	for {
		rid, ok := it.Next()
		if !ok {
			return true
		}

		if level == concurrency.ReadUncommitted {
			visit(rid)
			continue
		}

		if !lm.LockShared(txn, rid) {
			return false
		}
		visit(rid)

		if level == concurrency.ReadCommitted && !txn.HasXLock(rid) {
			lm.Unlock(txn, rid)
		}
	}
}

// acquireExclusive takes X on rid for a mutation, upgrading from S to X
// under REPEATABLE_READ if txn already holds S (as it would for a row it
// scanned before deciding to update it), or taking X directly otherwise.
func acquireExclusive(txn *concurrency.Transaction, lm LockManager, rid concurrency.RID) bool {
	if txn.IsolationLevel() == concurrency.RepeatableRead && txn.HasSLock(rid) {
		return lm.LockUpgrade(txn, rid)
	}
	return lm.LockExclusive(txn, rid)
}

// InsertRID acquires X on rid and records the insert in txn's write set.
func InsertRID(txn *concurrency.Transaction, lm LockManager, rid concurrency.RID) bool {
	if !acquireExclusive(txn, lm, rid) {
		return false
	}
	txn.AppendIndexWrite(concurrency.IndexWriteRecord{RID: rid, Delete: false})
	return true
}

// UpdateRID acquires X on rid and records the write in txn's write set.
func UpdateRID(txn *concurrency.Transaction, lm LockManager, rid concurrency.RID) bool {
	if !acquireExclusive(txn, lm, rid) {
		return false
	}
	txn.AppendIndexWrite(concurrency.IndexWriteRecord{RID: rid, Delete: false})
	return true
}

// DeleteRID acquires X on rid and records the delete in txn's write set so
// abort can reinsert the index entry.
func DeleteRID(txn *concurrency.Transaction, lm LockManager, rid concurrency.RID) bool {
	if !acquireExclusive(txn, lm, rid) {
		return false
	}
	txn.AppendIndexWrite(concurrency.IndexWriteRecord{RID: rid, Delete: true})
	return true
}
