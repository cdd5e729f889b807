package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lintang-b-s/storagecore/lib/concurrency"
	"github.com/lintang-b-s/storagecore/lib/disk"
)

type sliceIterator struct {
	rids []concurrency.RID
	pos  int
}

func (s *sliceIterator) Next() (concurrency.RID, bool) {
	if s.pos >= len(s.rids) {
		return concurrency.RID{}, false
	}
	rid := s.rids[s.pos]
	s.pos++
	return rid, true
}

func newRIDs(n int) []concurrency.RID {
	rids := make([]concurrency.RID, n)
	for i := range rids {
		rids[i] = concurrency.RID{PageID: disk.PageID(i), SlotNum: 0}
	}
	return rids
}

func TestScanRIDsReleasesLocksUnderReadCommitted(t *testing.T) {
	tm := concurrency.NewTransactionManager()
	lm := concurrency.NewLockManager(tm)
	txn := concurrency.NewTransaction(1, concurrency.ReadCommitted)

	it := &sliceIterator{rids: newRIDs(3)}
	var visited []concurrency.RID
	ok := ScanRIDs(txn, lm, it, func(rid concurrency.RID) {
		visited = append(visited, rid)
		assert.True(t, txn.HasSLock(rid), "lock must be held while visit runs")
	})
	require.True(t, ok)
	assert.Len(t, visited, 3)

	for _, rid := range visited {
		assert.False(t, txn.HasSLock(rid), "read committed must release immediately after visiting")
	}
}

func TestScanRIDsKeepsLockWhenXAlreadyHeld(t *testing.T) {
	tm := concurrency.NewTransactionManager()
	lm := concurrency.NewLockManager(tm)
	txn := concurrency.NewTransaction(1, concurrency.ReadCommitted)

	rid := concurrency.RID{PageID: 1, SlotNum: 0}
	require.True(t, lm.LockExclusive(txn, rid))

	it := &sliceIterator{rids: []concurrency.RID{rid}}
	ok := ScanRIDs(txn, lm, it, func(concurrency.RID) {})
	require.True(t, ok)

	assert.True(t, txn.HasXLock(rid), "a scan must not drop a mutation's exclusive lock")
}

func TestScanRIDsAcquiresNoLocksUnderReadUncommitted(t *testing.T) {
	tm := concurrency.NewTransactionManager()
	lm := concurrency.NewLockManager(tm)
	txn := concurrency.NewTransaction(1, concurrency.ReadUncommitted)

	it := &sliceIterator{rids: newRIDs(2)}
	visitedCount := 0
	ok := ScanRIDs(txn, lm, it, func(rid concurrency.RID) {
		visitedCount++
		assert.False(t, txn.HasSLock(rid))
	})
	require.True(t, ok)
	assert.Equal(t, 2, visitedCount)
}

func TestInsertUpdateDeleteRecordWriteSet(t *testing.T) {
	tm := concurrency.NewTransactionManager()
	lm := concurrency.NewLockManager(tm)
	txn := concurrency.NewTransaction(1, concurrency.RepeatableRead)

	r1 := concurrency.RID{PageID: 1, SlotNum: 0}
	r2 := concurrency.RID{PageID: 1, SlotNum: 1}

	require.True(t, InsertRID(txn, lm, r1))
	require.True(t, DeleteRID(txn, lm, r2))

	writeSet := txn.WriteSet()
	require.Len(t, writeSet, 2)
	assert.Equal(t, r1, writeSet[0].RID)
	assert.False(t, writeSet[0].Delete)
	assert.Equal(t, r2, writeSet[1].RID)
	assert.True(t, writeSet[1].Delete)
}

func TestUpdateUpgradesExistingSharedLock(t *testing.T) {
	tm := concurrency.NewTransactionManager()
	lm := concurrency.NewLockManager(tm)
	txn := concurrency.NewTransaction(1, concurrency.RepeatableRead)

	rid := concurrency.RID{PageID: 1, SlotNum: 0}
	require.True(t, lm.LockShared(txn, rid))

	require.True(t, UpdateRID(txn, lm, rid))
	assert.True(t, txn.HasXLock(rid))
	assert.False(t, txn.HasSLock(rid))
}
