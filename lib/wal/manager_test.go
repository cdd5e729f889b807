package wal

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.wal")
	m, err := NewManager(path)
	require.NoError(t, err)
	t.Cleanup(func() { m.ShutDown() })
	return m, path
}

func TestAppendLogRecordAssignsIncreasingLSNs(t *testing.T) {
	m, _ := newTestManager(t)

	var lsn int64
	for i := 0; i < 5000; i++ {
		var err error
		lsn, err = m.AppendLogRecord(RecordInsert, []byte(fmt.Sprintf("row-%d", i)))
		require.NoError(t, err)
		assert.EqualValues(t, i+1, lsn)
	}
}

func TestFlushIsNoOpBelowAlreadyFlushedLSN(t *testing.T) {
	m, _ := newTestManager(t)

	lsn, err := m.AppendLogRecord(RecordCommit, nil)
	require.NoError(t, err)
	require.NoError(t, m.Flush(lsn))
	assert.NoError(t, m.Flush(lsn))
	assert.NoError(t, m.Flush(lsn-1))
}

func TestIteratorReplaysRecordsNewestFirst(t *testing.T) {
	m, path := newTestManager(t)

	const n = 2000
	for i := 0; i < n; i++ {
		_, err := m.AppendLogRecord(RecordInsert, []byte(fmt.Sprintf("rec-%d", i)))
		require.NoError(t, err)
	}
	require.NoError(t, m.Flush(int64(n)))

	it, err := NewIterator(path)
	require.NoError(t, err)
	defer it.Close()

	expect := n - 1
	count := 0
	for rec := range it.Records() {
		require.Greater(t, len(rec), 0)
		require.Equal(t, RecordInsert, RecordKind(rec[0]))
		assert.Equal(t, fmt.Sprintf("rec-%d", expect), string(rec[1:]))
		expect--
		count++
	}
	require.NoError(t, it.Err())
	assert.Equal(t, n, count)
}
