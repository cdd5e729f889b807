package hash

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertThenGetValueRoundTrips(t *testing.T) {
	e := NewExtendibleHashTable[int, string](4, 9)

	require.True(t, e.Insert(1, "one"))
	values, ok := e.GetValue(1)
	require.True(t, ok)
	assert.Equal(t, []string{"one"}, values)
}

func TestInsertDuplicateReturnsFalse(t *testing.T) {
	e := NewExtendibleHashTable[int, string](4, 9)

	require.True(t, e.Insert(1, "one"))
	assert.False(t, e.Insert(1, "one"))
}

func TestRemoveThenGetValueIsEmpty(t *testing.T) {
	e := NewExtendibleHashTable[int, string](4, 9)

	require.True(t, e.Insert(1, "one"))
	assert.True(t, e.Remove(1, "one"))

	_, ok := e.GetValue(1)
	assert.False(t, ok)
}

func TestRemoveNonexistentReturnsFalse(t *testing.T) {
	e := NewExtendibleHashTable[int, string](4, 9)
	assert.False(t, e.Remove(1, "one"))
}

// TestManyInsertsTriggerSplitAndPreserveAllValues exercises S3: enough
// keys to overflow the initial bucket must trigger a split, grow the
// global depth, and every key must remain retrievable afterward.
func TestManyInsertsTriggerSplitAndPreserveAllValues(t *testing.T) {
	const bucketCapacity = 4
	e := NewExtendibleHashTable[int, int](bucketCapacity, 9)

	const n = bucketCapacity*8 + 1
	for i := 0; i < n; i++ {
		require.True(t, e.Insert(i, i*10))
	}

	assert.True(t, e.GetGlobalDepth() >= 1)
	assert.True(t, e.VerifyIntegrity())

	for i := 0; i < n; i++ {
		values, ok := e.GetValue(i)
		require.True(t, ok, "key %d missing after splits", i)
		assert.Contains(t, values, i*10)
	}
}

// TestRemoveAllThenReinsertKeepsIndexConsistent exercises S4-style
// behavior: draining every key back out (which drives buckets empty and
// triggers merges) must still leave the index usable and internally
// consistent, and the global depth must be able to shrink back down.
func TestRemoveAllThenReinsertKeepsIndexConsistent(t *testing.T) {
	const bucketCapacity = 4
	e := NewExtendibleHashTable[int, int](bucketCapacity, 9)

	const n = bucketCapacity * 8
	for i := 0; i < n; i++ {
		require.True(t, e.Insert(i, i))
	}
	require.True(t, e.GetGlobalDepth() >= 1)

	for i := 0; i < n; i++ {
		require.True(t, e.Remove(i, i))
	}
	assert.Equal(t, uint32(0), e.GetGlobalDepth())
	assert.True(t, e.VerifyIntegrity())

	require.True(t, e.Insert(42, 42))
	values, ok := e.GetValue(42)
	require.True(t, ok)
	assert.Equal(t, []int{42}, values)
}

func TestInsertFailsAtMaxDepthCapacity(t *testing.T) {
	e := NewExtendibleHashTable[int, int](1, 0)

	require.True(t, e.Insert(1, 1))
	// bucket capacity 1, max depth 0: the bucket can never split, so a
	// second distinct key that lands in the same (only) bucket must fail.
	assert.False(t, e.Insert(2, 2))
}

// TestRandomKeySetInsertRemoveRoundTrip drives a random key set through
// enough inserts to force repeated splits and enough removes to force
// repeated merges, checking after each phase that the index stays
// internally consistent and every live key is still retrievable.
func TestRandomKeySetInsertRemoveRoundTrip(t *testing.T) {
	faker := gofakeit.New(0)
	e := NewExtendibleHashTable[int, int](16, 8)

	values := make(map[int]int)
	for len(values) < 600 {
		key := faker.IntRange(0, 10_000_000)
		if _, dup := values[key]; dup {
			continue
		}
		value := faker.IntRange(0, 10_000_000)
		values[key] = value
		require.True(t, e.Insert(key, value), "insert of key %d should succeed", key)
	}

	require.True(t, e.VerifyIntegrity())
	assert.True(t, e.GetGlobalDepth() >= 1)

	for key, value := range values {
		got, ok := e.GetValue(key)
		require.True(t, ok, "key %d missing after random inserts", key)
		assert.Contains(t, got, value)
	}

	for key, value := range values {
		require.True(t, e.Remove(key, value), "remove of key %d should succeed", key)
	}

	require.True(t, e.VerifyIntegrity())
	assert.Equal(t, uint32(0), e.GetGlobalDepth())
	for key := range values {
		_, ok := e.GetValue(key)
		assert.False(t, ok, "key %d should be gone after removing every key", key)
	}
}
