package pq

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lintang-b-s/kwayrefine/pkg/datastructure"
)

func bothImplementations(maxRange int64) []Interface {
	return []Interface{NewMaxNodeHeap(), NewBucketPQ(maxRange)}
}

func TestPQInsertAndDeleteMaxOrdering(t *testing.T) {
	for _, q := range bothImplementations(10) {
		q.Insert(0, 3)
		q.Insert(1, 7)
		q.Insert(2, 1)

		v, key, ok := q.DeleteMax()
		require.True(t, ok)
		require.Equal(t, datastructure.Index(1), v)
		require.Equal(t, int64(7), key)

		v, key, ok = q.DeleteMax()
		require.True(t, ok)
		require.Equal(t, datastructure.Index(0), v)
		require.Equal(t, int64(3), key)

		v, key, ok = q.DeleteMax()
		require.True(t, ok)
		require.Equal(t, datastructure.Index(2), v)
		require.Equal(t, int64(1), key)

		require.True(t, q.Empty())
		_, _, ok = q.DeleteMax()
		require.False(t, ok)
	}
}

func TestPQChangeKeyReorders(t *testing.T) {
	for _, q := range bothImplementations(10) {
		q.Insert(0, 1)
		q.Insert(1, 2)
		q.ChangeKey(0, 5)

		v, _, ok := q.DeleteMax()
		require.True(t, ok)
		require.Equal(t, datastructure.Index(0), v)
	}
}

func TestPQDeleteNode(t *testing.T) {
	for _, q := range bothImplementations(10) {
		q.Insert(0, 1)
		q.Insert(1, 2)
		q.DeleteNode(1)
		require.False(t, q.Contains(1))
		require.True(t, q.Contains(0))

		v, _, ok := q.DeleteMax()
		require.True(t, ok)
		require.Equal(t, datastructure.Index(0), v)
	}
}

func TestPQMaxValue(t *testing.T) {
	for _, q := range bothImplementations(10) {
		_, ok := q.MaxValue()
		require.False(t, ok)

		q.Insert(0, -2)
		q.Insert(1, 4)
		m, ok := q.MaxValue()
		require.True(t, ok)
		require.Equal(t, int64(4), m)
	}
}

func TestPQClear(t *testing.T) {
	for _, q := range bothImplementations(10) {
		q.Insert(0, 1)
		q.Insert(1, 2)
		q.Clear()
		require.True(t, q.Empty())
		require.False(t, q.Contains(0))
	}
}

func TestBucketPQClampsOutOfRangeKeys(t *testing.T) {
	b := NewBucketPQ(3)
	b.Insert(0, 100)
	b.Insert(1, -100)

	m, ok := b.MaxValue()
	require.True(t, ok)
	require.Equal(t, int64(3), m)

	v, _, ok := b.DeleteMax()
	require.True(t, ok)
	require.Equal(t, datastructure.Index(0), v)
}
