package concurrent

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenAddressingMapInsertOrAddSumsOnCollision(t *testing.T) {
	m := NewOpenAddressingMap(4)
	m.InsertOrAdd(1, 10)
	m.InsertOrAdd(2, 20)
	m.InsertOrAdd(1, 5)

	require.Equal(t, 2, m.Len())

	seen := make(map[uint64]int64)
	m.ForEach(func(key uint64, value int64) { seen[key] = value })
	require.Equal(t, int64(15), seen[1])
	require.Equal(t, int64(20), seen[2])
}

func TestMaxSizeToFitL1IsPowerOfTwo(t *testing.T) {
	size := MaxSizeToFitL1(16)
	require.GreaterOrEqual(t, size, 16)
	require.Equal(t, 0, size&(size-1), "expected a power of two")
}

func TestGrowingHashMapInsertOrUpdate(t *testing.T) {
	hm := NewGrowingHashMap(8, 2)
	sum := func(existing, arg int64) int64 { return existing + arg }

	hm.InsertOrUpdate(42, 1, sum, 1)
	hm.InsertOrUpdate(42, 1, sum, 1)
	hm.InsertOrUpdate(7, 5, sum, 5)

	require.Equal(t, 2, hm.Len())

	values := make(map[uint64]int64)
	hm.ForEach(func(key uint64, value int64) { values[key] = value })
	require.Equal(t, int64(2), values[42])
	require.Equal(t, int64(5), values[7])
}

func TestSubmitForAllPreservesWorkerOrder(t *testing.T) {
	results := SubmitForAll(8, func(workerID int) int { return workerID * workerID })
	for i, r := range results {
		require.Equal(t, i*i, r)
	}
}

func TestReduceFoldsResults(t *testing.T) {
	results := []int{1, 2, 3, 4}
	sum := Reduce(results, 0, func(a, b int) int { return a + b })
	require.Equal(t, 10, sum)
}

func TestWorkerPoolRunsAllJobs(t *testing.T) {
	pool := NewWorkerPool[int, int](3, 10)
	pool.Start(func(job int) int { return job * 2 })
	for i := 0; i < 10; i++ {
		pool.AddJob(i)
	}
	pool.Close()
	go pool.Wait()

	var got []int
	for r := range pool.CollectResults() {
		got = append(got, r)
	}
	sort.Ints(got)
	require.Equal(t, []int{0, 2, 4, 6, 8, 10, 12, 14, 16, 18}, got)
}
