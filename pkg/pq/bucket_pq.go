package pq

import "github.com/lintang-b-s/kwayrefine/pkg/datastructure"

// BucketPQ is indexed by an integer key in a bounded range
// [-maxDegree*maxEdgeWeight, +maxDegree*maxEdgeWeight], giving O(1)
// amortized insert/changeKey/deleteMax for gains bounded by that range.
// currentMax only ever decreases between DeleteMax calls until a higher
// key is inserted, so the scan for the next non-empty bucket is
// amortized O(1) over a sequence of deletes.
type BucketPQ struct {
	buckets   []map[datastructure.Index]struct{}
	offset    int64 // bucket index for key==0
	keyOf     map[datastructure.Index]int64
	currentMax int
	size      int
}

// NewBucketPQ sizes the table for gains in [-maxRange, maxRange].
func NewBucketPQ(maxRange int64) *BucketPQ {
	if maxRange < 1 {
		maxRange = 1
	}
	n := int(2*maxRange + 1)
	b := &BucketPQ{
		buckets: make([]map[datastructure.Index]struct{}, n),
		offset:  maxRange,
		keyOf:   make(map[datastructure.Index]int64),
	}
	for i := range b.buckets {
		b.buckets[i] = make(map[datastructure.Index]struct{})
	}
	return b
}

func (b *BucketPQ) bucketIndex(key int64) int {
	idx := key + b.offset
	if idx < 0 {
		idx = 0
	}
	if int(idx) >= len(b.buckets) {
		idx = int64(len(b.buckets) - 1)
	}
	return int(idx)
}

func (b *BucketPQ) Insert(v datastructure.Index, key int64) {
	if old, ok := b.keyOf[v]; ok {
		delete(b.buckets[b.bucketIndex(old)], v)
		b.size--
	}
	idx := b.bucketIndex(key)
	b.buckets[idx][v] = struct{}{}
	b.keyOf[v] = key
	b.size++
	if idx > b.currentMax {
		b.currentMax = idx
	}
}

func (b *BucketPQ) ChangeKey(v datastructure.Index, key int64) {
	b.Insert(v, key)
}

func (b *BucketPQ) DeleteMax() (datastructure.Index, int64, bool) {
	for b.currentMax >= 0 && len(b.buckets[b.currentMax]) == 0 {
		b.currentMax--
	}
	if b.currentMax < 0 {
		return 0, 0, false
	}
	var chosen datastructure.Index
	for v := range b.buckets[b.currentMax] {
		chosen = v
		break
	}
	delete(b.buckets[b.currentMax], chosen)
	gainKey := b.keyOf[chosen]
	delete(b.keyOf, chosen)
	b.size--
	return chosen, gainKey, true
}

func (b *BucketPQ) MaxValue() (int64, bool) {
	m := b.currentMax
	for m >= 0 && len(b.buckets[m]) == 0 {
		m--
	}
	if m < 0 {
		return 0, false
	}
	return int64(m) - b.offset, true
}

func (b *BucketPQ) DeleteNode(v datastructure.Index) {
	key, ok := b.keyOf[v]
	if !ok {
		return
	}
	delete(b.buckets[b.bucketIndex(key)], v)
	delete(b.keyOf, v)
	b.size--
}

func (b *BucketPQ) Contains(v datastructure.Index) bool {
	_, ok := b.keyOf[v]
	return ok
}

func (b *BucketPQ) Empty() bool { return b.size == 0 }

func (b *BucketPQ) Clear() {
	for i := range b.buckets {
		b.buckets[i] = make(map[datastructure.Index]struct{})
	}
	b.keyOf = make(map[datastructure.Index]int64)
	b.currentMax = 0
	b.size = 0
}
