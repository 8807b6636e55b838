package concurrent

import (
	"sync"
	"sync/atomic"
)

// OpenAddressingMap is a fixed-capacity open-addressing hashmap sized to
// fit comfortably in L1 cache for a given key/value width. It is used
// single-threaded within one worker's slice of cluster contraction.
type OpenAddressingMap struct {
	keys     []uint64
	values   []int64
	occupied []bool
	mask     uint64
}

// MaxSizeToFitL1 estimates how many key/value slots of the given byte
// width fit in a conservative 32KiB L1 data cache budget, rounded down to
// a power of two so probing can use a bitmask instead of a modulo.
func MaxSizeToFitL1(keyValueWidth int) int {
	const l1Budget = 32 * 1024
	slots := l1Budget / keyValueWidth
	if slots < 16 {
		slots = 16
	}
	p := 1
	for p*2 <= slots {
		p *= 2
	}
	return p
}

func NewOpenAddressingMap(capacityHint int) *OpenAddressingMap {
	size := 16
	for size < capacityHint*2 {
		size *= 2
	}
	return &OpenAddressingMap{
		keys:     make([]uint64, size),
		values:   make([]int64, size),
		occupied: make([]bool, size),
		mask:     uint64(size - 1),
	}
}

// InsertOrAdd inserts key with value, or adds value to the existing entry
// on collision (the "sum-on-collision" rule used by cluster contraction).
func (m *OpenAddressingMap) InsertOrAdd(key uint64, value int64) {
	idx := key & m.mask
	for {
		if !m.occupied[idx] {
			m.occupied[idx] = true
			m.keys[idx] = key
			m.values[idx] = value
			return
		}
		if m.keys[idx] == key {
			m.values[idx] += value
			return
		}
		idx = (idx + 1) & m.mask
	}
}

func (m *OpenAddressingMap) ForEach(handle func(key uint64, value int64)) {
	for i, occ := range m.occupied {
		if occ {
			handle(m.keys[i], m.values[i])
		}
	}
}

func (m *OpenAddressingMap) Len() int {
	n := 0
	for _, occ := range m.occupied {
		if occ {
			n++
		}
	}
	return n
}

// shard is one lock-protected bucket of a GrowingHashMap. Sharding by key
// hash lets many goroutines insert concurrently with low contention
// without requiring a single global lock.
type shard struct {
	mu sync.Mutex
	m  map[uint64]int64
}

// GrowingHashMap is a sharded concurrent hashmap: InsertOrUpdate
// atomically installs `initial` on first touch and applies `combiner`
// against the existing value otherwise.
type GrowingHashMap struct {
	shards []shard
	mask   uint64
	size   atomic.Int64
}

func NewGrowingHashMap(sizeHint int, numShards int) *GrowingHashMap {
	if numShards < 1 {
		numShards = 1
	}
	ns := 1
	for ns < numShards {
		ns *= 2
	}
	g := &GrowingHashMap{
		shards: make([]shard, ns),
		mask:   uint64(ns - 1),
	}
	perShard := sizeHint/ns + 1
	for i := range g.shards {
		g.shards[i].m = make(map[uint64]int64, perShard)
	}
	return g
}

func (g *GrowingHashMap) shardFor(key uint64) *shard {
	h := key ^ (key >> 33)
	return &g.shards[h&g.mask]
}

// InsertOrUpdate installs `initial` if key is unseen, otherwise replaces
// the stored value with combiner(existing, combinerArg).
func (g *GrowingHashMap) InsertOrUpdate(key uint64, initial int64, combiner func(existing, combinerArg int64) int64, combinerArg int64) {
	s := g.shardFor(key)
	s.mu.Lock()
	if existing, ok := s.m[key]; ok {
		s.m[key] = combiner(existing, combinerArg)
	} else {
		s.m[key] = initial
		g.size.Add(1)
	}
	s.mu.Unlock()
}

func (g *GrowingHashMap) Len() int { return int(g.size.Load()) }

// ForEach iterates every entry; the caller must not mutate the map
// concurrently with this call.
func (g *GrowingHashMap) ForEach(handle func(key uint64, value int64)) {
	for i := range g.shards {
		g.shards[i].mu.Lock()
		for k, v := range g.shards[i].m {
			handle(k, v)
		}
		g.shards[i].mu.Unlock()
	}
}
