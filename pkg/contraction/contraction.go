// Package contraction builds the coarser graph used during multilevel
// coarsening by aggregating inter-cluster edges of a fine graph, in
// parallel via per-thread growing hashmaps.
package contraction

import (
	"math"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/lintang-b-s/kwayrefine/pkg/concurrent"
	"github.com/lintang-b-s/kwayrefine/pkg/datastructure"
)

// openAddrKeyValueWidth is the byte width of one OpenAddressingMap slot
// (uint64 key + int64 value), used to size each worker's local map to fit
// comfortably in L1.
const openAddrKeyValueWidth = 16

func packKey(a, b int32) uint64 {
	if a > b {
		a, b = b, a
	}
	return uint64(uint32(a))<<32 | uint64(uint32(b))
}

func unpackKey(key uint64) (int32, int32) {
	return int32(uint32(key >> 32)), int32(uint32(key))
}

// Contract dispatches to the multi-thread or single-thread variant based
// on numThreads and fastContractClustering. The single-thread variant
// uses one growing hashmap and avoids batching buffers entirely.
func Contract(g *datastructure.Graph, clusterOf []int32, numCoarseVertices int, numThreads int, fastContractClustering bool) *datastructure.Graph {
	if numThreads <= 1 || fastContractClustering {
		return ContractSingleThreaded(g, clusterOf, numCoarseVertices)
	}
	return ContractParallel(g, clusterOf, numCoarseVertices, numThreads)
}

// ContractSingleThreaded is the no-buffering single-thread path: one
// growing hashmap, no batching, no block claiming.
func ContractSingleThreaded(g *datastructure.Graph, clusterOf []int32, numCoarseVertices int) *datastructure.Graph {
	n := g.NumberOfNodes()
	nodeWeight := make([]int64, numCoarseVertices)
	hm := concurrent.NewGrowingHashMap(estimateCutEdges(g, numCoarseVertices), 1)

	for v := 0; v < n; v++ {
		s := clusterOf[v]
		nodeWeight[s] += g.VertexWeight(datastructure.Index(v))
		g.ForEachOutEdge(datastructure.Index(v), func(e datastructure.HalfEdge) {
			t := clusterOf[e.Target()]
			if t == s {
				return
			}
			key := packKey(s, t)
			hm.InsertOrUpdate(key, e.Weight(), func(existing, arg int64) int64 { return existing + arg }, e.Weight())
		})
	}

	return buildCoarseGraph(nodeWeight, []*concurrent.GrowingHashMap{hm})
}

type blockInfo struct {
	nodeWeight []int64
}

// ContractParallel implements the multi-thread algorithm: numThreads
// growing hashmaps sized by the expected cut-edge count, dynamic block
// claiming over the vertex range, and per-worker local aggregation of
// cross-cluster contributions (via a single-threaded OpenAddressingMap
// sized to fit L1) before flushing summed totals into the destination
// shard, and a final parallel CSR build.
func ContractParallel(g *datastructure.Graph, clusterOf []int32, numCoarseVertices int, numThreads int) *datastructure.Graph {
	n := g.NumberOfNodes()
	numCutEdges := estimateCutEdges(g, numCoarseVertices)

	hashmaps := make([]*concurrent.GrowingHashMap, numThreads)
	for i := range hashmaps {
		hashmaps[i] = concurrent.NewGrowingHashMap(numCutEdges/numThreads+1, 4)
	}

	blockSize := int(math.Ceil(math.Sqrt(float64(n))))
	if blockSize < 1000 {
		blockSize = 1000
	}
	var offset int64

	flushThreshold := concurrent.MaxSizeToFitL1(openAddrKeyValueWidth) / 2
	if flushThreshold < 1 {
		flushThreshold = 1
	}

	perThreadInfo := concurrent.SubmitForAll(numThreads, func(workerID int) blockInfo {
		info := blockInfo{nodeWeight: make([]int64, numCoarseVertices)}
		locals := make([]*concurrent.OpenAddressingMap, numThreads)
		for i := range locals {
			locals[i] = concurrent.NewOpenAddressingMap(flushThreshold)
		}

		flush := func(sink int) {
			locals[sink].ForEach(func(key uint64, value int64) {
				hashmaps[sink].InsertOrUpdate(key, value, func(existing, arg int64) int64 { return existing + arg }, value)
			})
			locals[sink] = concurrent.NewOpenAddressingMap(flushThreshold)
		}

		for {
			start := atomic.AddInt64(&offset, int64(blockSize)) - int64(blockSize)
			if int(start) >= n {
				break
			}
			end := int(start) + blockSize
			if end > n {
				end = n
			}
			for v := int(start); v < end; v++ {
				s := clusterOf[v]
				info.nodeWeight[s] += g.VertexWeight(datastructure.Index(v))
				g.ForEachOutEdge(datastructure.Index(v), func(e datastructure.HalfEdge) {
					t := clusterOf[e.Target()]
					if t == s {
						return
					}
					key := packKey(s, t)
					// sink follows the canonical key so both directed visits of
					// one edge are summed in the same hashmap before halving.
					sink := int(min(s, t)) % numThreads
					locals[sink].InsertOrAdd(key, e.Weight())
					if locals[sink].Len() >= flushThreshold {
						flush(sink)
					}
				})
			}
		}
		for sink := range locals {
			flush(sink)
		}
		return info
	})

	nodeWeight := make([]int64, numCoarseVertices)
	for _, info := range perThreadInfo {
		for i, w := range info.nodeWeight {
			nodeWeight[i] += w
		}
	}

	return buildCoarseGraph(nodeWeight, hashmaps)
}

// buildCoarseGraph computes each coarse vertex's degree from the
// hashmaps, prefix-sums into CSR offsets, then
// populate the edges array, halving the stored sum to recover the true
// undirected edge weight (see DESIGN.md for the canonical-pair-key
// rationale behind the halving).
func buildCoarseGraph(nodeWeight []int64, hashmaps []*concurrent.GrowingHashMap) *datastructure.Graph {
	numCoarse := len(nodeWeight)
	degree := make([]int32, numCoarse)

	type edgeRecord struct {
		a, b   int32
		weight int64
	}
	var records []edgeRecord
	var mu sync.Mutex

	var g errgroup.Group
	for _, hm := range hashmaps {
		hm := hm
		g.Go(func() error {
			local := make([]edgeRecord, 0)
			hm.ForEach(func(key uint64, value int64) {
				a, b := unpackKey(key)
				local = append(local, edgeRecord{a, b, value / 2})
			})
			mu.Lock()
			records = append(records, local...)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	for _, r := range records {
		degree[r.a]++
		degree[r.b]++
	}

	xadj := make([]int32, numCoarse+1)
	for i := 0; i < numCoarse; i++ {
		xadj[i+1] = xadj[i] + degree[i]
	}
	adjncy := make([]datastructure.HalfEdge, xadj[numCoarse])
	cursor := make([]int32, numCoarse)
	copy(cursor, xadj[:numCoarse])

	for _, r := range records {
		adjncy[cursor[r.a]] = datastructure.NewHalfEdge(datastructure.Index(r.b), r.weight)
		cursor[r.a]++
		adjncy[cursor[r.b]] = datastructure.NewHalfEdge(datastructure.Index(r.a), r.weight)
		cursor[r.b]++
	}

	partition := make([]int32, numCoarse) // caller assigns partition ids post-contraction
	return datastructure.NewGraph(xadj, adjncy, nodeWeight, partition, 1)
}

func estimateCutEdges(g *datastructure.Graph, numCoarseVertices int) int {
	n := g.NumberOfNodes()
	m := g.NumberOfEdges()
	avgDegree := 0
	if n > 0 {
		avgDegree = m / n
	}
	byAvg := avgDegree * numCoarseVertices
	byM := m / 10
	if byAvg < byM {
		return byAvg
	}
	return byM
}
