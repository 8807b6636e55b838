package datastructure

// BoundaryIndex maintains, for every ordered pair (lhs, rhs) of blocks, the
// set of vertices in lhs with a neighbor in rhs, plus per-block weight and
// vertex count. The graph and the boundary are owned by the
// scheduler/applier serial sections; local searches only read them.
type BoundaryIndex struct {
	k             int
	graph         *Graph
	blockWeight   []int64
	blockCount    []int64
	directed      map[pairKey]map[Index]struct{}
}

type pairKey struct{ lhs, rhs int32 }

// NewBoundaryIndex builds the boundary from the graph's current partition
// assignment. It is O(n + m).
func NewBoundaryIndex(g *Graph) *BoundaryIndex {
	b := &BoundaryIndex{
		k:           g.K(),
		graph:       g,
		blockWeight: make([]int64, g.K()),
		blockCount:  make([]int64, g.K()),
		directed:    make(map[pairKey]map[Index]struct{}),
	}
	for v := 0; v < g.NumberOfNodes(); v++ {
		vi := Index(v)
		p := g.Partition(vi)
		b.blockWeight[p] += g.VertexWeight(vi)
		b.blockCount[p]++
	}
	for v := 0; v < g.NumberOfNodes(); v++ {
		vi := Index(v)
		lhs := g.Partition(vi)
		seen := make(map[int32]bool)
		g.ForEachOutEdge(vi, func(e HalfEdge) {
			rhs := g.Partition(e.Target())
			if rhs != lhs && !seen[rhs] {
				seen[rhs] = true
				b.add(lhs, rhs, vi)
			}
		})
	}
	return b
}

func (b *BoundaryIndex) setOf(lhs, rhs int32) map[Index]struct{} {
	key := pairKey{lhs, rhs}
	s, ok := b.directed[key]
	if !ok {
		s = make(map[Index]struct{})
		b.directed[key] = s
	}
	return s
}

func (b *BoundaryIndex) add(lhs, rhs int32, v Index) {
	b.setOf(lhs, rhs)[v] = struct{}{}
}

func (b *BoundaryIndex) remove(lhs, rhs int32, v Index) {
	if s, ok := b.directed[pairKey{lhs, rhs}]; ok {
		delete(s, v)
	}
}

// Size returns the number of vertices in block lhs on the directed
// boundary toward rhs (bp = rhs).
func (b *BoundaryIndex) Size(lhs int32, bp int32) int {
	return len(b.directed[pairKey{lhs, bp}])
}

// DirectedBoundary returns a snapshot slice of B(lhs,rhs).
func (b *BoundaryIndex) DirectedBoundary(lhs, rhs int32) []Index {
	s := b.directed[pairKey{lhs, rhs}]
	out := make([]Index, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	return out
}

// BlockWeightsSnapshot and BlockCountsSnapshot copy the current per-block
// counters, used to seed a freshly-created ThreadData's speculative view.
func (b *BoundaryIndex) BlockWeightsSnapshot(k int) []int64 {
	out := make([]int64, k)
	copy(out, b.blockWeight)
	return out
}

func (b *BoundaryIndex) BlockCountsSnapshot(k int) []int64 {
	out := make([]int64, k)
	copy(out, b.blockCount)
	return out
}

func (b *BoundaryIndex) GetBlockWeight(block int32) int64 { return b.blockWeight[block] }
func (b *BoundaryIndex) SetBlockWeight(block int32, w int64) { b.blockWeight[block] = w }
func (b *BoundaryIndex) GetBlockNoNodes(block int32) int64 { return b.blockCount[block] }
func (b *BoundaryIndex) SetBlockNoNodes(block int32, n int64) { b.blockCount[block] = n }

// GetEdgeCut returns the sum of edge weights crossing from lhs to rhs
// (spec: "sum of edge weights between lhs and rhs").
func (b *BoundaryIndex) GetEdgeCut(lhs, rhs int32) int64 {
	var total int64
	for v := range b.directed[pairKey{lhs, rhs}] {
		b.graph.ForEachOutEdge(v, func(e HalfEdge) {
			if b.graph.Partition(e.Target()) == rhs {
				total += e.Weight()
			}
		})
	}
	return total
}

// QuotientEdges lists block pairs (lhs < rhs, canonical order) whose union
// of directed boundaries is non-empty, forming the quotient graph Q.
func (b *BoundaryIndex) QuotientEdges() []QuotientEdge {
	seen := make(map[pairKey]bool)
	out := make([]QuotientEdge, 0)
	for key, s := range b.directed {
		if len(s) == 0 || key.lhs == key.rhs {
			continue
		}
		lhs, rhs := key.lhs, key.rhs
		if lhs > rhs {
			lhs, rhs = rhs, lhs
		}
		ck := pairKey{lhs, rhs}
		if seen[ck] {
			continue
		}
		seen[ck] = true
		out = append(out, QuotientEdge{Lhs: lhs, Rhs: rhs})
	}
	return out
}

type QuotientEdge struct {
	Lhs, Rhs int32
}

// PostMovedBoundaryNodeUpdates repairs both directed boundaries for every
// (newPart,*) and (*,newPart) pair incident to v after v's partition id
// changed from oldPart to newPart (spec: "invoked after part(v) changes;
// repairs both directed boundaries for every (part(v),*) pair incident to
// v's neighbors").
func (b *BoundaryIndex) PostMovedBoundaryNodeUpdates(v Index, oldPart, newPart int32) {
	// v itself: drop every (oldPart,*) entry, recompute (newPart,*) entries.
	for rhs := int32(0); rhs < int32(b.k); rhs++ {
		b.remove(oldPart, rhs, v)
	}
	neighborParts := make(map[int32]bool)
	b.graph.ForEachOutEdge(v, func(e HalfEdge) {
		p := b.graph.Partition(e.Target())
		if p != newPart {
			neighborParts[p] = true
		}
	})
	for p := range neighborParts {
		b.add(newPart, p, v)
	}

	// neighbors: their boundary membership toward oldPart/newPart may have
	// appeared or disappeared because v moved.
	b.graph.ForEachOutEdge(v, func(e HalfEdge) {
		u := e.Target()
		up := b.graph.Partition(u)
		if up != oldPart {
			if b.hasNeighborIn(u, oldPart) {
				b.add(up, oldPart, u)
			} else {
				b.remove(up, oldPart, u)
			}
		}
		if up != newPart {
			b.add(up, newPart, u)
		}
	})
}

func (b *BoundaryIndex) hasNeighborIn(u Index, block int32) bool {
	found := false
	b.graph.ForEachOutEdge(u, func(e HalfEdge) {
		if b.graph.Partition(e.Target()) == block {
			found = true
		}
	})
	return found
}

// CheckInvariants asserts v is on B(lhs,rhs) iff part(v)=lhs and v has a
// neighbor with part=rhs, for every stored pair. Used under debug builds.
func (b *BoundaryIndex) CheckInvariants() bool {
	for key, s := range b.directed {
		if key.lhs == key.rhs && len(s) > 0 {
			return false
		}
		for v := range s {
			if b.graph.Partition(v) != key.lhs {
				return false
			}
			if !b.hasNeighborIn(v, key.rhs) {
				return false
			}
		}
	}
	for v := 0; v < b.graph.NumberOfNodes(); v++ {
		vi := Index(v)
		lhs := b.graph.Partition(vi)
		seen := make(map[int32]bool)
		b.graph.ForEachOutEdge(vi, func(e HalfEdge) {
			rhs := b.graph.Partition(e.Target())
			if rhs != lhs {
				seen[rhs] = true
			}
		})
		for rhs := range seen {
			s := b.directed[pairKey{lhs, rhs}]
			if _, ok := s[vi]; !ok {
				return false
			}
		}
	}
	return true
}
