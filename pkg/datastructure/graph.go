package datastructure

import "math/bits"

// Index identifies a vertex or a half-edge position. Partition (block) ids
// are int32, not Index.
type Index uint32

// HalfEdge is one directed copy of an undirected edge; every edge is
// stored twice, once for each endpoint, so out-edges are symmetric.
type HalfEdge struct {
	target Index
	weight int64
}

func (e HalfEdge) Target() Index { return e.target }
func (e HalfEdge) Weight() int64 { return e.weight }

func NewHalfEdge(target Index, weight int64) HalfEdge {
	return HalfEdge{target: target, weight: weight}
}

// Graph is the CSR-backed graph access layer: n vertices, m directed
// half-edges, per-vertex weight and partition id, per-edge weight. All
// accessors are read-only outside of SetPartition, which is called
// exclusively by the move applier.
type Graph struct {
	xadj       []int32 // xadj[v]..xadj[v+1] bounds v's half-edges, len n+1
	adjncy     []HalfEdge
	vertexWt   []int64
	partition  []int32
	k          int
	maxDegree  int32
	maxDegSet  bool
	totalVWt   int64
}

// NewGraph builds a Graph from CSR offsets, adjacency, vertex weights and
// an initial partition assignment. adjncy must already contain both
// directions of every undirected edge.
func NewGraph(xadj []int32, adjncy []HalfEdge, vertexWeights []int64, partition []int32, k int) *Graph {
	n := len(xadj) - 1
	if len(vertexWeights) != n || len(partition) != n {
		panic("datastructure: NewGraph: vertex weight/partition length mismatch")
	}
	g := &Graph{
		xadj:      xadj,
		adjncy:    adjncy,
		vertexWt:  vertexWeights,
		partition: partition,
		k:         k,
	}
	for _, w := range vertexWeights {
		g.totalVWt += w
	}
	return g
}

func (g *Graph) NumberOfNodes() int { return len(g.xadj) - 1 }
func (g *Graph) NumberOfEdges() int { return len(g.adjncy) }
func (g *Graph) K() int             { return g.k }

func (g *Graph) TotalVertexWeight() int64 { return g.totalVWt }

func (g *Graph) VertexWeight(v Index) int64 { return g.vertexWt[v] }

func (g *Graph) Partition(v Index) int32 { return g.partition[v] }

// SetPartition reassigns v's block. Only the move applier may call this;
// local searches operate on their own nodes_partitions override instead.
func (g *Graph) SetPartition(v Index, block int32) { g.partition[v] = block }

func (g *Graph) Degree(v Index) int {
	return int(g.xadj[v+1] - g.xadj[v])
}

// MaxDegree is cached lazily and queried in O(1) after the first call.
func (g *Graph) MaxDegree() int32 {
	if !g.maxDegSet {
		var max int32
		for v := 0; v < g.NumberOfNodes(); v++ {
			if d := g.xadj[v+1] - g.xadj[v]; d > max {
				max = d
			}
		}
		g.maxDegree = max
		g.maxDegSet = true
	}
	return g.maxDegree
}

// ForEachOutEdge calls handle for every half-edge leaving v.
func (g *Graph) ForEachOutEdge(v Index, handle func(e HalfEdge)) {
	for i := g.xadj[v]; i < g.xadj[v+1]; i++ {
		handle(g.adjncy[i])
	}
}

func (g *Graph) OutEdges(v Index) []HalfEdge {
	return g.adjncy[g.xadj[v]:g.xadj[v+1]]
}

// CheckWeightConservation asserts the sum of vertex weights across the
// graph equals the value recorded at construction time; used under
// Options.DebugAssertions between refinement rounds.
func (g *Graph) CheckWeightConservation() bool {
	var total int64
	for v := 0; v < g.NumberOfNodes(); v++ {
		total += g.vertexWt[v]
	}
	return total == g.totalVWt
}

// nextPow2 rounds n up to the next power of two. Nothing in the module
// calls it at present.
func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}
