// Package flow2way adapts the FM k-way engine and a weighted min-cut solver
// into the 2-way refinement collaborator the quotient-graph scheduler calls
// per block pair. TwoWayRefiner is a narrow interface so either algorithm,
// or a future one, can sit behind it interchangeably.
package flow2way

import (
	"golang.org/x/exp/rand"

	"github.com/lintang-b-s/kwayrefine/pkg/datastructure"
	"github.com/lintang-b-s/kwayrefine/pkg/refinement"
	"github.com/lintang-b-s/kwayrefine/pkg/stoprule"
)

// TwoWayRefiner tries to reduce the cut between a single pair of adjacent
// blocks, honoring the per-block weight cap. It reports the cut reduction
// achieved and whether any vertex actually changed block.
type TwoWayRefiner interface {
	Refine(g *datastructure.Graph, b *datastructure.BoundaryIndex, lhs, rhs int32, upperBound []int64) (improvement int64, changed bool)
}

// FMRefiner restricts the k-way local searcher's start set to the boundary
// of (lhs,rhs) and replays its log with the decoupled applier, reusing the
// k-way engine instead of a dedicated 2-way FM implementation.
type FMRefiner struct {
	Rnd       *rand.Rand
	StopLimit int // SearchShouldStop budget; 0 picks 2x the boundary size
}

func NewFMRefiner(seed uint64) *FMRefiner {
	return &FMRefiner{Rnd: rand.New(rand.NewSource(seed))}
}

func (f *FMRefiner) Refine(g *datastructure.Graph, b *datastructure.BoundaryIndex, lhs, rhs int32, upperBound []int64) (int64, bool) {
	start := append(b.DirectedBoundary(lhs, rhs), b.DirectedBoundary(rhs, lhs)...)
	if len(start) == 0 {
		return 0, false
	}

	k := g.K()
	td := refinement.NewThreadData(0, k, f.Rnd.Uint64(), b.BlockWeightsSnapshot(k), b.BlockCountsSnapshot(k))
	td.StartNodes = start

	limit := f.StopLimit
	if limit <= 0 {
		limit = 2 * len(start)
	}
	shared := refinement.NewSharedMoveState(g.NumberOfNodes())
	rule := stoprule.NewSimple(limit)
	cfg := refinement.RoundConfig{UpperBoundPartition: upperBound, MaxNumberOfMoves: limit, Permutation: refinement.PermutationGood}

	_, _, moves := refinement.SingleKwayRefinementRound(g, td, shared, cfg, rule, false)
	if moves == 0 {
		return 0, false
	}

	gained := refinement.ApplyMovesSimple(g, b, td, upperBound, f.Rnd)
	return gained, gained != 0
}

// FlowRefiner formulates the block pair as a single s-t min cut: interior
// vertices of lhs anchor to an artificial source, interior vertices of rhs
// anchor to an artificial sink, and boundary vertices are free to land on
// either side. The final residual reachability assigns each boundary vertex
// to lhs or rhs.
type FlowRefiner struct {
	UseEdmondsKarp bool
	Debug          bool
}

func NewFlowRefiner() *FlowRefiner { return &FlowRefiner{} }

func (fr *FlowRefiner) Refine(g *datastructure.Graph, b *datastructure.BoundaryIndex, lhs, rhs int32, upperBound []int64) (int64, bool) {
	members := make([]datastructure.Index, 0)
	for v := 0; v < g.NumberOfNodes(); v++ {
		vi := datastructure.Index(v)
		if p := g.Partition(vi); p == lhs || p == rhs {
			members = append(members, vi)
		}
	}
	if len(members) == 0 {
		return 0, false
	}

	localIdx := make(map[datastructure.Index]datastructure.Index, len(members))
	for i, v := range members {
		localIdx[v] = datastructure.Index(i)
	}
	n := len(members)
	sourceIdx := datastructure.Index(n)
	sinkIdx := datastructure.Index(n + 1)

	pg := datastructure.NewPartitionGraph(n + 2)
	for i, v := range members {
		pg.AddVertex(datastructure.NewPartitionVertex(datastructure.Index(i), v))
	}
	pg.AddVertex(datastructure.NewPartitionVertex(sourceIdx, sourceIdx))
	pg.AddVertex(datastructure.NewPartitionVertex(sinkIdx, sinkIdx))

	beforeCut := b.GetEdgeCut(lhs, rhs)

	for _, v := range members {
		u := localIdx[v]
		isBoundary := false
		g.ForEachOutEdge(v, func(e datastructure.HalfEdge) {
			w := e.Target()
			wp := g.Partition(w)
			if wp != lhs && wp != rhs {
				return
			}
			if wp != g.Partition(v) {
				isBoundary = true
			}
			if wi, ok := localIdx[w]; ok && wi > u {
				pg.AddEdge(u, wi, e.Weight())
			}
		})
		if !isBoundary {
			if g.Partition(v) == lhs {
				pg.AddInfEdge(sourceIdx, u)
			} else {
				pg.AddInfEdge(u, sinkIdx)
			}
		}
	}

	var cut *MinCut
	if fr.UseEdmondsKarp {
		cut = NewEdmondsKarp(pg).ComputeMinCut(sourceIdx, sinkIdx)
	} else {
		cut = NewDinicMaxFlow(pg, fr.Debug).ComputeMinCut(sourceIdx, sinkIdx)
	}

	newWeight := map[int32]int64{lhs: b.GetBlockWeight(lhs), rhs: b.GetBlockWeight(rhs)}
	newBlock := make(map[datastructure.Index]int32, n)
	anyChanged := false
	for _, v := range members {
		u := localIdx[v]
		target := lhs
		if !cut.GetFlag(u) {
			target = rhs
		}
		old := g.Partition(v)
		if target != old {
			w := g.VertexWeight(v)
			newWeight[old] -= w
			newWeight[target] += w
			anyChanged = true
		}
		newBlock[v] = target
	}
	if !anyChanged {
		return 0, false
	}
	if upperBound != nil {
		if newWeight[lhs] > upperBound[lhs] || newWeight[rhs] > upperBound[rhs] {
			return 0, false
		}
	}
	if b.GetBlockNoNodes(lhs) == 0 || b.GetBlockNoNodes(rhs) == 0 {
		return 0, false
	}

	for _, v := range members {
		old := g.Partition(v)
		target := newBlock[v]
		if target == old {
			continue
		}
		if b.GetBlockNoNodes(old) == 1 {
			continue // never empty a block
		}
		w := g.VertexWeight(v)
		g.SetPartition(v, target)
		b.SetBlockNoNodes(old, b.GetBlockNoNodes(old)-1)
		b.SetBlockNoNodes(target, b.GetBlockNoNodes(target)+1)
		b.SetBlockWeight(old, b.GetBlockWeight(old)-w)
		b.SetBlockWeight(target, b.GetBlockWeight(target)+w)
		b.PostMovedBoundaryNodeUpdates(v, old, target)
	}

	afterCut := b.GetEdgeCut(lhs, rhs)
	return beforeCut - afterCut, true
}
