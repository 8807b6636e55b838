package flow2way

import (
	"container/list"

	"github.com/lintang-b-s/kwayrefine/pkg"
	"github.com/lintang-b-s/kwayrefine/pkg/datastructure"
)

// EdmondsKarp is an alternate s-t min-cut solver kept alongside Dinic for
// small block pairs where the augmenting-path overhead of Dinic's level
// graph isn't worth it; same residual-graph convention as DinicMaxFlow.
type EdmondsKarp struct {
	graph *datastructure.PartitionGraph
}

func NewEdmondsKarp(graph *datastructure.PartitionGraph) *EdmondsKarp {
	return &EdmondsKarp{graph: graph}
}

func (ek *EdmondsKarp) bfsAugmentingPath(source, sink datastructure.Index) int64 {
	queue := list.New()
	queue.PushBack(source)

	prevSource := &datastructure.MaxFlowEdge{}
	ek.graph.SetPrev(source, prevSource)

	for queue.Len() > 0 {
		u := queue.Remove(queue.Front()).(datastructure.Index)
		if u == sink {
			break
		}
		ek.graph.ForEachVertexEdges(u, func(e *datastructure.MaxFlowEdge) {
			if ek.graph.GetPrev(e.GetTo()) == nil && e.GetCapacity()-e.GetFlow() > 0 {
				ek.graph.SetPrev(e.GetTo(), e)
				queue.PushBack(e.GetTo())
			}
		})
	}

	if ek.graph.GetPrev(sink) == nil {
		return 0
	}

	bottleneck := pkg.InfWeight
	for e := ek.graph.GetPrev(sink); e != prevSource; e = ek.graph.GetPrev(e.GetFrom()) {
		bottleneck = min(bottleneck, e.GetCapacity()-e.GetFlow())
	}
	for e := ek.graph.GetPrev(sink); e != prevSource; e = ek.graph.GetPrev(e.GetFrom()) {
		e.AddFlow(bottleneck)
		ek.graph.GetEdgeById(e.GetID() ^ 1).AddFlow(-bottleneck)
	}
	return bottleneck
}

func (ek *EdmondsKarp) ComputeMinCut(source, sink datastructure.Index) *MinCut {
	minCut := NewMinCut(ek.graph.NumberOfVertices())
	var maxFlow int64
	for {
		ek.graph.ResetPrev()
		flow := ek.bfsAugmentingPath(source, sink)
		if flow == 0 {
			ek.makeMinCutFlags(minCut, maxFlow)
			return minCut
		}
		maxFlow += flow
	}
}

func (ek *EdmondsKarp) makeMinCutFlags(minCut *MinCut, maxFlow int64) {
	for u := datastructure.Index(0); u < datastructure.Index(ek.graph.NumberOfVertices()); u++ {
		if ek.graph.GetPrev(u) != nil {
			minCut.SetFlag(u, true)
		} else {
			minCut.incrementNumSinkSide()
		}
	}
	minCut.setCutCapacity(maxFlow)
}
