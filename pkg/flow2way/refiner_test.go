package flow2way

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lintang-b-s/kwayrefine/pkg/datastructure"
)

// buildTwoBlockGraph mirrors pkg/refinement's fixture: vertex 1 has one
// internal neighbor (vertex 0) and two external ones, giving a strictly
// positive FM gain of 1 for moving it from block 0 into block 1.
func buildTwoBlockGraph(t *testing.T) (*datastructure.Graph, *datastructure.BoundaryIndex) {
	t.Helper()
	xadj := []int32{0, 1, 4, 6, 8}
	adjncy := []datastructure.HalfEdge{
		datastructure.NewHalfEdge(1, 1),
		datastructure.NewHalfEdge(0, 1), datastructure.NewHalfEdge(2, 1), datastructure.NewHalfEdge(3, 1),
		datastructure.NewHalfEdge(1, 1), datastructure.NewHalfEdge(3, 1),
		datastructure.NewHalfEdge(1, 1), datastructure.NewHalfEdge(2, 1),
	}
	vw := []int64{1, 1, 1, 1}
	partition := []int32{0, 0, 1, 1}
	g := datastructure.NewGraph(xadj, adjncy, vw, partition, 2)
	b := datastructure.NewBoundaryIndex(g)
	return g, b
}

func TestFMRefinerNoBoundaryIsNoOp(t *testing.T) {
	g, b := buildTwoBlockGraph(t)
	refiner := NewFMRefiner(1)

	improvement, changed := refiner.Refine(g, b, 0, 0, []int64{100, 100})
	require.Equal(t, int64(0), improvement)
	require.False(t, changed)
}

func TestFMRefinerKeepsInvariantsOnANonTrivialPair(t *testing.T) {
	g, b := buildTwoBlockGraph(t)
	refiner := NewFMRefiner(1)

	improvement, changed := refiner.Refine(g, b, 0, 1, []int64{100, 100})
	require.True(t, b.CheckInvariants())
	require.True(t, g.CheckWeightConservation())
	if changed {
		require.Greater(t, improvement, int64(0))
	} else {
		require.Equal(t, int64(0), improvement)
	}
}

// buildChainWithTwoCrossings builds block0={0,1,2}, block1={3,4,5} joined
// by two crossing edges (2-3 and 1-3), so the existing partition is not a
// minimum cut: the flow refiner should find the single-edge cut {0}|rest
// instead, moving vertices 1 and 2 into block 1.
func buildChainWithTwoCrossings(t *testing.T) (*datastructure.Graph, *datastructure.BoundaryIndex) {
	t.Helper()
	xadj := []int32{0, 1, 4, 6, 9, 11, 12}
	adjncy := []datastructure.HalfEdge{
		datastructure.NewHalfEdge(1, 1), // 0
		datastructure.NewHalfEdge(0, 1), datastructure.NewHalfEdge(2, 1), datastructure.NewHalfEdge(3, 1), // 1
		datastructure.NewHalfEdge(1, 1), datastructure.NewHalfEdge(3, 1), // 2
		datastructure.NewHalfEdge(2, 1), datastructure.NewHalfEdge(1, 1), datastructure.NewHalfEdge(4, 1), // 3
		datastructure.NewHalfEdge(3, 1), datastructure.NewHalfEdge(5, 1), // 4
		datastructure.NewHalfEdge(4, 1), // 5
	}
	vw := []int64{1, 1, 1, 1, 1, 1}
	partition := []int32{0, 0, 0, 1, 1, 1}
	g := datastructure.NewGraph(xadj, adjncy, vw, partition, 2)
	b := datastructure.NewBoundaryIndex(g)
	return g, b
}

func TestFlowRefinerFindsNarrowerCut(t *testing.T) {
	g, b := buildChainWithTwoCrossings(t)
	refiner := NewFlowRefiner()

	improvement, changed := refiner.Refine(g, b, 0, 1, nil)

	require.True(t, changed)
	require.Equal(t, int64(1), improvement)
	require.Equal(t, int32(0), g.Partition(0))
	require.Equal(t, int32(1), g.Partition(1))
	require.Equal(t, int32(1), g.Partition(2))
	require.Equal(t, int32(1), g.Partition(3))
	require.Equal(t, int64(1), b.GetBlockNoNodes(0))
	require.Equal(t, int64(5), b.GetBlockNoNodes(1))
	require.True(t, b.CheckInvariants())
}

func TestFlowRefinerWithEdmondsKarpMatchesDinic(t *testing.T) {
	g, b := buildChainWithTwoCrossings(t)
	refiner := &FlowRefiner{UseEdmondsKarp: true}

	improvement, changed := refiner.Refine(g, b, 0, 1, nil)

	require.True(t, changed)
	require.Equal(t, int64(1), improvement)
}

func TestFlowRefinerNoMembersIsNoOp(t *testing.T) {
	g, b := buildChainWithTwoCrossings(t)
	refiner := NewFlowRefiner()

	improvement, changed := refiner.Refine(g, b, 5, 6, nil)
	require.Equal(t, int64(0), improvement)
	require.False(t, changed)
}
