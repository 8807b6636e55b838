package refinement

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lintang-b-s/kwayrefine/pkg/datastructure"
	"github.com/lintang-b-s/kwayrefine/pkg/stoprule"
)

// buildTwoBlockGraph builds a 4-vertex graph split 2/2 across two blocks
// where vertex 1 has one internal neighbor (vertex 0) and two external
// ones, so moving it into block 1 has a strictly positive FM gain of 1
// (external weight 2 minus internal weight 1).
//
//	0 --- 1 --- 2
//	       \   /
//	        `-3
//
// edges: 0-1 (internal to block0), 1-2, 1-3 (external), 2-3 (internal to
// block1). Moving vertex 1 into block1 gives gain = (1+1) - 1 = 1.
func buildTwoBlockGraph(t *testing.T) (*datastructure.Graph, *datastructure.BoundaryIndex) {
	t.Helper()
	xadj := []int32{0, 1, 4, 6, 8}
	adjncy := []datastructure.HalfEdge{
		datastructure.NewHalfEdge(1, 1), // 0
		datastructure.NewHalfEdge(0, 1), datastructure.NewHalfEdge(2, 1), datastructure.NewHalfEdge(3, 1), // 1
		datastructure.NewHalfEdge(1, 1), datastructure.NewHalfEdge(3, 1), // 2
		datastructure.NewHalfEdge(1, 1), datastructure.NewHalfEdge(2, 1), // 3
	}
	vw := []int64{1, 1, 1, 1}
	partition := []int32{0, 0, 1, 1}
	g := datastructure.NewGraph(xadj, adjncy, vw, partition, 2)
	b := datastructure.NewBoundaryIndex(g)
	return g, b
}

func TestSingleKwayRefinementRoundFindsPositiveGainMove(t *testing.T) {
	g, b := buildTwoBlockGraph(t)

	td := NewThreadData(0, 2, 1, []int64{b.GetBlockWeight(0), b.GetBlockWeight(1)}, []int64{b.GetBlockNoNodes(0), b.GetBlockNoNodes(1)})
	td.StartNodes = []datastructure.Index{1}

	shared := NewSharedMoveState(g.NumberOfNodes())
	cfg := RoundConfig{
		UpperBoundPartition: []int64{100, 100},
		MaxNumberOfMoves:    10,
		Permutation:         PermutationFast,
	}
	rule := stoprule.NewSimple(50)

	deltaCut, recordedIndex, movementsCount := SingleKwayRefinementRound(g, td, shared, cfg, rule, false)

	require.Equal(t, int64(1), deltaCut)
	require.Equal(t, 0, recordedIndex)
	require.Equal(t, 1, movementsCount)
	require.Len(t, td.Log, 2) // the retained move plus its segment sentinel
	require.True(t, td.Log[1].Sentinel)
	require.Equal(t, datastructure.Index(1), td.Log[0].Vertex)
	require.Equal(t, int32(1), td.Log[0].To)

	// The speculative search never touches the real graph.
	require.Equal(t, int32(0), g.Partition(1))
}

func TestSingleKwayRefinementRoundEmptyQueueStopsImmediately(t *testing.T) {
	g, b := buildTwoBlockGraph(t)

	// Vertex 0's only neighbor is internal, so it has no external weight
	// and never enters the queue.
	td := NewThreadData(0, 2, 1, []int64{b.GetBlockWeight(0), b.GetBlockWeight(1)}, []int64{b.GetBlockNoNodes(0), b.GetBlockNoNodes(1)})
	td.StartNodes = []datastructure.Index{0}

	shared := NewSharedMoveState(g.NumberOfNodes())
	cfg := RoundConfig{UpperBoundPartition: []int64{100, 100}, MaxNumberOfMoves: 10, Permutation: PermutationFast}
	rule := stoprule.NewSimple(50)

	deltaCut, recordedIndex, movementsCount := SingleKwayRefinementRound(g, td, shared, cfg, rule, false)

	require.Equal(t, int64(0), deltaCut)
	require.Equal(t, -1, recordedIndex)
	require.Equal(t, 0, movementsCount)
	require.Equal(t, 1, td.StopEmptyQueue)
}

func TestSingleKwayRefinementRoundRespectsBlockEmptinessConstraint(t *testing.T) {
	g, b := buildTwoBlockGraph(t)

	// Shrink block 0 to a single node so that moving its last remaining
	// vertex is always rejected by localMoveNode.
	td := NewThreadData(0, 2, 1, []int64{b.GetBlockWeight(0), b.GetBlockWeight(1)}, []int64{1, b.GetBlockNoNodes(1)})
	td.StartNodes = []datastructure.Index{1}

	shared := NewSharedMoveState(g.NumberOfNodes())
	cfg := RoundConfig{UpperBoundPartition: []int64{100, 100}, MaxNumberOfMoves: 10, Permutation: PermutationFast}
	rule := stoprule.NewSimple(50)

	deltaCut, _, movementsCount := SingleKwayRefinementRound(g, td, shared, cfg, rule, false)

	require.Equal(t, int64(0), deltaCut)
	require.Equal(t, 0, movementsCount)
}

func TestSingleKwayRefinementRoundWithBucketQueue(t *testing.T) {
	g, b := buildTwoBlockGraph(t)

	td := NewThreadData(0, 2, 1, []int64{b.GetBlockWeight(0), b.GetBlockWeight(1)}, []int64{b.GetBlockNoNodes(0), b.GetBlockNoNodes(1)})
	td.StartNodes = []datastructure.Index{1}

	shared := NewSharedMoveState(g.NumberOfNodes())
	cfg := RoundConfig{UpperBoundPartition: []int64{100, 100}, MaxNumberOfMoves: 10, Permutation: PermutationFast}
	rule := stoprule.NewSimple(50)

	deltaCut, _, movementsCount := SingleKwayRefinementRound(g, td, shared, cfg, rule, true)

	require.Equal(t, int64(1), deltaCut)
	require.Equal(t, 1, movementsCount)
}
