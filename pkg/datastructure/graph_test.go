package datastructure

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// buildPath builds an undirected path graph 0-1-2-3 with unit weights,
// split into 2 blocks {0,1} and {2,3}.
func buildPath(t *testing.T) *Graph {
	t.Helper()
	xadj := []int32{0, 1, 3, 5, 6}
	adjncy := []HalfEdge{
		NewHalfEdge(1, 1), // 0
		NewHalfEdge(0, 1), NewHalfEdge(2, 1), // 1
		NewHalfEdge(1, 1), NewHalfEdge(3, 1), // 2
		NewHalfEdge(2, 1), // 3
	}
	vw := []int64{1, 1, 1, 1}
	partition := []int32{0, 0, 1, 1}
	return NewGraph(xadj, adjncy, vw, partition, 2)
}

func TestGraphBasics(t *testing.T) {
	g := buildPath(t)
	require.Equal(t, 4, g.NumberOfNodes())
	require.Equal(t, 6, g.NumberOfEdges())
	require.Equal(t, int64(4), g.TotalVertexWeight())
	require.Equal(t, int32(2), g.MaxDegree())
	require.True(t, g.CheckWeightConservation())
}

func TestGraphSetPartitionPreservesWeightConservation(t *testing.T) {
	g := buildPath(t)
	g.SetPartition(1, 1)
	require.True(t, g.CheckWeightConservation())
	require.Equal(t, int32(1), g.Partition(1))
}

func TestGraphForEachOutEdge(t *testing.T) {
	g := buildPath(t)
	var targets []Index
	g.ForEachOutEdge(1, func(e HalfEdge) { targets = append(targets, e.Target()) })
	require.ElementsMatch(t, []Index{0, 2}, targets)
}
