package contraction

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lintang-b-s/kwayrefine/pkg/datastructure"
)

// buildChain builds an unweighted 0-1-2-3 path, vertex weight 1 each, to be
// contracted under clusters {0,1} and {2,3}. The only inter-cluster edge is
// 1-2, visited once from each endpoint, so the growing hashmap accumulates
// weight 2 under the canonical (0,1) key before buildCoarseGraph halves it
// back to the true undirected weight of 1.
func buildChain(t *testing.T) (*datastructure.Graph, []int32) {
	t.Helper()
	xadj := []int32{0, 1, 3, 5, 6}
	adjncy := []datastructure.HalfEdge{
		datastructure.NewHalfEdge(1, 1),
		datastructure.NewHalfEdge(0, 1), datastructure.NewHalfEdge(2, 1),
		datastructure.NewHalfEdge(1, 1), datastructure.NewHalfEdge(3, 1),
		datastructure.NewHalfEdge(2, 1),
	}
	vw := []int64{1, 1, 1, 1}
	partition := []int32{0, 0, 0, 0}
	g := datastructure.NewGraph(xadj, adjncy, vw, partition, 1)
	clusterOf := []int32{0, 0, 1, 1}
	return g, clusterOf
}

func assertContractedChain(t *testing.T, coarse *datastructure.Graph) {
	t.Helper()
	require.Equal(t, 2, coarse.NumberOfNodes())
	require.Equal(t, 2, coarse.NumberOfEdges())
	require.Equal(t, int64(2), coarse.VertexWeight(0))
	require.Equal(t, int64(2), coarse.VertexWeight(1))

	var weightTo1 int64 = -1
	coarse.ForEachOutEdge(0, func(e datastructure.HalfEdge) {
		if e.Target() == 1 {
			weightTo1 = e.Weight()
		}
	})
	require.Equal(t, int64(1), weightTo1)
}

func TestContractSingleThreadedHalvesDoubleCountedCutEdge(t *testing.T) {
	g, clusterOf := buildChain(t)
	coarse := ContractSingleThreaded(g, clusterOf, 2)
	assertContractedChain(t, coarse)
}

func TestContractParallelMatchesSingleThreaded(t *testing.T) {
	g, clusterOf := buildChain(t)
	coarse := ContractParallel(g, clusterOf, 2, 4)
	assertContractedChain(t, coarse)
}

func TestContractDispatchesByFastClusteringFlag(t *testing.T) {
	g, clusterOf := buildChain(t)
	coarse := Contract(g, clusterOf, 2, 4, true)
	assertContractedChain(t, coarse)

	coarse2 := Contract(g, clusterOf, 2, 1, false)
	assertContractedChain(t, coarse2)
}

func TestContractCollapsingEverythingIntoOneClusterHasNoEdges(t *testing.T) {
	g, _ := buildChain(t)
	clusterOf := []int32{0, 0, 0, 0}
	coarse := ContractSingleThreaded(g, clusterOf, 1)

	require.Equal(t, 1, coarse.NumberOfNodes())
	require.Equal(t, 0, coarse.NumberOfEdges())
	require.Equal(t, int64(4), coarse.VertexWeight(0))
}

func TestPackUnpackKeyIsOrderIndependent(t *testing.T) {
	require.Equal(t, packKey(3, 7), packKey(7, 3))
	a, b := unpackKey(packKey(2, 9))
	require.Equal(t, int32(2), a)
	require.Equal(t, int32(9), b)
}
