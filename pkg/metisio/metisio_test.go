package metisio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lintang-b-s/kwayrefine/pkg/datastructure"
)

func writeTempFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.txt")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestReadGraphUnweighted(t *testing.T) {
	path := writeTempFile(t, "4 3\n2\n1 3\n2 4\n3\n")

	g, err := ReadGraph(path, 2)
	require.NoError(t, err)
	require.Equal(t, 4, g.NumberOfNodes())
	require.Equal(t, 6, g.NumberOfEdges())
	require.Equal(t, int64(1), g.VertexWeight(0))

	var w12 int64 = -1
	g.ForEachOutEdge(0, func(e datastructure.HalfEdge) {
		if e.Target() == 1 {
			w12 = e.Weight()
		}
	})
	require.Equal(t, int64(1), w12)
}

func TestReadGraphWithVertexAndEdgeWeights(t *testing.T) {
	contents := "4 3 11\n" +
		"2 2 4\n" +
		"5 1 4 3 7\n" +
		"1 2 7 4 2\n" +
		"2 3 2\n"
	path := writeTempFile(t, contents)

	g, err := ReadGraph(path, 2)
	require.NoError(t, err)
	require.Equal(t, int64(10), g.TotalVertexWeight())
	require.Equal(t, int64(2), g.VertexWeight(0))
	require.Equal(t, int64(5), g.VertexWeight(1))

	var w12, w23, w34 int64
	g.ForEachOutEdge(0, func(e datastructure.HalfEdge) {
		if e.Target() == 1 {
			w12 = e.Weight()
		}
	})
	g.ForEachOutEdge(1, func(e datastructure.HalfEdge) {
		if e.Target() == 2 {
			w23 = e.Weight()
		}
	})
	g.ForEachOutEdge(2, func(e datastructure.HalfEdge) {
		if e.Target() == 3 {
			w34 = e.Weight()
		}
	})
	require.Equal(t, int64(4), w12)
	require.Equal(t, int64(7), w23)
	require.Equal(t, int64(2), w34)
}

func TestReadGraphSkipsCommentLines(t *testing.T) {
	path := writeTempFile(t, "% a comment\n4 3\n2\n1 3\n2 4\n3\n")
	g, err := ReadGraph(path, 2)
	require.NoError(t, err)
	require.Equal(t, 4, g.NumberOfNodes())
}

func TestReadPartitionFileAssignsBlocks(t *testing.T) {
	path := writeTempFile(t, "4 3\n2\n1 3\n2 4\n3\n")
	g, err := ReadGraph(path, 2)
	require.NoError(t, err)

	partPath := filepath.Join(t.TempDir(), "part.txt")
	require.NoError(t, os.WriteFile(partPath, []byte("0\n0\n1\n1\n"), 0o644))

	require.NoError(t, ReadPartitionFile(partPath, g))
	require.Equal(t, int32(0), g.Partition(0))
	require.Equal(t, int32(0), g.Partition(1))
	require.Equal(t, int32(1), g.Partition(2))
	require.Equal(t, int32(1), g.Partition(3))
}

func TestReadPartitionFileRejectsShortFile(t *testing.T) {
	path := writeTempFile(t, "4 3\n2\n1 3\n2 4\n3\n")
	g, err := ReadGraph(path, 2)
	require.NoError(t, err)

	partPath := filepath.Join(t.TempDir(), "part.txt")
	require.NoError(t, os.WriteFile(partPath, []byte("0\n0\n"), 0o644))

	require.Error(t, ReadPartitionFile(partPath, g))
}

func TestWritePartitionRoundTrip(t *testing.T) {
	path := writeTempFile(t, "4 3\n2\n1 3\n2 4\n3\n")
	g, err := ReadGraph(path, 2)
	require.NoError(t, err)

	g.SetPartition(0, 0)
	g.SetPartition(1, 0)
	g.SetPartition(2, 1)
	g.SetPartition(3, 1)

	outPath := filepath.Join(t.TempDir(), "out.part")
	require.NoError(t, WritePartition(outPath, g))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Equal(t, []string{"0", "0", "1", "1"}, lines)
}
