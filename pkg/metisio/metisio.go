// Package metisio reads a METIS-style CSR graph file (optionally
// bzip2-compressed), reads/writes a partition file, and prints the
// standard partitioning metrics.
package metisio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dsnet/compress/bzip2"

	"github.com/lintang-b-s/kwayrefine/pkg/datastructure"
)

// ReadGraph parses a METIS graph file: a header line "n m [fmt] [ncon]"
// followed by one line per vertex of [vertex weights...] (neighbor
// edge_weight)*. fmt bit 0 selects edge weights, bit 1 vertex weights,
// matching the standard gpmetis/mpmetis convention. Files ending in .bz2
// are transparently decompressed via bzip2.NewReader.
func ReadGraph(filename string, k int) (*datastructure.Graph, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(filename, ".bz2") {
		bz, err := bzip2.NewReader(f, nil)
		if err != nil {
			return nil, err
		}
		r = bz
	}

	br := bufio.NewReader(r)

	header, err := readNonCommentLine(br)
	if err != nil {
		return nil, err
	}
	headerFields := strings.Fields(header)
	if len(headerFields) < 2 {
		return nil, fmt.Errorf("metisio: malformed header %q", header)
	}
	n, err := strconv.Atoi(headerFields[0])
	if err != nil {
		return nil, fmt.Errorf("metisio: bad vertex count: %w", err)
	}
	hasEdgeWeights, hasVertexWeights := false, false
	if len(headerFields) >= 3 {
		fmtCode := headerFields[2]
		hasEdgeWeights = len(fmtCode) > 0 && fmtCode[len(fmtCode)-1] == '1'
		hasVertexWeights = len(fmtCode) > 1 && fmtCode[len(fmtCode)-2] == '1'
	}

	xadj := make([]int32, n+1)
	vertexWeights := make([]int64, n)
	partition := make([]int32, n)
	adjncyPerVertex := make([][]datastructure.HalfEdge, n)

	for v := 0; v < n; v++ {
		line, err := readNonCommentLine(br)
		if err != nil {
			return nil, fmt.Errorf("metisio: reading vertex %d: %w", v, err)
		}
		fields := strings.Fields(line)
		idx := 0
		vw := int64(1)
		if hasVertexWeights {
			if idx >= len(fields) {
				return nil, fmt.Errorf("metisio: vertex %d missing weight", v)
			}
			vw, err = strconv.ParseInt(fields[idx], 10, 64)
			if err != nil {
				return nil, err
			}
			idx++
		}
		vertexWeights[v] = vw

		edges := make([]datastructure.HalfEdge, 0, (len(fields)-idx)/2+1)
		for idx < len(fields) {
			nb, err := strconv.Atoi(fields[idx])
			if err != nil {
				return nil, err
			}
			idx++
			ew := int64(1)
			if hasEdgeWeights {
				if idx >= len(fields) {
					return nil, fmt.Errorf("metisio: vertex %d missing edge weight", v)
				}
				ew, err = strconv.ParseInt(fields[idx], 10, 64)
				if err != nil {
					return nil, err
				}
				idx++
			}
			edges = append(edges, datastructure.NewHalfEdge(datastructure.Index(nb-1), ew))
		}
		adjncyPerVertex[v] = edges
	}

	for v := 0; v < n; v++ {
		xadj[v+1] = xadj[v] + int32(len(adjncyPerVertex[v]))
	}
	adjncy := make([]datastructure.HalfEdge, xadj[n])
	for v := 0; v < n; v++ {
		copy(adjncy[xadj[v]:xadj[v+1]], adjncyPerVertex[v])
	}

	return datastructure.NewGraph(xadj, adjncy, vertexWeights, partition, k), nil
}

func readNonCommentLine(br *bufio.Reader) (string, error) {
	for {
		line, err := br.ReadString('\n')
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed != "" && !strings.HasPrefix(strings.TrimSpace(trimmed), "%") {
			return trimmed, nil
		}
		if err != nil {
			if err == io.EOF && trimmed != "" {
				return trimmed, nil
			}
			return "", err
		}
	}
}

// ReadPartitionFile loads a pre-existing partition assignment, one block
// id per line, into g.
func ReadPartitionFile(filename string, g *datastructure.Graph) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	for v := 0; v < g.NumberOfNodes(); v++ {
		line, err := br.ReadString('\n')
		trimmed := strings.TrimSpace(line)
		if trimmed == "" && err != nil {
			return fmt.Errorf("metisio: partition file short, expected %d lines: %w", g.NumberOfNodes(), err)
		}
		p, perr := strconv.Atoi(trimmed)
		if perr != nil {
			return fmt.Errorf("metisio: partition file line %d: %w", v, perr)
		}
		g.SetPartition(datastructure.Index(v), int32(p))
		if err != nil && v != g.NumberOfNodes()-1 {
			return fmt.Errorf("metisio: partition file short, expected %d lines, stopped at %d: %w", g.NumberOfNodes(), v, err)
		}
	}
	return nil
}

// WritePartition writes one block id per line.
func WritePartition(filename string, g *datastructure.Graph) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()
	for v := 0; v < g.NumberOfNodes(); v++ {
		if _, err := fmt.Fprintf(w, "%d\n", g.Partition(datastructure.Index(v))); err != nil {
			return err
		}
	}
	return nil
}

// PrintMetrics prints edge_cut, boundary_nodes, balance and
// max_communication_volume to stdout.
func PrintMetrics(g *datastructure.Graph, b *datastructure.BoundaryIndex) {
	var edgeCut int64
	boundaryNodes := 0
	commVolume := make([]int64, g.NumberOfNodes())
	for v := 0; v < g.NumberOfNodes(); v++ {
		vi := datastructure.Index(v)
		p := g.Partition(vi)
		neighborsOut := 0
		g.ForEachOutEdge(vi, func(e datastructure.HalfEdge) {
			if q := g.Partition(e.Target()); q != p {
				edgeCut += e.Weight()
				neighborsOut++
				commVolume[v]++
			}
		})
		if neighborsOut > 0 {
			boundaryNodes++
		}
	}
	edgeCut /= 2 // each crossing edge counted from both endpoints

	var maxCommVolume int64
	for _, c := range commVolume {
		if c > maxCommVolume {
			maxCommVolume = c
		}
	}

	avgWeight := float64(g.TotalVertexWeight()) / float64(g.K())
	var maxWeight int64
	for blk := int32(0); blk < int32(g.K()); blk++ {
		if w := b.GetBlockWeight(blk); w > maxWeight {
			maxWeight = w
		}
	}
	balance := float64(maxWeight) / avgWeight

	fmt.Printf("edge_cut: %d\n", edgeCut)
	fmt.Printf("boundary_nodes: %d\n", boundaryNodes)
	fmt.Printf("balance: %.4f\n", balance)
	fmt.Printf("max_communication_volume: %d\n", maxCommVolume)
}
