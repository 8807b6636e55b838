package flow2way

import "github.com/lintang-b-s/kwayrefine/pkg/datastructure"

// MinCut records which vertices of a flow graph stayed reachable from the
// source in the final residual graph (flag=true means "source side") plus
// the capacity of the minimum cut found.
type MinCut struct {
	flags          []bool
	numSinkSide    int
	cutCapacity    int64
}

func NewMinCut(numberOfVertices int) *MinCut {
	return &MinCut{flags: make([]bool, numberOfVertices)}
}

func (mc *MinCut) SetFlag(u datastructure.Index, flag bool) { mc.flags[u] = flag }
func (mc *MinCut) GetFlag(u datastructure.Index) bool       { return mc.flags[u] }

func (mc *MinCut) GetNumNodesSinkSide() int { return mc.numSinkSide }
func (mc *MinCut) incrementNumSinkSide()    { mc.numSinkSide++ }

func (mc *MinCut) GetCutCapacity() int64     { return mc.cutCapacity }
func (mc *MinCut) setCutCapacity(c int64)    { mc.cutCapacity = c }
