package refinement

import (
	"math"

	"golang.org/x/exp/rand"

	"github.com/lintang-b-s/kwayrefine/pkg/datastructure"
	"github.com/lintang-b-s/kwayrefine/pkg/stoprule"
)

// ApplyMoveStrategy selects the conflict-resolution behavior dispatched by
// the conflict-aware applier when a thread's segment must be aborted.
type ApplyMoveStrategy int

const (
	StrategyLocalSearch ApplyMoveStrategy = iota
	StrategyGainRecalculation
	StrategyReactiveVertices
	StrategySkip
)

// MovedEntry records which thread last took ownership of a vertex during
// the apply phase, and the block it moved it from.
type MovedEntry struct {
	ThreadID uint32
	From     int32
}

// MovedNodesMap is the moved_nodes_hash_map shared by threads applying
// their logs in sequence. The apply phase is strictly serial, so a plain
// map needs no locking.
type MovedNodesMap struct {
	m map[datastructure.Index]MovedEntry
}

func NewMovedNodesMap() *MovedNodesMap {
	return &MovedNodesMap{m: make(map[datastructure.Index]MovedEntry)}
}

// IsMoved reports whether v was claimed by a thread other than myID.
func (mn *MovedNodesMap) IsMoved(v datastructure.Index, myID uint32) bool {
	e, ok := mn.m[v]
	return ok && e.ThreadID != myID
}

func (mn *MovedNodesMap) Entry(v datastructure.Index) (MovedEntry, bool) {
	e, ok := mn.m[v]
	return e, ok
}

func (mn *MovedNodesMap) Set(v datastructure.Index, threadID uint32, from int32) {
	mn.m[v] = MovedEntry{ThreadID: threadID, From: from}
}

func (mn *MovedNodesMap) Delete(v datastructure.Index) {
	delete(mn.m, v)
}

// realComputeGain mirrors computeGain but reads the real (already
// partially mutated, in the applier) shared graph instead of a thread's
// speculative override.
func realComputeGain(g *datastructure.Graph, v datastructure.Index) (to int32, gain int64, extDegree int64) {
	from := g.Partition(v)
	var internal int64
	extSums := make(map[int32]int64)
	g.ForEachOutEdge(v, func(e datastructure.HalfEdge) {
		p := g.Partition(e.Target())
		if p == from {
			internal += e.Weight()
		} else {
			extSums[p] += e.Weight()
		}
	})
	if len(extSums) == 0 {
		return -1, 0, 0
	}
	var best int32 = -1
	var bestWeight int64 = -1
	for p, w := range extSums {
		if w > bestWeight || (w == bestWeight && p < best) {
			bestWeight = w
			best = p
		}
	}
	return best, bestWeight - internal, bestWeight
}

// relaxedMoveNode applies a move to the real shared graph and boundary,
// enforcing the same weight/count constraints as localMoveNode.
func relaxedMoveNode(g *datastructure.Graph, b *datastructure.BoundaryIndex, v datastructure.Index, from, to int32, upperBound []int64) bool {
	if to < 0 {
		return false
	}
	if b.GetBlockNoNodes(from) == 1 {
		return false
	}
	w := g.VertexWeight(v)
	capLimit := int64(math.MaxInt64)
	if upperBound != nil {
		capLimit = upperBound[to]
	}
	if b.GetBlockWeight(to)+w >= capLimit {
		return false
	}
	g.SetPartition(v, to)
	b.SetBlockNoNodes(from, b.GetBlockNoNodes(from)-1)
	b.SetBlockNoNodes(to, b.GetBlockNoNodes(to)+1)
	b.SetBlockWeight(from, b.GetBlockWeight(from)-w)
	b.SetBlockWeight(to, b.GetBlockWeight(to)+w)
	b.PostMovedBoundaryNodeUpdates(v, from, to)
	return true
}

// relaxedMoveNodeBack is the exact inverse of relaxedMoveNode.
func relaxedMoveNodeBack(g *datastructure.Graph, b *datastructure.BoundaryIndex, v datastructure.Index, from, to int32) {
	w := g.VertexWeight(v)
	g.SetPartition(v, from)
	b.SetBlockNoNodes(to, b.GetBlockNoNodes(to)-1)
	b.SetBlockNoNodes(from, b.GetBlockNoNodes(from)+1)
	b.SetBlockWeight(to, b.GetBlockWeight(to)-w)
	b.SetBlockWeight(from, b.GetBlockWeight(from)+w)
	b.PostMovedBoundaryNodeUpdates(v, to, from)
}

type appliedMove struct {
	logIndex int
	entry    MoveLogEntry
}

// ApplyMovesSimple is the decoupled-speculation applier variant: used for
// a single thread's log when there is no cross-thread conflict to
// reconcile.
func ApplyMovesSimple(g *datastructure.Graph, b *datastructure.BoundaryIndex, td *ThreadData, upperBound []int64, rnd *rand.Rand) (cutImprovement int64) {
	segStart := 0
	for _, mci := range td.MinCutIndices {
		segEnd := mci.NextSegmentStart
		if mci.Index < 0 {
			segStart = segEnd
			continue
		}
		gained, reverted := applySegmentBestPrefix(g, b, td.Log, segStart, mci.Index, upperBound, rnd)
		cutImprovement += gained
		td.UnperformedGain += reverted
		segStart = segEnd
	}
	td.PerformedGain += cutImprovement
	return cutImprovement
}

// applySegmentBestPrefix replays log[from..to] against the real graph,
// recomputing actual gain at each step, retaining only the best prefix. The
// second return value is the gain walked past the best prefix and then
// reverted.
func applySegmentBestPrefix(g *datastructure.Graph, b *datastructure.BoundaryIndex, log []MoveLogEntry, from, to int, upperBound []int64, rnd *rand.Rand) (bestGain, revertedGain int64) {
	applied := make([]appliedMove, 0, to-from+1)
	var totalGain int64
	bestPos := 0
	for i := from; i <= to; i++ {
		v := log[i].Vertex
		toBlock, gainActual, ext := realComputeGain(g, v)
		if ext == 0 || toBlock < 0 {
			continue
		}
		fromBlock := g.Partition(v)
		if !relaxedMoveNode(g, b, v, fromBlock, toBlock, upperBound) {
			continue
		}
		applied = append(applied, appliedMove{i, MoveLogEntry{Vertex: v, From: fromBlock, To: toBlock, Gain: gainActual}})
		totalGain += gainActual
		tie := totalGain == bestGain && rnd.Intn(2) == 1
		if totalGain > bestGain || tie {
			bestGain = totalGain
			bestPos = len(applied)
		}
	}
	for i := len(applied) - 1; i >= bestPos; i-- {
		m := applied[i].entry
		relaxedMoveNodeBack(g, b, m.Vertex, m.From, m.To)
		revertedGain += m.Gain
	}
	return bestGain, revertedGain
}

// ApplyMovesConflictAware is the shared moved_nodes_hash_map variant. It
// must be called once per thread in a strictly serial sequence (thread 0
// first, then completion order) against the real shared graph/boundary.
func ApplyMovesConflictAware(
	g *datastructure.Graph,
	b *datastructure.BoundaryIndex,
	td *ThreadData,
	upperBound []int64,
	moved *MovedNodesMap,
	notMoved map[datastructure.Index]bool,
	strategy ApplyMoveStrategy,
	reactivated *[]datastructure.Index,
	cfg RoundConfig,
	reactiveAllBoundary bool,
) (cutImprovement int64) {
	segStart := 0
	for _, mci := range td.MinCutIndices {
		segEnd := mci.NextSegmentStart
		if mci.Index < 0 {
			segStart = segEnd
			continue
		}

		applied := make([]appliedMove, 0, mci.Index-segStart+1)
		var totalGain, bestGain int64
		bestPos := 0
		abortAt := -1

	segmentLoop:
		for i := segStart; i <= mci.Index; i++ {
			e := td.Log[i]
			v := e.Vertex

			if moved.IsMoved(v, uint32(td.ID)) {
				abortAt = i
				break segmentLoop
			}

			conflict := false
			g.ForEachOutEdge(v, func(ed datastructure.HalfEdge) {
				if conflict {
					return
				}
				t := ed.Target()
				entry, hasEntry := moved.Entry(t)
				if !(moved.IsMoved(t, uint32(td.ID)) || notMoved[t]) {
					return
				}
				targetPartition := g.Partition(t)
				prevTargetPartition := int32(-1)
				if hasEntry {
					prevTargetPartition = entry.From
				}
				if notMoved[t] || targetPartition == e.From || targetPartition == e.To ||
					prevTargetPartition == e.From || prevTargetPartition == e.To {
					conflict = true
				}
			})
			if conflict {
				abortAt = i
				break segmentLoop
			}

			fromBlock, toBlock, gainActual := e.From, e.To, e.Gain
			if !relaxedMoveNode(g, b, v, fromBlock, toBlock, upperBound) {
				abortAt = i
				break segmentLoop
			}
			moved.Set(v, uint32(td.ID), fromBlock)
			if strategy == StrategyReactiveVertices && reactiveAllBoundary {
				*reactivated = append(*reactivated, v)
				g.ForEachOutEdge(v, func(ed datastructure.HalfEdge) {
					*reactivated = append(*reactivated, ed.Target())
				})
			}
			applied = append(applied, appliedMove{i, MoveLogEntry{Vertex: v, From: fromBlock, To: toBlock, Gain: gainActual}})
			totalGain += gainActual
			tie := totalGain == bestGain && td.Rnd.Intn(2) == 1
			if totalGain > bestGain || tie {
				bestGain = totalGain
				bestPos = len(applied)
			}
		}

		for i := len(applied) - 1; i >= bestPos; i-- {
			m := applied[i].entry
			relaxedMoveNodeBack(g, b, m.Vertex, m.From, m.To)
			moved.Delete(m.Vertex)
		}
		cutImprovement += bestGain

		if abortAt >= 0 {
			bestCutIndex := segStart - 1
			if bestPos > 0 {
				bestCutIndex = applied[bestPos-1].logIndex
			}
			for i := bestCutIndex + 1; i <= mci.Index; i++ {
				notMoved[td.Log[i].Vertex] = true
			}
			cutImprovement += dispatchConflictStrategy(g, b, td, upperBound, strategy, bestCutIndex, mci.Index, abortAt, reactivated, cfg)
		}

		segStart = segEnd
	}
	td.PerformedGain += cutImprovement
	return cutImprovement
}

// dispatchConflictStrategy resolves a segment that was aborted due to
// conflict.
func dispatchConflictStrategy(
	g *datastructure.Graph,
	b *datastructure.BoundaryIndex,
	td *ThreadData,
	upperBound []int64,
	strategy ApplyMoveStrategy,
	bestCutIndex, nextIndex, abortAt int,
	reactivated *[]datastructure.Index,
	cfg RoundConfig,
) int64 {
	switch strategy {
	case StrategySkip:
		return 0
	case StrategyReactiveVertices:
		if abortAt >= 0 && abortAt < len(td.Log) {
			v := td.Log[abortAt].Vertex
			*reactivated = append(*reactivated, v)
			g.ForEachOutEdge(v, func(ed datastructure.HalfEdge) {
				*reactivated = append(*reactivated, ed.Target())
			})
		}
		return 0
	case StrategyGainRecalculation:
		if bestCutIndex+1 > nextIndex {
			return 0
		}
		gained, reverted := applySegmentBestPrefix(g, b, td.Log, bestCutIndex+1, nextIndex, upperBound, td.Rnd)
		td.UnperformedGain += reverted
		return gained
	case StrategyLocalSearch:
		if bestCutIndex+1 >= len(td.Log) {
			return 0
		}
		budget := (nextIndex - bestCutIndex - 1) * 2
		budget += 100
		return runRestartedLocalSearch(g, b, td, upperBound, td.Log[bestCutIndex+1].Vertex, budget, cfg)
	}
	return 0
}

// runRestartedLocalSearch implements the LOCAL_SEARCH conflict strategy:
// a fresh speculative search seeded from a single vertex with a bounded
// move budget, applied immediately via the decoupled applier variant.
func runRestartedLocalSearch(g *datastructure.Graph, b *datastructure.BoundaryIndex, td *ThreadData, upperBound []int64, start datastructure.Index, budget int, cfg RoundConfig) int64 {
	fresh := NewThreadData(td.ID, len(td.PartsSizes), uint64(td.Rnd.Int63()), b.BlockWeightsSnapshot(len(td.PartsSizes)), b.BlockCountsSnapshot(len(td.PartsSizes)))
	fresh.StartNodes = []datastructure.Index{start}
	shared := NewSharedMoveState(g.NumberOfNodes())
	rule := stoprule.NewSimple(budget)
	subCfg := cfg
	subCfg.MaxNumberOfMoves = budget
	SingleKwayRefinementRound(g, fresh, shared, subCfg, rule, false)
	return ApplyMovesSimple(g, b, fresh, upperBound, td.Rnd)
}
