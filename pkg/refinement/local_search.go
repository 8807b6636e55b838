package refinement

import (
	"math"

	"github.com/lintang-b-s/kwayrefine/pkg/datastructure"
	"github.com/lintang-b-s/kwayrefine/pkg/pq"
	"github.com/lintang-b-s/kwayrefine/pkg/stoprule"
)

// Permutation selects how start vertices are shuffled before insertion
// into the PQ.
type Permutation int

const (
	PermutationFast Permutation = iota
	PermutationGood
)

// RoundConfig carries the knobs a single_kway_refinement_round call reads.
type RoundConfig struct {
	UpperBoundPartition  []int64 // per-block hard weight cap
	MaxNumberOfMoves     int     // -1 means number_of_nodes
	Permutation          Permutation
	CompareWithSequential bool // tie-break via a shared global RNG instead of td.Rnd
}

// computeGain returns the block that maximizes the external weight of v
// into it, the resulting FM gain (external weight minus internal weight
// into v's current block), and the chosen external weight itself. When v
// has no external neighbor, to is -1 and extDegree=0.
func computeGain(g *datastructure.Graph, td *ThreadData, v datastructure.Index) (to int32, gain int64, extDegree int64) {
	from := td.LocalPart(g, v)
	var internal int64
	extSums := make(map[int32]int64)
	g.ForEachOutEdge(v, func(e datastructure.HalfEdge) {
		p := td.LocalPart(g, e.Target())
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

// localMoveNode attempts to move v from `from` to `to` against td's
// speculative view, enforcing the same weight/count constraints the
// applier later re-checks against the shared graph.
func localMoveNode(g *datastructure.Graph, td *ThreadData, v datastructure.Index, from, to int32) bool {
	if to < 0 {
		return false
	}
	if td.PartsSizes[from] == 1 {
		return false
	}
	w := g.VertexWeight(v)
	if td.PartsWeights[to]+w >= td.upperBound(to) {
		return false
	}
	td.PartsSizes[from]--
	td.PartsSizes[to]++
	td.PartsWeights[from] -= w
	td.PartsWeights[to] += w
	td.NodesPartitions[v] = to
	return true
}

// localMoveBackNode reverses the bookkeeping effect of an accepted move,
// touching only td's local override -- never the shared graph.
func localMoveBackNode(g *datastructure.Graph, td *ThreadData, v datastructure.Index, from, to int32) {
	w := g.VertexWeight(v)
	td.PartsSizes[to]--
	td.PartsSizes[from]++
	td.PartsWeights[to] -= w
	td.PartsWeights[from] += w
	td.NodesPartitions[v] = from
}

// ThreadData needs the per-block upper bound to evaluate moves; rather
// than thread it through every call we stash it at round start.
func (td *ThreadData) upperBound(block int32) int64 {
	if td.UpperBoundPartition == nil {
		return math.MaxInt64
	}
	return td.UpperBoundPartition[block]
}

// SingleKwayRefinementRound runs one thread's speculative local search
// starting from td.StartNodes. It returns the total cut delta
// achieved by the retained prefix, the index of the best prefix within
// td.Log, and the number of accepted (not necessarily retained) moves.
func SingleKwayRefinementRound(
	g *datastructure.Graph,
	td *ThreadData,
	shared *SharedMoveState,
	cfg RoundConfig,
	rule stoprule.StopRule,
	useBucketQueue bool,
) (deltaCut int64, bestPrefixIndex int, movementsCount int) {
	td.UpperBoundPartition = cfg.UpperBoundPartition

	var queue pq.Interface
	if useBucketQueue {
		maxRange := int64(g.MaxDegree()) * maxEdgeWeightEstimate(g)
		queue = pq.NewBucketPQ(maxRange)
	} else {
		queue = pq.NewMaxNodeHeap()
	}
	queue.Clear()

	order := append([]datastructure.Index(nil), td.StartNodes...)
	shuffleStartNodes(order, td.Rnd, cfg.Permutation)

	for _, v := range order {
		if !shared.TryClaim(v) {
			continue
		}
		_, gain, ext := computeGain(g, td, v)
		if ext == 0 {
			continue
		}
		queue.Insert(v, gain)
	}

	segmentStart := len(td.Log)
	cut := int64(math.MaxInt64 / 2)
	bestCut := cut
	minCutIndex := segmentStart - 1

	maxMoves := cfg.MaxNumberOfMoves
	if maxMoves < 0 {
		maxMoves = g.NumberOfNodes()
	}

	stepsSinceBest := 0

	for step := 0; step < maxMoves; step++ {
		if queue.Empty() {
			td.StopEmptyQueue++
			break
		}
		if shared.AnyFinished() {
			break
		}
		if rule.SearchShouldStop(minCutIndex-segmentStart+1, stepsSinceBest, maxMoves) {
			td.StopStoppingRule++
			break
		}

		v, g0, ok := queue.DeleteMax()
		if !ok {
			break
		}
		from := td.LocalPart(g, v)
		to, expected, _ := computeGain(g, td, v)
		if expected != g0 {
			// Stale key: the neighborhood changed since insertion. Refresh
			// and try again next iteration instead of asserting.
			if to >= 0 {
				queue.Insert(v, expected)
			}
			continue
		}

		if !localMoveNode(g, td, v, from, to) {
			continue
		}
		movementsCount++

		cut -= g0
		rule.PushStatistics(g0)
		stepsSinceBest++

		improved := cut < bestCut
		var tieWon bool
		if cfg.CompareWithSequential {
			tieWon = shared.TieBreak()
		} else {
			tieWon = td.Rnd.Intn(2) == 1
		}
		tie := cut == bestCut && tieWon
		if improved || tie {
			bestCut = cut
			minCutIndex = len(td.Log)
			if improved {
				stepsSinceBest = 0
				rule.ResetStatistics()
			}
		}

		td.Log = append(td.Log, MoveLogEntry{Vertex: v, From: from, To: to, Gain: g0})

		g.ForEachOutEdge(v, func(e datastructure.HalfEdge) {
			t := e.Target()
			tTo, tGain, tExt := computeGain(g, td, t)
			switch {
			case queue.Contains(t):
				if tExt == 0 {
					queue.DeleteNode(t)
				} else {
					queue.ChangeKey(t, tGain)
				}
			case !shared.IsClaimed(t):
				if tExt != 0 && shared.TryClaim(t) {
					_ = tTo
					queue.Insert(t, tGain)
				}
			}
		})
	}

	// Unroll the tail beyond minCutIndex.
	for i := len(td.Log) - 1; i > minCutIndex; i-- {
		e := td.Log[i]
		localMoveBackNode(g, td, e.Vertex, e.From, e.To)
	}
	td.Log = td.Log[:minCutIndex+1]
	td.Log = append(td.Log, MoveLogEntry{Sentinel: true})

	nextSegmentStart := len(td.Log)
	recordedIndex := minCutIndex
	if minCutIndex < segmentStart {
		recordedIndex = -1
	}
	td.MinCutIndices = append(td.MinCutIndices, MinCutIndex{Index: recordedIndex, NextSegmentStart: nextSegmentStart})

	// bestCut is the sentinel decremented by every accepted gain along the
	// retained prefix, so the improvement is the distance back up to the
	// sentinel.
	deltaCut = int64(math.MaxInt64/2) - bestCut
	return deltaCut, recordedIndex, movementsCount
}

func shuffleStartNodes(nodes []datastructure.Index, r interface{ Intn(int) int }, perm Permutation) {
	if perm == PermutationFast {
		return
	}
	for i := len(nodes) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
}

// maxEdgeWeightEstimate bounds the bucket PQ range; scanning the whole
// graph once per round is acceptable since bucket sizing only happens at
// round start, not per move.
func maxEdgeWeightEstimate(g *datastructure.Graph) int64 {
	var max int64 = 1
	for v := 0; v < g.NumberOfNodes(); v++ {
		g.ForEachOutEdge(datastructure.Index(v), func(e datastructure.HalfEdge) {
			if e.Weight() > max {
				max = e.Weight()
			}
		})
	}
	return max
}
