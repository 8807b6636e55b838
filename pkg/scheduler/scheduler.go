// Package scheduler drives refinement across the quotient graph's block
// pairs: picking a (lhs,rhs) edge, running an optional 2-way pass,
// optionally the k-way multitry engine around the pair, and deciding
// whether to keep iterating.
package scheduler

import (
	"sort"

	"golang.org/x/exp/rand"

	"go.uber.org/zap"

	"github.com/lintang-b-s/kwayrefine/pkg/concurrent"
	"github.com/lintang-b-s/kwayrefine/pkg/config"
	"github.com/lintang-b-s/kwayrefine/pkg/datastructure"
	"github.com/lintang-b-s/kwayrefine/pkg/flow2way"
	"github.com/lintang-b-s/kwayrefine/pkg/refinement"
	"github.com/lintang-b-s/kwayrefine/pkg/stoprule"
)

// RoundStats is pushed once per scheduler iteration.
type RoundStats struct {
	Lhs, Rhs    int32
	Improvement int64
	Changed     bool
	KwayRan     bool
}

// Scheduler owns the graph/boundary for the duration of one refinement
// phase and dispatches to the configured scheduling algorithm. logger may
// be nil.
type Scheduler struct {
	g       *datastructure.Graph
	b       *datastructure.BoundaryIndex
	opts    *config.Options
	refiner flow2way.TwoWayRefiner
	rnd     *rand.Rand
	logger  *zap.Logger
	Stats   []RoundStats
}

func New(g *datastructure.Graph, b *datastructure.BoundaryIndex, opts *config.Options, refiner flow2way.TwoWayRefiner, seed uint64, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		g:       g,
		b:       b,
		opts:    opts,
		refiner: refiner,
		rnd:     rand.New(rand.NewSource(seed)),
		logger:  logger,
	}
}

// Run dispatches to the configured scheduling algorithm.
func (s *Scheduler) Run() []RoundStats {
	switch s.opts.RefinementSchedulingAlgorithm {
	case config.SchedulingActiveBlocks, config.SchedulingActiveBlocksRefKway:
		s.runActiveBlocks(s.opts.RefinementSchedulingAlgorithm == config.SchedulingActiveBlocksRefKway)
	default:
		s.runSimple()
	}
	return s.Stats
}

// TotalEdgeCut sums GetEdgeCut in both directions over every quotient
// edge, so each undirected cross-block edge is counted once from each of
// its endpoints: the result is twice the edge cut.
func (s *Scheduler) TotalEdgeCut() int64 {
	var total int64
	for _, qe := range s.b.QuotientEdges() {
		total += s.b.GetEdgeCut(qe.Lhs, qe.Rhs) + s.b.GetEdgeCut(qe.Rhs, qe.Lhs)
	}
	return total
}

func (s *Scheduler) upperBoundSlice() []int64 {
	k := s.g.K()
	ub := make([]int64, k)
	for i := range ub {
		ub[i] = s.opts.UpperBoundPartition
	}
	return ub
}

// runSimple is simple_quotient_graph_scheduler: round-robin over quotient
// edges for a budget of bank_account_factor × |QE| iterations, stopping
// early once a full pass yields no improvement.
func (s *Scheduler) runSimple() {
	edges := s.b.QuotientEdges()
	if len(edges) == 0 {
		return
	}
	budget := int(s.opts.BankAccountFactor * float64(len(edges)))
	if budget < len(edges) {
		budget = len(edges)
	}

	passImprovement := int64(0)
	for i := 0; i < budget; i++ {
		edges = s.b.QuotientEdges()
		if len(edges) == 0 {
			break
		}
		qe := edges[i%len(edges)]
		stats := s.refinePair(qe.Lhs, qe.Rhs)
		passImprovement += stats.Improvement

		if (i+1)%len(edges) == 0 {
			if passImprovement <= 0 {
				break
			}
			passImprovement = 0
		}
	}
}

// runActiveBlocks is active_block_quotient_graph_scheduler: all blocks
// start active; refining a pair with positive improvement keeps both
// endpoints active for the next round, otherwise they drop out. With
// kwayRefKway the k-way multitry also runs on each pair, but only the
// pair's two endpoints are reactivated: other blocks touched by k-way
// moves are not added to the active set. Terminates when no block is
// active or a full pass makes no progress.
func (s *Scheduler) runActiveBlocks(kwayRefKway bool) {
	active := make(map[int32]bool)
	for blk := int32(0); blk < int32(s.g.K()); blk++ {
		active[blk] = true
	}

	for anyActive(active) {
		edges := s.b.QuotientEdges()
		progressed := false
		for _, qe := range edges {
			if !active[qe.Lhs] && !active[qe.Rhs] {
				continue
			}
			stats := s.refinePairKway(qe.Lhs, qe.Rhs, kwayRefKway)
			if stats.Improvement > 0 {
				progressed = true
				active[qe.Lhs] = true
				active[qe.Rhs] = true
			} else {
				active[qe.Lhs] = false
				active[qe.Rhs] = false
			}
		}
		if !progressed {
			break
		}
	}
}

func anyActive(active map[int32]bool) bool {
	for _, v := range active {
		if v {
			return true
		}
	}
	return false
}

func (s *Scheduler) refinePair(lhs, rhs int32) RoundStats {
	return s.refinePairKway(lhs, rhs, false)
}

// refinePairKway runs one refinement pass over a quotient edge: an
// optional 2-way pass, then optionally the k-way multitry engine, then
// postcondition checks and statistics bookkeeping.
func (s *Scheduler) refinePairKway(lhs, rhs int32, runKway bool) RoundStats {
	stats := RoundStats{Lhs: lhs, Rhs: rhs}

	initialCut := s.b.GetEdgeCut(lhs, rhs) + s.b.GetEdgeCut(rhs, lhs)
	if initialCut < 0 {
		return stats // degenerate combine corner case
	}

	if s.opts.QuotientGraphTwoWayRefinement && s.refiner != nil {
		improvement, changed := s.refiner.Refine(s.g, s.b, lhs, rhs, s.upperBoundSlice())
		stats.Improvement += improvement
		stats.Changed = stats.Changed || changed
	}

	if runKway {
		gained := s.kwayMultitryRound(lhs, rhs)
		stats.Improvement += gained
		stats.KwayRan = true
		stats.Changed = stats.Changed || gained != 0
	}

	s.checkPostconditions()
	s.Stats = append(s.Stats, stats)
	if s.logger != nil {
		s.logger.Sugar().Debugf("refined pair (%d,%d): improvement=%d changed=%t kway=%t",
			lhs, rhs, stats.Improvement, stats.Changed, stats.KwayRan)
	}
	return stats
}

// kwayMultitryRound fans the k-way local searcher out over num_threads
// goroutines seeded from the pair's (or, with kway_all_boundary_nodes_
// refinement, every) boundary vertex, then serially replays each thread's
// log through the conflict-aware applier: thread 0 first, the rest in
// completion order.
func (s *Scheduler) kwayMultitryRound(lhs, rhs int32) int64 {
	var total int64
	for round := 0; round < s.opts.GlobalMultitryRounds; round++ {
		total += s.oneMultitryRound(lhs, rhs)
	}
	return total
}

func (s *Scheduler) oneMultitryRound(lhs, rhs int32) int64 {
	var startNodes []datastructure.Index
	if s.opts.KwayAllBoundaryNodesRefinement {
		for _, qe := range s.b.QuotientEdges() {
			startNodes = append(startNodes, s.b.DirectedBoundary(qe.Lhs, qe.Rhs)...)
			startNodes = append(startNodes, s.b.DirectedBoundary(qe.Rhs, qe.Lhs)...)
		}
	} else {
		startNodes = append(startNodes, s.b.DirectedBoundary(lhs, rhs)...)
		startNodes = append(startNodes, s.b.DirectedBoundary(rhs, lhs)...)
	}
	if len(startNodes) == 0 {
		return 0
	}

	k := s.g.K()
	upperBound := s.upperBoundSlice()
	numThreads := s.opts.NumThreads
	if numThreads < 1 {
		numThreads = 1
	}

	shared := refinement.NewSharedMoveState(s.g.NumberOfNodes())
	cfg := refinement.RoundConfig{
		UpperBoundPartition:   upperBound,
		MaxNumberOfMoves:      s.opts.MaxNumberOfMoves,
		Permutation:           s.permutation(),
		CompareWithSequential: s.opts.CompareWithSequential,
	}

	pool := concurrent.NewWorkerPool[int, *refinement.ThreadData](numThreads, numThreads)
	pool.Start(func(id int) *refinement.ThreadData {
		td := refinement.NewThreadData(id, k, s.rnd.Uint64(), s.b.BlockWeightsSnapshot(k), s.b.BlockCountsSnapshot(k))
		td.StartNodes = partitionStart(startNodes, id, numThreads)
		rule := s.newStopRule(id)
		refinement.SingleKwayRefinementRound(s.g, td, shared, cfg, rule, s.opts.UseBucketQueues)
		shared.MarkFinished()
		return td
	})
	for id := 0; id < numThreads; id++ {
		pool.AddJob(id)
	}
	pool.Close()
	go pool.Wait()

	tds := make([]*refinement.ThreadData, 0, numThreads)
	for td := range pool.CollectResults() {
		tds = append(tds, td)
	}
	// CollectResults drains the pool's result channel in completion order.
	// The serial apply phase below replays thread 0 first and keeps the
	// remaining threads in that completion order.
	sort.SliceStable(tds, func(i, j int) bool { return tds[i].ID == 0 && tds[j].ID != 0 })

	moved := refinement.NewMovedNodesMap()
	notMoved := make(map[datastructure.Index]bool)
	var reactivated []datastructure.Index
	var total int64
	for _, td := range tds {
		total += refinement.ApplyMovesConflictAware(
			s.g, s.b, td, upperBound, moved, notMoved,
			s.opts.ApplyMoveStrategy, &reactivated, cfg,
			s.opts.KwayAllBoundaryNodesRefinement,
		)
	}
	return total
}

func (s *Scheduler) permutation() refinement.Permutation {
	if s.opts.PermutationDuringRefinement == config.PermutationGood {
		return refinement.PermutationGood
	}
	return refinement.PermutationFast
}

func (s *Scheduler) newStopRule(threadSeed int) stoprule.StopRule {
	switch s.opts.KwayStopRule {
	case config.StopRuleAdaptive:
		return stoprule.NewAdaptive(s.opts.KwayAdaptiveLimitsAlpha)
	case config.StopRuleChernoffAdaptive:
		return stoprule.NewChernoff(
			s.opts.ChernoffStopProbability,
			s.opts.ChernoffGDNumSteps,
			s.opts.ChernoffGDStepSize,
			s.opts.ChernoffMinStepLimit,
			s.opts.ChernoffMaxStepLimit,
			s.rnd.Uint64()+uint64(threadSeed),
		)
	default:
		limit := s.opts.StepLimit
		if limit <= 0 {
			limit = s.g.NumberOfNodes()
		}
		return stoprule.NewSimple(limit)
	}
}

func partitionStart(nodes []datastructure.Index, id, numThreads int) []datastructure.Index {
	out := make([]datastructure.Index, 0, len(nodes)/numThreads+1)
	for i, v := range nodes {
		if i%numThreads == id {
			out = append(out, v)
		}
	}
	return out
}

// checkPostconditions asserts every block keeps at least one vertex and a
// non-negative weight, the total vertex weight is conserved, and the
// boundary remains consistent. Skipped unless DebugAssertions is set.
func (s *Scheduler) checkPostconditions() {
	if !s.opts.DebugAssertions {
		return
	}
	for blk := int32(0); blk < int32(s.g.K()); blk++ {
		if s.b.GetBlockNoNodes(blk) < 1 {
			panic("scheduler: block count invariant violated")
		}
		if s.b.GetBlockWeight(blk) < 0 {
			panic("scheduler: block weight invariant violated")
		}
	}
	if !s.g.CheckWeightConservation() {
		panic("scheduler: vertex weight conservation violated")
	}
	if !s.b.CheckInvariants() {
		panic("scheduler: boundary invariant violated")
	}
}
