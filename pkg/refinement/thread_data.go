// Package refinement implements the per-thread speculative local k-way
// searcher and the serializing move applier that reconciles speculative
// move logs onto the shared graph and boundary.
package refinement

import (
	"sync"
	"sync/atomic"

	"golang.org/x/exp/rand"

	"github.com/lintang-b-s/kwayrefine/pkg/datastructure"
)

// MoveLogEntry is one row of a thread's speculative move log.
type MoveLogEntry struct {
	Vertex datastructure.Index
	From   int32
	To     int32
	Gain   int64
	// Sentinel marks a row that only terminates a segment and must never
	// contribute to gain accumulation.
	Sentinel bool
}

// MinCutIndex records, per log segment, the index of the best prefix seen
// and where the next segment begins. Index == -1 means the segment
// yielded no improvement and should be skipped entirely.
type MinCutIndex struct {
	Index            int
	NextSegmentStart int
}

// ThreadData (td) is the per-thread local-search state. It is created per
// refinement call, lives for exactly one round, and is discarded
// afterward; the graph and boundary persist across rounds and mutate only
// inside the move applier.
type ThreadData struct {
	ID int

	StartNodes []datastructure.Index

	// Move log: one row per speculative move, with sentinel rows ending
	// each segment.
	Log []MoveLogEntry

	MinCutIndices []MinCutIndex

	// Thread-local speculative override of vertex -> partition.
	NodesPartitions map[datastructure.Index]int32

	// Thread-local speculative per-block size/weight counters, seeded
	// from the shared boundary at round start.
	PartsSizes   []int64
	PartsWeights []int64

	Rnd *rand.Rand

	// UpperBoundPartition is stashed at round start so localMoveNode can
	// evaluate the hard per-block weight cap without threading it through
	// every call.
	UpperBoundPartition []int64

	StopEmptyQueue   int
	StopStoppingRule int
	PerformedGain    int64
	UnperformedGain  int64
}

// NewThreadData allocates td for a thread with k blocks, seeded from the
// boundary's current weights/counts.
func NewThreadData(id int, k int, seed uint64, blockWeights, blockCounts []int64) *ThreadData {
	td := &ThreadData{
		ID:              id,
		NodesPartitions: make(map[datastructure.Index]int32),
		PartsSizes:      make([]int64, k),
		PartsWeights:    make([]int64, k),
		Rnd:             rand.New(rand.NewSource(seed)),
	}
	copy(td.PartsSizes, blockCounts)
	copy(td.PartsWeights, blockWeights)
	return td
}

// LocalPart returns v's partition under td's speculative view, falling
// back to the real graph when v has not been touched this round.
func (td *ThreadData) LocalPart(g *datastructure.Graph, v datastructure.Index) int32 {
	if p, ok := td.NodesPartitions[v]; ok {
		return p
	}
	return g.Partition(v)
}

// SharedMoveState is the cross-thread coordination surface for one
// refinement round: a per-vertex atomic claim flag (moved_idx) and a
// finish-handshake counter.
type SharedMoveState struct {
	movedIdx           []int32 // 0/1 atomically CAS'd
	numThreadsFinished int32

	// tieRndMu/tieRnd back TieBreak: a single RNG stream shared by every
	// thread in the round, used instead of each thread's own td.Rnd when
	// RoundConfig.CompareWithSequential is set, so a multi-threaded run
	// draws tie-break decisions from the same stream a sequential run
	// would, making the two comparable move-for-move.
	tieRndMu sync.Mutex
	tieRnd   *rand.Rand
}

func NewSharedMoveState(n int) *SharedMoveState {
	return &SharedMoveState{
		movedIdx: make([]int32, n),
		tieRnd:   rand.New(rand.NewSource(1)),
	}
}

// TieBreak draws the next bool from the round's shared RNG stream.
func (s *SharedMoveState) TieBreak() bool {
	s.tieRndMu.Lock()
	defer s.tieRndMu.Unlock()
	return s.tieRnd.Intn(2) == 1
}

// TryClaim atomically sets moved_idx[v]; returns true iff this call was
// the one that set it (relaxed-equivalent compare-and-swap).
func (s *SharedMoveState) TryClaim(v datastructure.Index) bool {
	return atomic.CompareAndSwapInt32(&s.movedIdx[v], 0, 1)
}

func (s *SharedMoveState) IsClaimed(v datastructure.Index) bool {
	return atomic.LoadInt32(&s.movedIdx[v]) == 1
}

func (s *SharedMoveState) Reset(n int) {
	s.movedIdx = make([]int32, n)
	atomic.StoreInt32(&s.numThreadsFinished, 0)
}

func (s *SharedMoveState) MarkFinished() {
	atomic.AddInt32(&s.numThreadsFinished, 1)
}

func (s *SharedMoveState) AnyFinished() bool {
	return atomic.LoadInt32(&s.numThreadsFinished) > 0
}
