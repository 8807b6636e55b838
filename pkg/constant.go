package pkg

// INVALID_PARTITION marks "no external neighbor" in gain computation and
// an unassigned block id in contraction/bisection bookkeeping.
const INVALID_PARTITION = -1

// INVALID_THREAD_ID is the sentinel stored in moved_nodes_hash_map meaning
// "moved by the local-search conflict-resolution strategy, owner unknown".
const INVALID_THREAD_ID = ^uint32(0)

const (
	DefaultMaxNumberOfMoves  = -1 // -1 means number_of_nodes
	DefaultBankAccountFactor = 1.0
)

// InfWeight is the capacity assigned to the artificial edges anchoring a
// block's interior vertices to the flow source/sink in the 2-way flow
// refinement collaborator; large enough that no real cut ever saturates it.
const InfWeight int64 = 1e15

// InvalidLevel marks a vertex unreached by the current Dinic BFS level
// graph.
const InvalidLevel = -1
