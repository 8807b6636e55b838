// Package pq implements the polymorphic priority-queue abstraction used by
// the k-way local searcher: a max-PQ keyed by gain, with a generic
// max-heap implementation and a bounded-range bucket-queue implementation.
// Selection between them is a configuration flag (use_bucket_queues).
package pq

import "github.com/lintang-b-s/kwayrefine/pkg/datastructure"

// Interface is the minimal operation set every PQ implementation exposes.
type Interface interface {
	Insert(v datastructure.Index, key int64)
	ChangeKey(v datastructure.Index, key int64)
	DeleteMax() (datastructure.Index, int64, bool)
	MaxValue() (int64, bool)
	DeleteNode(v datastructure.Index)
	Contains(v datastructure.Index) bool
	Empty() bool
	Clear()
}
