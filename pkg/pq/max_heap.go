package pq

import "github.com/lintang-b-s/kwayrefine/pkg/datastructure"

type entry struct {
	v   datastructure.Index
	key int64
}

// MaxNodeHeap is a binary max-heap keyed by gain, with an index map for
// O(log n) changeKey/deleteNode tracking each item's current slot.
type MaxNodeHeap struct {
	heap []entry
	pos  map[datastructure.Index]int
}

func NewMaxNodeHeap() *MaxNodeHeap {
	return &MaxNodeHeap{
		heap: make([]entry, 0),
		pos:  make(map[datastructure.Index]int),
	}
}

func (h *MaxNodeHeap) parent(i int) int { return (i - 1) / 2 }
func (h *MaxNodeHeap) left(i int) int   { return 2*i + 1 }
func (h *MaxNodeHeap) right(i int) int  { return 2*i + 2 }

func (h *MaxNodeHeap) swap(i, j int) {
	h.heap[i], h.heap[j] = h.heap[j], h.heap[i]
	h.pos[h.heap[i].v] = i
	h.pos[h.heap[j].v] = j
}

func (h *MaxNodeHeap) heapifyUp(i int) {
	for i != 0 && h.heap[i].key > h.heap[h.parent(i)].key {
		h.swap(i, h.parent(i))
		i = h.parent(i)
	}
}

func (h *MaxNodeHeap) heapifyDown(i int) {
	largest := i
	l, r := h.left(i), h.right(i)
	if l < len(h.heap) && h.heap[l].key > h.heap[largest].key {
		largest = l
	}
	if r < len(h.heap) && h.heap[r].key > h.heap[largest].key {
		largest = r
	}
	if largest != i {
		h.swap(i, largest)
		h.heapifyDown(largest)
	}
}

func (h *MaxNodeHeap) Insert(v datastructure.Index, key int64) {
	if idx, ok := h.pos[v]; ok {
		_ = idx
		h.ChangeKey(v, key)
		return
	}
	h.heap = append(h.heap, entry{v, key})
	idx := len(h.heap) - 1
	h.pos[v] = idx
	h.heapifyUp(idx)
}

func (h *MaxNodeHeap) ChangeKey(v datastructure.Index, key int64) {
	idx, ok := h.pos[v]
	if !ok {
		h.Insert(v, key)
		return
	}
	old := h.heap[idx].key
	h.heap[idx].key = key
	if key > old {
		h.heapifyUp(idx)
	} else if key < old {
		h.heapifyDown(idx)
	}
}

func (h *MaxNodeHeap) DeleteMax() (datastructure.Index, int64, bool) {
	if len(h.heap) == 0 {
		return 0, 0, false
	}
	top := h.heap[0]
	last := len(h.heap) - 1
	h.heap[0] = h.heap[last]
	h.pos[h.heap[0].v] = 0
	h.heap = h.heap[:last]
	delete(h.pos, top.v)
	if len(h.heap) > 0 {
		h.heapifyDown(0)
	}
	return top.v, top.key, true
}

func (h *MaxNodeHeap) MaxValue() (int64, bool) {
	if len(h.heap) == 0 {
		return 0, false
	}
	return h.heap[0].key, true
}

func (h *MaxNodeHeap) DeleteNode(v datastructure.Index) {
	idx, ok := h.pos[v]
	if !ok {
		return
	}
	last := len(h.heap) - 1
	h.heap[idx] = h.heap[last]
	h.pos[h.heap[idx].v] = idx
	h.heap = h.heap[:last]
	delete(h.pos, v)
	if idx < len(h.heap) {
		h.heapifyUp(idx)
		h.heapifyDown(idx)
	}
}

func (h *MaxNodeHeap) Contains(v datastructure.Index) bool {
	_, ok := h.pos[v]
	return ok
}

func (h *MaxNodeHeap) Empty() bool { return len(h.heap) == 0 }

func (h *MaxNodeHeap) Clear() {
	h.heap = h.heap[:0]
	h.pos = make(map[datastructure.Index]int)
}
