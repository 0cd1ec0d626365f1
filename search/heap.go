package search

// resultHeap keeps the k best candidates seen so far as a bounded max-heap
// ordered by (distance, id): the root is the current worst candidate, so a
// better one replaces it in O(log k) without allocating. The ordering
// includes the id so that ties at the k-th distance resolve exactly like a
// sorted linear scan.
type resultHeap struct {
	items []Result
	k     int
}

func newResultHeap(k int) *resultHeap {
	return &resultHeap{items: make([]Result, 0, k), k: k}
}

// worse reports whether a ranks strictly behind b.
func worse(a, b Result) bool {
	if a.Distance != b.Distance {
		return a.Distance > b.Distance
	}

	return a.ID > b.ID
}

func (h *resultHeap) Len() int { return len(h.items) }

// Full reports whether the heap holds k candidates.
func (h *resultHeap) Full() bool { return len(h.items) == h.k }

// Kth returns the distance of the current worst kept candidate. Only
// meaningful once the heap is full.
func (h *resultHeap) Kth() float64 { return h.items[0].Distance }

// Offer inserts the candidate if capacity remains or it beats the current
// worst.
func (h *resultHeap) Offer(id int, d float64) {
	cand := Result{ID: id, Distance: d}

	if len(h.items) < h.k {
		h.items = append(h.items, cand)
		h.siftUp(len(h.items) - 1)

		return
	}

	if !worse(h.items[0], cand) {
		return
	}

	h.items[0] = cand
	h.siftDown(0)
}

// TakeSorted hands the kept candidates over in ascending (distance, id)
// order. The heap must not be used afterwards.
func (h *resultHeap) TakeSorted() []Result {
	out := h.items
	h.items = nil

	sortResults(out)

	return out
}

func (h *resultHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !worse(h.items[i], h.items[parent]) {
			return
		}

		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *resultHeap) siftDown(i int) {
	n := len(h.items)

	for {
		j := 2*i + 1
		if j >= n {
			return
		}

		if right := j + 1; right < n && worse(h.items[right], h.items[j]) {
			j = right
		}

		if !worse(h.items[j], h.items[i]) {
			return
		}

		h.items[i], h.items[j] = h.items[j], h.items[i]
		i = j
	}
}
