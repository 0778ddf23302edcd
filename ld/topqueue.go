package ld

import (
	"cmp"
	"container/heap"
	"sort"
	"sync"
)

// TopQueue keeps the top k keys by score. Ties on score are ordered by key,
// the smaller key ranking first. It is safe for concurrent use.
type TopQueue[K cmp.Ordered, V cmp.Ordered] struct {
	mu      sync.Mutex
	top     int
	reverse bool
	h       entryHeap[K, V]
	pos     map[K]int
}

type entry[K cmp.Ordered, V cmp.Ordered] struct {
	key   K
	score V
}

// NewTopQueue returns a queue holding at most top entries. With reverse set
// the highest scores are kept, otherwise the lowest.
func NewTopQueue[K cmp.Ordered, V cmp.Ordered](top int, reverse bool) *TopQueue[K, V] {
	q := &TopQueue[K, V]{
		top:     top,
		reverse: reverse,
		pos:     make(map[K]int, top+1),
	}
	q.h.q = q
	return q
}

// worse reports whether a ranks below b.
func (q *TopQueue[K, V]) worse(a, b entry[K, V]) bool {
	if c := cmp.Compare(a.score, b.score); c != 0 {
		if q.reverse {
			return c < 0
		}
		return c > 0
	}
	return a.key > b.key
}

// Add inserts key with score, replacing any previous score for key, then
// drops the worst entry if the queue is over capacity. It reports whether
// key is still in the queue afterwards.
func (q *TopQueue[K, V]) Add(key K, score V) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if i, ok := q.pos[key]; ok {
		q.h.entries[i].score = score
		heap.Fix(&q.h, i)
	} else {
		heap.Push(&q.h, entry[K, V]{key: key, score: score})
	}

	if q.h.Len() > q.top {
		removed := heap.Pop(&q.h).(entry[K, V])
		return removed.key != key
	}
	return true
}

func (q *TopQueue[K, V]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.h.Len()
}

// List returns the keys best first.
func (q *TopQueue[K, V]) List() []K {
	return q.ListN(q.top)
}

// ListN returns at most n keys, best first.
func (q *TopQueue[K, V]) ListN(n int) []K {
	sorted := q.sorted()
	if n > len(sorted) {
		n = len(sorted)
	}
	if n < 0 {
		n = 0
	}
	out := make([]K, n)
	for i := range out {
		out[i] = sorted[i].key
	}
	return out
}

func (q *TopQueue[K, V]) sorted() []entry[K, V] {
	q.mu.Lock()
	sorted := append([]entry[K, V](nil), q.h.entries...)
	q.mu.Unlock()

	sort.Slice(sorted, func(i, j int) bool {
		return q.worse(sorted[j], sorted[i])
	})
	return sorted
}

// entryHeap has the worst entry at the root.
type entryHeap[K cmp.Ordered, V cmp.Ordered] struct {
	q       *TopQueue[K, V]
	entries []entry[K, V]
}

func (h entryHeap[K, V]) Len() int { return len(h.entries) }

func (h entryHeap[K, V]) Less(i, j int) bool {
	return h.q.worse(h.entries[i], h.entries[j])
}

func (h entryHeap[K, V]) Swap(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
	h.q.pos[h.entries[i].key] = i
	h.q.pos[h.entries[j].key] = j
}

func (h *entryHeap[K, V]) Push(x any) {
	e := x.(entry[K, V])
	h.q.pos[e.key] = len(h.entries)
	h.entries = append(h.entries, e)
}

func (h *entryHeap[K, V]) Pop() any {
	n := len(h.entries)
	e := h.entries[n-1]
	h.entries = h.entries[:n-1]
	delete(h.q.pos, e.key)
	return e
}
