// Package topk implements the bounded top-k priority queue of spec
// §4.6: a min-heap of (score, docid) capacity k, whose running
// threshold is the pruning oracle every query operator in pkg/query
// consults.
package topk

import (
	"container/heap"
	"sort"
)

// Entry is one scored result.
type Entry struct {
	Score float64
	DocID uint64
}

type entryHeap []Entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].Score < h[j].Score }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x interface{}) { *h = append(*h, x.(Entry)) }
func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	last := old[n-1]
	*h = old[:n-1]
	return last
}

// Queue is a bounded min-heap of capacity k.
type Queue struct {
	k         int
	h         entryHeap
	threshold float64
}

// New creates a queue with the given capacity.
func New(k int) *Queue {
	return &Queue{k: k}
}

// Len returns the current number of entries.
func (q *Queue) Len() int { return len(q.h) }

// Full reports whether the queue is at capacity.
func (q *Queue) Full() bool { return len(q.h) >= q.k }

// Threshold returns the current pruning threshold: 0 while the queue
// is not full, else the score of the smallest entry in the queue.
func (q *Queue) Threshold() float64 { return q.threshold }

// WouldEnter reports whether a candidate with score s could enter the
// queue: true while not yet full, or when s exceeds the threshold.
func (q *Queue) WouldEnter(s float64) bool {
	return !q.Full() || s > q.threshold
}

// Insert pushes (s, d) if the queue has room, or replaces the current
// minimum if s exceeds it, updating the threshold.
func (q *Queue) Insert(s float64, d uint64) bool {
	if q.k <= 0 {
		return false
	}
	if !q.Full() {
		heap.Push(&q.h, Entry{Score: s, DocID: d})
		if q.Full() {
			q.threshold = q.h[0].Score
		}
		return true
	}
	if s <= q.threshold {
		return false
	}
	q.h[0] = Entry{Score: s, DocID: d}
	heap.Fix(&q.h, 0)
	q.threshold = q.h[0].Score
	return true
}

// Finalize sorts the queue's entries descending by score and drops
// entries with score <= 0, per spec §4.6.
func (q *Queue) Finalize() []Entry {
	out := make([]Entry, 0, len(q.h))
	for _, e := range q.h {
		if e.Score > 0 {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].DocID < out[j].DocID
	})
	return out
}
