package query

import (
	"github.com/kittclouds/pisago/pkg/cursor"
	"github.com/kittclouds/pisago/pkg/topk"
)

// RangeTAAT implements spec §4.7's range term-at-a-time scan:
// partition [0, numDocs) into contiguous ranges of size r, accumulate
// scores term-at-a-time into a dense array sized for one range, and
// flush positive entries into the top-k queue at each range boundary.
// Chosen, per spec, when r*len(cursors) fits comfortably in cache.
func RangeTAAT(cursors []*cursor.ScoredCursor, numDocs uint64, r uint64, k int) []topk.Entry {
	if r == 0 {
		r = numDocs
	}
	q := topk.New(k)
	acc := make([]float64, r)
	done := make([]bool, len(cursors))
	for i, c := range cursors {
		done[i] = !c.NextGeq(0)
	}

	for lo := uint64(0); lo < numDocs; lo += r {
		hi := lo + r
		if hi > numDocs {
			hi = numDocs
		}
		for i := range acc[:hi-lo] {
			acc[i] = 0
		}
		for ci, c := range cursors {
			if done[ci] {
				continue
			}
			for !done[ci] && c.DocID() < hi {
				if c.DocID() >= lo {
					acc[c.DocID()-lo] += c.Score()
				}
				done[ci] = !c.Next()
			}
		}
		for i, s := range acc[:hi-lo] {
			if s > 0 {
				q.Insert(s, lo+uint64(i))
			}
		}
	}
	return q.Finalize()
}
