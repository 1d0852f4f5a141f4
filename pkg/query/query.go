// Package query implements the DAAT query operators of spec §4.7:
// boolean AND/OR, ranked OR, WAND, BlockMaxWAND, MaxScore, range TAAT,
// and selection-aware MaxScore with bigram lookups. All operators
// drive the cursor surface in pkg/cursor. The ranked operators push
// candidates into a pkg/topk.Queue, whose threshold is the pruning
// oracle they consult; And and Or return plain doc ids.
package query

import (
	"sort"

	"github.com/kittclouds/pisago/pkg/cursor"
	"github.com/kittclouds/pisago/pkg/topk"
)

// And returns every doc id present in all of cursors (spec §4.7's
// boolean AND). Callers get the best leapfrog performance by passing
// cursors pre-sorted ascending by list length, per spec's description,
// though pkg/cursor.IntersectionCursor is correct for any order.
func And(cursors []cursor.Cursor) []uint64 {
	if len(cursors) == 0 {
		return nil
	}
	x := cursor.NewIntersectionCursor(cursors)
	var out []uint64
	for x.Next() {
		out = append(out, x.DocID())
	}
	return out
}

// Or returns every doc id present in at least one of cursors (spec
// §4.7's boolean OR). When withFreqs is true, Freq() is touched on
// every active PostingCursor at each doc, matching spec's benchmark
// note about defeating dead-code elimination.
func Or(cursors []cursor.Cursor, withFreqs bool) []uint64 {
	if len(cursors) == 0 {
		return nil
	}
	u := cursor.NewUnionCursor(cursors)
	var out []uint64
	for u.Next() {
		out = append(out, u.DocID())
		if withFreqs {
			for _, c := range u.Active() {
				if pc, ok := c.(cursor.PostingCursor); ok {
					_ = pc.Freq()
				}
			}
		}
	}
	return out
}

// RankedOr exhaustively unions all term cursors, scoring every
// candidate doc as the sum of each active term's contribution and
// inserting into a capacity-k top-k queue (spec §4.7's "Ranked OR").
func RankedOr(cursors []*cursor.ScoredCursor, k int) []topk.Entry {
	generic := make([]cursor.Cursor, len(cursors))
	for i, c := range cursors {
		generic[i] = c
	}
	u := cursor.NewUnionCursor(generic)
	q := topk.New(k)
	for u.Next() {
		var score float64
		for _, c := range u.Active() {
			score += c.(*cursor.ScoredCursor).Score()
		}
		q.Insert(score, u.DocID())
	}
	return q.Finalize()
}

// sortByDocID reorders cursors ascending by current doc id, the
// "insertion-sort pass" spec's WAND/BMW descriptions call for after
// any single cursor advances out of order.
func sortByDocID(cursors []*cursor.ScoredCursor) {
	sort.SliceStable(cursors, func(i, j int) bool {
		return cursors[i].DocID() < cursors[j].DocID()
	})
}

// initScored positions every scored cursor at its first posting,
// dropping any that are empty; returns the live subset still sorted
// by ascending doc id.
func initScored(cursors []*cursor.ScoredCursor) []*cursor.ScoredCursor {
	live := cursors[:0]
	for _, c := range cursors {
		if c.Next() {
			live = append(live, c)
		}
	}
	sortByDocID(live)
	return live
}

// Wand implements spec §4.7's WAND: sort cursors by ascending current
// doc id, walk a pivot prefix accumulating Σ MI_t until the running
// bound would enter the top-k, then either score the aligned pivot doc
// or advance the deepest pre-pivot cursor to the pivot doc and
// re-sort.
func Wand(cursors []*cursor.ScoredCursor, k int) []topk.Entry {
	live := initScored(append([]*cursor.ScoredCursor(nil), cursors...))
	q := topk.New(k)

	for len(live) > 0 {
		pivot := -1
		var ub float64
		for i, c := range live {
			ub += c.MaxScore()
			if q.WouldEnter(ub) {
				pivot = i
				break
			}
		}
		if pivot < 0 {
			break // no prefix can ever enter the top-k; done
		}

		pivotDoc := live[pivot].DocID()
		if live[0].DocID() == pivotDoc {
			// aligned: every cursor in [0, pivot] sits on pivotDoc.
			var score float64
			for i := 0; i <= pivot; i++ {
				score += live[i].Score()
			}
			q.Insert(score, pivotDoc)
			for i := 0; i <= pivot; i++ {
				if !live[i].Next() {
					live = removeAt(live, i)
					// index shift handled by re-sort below regardless
				}
			}
			live = compactDead(live)
			sortByDocID(live)
			continue
		}

		// advance the deepest cursor positioned before the pivot doc.
		deepest := pivot - 1
		for deepest >= 0 && live[deepest].DocID() == pivotDoc {
			deepest--
		}
		if deepest < 0 {
			deepest = pivot - 1
		}
		if !live[deepest].NextGeq(pivotDoc) {
			live = compactDead(removeAt(live, deepest))
			continue
		}
		bubble(live, deepest)
	}
	return q.Finalize()
}

// removeAt marks the now-exhausted cursor at i as nil and returns the
// slice at its old length; compactDead removes the hole.
func removeAt(live []*cursor.ScoredCursor, i int) []*cursor.ScoredCursor {
	live[i] = nil
	return live
}

// compactDead removes nil holes left by removeAt.
func compactDead(live []*cursor.ScoredCursor) []*cursor.ScoredCursor {
	out := live[:0]
	for _, c := range live {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// bubble moves the cursor at index i to its sorted position by
// repeated adjacent swaps (the "insertion-bubble" spec names), after
// its doc id changed via NextGeq.
func bubble(live []*cursor.ScoredCursor, i int) {
	for i+1 < len(live) && live[i].DocID() > live[i+1].DocID() {
		live[i], live[i+1] = live[i+1], live[i]
		i++
	}
}
