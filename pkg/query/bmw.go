package query

import (
	"github.com/kittclouds/pisago/pkg/cursor"
	"github.com/kittclouds/pisago/pkg/topk"
)

// BlockMaxWand implements spec §4.7's BlockMaxWAND: the same pivoting
// as Wand, but with a second, tighter check against the pivot block's
// compressed block-max bound before committing to a full score, and an
// early-abort during scoring once the remaining block bound can no
// longer enter the top-k.
func BlockMaxWand(cursors []*cursor.MaxScoredCursor, k int) []topk.Entry {
	live := initMaxScored(append([]*cursor.MaxScoredCursor(nil), cursors...))
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
			break
		}

		pivotDoc := live[pivot].DocID()

		// align every term's block-max cursor to the pivot and
		// recompute the tighter bound.
		var blockUB float64
		minBlockEnd := ^uint64(0)
		for i := 0; i <= pivot; i++ {
			live[i].AlignBlock(pivotDoc)
			blockUB += live[i].BlockUpperBound()
			if end := live[i].BlockLastDocID(); end < minBlockEnd {
				minBlockEnd = end
			}
		}

		if !q.WouldEnter(blockUB) {
			// block bound fails: advance the farthest prefix cursor to
			// min(pivot_doc, min_b BM_end+1, cursor[pivot+1].docid).
			target := pivotDoc
			if minBlockEnd+1 < target {
				target = minBlockEnd + 1
			}
			if pivot+1 < len(live) {
				if next := live[pivot+1].DocID(); next < target {
					target = next
				}
			}
			if !live[pivot].NextGeq(target) {
				live = compactMaxDead(removeMaxAt(live, pivot))
				continue
			}
			bubbleMax(live, pivot)
			continue
		}

		if live[0].DocID() == pivotDoc {
			var score float64
			remaining := blockUB
			for i := 0; i <= pivot; i++ {
				remaining -= live[i].BlockUpperBound()
				score += live[i].Score()
				if !q.WouldEnter(score + remaining) {
					break // remaining terms can't change the outcome
				}
			}
			q.Insert(score, pivotDoc)
			for i := 0; i <= pivot; i++ {
				if !live[i].Next() {
					live = removeMaxAt(live, i)
				}
			}
			live = compactMaxDead(live)
			sortMaxByDocID(live)
			continue
		}

		deepest := pivot - 1
		for deepest >= 0 && live[deepest].DocID() == pivotDoc {
			deepest--
		}
		if deepest < 0 {
			deepest = pivot - 1
		}
		if !live[deepest].NextGeq(pivotDoc) {
			live = compactMaxDead(removeMaxAt(live, deepest))
			continue
		}
		bubbleMax(live, deepest)
	}
	return q.Finalize()
}

func initMaxScored(cursors []*cursor.MaxScoredCursor) []*cursor.MaxScoredCursor {
	live := cursors[:0]
	for _, c := range cursors {
		if c.Next() {
			live = append(live, c)
		}
	}
	sortMaxByDocID(live)
	return live
}

func sortMaxByDocID(cursors []*cursor.MaxScoredCursor) {
	for i := 1; i < len(cursors); i++ {
		for j := i; j > 0 && cursors[j-1].DocID() > cursors[j].DocID(); j-- {
			cursors[j-1], cursors[j] = cursors[j], cursors[j-1]
		}
	}
}

func removeMaxAt(live []*cursor.MaxScoredCursor, i int) []*cursor.MaxScoredCursor {
	live[i] = nil
	return live
}

func compactMaxDead(live []*cursor.MaxScoredCursor) []*cursor.MaxScoredCursor {
	out := live[:0]
	for _, c := range live {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

func bubbleMax(live []*cursor.MaxScoredCursor, i int) {
	for i+1 < len(live) && live[i].DocID() > live[i+1].DocID() {
		live[i], live[i+1] = live[i+1], live[i]
		i++
	}
}
