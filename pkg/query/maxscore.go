package query

import (
	"sort"

	"github.com/kittclouds/pisago/pkg/cursor"
	"github.com/kittclouds/pisago/pkg/topk"
)

// maxScoreTerm pairs a scored cursor with its list-wide upper bound for
// the static MI_t ordering MaxScore needs (ascending, unlike WAND's
// docid ordering).
type maxScoreTerm struct {
	cur *cursor.ScoredCursor
	mi  float64
}

// MaxScore implements spec §4.7's MaxScore: cursors are sorted once,
// ascending by MI_t, and split at a monotonically growing "essential"
// boundary ne. Terms below ne are visited only as non-essential
// lookups once an essential candidate is found, with the same
// short-circuit used by selection-aware MaxScore.
func MaxScore(cursors []*cursor.ScoredCursor, k int) []topk.Entry {
	terms := make([]maxScoreTerm, 0, len(cursors))
	for _, c := range cursors {
		if c.Next() {
			terms = append(terms, maxScoreTerm{cur: c, mi: c.MaxScore()})
		}
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].mi < terms[j].mi })

	ub := make([]float64, len(terms))
	var run float64
	for i, t := range terms {
		run += t.mi
		ub[i] = run
	}

	q := topk.New(k)
	ne := 0 // [0, ne) is non-essential; [ne, len) is essential

	growNE := func() {
		for ne < len(terms) && ub[ne] <= q.Threshold() {
			ne++
		}
	}
	growNE()

	for {
		essential := terms[ne:]
		if len(essential) == 0 {
			break
		}
		curDoc := essential[0].cur.DocID()
		for _, t := range essential[1:] {
			if d := t.cur.DocID(); d < curDoc {
				curDoc = d
			}
		}

		var score float64
		for i := ne; i < len(terms); i++ {
			if terms[i].cur.DocID() == curDoc {
				score += terms[i].cur.Score()
				if !terms[i].cur.Next() {
					terms = removeTermAt(terms, i)
					ub = rebuildUB(terms)
					i--
				}
			}
		}
		// non-essential lookups in reverse MI order, short-circuiting.
		for i := ne - 1; i >= 0; i-- {
			if !q.WouldEnter(score + ub[i]) {
				break
			}
			if f, ok := lookupAt(terms[i].cur, curDoc); ok {
				score += f
			}
		}

		if q.Insert(score, curDoc) {
			growNE()
		}
	}
	return q.Finalize()
}

func removeTermAt(terms []maxScoreTerm, i int) []maxScoreTerm {
	return append(terms[:i], terms[i+1:]...)
}

func rebuildUB(terms []maxScoreTerm) []float64 {
	ub := make([]float64, len(terms))
	var run float64
	for i, t := range terms {
		run += t.mi
		ub[i] = run
	}
	return ub
}

// lookupAt seeks c to doc d without disturbing the essential/
// non-essential scan order, returning its scored contribution if
// present. MaxScore's non-essential terms are accessed purely as point
// lookups, never advanced past d in the forward DAAT sense.
func lookupAt(c *cursor.ScoredCursor, d uint64) (float64, bool) {
	if c.DocID() > d {
		return 0, false
	}
	if c.DocID() < d && !c.NextGeq(d) {
		return 0, false
	}
	if c.DocID() != d {
		return 0, false
	}
	return c.Score(), true
}
