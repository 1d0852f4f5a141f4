// Package analytics implements spec §4.8's intersection analytics and
// the offline greedy weighted set-cover planner built on top of them:
// for a query and a set of candidate term subsets, report per-subset
// intersection length and max score, then pick the cheapest subsets
// that cover every query term for the bigram-materialization planner
// pkg/query's selection-aware MaxScore consumes.
package analytics

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/kittclouds/pisago/pkg/cursor"
)

// Intersection is one candidate subset's measured statistics: how many
// documents matched across all |S| term cursors, and the highest
// summed score seen among them.
type Intersection struct {
	Length   uint64
	MaxScore float64
}

// Compute intersects the given scored cursors (leftmost-smallest
// advance, via pkg/cursor.IntersectionCursor) and reports (length,
// max_score), per spec §4.8's `Intersection::compute`.
func Compute(cursors []*cursor.ScoredCursor) Intersection {
	if len(cursors) == 0 {
		return Intersection{}
	}
	generic := make([]cursor.Cursor, len(cursors))
	for i, c := range cursors {
		generic[i] = c
	}
	x := cursor.NewIntersectionCursor(generic)

	var result Intersection
	for x.Next() {
		result.Length++
		var score float64
		for _, c := range cursors {
			score += c.Score()
		}
		if score > result.MaxScore {
			result.MaxScore = score
		}
	}
	return result
}

// Subset is one candidate term combination for the set-cover planner:
// a bitset over query-term positions, and a weight (e.g. bytes
// required to materialize this combination's posting list).
type Subset struct {
	Terms  *bitset.BitSet
	Weight float64
}

// NewUnigramSubset builds a single-element subset covering just
// position i out of cardinality query terms.
func NewUnigramSubset(i, cardinality int, weight float64) Subset {
	b := bitset.New(uint(cardinality))
	b.Set(uint(i))
	return Subset{Terms: b, Weight: weight}
}

// NewBigramSubset builds a two-element subset covering positions i, j.
func NewBigramSubset(i, j, cardinality int, weight float64) Subset {
	b := bitset.New(uint(cardinality))
	b.Set(uint(i)).Set(uint(j))
	return Subset{Terms: b, Weight: weight}
}

// SetCoverResult is the planner's output: the chosen subset indices
// and their total weight.
type SetCoverResult struct {
	Cost            float64
	SelectedIndices []int
}

// GreedySetCover runs the approximate weighted set-cover algorithm of
// spec §4.8: repeatedly picks the minimum-weight subset that still
// covers at least one uncovered query-term position, until every
// position is covered or no available subset can make further
// progress.
func GreedySetCover(subsets []Subset) SetCoverResult {
	if len(subsets) == 0 {
		return SetCoverResult{}
	}
	cardinality := subsets[0].Terms.Len()
	covered := bitset.New(cardinality)
	available := make([]bool, len(subsets))
	for i, s := range subsets {
		available[i] = s.Terms.Any()
	}

	var result SetCoverResult
	for covered.Count() < cardinality {
		minPos := -1
		var minWeight float64
		for i, s := range subsets {
			if !available[i] {
				continue
			}
			if newCoverage := s.Terms.DifferenceCardinality(covered); newCoverage == 0 {
				continue // covers nothing new — not a valid greedy pick
			}
			if minPos == -1 || s.Weight < minWeight {
				minPos = i
				minWeight = s.Weight
			}
		}
		if minPos == -1 {
			break // no remaining subset can cover anything new
		}
		covered.InPlaceUnion(subsets[minPos].Terms)
		available[minPos] = false
		result.Cost += minWeight
		result.SelectedIndices = append(result.SelectedIndices, minPos)
	}
	return result
}
