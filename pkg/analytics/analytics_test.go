package analytics

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kittclouds/pisago/pkg/blockcodec"
	"github.com/kittclouds/pisago/pkg/blockindex"
	"github.com/kittclouds/pisago/pkg/cursor"
	"github.com/kittclouds/pisago/pkg/scoring"
	"github.com/kittclouds/pisago/pkg/wanddata"
)

func buildScored(docs, freqs []uint32, numDocs int) *cursor.ScoredCursor {
	b := blockindex.NewBuilder(blockcodec.FixedWidthCodec{})
	for i := range docs {
		b.PushBack(docs[i], freqs[i])
	}
	list := b.Build()
	lens := cursor.ArrayDocLengths{Lens: make(wanddata.NormalizedLengths, numDocs)}
	for i := range lens.Lens {
		lens.Lens[i] = 1
	}
	bm25 := scoring.NewBM25(1.2, 0.75, uint64(numDocs), uint64(len(docs)))
	return cursor.NewScoredCursor(cursor.FromBlockIndex(list.NewCursor()), bm25, 1.0, lens, 10)
}

func TestComputeIntersectionLengthAndMaxScore(t *testing.T) {
	a := buildScored([]uint32{1, 2, 4, 6}, []uint32{1, 1, 5, 1}, 10)
	b := buildScored([]uint32{2, 4, 6, 8}, []uint32{1, 5, 1, 1}, 10)

	result := Compute([]*cursor.ScoredCursor{a, b})
	require.Equal(t, uint64(3), result.Length) // 2, 4, 6
	require.Greater(t, result.MaxScore, 0.0)
}

func TestComputeEmptyCursorsReturnsZeroValue(t *testing.T) {
	result := Compute(nil)
	require.Equal(t, Intersection{}, result)
}

func TestGreedySetCoverCoversAllTerms(t *testing.T) {
	// 3 query terms: a, b, c. Cheap unigrams for each, plus a cheap
	// bigram covering a+b that should be preferred for those two.
	subsets := []Subset{
		NewBigramSubset(0, 1, 3, 1.0), // a+b, weight 1
		NewUnigramSubset(0, 3, 5.0),   // a alone, weight 5
		NewUnigramSubset(1, 3, 5.0),   // b alone, weight 5
		NewUnigramSubset(2, 3, 2.0),   // c alone, weight 2
	}
	result := GreedySetCover(subsets)
	require.ElementsMatch(t, []int{0, 3}, result.SelectedIndices)
	require.InDelta(t, 3.0, result.Cost, 1e-9)
}

func TestGreedySetCoverSkipsRedundantSubsets(t *testing.T) {
	subsets := []Subset{
		NewUnigramSubset(0, 2, 1.0),
		NewUnigramSubset(0, 2, 0.5), // cheaper but covers the same element
		NewUnigramSubset(1, 2, 2.0),
	}
	result := GreedySetCover(subsets)
	require.ElementsMatch(t, []int{1, 2}, result.SelectedIndices)
	require.InDelta(t, 2.5, result.Cost, 1e-9)
}

func TestGreedySetCoverEmptyInput(t *testing.T) {
	result := GreedySetCover(nil)
	require.Equal(t, SetCoverResult{}, result)
}
