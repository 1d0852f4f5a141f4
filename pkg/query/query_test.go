package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kittclouds/pisago/pkg/blockcodec"
	"github.com/kittclouds/pisago/pkg/blockindex"
	"github.com/kittclouds/pisago/pkg/config"
	"github.com/kittclouds/pisago/pkg/cursor"
	"github.com/kittclouds/pisago/pkg/scoring"
	"github.com/kittclouds/pisago/pkg/wanddata"
)

func buildList(docs, freqs []uint32) *blockindex.BlockPostingList {
	b := blockindex.NewBuilder(blockcodec.FixedWidthCodec{})
	for i := range docs {
		b.PushBack(docs[i], freqs[i])
	}
	return b.Build()
}

func scoredFrom(docs, freqs []uint32, numDocs int, weight float64) *cursor.ScoredCursor {
	lens := cursor.ArrayDocLengths{Lens: make(wanddata.NormalizedLengths, numDocs)}
	for i := range lens.Lens {
		lens.Lens[i] = 1
	}
	bm25 := scoring.NewBM25(1.2, 0.75, uint64(numDocs), uint64(len(docs)))
	list := buildList(docs, freqs)
	return cursor.NewScoredCursor(cursor.FromBlockIndex(list.NewCursor()), bm25, weight, lens, float64(maxFreq(freqs)))
}

func maxFreq(freqs []uint32) uint32 {
	var m uint32
	for _, f := range freqs {
		if f > m {
			m = f
		}
	}
	return m
}

func maxScoredFrom(docs, freqs []uint32, numDocs int, weight float64, blockSize uint32) *cursor.MaxScoredCursor {
	lens := cursor.ArrayDocLengths{Lens: make(wanddata.NormalizedLengths, numDocs)}
	for i := range lens.Lens {
		lens.Lens[i] = 1
	}
	docLens := make([]float64, len(docs))
	for i := range docLens {
		docLens[i] = 1
	}
	bm25 := scoring.NewBM25(1.2, 0.75, uint64(numDocs), uint64(len(docs)))
	wd := wanddata.BuildFixed(docs, freqs, docLens, 1, bm25, blockSize, 0, config.DefaultParameters())
	list := buildList(docs, freqs)
	return cursor.NewMaxScoredCursor(cursor.FromBlockIndex(list.NewCursor()), bm25, weight, lens, wd)
}

func TestAndIntersectsAllLists(t *testing.T) {
	a := buildList([]uint32{1, 2, 4, 6, 9}, []uint32{1, 1, 1, 1, 1})
	b := buildList([]uint32{2, 4, 5, 6}, []uint32{1, 1, 1, 1})
	got := And([]cursor.Cursor{cursor.FromBlockIndex(a.NewCursor()), cursor.FromBlockIndex(b.NewCursor())})
	require.Equal(t, []uint64{2, 4, 6}, got)
}

func TestOrUnionsAllLists(t *testing.T) {
	a := buildList([]uint32{1, 4}, []uint32{1, 1})
	b := buildList([]uint32{2, 4, 8}, []uint32{1, 1, 1})
	got := Or([]cursor.Cursor{cursor.FromBlockIndex(a.NewCursor()), cursor.FromBlockIndex(b.NewCursor())}, true)
	require.Equal(t, []uint64{1, 2, 4, 8}, got)
}

func TestRankedOrScoresAndRanksCandidates(t *testing.T) {
	numDocs := 10
	a := scoredFrom([]uint32{1, 2, 3}, []uint32{1, 5, 1}, numDocs, 1.0)
	b := scoredFrom([]uint32{2, 3}, []uint32{1, 1}, numDocs, 1.0)
	results := RankedOr([]*cursor.ScoredCursor{a, b}, 2)
	require.Len(t, results, 2)
	require.Equal(t, uint64(2), results[0].DocID) // both terms hit doc 2
}

func TestWandAgreesWithRankedOrTopK(t *testing.T) {
	numDocs := 20
	mk := func() []*cursor.ScoredCursor {
		return []*cursor.ScoredCursor{
			scoredFrom([]uint32{1, 3, 5, 7, 9, 11}, []uint32{2, 1, 4, 1, 1, 3}, numDocs, 1.0),
			scoredFrom([]uint32{2, 3, 5, 8, 11}, []uint32{1, 3, 2, 1, 5}, numDocs, 1.0),
		}
	}
	want := RankedOr(mk(), 3)
	got := Wand(mk(), 3)
	require.Equal(t, len(want), len(got))
	for i := range want {
		require.Equal(t, want[i].DocID, got[i].DocID)
		require.InDelta(t, want[i].Score, got[i].Score, 1e-9)
	}
}

func TestBlockMaxWandAgreesWithWand(t *testing.T) {
	numDocs := 20
	docsA := []uint32{1, 3, 5, 7, 9, 11, 13, 15}
	freqsA := []uint32{2, 1, 4, 1, 1, 3, 2, 1}
	docsB := []uint32{2, 3, 5, 8, 11, 14}
	freqsB := []uint32{1, 3, 2, 1, 5, 2}

	wantCursors := []*cursor.ScoredCursor{
		scoredFrom(docsA, freqsA, numDocs, 1.0),
		scoredFrom(docsB, freqsB, numDocs, 1.0),
	}
	want := Wand(wantCursors, 3)

	gotCursors := []*cursor.MaxScoredCursor{
		maxScoredFrom(docsA, freqsA, numDocs, 1.0, 4),
		maxScoredFrom(docsB, freqsB, numDocs, 1.0, 4),
	}
	got := BlockMaxWand(gotCursors, 3)

	require.Equal(t, len(want), len(got))
	for i := range want {
		require.Equal(t, want[i].DocID, got[i].DocID)
		require.InDelta(t, want[i].Score, got[i].Score, 1e-9)
	}
}

func TestMaxScoreAgreesWithRankedOr(t *testing.T) {
	numDocs := 20
	mk := func() []*cursor.ScoredCursor {
		return []*cursor.ScoredCursor{
			scoredFrom([]uint32{1, 3, 5, 7, 9, 11}, []uint32{2, 1, 4, 1, 1, 3}, numDocs, 1.0),
			scoredFrom([]uint32{2, 3, 5, 8, 11}, []uint32{1, 3, 2, 1, 5}, numDocs, 1.0),
			scoredFrom([]uint32{3, 5, 9}, []uint32{1, 1, 1}, numDocs, 0.5),
		}
	}
	want := RankedOr(mk(), 3)
	got := MaxScore(mk(), 3)
	require.Equal(t, len(want), len(got))
	for i := range want {
		require.Equal(t, want[i].DocID, got[i].DocID)
		require.InDelta(t, want[i].Score, got[i].Score, 1e-9)
	}
}

func TestRangeTAATAgreesWithRankedOr(t *testing.T) {
	numDocs := 20
	mk := func() []*cursor.ScoredCursor {
		return []*cursor.ScoredCursor{
			scoredFrom([]uint32{1, 3, 5, 7, 9, 11}, []uint32{2, 1, 4, 1, 1, 3}, numDocs, 1.0),
			scoredFrom([]uint32{2, 3, 5, 8, 11}, []uint32{1, 3, 2, 1, 5}, numDocs, 1.0),
		}
	}
	want := RankedOr(mk(), 3)
	got := RangeTAAT(mk(), uint64(numDocs), 5, 3)
	require.Equal(t, len(want), len(got))
	for i := range want {
		require.Equal(t, want[i].DocID, got[i].DocID)
		require.InDelta(t, want[i].Score, got[i].Score, 1e-9)
	}
}

func TestPhraseVerifierFindsOverlappingOccurrences(t *testing.T) {
	v := NewPhraseVerifier([]string{"host name", "ip address"})
	found := v.Verify("the host name resolves to an ip address quickly")
	require.Equal(t, []bool{true, true}, found)

	found = v.Verify("no relevant phrases here")
	require.Equal(t, []bool{false, false}, found)
}

func TestSelectionAwareMaxScoreRejectsUnverifiedBigram(t *testing.T) {
	numDocs := 10
	essentialBigram := scoredFrom([]uint32{3, 5}, []uint32{4, 4}, numDocs, 1.0)
	nonEssential := scoredFrom([]uint32{3, 5, 7}, []uint32{1, 1, 1}, numDocs, 0.1)

	sel := Selection{
		EssentialBigrams: []*cursor.ScoredCursor{essentialBigram},
		NonEssential:     []*cursor.ScoredCursor{nonEssential},
	}
	verifier := NewPhraseVerifier([]string{"host name"})
	docText := func(d uint64) string {
		if d == 3 {
			return "host name appears here"
		}
		return "unrelated text"
	}
	results := SelectionAwareMaxScore(sel, 2, &verifier, docText)
	require.NotEmpty(t, results)

	byDoc := map[uint64]float64{}
	for _, r := range results {
		byDoc[r.DocID] = r.Score
	}
	// doc 5's bigram hit is unconfirmed (its text has no matching phrase),
	// so its score should be strictly lower than doc 3's, whose bigram
	// contribution is confirmed.
	require.Less(t, byDoc[5], byDoc[3])
}
