package query

import (
	"sort"

	ahocorasick "github.com/coregx/ahocorasick"

	"github.com/kittclouds/pisago/pkg/cursor"
	"github.com/kittclouds/pisago/pkg/topk"
)

// Selection is the per-query plan spec §4.7 calls a "precomputed
// selection": which single terms are essential versus looked up, and
// which adjacent term pairs were materialized as bigram posting lists
// by the offline set-cover planner (pkg/analytics).
type Selection struct {
	EssentialUnigrams []*cursor.ScoredCursor
	EssentialBigrams  []*cursor.ScoredCursor
	NonEssential      []*cursor.ScoredCursor
}

// PhraseVerifier re-checks phrase adjacency for a bigram-lookup
// candidate against a document's raw text, guarding against the
// bigram posting list over-approximating true adjacency (e.g. a
// tokenizer collision). It is built once per query from the bigram
// surface forms and driven one pass per candidate document, mirroring
// the teacher's QueryVerifier: an Aho-Corasick automaton built with
// StandardMatch so IterOverlapping finds every occurrence.
type PhraseVerifier struct {
	ac       ahocorasick.AhoCorasick
	phrases  []string
	hasTerms bool
}

// NewPhraseVerifier builds a verifier over the surface forms of the
// materialized bigrams (e.g. "host name" for the pair (host, name)).
func NewPhraseVerifier(phrases []string) PhraseVerifier {
	if len(phrases) == 0 {
		return PhraseVerifier{}
	}
	b := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: false,
		MatchOnlyWholeWords:  false,
		MatchKind:            ahocorasick.StandardMatch,
		DFA:                  false,
	})
	return PhraseVerifier{ac: b.Build(phrases), phrases: phrases, hasTerms: true}
}

// Verify reports which of the verifier's phrases actually occur,
// overlapping, in text.
func (v PhraseVerifier) Verify(text string) []bool {
	found := make([]bool, len(v.phrases))
	if !v.hasTerms {
		return found
	}
	iter := v.ac.IterOverlapping(text)
	for {
		m := iter.Next()
		if m == nil {
			break
		}
		if p := m.Pattern(); p < len(found) {
			found[p] = true
		}
	}
	return found
}

// SelectionAwareMaxScore implements spec §4.7's selection-aware
// MaxScore: the outer union runs over essential unigram cursors plus
// essential bigram cursors (already intersections materialized as
// single postings); non-essential unigrams are consulted only as
// point lookups with the same reverse-MI short-circuit as MaxScore.
// If verifier is non-nil, a bigram contribution is only admitted once
// its surface-form phrase is confirmed present in docText(d).
func SelectionAwareMaxScore(sel Selection, k int, verifier *PhraseVerifier, docText func(d uint64) string) []topk.Entry {
	essential := append(append([]*cursor.ScoredCursor(nil), sel.EssentialUnigrams...), sel.EssentialBigrams...)
	nonEssential := append([]*cursor.ScoredCursor(nil), sel.NonEssential...)

	bigramStart := len(sel.EssentialUnigrams)
	live := make([]*cursor.ScoredCursor, 0, len(essential))
	// phraseIdx[i] is live[i]'s phrase index in verifier, -1 for unigrams.
	phraseIdx := make([]int, 0, len(essential))
	for j, c := range essential {
		if c.Next() {
			live = append(live, c)
			if j >= bigramStart {
				phraseIdx = append(phraseIdx, j-bigramStart)
			} else {
				phraseIdx = append(phraseIdx, -1)
			}
		}
	}
	sort.Slice(nonEssential, func(i, j int) bool {
		return nonEssential[i].MaxScore() < nonEssential[j].MaxScore()
	})
	ub := make([]float64, len(nonEssential))
	var run float64
	for i, c := range nonEssential {
		run += c.MaxScore()
		ub[i] = run
	}
	for _, c := range nonEssential {
		c.NextGeq(0)
	}

	q := topk.New(k)

	for len(live) > 0 {
		curDoc := live[0].DocID()
		for _, c := range live[1:] {
			if d := c.DocID(); d < curDoc {
				curDoc = d
			}
		}

		var score float64
		for i := 0; i < len(live); i++ {
			if live[i].DocID() != curDoc {
				continue
			}
			contribution := live[i].Score()
			if verifier != nil && phraseIdx[i] >= 0 && docText != nil {
				found := verifier.Verify(docText(curDoc))
				bIdx := phraseIdx[i]
				if bIdx >= len(found) || !found[bIdx] {
					contribution = 0 // bigram hit not confirmed adjacent
				}
			}
			score += contribution
			if !live[i].Next() {
				live = append(live[:i], live[i+1:]...)
				phraseIdx = append(phraseIdx[:i], phraseIdx[i+1:]...)
				i--
			}
		}

		for i := len(nonEssential) - 1; i >= 0; i-- {
			if !q.WouldEnter(score + ub[i]) {
				break
			}
			if f, ok := lookupAt(nonEssential[i], curDoc); ok {
				score += f
			}
		}

		q.Insert(score, curDoc)
	}
	return q.Finalize()
}
