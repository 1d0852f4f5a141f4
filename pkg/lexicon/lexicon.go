// Package lexicon implements spec §6.4's surface-term resolution: a
// term dictionary keyed by a compressed trie, mapping surface terms to
// the dense term IDs pkg/trecio's query parser and pkg/query's
// operators need, with a pluggable stemmer hook ahead of lookup. A
// secondary q-gram index over the same vocabulary backs FuzzyLookup,
// offering typo-tolerant candidate terms when Resolve misses.
package lexicon

import (
	"errors"
	"sort"

	"github.com/derekparker/trie/v3"

	"github.com/kittclouds/pisago/pkg/qgram"
)

// ErrUnknownTerm is returned by Resolve when a surface term (after
// stemming) isn't in the lexicon.
var ErrUnknownTerm = errors.New("lexicon: unknown term")

// fuzzyGramSize is the q-gram width used for typo-tolerant term
// expansion; 3 is the conventional width for short-string similarity
// (trigram indexing), same as pg_trgm-style schemes.
const fuzzyGramSize = 3

// Stemmer reduces a surface term to its indexing form. The default is
// the identity function; Porter2 stemming (named in spec §6.4) is an
// external collaborator out of this module's core scope — callers
// wire in whichever implementation they need.
type Stemmer func(string) string

func identity(s string) string { return s }

// Lexicon resolves surface terms to dense term IDs and back, via a
// compressed trie over the (stemmed) surface forms.
type Lexicon struct {
	trie    *trie.Trie
	byID    []string
	stemmer Stemmer
	fuzzy   *qgram.QGramIndex // q-gram index over byID, for FuzzyLookup
}

// New creates an empty lexicon. A nil stemmer defaults to identity
// (no stemming).
func New(stemmer Stemmer) *Lexicon {
	if stemmer == nil {
		stemmer = identity
	}
	return &Lexicon{trie: trie.New(), stemmer: stemmer, fuzzy: qgram.NewQGramIndex(fuzzyGramSize)}
}

// Add inserts term (after stemming) into the lexicon if not already
// present, returning its term ID either way.
func (l *Lexicon) Add(term string) uint64 {
	key := l.stemmer(term)
	if node, ok := l.trie.Find(key); ok {
		return node.Meta().(uint64)
	}
	id := uint64(len(l.byID))
	l.trie.Add(key, id)
	l.byID = append(l.byID, key)
	l.fuzzy.IndexDocument(key, map[string]string{"term": key})
	return id
}

// FuzzyLookup returns up to limit terms in the lexicon that share
// q-grams with term, ranked by the rarity of their shared grams
// (rarer grams weigh more), for typo-tolerant query expansion when
// Resolve finds no exact match. Returns nil if nothing shares a gram.
//
// This walks l.fuzzy.GramPostings directly (an OR over every gram of
// term) rather than QGramIndex.GenerateCandidates, which intersects
// ALL of a pattern's grams (an AND) to retrieve full-text search
// candidates — exactly the property a typo breaks, since a single
// character swap can introduce grams absent from every indexed term.
func (l *Lexicon) FuzzyLookup(term string, limit int) []string {
	key := qgram.NormalizeText(l.stemmer(term))
	grams := qgram.ExtractGrams(key, fuzzyGramSize)
	if len(grams) == 0 {
		return nil
	}

	overlap := make(map[string]float64)
	for _, g := range grams {
		postings, ok := l.fuzzy.GramPostings[g]
		if !ok {
			continue
		}
		idf := l.fuzzy.GramIDF(g)
		for candTerm := range postings {
			overlap[candTerm] += idf
		}
	}
	delete(overlap, key)
	if len(overlap) == 0 {
		return nil
	}

	type scored struct {
		term  string
		score float64
	}
	ranked := make([]scored, 0, len(overlap))
	for candTerm, score := range overlap {
		ranked = append(ranked, scored{candTerm, score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].term < ranked[j].term
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]string, len(ranked))
	for i, s := range ranked {
		out[i] = s.term
	}
	return out
}

// Resolve stems term and looks up its ID.
func (l *Lexicon) Resolve(term string) (uint64, error) {
	key := l.stemmer(term)
	node, ok := l.trie.Find(key)
	if !ok {
		return 0, ErrUnknownTerm
	}
	return node.Meta().(uint64), nil
}

// Term returns the stemmed surface form stored for id, if any.
func (l *Lexicon) Term(id uint64) (string, bool) {
	if id >= uint64(len(l.byID)) {
		return "", false
	}
	return l.byID[id], true
}

// Len returns the number of distinct terms in the lexicon.
func (l *Lexicon) Len() int { return len(l.byID) }

// PrefixSearch returns every stemmed term with the given prefix, the
// trie's native query, useful for interactive query expansion.
func (l *Lexicon) PrefixSearch(prefix string) []string {
	return l.trie.PrefixSearch(prefix)
}
