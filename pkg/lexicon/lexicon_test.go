package lexicon

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddAssignsStableSequentialIDs(t *testing.T) {
	l := New(nil)
	a := l.Add("apple")
	b := l.Add("banana")
	aAgain := l.Add("apple")

	require.Equal(t, a, aAgain)
	require.NotEqual(t, a, b)
	require.Equal(t, 2, l.Len())
}

func TestResolveUnknownTermIsAnError(t *testing.T) {
	l := New(nil)
	l.Add("known")

	_, err := l.Resolve("unknown")
	require.ErrorIs(t, err, ErrUnknownTerm)

	id, err := l.Resolve("known")
	require.NoError(t, err)
	require.Equal(t, uint64(0), id)
}

func TestTermReturnsStemmedSurfaceForm(t *testing.T) {
	lower := Stemmer(strings.ToLower)
	l := New(lower)
	id := l.Add("Running")

	term, ok := l.Term(id)
	require.True(t, ok)
	require.Equal(t, "running", term)

	_, err := l.Resolve("RUNNING")
	require.NoError(t, err)
}

func TestFuzzyLookupFindsNearestTermOnTypo(t *testing.T) {
	l := New(nil)
	l.Add("consensus")
	l.Add("paxos")

	got := l.FuzzyLookup("concensus", 5)
	require.Contains(t, got, "consensus")
	require.NotContains(t, got, "paxos")
}

func TestFuzzyLookupRespectsLimit(t *testing.T) {
	l := New(nil)
	l.Add("consensus")
	l.Add("consensual")
	l.Add("consent")

	got := l.FuzzyLookup("consensu", 1)
	require.Len(t, got, 1)
}

func TestFuzzyLookupReturnsNilWhenNothingOverlaps(t *testing.T) {
	l := New(nil)
	l.Add("raft")

	require.Nil(t, l.FuzzyLookup("xyzxyz", 5))
}

func TestPrefixSearchFindsMatchingTerms(t *testing.T) {
	l := New(nil)
	l.Add("cat")
	l.Add("car")
	l.Add("dog")

	got := l.PrefixSearch("ca")
	require.ElementsMatch(t, []string{"cat", "car"}, got)
}
