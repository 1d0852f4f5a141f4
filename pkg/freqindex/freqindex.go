// Package freqindex implements the Elias-Fano-family freq index of
// spec §4.4: per term, a partitioned-EF doc-id sequence plus a
// partitioned-EF "positive sequence" over frequencies. This is the
// alternative to pkg/blockindex's block-compressed representation —
// same term posting semantics, traded-off towards random access and
// succinctness over decode throughput.
package freqindex

import (
	"github.com/kittclouds/pisago/pkg/config"
	"github.com/kittclouds/pisago/pkg/seqs"
)

// TermPostingList is one term's EF-family posting list: doc ids stored
// directly as a partitioned EF sequence over [0, numDocs), and
// frequencies stored as a partitioned EF sequence of partial sums of
// (storedFreq+1) — since storedFreq (the §3 v1 occurrences-1 value)
// can be 0, the +1 bias guarantees the running sums are strictly
// increasing and therefore encodable by Elias-Fano.
type TermPostingList struct {
	n        uint64
	docs     *seqs.Partitioned
	freqSums *seqs.Partitioned
}

// Len returns the number of postings.
func (l *TermPostingList) Len() uint64 { return l.n }

// Builder accumulates (docID, occurrences) pairs in increasing doc-id
// order. occurrences is the raw per-document term count (>= 1); the
// §3 v1 shift (occurrences-1) is applied internally at Build time.
type Builder struct {
	docs []uint64
	occs []uint64
}

// NewBuilder starts an empty term posting list builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// PushBack appends the next posting.
func (b *Builder) PushBack(doc uint64, occurrences uint64) {
	b.docs = append(b.docs, doc)
	b.occs = append(b.occs, occurrences)
}

// Build finalizes the term posting list. numDocs bounds the doc-id
// universe; optimalPartition selects the windowed DP partitioner
// (§4.3) over the fixed uniform one for both the doc and freq
// sequences.
func (b *Builder) Build(numDocs uint64, params config.GlobalParameters, optimalPartition bool) *TermPostingList {
	n := uint64(len(b.docs))

	partitionFn := seqs.BuildUniform
	if optimalPartition {
		partitionFn = seqs.BuildOptimal
	}

	docsSeq := partitionFn(b.docs, numDocs, params)

	sums := make([]uint64, n)
	var cum uint64
	for i, occ := range b.occs {
		stored := occ - 1 // §3 v1 semantics
		cum += stored + 1
		sums[i] = cum
	}
	freqU := cum + 1
	freqSeq := partitionFn(sums, freqU, params)

	return &TermPostingList{n: n, docs: docsSeq, freqSums: freqSeq}
}

// Cursor walks a TermPostingList's doc-id sequence, recovering each
// posting's frequency by a direct random-access lookup into the
// partial-sum freq sequence rather than a running differential —
// correct regardless of whether Next or NextGeq produced the current
// position.
type Cursor struct {
	list  *TermPostingList
	docEn *seqs.PartitionEnumerator
	pos   uint64
	docID uint64
	freq  uint64
	ok    bool
}

// NewCursor creates a cursor positioned before the first posting.
func (l *TermPostingList) NewCursor() *Cursor {
	return &Cursor{list: l, docEn: l.docs.NewEnumerator()}
}

// DocID returns the doc id at the cursor's current position.
func (c *Cursor) DocID() uint64 { return c.docID }

// Freq returns the decoded occurrence count at the cursor's current
// position (the inverse of the §3 v1 storage shift).
func (c *Cursor) Freq() uint64 { return c.freq }

// freqAtPos recovers occurrences_i = cumSum_i - cumSum_{i-1} via two
// random-access Move calls into the freq-sum sequence.
func (c *Cursor) freqAtPos(pos uint64) uint64 {
	en := c.list.freqSums.NewEnumerator()
	_, sum, _ := en.Move(pos)
	var prev uint64
	if pos > 0 {
		en2 := c.list.freqSums.NewEnumerator()
		_, prev, _ = en2.Move(pos - 1)
	}
	return sum - prev
}

// Next advances to the next posting.
func (c *Cursor) Next() bool {
	pos, doc, ok := c.docEn.Next()
	if !ok {
		c.ok = false
		return false
	}
	c.pos, c.docID, c.ok = pos, doc, true
	c.freq = c.freqAtPos(pos)
	return true
}

// NextGeq locates the first posting with doc id >= d.
func (c *Cursor) NextGeq(d uint64) bool {
	pos, doc, ok := c.docEn.NextGeq(d)
	if !ok {
		c.ok = false
		return false
	}
	c.pos, c.docID, c.ok = pos, doc, true
	c.freq = c.freqAtPos(pos)
	return true
}
