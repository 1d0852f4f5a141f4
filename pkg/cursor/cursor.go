// Package cursor implements the uniform posting-list cursor surface of
// spec §4.7: docid()/next()/next_geq()/freq(), scored and max-scored
// variants, and the combinators (union, block-max union, intersection,
// lookup-transform) the query operators in pkg/query drive in DAAT
// order.
package cursor

import (
	"math"

	"github.com/kittclouds/pisago/pkg/blockindex"
	"github.com/kittclouds/pisago/pkg/freqindex"
	"github.com/kittclouds/pisago/pkg/wanddata"
)

// Cursor is the minimal surface every combinator and operator drives:
// positional doc-id access plus forward/seek advance.
type Cursor interface {
	DocID() uint64
	Next() bool
	NextGeq(d uint64) bool
}

// PostingCursor adds frequency access to Cursor, matching spec's
// `freq()` operation.
type PostingCursor interface {
	Cursor
	Freq() uint32
}

// --- adapters over the two posting-list representations ---

// blockIndexCursor adapts *pkg/blockindex.Cursor (uint32 doc ids) to
// PostingCursor's uint64 surface.
type blockIndexCursor struct{ c *blockindex.Cursor }

// FromBlockIndex wraps a block-compressed posting cursor.
func FromBlockIndex(c *blockindex.Cursor) PostingCursor { return blockIndexCursor{c} }

func (b blockIndexCursor) DocID() uint64        { return uint64(b.c.DocID()) }
func (b blockIndexCursor) Freq() uint32         { return b.c.Freq() }
func (b blockIndexCursor) Next() bool           { return b.c.Next() }
func (b blockIndexCursor) NextGeq(d uint64) bool { return b.c.NextGeq(uint32(d)) }

// freqIndexCursor adapts *pkg/freqindex.Cursor to PostingCursor.
type freqIndexCursor struct{ c *freqindex.Cursor }

// FromFreqIndex wraps an EF-family posting cursor.
func FromFreqIndex(c *freqindex.Cursor) PostingCursor { return freqIndexCursor{c} }

func (f freqIndexCursor) DocID() uint64        { return f.c.DocID() }
func (f freqIndexCursor) Freq() uint32         { return uint32(f.c.Freq()) }
func (f freqIndexCursor) Next() bool           { return f.c.Next() }
func (f freqIndexCursor) NextGeq(d uint64) bool { return f.c.NextGeq(d) }

// --- scored cursor ---

// DocLengths resolves a doc id to its normalized length (len_d/avg_len).
type DocLengths interface {
	Normalized(doc uint64) float64
}

// ArrayDocLengths is the straightforward DocLengths backed by
// pkg/wanddata.NormalizedLengths.
type ArrayDocLengths struct {
	Lens wanddata.NormalizedLengths
}

// Normalized implements DocLengths.
func (a ArrayDocLengths) Normalized(doc uint64) float64 {
	if doc >= uint64(len(a.Lens)) {
		return 1
	}
	return float64(a.Lens[doc])
}

// ScoredCursor applies a scorer and a query weight to a posting
// cursor's raw frequencies, producing spec §4.7's "scorer-applied
// impact per posting". q_weight is multiplicity · idf_t, computed by
// the caller.
type ScoredCursor struct {
	src      PostingCursor
	scorer   wanddata.Scorer
	qWeight  float64
	lens     DocLengths
	maxScore float64 // q_weight * MI_t, the list-wide upper bound
}

// NewScoredCursor builds a scored cursor over src.
func NewScoredCursor(src PostingCursor, scorer wanddata.Scorer, qWeight float64, lens DocLengths, termMaxImpact float64) *ScoredCursor {
	return &ScoredCursor{src: src, scorer: scorer, qWeight: qWeight, lens: lens, maxScore: qWeight * termMaxImpact}
}

// DocID implements Cursor.
func (s *ScoredCursor) DocID() uint64 { return s.src.DocID() }

// Next implements Cursor.
func (s *ScoredCursor) Next() bool { return s.src.Next() }

// NextGeq implements Cursor.
func (s *ScoredCursor) NextGeq(d uint64) bool { return s.src.NextGeq(d) }

// Freq returns the raw frequency at the current position.
func (s *ScoredCursor) Freq() uint32 { return s.src.Freq() }

// Score computes the scorer-applied impact at the current position.
func (s *ScoredCursor) Score() float64 {
	normLen := s.lens.Normalized(s.DocID())
	return s.qWeight * s.scorer.Score(s.src.Freq(), normLen, 1.0)
}

// MaxScore returns the list-wide upper bound q_weight*MI_t.
func (s *ScoredCursor) MaxScore() float64 { return s.maxScore }

// --- max-scored (block-max) cursor ---

// MaxScoredCursor extends ScoredCursor with a block-max channel for
// BlockMaxWAND: the current block's upper bound, realigned to the
// pivot doc by the operator before each tightened pivot check.
type MaxScoredCursor struct {
	*ScoredCursor
	wand     *wanddata.TermWandData
	blockIdx int
}

// NewMaxScoredCursor builds a block-max cursor over src.
func NewMaxScoredCursor(src PostingCursor, scorer wanddata.Scorer, qWeight float64, lens DocLengths, wand *wanddata.TermWandData) *MaxScoredCursor {
	return &MaxScoredCursor{
		ScoredCursor: NewScoredCursor(src, scorer, qWeight, lens, float64(wand.MaxScore())),
		wand:         wand,
	}
}

// AlignBlock repositions the block-max channel to the block covering
// doc id d (the WAND pivot), per spec §4.7's BMW "align each term's
// block-max cursor to the pivot".
func (m *MaxScoredCursor) AlignBlock(d uint64) {
	m.blockIdx = m.wand.BlockIndexFor(uint32(d))
}

// BlockUpperBound returns q_weight * BM_{t,block} for whichever block
// AlignBlock last positioned onto.
func (m *MaxScoredCursor) BlockUpperBound() float64 {
	if m.blockIdx >= m.wand.NumBlocks() {
		return 0
	}
	return m.qWeight * float64(m.wand.BlockMaxScore(m.blockIdx))
}

// BlockLastDocID returns the last doc id of the currently aligned
// block, used by BMW to compute the "min_b BM_end + 1" advance target.
func (m *MaxScoredCursor) BlockLastDocID() uint64 {
	if m.blockIdx >= m.wand.NumBlocks() {
		return math.MaxUint64
	}
	return uint64(m.wand.LastDocID(m.blockIdx))
}

// --- combinators ---

// UnionCursor merges several cursors by repeatedly advancing to the
// minimum current doc id across all of them, per spec §4.7's OR.
type UnionCursor struct {
	cursors []Cursor
	done    []bool   // cursors whose last Next/NextGeq returned false
	active  []Cursor // cursors currently positioned at docID
	docID   uint64
	started bool
}

// NewUnionCursor builds a union over cursors, each already positioned
// before its first element.
func NewUnionCursor(cursors []Cursor) *UnionCursor {
	return &UnionCursor{cursors: cursors, done: make([]bool, len(cursors))}
}

// DocID returns the union's current doc id.
func (u *UnionCursor) DocID() uint64 { return u.docID }

// Active returns the cursors currently positioned at DocID(), for the
// caller to accumulate scores or touch freqs.
func (u *UnionCursor) Active() []Cursor { return u.active }

// Next advances every cursor positioned at the current doc, then
// recomputes the new minimum.
func (u *UnionCursor) Next() bool {
	if !u.started {
		u.started = true
		for i, c := range u.cursors {
			u.done[i] = !c.Next()
		}
	} else {
		for i, c := range u.cursors {
			if !u.done[i] && c.DocID() == u.docID {
				u.done[i] = !c.Next()
			}
		}
	}
	return u.recompute(0)
}

// NextGeq advances the union to the first doc id >= d.
func (u *UnionCursor) NextGeq(d uint64) bool {
	u.started = true
	for i, c := range u.cursors {
		if !u.done[i] {
			u.done[i] = !c.NextGeq(d)
		}
	}
	return u.recompute(d)
}

func (u *UnionCursor) recompute(floor uint64) bool {
	min := uint64(math.MaxUint64)
	exhausted := true
	for i, c := range u.cursors {
		if u.done[i] {
			continue
		}
		d := c.DocID()
		if d < floor {
			continue
		}
		exhausted = false
		if d < min {
			min = d
		}
	}
	if exhausted {
		u.active = nil
		return false
	}
	u.docID = min
	u.active = u.active[:0]
	for i, c := range u.cursors {
		if !u.done[i] && c.DocID() == min {
			u.active = append(u.active, c)
		}
	}
	return true
}

// IntersectionCursor implements leapfrog AND: repeatedly NextGeq every
// cursor to the current maximum doc id among them until all agree, per
// spec §4.7's AND ("sorts cursors by ascending length; uses the
// shortest as pivot and next_geqs the others, restarting on mismatch").
// This combinator doesn't need the length-based pivot choice itself —
// any cursor order converges to the same leapfrog fixpoint — so the
// caller is free to pre-sort cursors by list length before
// constructing this for the fast-path benefit spec describes.
type IntersectionCursor struct {
	cursors []Cursor
	docID   uint64
	started bool
}

// NewIntersectionCursor builds an AND combinator over cursors.
func NewIntersectionCursor(cursors []Cursor) *IntersectionCursor {
	return &IntersectionCursor{cursors: cursors}
}

// DocID returns the intersection's current doc id.
func (x *IntersectionCursor) DocID() uint64 { return x.docID }

// Next advances past the current doc id and re-converges. The first
// call positions every cursor at its first element (the cursors are
// expected to start unadvanced); subsequent calls advance only the
// pivot (cursors[0] — expected pre-sorted ascending by list length, per
// spec §4.7's AND) before re-converging.
func (x *IntersectionCursor) Next() bool {
	if len(x.cursors) == 0 {
		return false
	}
	if !x.started {
		x.started = true
		var candidate uint64
		for i, c := range x.cursors {
			if !c.Next() {
				return false
			}
			if i == 0 || c.DocID() > candidate {
				candidate = c.DocID()
			}
		}
		return x.converge(candidate)
	}
	if !x.cursors[0].Next() {
		return false
	}
	return x.converge(x.cursors[0].DocID())
}

// NextGeq advances the intersection to the first agreed doc id >= d.
func (x *IntersectionCursor) NextGeq(d uint64) bool {
	if len(x.cursors) == 0 {
		return false
	}
	x.started = true
	candidate := d
	for _, c := range x.cursors {
		if !c.NextGeq(d) {
			return false
		}
		if c.DocID() > candidate {
			candidate = c.DocID()
		}
	}
	return x.converge(candidate)
}

func (x *IntersectionCursor) converge(candidate uint64) bool {
	for {
		allMatch := true
		for _, c := range x.cursors {
			if c.DocID() == candidate {
				continue
			}
			if !c.NextGeq(candidate) {
				return false
			}
			if c.DocID() != candidate {
				candidate = c.DocID()
				allMatch = false
				break
			}
		}
		if allMatch {
			x.docID = candidate
			return true
		}
	}
}

// LookupCursor wraps a PostingCursor for the point-lookup access
// pattern spec's selection-aware MaxScore needs for non-essential
// terms: "does docID d appear in this list, and with what freq?"
// rather than a forward DAAT scan.
type LookupCursor struct {
	src PostingCursor
}

// NewLookupCursor builds a lookup-transform cursor over src.
func NewLookupCursor(src PostingCursor) *LookupCursor {
	return &LookupCursor{src: src}
}

// Lookup seeks to doc id d and reports whether it is present, along
// with its frequency.
func (l *LookupCursor) Lookup(d uint64) (freq uint32, ok bool) {
	if !l.src.NextGeq(d) {
		return 0, false
	}
	if l.src.DocID() != d {
		return 0, false
	}
	return l.src.Freq(), true
}
