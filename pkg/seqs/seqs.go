// Package seqs implements the variant-picking indexed sequence and the
// uniform/optimal partitioned sequence on top of pkg/eliasfano, per
// spec §4.2's "Variants" and §4.3.
package seqs

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/kittclouds/pisago/pkg/config"
	"github.com/kittclouds/pisago/pkg/eliasfano"
)

// Variant identifies which backing representation an IndexedSequence
// chose to minimize its encoded size.
type Variant int

const (
	VariantEliasFano Variant = iota
	VariantBitmap
	VariantAllOnes
)

// IndexedSequence is a 1- or 2-bit type tag over {EliasFano, bitmap,
// all-ones}, choosing whichever minimizes encoded size (spec §4.2).
type IndexedSequence struct {
	variant Variant
	n, u    uint64

	ef      *eliasfano.EliasFano
	bitmap  *roaring.Bitmap
	allOnes *eliasfano.AllOnesSequence
}

// Build picks the smallest of the three variants for the given
// strictly increasing values over universe u.
func Build(values []uint64, u uint64, params config.GlobalParameters) *IndexedSequence {
	n := uint64(len(values))

	if allOnes, ok := eliasfano.IsAllOnes(values, u); ok {
		return &IndexedSequence{variant: VariantAllOnes, n: n, u: u, allOnes: allOnes}
	}

	b := eliasfano.NewBuilder(u, params)
	for _, v := range values {
		_ = b.PushBack(v) // caller-guaranteed sorted & in-range
	}
	ef := b.Build()
	efBits := ef.BitSize()

	bm := roaring.New()
	for _, v := range values {
		bm.Add(uint32(v))
	}
	bitmapBits := uint64(bm.GetSerializedSizeInBytes()) * 8

	if n > 0 && bitmapBits < efBits {
		return &IndexedSequence{variant: VariantBitmap, n: n, u: u, bitmap: bm}
	}
	return &IndexedSequence{variant: VariantEliasFano, n: n, u: u, ef: ef}
}

// Len returns the number of elements.
func (s *IndexedSequence) Len() uint64 { return s.n }

// Universe returns the exclusive upper bound of the sequence's values.
func (s *IndexedSequence) Universe() uint64 { return s.u }

// Variant reports which representation was chosen.
func (s *IndexedSequence) Variant() Variant { return s.variant }

// Cursor is the uniform enumerator surface over any variant, matching
// the `next`/`next_geq`/`move` operations the rest of the index layers
// depend on.
type Cursor struct {
	seq *IndexedSequence
	pos int64
	val uint64

	efEn *eliasfano.Enumerator
	bmIt roaring.IntPeekable
}

// NewCursor creates a cursor positioned before the first element.
func (s *IndexedSequence) NewCursor() *Cursor {
	c := &Cursor{seq: s, pos: -1}
	switch s.variant {
	case VariantEliasFano:
		c.efEn = eliasfano.NewEnumerator(s.ef)
	case VariantBitmap:
		c.bmIt = s.bitmap.Iterator()
	}
	return c
}

// Position returns the current element index, or -1 before the first
// Next/NextGeq call.
func (c *Cursor) Position() int64 { return c.pos }

// Value returns the value at the current position.
func (c *Cursor) Value() uint64 { return c.val }

// Next advances to the next element.
func (c *Cursor) Next() bool {
	switch c.seq.variant {
	case VariantAllOnes:
		c.pos++
		if uint64(c.pos) >= c.seq.n {
			return false
		}
		c.val = c.seq.allOnes.ValueAt(uint64(c.pos))
		return true
	case VariantEliasFano:
		idx, v, ok := c.efEn.Next()
		if !ok {
			return false
		}
		c.pos, c.val = int64(idx), v
		return true
	case VariantBitmap:
		if !c.bmIt.HasNext() {
			return false
		}
		c.val = uint64(c.bmIt.Next())
		c.pos++
		return true
	}
	return false
}

// NextGeq positions the cursor at the first element >= x.
func (c *Cursor) NextGeq(x uint64) bool {
	switch c.seq.variant {
	case VariantAllOnes:
		idx, v, ok := c.seq.allOnes.NextGeq(x)
		if !ok {
			return false
		}
		c.pos, c.val = int64(idx), v
		return true
	case VariantEliasFano:
		idx, v, ok := c.efEn.NextGeq(x)
		if !ok {
			return false
		}
		c.pos, c.val = int64(idx), v
		return true
	case VariantBitmap:
		if c.bmIt == nil {
			c.bmIt = c.seq.bitmap.Iterator()
		}
		c.bmIt.AdvanceIfNeeded(uint32(x))
		if !c.bmIt.HasNext() {
			return false
		}
		c.val = uint64(c.bmIt.PeekNext())
		c.bmIt.Next()
		c.pos = int64(c.seq.bitmap.Rank(uint32(c.val))) - 1
		return true
	}
	return false
}

// Move jumps directly to element index i.
func (c *Cursor) Move(i uint64) bool {
	switch c.seq.variant {
	case VariantAllOnes:
		if i >= c.seq.n {
			return false
		}
		c.pos = int64(i)
		c.val = c.seq.allOnes.ValueAt(i)
		return true
	case VariantEliasFano:
		idx, v, ok := c.efEn.Move(i)
		if !ok {
			return false
		}
		c.pos, c.val = int64(idx), v
		return true
	case VariantBitmap:
		// Bitmaps have no direct index->value jump; fall back to a fresh
		// scan, acceptable since the bitmap variant is only chosen for
		// very dense (small-universe) postings where this is cheap.
		c.bmIt = c.seq.bitmap.Iterator()
		c.pos = -1
		for c.pos < int64(i) {
			if !c.Next() {
				return false
			}
		}
		return true
	}
	return false
}
