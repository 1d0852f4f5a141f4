// Package index implements the frozen, mmappable index blob of spec
// §6.2: a 64-bit flags header followed by a depth-first serialization
// of the index's field tree, persisted through an hackpadfs.FS so the
// same code runs against the OS filesystem or an in-memory one in
// tests, mirroring the teacher's pkg/vector.Store.
package index

import (
	"github.com/kittclouds/pisago/pkg/bitvector"
	"github.com/kittclouds/pisago/pkg/config"
	"github.com/kittclouds/pisago/pkg/eliasfano"
)

// BitVectorCollection is spec §6.3's shared-bits container: one
// growing raw bit vector holding every list's self-describing
// (count, width, values) packing back to back, with a monotone
// Elias-Fano sequence over each list's starting bit offset so a reader
// seeks straight to list i without touching its neighbors.
//
// The header burned into each list (rather than kept in a side table)
// is what makes `endpoints` alone sufficient external metadata, which
// is what §6.3 specifies the type carries.
type BitVectorCollection struct {
	size      uint64
	endpoints *eliasfano.EliasFano
	bits      *bitvector.BitVector
}

// Size returns the number of lists in the collection.
func (c *BitVectorCollection) Size() uint64 { return c.size }

func (c *BitVectorCollection) listStart(i uint64) uint64 {
	_, v, _ := eliasfano.NewEnumerator(c.endpoints).Move(i)
	return v
}

// List decodes list i back into its logical uint64 values.
func (c *BitVectorCollection) List(i uint64) []uint64 {
	pos := c.listStart(i)
	count := c.bits.GetBits(pos, 32)
	width := uint(c.bits.GetBits(pos+32, 8))
	pos += 40
	out := make([]uint64, count)
	for j := uint64(0); j < count; j++ {
		out[j] = c.bits.GetBits(pos, width)
		pos += uint64(width)
	}
	return out
}

// BitVectorCollectionBuilder accumulates lists in order and produces a
// BitVectorCollection on Build.
type BitVectorCollectionBuilder struct {
	bits    *bitvector.BitVector
	offsets []uint64
	params  config.GlobalParameters
}

// NewBitVectorCollectionBuilder starts an empty collection builder.
func NewBitVectorCollectionBuilder(params config.GlobalParameters) *BitVectorCollectionBuilder {
	return &BitVectorCollectionBuilder{bits: bitvector.New(), offsets: []uint64{0}, params: params}
}

func bitWidth(values []uint64) uint {
	var maxV uint64
	for _, v := range values {
		if v > maxV {
			maxV = v
		}
	}
	w := uint(0)
	for maxV > 0 {
		w++
		maxV >>= 1
	}
	return w
}

// Append packs values as (count: 32 bits, width: 8 bits, values: width
// bits each) and records the new list boundary. Offsets must be
// strictly increasing for the EF endpoint sequence, so every list —
// including an empty one — advances the shared buffer by its 40-bit
// header at minimum.
func (b *BitVectorCollectionBuilder) Append(values []uint64) {
	width := bitWidth(values)
	b.bits.AppendBits(uint64(len(values)), 32)
	b.bits.AppendBits(uint64(width), 8)
	for _, v := range values {
		b.bits.AppendBits(v, width)
	}
	b.offsets = append(b.offsets, b.bits.Size())
}

// Build finalizes the collection.
func (b *BitVectorCollectionBuilder) Build() *BitVectorCollection {
	size := uint64(len(b.offsets) - 1)
	efb := eliasfano.NewBuilder(b.offsets[len(b.offsets)-1]+1, b.params)
	for _, off := range b.offsets {
		_ = efb.PushBack(off)
	}
	return &BitVectorCollection{size: size, endpoints: efb.Build(), bits: b.bits}
}

// serializedBits exposes the raw buffer and size for the frozen
// index's own (count: u64, raw_bytes) vector encoding.
func (c *BitVectorCollection) serializedBits() (data []byte, sizeBits uint64) {
	return c.bits.ToBytes(), c.bits.Size()
}

func bitVectorCollectionFromParts(size uint64, endpoints []uint64, bitsData []byte, bitsSize uint64, params config.GlobalParameters) *BitVectorCollection {
	efb := eliasfano.NewBuilder(endpoints[len(endpoints)-1]+1, params)
	for _, off := range endpoints {
		_ = efb.PushBack(off)
	}
	return &BitVectorCollection{
		size:      size,
		endpoints: efb.Build(),
		bits:      bitvector.NewFromBytes(bitsData, bitsSize),
	}
}
