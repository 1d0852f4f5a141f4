// Package eliasfano implements the compact Elias-Fano representation
// of a monotone, strictly increasing sequence of 64-bit values with
// two-level sampling over the high-bits unary stream, per spec §4.2.
//
// A sequence of length n over universe U is split into lowerBits low
// bits (packed, random access) and ⌈U/2^lowerBits⌉ high buckets
// (unary, sequential scan with sampled jump tables). The strict and
// all-ones variants described in §4.2 live in variants.go.
package eliasfano

import (
	"errors"
	"math/bits"

	"github.com/kittclouds/pisago/pkg/bitvector"
	"github.com/kittclouds/pisago/pkg/config"
)

// ErrNotSorted is returned by the builder when a pushed value is not
// strictly greater than the previous one, or exceeds the universe.
var ErrNotSorted = errors.New("eliasfano: sequence must be strictly increasing and below the universe")

// lowerBits computes ⌊log2(U/n)⌋, or 0 if U <= n, matching §3's
// invariant for EF parameterization.
func lowerBits(u, n uint64) uint {
	if n == 0 || u <= n {
		return 0
	}
	return uint(bits.Len64(u/n) - 1)
}

type sample struct {
	idx    uint64 // element index
	bucket uint64 // high bucket value of that element (v >> lowerBits)
	pos    uint64 // bit position of that element's 1-bit in the high stream
}

// EliasFano is a read-only, immutable compact EF sequence.
type EliasFano struct {
	n, u      uint64
	lowerBits uint
	high      *bitvector.BitVector
	low       *bitvector.BitVector
	pointers0 []sample // sampled by high-bucket threshold, stride 2^LogSampling0
	pointers1 []sample // sampled by element index, stride 2^LogSampling1
	params    config.GlobalParameters
}

// Builder accumulates a strictly increasing sequence and produces an
// EliasFano value on Build.
type Builder struct {
	u      uint64
	values []uint64
	params config.GlobalParameters
}

// NewBuilder starts a builder for a sequence over universe [0, u).
func NewBuilder(u uint64, params config.GlobalParameters) *Builder {
	return &Builder{u: u, params: params}
}

// PushBack appends v, which must be strictly greater than the
// previously pushed value and less than the universe.
func (b *Builder) PushBack(v uint64) error {
	if v >= b.u {
		return ErrNotSorted
	}
	if len(b.values) > 0 && v <= b.values[len(b.values)-1] {
		return ErrNotSorted
	}
	b.values = append(b.values, v)
	return nil
}

// Len returns the number of values pushed so far.
func (b *Builder) Len() int { return len(b.values) }

// Build finalizes the sequence.
func (b *Builder) Build() *EliasFano {
	return build(b.values, b.u, b.params)
}

// appendZeros appends n zero bits in <=64-bit chunks.
func appendZeros(bv *bitvector.BitVector, n uint64) {
	for n > 0 {
		chunk := n
		if chunk > 64 {
			chunk = 64
		}
		bv.AppendBits(0, uint(chunk))
		n -= chunk
	}
}

func build(values []uint64, u uint64, params config.GlobalParameters) *EliasFano {
	n := uint64(len(values))
	l := lowerBits(u, n)
	mask := uint64(0)
	if l > 0 {
		mask = (uint64(1) << l) - 1
	}

	high := bitvector.New()
	low := bitvector.NewWithCapacity(n * uint64(l))

	highPos := make([]uint64, n)
	bucketOf := make([]uint64, n)

	var lastBucket uint64
	for i, v := range values {
		bucket := v >> l
		appendZeros(high, bucket-lastBucket)
		pos := high.Size()
		high.Push1()
		highPos[i] = pos
		bucketOf[i] = bucket
		lastBucket = bucket

		if l > 0 {
			low.AppendBits(v&mask, l)
		}
	}

	stride1 := uint64(1) << params.LogSampling1
	var pointers1 []sample
	for i := uint64(0); i < n; i += stride1 {
		pointers1 = append(pointers1, sample{idx: i, bucket: bucketOf[i], pos: highPos[i]})
	}

	stride0 := uint64(1) << params.LogSampling0
	var pointers0 []sample
	if n > 0 {
		maxBucket := bucketOf[n-1]
		idx := uint64(0)
		for k := uint64(1); k*stride0 <= maxBucket; k++ {
			threshold := k * stride0
			for idx < n && bucketOf[idx] < threshold {
				idx++
			}
			if idx >= n {
				break
			}
			pointers0 = append(pointers0, sample{idx: idx, bucket: bucketOf[idx], pos: highPos[idx]})
		}
	}

	return &EliasFano{
		n: n, u: u, lowerBits: l,
		high: high, low: low,
		pointers0: pointers0, pointers1: pointers1,
		params: params,
	}
}

// BitSize returns the total bits occupied by the high and low streams,
// used by pkg/seqs to compare this representation's encoded size
// against the other indexed-sequence variants.
func (e *EliasFano) BitSize() uint64 { return e.high.Size() + e.low.Size() }

// Len returns the number of values in the sequence.
func (e *EliasFano) Len() uint64 { return e.n }

// Universe returns the exclusive upper bound of the sequence's values.
func (e *EliasFano) Universe() uint64 { return e.u }

func (e *EliasFano) lowAt(i uint64) uint64 {
	if e.lowerBits == 0 {
		return 0
	}
	return e.low.GetBits(i*uint64(e.lowerBits), e.lowerBits)
}

// valueFromBucket reconstructs the i-th value given its high bucket.
func (e *EliasFano) valueFromBucket(i, bucket uint64) uint64 {
	return (bucket << e.lowerBits) | e.lowAt(i)
}

// ToSlice decodes the whole sequence (test/debug convenience; not used
// on the query hot path).
func (e *EliasFano) ToSlice() []uint64 {
	out := make([]uint64, e.n)
	en := NewEnumerator(e)
	for i := uint64(0); i < e.n; i++ {
		_, v, ok := en.Next()
		if !ok {
			break
		}
		out[i] = v
	}
	return out
}

// Enumerator walks an EliasFano sequence forward, supporting Move,
// Next and NextGeq as specified in §4.2. An Enumerator is not safe for
// concurrent use; callers needing parallel cursors create one each.
type Enumerator struct {
	ef      *EliasFano
	idx     int64 // current element index, -1 before the first element
	bucket  uint64
	lastPos uint64 // absolute high-bit position of the current element's 1-bit
	unary   *bitvector.UnaryEnumerator
}

// NewEnumerator creates an enumerator positioned before the first
// element.
func NewEnumerator(ef *EliasFano) *Enumerator {
	return &Enumerator{ef: ef, idx: -1, unary: bitvector.NewUnaryEnumerator(ef.high, 0)}
}

// Position returns the current element index (-1 if Next/Move has not
// been called yet, or e.Len() past the end).
func (en *Enumerator) Position() int64 { return en.idx }

// Next advances to the next element and returns (index, value, true),
// or (0, 0, false) past the end.
func (en *Enumerator) Next() (uint64, uint64, bool) {
	pos, ok := en.unary.Next()
	if !ok {
		en.idx = int64(en.ef.n)
		return 0, 0, false
	}
	if en.idx < 0 {
		en.bucket = pos // zeros before the very first 1-bit equal its position
	} else {
		en.bucket += pos - en.lastPos - 1
	}
	en.lastPos = pos
	en.idx++
	v := en.ef.valueFromBucket(uint64(en.idx), en.bucket)
	return uint64(en.idx), v, true
}

// Move jumps directly to element index p, using the pointers1 sample
// table to start as close as possible before linearly scanning the
// remainder, per the O(1)-amortized access the spec requires.
func (en *Enumerator) Move(p uint64) (uint64, uint64, bool) {
	ef := en.ef
	if p >= ef.n {
		en.idx = int64(ef.n)
		return 0, 0, false
	}
	if len(ef.pointers1) > 0 {
		stride1 := uint64(1) << ef.params.LogSampling1
		k := p / stride1
		if k >= uint64(len(ef.pointers1)) {
			k = uint64(len(ef.pointers1)) - 1
		}
		s := ef.pointers1[k]
		en.idx = int64(s.idx)
		en.bucket = s.bucket
		en.lastPos = s.pos
		en.unary = bitvector.NewUnaryEnumerator(ef.high, s.pos+1)
	} else {
		en.idx = -1
		en.unary = bitvector.NewUnaryEnumerator(ef.high, 0)
		if _, _, ok := en.Next(); !ok {
			return 0, 0, false
		}
	}
	for uint64(en.idx) < p {
		if _, _, ok := en.Next(); !ok {
			return 0, 0, false
		}
	}
	v := ef.valueFromBucket(uint64(en.idx), en.bucket)
	return uint64(en.idx), v, true
}

// NextGeq positions the enumerator at the first element >= x, using
// the pointers0 sample table to skip directly near the target high
// bucket before a bounded linear scan resolves the exact element.
// Returns (0, 0, false) if no element >= x exists.
func (en *Enumerator) NextGeq(x uint64) (uint64, uint64, bool) {
	ef := en.ef
	if ef.n == 0 || x >= ef.u {
		en.idx = int64(ef.n)
		return 0, 0, false
	}
	xhi := x >> ef.lowerBits

	found := false
	if len(ef.pointers0) > 0 {
		stride0 := uint64(1) << ef.params.LogSampling0
		k := xhi / stride0
		// pointers0[j] is sampled at threshold (j+1)*stride0, i.e. the
		// first element whose bucket is >= that threshold. We need a
		// start position at or before xhi's bucket, so the usable
		// sample is the one at threshold k*stride0, which is
		// pointers0[k-1]; there is no such sample for k == 0, since
		// thresholds start at 1*stride0.
		if k > 0 {
			j := k - 1
			if j >= uint64(len(ef.pointers0)) {
				j = uint64(len(ef.pointers0)) - 1
			}
			s := ef.pointers0[j]
			en.idx = int64(s.idx)
			en.bucket = s.bucket
			en.lastPos = s.pos
			en.unary = bitvector.NewUnaryEnumerator(ef.high, s.pos+1)
			found = true
		}
	}
	if !found {
		en.idx = -1
		en.unary = bitvector.NewUnaryEnumerator(ef.high, 0)
		if _, _, ok := en.Next(); !ok {
			return 0, 0, false
		}
	}
	for {
		v := ef.valueFromBucket(uint64(en.idx), en.bucket)
		if v >= x {
			return uint64(en.idx), v, true
		}
		if _, _, ok := en.Next(); !ok {
			return 0, 0, false
		}
	}
}
