// Package intcode implements the γ and δ universal integer codes and
// the binary-interpolative code used by the block codec toolbox to
// encode short tail blocks (spec §4.1, §4.4).
package intcode

import (
	"math/bits"

	"github.com/kittclouds/pisago/pkg/bitvector"
)

// EncodeGamma writes Elias γ code for x (x must be >= 1): a unary
// count of the number of bits in x minus one, followed by x's bits
// minus the implicit leading one.
func EncodeGamma(bv *bitvector.BitVector, x uint64) {
	if x == 0 {
		panic("intcode: gamma code requires x >= 1")
	}
	n := bits.Len64(x)
	for i := 0; i < n-1; i++ {
		bv.Push0()
	}
	bv.Push1()
	if n > 1 {
		bv.AppendBits(x&((uint64(1)<<uint(n-1))-1), uint(n-1))
	}
}

// DecodeGamma reads a γ-coded value from r.
func DecodeGamma(r *bitvector.Reader) uint64 {
	zeros := 0
	for r.ReadBit() == 0 {
		zeros++
	}
	if zeros == 0 {
		return 1
	}
	low := r.ReadBits(uint(zeros))
	return (uint64(1) << uint(zeros)) | low
}

// EncodeDelta writes Elias δ code for x (x must be >= 1): a γ code for
// the bit-length of x, followed by x's bits minus the implicit
// leading one. δ codes are more compact than γ for large x.
func EncodeDelta(bv *bitvector.BitVector, x uint64) {
	if x == 0 {
		panic("intcode: delta code requires x >= 1")
	}
	n := uint64(bits.Len64(x))
	EncodeGamma(bv, n)
	if n > 1 {
		bv.AppendBits(x&((uint64(1)<<(n-1))-1), uint(n-1))
	}
}

// DecodeDelta reads a δ-coded value from r.
func DecodeDelta(r *bitvector.Reader) uint64 {
	n := DecodeGamma(r)
	if n == 1 {
		return 1
	}
	low := r.ReadBits(uint(n - 1))
	return (uint64(1) << (n - 1)) | low
}

// ceilLog2 returns ceil(log2(u)) for u >= 1.
func ceilLog2(u uint64) uint {
	if u <= 1 {
		return 0
	}
	return uint(bits.Len64(u - 1))
}

// WriteMinimalBinary writes x (0 <= x < u) using a truncated binary
// code: values needing only b-1 bits are written in b-1 bits, the
// remainder in b bits, where b = ceil(log2(u)). This is the "binary"
// primitive the interpolative code uses to encode a value uniformly
// distributed over a known range with minimal redundancy.
func WriteMinimalBinary(bv *bitvector.BitVector, x, u uint64) {
	if u <= 1 {
		return
	}
	b := ceilLog2(u)
	if b == 0 {
		return
	}
	hi := uint64(1) << b
	threshold := hi - u
	if x < threshold {
		bv.AppendBits(x, b-1)
	} else {
		bv.AppendBits(x+threshold, b)
	}
}

// ReadMinimalBinary reads a value written by WriteMinimalBinary over
// the same range u.
func ReadMinimalBinary(r *bitvector.Reader, u uint64) uint64 {
	if u <= 1 {
		return 0
	}
	b := ceilLog2(u)
	if b == 0 {
		return 0
	}
	hi := uint64(1) << b
	threshold := hi - u
	v := r.ReadBits(b - 1)
	if v < threshold {
		return v
	}
	v = (v << 1) | r.ReadBit()
	return v - threshold
}

// EncodeInterpolative binary-interpolative-codes the strictly
// increasing values[] known to lie within [lo, hi] (inclusive),
// recursively encoding the middle element relative to the range left
// after accounting for the elements on either side, per spec §4.4's
// interpolative_block fallback for short/irregular blocks.
func EncodeInterpolative(bv *bitvector.BitVector, values []uint64, lo, hi uint64) {
	n := len(values)
	if n == 0 {
		return
	}
	mid := n / 2
	left := values[:mid]
	right := values[mid+1:]

	rangeLo := lo + uint64(mid)
	rangeHi := hi - uint64(n-1-mid)
	u := rangeHi - rangeLo + 1
	WriteMinimalBinary(bv, values[mid]-rangeLo, u)

	EncodeInterpolative(bv, left, lo, values[mid]-1)
	EncodeInterpolative(bv, right, values[mid]+1, hi)
}

// DecodeInterpolative reverses EncodeInterpolative, writing n values
// into out (which must have length n) given the same [lo, hi] bounds.
func DecodeInterpolative(r *bitvector.Reader, out []uint64, lo, hi uint64) {
	n := len(out)
	if n == 0 {
		return
	}
	mid := n / 2
	rangeLo := lo + uint64(mid)
	rangeHi := hi - uint64(n-1-mid)
	u := rangeHi - rangeLo + 1
	v := ReadMinimalBinary(r, u) + rangeLo
	out[mid] = v

	DecodeInterpolative(r, out[:mid], lo, v-1)
	DecodeInterpolative(r, out[mid+1:], v+1, hi)
}
