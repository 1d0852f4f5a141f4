package blockcodec

import (
	"github.com/kittclouds/pisago/pkg/bitvector"
	"github.com/kittclouds/pisago/pkg/intcode"
)

// EncodeFreqBlock encodes a block of raw (already occurrences-1
// shifted, per §3's v1 semantics) frequency values, which need not be
// monotonic. Full blocks use the native codec directly on the raw
// values; short/irregular tail blocks γ-code each value independently
// (biased by +1 since γ requires x >= 1 and a shifted frequency may be
// 0) — frequencies have no ordering to exploit the way doc-id blocks
// exploit monotonicity for interpolative coding, so the fallback here
// differs from EncodeDocBlock's by design, not oversight.
func EncodeFreqBlock(codec Codec, freqs []uint32) []byte {
	if len(freqs) == BlockSize {
		return codec.Encode(freqs)
	}
	bv := bitvector.New()
	for _, f := range freqs {
		intcode.EncodeGamma(bv, uint64(f)+1)
	}
	return bv.ToBytes()
}

// DecodeFreqBlock reverses EncodeFreqBlock, filling out (len(out) == n)
// and returning the number of bytes consumed.
func DecodeFreqBlock(codec Codec, in []byte, out []uint32) int {
	if len(out) == BlockSize {
		return codec.Decode(in, out)
	}
	bv := bitvector.NewFromBytes(in, uint64(len(in))*8)
	r := bitvector.NewReader(bv, 0)
	for i := range out {
		out[i] = uint32(intcode.DecodeGamma(r) - 1)
	}
	return int((r.Pos() + 7) / 8)
}
