package blockcodec

import (
	"github.com/kittclouds/pisago/pkg/bitvector"
	"github.com/kittclouds/pisago/pkg/intcode"
)

// EncodeDocBlock encodes a block of absolute, strictly increasing doc
// ids. blockBase is the doc id immediately preceding the block's first
// element (0 for the very first block of a list, matching "first doc
// is absolute" once the list's own base is 0). sumOfValues is
// docs[len-1]-blockBase, the block's doc-id span, needed by the
// interpolative fallback (and available to the caller from the skip
// table regardless of path). Full (BlockSize) blocks use the native
// codec on gaps; shorter/irregular tail blocks defer to
// binary-interpolative coding over the absolute values directly,
// per spec §4.4.
func EncodeDocBlock(codec Codec, docs []uint32, blockBase uint32, sumOfValues uint32) []byte {
	n := len(docs)
	if n == BlockSize {
		gaps := make([]uint32, n)
		prev := blockBase
		for i, d := range docs {
			gaps[i] = d - prev
			prev = d
		}
		return codec.Encode(gaps)
	}
	return encodeInterpolativeDocBlock(docs, blockBase, sumOfValues)
}

// DecodeDocBlock reverses EncodeDocBlock, filling out (len(out) == n)
// and returning the number of bytes consumed from in.
func DecodeDocBlock(codec Codec, in []byte, out []uint32, blockBase uint32, sumOfValues uint32) int {
	n := len(out)
	if n == BlockSize {
		gaps := make([]uint32, n)
		consumed := codec.Decode(in, gaps)
		prev := blockBase
		for i, g := range gaps {
			prev += g
			out[i] = prev
		}
		return consumed
	}
	return decodeInterpolativeDocBlock(in, out, blockBase, sumOfValues)
}

func encodeInterpolativeDocBlock(docs []uint32, blockBase, sumOfValues uint32) []byte {
	values := make([]uint64, len(docs))
	for i, d := range docs {
		values[i] = uint64(d)
	}
	lo := uint64(blockBase) + 1
	if blockBase == 0 {
		lo = 0 // first block: doc 0 is a valid first element
	}
	hi := uint64(blockBase) + uint64(sumOfValues)
	bv := bitvector.New()
	intcode.EncodeInterpolative(bv, values, lo, hi)
	return bv.ToBytes()
}

func decodeInterpolativeDocBlock(in []byte, out []uint32, blockBase, sumOfValues uint32) int {
	n := len(out)
	lo := uint64(blockBase) + 1
	if blockBase == 0 {
		lo = 0 // first block: doc 0 is a valid first element
	}
	hi := uint64(blockBase) + uint64(sumOfValues)
	bv := bitvector.NewFromBytes(in, uint64(len(in))*8)
	r := bitvector.NewReader(bv, 0)
	values := make([]uint64, n)
	intcode.DecodeInterpolative(r, values, lo, hi)
	for i, v := range values {
		out[i] = uint32(v)
	}
	return int((r.Pos() + 7) / 8)
}
