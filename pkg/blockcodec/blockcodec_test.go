package blockcodec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFixedWidthCodecRoundTrip(t *testing.T) {
	values := make([]uint32, BlockSize)
	for i := range values {
		values[i] = uint32(i*3 + 1)
	}
	c := FixedWidthCodec{}
	enc := c.Encode(values)
	out := make([]uint32, BlockSize)
	consumed := c.Decode(enc, out)
	require.Equal(t, values, out)
	require.LessOrEqual(t, consumed, len(enc))
}

func TestVarByteCodecRoundTrip(t *testing.T) {
	values := []uint32{0, 1, 127, 128, 16384, 1 << 20, 1<<32 - 1}
	c := VarByteCodec{}
	enc := c.Encode(values)
	out := make([]uint32, len(values))
	consumed := c.Decode(enc, out)
	require.Equal(t, values, out)
	require.Equal(t, len(enc), consumed)
}

func TestDocBlockRoundTripFullBlock(t *testing.T) {
	docs := make([]uint32, BlockSize)
	var d uint32
	for i := range docs {
		d += uint32(1 + i%5)
		docs[i] = d
	}
	codec := FixedWidthCodec{}
	enc := EncodeDocBlock(codec, docs, 0, docs[len(docs)-1])
	out := make([]uint32, BlockSize)
	DecodeDocBlock(codec, enc, out, 0, docs[len(docs)-1])
	require.Equal(t, docs, out)
}

func TestDocBlockRoundTripTailBlock(t *testing.T) {
	docs := []uint32{5, 9, 20, 21, 22, 100}
	codec := VarByteCodec{}
	blockBase := uint32(2)
	sumOfValues := docs[len(docs)-1] - blockBase
	enc := EncodeDocBlock(codec, docs, blockBase, sumOfValues)
	out := make([]uint32, len(docs))
	DecodeDocBlock(codec, enc, out, blockBase, sumOfValues)
	require.Equal(t, docs, out)
}

func TestFreqBlockRoundTripFullBlock(t *testing.T) {
	freqs := make([]uint32, BlockSize)
	for i := range freqs {
		freqs[i] = uint32(i % 11)
	}
	codec := FixedWidthCodec{}
	enc := EncodeFreqBlock(codec, freqs)
	out := make([]uint32, BlockSize)
	DecodeFreqBlock(codec, enc, out)
	require.Equal(t, freqs, out)
}

func TestFreqBlockRoundTripTailBlockWithZeros(t *testing.T) {
	freqs := []uint32{0, 0, 3, 0, 7, 1}
	codec := VarByteCodec{}
	enc := EncodeFreqBlock(codec, freqs)
	out := make([]uint32, len(freqs))
	DecodeFreqBlock(codec, enc, out)
	require.Equal(t, freqs, out)
}
