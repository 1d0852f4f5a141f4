package intcode

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kittclouds/pisago/pkg/bitvector"
)

func TestGammaRoundTrip(t *testing.T) {
	values := []uint64{1, 2, 3, 7, 8, 255, 256, 1 << 20, (1 << 40) + 17}
	bv := bitvector.New()
	offsets := make([]uint64, len(values))
	for i, v := range values {
		offsets[i] = bv.Size()
		EncodeGamma(bv, v)
	}
	for i, v := range values {
		r := bitvector.NewReader(bv, offsets[i])
		require.Equal(t, v, DecodeGamma(r))
	}
}

func TestDeltaRoundTrip(t *testing.T) {
	values := []uint64{1, 2, 3, 7, 8, 255, 256, 1 << 20, (1 << 40) + 17, ^uint64(0) >> 4}
	bv := bitvector.New()
	offsets := make([]uint64, len(values))
	for i, v := range values {
		offsets[i] = bv.Size()
		EncodeDelta(bv, v)
	}
	for i, v := range values {
		r := bitvector.NewReader(bv, offsets[i])
		require.Equal(t, v, DecodeDelta(r))
	}
}

func TestDeltaShorterThanGammaForLargeValues(t *testing.T) {
	v := uint64(1) << 30
	g := bitvector.New()
	EncodeGamma(g, v)
	d := bitvector.New()
	EncodeDelta(d, v)
	require.Less(t, d.Size(), g.Size())
}

func TestMinimalBinaryRoundTrip(t *testing.T) {
	u := uint64(11) // range [0, 11)
	bv := bitvector.New()
	var offsets []uint64
	for x := uint64(0); x < u; x++ {
		offsets = append(offsets, bv.Size())
		WriteMinimalBinary(bv, x, u)
	}
	for x := uint64(0); x < u; x++ {
		r := bitvector.NewReader(bv, offsets[x])
		require.Equal(t, x, ReadMinimalBinary(r, u))
	}
}

func TestInterpolativeRoundTrip(t *testing.T) {
	cases := [][]uint64{
		{5},
		{3, 7, 13, 14, 22},
		{0, 1, 2, 3, 4},
		{10, 20, 30, 40, 50, 60, 70},
	}
	for _, values := range cases {
		lo := values[0]
		hi := values[len(values)-1]
		bv := bitvector.New()
		EncodeInterpolative(bv, values, lo, hi)

		out := make([]uint64, len(values))
		r := bitvector.NewReader(bv, 0)
		DecodeInterpolative(r, out, lo, hi)
		require.Equal(t, values, out)
	}
}
