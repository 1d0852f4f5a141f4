package seqs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kittclouds/pisago/pkg/config"
)

func TestBuildChoosesAllOnesForContiguousRun(t *testing.T) {
	values := []uint64{0, 1, 2, 3, 4}
	seq := Build(values, 5, config.DefaultParameters())
	require.Equal(t, VariantAllOnes, seq.Variant())
}

func TestBuildChoosesBitmapForDenseUniverse(t *testing.T) {
	// Elias-Fano's high stream grows with the actual max value, while a
	// roaring bitmap's cost is driven by per-65536-container presence.
	// Three half-full containers (every other value) make the bitmap the
	// clearly cheaper representation despite the larger overall universe.
	const containerSize = 65536
	u := uint64(3 * containerSize)
	var values []uint64
	for v := uint64(0); v < u; v += 2 {
		values = append(values, v)
	}
	seq := Build(values, u, config.DefaultParameters())
	require.Equal(t, VariantBitmap, seq.Variant())
}

func TestCursorRoundTripAllVariants(t *testing.T) {
	params := config.DefaultParameters()
	var dense []uint64
	for v := uint64(0); v < 3*65536; v += 2 {
		dense = append(dense, v)
	}
	cases := map[string][]uint64{
		"sparse":     {5, 500, 50000},
		"contiguous": {0, 1, 2, 3, 4, 5, 6, 7},
		"dense":      dense,
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			u := values[len(values)-1] + 1
			seq := Build(values, u, params)
			c := seq.NewCursor()
			var got []uint64
			for c.Next() {
				got = append(got, c.Value())
			}
			require.Equal(t, values, got)
		})
	}
}

func TestCursorNextGeq(t *testing.T) {
	values := []uint64{3, 10, 77, 200}
	seq := Build(values, 300, config.DefaultParameters())
	c := seq.NewCursor()
	require.True(t, c.NextGeq(50))
	require.Equal(t, uint64(77), c.Value())
}

func TestPartitionedUniformRoundTrip(t *testing.T) {
	params := config.GlobalParameters{
		LogSampling0: 9, LogSampling1: 8, LogSamplingRank1: 9,
		LogPartitionSize: 3, // 8-element partitions, to actually exercise >1 partition
		FixedPartitionCost: 64, Eps1: 0.03, Eps2: 0.3, Eps3: 0.01,
	}
	n := 50
	values := make([]uint64, n)
	var v uint64
	for i := 0; i < n; i++ {
		v += uint64(1 + i%7)
		values[i] = v
	}
	u := values[n-1] + 1

	part := BuildUniform(values, u, params)
	require.Greater(t, part.NumPartitions(), 1)

	en := part.NewEnumerator()
	var got []uint64
	for {
		_, v, ok := en.Next()
		if !ok {
			break
		}
		got = append(got, v)
	}
	require.Equal(t, values, got)
}

func TestPartitionedUniformNextGeq(t *testing.T) {
	params := config.GlobalParameters{
		LogSampling0: 9, LogSampling1: 8, LogSamplingRank1: 9,
		LogPartitionSize: 2, // 4-element partitions
		FixedPartitionCost: 64, Eps1: 0.03, Eps2: 0.3, Eps3: 0.01,
	}
	values := []uint64{2, 4, 6, 8, 10, 12, 14, 16, 18, 20}
	u := uint64(21)
	part := BuildUniform(values, u, params)

	for _, target := range []uint64{0, 5, 8, 19, 20} {
		en := part.NewEnumerator()
		_, v, ok := en.NextGeq(target)
		require.True(t, ok, "target=%d", target)
		require.GreaterOrEqual(t, v, target)
	}

	en := part.NewEnumerator()
	_, _, ok := en.NextGeq(21)
	require.False(t, ok)
}

func TestPartitionedOptimalRoundTrip(t *testing.T) {
	params := config.DefaultParameters()
	n := 2000
	values := make([]uint64, n)
	var v uint64
	for i := 0; i < n; i++ {
		// bursts of dense runs interleaved with sparse gaps exercise
		// the DP's incentive to vary partition boundaries.
		if i%200 < 20 {
			v += 1
		} else {
			v += uint64(50 + i%30)
		}
		values[i] = v
	}
	u := values[n-1] + 1

	part := BuildOptimal(values, u, params)
	require.Greater(t, part.NumPartitions(), 1)

	en := part.NewEnumerator()
	var got []uint64
	for {
		_, v, ok := en.Next()
		if !ok {
			break
		}
		got = append(got, v)
	}
	require.Equal(t, values, got)
}
