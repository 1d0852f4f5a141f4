// Package config holds the global tuning constants threaded through the
// builder and the decoders. This replaces the environment-read globals
// of the original C++ source with an explicit value every component
// takes as a parameter.
package config

// GlobalParameters bundles the constants that size Elias-Fano sampling
// structures and the optimal-partition DP. Defaults match the values
// specified for the reference implementation.
type GlobalParameters struct {
	// LogSampling0 is the stride (log2) for pointers into the high-bits
	// zero runs of an Elias-Fano sequence.
	LogSampling0 uint

	// LogSampling1 is the stride (log2) for pointers into the high-bits
	// one positions of an Elias-Fano sequence.
	LogSampling1 uint

	// LogSamplingRank1 is the stride (log2) for rank1 sampling over a
	// plain bit vector (compact_ranked_bitvector).
	LogSamplingRank1 uint

	// LogPartitionSize is log2 of the uniform partition size (128).
	LogPartitionSize uint

	// FixedPartitionCost (F) is the fixed per-partition bit overhead
	// charged by the optimal-partition DP's objective function.
	FixedPartitionCost uint64

	// Eps1 and Eps2 bound the sliding-window approximate shortest-path
	// search used by the optimal partition DP.
	Eps1 float64
	Eps2 float64

	// Eps3 controls the superblock size used to parallelize the DP on
	// long lists: superblock size = floor(FixedPartitionCost / Eps3).
	Eps3 float64
}

// DefaultParameters returns the constants given in the specification.
func DefaultParameters() GlobalParameters {
	return GlobalParameters{
		LogSampling0:       9,
		LogSampling1:       8,
		LogSamplingRank1:   9,
		LogPartitionSize:   7,
		FixedPartitionCost: 64,
		Eps1:               0.03,
		Eps2:               0.3,
		Eps3:               0.01,
	}
}

// PartitionSize returns 2^LogPartitionSize, the uniform partition size.
func (p GlobalParameters) PartitionSize() uint64 {
	return uint64(1) << p.LogPartitionSize
}

// SuperblockSize returns the superblock size used to parallelize the
// optimal partition DP on long lists.
func (p GlobalParameters) SuperblockSize() uint64 {
	if p.Eps3 <= 0 {
		return 0
	}
	size := uint64(float64(p.FixedPartitionCost) / p.Eps3)
	if size == 0 {
		size = 1
	}
	return size
}
