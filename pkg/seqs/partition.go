package seqs

import (
	"math"
	"math/bits"
	"sort"

	"github.com/kittclouds/pisago/pkg/config"
	"github.com/kittclouds/pisago/pkg/eliasfano"
)

// Partitioned is a partitioned sequence (spec §4.3): the values are
// split into partitions, each stored as a base-adjusted IndexedSequence,
// with an outer Elias-Fano index over partition upper bounds (and, for
// the optimal variant, an additional EF over cumulative partition
// sizes) so a query can binary-search straight to the owning partition.
type Partitioned struct {
	n, u    uint64
	uniform bool

	bases      []uint64 // element-index boundaries, length numPartitions+1
	upperBound *eliasfano.EliasFano
	sizes      *eliasfano.EliasFano // non-nil only for the optimal variant
	partitions []*IndexedSequence
}

// BuildUniform partitions values into fixed-size blocks of
// params.PartitionSize() elements (the last block possibly smaller),
// per spec §4.3's "Uniform" strategy.
func BuildUniform(values []uint64, u uint64, params config.GlobalParameters) *Partitioned {
	ps := params.PartitionSize()
	n := uint64(len(values))
	bases := []uint64{0}
	for start := uint64(0); start < n; start += ps {
		end := start + ps
		if end > n {
			end = n
		}
		bases = append(bases, end)
	}
	return buildFromBoundaries(values, u, bases, params, true)
}

// BuildOptimal partitions values using the windowed approximate
// shortest-path DP from spec §4.3, minimizing total encoded bits.
func BuildOptimal(values []uint64, u uint64, params config.GlobalParameters) *Partitioned {
	bases := optimalBoundaries(values, params)
	return buildFromBoundaries(values, u, bases, params, false)
}

func buildFromBoundaries(values []uint64, u uint64, bases []uint64, params config.GlobalParameters, uniform bool) *Partitioned {
	n := uint64(len(values))
	numParts := len(bases) - 1
	partitions := make([]*IndexedSequence, numParts)
	upperVals := make([]uint64, numParts)
	sizeVals := make([]uint64, numParts)

	var prevUpper uint64 // one past the previous partition's last value
	for p := 0; p < numParts; p++ {
		start, end := bases[p], bases[p+1]
		segment := values[start:end]
		base := prevUpper
		localU := segment[len(segment)-1] - base + 1
		rel := make([]uint64, len(segment))
		for i, v := range segment {
			rel[i] = v - base
		}
		partitions[p] = Build(rel, localU, params)
		upperVals[p] = segment[len(segment)-1]
		sizeVals[p] = end - start
		prevUpper = segment[len(segment)-1] + 1
	}

	ub := eliasfano.NewBuilder(u+1, params)
	for _, v := range upperVals {
		_ = ub.PushBack(v)
	}
	upperEF := ub.Build()

	var sizesEF *eliasfano.EliasFano
	if !uniform {
		sb := eliasfano.NewBuilder(n+1, params)
		var cum uint64
		for _, sz := range sizeVals {
			cum += sz
			_ = sb.PushBack(cum)
		}
		sizesEF = sb.Build()
	}

	return &Partitioned{
		n: n, u: u, uniform: uniform,
		bases: bases, upperBound: upperEF, sizes: sizesEF, partitions: partitions,
	}
}

// Len returns the total element count across all partitions.
func (p *Partitioned) Len() uint64 { return p.n }

// NumPartitions returns how many partitions the sequence was split into.
func (p *Partitioned) NumPartitions() int { return len(p.partitions) }

// partitionBase returns the value offset subtracted from every element
// of partition idx (i.e. one past the previous partition's last value).
func (p *Partitioned) partitionBase(idx int) uint64 {
	if idx == 0 {
		return 0
	}
	_, v, _ := eliasfano.NewEnumerator(p.upperBound).Move(uint64(idx - 1))
	return v + 1
}

// PartitionEnumerator walks a Partitioned sequence, transparently
// crossing partition boundaries.
type PartitionEnumerator struct {
	p         *Partitioned
	partition int
	cur       *Cursor
	globalPos int64
}

// NewEnumerator creates an enumerator positioned before the first
// element.
func (p *Partitioned) NewEnumerator() *PartitionEnumerator {
	return &PartitionEnumerator{p: p, partition: -1, globalPos: -1}
}

// Next advances to the next element across partition boundaries.
func (e *PartitionEnumerator) Next() (uint64, uint64, bool) {
	for {
		if e.partition < 0 {
			if len(e.p.partitions) == 0 {
				return 0, 0, false
			}
			e.partition = 0
			e.cur = e.p.partitions[0].NewCursor()
		}
		if e.cur.Next() {
			e.globalPos++
			return uint64(e.globalPos), e.cur.Value() + e.p.partitionBase(e.partition), true
		}
		e.partition++
		if e.partition >= len(e.p.partitions) {
			return 0, 0, false
		}
		e.cur = e.p.partitions[e.partition].NewCursor()
	}
}

// NextGeq locates the first element >= x, binary-searching the
// partition-upper-bound EF index to find the owning partition before
// scanning within it.
func (e *PartitionEnumerator) NextGeq(x uint64) (uint64, uint64, bool) {
	p := e.p
	if p.n == 0 {
		return 0, 0, false
	}
	ubEn := eliasfano.NewEnumerator(p.upperBound)
	partIdx, _, ok := ubEn.NextGeq(x)
	if !ok {
		return 0, 0, false
	}

	base := p.partitionBase(int(partIdx))
	e.partition = int(partIdx)
	e.cur = p.partitions[e.partition].NewCursor()
	if !e.cur.NextGeq(x - base) {
		// the target value exceeds this partition's local values; move
		// to the first element of the next partition instead.
		e.partition++
		if e.partition >= len(p.partitions) {
			return 0, 0, false
		}
		e.cur = p.partitions[e.partition].NewCursor()
		if !e.cur.Next() {
			return 0, 0, false
		}
		base = p.partitionBase(e.partition)
	}
	e.globalPos = int64(p.bases[e.partition]) + e.cur.Position()
	return uint64(e.globalPos), e.cur.Value() + base, true
}

// Move jumps directly to the element at global position pos,
// binary-searching the partition boundaries then delegating to the
// owning partition's own Move (EF's O(1)-ish sampled jump, or the
// bitmap variant's linear fallback).
func (e *PartitionEnumerator) Move(pos uint64) (uint64, uint64, bool) {
	p := e.p
	if pos >= p.n {
		return 0, 0, false
	}
	idx := sort.Search(len(p.bases)-1, func(i int) bool { return p.bases[i+1] > pos })
	base := p.partitionBase(idx)
	e.partition = idx
	e.cur = p.partitions[idx].NewCursor()
	localPos := pos - p.bases[idx]
	if !e.cur.Move(localPos) {
		return 0, 0, false
	}
	e.globalPos = int64(pos)
	return pos, e.cur.Value() + base, true
}

// --- Optimal-partition DP (windowed approximate shortest path) ---

// estimateBits approximates the Elias-Fano encoded bit size of n
// strictly increasing values over universe u, used as the DP's cost
// function rather than a full encode (matching PISA's own
// cost-estimate-only approach to keep the DP fast).
func estimateBits(u, n uint64) float64 {
	if n == 0 {
		return 0
	}
	l := 0
	if u > n {
		l = bits.Len64(u/n) - 1
	}
	return float64(n) * (float64(l) + 2)
}

func partitionCost(values []uint64, a, b uint64, prevUpper uint64, F float64) float64 {
	if b <= a {
		return F
	}
	base := prevUpper
	localU := values[b-1] - base + 1
	return estimateBits(localU, b-a) + F
}

// optimalBoundaries runs the windowed approximate shortest-path DP
// described in spec §4.3: a geometric ladder of candidate partition
// widths (ratio 1+ε2) bounded by F/ε1, extending the right endpoint of
// each window from every position and keeping the cheapest path.
func optimalBoundaries(values []uint64, params config.GlobalParameters) []uint64 {
	n := uint64(len(values))
	if n == 0 {
		return []uint64{0}
	}
	F := float64(params.FixedPartitionCost)
	eps1 := params.Eps1
	if eps1 <= 0 {
		eps1 = 0.03
	}
	eps2 := params.Eps2
	if eps2 <= 0 {
		eps2 = 0.3
	}

	maxWidth := uint64(F/eps1) + 1
	if maxWidth < 1 {
		maxWidth = 1
	}
	if maxWidth > n {
		maxWidth = n
	}

	widths := []uint64{1}
	for widths[len(widths)-1] < maxWidth {
		next := uint64(math.Ceil(float64(widths[len(widths)-1]) * (1 + eps2)))
		if next <= widths[len(widths)-1] {
			next = widths[len(widths)-1] + 1
		}
		if next > maxWidth {
			next = maxWidth
		}
		widths = append(widths, next)
		if next == maxWidth {
			break
		}
	}

	// prevUpperAt[a] = one past values[a-1] (0 when a==0); needed by
	// partitionCost to size each candidate partition's local universe.
	prevUpperAt := func(a uint64) uint64 {
		if a == 0 {
			return 0
		}
		return values[a-1] + 1
	}

	minCost := make([]float64, n+1)
	path := make([]uint64, n+1)
	for i := range minCost {
		minCost[i] = math.Inf(1)
	}
	minCost[0] = 0

	for a := uint64(0); a < n; a++ {
		if math.IsInf(minCost[a], 1) {
			continue
		}
		pu := prevUpperAt(a)
		for _, w := range widths {
			b := a + w
			if b > n {
				b = n
			}
			cost := partitionCost(values, a, b, pu, F)
			if minCost[a]+cost < minCost[b] {
				minCost[b] = minCost[a] + cost
				path[b] = a
			}
			if b == n {
				break
			}
		}
	}

	var boundaries []uint64
	for i := n; ; {
		boundaries = append(boundaries, i)
		if i == 0 {
			break
		}
		i = path[i]
	}
	for l, r := 0, len(boundaries)-1; l < r; l, r = l+1, r-1 {
		boundaries[l], boundaries[r] = boundaries[r], boundaries[l]
	}
	return boundaries
}
