// Package wanddata implements the WAND data of spec §4.5: per-term
// maximum impact, fixed- or variable-length block-max partitioning
// (optionally quantized and Elias-Fano-packed), and the index-wide
// table of normalized document lengths consumed by every scorer in
// pkg/scoring.
package wanddata

import (
	"math"
	"sort"

	"github.com/kittclouds/pisago/pkg/config"
	"github.com/kittclouds/pisago/pkg/eliasfano"
)

// Scorer is the minimal callback pkg/wanddata needs to compute a
// posting's impact at build time; pkg/scoring's concrete scorers
// satisfy this structurally, with no import back into this package.
type Scorer interface {
	Score(freq uint32, docLen, avgLen float64) float64
}

// NormalizedLengths holds len_d/avg_len for every document, the
// parallel float array spec §4.5 stores index-wide.
type NormalizedLengths []float32

// BuildNormalizedLengths computes len_d/avg_len for each document
// length in lens.
func BuildNormalizedLengths(lens []uint32) NormalizedLengths {
	if len(lens) == 0 {
		return nil
	}
	var sum uint64
	for _, l := range lens {
		sum += uint64(l)
	}
	avg := float64(sum) / float64(len(lens))
	out := make(NormalizedLengths, len(lens))
	for i, l := range lens {
		out[i] = float32(float64(l) / avg)
	}
	return out
}

// Quantizer uniformly maps a [0, max] score range into 2^bits-1 bins,
// per spec §4.5's compressed max-score channel.
type Quantizer struct {
	Bits uint
	Max  float32
}

func (q Quantizer) levels() uint32 { return (uint32(1) << q.Bits) - 1 }

// Quantize maps score into [0, 2^bits-1], clamped and rounded, never
// rounding a positive score down to 0 (so a quantized upper bound
// never understates the true max, which would break WAND pruning).
func (q Quantizer) Quantize(score float32) uint32 {
	if q.Max <= 0 || score <= 0 {
		return 0
	}
	frac := float64(score) / float64(q.Max)
	code := uint32(math.Ceil(frac * float64(q.levels())))
	if code > q.levels() {
		code = q.levels()
	}
	return code
}

// Dequantize recovers the score estimate Max*code/levels for a
// quantized code. Quantize rounds codes up, so the result is not below
// the score that was quantized, preserving the WAND safety invariant.
func (q Quantizer) Dequantize(code uint32) float32 {
	if q.levels() == 0 {
		return 0
	}
	return q.Max * float32(code) / float32(q.levels())
}

// blockInfo is one block's skip entry before quantization/packing.
type blockInfo struct {
	lastDocID uint32
	maxScore  float32
}

// TermWandData is one term's build-time WAND data: the overall max
// impact MI_t, and either an uncompressed or quantized+EF-packed
// block-max table.
type TermWandData struct {
	maxScore float32
	numBlocks int

	// uncompressed representation
	blocks []blockInfo

	// compressed representation (quantized + packed)
	compressed *eliasfano.EliasFano
	quant      Quantizer
}

// MaxScore returns MI_t, the term's overall maximum impact.
func (w *TermWandData) MaxScore() float32 { return w.maxScore }

// NumBlocks returns the number of WAND blocks.
func (w *TermWandData) NumBlocks() int { return w.numBlocks }

// LastDocID returns the last doc id covered by block i.
func (w *TermWandData) LastDocID(i int) uint32 {
	if w.compressed != nil {
		return uint32(w.combinedAt(i) >> w.quant.Bits)
	}
	return w.blocks[i].lastDocID
}

// BlockMaxScore returns block i's maximum score (dequantized if the
// compressed representation was used).
func (w *TermWandData) BlockMaxScore(i int) float32 {
	if w.compressed != nil {
		code := uint32(w.combinedAt(i)) & (w.quant.levels())
		return w.quant.Dequantize(code)
	}
	return w.blocks[i].maxScore
}

// BlockIndexFor binary-searches for the block covering doc id d, for
// use by pkg/cursor's block-max cursor when aligning to a WAND pivot.
func (w *TermWandData) BlockIndexFor(d uint32) int {
	return sort.Search(w.numBlocks, func(i int) bool { return w.LastDocID(i) >= d })
}

func (w *TermWandData) combinedAt(i int) uint64 {
	_, v, _ := eliasfano.NewEnumerator(w.compressed).Move(uint64(i))
	return v
}

// computeBlockScores scores every posting with s against normalized
// lengths and returns the per-posting score slice.
func computeBlockScores(s Scorer, freqs []uint32, docLens []float64, avgLen float64) []float32 {
	out := make([]float32, len(freqs))
	for i, f := range freqs {
		out[i] = float32(s.Score(f, docLens[i], avgLen))
	}
	return out
}

// BuildFixed partitions a term's postings into fixed-size blocks of
// blockSize postings (default 64 per spec §4.5) and stores the
// (last doc id, block max score) skip table, either uncompressed or
// quantized into quantBits bits.
func BuildFixed(docs []uint32, freqs []uint32, docLens []float64, avgLen float64, s Scorer, blockSize uint32, quantBits uint, params config.GlobalParameters) *TermWandData {
	scores := computeBlockScores(s, freqs, docLens, avgLen)
	bounds := fixedBoundaries(uint32(len(docs)), blockSize)
	return buildFromBoundaries(docs, scores, bounds, quantBits, params)
}

// BuildVariable partitions a term's postings using the windowed
// approximate shortest-path DP from spec §4.3/§4.5, minimizing
// Σ_b (|block_b|·max_b − Σ_{d∈block_b} score_d) + F.
func BuildVariable(docs []uint32, freqs []uint32, docLens []float64, avgLen float64, s Scorer, quantBits uint, params config.GlobalParameters) *TermWandData {
	scores := computeBlockScores(s, freqs, docLens, avgLen)
	bounds := variableBoundaries(scores, params)
	return buildFromBoundaries(docs, scores, bounds, quantBits, params)
}

func fixedBoundaries(n uint32, blockSize uint32) []uint32 {
	if blockSize == 0 {
		blockSize = 64
	}
	var bounds []uint32
	for start := uint32(0); start < n; start += blockSize {
		end := start + blockSize
		if end > n {
			end = n
		}
		bounds = append(bounds, end)
	}
	return bounds
}

func buildFromBoundaries(docs []uint32, scores []float32, bounds []uint32, quantBits uint, params config.GlobalParameters) *TermWandData {
	numBlocks := len(bounds)
	blocks := make([]blockInfo, numBlocks)

	var overallMax float32
	start := uint32(0)
	for i, end := range bounds {
		maxS := scores[start]
		for _, s := range scores[start:end] {
			if s > maxS {
				maxS = s
			}
		}
		blocks[i] = blockInfo{lastDocID: docs[end-1], maxScore: maxS}
		if maxS > overallMax {
			overallMax = maxS
		}
		start = end
	}

	w := &TermWandData{maxScore: overallMax, numBlocks: numBlocks}
	if quantBits == 0 {
		w.blocks = blocks
		return w
	}

	quant := Quantizer{Bits: quantBits, Max: overallMax}
	w.quant = quant
	combined := make([]uint64, numBlocks)
	for i, blk := range blocks {
		code := uint64(quant.Quantize(blk.maxScore))
		combined[i] = uint64(blk.lastDocID)<<quantBits | code
	}
	var u uint64
	if numBlocks > 0 {
		u = combined[numBlocks-1] + 1
	}
	b := eliasfano.NewBuilder(u, params)
	for _, v := range combined {
		_ = b.PushBack(v)
	}
	w.compressed = b.Build()
	return w
}

// variableBoundaries runs the windowed approximate shortest-path DP
// over score-waste cost, returning block-end positions (element
// indices, exclusive), analogous to pkg/seqs's doc-sequence
// partitioner but costed on score waste instead of encoded bit size.
func variableBoundaries(scores []float32, params config.GlobalParameters) []uint32 {
	n := uint32(len(scores))
	if n == 0 {
		return nil
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

	maxWidth := uint32(F/eps1) + 1
	if maxWidth < 1 {
		maxWidth = 1
	}
	if maxWidth > n {
		maxWidth = n
	}

	widths := []uint32{1}
	for widths[len(widths)-1] < maxWidth {
		next := uint32(math.Ceil(float64(widths[len(widths)-1]) * (1 + eps2)))
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

	minCost := make([]float64, n+1)
	path := make([]uint32, n+1)
	for i := range minCost {
		minCost[i] = math.Inf(1)
	}
	minCost[0] = 0

	for a := uint32(0); a < n; a++ {
		if math.IsInf(minCost[a], 1) {
			continue
		}
		for _, w := range widths {
			b := a + w
			if b > n {
				b = n
			}
			var maxS float32
			var sum float64
			for _, s := range scores[a:b] {
				if s > maxS {
					maxS = s
				}
				sum += float64(s)
			}
			cost := float64(b-a)*float64(maxS) - sum + F
			if minCost[a]+cost < minCost[b] {
				minCost[b] = minCost[a] + cost
				path[b] = a
			}
			if b == n {
				break
			}
		}
	}

	var rev []uint32
	for i := n; ; {
		rev = append(rev, i)
		if i == 0 {
			break
		}
		i = path[i]
	}
	bounds := make([]uint32, 0, len(rev)-1)
	for i := len(rev) - 2; i >= 0; i-- {
		bounds = append(bounds, rev[i])
	}
	return bounds
}
