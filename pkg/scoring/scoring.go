// Package scoring implements the per-posting impact functions of spec
// §2's scorer table: BM25, DPH, PL2, QLD, and a quantized-integer
// wrapper over any of them. Every scorer satisfies pkg/wanddata.Scorer
// so build-time max-impact computation and query-time per-posting
// scoring share the same formula.
package scoring

import (
	"math"

	"github.com/kittclouds/pisago/pkg/resorank"
)

// BM25 is Robertson/Sparck-Jones BM25 with document-length
// normalization, parameterized by k1 and b and the term's corpus-wide
// inverse document frequency.
type BM25 struct {
	K1  float64
	B   float64
	IDF float64
}

// NewBM25 builds a BM25 scorer, computing idf via pkg/resorank's
// CalculateIDF: ln(1 + (N-df+0.5)/(df+0.5)).
func NewBM25(k1, b float64, totalDocs uint64, docFreq uint64) BM25 {
	return BM25{K1: k1, B: b, IDF: idf(totalDocs, docFreq)}
}

func idf(totalDocs, docFreq uint64) float64 {
	return resorank.CalculateIDF(float64(totalDocs), int(docFreq))
}

// Score implements pkg/wanddata.Scorer.
func (s BM25) Score(freq uint32, docLen, avgLen float64) float64 {
	if freq == 0 || avgLen <= 0 {
		return 0
	}
	tf := float64(freq)
	denom := s.K1*(1-s.B+s.B*(docLen/avgLen)) + tf
	if denom <= 0 {
		return 0
	}
	return s.IDF * (tf * (s.K1 + 1)) / denom
}

// DPH is a parameter-free divergence-from-randomness model (Amati's
// DPH), scoring purely from freq, doc length, and the corpus average.
type DPH struct {
	TotalDocs uint64
	DocFreq   uint64
}

// Score implements pkg/wanddata.Scorer.
func (s DPH) Score(freq uint32, docLen, avgLen float64) float64 {
	if freq == 0 || docLen <= 0 || avgLen <= 0 {
		return 0
	}
	tf := float64(freq)
	tfn := tf * math.Log2(1+avgLen/docLen)
	if tfn <= 0 {
		return 0
	}

	norm := (1.0 - tf/(docLen)) * (docLen - tf + 1) / (docLen + 1)
	if norm <= 0 {
		norm = 1e-12
	}

	prob := 1.0 / (docLen + 1)
	entropy := -(tfn/docLen)*math.Log2(tfn/docLen) - (1-tfn/docLen)*math.Log2(1-tfn/docLen+1e-12)

	score := tfn*math.Log2(tfn*prob) + 0.5*math.Log2(2*math.Pi*tfn*(1-tfn/docLen)) + entropy
	if score <= 0 {
		return 0
	}
	return score * norm
}

// PL2 is the Poisson-with-Laplace-smoothing divergence-from-randomness
// model parameterized by c (the length-normalization hyperparameter).
type PL2 struct {
	C   float64
	IDF float64
}

// NewPL2 builds a PL2 scorer, sharing the same corpus-idf helper BM25
// uses.
func NewPL2(c float64, totalDocs, docFreq uint64) PL2 {
	return PL2{C: c, IDF: idf(totalDocs, docFreq)}
}

// Score implements pkg/wanddata.Scorer.
func (s PL2) Score(freq uint32, docLen, avgLen float64) float64 {
	if freq == 0 || avgLen <= 0 {
		return 0
	}
	tf := float64(freq)
	c := s.C
	if c <= 0 {
		c = 1.0
	}
	tfn := tf * math.Log2(1+c*avgLen/docLen)
	lambda := s.IDF
	if lambda <= 0 {
		lambda = 1e-6
	}
	term1 := tfn * math.Log2(tfn/lambda)
	term2 := (lambda - tfn) * math.Log2(math.E)
	term3 := 0.5 * math.Log2(2*math.Pi*tfn)
	score := (term1 + term2 + term3) / (tfn + 1)
	if score <= 0 || math.IsNaN(score) {
		return 0
	}
	return score
}

// QLD is Dirichlet-smoothed query likelihood, parameterized by the
// smoothing constant mu and the term's collection frequency ratio.
type QLD struct {
	Mu          float64
	CollectionP float64 // term's collection-wide occurrence probability
}

// NewQLD builds a QLD scorer from the term's total occurrences across
// the collection and the collection's total token count.
func NewQLD(mu float64, termCollectionFreq, collectionLength uint64) QLD {
	p := 0.0
	if collectionLength > 0 {
		p = float64(termCollectionFreq) / float64(collectionLength)
	}
	return QLD{Mu: mu, CollectionP: p}
}

// Score implements pkg/wanddata.Scorer.
func (s QLD) Score(freq uint32, docLen, avgLen float64) float64 {
	if freq == 0 || s.CollectionP <= 0 {
		return 0
	}
	mu := s.Mu
	if mu <= 0 {
		mu = 2500
	}
	tf := float64(freq)
	num := tf + mu*s.CollectionP
	den := docLen + mu
	if num <= 0 || den <= 0 {
		return 0
	}
	return math.Log(num / den)
}

// BMX is a BM25 variant built directly on pkg/resorank's saturation
// and length-normalization primitives, scoring per spec §2's scorer
// table entry for an entropy-aware length normalization model. Unlike
// BM25's closed-form Score above, BMX composes resorank's exported
// building blocks (CalculateIDF, NormalizedTermFrequencyBMX, Saturate)
// the same way pkg/qgram's Search pipeline does.
type BMX struct {
	K1         float64
	B          float64
	IDF        float64
	AvgEntropy float64 // query-level entropy term from resorank.CalculateQueryEntropyStats, 0 to disable
	Gamma      float64 // weight on AvgEntropy in the length-normalization denominator
}

// NewBMX builds a BMX scorer with idf computed via
// resorank.CalculateIDF, same as BM25 and PL2.
func NewBMX(k1, b float64, totalDocs uint64, docFreq uint64, avgEntropy, gamma float64) BMX {
	return BMX{K1: k1, B: b, IDF: idf(totalDocs, docFreq), AvgEntropy: avgEntropy, Gamma: gamma}
}

// Score implements pkg/wanddata.Scorer.
func (s BMX) Score(freq uint32, docLen, avgLen float64) float64 {
	if freq == 0 || avgLen <= 0 {
		return 0
	}
	tfStar := resorank.NormalizedTermFrequencyBMX(int(freq), int(docLen), avgLen, s.B, s.AvgEntropy, s.Gamma)
	return s.IDF * resorank.Saturate(tfStar, s.K1)
}

// Quantized wraps any scorer and rounds its float score to a fixed
// integer scale, per spec §2's "quantized integer scores" row. This
// is a query-time convenience distinct from pkg/wanddata's quantized
// block-max channel, which compresses a different signal (the block
// upper bound, not the live per-posting score).
type Quantized struct {
	Inner Scorer
	Scale float64
}

// Scorer is any of the scorers above (or pkg/wanddata.Scorer, which
// this interface is structurally identical to).
type Scorer interface {
	Score(freq uint32, docLen, avgLen float64) float64
}

// NewQuantized wraps inner, scaling its float scores by scale before
// rounding to the nearest integer (returned as a float64 for interface
// uniformity).
func NewQuantized(inner Scorer, scale float64) Quantized {
	if scale <= 0 {
		scale = 1
	}
	return Quantized{Inner: inner, Scale: scale}
}

// Score implements pkg/wanddata.Scorer.
func (q Quantized) Score(freq uint32, docLen, avgLen float64) float64 {
	return math.Round(q.Inner.Score(freq, docLen, avgLen) * q.Scale)
}
