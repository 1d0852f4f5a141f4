package scoring

import (
	"bytes"
	"encoding/gob"
	"math"

	"github.com/hack-pad/hackpadfs"

	"github.com/kittclouds/pisago/pkg/vector"
)

// docMapSuffix names the sidecar file that persists VectorIndex's
// docID->embedding map next to the pkg/vector.Store blob it accompanies:
// the HNSW graph alone doesn't retain enough to recompute a cosine
// similarity against an arbitrary query embedding, so the raw vectors
// ride along in their own gob-encoded file on the same hackpadfs.FS.
const docMapSuffix = ".docmap"

// VectorIndex is the nearest-neighbor index backing HybridRescorer's
// dense channel. It wraps a pkg/vector.Store, so a rescorer's embeddings
// survive the same Save/Load round trip pkg/index uses for postings,
// rather than living only in process memory.
type VectorIndex struct {
	store *vector.Store
	byDoc map[uint32][]float32
}

// NewVectorIndex opens (or creates) a persisted HNSW graph at path on
// fs, restoring any previously saved embeddings.
func NewVectorIndex(fs hackpadfs.FS, path string) (*VectorIndex, error) {
	store, err := vector.NewStore(fs, path)
	if err != nil {
		return nil, err
	}
	v := &VectorIndex{store: store, byDoc: make(map[uint32][]float32)}
	v.loadDocMap() // best-effort: a fresh store has no sidecar file yet
	return v, nil
}

// Add inserts a document's embedding into the HNSW graph and the
// in-memory docID->embedding map that backs Rescore lookups.
func (v *VectorIndex) Add(docID uint32, embedding []float32) error {
	if err := v.store.Add(docID, embedding); err != nil {
		return err
	}
	v.byDoc[docID] = embedding
	return nil
}

// Search returns the k nearest document IDs to vec.
func (v *VectorIndex) Search(vec []float32, k int) ([]uint32, error) {
	return v.store.Search(vec, k)
}

// Save persists both the HNSW graph and the docID->embedding sidecar.
func (v *VectorIndex) Save() error {
	if err := v.store.Save(); err != nil {
		return err
	}
	return v.saveDocMap()
}

func (v *VectorIndex) docMapPath() string { return v.store.Path + docMapSuffix }

func (v *VectorIndex) saveDocMap() error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v.byDoc); err != nil {
		return err
	}
	return hackpadfs.WriteFullFile(v.store.FS, v.docMapPath(), buf.Bytes(), 0644)
}

func (v *VectorIndex) loadDocMap() {
	content, err := hackpadfs.ReadFile(v.store.FS, v.docMapPath())
	if err != nil {
		return
	}
	var m map[uint32][]float32
	if err := gob.NewDecoder(bytes.NewReader(content)).Decode(&m); err != nil {
		return
	}
	v.byDoc = m
}

// cosineSimilarity mirrors pkg/resorank/vector.go's CosineSimilarity,
// used to re-rank a small sparse top-k rather than search the whole
// HNSW graph (the graph is reserved for the offline recall step that
// assembles candidate sets; once WAND/MaxScore hand back a scored
// top-k, the dense blend operates directly on each candidate's
// stored embedding).
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// HybridRescorer blends a sparse (BM25/DPH/PL2/QLD) score with a dense
// cosine similarity against a query embedding, mirroring the teacher's
// ResoRankConfig.VectorAlpha knob. This sits strictly downstream of
// the DAAT query operators in pkg/query: it re-ranks the already
// materialized top-k, it never drives cursor pruning itself.
type HybridRescorer struct {
	Index *VectorIndex
	Alpha float64 // weight on the dense channel, in [0, 1]
}

// NewHybridRescorer builds a rescorer blending sparseScore*(1-alpha)
// with cosineSimilarity*alpha.
func NewHybridRescorer(index *VectorIndex, alpha float64) HybridRescorer {
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	return HybridRescorer{Index: index, Alpha: alpha}
}

// Rescore blends docID's sparse score with its embedding's cosine
// similarity to queryEmbedding. Docs with no stored embedding fall
// back to the pure sparse score.
func (h HybridRescorer) Rescore(docID uint32, sparseScore float64, queryEmbedding []float32) float64 {
	if h.Alpha == 0 || h.Index == nil {
		return sparseScore
	}
	emb, ok := h.Index.byDoc[docID]
	if !ok {
		return sparseScore
	}
	dense := cosineSimilarity(emb, queryEmbedding)
	return (1-h.Alpha)*sparseScore + h.Alpha*dense
}
