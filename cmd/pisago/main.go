// Command pisago exercises the library end to end: it builds a toy
// collection in memory, freezes it through pkg/index, reconstructs
// scored posting cursors over the frozen blob, runs a couple of
// pkg/query operators against a query, and prints TREC ranked output.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/hack-pad/hackpadfs/mem"

	"github.com/kittclouds/pisago/pkg/blockcodec"
	"github.com/kittclouds/pisago/pkg/collection"
	"github.com/kittclouds/pisago/pkg/config"
	"github.com/kittclouds/pisago/pkg/cursor"
	"github.com/kittclouds/pisago/pkg/freqindex"
	"github.com/kittclouds/pisago/pkg/index"
	"github.com/kittclouds/pisago/pkg/lexicon"
	"github.com/kittclouds/pisago/pkg/query"
	"github.com/kittclouds/pisago/pkg/scoring"
	"github.com/kittclouds/pisago/pkg/trecio"
	"github.com/kittclouds/pisago/pkg/wanddata"
)

func main() {
	fmt.Println("Building toy collection...")
	lex, docs, freqs, docLens := toyCollection()
	fmt.Println("  ✓ collection built")

	fmt.Println("\nFreezing EF-family index...")
	idx := testBuildAndFreeze(docs, freqs)
	fmt.Println("  ✓ index frozen and reloaded")

	fmt.Println("\nRunning queries...")
	testQueries(lex, idx, docLens)

	fmt.Println("\nFreezing block-family index...")
	testBlockFamilyRoundTrip(docs, freqs)

	fmt.Println("\nPersisting document embeddings for hybrid rescoring...")
	testHybridRescoring()

	fmt.Println("\n✅ All tests passed!")
}

// toyCollection builds a handful of documents and a lexicon mapping
// each surface term to the dense term id of its posting list, mirroring
// spec §6.1's (.docs/.freqs) collection shape.
func toyCollection() (*lexicon.Lexicon, collection.Docs, collection.Freqs, []uint32) {
	lex := lexicon.New(nil)

	terms := []struct {
		surface string
		docs    []uint32
		freqs   []uint32
	}{
		{"raft", []uint32{0, 2, 3}, []uint32{3, 1, 2}},
		{"consensus", []uint32{0, 1, 2, 3, 4}, []uint32{2, 1, 4, 1, 1}},
		{"paxos", []uint32{1, 4}, []uint32{2, 1}},
	}

	docLists := make([][]uint32, len(terms))
	freqLists := make([][]uint32, len(terms))
	for i, t := range terms {
		id := lex.Add(t.surface)
		if id != uint64(i) {
			log.Fatalf("toyCollection: expected term %q at id %d, got %d", t.surface, i, id)
		}
		docLists[i] = t.docs
		freqLists[i] = t.freqs
	}

	const numDocs = 5
	docLens := []uint32{12, 9, 20, 7, 15}

	docs := collection.Docs{NumDocs: numDocs, Lists: docLists}
	freqs := collection.Freqs{Lists: freqLists}
	return lex, docs, freqs, docLens
}

func testBuildAndFreeze(docs collection.Docs, freqs collection.Freqs) *index.Index {
	params := config.DefaultParameters()
	idx, err := index.Build(docs, freqs, index.BuildOptions{Params: params, Workers: 4})
	if err != nil {
		log.Fatalf("index.Build failed: %v", err)
	}

	fs, err := mem.NewFS()
	if err != nil {
		log.Fatalf("mem.NewFS failed: %v", err)
	}
	if err := idx.Save(fs, "toy.index"); err != nil {
		log.Fatalf("Index.Save failed: %v", err)
	}

	loaded, err := index.Load(fs, "toy.index")
	if err != nil {
		log.Fatalf("index.Load failed: %v", err)
	}
	if loaded.NumTerms() != idx.NumTerms() {
		log.Fatalf("reloaded index has %d terms, want %d", loaded.NumTerms(), idx.NumTerms())
	}
	return loaded
}

func testQueries(lex *lexicon.Lexicon, idx *index.Index, docLens []uint32) {
	normLens := wanddata.BuildNormalizedLengths(docLens)
	lens := cursor.ArrayDocLengths{Lens: normLens}

	parser := trecio.NewParser(lex)
	q, err := parser.ParseLine("qid:1 raft consensus")
	if err != nil {
		log.Fatalf("ParseLine failed: %v", err)
	}

	ranked := query.RankedOr(buildScoredCursors(idx, q, lens), 10)
	fmt.Println("  ✓ RankedOr produced", len(ranked), "results")

	// Wand needs its own, freshly positioned cursor set: query
	// operators consume a cursor's position as they run, so reusing
	// RankedOr's cursors here would hand Wand ones already exhausted.
	wandResults := query.Wand(buildScoredCursors(idx, q, lens), 10)
	fmt.Println("  ✓ Wand produced", len(wandResults), "results")

	if err := trecio.WriteRanked(os.Stdout, q.ID, ranked, "pisago-demo"); err != nil {
		log.Fatalf("WriteRanked failed: %v", err)
	}
}

// buildScoredCursors resolves every query term's EF-family posting
// list and wraps it as a scored cursor, ready to drive a pkg/query
// operator.
func buildScoredCursors(idx *index.Index, q trecio.Query, lens cursor.ArrayDocLengths) []*cursor.ScoredCursor {
	cursors := make([]*cursor.ScoredCursor, len(q.Terms))
	for i, wt := range q.Terms {
		list, err := idx.EFPostingList(wt.TermID, false)
		if err != nil {
			log.Fatalf("EFPostingList(%d) failed: %v", wt.TermID, err)
		}
		scorer := scoring.NewBM25(1.2, 0.75, idx.NumDocs, list.Len())
		termMaxImpact := maxImpact(list, scorer, lens)
		cursors[i] = cursor.NewScoredCursor(cursor.FromFreqIndex(list.NewCursor()), scorer, wt.Weight, lens, termMaxImpact)
	}
	return cursors
}

// maxImpact scans a term's posting list once to find its true maximum
// scored impact MI_t, a direct (if build-time-expensive) stand-in for
// the precomputed pkg/wanddata block-max table this small demo doesn't
// bother freezing.
func maxImpact(list *freqindex.TermPostingList, scorer scoring.BM25, lens cursor.ArrayDocLengths) float64 {
	c := list.NewCursor()
	var max float64
	for c.Next() {
		normLen := lens.Normalized(c.DocID())
		if s := scorer.Score(uint32(c.Freq()), normLen, 1.0); s > max {
			max = s
		}
	}
	return max
}

func testBlockFamilyRoundTrip(docs collection.Docs, freqs collection.Freqs) {
	params := config.DefaultParameters()
	idx, err := index.Build(docs, freqs, index.BuildOptions{
		Params:      params,
		BlockFamily: true,
		BlockCodec:  blockcodec.VarByteCodec{},
		Workers:     2,
	})
	if err != nil {
		log.Fatalf("index.Build (block family) failed: %v", err)
	}

	fs, err := mem.NewFS()
	if err != nil {
		log.Fatalf("mem.NewFS failed: %v", err)
	}
	if err := idx.Save(fs, "toy-blocks.index"); err != nil {
		log.Fatalf("Index.Save failed: %v", err)
	}
	loaded, err := index.Load(fs, "toy-blocks.index")
	if err != nil {
		log.Fatalf("index.Load failed: %v", err)
	}

	for t := uint64(0); t < loaded.NumTerms(); t++ {
		list, err := loaded.BlockPostingList(t)
		if err != nil {
			log.Fatalf("BlockPostingList(%d) failed: %v", t, err)
		}
		c := list.NewCursor()
		var n int
		for c.Next() {
			n++
		}
		if uint64(n) != list.Len() {
			log.Fatalf("term %d: cursor visited %d postings, want %d", t, n, list.Len())
		}
	}
	fmt.Println("  ✓ block-family postings round-trip through Save/Load")
}

// testHybridRescoring exercises pkg/scoring's VectorIndex, which
// persists its HNSW graph through pkg/vector.Store: doc embeddings
// survive a Save/Load round trip through the same hackpadfs.FS seam
// pkg/index uses, so HybridRescorer's dense channel can be restarted
// without recomputing the nearest-neighbor graph or losing the raw
// vectors Rescore needs for its cosine blend.
func testHybridRescoring() {
	fs, err := mem.NewFS()
	if err != nil {
		log.Fatalf("mem.NewFS failed: %v", err)
	}

	idx, err := scoring.NewVectorIndex(fs, "embeddings.bin")
	if err != nil {
		log.Fatalf("scoring.NewVectorIndex failed: %v", err)
	}

	embeddings := map[uint32][]float32{
		0: {0.9, 0.1, 0.0},
		1: {0.1, 0.9, 0.0},
		2: {0.85, 0.15, 0.05},
		3: {0.0, 0.0, 1.0},
		4: {0.2, 0.8, 0.1},
	}
	for docID, emb := range embeddings {
		if err := idx.Add(docID, emb); err != nil {
			log.Fatalf("VectorIndex.Add(%d) failed: %v", docID, err)
		}
	}
	if err := idx.Save(); err != nil {
		log.Fatalf("VectorIndex.Save failed: %v", err)
	}
	fmt.Println("  ✓ embeddings saved")

	reloaded, err := scoring.NewVectorIndex(fs, "embeddings.bin")
	if err != nil {
		log.Fatalf("scoring.NewVectorIndex (reload) failed: %v", err)
	}
	neighbors, err := reloaded.Search([]float32{0.88, 0.12, 0.0}, 2)
	if err != nil {
		log.Fatalf("VectorIndex.Search failed: %v", err)
	}
	if len(neighbors) == 0 {
		log.Fatal("VectorIndex.Search returned no neighbors after reload")
	}
	fmt.Println("  ✓ nearest neighbors after reload:", neighbors)

	queryEmbedding := []float32{0.88, 0.12, 0.0}
	rescorer := scoring.NewHybridRescorer(reloaded, 0.5)
	blended := rescorer.Rescore(neighbors[0], 0.6, queryEmbedding)
	fmt.Printf("  ✓ hybrid rescore of doc %d: %.4f\n", neighbors[0], blended)
}
