package index

import (
	"fmt"
	"sync"

	"github.com/kittclouds/pisago/pkg/blockcodec"
	"github.com/kittclouds/pisago/pkg/blockindex"
	"github.com/kittclouds/pisago/pkg/collection"
	"github.com/kittclouds/pisago/pkg/config"
)

// preparedList is one term's fully encoded posting list, produced by a
// worker goroutine and handed to the single commit goroutine in input
// order.
type preparedList struct {
	pos        int
	docsRaw    []uint64 // EF-family: reconstructable logical doc ids
	freqSums   []uint64 // EF-family: +1-biased running freq sums
	blockBytes []byte   // block-family: blockindex.Serialize output
}

// BuildOptions selects the target representation and tuning knobs for
// Build.
type BuildOptions struct {
	Params config.GlobalParameters

	// BlockFamily selects pkg/blockindex-style block-compressed
	// posting lists over the default EF-family (pkg/freqindex)
	// representation.
	BlockFamily bool
	BlockCodec  blockcodec.Codec // defaults to blockcodec.FixedWidthCodec{}

	// OptimalPartition is not read by Build: the frozen EF-family index
	// stores each list's logical (doc, occurrences) arrays, and the
	// partitioner (windowed DP, §4.3, or fixed uniform) is chosen per
	// list by EFPostingList's optimalPartition argument at load time.
	OptimalPartition bool

	// Workers bounds the prepare-stage worker pool; <= 0 defaults to
	// runtime.GOMAXPROCS-equivalent sizing left to the caller (1 is
	// used here to keep the default deterministic and dependency-free).
	Workers int
}

// Build reads docs/freqs (spec §6.1's .docs/.freqs binary collection
// format) and encodes every term's posting list into a frozen Index,
// per spec §5's bounded-job-queue build model: each term is prepared
// (encoded) in a worker goroutine, then committed — appended to the
// index's shared structures — by a single commit goroutine in input
// order, so the on-disk layout is deterministic regardless of which
// worker finishes first.
func Build(docs collection.Docs, freqs collection.Freqs, opts BuildOptions) (*Index, error) {
	numTerms := len(docs.Lists)
	if len(freqs.Lists) != numTerms {
		return nil, fmt.Errorf("index: %d doc posting lists but %d freq posting lists", numTerms, len(freqs.Lists))
	}
	if opts.BlockCodec == nil {
		opts.BlockCodec = blockcodec.FixedWidthCodec{}
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	type job struct {
		pos   int
		docs  []uint32
		freqs []uint32
	}
	jobs := make(chan job, workers*2)
	results := make(chan preparedList, workers*2)

	var wg sync.WaitGroup
	var firstErr error
	var errOnce sync.Once
	setErr := func(err error) { errOnce.Do(func() { firstErr = err }) }

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				prepared, err := prepareList(j.pos, j.docs, j.freqs, opts)
				if err != nil {
					setErr(err)
					continue
				}
				results <- prepared
			}
		}()
	}

	go func() {
		for pos := 0; pos < numTerms; pos++ {
			if len(docs.Lists[pos]) != len(freqs.Lists[pos]) {
				setErr(fmt.Errorf("index: term %d: %d doc ids but %d freqs", pos, len(docs.Lists[pos]), len(freqs.Lists[pos])))
				continue
			}
			jobs <- job{pos: pos, docs: docs.Lists[pos], freqs: freqs.Lists[pos]}
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	// Commit thread: a single goroutine drains results (arriving in
	// any order from the worker pool) into an input-order buffer, then
	// appends each completed list to the shared collection builders in
	// strict order — this is the single serialization point spec §5
	// requires to keep the frozen layout deterministic.
	committed := make([]preparedList, numTerms)
	seen := make([]bool, numTerms)
	for r := range results {
		committed[r.pos] = r
		seen[r.pos] = true
	}
	if firstErr != nil {
		return nil, firstErr
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("index: term %d: never prepared", i)
		}
	}

	if opts.BlockFamily {
		return commitBlockFamily(docs.NumDocs, opts.Params, opts.BlockCodec, committed)
	}
	return commitEFFamily(docs.NumDocs, opts.Params, committed), nil
}

func prepareList(pos int, docsU32, freqsU32 []uint32, opts BuildOptions) (preparedList, error) {
	if opts.BlockFamily {
		b := blockindex.NewBuilder(opts.BlockCodec)
		for i := range docsU32 {
			b.PushBack(docsU32[i], freqsU32[i])
		}
		list := b.Build()
		var buf sliceWriter
		if err := list.Serialize(&buf); err != nil {
			return preparedList{}, fmt.Errorf("index: term %d: %w", pos, err)
		}
		return preparedList{pos: pos, blockBytes: buf.b}, nil
	}

	docsRaw := make([]uint64, len(docsU32))
	sums := make([]uint64, len(docsU32))
	var cum uint64
	for i := range docsU32 {
		docsRaw[i] = uint64(docsU32[i])
		cum += uint64(freqsU32[i])
		sums[i] = cum
	}
	return preparedList{pos: pos, docsRaw: docsRaw, freqSums: sums}, nil
}

func commitEFFamily(numDocs uint64, params config.GlobalParameters, lists []preparedList) *Index {
	docsBuilder := NewBitVectorCollectionBuilder(params)
	freqsBuilder := NewBitVectorCollectionBuilder(params)
	for _, l := range lists {
		docsBuilder.Append(l.docsRaw)
		freqsBuilder.Append(l.freqSums)
	}
	return &Index{
		Params:         params,
		NumDocs:        numDocs,
		docsSequences:  docsBuilder.Build(),
		freqsSequences: freqsBuilder.Build(),
	}
}

func commitBlockFamily(numDocs uint64, params config.GlobalParameters, codec blockcodec.Codec, lists []preparedList) (*Index, error) {
	var all []byte
	endpoints := make([]uint64, 0, len(lists)+1)
	endpoints = append(endpoints, 0)
	for _, l := range lists {
		all = append(all, l.blockBytes...)
		endpoints = append(endpoints, uint64(len(all)))
	}
	// Endpoints must be strictly increasing for the EF sequence over
	// them; Serialize's own header makes every term's encoded blob
	// non-empty, but a zero-byte blob is still rejected here as the
	// format error spec §7 calls for rather than silently miscoding it.
	for i := 1; i < len(endpoints); i++ {
		if endpoints[i] <= endpoints[i-1] {
			return nil, fmt.Errorf("index: term %d: empty block-encoded posting list", i-1)
		}
	}
	efb := eliasFanoBuilderOverEndpoints(endpoints, params)
	return &Index{
		Params:         params,
		NumDocs:        numDocs,
		BlockFamily:    true,
		blockLists:     all,
		blockEndpoints: efb,
		blockCodec:     codec,
	}, nil
}

// sliceWriter is an io.Writer collecting bytes into a slice, used by
// prepareList to serialize a block posting list before handing it to
// the commit goroutine.
type sliceWriter struct{ b []byte }

func (w *sliceWriter) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}
