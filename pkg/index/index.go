package index

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hack-pad/hackpadfs"

	"github.com/kittclouds/pisago/pkg/blockcodec"
	"github.com/kittclouds/pisago/pkg/blockindex"
	"github.com/kittclouds/pisago/pkg/config"
	"github.com/kittclouds/pisago/pkg/eliasfano"
	"github.com/kittclouds/pisago/pkg/freqindex"
)

// flagBlockFamily is set in the header's flags word when the index's
// postings are block-compressed (pkg/blockindex) rather than
// Elias-Fano-family (pkg/freqindex).
const flagBlockFamily uint64 = 1 << 0

// Index is the frozen, mmappable blob of spec §6.2: global parameters,
// the document count, and either an EF-family pair of
// bitvector_collections (docs_sequences, freqs_sequences) or a
// block-family concatenated byte_vector plus a monotone EF over
// per-term endpoints.
//
// Only one of the EF-family or block-family fields is populated,
// selected by BlockFamily.
type Index struct {
	Params  config.GlobalParameters
	NumDocs uint64

	BlockFamily bool

	// EF-family fields.
	docsSequences  *BitVectorCollection
	freqsSequences *BitVectorCollection

	// Block-family fields.
	blockLists     []byte
	blockEndpoints *eliasfano.EliasFano
	blockCodec     blockcodec.Codec
}

// NumTerms returns the number of per-term posting lists the index
// holds.
func (idx *Index) NumTerms() uint64 {
	if idx.BlockFamily {
		if idx.blockEndpoints == nil {
			return 0
		}
		return idx.blockEndpoints.Len() - 1
	}
	return idx.docsSequences.Size()
}

// EFPostingList reconstructs term t's EF-family runtime posting list by
// replaying its persisted (doc, occurrences) arrays through
// pkg/freqindex's own partitioned-EF builder — the frozen format
// stores the logical collection rather than a byte image of the
// already-partitioned structure, so the exact same encoder used at
// build time re-derives the compact in-memory representation on load.
func (idx *Index) EFPostingList(t uint64, optimalPartition bool) (*freqindex.TermPostingList, error) {
	if idx.BlockFamily {
		return nil, fmt.Errorf("index: term %d: index is block-family, not EF-family", t)
	}
	docs := idx.docsSequences.List(t)
	sums := idx.freqsSequences.List(t)
	if len(docs) != len(sums) {
		return nil, fmt.Errorf("index: term %d: docs/freqs length mismatch (%d vs %d)", t, len(docs), len(sums))
	}
	b := freqindex.NewBuilder()
	var prevSum uint64
	for i, d := range docs {
		occ := sums[i] - prevSum // inverse of freqindex's +1-biased partial sum
		prevSum = sums[i]
		b.PushBack(d, occ)
	}
	return b.Build(idx.NumDocs, idx.Params, optimalPartition), nil
}

// BlockPostingList decodes term t's block-family posting list out of
// the concatenated lists byte_vector.
func (idx *Index) BlockPostingList(t uint64) (*blockindex.BlockPostingList, error) {
	if !idx.BlockFamily {
		return nil, fmt.Errorf("index: term %d: index is EF-family, not block-family", t)
	}
	en := eliasfano.NewEnumerator(idx.blockEndpoints)
	_, start, ok := en.Move(t)
	if !ok {
		return nil, fmt.Errorf("index: term %d: out of range", t)
	}
	_, end, ok := en.Move(t + 1)
	if !ok {
		return nil, fmt.Errorf("index: term %d: missing end endpoint", t)
	}
	return blockindex.Deserialize(newByteReader(idx.blockLists[start:end]))
}

func newByteReader(b []byte) io.Reader { return &sliceReader{b: b} }

type sliceReader struct {
	b   []byte
	pos int
}

func (r *sliceReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.pos:])
	r.pos += n
	return n, nil
}

// Save serializes the index as the depth-first field tree of spec
// §6.2 and writes it through fs at path.
func (idx *Index) Save(fs hackpadfs.FS, path string) error {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	flags := uint64(0)
	if idx.BlockFamily {
		flags |= flagBlockFamily
	}
	if err := writeU64(w, flags); err != nil {
		return err
	}
	if err := writeParams(w, idx.Params); err != nil {
		return err
	}
	if err := writeU64(w, idx.NumDocs); err != nil {
		return err
	}

	if idx.BlockFamily {
		if err := writeCountedBytes(w, []byte(idx.blockCodec.Name())); err != nil {
			return err
		}
		if err := writeCountedBytes(w, idx.blockLists); err != nil {
			return err
		}
		if err := writeU64Slice(w, idx.blockEndpoints.ToSlice()); err != nil {
			return err
		}
	} else {
		if err := writeBitVectorCollection(w, idx.docsSequences); err != nil {
			return err
		}
		if err := writeBitVectorCollection(w, idx.freqsSequences); err != nil {
			return err
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("index: flushing: %w", err)
	}
	if err := hackpadfs.WriteFullFile(fs, path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("index: writing frozen index %q: %w", path, err)
	}
	return nil
}

// Load reads and reconstructs a frozen index written by Save.
func Load(fs hackpadfs.FS, path string) (*Index, error) {
	content, err := hackpadfs.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("index: reading frozen index %q: %w", path, err)
	}
	r := newByteReader(content)

	flags, err := readU64(r)
	if err != nil {
		return nil, err
	}
	params, err := readParams(r)
	if err != nil {
		return nil, err
	}
	numDocs, err := readU64(r)
	if err != nil {
		return nil, err
	}

	idx := &Index{Params: params, NumDocs: numDocs, BlockFamily: flags&flagBlockFamily != 0}

	if idx.BlockFamily {
		name, err := readCountedBytes(r)
		if err != nil {
			return nil, err
		}
		codec, ok := blockcodec.ByName(string(name))
		if !ok {
			return nil, fmt.Errorf("index: unknown block codec %q", name)
		}
		idx.blockCodec = codec
		lists, err := readCountedBytes(r)
		if err != nil {
			return nil, err
		}
		idx.blockLists = lists
		endpoints, err := readU64Slice(r)
		if err != nil {
			return nil, err
		}
		idx.blockEndpoints = eliasFanoBuilderOverEndpoints(endpoints, params)
		return idx, nil
	}

	idx.docsSequences, err = readBitVectorCollection(r, params)
	if err != nil {
		return nil, err
	}
	idx.freqsSequences, err = readBitVectorCollection(r, params)
	if err != nil {
		return nil, err
	}
	return idx, nil
}

func eliasFanoBuilderOverEndpoints(endpoints []uint64, params config.GlobalParameters) *eliasfano.EliasFano {
	efb := eliasfano.NewBuilder(endpoints[len(endpoints)-1]+1, params)
	for _, off := range endpoints {
		_ = efb.PushBack(off)
	}
	return efb.Build()
}

// --- primitive field I/O, per spec §6.2's "primitives raw,
// variable-length vectors as (count, raw_bytes)" rule ---

func writeU64(w io.Writer, v uint64) error {
	if err := binary.Write(w, binary.LittleEndian, v); err != nil {
		return fmt.Errorf("index: writing u64: %w", err)
	}
	return nil
}

func readU64(r io.Reader) (uint64, error) {
	var v uint64
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return 0, fmt.Errorf("index: reading u64: %w", err)
	}
	return v, nil
}

func writeU64Slice(w io.Writer, s []uint64) error {
	if err := writeU64(w, uint64(len(s))); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, s); err != nil {
		return fmt.Errorf("index: writing u64 slice: %w", err)
	}
	return nil
}

func readU64Slice(r io.Reader) ([]uint64, error) {
	n, err := readU64(r)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, n)
	if n > 0 {
		if err := binary.Read(r, binary.LittleEndian, out); err != nil {
			return nil, fmt.Errorf("index: reading u64 slice: %w", err)
		}
	}
	return out, nil
}

func writeCountedBytes(w io.Writer, b []byte) error {
	if err := writeU64(w, uint64(len(b))); err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("index: writing byte vector: %w", err)
	}
	return nil
}

func readCountedBytes(r io.Reader) ([]byte, error) {
	n, err := readU64(r)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, out); err != nil {
			return nil, fmt.Errorf("index: reading byte vector: %w", err)
		}
	}
	return out, nil
}

func writeParams(w io.Writer, p config.GlobalParameters) error {
	fields := []uint64{
		uint64(p.LogSampling0), uint64(p.LogSampling1), uint64(p.LogSamplingRank1),
		uint64(p.LogPartitionSize), p.FixedPartitionCost,
	}
	for _, f := range fields {
		if err := writeU64(w, f); err != nil {
			return err
		}
	}
	for _, f := range []float64{p.Eps1, p.Eps2, p.Eps3} {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return fmt.Errorf("index: writing params: %w", err)
		}
	}
	return nil
}

func readParams(r io.Reader) (config.GlobalParameters, error) {
	var p config.GlobalParameters
	vals := make([]uint64, 5)
	for i := range vals {
		v, err := readU64(r)
		if err != nil {
			return p, err
		}
		vals[i] = v
	}
	p.LogSampling0 = uint(vals[0])
	p.LogSampling1 = uint(vals[1])
	p.LogSamplingRank1 = uint(vals[2])
	p.LogPartitionSize = uint(vals[3])
	p.FixedPartitionCost = vals[4]
	for _, dst := range []*float64{&p.Eps1, &p.Eps2, &p.Eps3} {
		if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
			return p, fmt.Errorf("index: reading params: %w", err)
		}
	}
	return p, nil
}

func writeBitVectorCollection(w io.Writer, c *BitVectorCollection) error {
	if err := writeU64(w, c.Size()); err != nil {
		return err
	}
	if err := writeU64Slice(w, c.endpoints.ToSlice()); err != nil {
		return err
	}
	data, sizeBits := c.serializedBits()
	if err := writeU64(w, sizeBits); err != nil {
		return err
	}
	return writeCountedBytes(w, data)
}

func readBitVectorCollection(r io.Reader, params config.GlobalParameters) (*BitVectorCollection, error) {
	size, err := readU64(r)
	if err != nil {
		return nil, err
	}
	endpoints, err := readU64Slice(r)
	if err != nil {
		return nil, err
	}
	sizeBits, err := readU64(r)
	if err != nil {
		return nil, err
	}
	data, err := readCountedBytes(r)
	if err != nil {
		return nil, err
	}
	return bitVectorCollectionFromParts(size, endpoints, data, sizeBits, params), nil
}
