// Package blockindex implements the block-compressed per-term posting
// list of spec §4.4: a skip table of (last doc id, stream endpoint)
// per block, a doc-block stream, a freq-block stream, and a block
// cursor supporting next/next_geq/freq.
package blockindex

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/kittclouds/pisago/pkg/blockcodec"
)

// BlockPostingList is one term's block-compressed (doc, freq) list.
type BlockPostingList struct {
	n     uint64
	codec blockcodec.Codec

	lastDocOfBlock []uint32 // skip table: last doc id of each block
	docEndpoints   []uint64 // cumulative byte offset into docStream after each block
	freqEndpoints  []uint64 // cumulative byte offset into freqStream after each block
	docStream      []byte
	freqStream     []byte
}

// Len returns the total number of postings in the list.
func (l *BlockPostingList) Len() uint64 { return l.n }

// NumBlocks returns the number of 128-doc blocks (the last possibly
// short).
func (l *BlockPostingList) NumBlocks() int { return len(l.lastDocOfBlock) }

func (l *BlockPostingList) blockSize(bIdx int) int {
	start := bIdx * blockcodec.BlockSize
	end := start + blockcodec.BlockSize
	if end > int(l.n) {
		end = int(l.n)
	}
	return end - start
}

func (l *BlockPostingList) docStreamRange(bIdx int) (uint64, uint64) {
	var start uint64
	if bIdx > 0 {
		start = l.docEndpoints[bIdx-1]
	}
	return start, l.docEndpoints[bIdx]
}

func (l *BlockPostingList) freqStreamRange(bIdx int) (uint64, uint64) {
	var start uint64
	if bIdx > 0 {
		start = l.freqEndpoints[bIdx-1]
	}
	return start, l.freqEndpoints[bIdx]
}

func (l *BlockPostingList) blockBase(bIdx int) uint32 {
	if bIdx == 0 {
		return 0
	}
	return l.lastDocOfBlock[bIdx-1]
}

func (l *BlockPostingList) decodeDocBlock(bIdx int) []uint32 {
	size := l.blockSize(bIdx)
	start, end := l.docStreamRange(bIdx)
	base := l.blockBase(bIdx)
	sumOfValues := l.lastDocOfBlock[bIdx] - base
	out := make([]uint32, size)
	blockcodec.DecodeDocBlock(l.codec, l.docStream[start:end], out, base, sumOfValues)
	return out
}

func (l *BlockPostingList) decodeFreqBlock(bIdx int) []uint32 {
	size := l.blockSize(bIdx)
	start, end := l.freqStreamRange(bIdx)
	out := make([]uint32, size)
	blockcodec.DecodeFreqBlock(l.codec, l.freqStream[start:end], out)
	return out
}

// Builder accumulates (docID, freq) pairs in increasing doc-id order
// and chunks them into codec-encoded blocks on Build.
type Builder struct {
	codec blockcodec.Codec
	docs  []uint32
	freqs []uint32
}

// NewBuilder starts a builder using the given full-block codec.
func NewBuilder(codec blockcodec.Codec) *Builder {
	return &Builder{codec: codec}
}

// PushBack appends the next posting; doc must be strictly greater than
// the previously pushed doc.
func (b *Builder) PushBack(doc uint32, freq uint32) {
	b.docs = append(b.docs, doc)
	b.freqs = append(b.freqs, freq)
}

// Build finalizes the block-compressed posting list.
func (b *Builder) Build() *BlockPostingList {
	n := len(b.docs)
	numBlocks := (n + blockcodec.BlockSize - 1) / blockcodec.BlockSize
	l := &BlockPostingList{
		n: uint64(n), codec: b.codec,
		lastDocOfBlock: make([]uint32, numBlocks),
		docEndpoints:   make([]uint64, numBlocks),
		freqEndpoints:  make([]uint64, numBlocks),
	}

	var base uint32
	for bIdx := 0; bIdx < numBlocks; bIdx++ {
		start := bIdx * blockcodec.BlockSize
		end := start + blockcodec.BlockSize
		if end > n {
			end = n
		}
		docsBlk := b.docs[start:end]
		freqsBlk := b.freqs[start:end]

		sumOfValues := docsBlk[len(docsBlk)-1] - base
		encDocs := blockcodec.EncodeDocBlock(b.codec, docsBlk, base, sumOfValues)
		encFreqs := blockcodec.EncodeFreqBlock(b.codec, freqsBlk)

		l.docStream = append(l.docStream, encDocs...)
		l.freqStream = append(l.freqStream, encFreqs...)
		l.lastDocOfBlock[bIdx] = docsBlk[len(docsBlk)-1]
		l.docEndpoints[bIdx] = uint64(len(l.docStream))
		l.freqEndpoints[bIdx] = uint64(len(l.freqStream))
		base = l.lastDocOfBlock[bIdx]
	}
	return l
}

// Serialize writes the list's skip table and encoded streams, the
// per-term unit pkg/index concatenates into a block-family frozen
// index's "lists: byte_vector" (spec §6.2).
func (l *BlockPostingList) Serialize(w io.Writer) error {
	bw := bufio.NewWriter(w)
	name := l.codec.Name()
	if err := binary.Write(bw, binary.LittleEndian, l.n); err != nil {
		return fmt.Errorf("blockindex: writing n: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(name))); err != nil {
		return fmt.Errorf("blockindex: writing codec name length: %w", err)
	}
	if _, err := bw.WriteString(name); err != nil {
		return fmt.Errorf("blockindex: writing codec name: %w", err)
	}
	if err := writeU32Slice(bw, l.lastDocOfBlock); err != nil {
		return err
	}
	if err := writeU64Slice(bw, l.docEndpoints); err != nil {
		return err
	}
	if err := writeU64Slice(bw, l.freqEndpoints); err != nil {
		return err
	}
	if err := writeByteSlice(bw, l.docStream); err != nil {
		return err
	}
	if err := writeByteSlice(bw, l.freqStream); err != nil {
		return err
	}
	return bw.Flush()
}

// Deserialize reconstructs a BlockPostingList written by Serialize.
func Deserialize(r io.Reader) (*BlockPostingList, error) {
	var n, nameLen uint64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("blockindex: reading n: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
		return nil, fmt.Errorf("blockindex: reading codec name length: %w", err)
	}
	nameBuf := make([]byte, nameLen)
	if _, err := io.ReadFull(r, nameBuf); err != nil {
		return nil, fmt.Errorf("blockindex: reading codec name: %w", err)
	}
	codec, ok := blockcodec.ByName(string(nameBuf))
	if !ok {
		return nil, fmt.Errorf("blockindex: unknown codec %q", nameBuf)
	}

	lastDocOfBlock, err := readU32Slice(r)
	if err != nil {
		return nil, err
	}
	docEndpoints, err := readU64Slice(r)
	if err != nil {
		return nil, err
	}
	freqEndpoints, err := readU64Slice(r)
	if err != nil {
		return nil, err
	}
	docStream, err := readByteSlice(r)
	if err != nil {
		return nil, err
	}
	freqStream, err := readByteSlice(r)
	if err != nil {
		return nil, err
	}
	return &BlockPostingList{
		n: n, codec: codec,
		lastDocOfBlock: lastDocOfBlock,
		docEndpoints:   docEndpoints,
		freqEndpoints:  freqEndpoints,
		docStream:      docStream,
		freqStream:     freqStream,
	}, nil
}

func writeU32Slice(w io.Writer, s []uint32) error {
	if err := binary.Write(w, binary.LittleEndian, uint64(len(s))); err != nil {
		return fmt.Errorf("blockindex: writing slice length: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, s); err != nil {
		return fmt.Errorf("blockindex: writing slice: %w", err)
	}
	return nil
}

func writeU64Slice(w io.Writer, s []uint64) error {
	if err := binary.Write(w, binary.LittleEndian, uint64(len(s))); err != nil {
		return fmt.Errorf("blockindex: writing slice length: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, s); err != nil {
		return fmt.Errorf("blockindex: writing slice: %w", err)
	}
	return nil
}

func writeByteSlice(w io.Writer, s []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint64(len(s))); err != nil {
		return fmt.Errorf("blockindex: writing byte slice length: %w", err)
	}
	if _, err := w.Write(s); err != nil {
		return fmt.Errorf("blockindex: writing byte slice: %w", err)
	}
	return nil
}

func readU32Slice(r io.Reader) ([]uint32, error) {
	var n uint64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("blockindex: reading slice length: %w", err)
	}
	out := make([]uint32, n)
	if n > 0 {
		if err := binary.Read(r, binary.LittleEndian, out); err != nil {
			return nil, fmt.Errorf("blockindex: reading slice: %w", err)
		}
	}
	return out, nil
}

func readU64Slice(r io.Reader) ([]uint64, error) {
	var n uint64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("blockindex: reading slice length: %w", err)
	}
	out := make([]uint64, n)
	if n > 0 {
		if err := binary.Read(r, binary.LittleEndian, out); err != nil {
			return nil, fmt.Errorf("blockindex: reading slice: %w", err)
		}
	}
	return out, nil
}

func readByteSlice(r io.Reader) ([]byte, error) {
	var n uint64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("blockindex: reading byte slice length: %w", err)
	}
	out := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, out); err != nil {
			return nil, fmt.Errorf("blockindex: reading byte slice: %w", err)
		}
	}
	return out, nil
}

// Cursor walks a BlockPostingList, decoding one block at a time and
// lazily decoding the freq block only when Freq is requested.
type Cursor struct {
	list       *BlockPostingList
	blockIdx   int
	posInBlock int
	docs       []uint32
	freqs      []uint32
	atEnd      bool
}

// NewCursor creates a cursor positioned before the first posting.
func (l *BlockPostingList) NewCursor() *Cursor {
	return &Cursor{list: l, blockIdx: -1}
}

// DocID returns the doc id at the cursor's current position.
func (c *Cursor) DocID() uint32 { return c.docs[c.posInBlock] }

// Freq decodes (once per block) and returns the frequency at the
// cursor's current position.
func (c *Cursor) Freq() uint32 {
	if c.freqs == nil {
		c.freqs = c.list.decodeFreqBlock(c.blockIdx)
	}
	return c.freqs[c.posInBlock]
}

// Next advances to the next posting.
func (c *Cursor) Next() bool {
	if c.atEnd {
		return false
	}
	if c.blockIdx < 0 {
		if c.list.NumBlocks() == 0 {
			c.atEnd = true
			return false
		}
		c.blockIdx = 0
		c.docs = c.list.decodeDocBlock(0)
		c.posInBlock = 0
		return true
	}
	c.posInBlock++
	if c.posInBlock < len(c.docs) {
		return true
	}
	c.blockIdx++
	if c.blockIdx >= c.list.NumBlocks() {
		c.atEnd = true
		return false
	}
	c.docs = c.list.decodeDocBlock(c.blockIdx)
	c.freqs = nil
	c.posInBlock = 0
	return true
}

// NextGeq binary-searches the skip table for the block that may
// contain d, decodes it if not already current, and linearly scans to
// the first doc id >= d.
func (c *Cursor) NextGeq(d uint32) bool {
	list := c.list
	idx := sort.Search(len(list.lastDocOfBlock), func(i int) bool {
		return list.lastDocOfBlock[i] >= d
	})
	if idx >= len(list.lastDocOfBlock) {
		c.atEnd = true
		return false
	}
	if c.blockIdx != idx || c.docs == nil {
		c.blockIdx = idx
		c.docs = list.decodeDocBlock(idx)
		c.freqs = nil
	}
	for i, docv := range c.docs {
		if docv >= d {
			c.posInBlock = i
			return true
		}
	}
	c.atEnd = true
	return false
}
