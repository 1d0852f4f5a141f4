// Package collection implements spec §6.1's binary collection format:
// the `.docs`/`.freqs`/`.sizes` companion files that feed pkg/index's
// builder, each a stream of little-endian u32 `(len, v_0, …, v_{len-1})`
// sequences concatenated back to back.
package collection

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrTruncated is returned when a sequence's declared length runs past
// the end of the stream.
var ErrTruncated = errors.New("collection: truncated sequence")

// ErrMissingHeader is returned when a .docs stream doesn't start with
// the `(1, N)` pseudo-header spec §6.1 requires.
var ErrMissingHeader = errors.New("collection: .docs stream missing (1, num_docs) header")

// ErrListCountMismatch is returned when a .freqs stream's sequence
// count doesn't match the .docs stream's posting-list count.
var ErrListCountMismatch = errors.New("collection: freqs sequence count does not match docs posting-list count")

// ReadSequences reads every `(len, v_0, …, v_{len-1})` sequence in r
// until EOF, returning them in file order.
func ReadSequences(r io.Reader) ([][]uint32, error) {
	br := bufio.NewReader(r)
	var seqs [][]uint32
	for {
		seq, err := readOneSequence(br)
		if errors.Is(err, io.EOF) {
			return seqs, nil
		}
		if err != nil {
			return nil, err
		}
		seqs = append(seqs, seq)
	}
}

func readOneSequence(r io.Reader) ([]uint32, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, err // propagates io.EOF cleanly at a sequence boundary
	}
	seq := make([]uint32, length)
	if length > 0 {
		if err := binary.Read(r, binary.LittleEndian, seq); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("%w: declared length %d", ErrTruncated, length)
			}
			return nil, err
		}
	}
	return seq, nil
}

// WriteSequences writes each of seqs as a `(len, v_0, …, v_{len-1})`
// little-endian u32 sequence, concatenated.
func WriteSequences(w io.Writer, seqs [][]uint32) error {
	bw := bufio.NewWriter(w)
	for _, seq := range seqs {
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(seq))); err != nil {
			return err
		}
		if len(seq) > 0 {
			if err := binary.Write(bw, binary.LittleEndian, seq); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// Docs is a parsed `.docs` stream: the `num_docs` carried by its
// pseudo-header, plus one sorted doc-ID list per term.
type Docs struct {
	NumDocs uint64
	Lists   [][]uint32
}

// ReadDocs parses a `.docs` stream per spec §6.1: the first sequence
// must be `(1, N)`, giving num_docs; every subsequent sequence is one
// term's posting list.
func ReadDocs(r io.Reader) (*Docs, error) {
	seqs, err := ReadSequences(r)
	if err != nil {
		return nil, err
	}
	if len(seqs) == 0 || len(seqs[0]) != 1 {
		return nil, ErrMissingHeader
	}
	return &Docs{NumDocs: uint64(seqs[0][0]), Lists: seqs[1:]}, nil
}

// WriteDocs writes numDocs and lists as a `.docs` stream.
func WriteDocs(w io.Writer, numDocs uint64, lists [][]uint32) error {
	seqs := make([][]uint32, 0, len(lists)+1)
	seqs = append(seqs, []uint32{uint32(numDocs)})
	seqs = append(seqs, lists...)
	return WriteSequences(w, seqs)
}

// Freqs is a parsed `.freqs` stream: one frequency sequence per term,
// aligned one-for-one with the owning `.docs` stream's posting lists.
type Freqs struct {
	Lists [][]uint32
}

// ReadFreqs parses a `.freqs` stream, validating that it carries
// exactly wantLists sequences (the `.docs` stream's posting-list
// count, with no header of its own).
func ReadFreqs(r io.Reader, wantLists int) (*Freqs, error) {
	seqs, err := ReadSequences(r)
	if err != nil {
		return nil, err
	}
	if len(seqs) != wantLists {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrListCountMismatch, len(seqs), wantLists)
	}
	return &Freqs{Lists: seqs}, nil
}

// WriteFreqs writes lists as a `.freqs` stream.
func WriteFreqs(w io.Writer, lists [][]uint32) error {
	return WriteSequences(w, lists)
}

// Sizes is a parsed `.sizes` stream: a single sequence of length N
// giving each document's length.
type Sizes struct {
	Lengths []uint32
}

// ReadSizes parses a `.sizes` stream: exactly one sequence.
func ReadSizes(r io.Reader) (*Sizes, error) {
	seqs, err := ReadSequences(r)
	if err != nil {
		return nil, err
	}
	if len(seqs) != 1 {
		return nil, fmt.Errorf("collection: .sizes stream must contain exactly one sequence, got %d", len(seqs))
	}
	return &Sizes{Lengths: seqs[0]}, nil
}

// WriteSizes writes lengths as a `.sizes` stream.
func WriteSizes(w io.Writer, lengths []uint32) error {
	return WriteSequences(w, [][]uint32{lengths})
}
