// Package trecio implements spec §6.4/§6.5's external query and
// result formats: query-line parsing (optional `qid:` prefix, raw term
// IDs or lexicon-resolved surface terms with stopword filtering, and
// an optional `:weight` suffix per term per the original PISA CLI's
// `--weighted` flag), and the TREC ranked-output writer.
package trecio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/orsinium-labs/stopwords"

	"github.com/kittclouds/pisago/pkg/lexicon"
	"github.com/kittclouds/pisago/pkg/topk"
)

// WeightedTerm is one resolved query term: its dense term ID and its
// q_weight contribution (multiplicity by default, or the explicit
// `:weight` suffix when present).
type WeightedTerm struct {
	TermID uint64
	Weight float64
}

// Query is one parsed query line: its (possibly empty) id carried
// through from an optional `qid:` prefix, and its resolved terms.
type Query struct {
	ID    string
	Terms []WeightedTerm
}

// Parser turns query-input lines into Query values. With Lex set,
// tokens are surface terms resolved through the lexicon (stopwords
// dropped first); with Lex nil, tokens are parsed directly as term-ID
// integers.
type Parser struct {
	Lex       *lexicon.Lexicon
	Stopwords stopwords.StopWords[string]

	// AllowFuzzy, when true, falls back to Lex.FuzzyLookup for a
	// surface term Resolve can't find, substituting its best-ranked
	// q-gram candidate instead of failing the whole query on a typo.
	AllowFuzzy bool
}

// NewParser builds a parser. lex may be nil to parse raw term-ID
// queries; English stopword filtering is applied whenever lex is set.
func NewParser(lex *lexicon.Lexicon) *Parser {
	return &Parser{Lex: lex, Stopwords: stopwords.English}
}

// ParseLine parses one query-input line per spec §6.4.
func (p *Parser) ParseLine(line string) (Query, error) {
	q := Query{}
	if rest, ok := strings.CutPrefix(line, "qid:"); ok {
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			return q, fmt.Errorf("trecio: empty query after qid: prefix")
		}
		q.ID = fields[0]
		line = strings.Join(fields[1:], " ")
	}

	for _, tok := range strings.Fields(line) {
		surface, weight, err := splitWeight(tok)
		if err != nil {
			return q, err
		}

		if p.Lex == nil {
			id, err := strconv.ParseUint(surface, 10, 64)
			if err != nil {
				return q, fmt.Errorf("trecio: invalid term ID %q: %w", surface, err)
			}
			q.Terms = append(q.Terms, WeightedTerm{TermID: id, Weight: weight})
			continue
		}

		normalized := strings.ToLower(surface)
		if p.Stopwords.IsStopWord(normalized) {
			continue
		}
		id, err := p.Lex.Resolve(normalized)
		if err != nil && p.AllowFuzzy {
			if candidates := p.Lex.FuzzyLookup(normalized, 1); len(candidates) > 0 {
				id, err = p.Lex.Resolve(candidates[0])
			}
		}
		if err != nil {
			return q, fmt.Errorf("trecio: resolving term %q: %w", surface, err)
		}
		q.Terms = append(q.Terms, WeightedTerm{TermID: id, Weight: weight})
	}
	return q, nil
}

// splitWeight splits an optional `term:weight` token, defaulting
// weight to 1.0 when absent or unparsable as a float (a bare `:` is
// treated as part of the term, not a weight separator, so surface
// terms containing colons still round-trip).
func splitWeight(tok string) (term string, weight float64, err error) {
	if idx := strings.LastIndexByte(tok, ':'); idx >= 0 {
		if w, werr := strconv.ParseFloat(tok[idx+1:], 64); werr == nil {
			return tok[:idx], w, nil
		}
	}
	return tok, 1.0, nil
}

// ParseAll parses every line from r, skipping blank lines.
func ParseAll(r io.Reader, p *Parser) ([]Query, error) {
	scanner := bufio.NewScanner(r)
	var queries []Query
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		q, err := p.ParseLine(line)
		if err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("trecio: reading query input: %w", err)
	}
	return queries, nil
}

// WriteRanked writes results in TREC ranked-output format per spec
// §6.5: `qid \t iter \t docid \t rank \t score \t run_id`, rank
// starting at 0, entries already sorted by score descending with
// doc-ID as tie-break (topk.Queue.Finalize's ordering).
func WriteRanked(w io.Writer, qid string, results []topk.Entry, runID string) error {
	bw := bufio.NewWriter(w)
	for rank, r := range results {
		if _, err := fmt.Fprintf(bw, "%s\tQ0\t%d\t%d\t%f\t%s\n", qid, r.DocID, rank, r.Score, runID); err != nil {
			return err
		}
	}
	return bw.Flush()
}
