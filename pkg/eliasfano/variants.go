package eliasfano

// StrictSequence wraps EliasFano to represent a strictly increasing
// sequence whose universe is exactly one past its last value (as
// opposed to an externally supplied, possibly larger universe). This
// is the "strict_elias_fano" variant from §4.2: it saves the one
// high-bucket that would otherwise be reserved for values up to an
// oversized universe.
type StrictSequence struct {
	*EliasFano
}

// BuildStrictFromBuilder finalizes b as a strict sequence: the
// universe is forced to values[n-1]+1 regardless of the universe b
// was constructed with, discarding the otherwise-wasted final bucket.
func BuildStrictFromBuilder(b *Builder) *StrictSequence {
	if len(b.values) == 0 {
		return &StrictSequence{EliasFano: build(nil, 0, b.params)}
	}
	u := b.values[len(b.values)-1] + 1
	return &StrictSequence{EliasFano: build(b.values, u, b.params)}
}

// AllOnesSequence represents the degenerate case of an Elias-Fano
// sequence whose values are exactly 0..n-1 (a contiguous run) or, in
// the single-element case, a sequence of length 1 whose only value
// equals universe-1 — both stored with no backing bits at all, per
// the resolved Open Question in SPEC_FULL.md §3: a length-1 sequence
// is "all ones" either when universe == value+1 (the single value is
// the last slot) or, more generally, whenever universe == n.
type AllOnesSequence struct {
	n, u uint64
}

// IsAllOnes reports whether the strictly increasing values (length n,
// universe u) form the all-ones pattern and, if so, returns the
// zero-footprint sequence.
func IsAllOnes(values []uint64, u uint64) (*AllOnesSequence, bool) {
	n := uint64(len(values))
	if n == 0 {
		return nil, false
	}
	if n == 1 {
		if u == values[0]+1 || u == n {
			return &AllOnesSequence{n: n, u: u}, true
		}
		return nil, false
	}
	if u != n {
		return nil, false
	}
	for i, v := range values {
		if v != uint64(i) {
			return nil, false
		}
	}
	return &AllOnesSequence{n: n, u: u}, true
}

// Len returns the sequence length.
func (a *AllOnesSequence) Len() uint64 { return a.n }

// Universe returns the sequence's universe.
func (a *AllOnesSequence) Universe() uint64 { return a.u }

// ValueAt returns the i-th value without any stored bits: for the
// general all-ones case this is i itself; for the single-element
// universe==value+1 case it is u-1.
func (a *AllOnesSequence) ValueAt(i uint64) uint64 {
	if a.n == 1 && a.u != a.n {
		return a.u - 1
	}
	return i
}

// NextGeq returns the first value >= x with no bit reads at all.
func (a *AllOnesSequence) NextGeq(x uint64) (uint64, uint64, bool) {
	if a.n == 1 {
		v := a.ValueAt(0)
		if v >= x {
			return 0, v, true
		}
		return 0, 0, false
	}
	if x >= a.u {
		return 0, 0, false
	}
	return x, x, true
}
