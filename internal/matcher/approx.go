// Package matcher implements the bit-parallel k-mismatch substring match
// (spec §4.11, C11): a Wu-Manber style automaton over a pattern of up to
// 31 bytes (a 63-bit state word leaves headroom on a 64-bit machine; the
// spec's original 31-byte limit came from a single 32-bit word, which we
// keep as the contract so the on-disk/query-syntax limit in spec §8 still
// holds even though our state words are wider).
package matcher

import "errors"

// MaxPatternLen is the longest pattern accepted (spec §8 boundary: 31
// bytes matches, 32 is rejected).
const MaxPatternLen = 31

// ErrPatternTooLong is returned by New when the pattern exceeds MaxPatternLen.
var ErrPatternTooLong = errors.New("matcher: pattern exceeds 31 bytes")

// Matcher holds the precomputed automaton for one pattern/error-budget
// pair, reusable across many candidate token texts.
type Matcher struct {
	pattern string
	k       int
	anchor  bool
	a       [256]uint64
	hit     uint64
}

// New precomputes the matcher for pattern (lowercased by the caller before
// calling New, since the table is built directly from pattern bytes),
// allowing up to k errors, optionally anchored to the start of the token.
func New(pattern string, k int, leftAnchor bool) (*Matcher, error) {
	if len(pattern) > MaxPatternLen {
		return nil, ErrPatternTooLong
	}
	m := &Matcher{pattern: pattern, k: k, anchor: leftAnchor}
	l := len(pattern)

	for c := 0; c < 256; c++ {
		m.a[c] = ^uint64(0)
	}
	for j := 0; j < l; j++ {
		m.a[pattern[j]] &^= 1 << uint(j)
	}
	if l > 0 {
		m.hit = ^(uint64(1) << uint(l-1))
	} else {
		m.hit = ^uint64(0)
	}
	return m, nil
}

// Match reports whether text contains pattern with at most k errors
// (insertions, deletions, substitutions), honouring the left-anchor flag.
func (m *Matcher) Match(text string) bool {
	if len(m.pattern) == 0 {
		return true
	}
	k := m.k
	r := make([]uint64, k+1)
	r[0] = ^uint64(0)
	for d := 1; d <= k; d++ {
		r[d] = r[d-1] << 1
	}

	nr := make([]uint64, k+1)
	for i := 0; i < len(text); i++ {
		c := text[i]
		var anchorBit uint64
		if m.anchor && i > 0 {
			anchorBit = 1
		}

		nr[0] = (r[0] << 1) | anchorBit | m.a[c]
		for d := 1; d <= k; d++ {
			nr[d] = ((r[d] << 1) | anchorBit | m.a[c]) & ((r[d-1] & nr[d-1]) << 1) & r[d-1]
		}
		copy(r, nr)

		acc := r[0]
		for d := 1; d <= k; d++ {
			acc &= r[d]
		}
		// A clear bit l-1 in any row means the whole pattern has matched.
		if ^(acc|m.hit) != 0 {
			return true
		}
	}
	return false
}
