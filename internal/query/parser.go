package query

import (
	"strconv"
	"strings"

	"github.com/mchl/mairix/internal/mairixdb"
)

// wordLetters maps each combinable word-field letter to the token tables it
// searches (spec §4.12 names the letter set but leaves the per-letter
// semantics to be inferred from the reference implementation; r is
// to+cc, a is to+cc+from, matching the original search.c switch).
var wordLetters = map[byte][]mairixdb.TokenField{
	'b': {mairixdb.TFBody},
	's': {mairixdb.TFSubject},
	't': {mairixdb.TFTo},
	'c': {mairixdb.TFCc},
	'f': {mairixdb.TFFrom},
	'r': {mairixdb.TFTo, mairixdb.TFCc},
	'a': {mairixdb.TFTo, mairixdb.TFCc, mairixdb.TFFrom},
	'n': {mairixdb.TFAttachmentName},
}

// defaultFields is the set searched when an argument carries no field
// prefix at all (original search.c: do_body = do_subject = do_to = do_cc =
// do_from = 1 when no colon is present).
var defaultFields = []mairixdb.TokenField{
	mairixdb.TFTo, mairixdb.TFCc, mairixdb.TFFrom, mairixdb.TFSubject, mairixdb.TFBody,
}

// Parse builds a Query from the program's positional arguments.
func Parse(args []string) (*Query, error) {
	q := &Query{}
	for _, a := range args {
		arg, err := parseArgument(a)
		if err != nil {
			return nil, err
		}
		q.Arguments = append(q.Arguments, arg)
	}
	return q, nil
}

// parseArgument splits one CLI argument into its field prefix and body
// (spec §4.12).
func parseArgument(s string) (Argument, error) {
	prefix, body, hasPrefix := cutPrefix(s)
	if !hasPrefix {
		return Argument{Kind: KindWords, Fields: defaultFields, Terms: splitWordTerms(s)}, nil
	}
	if prefix == "" {
		return Argument{}, ErrInvalidQuery
	}

	switch {
	case prefix == "m":
		return Argument{Kind: KindMsgID, Terms: splitRawTerms(body)}, nil
	case prefix == "d":
		return Argument{Kind: KindDate, Terms: splitRawTerms(body)}, nil
	case prefix == "z":
		return Argument{Kind: KindSize, Terms: splitRawTerms(body)}, nil
	case prefix == "F":
		return Argument{Kind: KindFlags, Terms: splitRawTerms(body)}, nil
	case prefix == "p":
		return Argument{Kind: KindPath, Terms: splitWordTerms(body)}, nil
	}

	var fields []mairixdb.TokenField
	seen := make(map[byte]bool)
	for i := 0; i < len(prefix); i++ {
		c := prefix[i]
		if strings.ContainsRune("dzmFp", rune(c)) {
			// An exclusive letter combined with others: reject.
			return Argument{}, ErrInvalidQuery
		}
		fs, ok := wordLetters[c]
		if !ok {
			return Argument{}, ErrInvalidQuery
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		fields = append(fields, fs...)
	}
	if len(fields) == 0 {
		return Argument{}, ErrInvalidQuery
	}
	return Argument{Kind: KindWords, Fields: fields, Terms: splitWordTerms(body)}, nil
}

// cutPrefix splits s at its first top-level colon. hasPrefix is false when
// s contains no colon at all, in which case the whole string is the body
// and the default field set applies.
func cutPrefix(s string) (prefix, body string, hasPrefix bool) {
	i := strings.IndexByte(s, ':')
	if i < 0 {
		return "", s, false
	}
	return s[:i], s[i+1:], true
}

// splitRawTerms splits a date/size/flags/msgid body on top-level commas,
// keeping each comma-group's text unparsed (ranges.go parses it).
func splitRawTerms(body string) []Term {
	var out []Term
	for _, g := range strings.Split(body, ",") {
		out = append(out, Term{Raw: g})
	}
	return out
}

// splitWordTerms splits a word-field (or path) body into comma-separated
// OR-terms, concatenating each term's plus-separated pieces into a single
// literal per spec §4.12, and extracting the leading ~/^ and trailing =N
// atom modifiers.
func splitWordTerms(body string) []Term {
	var out []Term
	for _, g := range strings.Split(body, ",") {
		out = append(out, parseWordTerm(g))
	}
	return out
}

func parseWordTerm(g string) Term {
	var t Term
	i := 0
	if i < len(g) && g[i] == '~' {
		t.Negate = true
		i++
	}
	if i < len(g) && g[i] == '^' {
		t.Anchor = true
		i++
	}
	rest := g[i:]

	pieces := strings.Split(rest, "+")
	last := pieces[len(pieces)-1]
	if eq := strings.IndexByte(last, '='); eq >= 0 {
		t.Approx = true
		numStr := last[eq+1:]
		if numStr != "" {
			if n, err := strconv.Atoi(numStr); err == nil {
				t.K = n
			}
		}
		pieces[len(pieces)-1] = last[:eq]
	}
	t.Literal = strings.Join(pieces, "")
	return t
}
