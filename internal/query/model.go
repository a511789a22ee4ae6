// Package query implements the boolean query evaluator (spec §4.12, C12):
// parsing the argument grammar, evaluating each argument's hit set against
// a mapped index, and AND-combining arguments into a final result.
package query

import (
	"errors"

	"github.com/mchl/mairix/internal/mairixdb"
)

// ErrInvalidQuery covers every grammar or range-parsing failure (spec §7's
// InvalidQuery kind): unknown field letters, a pattern over 31 bytes, an
// illegal flag letter, or a malformed size/date range.
var ErrInvalidQuery = errors.New("query: invalid query")

// Kind selects how an argument's comma-groups are evaluated.
type Kind int

const (
	KindWords Kind = iota // b/s/t/c/f/r/a/n, or no prefix at all
	KindPath              // p: literal substring match against the message path
	KindMsgID             // m: exact match against msg_ids chain 1
	KindDate              // d: date range
	KindSize              // z: size range
	KindFlags             // F: flag expression
)

// Term is one comma-separated OR-term within an argument's body. For
// KindWords/KindPath/KindMsgID it is a single atom (the plus-separated
// pieces of the source text are concatenated into Literal, per spec
// §4.12's "currently treated as concatenated" rule for `+`). For
// KindDate/KindSize/KindFlags, Raw holds the term's full unparsed text,
// parsed by ranges.go at evaluation time.
type Term struct {
	Negate bool
	Anchor bool
	Approx bool
	K      int
	Literal string

	Raw string
}

// Argument is one AND-combined element of a query (spec §4.12).
type Argument struct {
	Kind   Kind
	Fields []mairixdb.TokenField // populated only for KindWords
	Terms  []Term
}

// Query is the full AND-combined argument sequence.
type Query struct {
	Arguments []Argument
}
