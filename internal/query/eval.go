package query

import (
	"strings"
	"time"

	"github.com/mchl/mairix/internal/mairixdb"
	"github.com/mchl/mairix/internal/matcher"
)

// Evaluate computes the AND-combined hit set for q against the mapped
// index r (spec §4.12). Thread expansion, if requested, is a separate
// pass via ExpandThreads.
func Evaluate(r *mairixdb.Reader, q *Query, now time.Time) (*Bitset, error) {
	n := r.NMsgs()
	hit3 := NewBitset(n)
	hit3.SetAll()
	hit3.And(liveMessages(r, n))

	for _, arg := range q.Arguments {
		hit2 := NewBitset(n)
		for _, term := range arg.Terms {
			hit1 := NewBitset(n)
			hit1.SetAll()

			hit0, err := evalTerm(r, now, arg, term, n)
			if err != nil {
				return nil, err
			}
			if term.Negate {
				hit1.AndNot(hit0)
			} else {
				hit1.And(hit0)
			}
			hit2.Or(hit1)
		}
		hit3.And(hit2)
	}
	return hit3, nil
}

func evalTerm(r *mairixdb.Reader, now time.Time, arg Argument, term Term, n int) (*Bitset, error) {
	switch arg.Kind {
	case KindDate:
		dr, err := parseDateRange(term.Raw, now)
		if err != nil {
			return nil, err
		}
		return scanMessages(r, n, func(m mairixdb.Message) bool { return dr.matches(m.Date) }), nil
	case KindSize:
		sr, err := parseSizeRange(term.Raw)
		if err != nil {
			return nil, err
		}
		return scanMessages(r, n, func(m mairixdb.Message) bool { return sr.matches(m.Size) }), nil
	case KindFlags:
		fe, err := parseFlagExpr(term.Raw)
		if err != nil {
			return nil, err
		}
		return scanMessages(r, n, func(m mairixdb.Message) bool { return fe.matches(m.Flags) }), nil
	case KindMsgID:
		return evalMsgID(r, n, term.Raw), nil
	case KindPath:
		return evalPath(r, n, term)
	default: // KindWords
		return evalWords(r, n, arg.Fields, term)
	}
}

// liveMessages excludes KindDead entries: spec §3 states dead entries keep
// only the thread id and are invisible to searches, even though their
// word-table postings aren't scrubbed until the next cull (spec §4.6 step
// 4, §8.S4).
func liveMessages(r *mairixdb.Reader, n int) *Bitset {
	return scanMessages(r, n, func(m mairixdb.Message) bool { return m.Kind != mairixdb.KindDead })
}

func scanMessages(r *mairixdb.Reader, n int, pred func(mairixdb.Message) bool) *Bitset {
	b := NewBitset(n)
	for i := 0; i < n; i++ {
		if pred(r.Message(i)) {
			b.Set(i)
		}
	}
	return b
}

func evalMsgID(r *mairixdb.Reader, n int, raw string) *Bitset {
	b := NewBitset(n)
	text := strings.ToLower(strings.TrimSpace(raw))
	if postings, found := r.LookupExact(mairixdb.TFMsgIDs, text, true); found {
		orPostings(b, postings)
	}
	return b
}

func messagePath(r *mairixdb.Reader, m mairixdb.Message) string {
	if m.Kind == mairixdb.KindMbox {
		return r.Mbox(int(m.MboxIndex)).Path
	}
	return m.Path
}

func evalPath(r *mairixdb.Reader, n int, term Term) (*Bitset, error) {
	b := NewBitset(n)
	lit := term.Literal
	if term.Approx {
		m, err := matcher.New(lit, term.K, term.Anchor)
		if err != nil {
			return nil, ErrInvalidQuery
		}
		for i := 0; i < n; i++ {
			if m.Match(messagePath(r, r.Message(i))) {
				b.Set(i)
			}
		}
		return b, nil
	}
	for i := 0; i < n; i++ {
		p := messagePath(r, r.Message(i))
		if term.Anchor {
			if strings.HasPrefix(p, lit) {
				b.Set(i)
			}
		} else if strings.Contains(p, lit) {
			b.Set(i)
		}
	}
	return b, nil
}

func evalWords(r *mairixdb.Reader, n int, fields []mairixdb.TokenField, term Term) (*Bitset, error) {
	b := NewBitset(n)
	lit := strings.ToLower(term.Literal)

	if term.Approx {
		m, err := matcher.New(lit, term.K, term.Anchor)
		if err != nil {
			return nil, ErrInvalidQuery
		}
		for _, f := range fields {
			r.EachToken(f, func(text string, postings []byte) {
				if m.Match(text) {
					orPostings(b, postings)
				}
			})
		}
		return b, nil
	}

	for _, f := range fields {
		if postings, found := r.LookupExact(f, lit, false); found {
			orPostings(b, postings)
		}
	}
	return b, nil
}

func orPostings(b *Bitset, postings []byte) {
	it := mairixdb.NewPostingIterator(postings)
	for {
		idx, ok := it.Next()
		if !ok {
			break
		}
		b.Set(int(idx))
	}
}

// ExpandThreads sets every message sharing a thread id with a current hit
// (spec §4.12's post-processing step).
func ExpandThreads(r *mairixdb.Reader, hits *Bitset) *Bitset {
	n := r.NMsgs()
	want := make(map[int32]bool)
	for i := 0; i < n; i++ {
		if hits.Get(i) {
			want[r.Message(i).TID] = true
		}
	}
	out := NewBitset(n)
	for i := 0; i < n; i++ {
		m := r.Message(i)
		if m.Kind != mairixdb.KindDead && want[m.TID] {
			out.Set(i)
		}
	}
	return out
}
