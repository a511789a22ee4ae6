// Package tokenize walks a parsed RFC 822 tree and feeds words into the
// database's token tables (spec §4.4, C4).
package tokenize

import (
	"strings"

	"github.com/mchl/mairix/internal/mairixdb"
	"github.com/mchl/mairix/internal/rfc822"
)

// charMask selects which punctuation bytes count as word characters in
// addition to alphanumerics.
type charMask int

const (
	// maskPlain: only alphanumerics and '_' are word characters.
	maskPlain charMask = iota
	// maskAddress: alphanumerics, '_', and '+','-','.','@' (address atoms).
	maskAddress
)

func isWordByte(b byte, mask charMask) bool {
	switch {
	case b >= '0' && b <= '9', b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z':
		return true
	case b == '_':
		return true
	case mask == maskAddress && (b == '+' || b == '-' || b == '.' || b == '@'):
		return true
	default:
		return false
	}
}

// splitWords scans text for maximal runs of word bytes under mask.
func splitWords(text string, mask charMask) []string {
	var words []string
	start := -1
	for i := 0; i < len(text); i++ {
		if isWordByte(text[i], mask) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			words = append(words, text[start:i])
			start = -1
		}
	}
	if start >= 0 {
		words = append(words, text[start:])
	}
	return words
}

// stripHTMLTags removes everything from '<' to the next '>', leaving the
// rest of the text for ordinary word splitting. Unterminated tags run to
// the end of input. CDATA sections and comments are not understood,
// matching the reference tokeniser's behaviour (spec §9).
func stripHTMLTags(html string) string {
	var b strings.Builder
	i := 0
	for i < len(html) {
		lt := strings.IndexByte(html[i:], '<')
		if lt < 0 {
			b.WriteString(html[i:])
			break
		}
		b.WriteString(html[i : i+lt])
		gt := strings.IndexByte(html[i+lt:], '>')
		if gt < 0 {
			break
		}
		i = i + lt + gt + 1
	}
	return b.String()
}

// emitWords inserts every word-split token of text into tbl for message n.
func emitWords(tbl *mairixdb.TokenTable, n int32, text string, mask charMask) {
	for _, w := range splitWords(text, mask) {
		if w != "" {
			tbl.Add(n, w)
		}
	}
}

// angleBracketSubstrings extracts every "<...>" substring (angle brackets
// stripped) from a header value, as used for Message-ID/In-Reply-To/
// References (spec §4.4).
func angleBracketSubstrings(v string) []string {
	var out []string
	for {
		start := strings.IndexByte(v, '<')
		if start < 0 {
			break
		}
		end := strings.IndexByte(v[start:], '>')
		if end < 0 {
			break
		}
		out = append(out, v[start+1:start+end])
		v = v[start+end+1:]
	}
	return out
}

// Message tokenises one parsed message tree into db's tables under stable
// message index n. It is also used to recursively tokenise an embedded
// message/rfc822 attachment under the same n (spec §4.4).
func Message(db *mairixdb.Database, n int32, tree *rfc822.Tree) {
	h := tree.Headers

	for _, pair := range []struct {
		tbl  mairixdb.WordField
		text string
	}{
		{mairixdb.FieldTo, h.To},
		{mairixdb.FieldCc, h.Cc},
		{mairixdb.FieldFrom, h.From},
	} {
		if pair.text == "" {
			continue
		}
		emitWords(db.Word(pair.tbl), n, pair.text, maskPlain)
		emitWords(db.Word(pair.tbl), n, pair.text, maskAddress)
	}

	if h.Subject != "" {
		emitWords(db.Word(mairixdb.FieldSubject), n, h.Subject, maskPlain)
	}

	for _, att := range tree.Attachments {
		walkAttachment(db, n, att)
	}

	for _, v := range []string{h.MessageID, h.InReplyTo, h.References} {
		for _, id := range angleBracketSubstrings(v) {
			db.MsgIDs.Add2(n, id, false)
		}
	}
	for _, id := range angleBracketSubstrings(h.MessageID) {
		db.MsgIDs.Add2(n, id, true)
	}
}

func walkAttachment(db *mairixdb.Database, n int32, att *rfc822.Attachment) {
	switch att.ContentType {
	case rfc822.ContentTextPlain:
		emitWords(db.Word(mairixdb.FieldBody), n, string(att.Bytes), maskPlain)
	case rfc822.ContentTextHTML:
		emitWords(db.Word(mairixdb.FieldBody), n, stripHTMLTags(string(att.Bytes)), maskPlain)
	case rfc822.ContentMessageRFC822:
		if nested, err := rfc822.Parse(att.Bytes); err == nil {
			Message(db, n, nested)
		}
		for _, child := range att.Children {
			walkAttachment(db, n, child)
		}
	default:
		// other content types are ignored for body word extraction
	}

	if att.Filename != "" {
		db.Word(mairixdb.FieldAttachmentName).Add(n, att.Filename)
	}
}
