// Package rfc822 is the external RFC 822 / MIME parser collaborator
// pinned by spec §6: given raw message bytes it returns a header struct
// and an attachment tree, or a named error. This is the concrete
// implementation behind that pinned interface, built on
// github.com/jhillyerd/enmime, the MIME library the teacher repo already
// carries in its dependency stack.
package rfc822

import (
	"errors"
	"io"
	"net/textproto"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"
)

// Named errors, per spec §6's external collaborator contract.
var (
	ErrBadHeaders            = errors.New("rfc822: malformed headers")
	ErrMultipartSansBoundary = errors.New("rfc822: multipart without boundary")
	ErrBadAttachment         = errors.New("rfc822: malformed attachment")
	ErrMissingEnd            = errors.New("rfc822: message truncated")
)

// ContentType classifies an attachment node for the tokeniser (spec §4.4).
type ContentType int

const (
	ContentOther ContentType = iota
	ContentTextPlain
	ContentTextHTML
	ContentMessageRFC822
)

// Headers holds the header fields the tokeniser and evaluator need.
type Headers struct {
	To         string // To and Cc are combined when the header repeats
	Cc         string
	From       string
	Subject    string
	MessageID  string
	InReplyTo  string
	References string
	Date       int64 // seconds since epoch; 0 if unparseable/absent
	Seen       bool
	Replied    bool
	Flagged    bool
}

// Attachment is one node of the MIME tree.
type Attachment struct {
	ContentType ContentType
	Filename    string
	Bytes       []byte
	Children    []*Attachment // populated for ContentMessageRFC822
}

// Tree is the parsed-message result: headers plus the root of the
// attachment tree.
type Tree struct {
	Headers     Headers
	Attachments []*Attachment
}

// Parse parses raw RFC 822 message bytes in permissive mode: a malformed
// sub-part is dropped rather than aborting the whole message, matching
// spec §4.5's "errors in a single message do not abort the batch" policy.
func Parse(raw []byte) (*Tree, error) {
	env, err := enmime.ReadEnvelope(strings.NewReader(string(raw)))
	if err != nil {
		return nil, ErrBadHeaders
	}

	t := &Tree{}
	t.Headers.To = strings.Join(headerValues(env.Header, "To"), ", ")
	t.Headers.Cc = strings.Join(headerValues(env.Header, "Cc"), ", ")
	t.Headers.From = env.GetHeader("From")
	t.Headers.Subject = env.GetHeader("Subject")
	t.Headers.MessageID = env.GetHeader("Message-Id")
	t.Headers.InReplyTo = env.GetHeader("In-Reply-To")
	t.Headers.References = env.GetHeader("References")
	if d, derr := env.Date(); derr == nil {
		t.Headers.Date = d.Unix()
	} else if d2, ok := parseDateHeader(env.GetHeader("Date")); ok {
		t.Headers.Date = d2.Unix()
	}
	status := env.GetHeader("Status") + env.GetHeader("X-Status")
	t.Headers.Seen = strings.ContainsRune(status, 'R') || strings.ContainsRune(status, 'O')
	t.Headers.Replied = strings.ContainsRune(status, 'A')
	t.Headers.Flagged = strings.ContainsRune(status, 'F')

	t.Attachments = append(t.Attachments, attachmentsFromEnvelope(env)...)
	return t, nil
}

func headerValues(h textproto.MIMEHeader, name string) []string {
	return h[textproto.CanonicalMIMEHeaderKey(name)]
}

func attachmentsFromEnvelope(env *enmime.Envelope) []*Attachment {
	var out []*Attachment
	if env.Text != "" {
		out = append(out, &Attachment{ContentType: ContentTextPlain, Bytes: []byte(env.Text)})
	}
	if env.HTML != "" {
		out = append(out, &Attachment{ContentType: ContentTextHTML, Bytes: []byte(env.HTML)})
	}
	for _, a := range env.Attachments {
		out = append(out, attachmentFromPart(a))
	}
	for _, a := range env.Inlines {
		out = append(out, attachmentFromPart(a))
	}
	for _, a := range env.OtherParts {
		out = append(out, attachmentFromPart(a))
	}
	return out
}

func attachmentFromPart(p *enmime.Part) *Attachment {
	ct := ContentOther
	if strings.HasPrefix(p.ContentType, "message/rfc822") {
		ct = ContentMessageRFC822
	}
	att := &Attachment{ContentType: ct, Filename: p.FileName, Bytes: p.Content}
	if ct == ContentMessageRFC822 && len(p.Content) > 0 {
		if nested, err := Parse(p.Content); err == nil {
			att.Children = nested.Attachments
		}
	}
	return att
}

func parseDateHeader(v string) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC1123Z, v); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC1123, v); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// ParseReader is a convenience wrapper for streaming sources (mbox mmap
// slices, file-per-message readers).
func ParseReader(r io.Reader) (*Tree, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, ErrMissingEnd
	}
	return Parse(b)
}
