package rfc822

import (
	"strings"
	"testing"

	"github.com/mchl/mairix/internal/testutil/email"
)

func TestParseBasicHeaders(t *testing.T) {
	raw := "From: alice@example.com\r\n" +
		"To: bob@example.com\r\n" +
		"Cc: carol@example.com\r\n" +
		"Subject: hello world\r\n" +
		"Message-Id: <abc@example.com>\r\n" +
		"Date: Mon, 1 Jan 2024 00:00:00 +0000\r\n" +
		"\r\n" +
		"body text\r\n"

	tree, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tree.Headers.From != "alice@example.com" {
		t.Errorf("From = %q", tree.Headers.From)
	}
	if tree.Headers.To != "bob@example.com" {
		t.Errorf("To = %q", tree.Headers.To)
	}
	if tree.Headers.Subject != "hello world" {
		t.Errorf("Subject = %q", tree.Headers.Subject)
	}
	if tree.Headers.MessageID != "<abc@example.com>" {
		t.Errorf("MessageID = %q", tree.Headers.MessageID)
	}
	if tree.Headers.Date == 0 {
		t.Error("Date should have been parsed")
	}
}

func TestParseMultipleToHeadersAreJoined(t *testing.T) {
	raw := "From: a@x\r\nTo: b@x\r\nTo: c@x\r\nSubject: s\r\n\r\nbody\r\n"
	tree, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !strings.Contains(tree.Headers.To, "b@x") || !strings.Contains(tree.Headers.To, "c@x") {
		t.Errorf("To = %q, want both addresses joined", tree.Headers.To)
	}
}

func TestParseStatusHeaderMapsToFlags(t *testing.T) {
	raw := "From: a@x\r\nTo: b@x\r\nSubject: s\r\nStatus: RO\r\nX-Status: A\r\n\r\nbody\r\n"
	tree, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !tree.Headers.Seen {
		t.Error("Status: RO should set Seen")
	}
	if !tree.Headers.Replied {
		t.Error("X-Status: A should set Replied")
	}
	if tree.Headers.Flagged {
		t.Error("Flagged should not be set")
	}
}

func TestParseTextAndHTMLBodyAttachments(t *testing.T) {
	raw := "From: a@x\r\nTo: b@x\r\nSubject: s\r\nContent-Type: text/plain\r\n\r\nhello body\r\n"
	tree, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	found := false
	for _, a := range tree.Attachments {
		if a.ContentType == ContentTextPlain && strings.Contains(string(a.Bytes), "hello body") {
			found = true
		}
	}
	if !found {
		t.Error("expected a ContentTextPlain attachment with the body text")
	}
}

func TestParseMultipartWithAttachment(t *testing.T) {
	raw := email.NewMessage().
		Subject("quarterly numbers").
		Body("see attached").
		WithAttachment("figures.csv", "text/csv", []byte("a,b,c\n1,2,3\n")).
		Bytes()

	tree, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tree.Headers.Subject != "quarterly numbers" {
		t.Errorf("Subject = %q", tree.Headers.Subject)
	}

	var attach *Attachment
	for _, a := range tree.Attachments {
		if a.Filename == "figures.csv" {
			attach = a
		}
	}
	if attach == nil {
		t.Fatal("expected an attachment named figures.csv")
	}
	if !strings.Contains(string(attach.Bytes), "1,2,3") {
		t.Errorf("attachment bytes = %q, want decoded CSV content", attach.Bytes)
	}
}

func TestParseReaderWrapsParse(t *testing.T) {
	raw := "From: a@x\r\nTo: b@x\r\nSubject: s\r\n\r\nbody\r\n"
	tree, err := ParseReader(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("ParseReader: %v", err)
	}
	if tree.Headers.From != "a@x" {
		t.Errorf("From = %q", tree.Headers.From)
	}
}
