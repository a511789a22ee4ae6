package matcher

import "testing"

func TestMatchExact(t *testing.T) {
	m, err := New("hello", 0, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !m.Match("say hello there") {
		t.Error("expected exact substring match")
	}
	if m.Match("say hallo there") {
		t.Error("did not expect a match with k=0 and a substitution")
	}
}

func TestMatchWithSubstitution(t *testing.T) {
	m, err := New("hello", 1, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !m.Match("say hallo there") {
		t.Error("expected one-substitution match within k=1")
	}
	if m.Match("say xyzzy there") {
		t.Error("did not expect a match requiring more than k errors")
	}
}

func TestMatchWithInsertionAndDeletion(t *testing.T) {
	m, err := New("hello", 1, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !m.Match("say helllo there") { // insertion
		t.Error("expected match tolerating one insertion")
	}
	if !m.Match("say helo there") { // deletion
		t.Error("expected match tolerating one deletion")
	}
}

func TestMatchLeftAnchored(t *testing.T) {
	m, err := New("foo", 0, true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !m.Match("foobar") {
		t.Error("expected anchored match at start of text")
	}
	if m.Match("barfoo") {
		t.Error("anchored pattern should not match mid-string")
	}
}

func TestNewRejectsOverlongPattern(t *testing.T) {
	long := make([]byte, MaxPatternLen+1)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := New(string(long), 0, false); err != ErrPatternTooLong {
		t.Fatalf("New with %d-byte pattern: err = %v, want ErrPatternTooLong", len(long), err)
	}
}

func TestNewAcceptsMaxLengthPattern(t *testing.T) {
	max := make([]byte, MaxPatternLen)
	for i := range max {
		max[i] = 'b'
	}
	if _, err := New(string(max), 0, false); err != nil {
		t.Fatalf("New at MaxPatternLen: %v", err)
	}
}

func TestMatchEmptyPattern(t *testing.T) {
	m, err := New("", 0, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !m.Match("anything") {
		t.Error("empty pattern should match any text")
	}
}
