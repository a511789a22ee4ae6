package mairixdb

import (
	"path/filepath"
	"testing"
)

// buildSample constructs a small in-memory database exercising both
// message kinds, a mbox with one message, and entries in several tables.
func buildSample() *Database {
	db := New()
	db.Messages.Append(Message{Kind: KindFile, Path: "/m/1", Mtime: 100, Size: 20, Date: 1000, Flags: FlagSeen})
	db.Messages.Append(Message{Kind: KindMbox, MboxIndex: 0, MsgInMbox: 0, Mtime: 0, Size: 30, Date: 2000})
	db.Messages.Append(Message{Kind: KindDead})

	db.Mboxen.Append(Mbox{
		Path:     "/m/box1",
		Mtime:    500,
		Size:     1000,
		Start:    []int64{0},
		Len:      []int64{30},
		Checksum: [][16]byte{{1, 2, 3}},
		NMsgs:    1,
	})

	db.Words[FieldSubject].Add(0, "hello")
	db.Words[FieldSubject].Add(1, "hello")
	db.Words[FieldFrom].Add(0, "alice")
	db.MsgIDs.Add2(0, "a@x", true)
	db.MsgIDs.Add2(1, "a@x", false)

	return db
}

func TestWriteOpenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index")
	db := buildSample()
	if err := Write(db, path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if r.NMsgs() != 3 {
		t.Fatalf("NMsgs() = %d, want 3", r.NMsgs())
	}
	if r.HashKey() != db.HashKey {
		t.Fatalf("HashKey() = %#x, want %#x", r.HashKey(), db.HashKey)
	}

	m0 := r.Message(0)
	if m0.Kind != KindFile || m0.Path != "/m/1" || m0.Mtime != 100 || m0.Size != 20 || m0.Date != 1000 {
		t.Fatalf("Message(0) = %+v", m0)
	}
	if !m0.Seen() {
		t.Fatal("Message(0) should carry the Seen flag")
	}

	m1 := r.Message(1)
	if m1.Kind != KindMbox || m1.MboxIndex != 0 || m1.MsgInMbox != 0 || m1.Mtime != 0 || m1.Size != 30 {
		t.Fatalf("Message(1) = %+v", m1)
	}

	m2 := r.Message(2)
	if m2.Kind != KindDead {
		t.Fatalf("Message(2).Kind = %v, want KindDead", m2.Kind)
	}

	if r.NMbox() != 1 {
		t.Fatalf("NMbox() = %d, want 1", r.NMbox())
	}
	mb := r.Mbox(0)
	if mb.Path != "/m/box1" || mb.NMsgs != 1 {
		t.Fatalf("Mbox(0) = %+v", mb)
	}

	postings, found := r.LookupExact(TFSubject, "hello", false)
	if !found {
		t.Fatal("LookupExact(subject, hello) not found")
	}
	if got := Decode(postings); len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Fatalf("subject postings = %v, want [0 1]", got)
	}

	chain1, found := r.LookupExact(TFMsgIDs, "a@x", true)
	if !found {
		t.Fatal("LookupExact(msgids, a@x, chain1) not found")
	}
	if got := Decode(chain1); len(got) != 1 || got[0] != 0 {
		t.Fatalf("msgids chain1 = %v, want [0]", got)
	}
}

func TestLoadRebuildsMutableDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index")
	db := buildSample()
	if err := Write(db, path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reloaded.HashKey != db.HashKey {
		t.Fatalf("HashKey = %#x, want %#x", reloaded.HashKey, db.HashKey)
	}
	if reloaded.TotalMessages() != 3 {
		t.Fatalf("TotalMessages() = %d, want 3", reloaded.TotalMessages())
	}
	if rec, found := reloaded.Words[FieldSubject].Lookup("hello"); !found || Decode(rec.Match0.Bytes())[1] != 1 {
		t.Fatalf("reloaded subject table missing hello postings")
	}
	if err := reloaded.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants: %v", err)
	}
}

func TestLoadMissingPathReturnsEmptyDatabase(t *testing.T) {
	db, err := Load(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if db.TotalMessages() != 0 {
		t.Fatalf("TotalMessages() = %d, want 0", db.TotalMessages())
	}
}
