package thread

import (
	"testing"

	"github.com/mchl/mairix/internal/mairixdb"
)

func addMessages(db *mairixdb.Database, n int) {
	for i := 0; i < n; i++ {
		db.Messages.Append(mairixdb.Message{Kind: mairixdb.KindFile})
	}
}

func TestGroupLinksMessagesSharingAMsgID(t *testing.T) {
	db := mairixdb.New()
	addMessages(db, 3)

	// Messages 0 and 1 reference the same message id; message 2 is
	// unrelated.
	db.MsgIDs.Add2(0, "root@x", true)
	db.MsgIDs.Add2(1, "root@x", false)

	Group(db)

	t0 := db.Messages.At(0).TID
	t1 := db.Messages.At(1).TID
	t2 := db.Messages.At(2).TID
	if t0 != t1 {
		t.Errorf("messages 0 and 1 should share a thread id, got %d and %d", t0, t1)
	}
	if t2 == t0 {
		t.Errorf("unrelated message 2 should not share thread id %d", t0)
	}
}

func TestGroupSkipsDeadMessages(t *testing.T) {
	db := mairixdb.New()
	addMessages(db, 2)
	db.Messages.At(1).Kind = mairixdb.KindDead

	Group(db)

	// Should not panic and should still assign message 0 a valid tid.
	if db.Messages.At(0).TID != 0 {
		t.Errorf("TID = %d, want 0 for the sole live message", db.Messages.At(0).TID)
	}
}

func TestGroupAssignsDistinctIDsToUnrelatedMessages(t *testing.T) {
	db := mairixdb.New()
	addMessages(db, 2)

	Group(db)

	t0 := db.Messages.At(0).TID
	t1 := db.Messages.At(1).TID
	if t0 == t1 {
		t.Errorf("unrelated messages got the same thread id %d", t0)
	}
}

func TestGroupOnEmptyDatabase(t *testing.T) {
	db := mairixdb.New()
	Group(db) // must not panic
}

func TestGroupTransitiveChain(t *testing.T) {
	db := mairixdb.New()
	addMessages(db, 3)

	// 0<-1 via "a", 1<-2 via "b": should all end up in one thread even
	// though 0 and 2 never share a token directly.
	db.MsgIDs.Add2(0, "a@x", true)
	db.MsgIDs.Add2(1, "a@x", false)
	db.MsgIDs.Add2(1, "b@x", true)
	db.MsgIDs.Add2(2, "b@x", false)

	Group(db)

	t0 := db.Messages.At(0).TID
	t1 := db.Messages.At(1).TID
	t2 := db.Messages.At(2).TID
	if t0 != t1 || t1 != t2 {
		t.Errorf("expected all three messages in one thread, got %d %d %d", t0, t1, t2)
	}
}
