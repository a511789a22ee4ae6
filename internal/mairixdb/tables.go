package mairixdb

// Message and mbox tables (C3): ordered, append-only arrays whose index is
// the stable identifier used throughout posting lists.

// MessageKind is the message variant tag.
type MessageKind uint8

const (
	KindDead MessageKind = iota
	KindFile
	KindMbox
)

// Flag bits, matching the on-disk high-nibble layout in spec §6.
const (
	FlagSeen    uint8 = 0x08
	FlagReplied uint8 = 0x10
	FlagFlagged uint8 = 0x20
)

// Message is one entry in the message array. Fields not applicable to the
// entry's Kind are left zero.
type Message struct {
	Kind  MessageKind
	Date  int64 // seconds since epoch, 0 if unparseable
	TID   int32 // thread id, assigned by the thread grouper
	Flags uint8

	// Mtime and Size double as the MBOX byte start-offset and length: the
	// on-disk mtime-or-start / size-or-len tables (spec §6) hold one pair
	// per message regardless of kind, so the reader always fills both.
	Path  string // FILE-only
	Mtime int64
	Size  int64

	// MBOX-only
	MboxIndex int32
	MsgInMbox int32
}

// Seen, Replied, Flagged expose the flag bits as booleans.
func (m *Message) Seen() bool    { return m.Flags&FlagSeen != 0 }
func (m *Message) Replied() bool { return m.Flags&FlagReplied != 0 }
func (m *Message) Flagged() bool { return m.Flags&FlagFlagged != 0 }

func (m *Message) SetFlag(f uint8, v bool) {
	if v {
		m.Flags |= f
	} else {
		m.Flags &^= f
	}
}

// Mbox is one entry in the mbox array. An empty Path marks it dead; Start/Len/
// Checksum are freed (set nil) at that point but the slot index is kept
// stable until the next cull.
type Mbox struct {
	Path  string // "" means dead
	Mtime int64
	Size  int64

	Start    []int64
	Len      []int64
	Checksum [][16]byte

	NMsgs int32

	// NOldMsgsValid is transient reconciliation state (§4.5); never
	// serialised.
	NOldMsgsValid int32
}

// MessageTable is the geometric-growth array backing the message index
// space.
type MessageTable struct {
	items []Message
}

const minMessageGrowthStep = 256

func growSlice[T any](cur []T, need int, minStep int) []T {
	if cap(cur) >= need {
		return cur
	}
	newCap := int(float64(cap(cur)) * 1.5)
	if newCap < cap(cur)+minStep {
		newCap = cap(cur) + minStep
	}
	if newCap < need {
		newCap = need
	}
	grown := make([]T, len(cur), newCap)
	copy(grown, cur)
	return grown
}

// Append adds msg and returns its new stable index.
func (t *MessageTable) Append(msg Message) int32 {
	t.items = growSlice(t.items, len(t.items)+1, minMessageGrowthStep)
	t.items = append(t.items, msg)
	return int32(len(t.items) - 1)
}

func (t *MessageTable) Len() int            { return len(t.items) }
func (t *MessageTable) At(i int32) *Message { return &t.items[i] }
func (t *MessageTable) All() []Message      { return t.items }

// MboxTable is the geometric-growth array of mbox descriptors.
type MboxTable struct {
	items []Mbox
}

const minMboxGrowthStep = 16

// Append adds mb and returns its new stable index.
func (t *MboxTable) Append(mb Mbox) int32 {
	t.items = growSlice(t.items, len(t.items)+1, minMboxGrowthStep)
	t.items = append(t.items, mb)
	return int32(len(t.items) - 1)
}

func (t *MboxTable) Len() int         { return len(t.items) }
func (t *MboxTable) At(i int32) *Mbox { return &t.items[i] }
func (t *MboxTable) All() []Mbox      { return t.items }

// StartOffset and Length derive a MBOX message's byte range from its
// owning mbox's parallel arrays, per spec §3's Message invariant.
func (t *MboxTable) StartOffset(mboxIdx, msgInMbox int32) int64 {
	return t.items[mboxIdx].Start[msgInMbox]
}

func (t *MboxTable) Length(mboxIdx, msgInMbox int32) int64 {
	return t.items[mboxIdx].Len[msgInMbox]
}
