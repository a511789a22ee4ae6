package mairixdb

// On-disk layout constants (spec §6). The file is a fixed 40-word (160
// byte) header followed by a variable-length character region addressed
// by byte offsets stored in the header.

const (
	headerWords = 40
	headerBytes = headerWords * 4
)

// Magic bytes: 'M','X', 0xA5, and a version byte. A mismatch on the
// version byte is a hard CorruptDatabase error (different schema).
var fileMagic = [3]byte{'M', 'X', 0xA5}

const formatVersion = 0x03

// endianSentinel is written verbatim by the host writing the file; a
// reversed value on read indicates a foreign-endian file and is rejected.
const endianSentinel uint32 = 0x44332211

// Word indices within the 40-word header.
const (
	wEndian       = 1
	wNMsgs        = 2
	wTypeFlagsOff = 3

	wMsgPathOrMboxOff = 4
	wMsgMtimeOrStart  = 5
	wMsgSize          = 6
	wMsgDate          = 7
	wMsgTID           = 8

	wMboxCount    = 9
	wMboxPathOff  = 10
	wMboxNMsgs    = 11
	wMboxMtime    = 12
	wMboxSize     = 13
	wMboxCksumOff = 14

	wHashKey = 15

	// Seven token-table descriptors start at word 16. Six plain-word
	// tables use a triple (n, tokOffsets, encOffsets); msg_ids uses a
	// quadruple (n, tokOffsets, enc0Offsets, enc1Offsets).
	wTokenTablesStart = 16
)

// tokenTableLayout describes where one table's descriptor words live.
type tokenTableLayout struct {
	nWord     int
	tokOffset int
	enc0Word  int
	enc1Word  int // -1 for single-chain tables
}

// tokenTableLayouts returns the seven tables' descriptor positions (the
// last, msg_ids, with two chains), consuming words 16..37 inclusive.
func tokenTableLayouts() []tokenTableLayout {
	w := wTokenTablesStart
	var layouts []tokenTableLayout
	for i := 0; i < int(numWordFields); i++ {
		layouts = append(layouts, tokenTableLayout{nWord: w, tokOffset: w + 1, enc0Word: w + 2, enc1Word: -1})
		w += 3
	}
	// msg_ids: quadruple
	layouts = append(layouts, tokenTableLayout{nWord: w, tokOffset: w + 1, enc0Word: w + 2, enc1Word: w + 3})
	w += 4
	return layouts
}
