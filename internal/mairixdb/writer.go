package mairixdb

import (
	"encoding/binary"
	"fmt"
	"os"
)

// charBuf accumulates the variable-length character region, tracking byte
// offsets as blocks are appended (spec §4.9).
type charBuf struct {
	buf []byte
}

func (c *charBuf) append(b []byte) int {
	off := len(c.buf)
	c.buf = append(c.buf, b...)
	return off
}

func (c *charBuf) appendString(s string) int {
	off := len(c.buf)
	c.buf = append(c.buf, s...)
	c.buf = append(c.buf, 0)
	return off
}

// Write lays out db into a fixed 40-word header plus character region and
// rewrites path in place with it (spec §4.9). The file is created or
// resized to the exact final length, mapped read-write, written, and
// fsync'd before closing. The rewrite is not atomic: the file is truncated
// first, so an interrupted Write leaves it incomplete.
func Write(db *Database, path string) (err error) {
	header := make([]uint32, headerWords)
	var chars charBuf

	n := db.TotalMessages()
	header[wEndian] = endianSentinel
	header[wNMsgs] = uint32(n)
	header[wHashKey] = db.HashKey

	// One byte per message: low nibble = kind, high bits = flags.
	typeFlags := make([]byte, n)
	for i := 0; i < n; i++ {
		m := db.Messages.At(int32(i))
		typeFlags[i] = byte(m.Kind) | m.Flags
	}
	header[wTypeFlagsOff] = uint32(chars.append(typeFlags))

	// Five parallel per-message tables.
	pathOrMbox := make([]uint32, n)
	mtimeOrStart := make([]int64, n)
	size := make([]int64, n)
	date := make([]int64, n)
	tid := make([]int32, n)
	for i := 0; i < n; i++ {
		m := db.Messages.At(int32(i))
		date[i] = m.Date
		tid[i] = m.TID
		switch m.Kind {
		case KindFile:
			mtimeOrStart[i] = m.Mtime
			size[i] = m.Size
			pathOrMbox[i] = 0 // offset into a side path blob, see below
		case KindMbox:
			pathOrMbox[i] = (uint32(m.MboxIndex) << 16) | uint32(m.MsgInMbox)
			mtimeOrStart[i] = db.Mboxen.StartOffset(m.MboxIndex, m.MsgInMbox)
			size[i] = db.Mboxen.Length(m.MboxIndex, m.MsgInMbox)
		}
	}
	// FILE paths are NUL-terminated strings in the character region; we
	// store each path's offset by overwriting pathOrMbox in place for FILE
	// entries (MBOX entries keep the packed index encoding).
	for i := 0; i < n; i++ {
		m := db.Messages.At(int32(i))
		if m.Kind == KindFile {
			pathOrMbox[i] = uint32(chars.appendString(m.Path))
		}
	}
	header[wMsgPathOrMboxOff] = uint32(chars.append(u32ToBytes(pathOrMbox)))
	header[wMsgMtimeOrStart] = uint32(chars.append(i64ToBytes(mtimeOrStart)))
	header[wMsgSize] = uint32(chars.append(i64ToBytes(size)))
	header[wMsgDate] = uint32(chars.append(i64ToBytes(date)))
	header[wMsgTID] = uint32(chars.append(i32ToBytes(tid)))

	// Mbox tables.
	nMbox := db.Mboxen.Len()
	header[wMboxCount] = uint32(nMbox)
	mboxPathOff := make([]uint32, nMbox)
	mboxNMsgs := make([]int32, nMbox)
	mboxMtime := make([]int64, nMbox)
	mboxSize := make([]int64, nMbox)
	mboxCksumOff := make([]uint32, nMbox)
	for i := 0; i < nMbox; i++ {
		mb := db.Mboxen.At(int32(i))
		mboxPathOff[i] = uint32(chars.appendString(mb.Path))
		mboxNMsgs[i] = mb.NMsgs
		mboxMtime[i] = mb.Mtime
		mboxSize[i] = mb.Size
		flat := make([]byte, len(mb.Checksum)*16)
		for j, cs := range mb.Checksum {
			copy(flat[j*16:], cs[:])
		}
		mboxCksumOff[i] = uint32(chars.append(flat))
	}
	header[wMboxPathOff] = uint32(chars.append(u32ToBytes(mboxPathOff)))
	header[wMboxNMsgs] = uint32(chars.append(i32ToBytes(mboxNMsgs)))
	header[wMboxMtime] = uint32(chars.append(i64ToBytes(mboxMtime)))
	header[wMboxSize] = uint32(chars.append(i64ToBytes(mboxSize)))
	header[wMboxCksumOff] = uint32(chars.append(u32ToBytes(mboxCksumOff)))

	// Seven token tables. Tokens are written in table (bucket) order; no
	// sort, since searchers only need exact/approximate lookup, never
	// range scans.
	layouts := tokenTableLayouts()
	for i := 0; i < int(numWordFields); i++ {
		writeTokenTable(&chars, header, layouts[i], db.Words[WordField(i)], false)
	}
	writeTokenTable(&chars, header, layouts[numWordFields], db.MsgIDs, true)

	total := headerBytes + len(chars.buf)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrIndexIO, path, err)
	}
	defer f.Close()
	if err := f.Truncate(int64(total)); err != nil {
		return fmt.Errorf("%w: truncate %s: %v", ErrIndexIO, path, err)
	}

	mapped, err := mmapFile(f, total)
	if err != nil {
		return fmt.Errorf("%w: mmap %s: %v", ErrIndexIO, path, err)
	}
	defer func() {
		if uerr := munmap(mapped); err == nil {
			err = uerr
		}
	}()

	mapped[0], mapped[1], mapped[2] = fileMagic[0], fileMagic[1], fileMagic[2]
	mapped[3] = formatVersion
	// Word 0 holds the magic bytes; words 1..39 follow it.
	for i := 1; i < headerWords; i++ {
		binary.LittleEndian.PutUint32(mapped[i*4:], header[i])
	}
	copy(mapped[headerBytes:], chars.buf)

	if serr := msync(mapped); serr != nil {
		return fmt.Errorf("%w: fsync %s: %v", ErrIndexIO, path, serr)
	}
	return nil
}

// writeTokenTable writes one table's text blob, posting blobs, and offset
// arrays, and fills in its header descriptor words.
func writeTokenTable(chars *charBuf, header []uint32, layout tokenTableLayout, tbl *TokenTable, twoChain bool) {
	n := tbl.Len()
	header[layout.nWord] = uint32(n)

	tokOffsets := make([]uint32, n)
	enc0Offsets := make([]uint32, n)
	var enc1Offsets []uint32
	if twoChain {
		enc1Offsets = make([]uint32, n)
	}

	i := 0
	tbl.Each(func(r *TokenRecord) {
		tokOffsets[i] = uint32(chars.appendString(r.Text))
		enc0Offsets[i] = uint32(chars.append(WithTerminator(r.Match0.Bytes())))
		if twoChain {
			enc1Offsets[i] = uint32(chars.append(WithTerminator(r.Match1.Bytes())))
		}
		i++
	})

	header[layout.tokOffset] = uint32(chars.append(u32ToBytes(tokOffsets)))
	header[layout.enc0Word] = uint32(chars.append(u32ToBytes(enc0Offsets)))
	if twoChain {
		header[layout.enc1Word] = uint32(chars.append(u32ToBytes(enc1Offsets)))
	}
}

func u32ToBytes(v []uint32) []byte {
	b := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(b[i*4:], x)
	}
	return b
}

func i32ToBytes(v []int32) []byte {
	b := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(b[i*4:], uint32(x))
	}
	return b
}

func i64ToBytes(v []int64) []byte {
	b := make([]byte, len(v)*8)
	for i, x := range v {
		binary.LittleEndian.PutUint64(b[i*8:], uint64(x))
	}
	return b
}
