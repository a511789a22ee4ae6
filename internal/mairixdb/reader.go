package mairixdb

import (
	"encoding/binary"
	"fmt"
	"os"
)

// Reader exposes zero-copy accessors over a memory-mapped index file
// (spec §4.10). No data is copied at Open time.
type Reader struct {
	f      *os.File
	data   []byte
	header []uint32
	chars  []byte
}

// Open validates magic/endianness/offsets and maps path read-only.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrIndexIO, path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: stat %s: %v", ErrIndexIO, path, err)
	}
	size := int(info.Size())
	if size < headerBytes {
		f.Close()
		return nil, fmt.Errorf("%w: %s too small for header", ErrCorruptDatabase, path)
	}

	data, err := mmapFileReadOnly(f, size)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: mmap %s: %v", ErrIndexIO, path, err)
	}

	if data[0] != fileMagic[0] || data[1] != fileMagic[1] || data[2] != fileMagic[2] {
		munmap(data)
		f.Close()
		return nil, fmt.Errorf("%w: bad magic in %s", ErrCorruptDatabase, path)
	}
	if data[3] != formatVersion {
		munmap(data)
		f.Close()
		return nil, fmt.Errorf("%w: unsupported version %d in %s", ErrCorruptDatabase, data[3], path)
	}

	header := make([]uint32, headerWords)
	for i := 1; i < headerWords; i++ {
		header[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	if header[wEndian] != endianSentinel {
		munmap(data)
		f.Close()
		return nil, fmt.Errorf("%w: foreign-endian file %s", ErrCorruptDatabase, path)
	}

	r := &Reader{f: f, data: data, header: header, chars: data[headerBytes:]}
	if err := r.validateOffsets(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) validateOffsets() error {
	check := func(off uint32) error {
		if int(off) > len(r.chars) {
			return fmt.Errorf("%w: offset %d outside file", ErrCorruptDatabase, off)
		}
		return nil
	}
	for _, w := range []int{wTypeFlagsOff, wMsgPathOrMboxOff, wMsgMtimeOrStart, wMsgSize, wMsgDate, wMsgTID,
		wMboxPathOff, wMboxNMsgs, wMboxMtime, wMboxSize, wMboxCksumOff} {
		if err := check(r.header[w]); err != nil {
			return err
		}
	}
	for _, l := range tokenTableLayouts() {
		if err := check(r.header[l.tokOffset]); err != nil {
			return err
		}
		if err := check(r.header[l.enc0Word]); err != nil {
			return err
		}
		if l.enc1Word != -1 {
			if err := check(r.header[l.enc1Word]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close unmaps the file.
func (r *Reader) Close() error {
	if err := munmap(r.data); err != nil {
		r.f.Close()
		return err
	}
	return r.f.Close()
}

// NMsgs is the header's n_msgs word.
func (r *Reader) NMsgs() int { return int(r.header[wNMsgs]) }

// HashKey returns the hash_key stored in the file (spec §8 property 4).
func (r *Reader) HashKey() uint32 { return r.header[wHashKey] }

func (r *Reader) cstring(off uint32) string {
	buf := r.chars[off:]
	n := 0
	for n < len(buf) && buf[n] != 0 {
		n++
	}
	return string(buf[:n])
}

func (r *Reader) u32Slice(off uint32, n int) []uint32 {
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		out[i] = binary.LittleEndian.Uint32(r.chars[int(off)+i*4:])
	}
	return out
}

func (r *Reader) i32Slice(off uint32, n int) []int32 {
	out := make([]int32, n)
	for i := 0; i < n; i++ {
		out[i] = int32(binary.LittleEndian.Uint32(r.chars[int(off)+i*4:]))
	}
	return out
}

func (r *Reader) i64Slice(off uint32, n int) []int64 {
	out := make([]int64, n)
	for i := 0; i < n; i++ {
		out[i] = int64(binary.LittleEndian.Uint64(r.chars[int(off)+i*8:]))
	}
	return out
}

// postingBytes returns the raw (terminator-included) posting-list bytes
// starting at off within the character region.
func (r *Reader) postingBytes(off uint32) []byte {
	buf := r.chars[off:]
	n := 0
	for n < len(buf) && buf[n] != postingTerminator {
		_, consumed, ok := decodeDelta(buf, n)
		if !ok {
			break
		}
		n += consumed
	}
	return buf[:n]
}

// Message reconstructs message i's type/flags/date/tid and variant-specific
// fields directly from the mapped arrays, without copying the whole table.
func (r *Reader) Message(i int) Message {
	typeFlags := r.chars[r.header[wTypeFlagsOff]+uint32(i)]
	pathOrMbox := binary.LittleEndian.Uint32(r.chars[int(r.header[wMsgPathOrMboxOff])+i*4:])
	mtimeOrStart := int64(binary.LittleEndian.Uint64(r.chars[int(r.header[wMsgMtimeOrStart])+i*8:]))
	size := int64(binary.LittleEndian.Uint64(r.chars[int(r.header[wMsgSize])+i*8:]))
	date := int64(binary.LittleEndian.Uint64(r.chars[int(r.header[wMsgDate])+i*8:]))
	tid := int32(binary.LittleEndian.Uint32(r.chars[int(r.header[wMsgTID])+i*4:]))

	m := Message{
		Kind:  MessageKind(typeFlags & 0x07),
		Flags: typeFlags &^ 0x07,
		Date:  date,
		TID:   tid,
		Mtime: mtimeOrStart, // FILE: mtime; MBOX: byte start offset
		Size:  size,         // FILE: size; MBOX: byte length
	}
	switch m.Kind {
	case KindFile:
		m.Path = r.cstring(pathOrMbox)
	case KindMbox:
		m.MboxIndex = int32(pathOrMbox >> 16)
		m.MsgInMbox = int32(pathOrMbox & 0xFFFF)
	}
	return m
}

// NMbox is the header's mbox count.
func (r *Reader) NMbox() int { return int(r.header[wMboxCount]) }

// Mbox reconstructs mbox descriptor i, including its flattened checksum
// array sliced back into [16]byte entries.
func (r *Reader) Mbox(i int) Mbox {
	n := r.NMbox()
	pathOff := r.u32Slice(r.header[wMboxPathOff], n)[i]
	nmsgs := r.i32Slice(r.header[wMboxNMsgs], n)[i]
	mtime := r.i64Slice(r.header[wMboxMtime], n)[i]
	size := r.i64Slice(r.header[wMboxSize], n)[i]
	cksumOff := r.u32Slice(r.header[wMboxCksumOff], n)[i]

	mb := Mbox{Path: r.cstring(pathOff), Mtime: mtime, Size: size, NMsgs: nmsgs}
	flat := r.chars[cksumOff : int(cksumOff)+int(nmsgs)*16]
	mb.Checksum = make([][16]byte, nmsgs)
	for j := 0; j < int(nmsgs); j++ {
		copy(mb.Checksum[j][:], flat[j*16:])
	}
	return mb
}

// TokenField identifies which of the seven tables to query.
type TokenField int

const (
	TFTo TokenField = iota
	TFCc
	TFFrom
	TFSubject
	TFBody
	TFAttachmentName
	TFMsgIDs
)

// LookupExact returns the raw posting-list bytes (chain 0, or chain 1 for
// msg_ids when chain1 is true) for an exact lowercased token, or found=false.
func (r *Reader) LookupExact(field TokenField, text string, chain1 bool) (postings []byte, found bool) {
	layouts := tokenTableLayouts()
	l := layouts[field]
	n := int(r.header[l.nWord])
	tokOffsets := r.u32Slice(r.header[l.tokOffset], n)
	for i := 0; i < n; i++ {
		if r.cstring(tokOffsets[i]) == text {
			encWord := l.enc0Word
			if chain1 && l.enc1Word != -1 {
				encWord = l.enc1Word
			}
			encOffsets := r.u32Slice(r.header[encWord], n)
			return r.postingBytes(encOffsets[i]), true
		}
	}
	return nil, false
}

// EachToken iterates every (text, postings) pair of one table, for the
// approximate matcher's full scan.
func (r *Reader) EachToken(field TokenField, fn func(text string, postings []byte)) {
	layouts := tokenTableLayouts()
	l := layouts[field]
	n := int(r.header[l.nWord])
	tokOffsets := r.u32Slice(r.header[l.tokOffset], n)
	encOffsets := r.u32Slice(r.header[l.enc0Word], n)
	for i := 0; i < n; i++ {
		fn(r.cstring(tokOffsets[i]), r.postingBytes(encOffsets[i]))
	}
}
