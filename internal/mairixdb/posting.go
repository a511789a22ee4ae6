package mairixdb

// Package-level encoding of ascending message-index posting lists.
//
// A posting list is the delta-encoded byte stream of a strictly ascending
// sequence of message indices: deltas[0] = idx[0], deltas[i] = idx[i] -
// idx[i-1] for i > 0. On disk the stream is terminated by the reserved byte
// 0xFF, which never appears as the lead byte of an encoded delta.

const postingTerminator = 0xFF

// encodeDelta appends the varint encoding of a non-negative increment v to
// buf and returns the extended slice.
//
//   v <= 0x7F:        1 byte,  v
//   v <= 0x3FFF:      2 bytes, 0x80|(v>>8), v&0xFF
//   v <= 0x3FFFFFFF:  4 bytes, 0xC0|(v>>24), (v>>16)&0xFF, (v>>8)&0xFF, v&0xFF
func encodeDelta(buf []byte, v uint32) []byte {
	switch {
	case v <= 0x7F:
		return append(buf, byte(v))
	case v <= 0x3FFF:
		return append(buf, byte(0x80|(v>>8)), byte(v&0xFF))
	case v <= 0x3FFFFFFF:
		return append(buf,
			byte(0xC0|(v>>24)),
			byte((v>>16)&0xFF),
			byte((v>>8)&0xFF),
			byte(v&0xFF))
	default:
		panic("mairixdb: posting delta out of range")
	}
}

// decodeDelta reads one increment from buf starting at offset off and
// returns the value and the number of bytes consumed. It returns ok=false
// when the byte at off is the terminator.
func decodeDelta(buf []byte, off int) (v uint32, n int, ok bool) {
	b0 := buf[off]
	if b0 == postingTerminator {
		return 0, 0, false
	}
	switch {
	case b0&0x80 == 0:
		return uint32(b0), 1, true
	case b0&0xC0 == 0x80:
		return uint32(b0&0x3F)<<8 | uint32(buf[off+1]), 2, true
	default:
		return uint32(b0&0x3F)<<24 | uint32(buf[off+1])<<16 | uint32(buf[off+2])<<8 | uint32(buf[off+3]), 4, true
	}
}

// PostingList is a growable, delta-encoded sequence of strictly ascending
// message indices. Lists are created with newPostingList; the zero value is
// not marked empty (its highest is 0, so index 0 cannot be added to it).
type PostingList struct {
	buf     []byte
	highest int32
	empty   bool
}

// newPostingList allocates a list with its initial 16-byte capacity.
func newPostingList() *PostingList {
	return &PostingList{buf: make([]byte, 0, 16), highest: -1, empty: true}
}

// Highest returns the greatest index currently encoded, or -1 if empty.
func (p *PostingList) Highest() int32 {
	if p == nil {
		return -1
	}
	return p.highest
}

// Add appends idx to the list. A no-op if idx is not strictly greater than
// the current highest (duplicate occurrence within the same message).
func (p *PostingList) Add(idx int32) {
	if !p.empty && idx <= p.highest {
		return
	}
	var delta uint32
	if p.empty {
		delta = uint32(idx)
	} else {
		delta = uint32(idx - p.highest)
	}
	if cap(p.buf)-len(p.buf) < 4 {
		grown := make([]byte, len(p.buf), int(float64(cap(p.buf))*1.5)+4)
		copy(grown, p.buf)
		p.buf = grown
	}
	p.buf = encodeDelta(p.buf, delta)
	p.highest = idx
	p.empty = false
}

// Bytes returns the raw in-memory encoding, without a terminator.
func (p *PostingList) Bytes() []byte {
	if p == nil {
		return nil
	}
	return p.buf
}

// IsEmpty reports whether the list holds no entries.
func (p *PostingList) IsEmpty() bool {
	return p == nil || p.empty
}

// Decode expands a posting-list byte slice (terminator optional) into the
// ascending sequence of message indices it encodes.
func Decode(buf []byte) []int32 {
	var out []int32
	var prev int32 = -1
	off := 0
	for off < len(buf) {
		delta, n, ok := decodeDelta(buf, off)
		if !ok {
			break
		}
		cur := prev + int32(delta)
		if prev == -1 {
			cur = int32(delta)
		}
		out = append(out, cur)
		prev = cur
		off += n
	}
	return out
}

// EncodeIndices encodes an already-ascending slice of indices from scratch,
// used by the writer and by cull/recode when rebuilding a list.
func EncodeIndices(idx []int32) []byte {
	buf := make([]byte, 0, len(idx)*2)
	var prev int32 = -1
	for i, v := range idx {
		var delta uint32
		if i == 0 {
			delta = uint32(v)
		} else {
			delta = uint32(v - prev)
		}
		buf = encodeDelta(buf, delta)
		prev = v
	}
	return buf
}

// WithTerminator returns buf with the 0xFF terminator appended, as written
// to disk.
func WithTerminator(buf []byte) []byte {
	out := make([]byte, len(buf)+1)
	copy(out, buf)
	out[len(buf)] = postingTerminator
	return out
}

// PostingIterator walks a raw (possibly disk-mapped) posting-list byte
// slice without allocating the full decoded slice; used by the query
// evaluator to OR-merge large lists directly into a hit bitmap.
type PostingIterator struct {
	buf  []byte
	off  int
	prev int32
	init bool
}

// NewPostingIterator wraps buf (terminator optional) for streaming decode.
func NewPostingIterator(buf []byte) *PostingIterator {
	return &PostingIterator{buf: buf, prev: -1}
}

// Next returns the next index and true, or ok=false at end of list.
func (it *PostingIterator) Next() (int32, bool) {
	if it.off >= len(it.buf) {
		return 0, false
	}
	delta, n, ok := decodeDelta(it.buf, it.off)
	if !ok {
		return 0, false
	}
	it.off += n
	if !it.init {
		it.prev = int32(delta)
		it.init = true
		return it.prev, true
	}
	it.prev += int32(delta)
	return it.prev, true
}
