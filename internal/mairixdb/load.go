package mairixdb

import "os"

// Load reads an existing index file into a fully in-memory, mutable
// Database (spec §3 lifecycle: "loaded from a valid index file or created
// empty"). If path does not exist, a fresh empty database is returned.
func Load(path string) (*Database, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return New(), nil
	}

	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	db := newWithKey(r.HashKey())

	n := r.NMsgs()
	for i := 0; i < n; i++ {
		db.Messages.Append(r.Message(i))
	}
	nmbox := r.NMbox()
	for i := 0; i < nmbox; i++ {
		mb := r.Mbox(i)
		mb.NOldMsgsValid = mb.NMsgs
		mb.Start = make([]int64, mb.NMsgs)
		mb.Len = make([]int64, mb.NMsgs)
		db.Mboxen.Append(mb)
	}
	// The file keeps each mbox message's byte range only in the per-message
	// arrays; copy it back into the owning mbox's Start/Len.
	for i := 0; i < n; i++ {
		m := db.Messages.At(int32(i))
		if m.Kind == KindMbox && m.MsgInMbox < db.Mboxen.At(m.MboxIndex).NMsgs {
			mb := db.Mboxen.At(m.MboxIndex)
			mb.Start[m.MsgInMbox], mb.Len[m.MsgInMbox] = m.Mtime, m.Size
		}
	}

	for f := WordField(0); f < numWordFields; f++ {
		loadTokenTable(db.Words[f], r, TokenField(f), false)
	}
	loadTokenTable(db.MsgIDs, r, TFMsgIDs, true)

	return db, nil
}

func loadTokenTable(tbl *TokenTable, r *Reader, field TokenField, twoChain bool) {
	r.EachToken(field, func(text string, postings []byte) {
		hash := hashToken(tbl.hashKey, text)
		rec := TokenRecord{Text: text, Hash: hash, present: true}
		rec.Match0 = fromEncoded(postings)
		if twoChain {
			if chain1, ok := r.LookupExact(field, text, true); ok {
				rec.Match1 = fromEncoded(chain1)
			} else {
				rec.Match1 = newPostingList()
			}
		}
		if tbl.n >= tbl.hwm {
			tbl.rehash()
		}
		tbl.insertRecord(rec)
		tbl.n++
	})
}

// fromEncoded reconstructs a PostingList from an already-encoded (e.g.
// disk-read) byte stream, preserving highest() for future appends.
func fromEncoded(buf []byte) *PostingList {
	p := newPostingList()
	cp := make([]byte, len(buf))
	copy(cp, buf)
	p.buf = cp
	idx := Decode(buf)
	if len(idx) > 0 {
		p.highest = idx[len(idx)-1]
		p.empty = false
	}
	return p
}
