package mairixdb

// CullDeadMessages rebuilds db without DEAD entries (C8, spec §4.8):
// message/mbox indices are compacted, every posting list is re-encoded
// against the new indices (dropping references to culled messages), and
// token records left with an empty list are removed. The open-addressing
// gap-closing pass then restores full reachability of every surviving
// token under linear probing.
func CullDeadMessages(db *Database) {
	n := db.TotalMessages()
	newIdx := make([]int32, n)
	next := int32(0)
	for i := 0; i < n; i++ {
		if db.Messages.At(int32(i)).Kind == KindDead {
			newIdx[i] = -1
			continue
		}
		newIdx[i] = next
		next++
	}

	for f := range db.Words {
		recodeTable(db.Words[f], newIdx)
	}
	recodeTable(db.MsgIDs, newIdx)

	compactMessages(db, newIdx)
	compactMboxen(db)
}

// recodeTable decodes every posting list, drops culled indices, re-encodes
// against newIdx, removes tokens left with no postings, then closes gaps
// in the open-addressed bucket array.
func recodeTable(tbl *TokenTable, newIdx []int32) {
	removed := make([]int, 0)
	for i := range tbl.buckets {
		b := &tbl.buckets[i]
		if !b.present {
			continue
		}
		b.Match0 = recodePostingList(b.Match0, newIdx)
		if tbl.twoChain {
			b.Match1 = recodePostingList(b.Match1, newIdx)
		}
		emptyMatch0 := b.Match0 == nil || b.Match0.IsEmpty()
		emptyMatch1 := !tbl.twoChain || b.Match1 == nil || b.Match1.IsEmpty()
		if emptyMatch0 && emptyMatch1 {
			removed = append(removed, i)
		}
	}
	for _, i := range removed {
		tbl.buckets[i] = TokenRecord{}
		tbl.n--
	}
	closeGaps(tbl)
}

func recodePostingList(p *PostingList, newIdx []int32) *PostingList {
	if p == nil || p.IsEmpty() {
		return newPostingList()
	}
	old := Decode(p.Bytes())
	var kept []int32
	for _, idx := range old {
		if int(idx) < len(newIdx) && newIdx[idx] >= 0 {
			kept = append(kept, newIdx[idx])
		}
	}
	np := newPostingList()
	if len(kept) > 0 {
		np.buf = EncodeIndices(kept)
		np.highest = kept[len(kept)-1]
		np.empty = false
	}
	return np
}

// closeGaps implements spec §4.8's iterative gap-closing: repeatedly scan
// the bucket array, and for any occupied slot whose natural bucket differs
// from its current position, walk forward from the natural bucket looking
// for an empty slot strictly before the current position to move it into.
// Repeats until a full pass makes no moves.
func closeGaps(tbl *TokenTable) {
	size := len(tbl.buckets)
	for {
		moved := false
		for i := 0; i < size; i++ {
			b := tbl.buckets[i]
			if !b.present {
				continue
			}
			natural := int(b.Hash & tbl.mask)
			if natural == i {
				continue
			}
			for j := natural; j != i; j = (j + 1) % size {
				if !tbl.buckets[j].present {
					tbl.buckets[j] = b
					tbl.buckets[i] = TokenRecord{}
					moved = true
					break
				}
			}
		}
		if !moved {
			break
		}
	}
}

func compactMessages(db *Database, newIdx []int32) {
	items := db.Messages.items
	out := items[:0]
	for i, m := range items {
		if newIdx[i] < 0 {
			continue
		}
		out = append(out, m)
	}
	db.Messages.items = out
}

// compactMboxen drops dead mboxen (nil path) and remaps every surviving
// MBOX message's mbox_index via a translation table.
func compactMboxen(db *Database) {
	old := db.Mboxen.items
	translate := make([]int32, len(old))
	next := int32(0)
	var kept []Mbox
	for i, mb := range old {
		if mb.Path == "" {
			translate[i] = -1
			continue
		}
		translate[i] = next
		next++
		kept = append(kept, mb)
	}
	db.Mboxen.items = kept

	for i := range db.Messages.items {
		m := &db.Messages.items[i]
		if m.Kind == KindMbox {
			m.MboxIndex = translate[m.MboxIndex]
		}
	}
}
