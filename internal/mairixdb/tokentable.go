package mairixdb

// Open-addressed token hash table (C2). Maps a lowercased token's text to
// one or two posting lists. Linear probing with wraparound; the table size
// is always a power of two; rehash (double) once the load factor crosses
// 3/8.

// TokenRecord is a single bucket entry.
type TokenRecord struct {
	Text    string
	Hash    uint32
	Match0  *PostingList
	Match1  *PostingList // non-nil only for two-chain tables (msg_ids)
	present bool
}

// TokenTable is one of the spec's seven word/message-id tables.
type TokenTable struct {
	buckets  []TokenRecord
	mask     uint32
	n        int
	hwm      int
	twoChain bool
	hashKey  uint32
}

const initialTableSize = 64 // power of two

// NewTokenTable creates an empty table. twoChain selects the two-posting
// (msg_ids) layout.
func NewTokenTable(hashKey uint32, twoChain bool) *TokenTable {
	t := &TokenTable{
		buckets:  make([]TokenRecord, initialTableSize),
		mask:     initialTableSize - 1,
		twoChain: twoChain,
		hashKey:  hashKey,
	}
	t.hwm = t.loadFactorLimit()
	return t
}

func (t *TokenTable) loadFactorLimit() int {
	return (len(t.buckets) * 3) / 8
}

// hashToken computes the table's hash of already-lowercased text.
func hashToken(key uint32, text string) uint32 {
	h := key
	for i := 0; i < len(text); i++ {
		h = h*31 + uint32(text[i])
	}
	return h
}

func lowerASCII(s string) string {
	b := []byte(s)
	changed := false
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
			changed = true
		}
	}
	if !changed {
		return s
	}
	return string(b)
}

// find returns the bucket index holding text, or the first empty bucket on
// the probe path if text is absent.
func (t *TokenTable) find(hash uint32, text string) (idx int, found bool) {
	i := hash & t.mask
	for {
		b := &t.buckets[i]
		if !b.present {
			return int(i), false
		}
		if b.Hash == hash && b.Text == text {
			return int(i), true
		}
		i = (i + 1) & t.mask
	}
}

// insertRecord places rec at its natural bucket / first free slot along the
// probe chain. Used both for new insertions and for rehash/cull reinsertion.
func (t *TokenTable) insertRecord(rec TokenRecord) {
	i := rec.Hash & t.mask
	for t.buckets[i].present {
		i = (i + 1) & t.mask
	}
	t.buckets[i] = rec
}

func (t *TokenTable) rehash() {
	old := t.buckets
	newSize := len(t.buckets) * 2
	t.buckets = make([]TokenRecord, newSize)
	t.mask = uint32(newSize - 1)
	for _, b := range old {
		if b.present {
			t.insertRecord(b)
		}
	}
	t.hwm = t.loadFactorLimit()
}

// Add inserts a single-chain occurrence of text for message fileIndex.
func (t *TokenTable) Add(fileIndex int32, text string) {
	t.add(fileIndex, text, false)
}

// Add2 inserts text for fileIndex, additionally recording it in chain 1
// (used only by the msg_ids table, for Message-ID as opposed to
// In-Reply-To/References).
func (t *TokenTable) Add2(fileIndex int32, text string, alsoChain1 bool) {
	t.add(fileIndex, text, alsoChain1)
}

func (t *TokenTable) add(fileIndex int32, text string, alsoChain1 bool) {
	text = lowerASCII(text)
	hash := hashToken(t.hashKey, text)

	idx, found := t.find(hash, text)
	if !found {
		if t.n >= t.hwm {
			t.rehash()
			idx, _ = t.find(hash, text)
		}
		rec := TokenRecord{Text: text, Hash: hash, Match0: newPostingList(), present: true}
		if t.twoChain {
			rec.Match1 = newPostingList()
		}
		t.insertRecord(rec)
		t.n++
		idx, _ = t.find(hash, text)
	}

	b := &t.buckets[idx]
	b.Match0.Add(fileIndex)
	if t.twoChain && alsoChain1 {
		b.Match1.Add(fileIndex)
	}
}

// Lookup returns the record for an exact (already-lowercased) token, or
// found=false.
func (t *TokenTable) Lookup(text string) (*TokenRecord, bool) {
	hash := hashToken(t.hashKey, text)
	idx, found := t.find(hash, text)
	if !found {
		return nil, false
	}
	return &t.buckets[idx], true
}

// Len reports the number of live token records.
func (t *TokenTable) Len() int { return t.n }

// Each calls fn for every live record, in bucket order. Used by the writer
// and by cull/recode.
func (t *TokenTable) Each(fn func(*TokenRecord)) {
	for i := range t.buckets {
		if t.buckets[i].present {
			fn(&t.buckets[i])
		}
	}
}

// Capacity reports the current bucket-array size (always a power of two).
func (t *TokenTable) Capacity() int { return len(t.buckets) }

// checkInvariants validates properties 2 and 3 of spec §8: every bucket on
// the probe chain from a record's natural bucket to its actual slot is
// occupied, and no two records share text. Used by integrity checks (-Q
// skips this).
func (t *TokenTable) checkInvariants() error {
	seen := make(map[string]struct{}, t.n)
	for i, b := range t.buckets {
		if !b.present {
			continue
		}
		if _, dup := seen[b.Text]; dup {
			return ErrCorruptDatabase
		}
		seen[b.Text] = struct{}{}
		natural := int(b.Hash & t.mask)
		for j := natural; j != i; j = (j + 1) & int(t.mask) {
			if !t.buckets[j].present {
				return ErrCorruptDatabase
			}
		}
	}
	return nil
}
