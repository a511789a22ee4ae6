// Package thread assigns dense thread identifiers to messages by
// union-find over the message-id reference relation (spec §4.7, C7).
package thread

import "github.com/mchl/mairix/internal/mairixdb"

type unionFind struct {
	parent []int32
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int32, n)}
	for i := range uf.parent {
		uf.parent[i] = int32(i)
	}
	return uf
}

func (uf *unionFind) find(x int32) int32 {
	for uf.parent[x] != x {
		x = uf.parent[x]
	}
	return x
}

// union links the two sets by making the lower index canonical.
func (uf *unionFind) union(a, b int32) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if ra < rb {
		uf.parent[rb] = ra
	} else {
		uf.parent[ra] = rb
	}
}

func (uf *unionFind) compress() {
	for i := range uf.parent {
		uf.parent[i] = uf.find(int32(i))
	}
}

// Group recomputes every message's thread id in db. For each token in
// msg_ids, it unions all message indices on that token's chain-0 posting
// list; it then assigns a dense tid by scanning messages in index order,
// handing each newly-seen root the next free id.
func Group(db *mairixdb.Database) {
	n := db.TotalMessages()
	if n == 0 {
		return
	}
	uf := newUnionFind(n)

	db.MsgIDs.Each(func(rec *mairixdb.TokenRecord) {
		idx := mairixdb.Decode(rec.Match0.Bytes())
		for i := 1; i < len(idx); i++ {
			uf.union(idx[0], idx[i])
		}
	})
	uf.compress()

	tid := make(map[int32]int32)
	next := int32(0)
	for i := 0; i < n; i++ {
		m := db.Messages.At(int32(i))
		if m.Kind == mairixdb.KindDead {
			continue
		}
		root := uf.parent[i]
		t, ok := tid[root]
		if !ok {
			t = next
			next++
			tid[root] = t
		}
		m.TID = t
	}
}
