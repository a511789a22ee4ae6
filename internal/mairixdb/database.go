// Package mairixdb implements the in-memory inverted-index database
// (spec §3, §4.1-§4.3, §4.8-§4.10): the varint posting codec, the
// open-addressed token table, the message/mbox arrays, and the persistent
// mmap-backed file format.
package mairixdb

import (
	"crypto/rand"
	"encoding/binary"
)

// WordField names the six plain word tables; MsgIDs is the seventh,
// two-chain table.
type WordField int

const (
	FieldTo WordField = iota
	FieldCc
	FieldFrom
	FieldSubject
	FieldBody
	FieldAttachmentName
	numWordFields
)

func (f WordField) String() string {
	switch f {
	case FieldTo:
		return "to"
	case FieldCc:
		return "cc"
	case FieldFrom:
		return "from"
	case FieldSubject:
		return "subject"
	case FieldBody:
		return "body"
	case FieldAttachmentName:
		return "attachment_name"
	default:
		return "?"
	}
}

// Database is the top-level in-memory aggregate: message array, mbox
// array, six word tables, one two-chain msg_ids table, and the random
// hash_key preserved across loads.
type Database struct {
	HashKey uint32

	Messages MessageTable
	Mboxen   MboxTable

	Words  [numWordFields]*TokenTable
	MsgIDs *TokenTable
}

// New creates an empty database with a freshly randomised hash_key.
func New() *Database {
	db := &Database{HashKey: randomHashKey()}
	db.initTables()
	return db
}

// newWithKey is used by the reader to reconstruct a database whose
// hash_key must equal the one stored on disk (spec §8 property 4).
func newWithKey(key uint32) *Database {
	db := &Database{HashKey: key}
	db.initTables()
	return db
}

func (db *Database) initTables() {
	for i := range db.Words {
		db.Words[i] = NewTokenTable(db.HashKey, false)
	}
	db.MsgIDs = NewTokenTable(db.HashKey, true)
}

func randomHashKey() uint32 {
	var b [4]byte
	_, _ = rand.Read(b[:])
	v := binary.LittleEndian.Uint32(b[:])
	if v == 0 {
		v = 1
	}
	return v
}

// Word returns the table for one of the six plain word fields.
func (db *Database) Word(f WordField) *TokenTable { return db.Words[f] }

// TotalMessages is n_msgs, the bound every posting-list index must stay
// strictly below (spec §8 property 1).
func (db *Database) TotalMessages() int { return db.Messages.Len() }

// CheckInvariants re-validates the quantified invariants of spec §8 across
// every table. Skipped by the CLI's -Q flag.
func (db *Database) CheckInvariants() error {
	n := int32(db.TotalMessages())
	checkList := func(p *PostingList) error {
		if p == nil || p.IsEmpty() {
			return nil
		}
		if p.Highest() >= n {
			return ErrCorruptDatabase
		}
		prev := int32(-1)
		for _, idx := range Decode(p.Bytes()) {
			if idx <= prev {
				return ErrCorruptDatabase
			}
			prev = idx
		}
		return nil
	}
	for _, tbl := range db.Words {
		if err := tbl.checkInvariants(); err != nil {
			return err
		}
		var outer error
		tbl.Each(func(r *TokenRecord) {
			if outer == nil {
				outer = checkList(r.Match0)
			}
		})
		if outer != nil {
			return outer
		}
	}
	if err := db.MsgIDs.checkInvariants(); err != nil {
		return err
	}
	var outer error
	db.MsgIDs.Each(func(r *TokenRecord) {
		if outer == nil {
			if err := checkList(r.Match0); err != nil {
				outer = err
				return
			}
			outer = checkList(r.Match1)
		}
	})
	if outer != nil {
		return outer
	}

	nMboxMsgs := 0
	for i := range db.Mboxen.items {
		nMboxMsgs += int(db.Mboxen.items[i].NMsgs)
	}
	nMboxTyped := 0
	for i := range db.Messages.items {
		m := &db.Messages.items[i]
		if m.Kind == KindMbox {
			nMboxTyped++
			if db.Mboxen.items[m.MboxIndex].Path == "" {
				return ErrCorruptDatabase
			}
		}
	}
	if nMboxMsgs != nMboxTyped {
		return ErrCorruptDatabase
	}
	return nil
}
