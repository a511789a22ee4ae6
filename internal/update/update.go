// Package update reconciles the in-memory database against the live
// filesystem (spec §4.6, C6) and orchestrates mbox reconciliation,
// tokenisation, and thread grouping for one update pass.
package update

import (
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/mchl/mairix/internal/mairixdb"
	"github.com/mchl/mairix/internal/mboxrecon"
	"github.com/mchl/mairix/internal/rfc822"
	"github.com/mchl/mairix/internal/thread"
	"github.com/mchl/mairix/internal/tokenize"
)

// FileStat is one candidate file-per-message path, as produced by the
// external directory-scanner collaborator (spec §6): a sorted array of
// (path, mtime, size).
type FileStat struct {
	Path  string
	Mtime int64
	Size  int64
}

// Options controls the update pass.
type Options struct {
	FastIndex bool // skip the mtime re-stat for matched paths (spec §4.6 step 2)
	Logger    *slog.Logger
}

// Driver runs one full update pass: file-per-message reconciliation,
// mbox reconciliation, tokenisation of newly discovered messages, and
// thread grouping if anything changed.
type Driver struct {
	db   *mairixdb.Database
	opts Options
}

func New(db *mairixdb.Database, opts Options) *Driver {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Driver{db: db, opts: opts}
}

// RunFiles reconciles file-per-message sources (maildir/MH) against a
// list of currently existing paths (spec §4.6). Returns whether anything
// was added or killed.
func (d *Driver) RunFiles(fsPaths []FileStat) (changed bool, err error) {
	db := d.db
	n := db.TotalMessages()
	dbMatched := make([]bool, n)

	sort.Slice(fsPaths, func(i, j int) bool { return fsPaths[i].Path < fsPaths[j].Path })
	fsMatched := make([]bool, len(fsPaths))

	for i := 0; i < n; i++ {
		m := db.Messages.At(int32(i))
		if m.Kind != mairixdb.KindFile {
			continue
		}
		j := sort.Search(len(fsPaths), func(k int) bool { return fsPaths[k].Path >= m.Path })
		if j >= len(fsPaths) || fsPaths[j].Path != m.Path {
			continue
		}
		if d.opts.FastIndex {
			dbMatched[i] = true
			fsMatched[j] = true
			continue
		}
		if fsPaths[j].Mtime == m.Mtime {
			dbMatched[i] = true
			fsMatched[j] = true
		}
	}

	var killed, added bool
	for i := 0; i < n; i++ {
		m := db.Messages.At(int32(i))
		if m.Kind == mairixdb.KindFile && !dbMatched[i] {
			m.Kind = mairixdb.KindDead
			m.Path = ""
			killed = true
		}
	}

	for j, fp := range fsPaths {
		if fsMatched[j] {
			continue
		}
		if strings.HasSuffix(fp.Path, "/.gitignore") {
			continue
		}
		info, statErr := os.Stat(fp.Path)
		if statErr != nil || !info.Mode().IsRegular() {
			d.opts.Logger.Warn("skipping unreadable candidate", "path", fp.Path, "err", statErr)
			continue
		}
		idx := db.Messages.Append(mairixdb.Message{
			Kind:  mairixdb.KindFile,
			Path:  fp.Path,
			Mtime: info.ModTime().Unix(),
			Size:  info.Size(),
		})
		if terr := d.tokeniseFile(idx, fp.Path); terr != nil {
			d.opts.Logger.Debug("parse error, leaving zero-token placeholder", "path", fp.Path, "err", terr)
		}
		added = true
	}

	changed = added || killed
	if changed {
		thread.Group(db)
	}
	return changed, nil
}

func (d *Driver) tokeniseFile(idx int32, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	tree, err := rfc822.Parse(raw)
	if err != nil {
		return err
	}
	applyFlagsAndDate(d.db.Messages.At(idx), tree)
	tokenize.Message(d.db, idx, tree)
	return nil
}

func applyFlagsAndDate(m *mairixdb.Message, tree *rfc822.Tree) {
	m.Date = tree.Headers.Date
	m.SetFlag(mairixdb.FlagSeen, tree.Headers.Seen)
	m.SetFlag(mairixdb.FlagReplied, tree.Headers.Replied)
	m.SetFlag(mairixdb.FlagFlagged, tree.Headers.Flagged)
}

// RunMboxen reconciles every candidate mbox path against the database
// (spec §4.5 + §4.6 step 5's mbox half). candidates need not be
// pre-sorted; Marry sorts and rejects true duplicates.
func (d *Driver) RunMboxen(candidates []mboxrecon.CandidateStat) (changed bool, err error) {
	db := d.db
	if err := mboxrecon.Marry(db, candidates); err != nil {
		return false, err
	}

	for i := 0; i < db.Mboxen.Len(); i++ {
		mb := db.Mboxen.At(int32(i))
		if mb.Path == "" {
			continue
		}
		if mboxUnchanged(mb) {
			mb.NOldMsgsValid = mb.NMsgs
			continue
		}

		res, serr := mboxrecon.Scan(mb)
		if serr != nil {
			d.opts.Logger.Warn("mbox scan failed, skipping source", "path", mb.Path, "err", serr)
			continue
		}

		for k := 0; k < db.TotalMessages(); k++ {
			m := db.Messages.At(int32(k))
			if m.Kind == mairixdb.KindMbox && m.MboxIndex == int32(i) &&
				m.MsgInMbox >= mb.NOldMsgsValid && m.MsgInMbox < mb.NMsgs {
				m.Kind = mairixdb.KindDead
				changed = true
			}
		}

		mb.Start = mb.Start[:mb.NOldMsgsValid]
		mb.Len = mb.Len[:mb.NOldMsgsValid]
		mb.Checksum = mb.Checksum[:mb.NOldMsgsValid]
		mb.NMsgs = mb.NOldMsgsValid

		for _, bnd := range res.NewlyDiscovered {
			msgInMbox := mb.NMsgs
			mb.Start = append(mb.Start, bnd.Start)
			mb.Len = append(mb.Len, bnd.Len)
			mb.Checksum = append(mb.Checksum, bnd.Checksum)
			mb.NMsgs++

			idx := db.Messages.Append(mairixdb.Message{
				Kind:      mairixdb.KindMbox,
				MboxIndex: int32(i),
				MsgInMbox: msgInMbox,
			})
			if terr := d.tokeniseMboxMessage(idx, mb.Path, bnd.Start, bnd.Len); terr != nil {
				d.opts.Logger.Debug("mbox message parse error, leaving zero-token placeholder",
					"path", mb.Path, "offset", bnd.Start, "err", terr)
			}
			changed = true
		}
	}

	if changed {
		thread.Group(db)
	}
	return changed, nil
}

func mboxUnchanged(mb *mairixdb.Mbox) bool {
	info, err := os.Stat(mb.Path)
	if err != nil {
		return false
	}
	return info.ModTime().Unix() == mb.Mtime && info.Size() == mb.Size
}

func (d *Driver) tokeniseMboxMessage(idx int32, path string, start, length int64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	buf := make([]byte, length)
	if _, err := f.ReadAt(buf, start); err != nil {
		return err
	}
	tree, err := rfc822.Parse(buf)
	if err != nil {
		return err
	}
	applyFlagsAndDate(d.db.Messages.At(idx), tree)
	tokenize.Message(d.db, idx, tree)
	return nil
}
