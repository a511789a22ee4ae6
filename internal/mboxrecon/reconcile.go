// Package mboxrecon detects and rescans modified mbox files, locating
// message boundaries and checksumming existing messages to determine how
// many postings survive an edit (spec §4.5, C5).
package mboxrecon

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/mchl/mairix/internal/mairixdb"
	"github.com/mchl/mairix/internal/mbox"
)

// validateSampleBytes caps how much of a brand-new mbox candidate gets
// sniffed for a "From " separator before Scan refuses to treat it as one.
const validateSampleBytes = 64 << 10

// CandidateStat is one configured mbox path with its current stat result
// (produced by the external directory/glob-expansion collaborator, spec §6).
type CandidateStat struct {
	Path  string
	Mtime int64
	Size  int64
}

// Result reports the messages Scan found after an mbox's still-valid
// prefix. The length of that prefix is not part of Result; Scan stores it
// in the Mbox's NOldMsgsValid.
type Result struct {
	// NewlyDiscovered holds the (start,len,checksum) triples for messages
	// appended after the previously-known valid tail.
	NewlyDiscovered []Boundary
}

// Boundary is one message's byte range and content checksum within its
// mbox file.
type Boundary struct {
	Start    int64
	Len      int64
	Checksum [16]byte
}

// Marry reconciles db's mbox table against candidates by exact path (spec
// §4.5 step 2): matches update current mtime/size; unmatched existing
// entries go dead; unmatched candidates are appended as new, empty mboxen.
// Returns ErrDuplicateInput if candidates contains the same path twice.
func Marry(db *mairixdb.Database, candidates []CandidateStat) error {
	sorted := make([]CandidateStat, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Path == sorted[i-1].Path {
			return mairixdb.ErrDuplicateInput
		}
	}

	byPath := make(map[string]int32, db.Mboxen.Len())
	for i := 0; i < db.Mboxen.Len(); i++ {
		mb := db.Mboxen.At(int32(i))
		if mb.Path != "" {
			byPath[mb.Path] = int32(i)
		}
	}

	matched := make(map[int32]bool)
	for _, c := range sorted {
		if idx, ok := byPath[c.Path]; ok {
			mb := db.Mboxen.At(idx)
			mb.Mtime = c.Mtime
			mb.Size = c.Size
			matched[idx] = true
			continue
		}
		db.Mboxen.Append(mairixdb.Mbox{Path: c.Path, Mtime: c.Mtime, Size: c.Size})
	}

	for i := 0; i < db.Mboxen.Len(); i++ {
		idx := int32(i)
		mb := db.Mboxen.At(idx)
		if mb.Path == "" || matched[idx] {
			continue
		}
		// Old entry with no matching candidate: dies, frees arrays.
		mb.Path = ""
		mb.Start, mb.Len, mb.Checksum = nil, nil, nil
	}
	return nil
}

// Scan performs step 3 of spec §4.5 for one live, changed mbox: validates
// the previously-known tail, finds the greatest still-valid prefix, and
// scans from there for newly appended messages. Unchanged mboxen should
// not call Scan; the caller sets NOldMsgsValid = NMsgs directly.
func Scan(mb *mairixdb.Mbox) (Result, error) {
	data, err := os.ReadFile(mb.Path)
	if err != nil {
		return Result{}, err
	}

	if mb.NMsgs == 0 {
		sample := data
		if int64(len(sample)) > validateSampleBytes {
			sample = sample[:validateSampleBytes]
		}
		if verr := mbox.Validate(bytes.NewReader(sample), validateSampleBytes); verr != nil {
			return Result{}, fmt.Errorf("%s: %w", mb.Path, verr)
		}
	}

	valid := validPrefixLength(mb, data)
	mb.NOldMsgsValid = int32(valid)

	var startOffset int64
	if valid > 0 {
		startOffset = mb.Start[valid-1] + mb.Len[valid-1]
	}

	var res Result
	rd := mbox.NewReader(bytes.NewReader(data[startOffset:]))
	for {
		start, end, berr := rd.NextBoundary()
		if berr == io.EOF {
			break
		}
		if berr != nil {
			return Result{}, berr
		}
		msg := data[startOffset+start : startOffset+end]
		res.NewlyDiscovered = append(res.NewlyDiscovered, Boundary{
			Start:    startOffset + start,
			Len:      int64(len(msg)),
			Checksum: md5.Sum(msg),
		})
	}
	return res, nil
}

// validPrefixLength implements the tail-first validation of spec §4.5.a:
// if the last known message is still byte-identical, everything is valid;
// if the first fails, nothing is; otherwise binary-search the greatest
// valid prefix under the monotone-non-increasing assumption.
func validPrefixLength(mb *mairixdb.Mbox, data []byte) int {
	n := int(mb.NMsgs)
	if n == 0 {
		return 0
	}
	check := func(i int) bool {
		start, length := mb.Start[i], mb.Len[i]
		if start < 0 || start+length > int64(len(data)) {
			return false
		}
		sum := md5.Sum(data[start : start+length])
		return sum == mb.Checksum[i]
	}
	if check(n - 1) {
		return n
	}
	if !check(0) {
		return 0
	}
	lo, hi := 0, n-1 // lo valid, hi invalid
	for lo+1 < hi {
		mid := (lo + hi) / 2
		if check(mid) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo + 1
}

