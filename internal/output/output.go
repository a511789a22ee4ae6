// Package output is the result materialiser (spec §4.13, C13): given a
// hit bitmap it populates one of five sink kinds with the matching
// messages.
package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mchl/mairix/internal/mairixdb"
	"github.com/mchl/mairix/internal/query"
	"github.com/mchl/mairix/internal/rfc822"
	"github.com/mchl/mairix/internal/textutil"
)

// Sink selects the output format.
type Sink int

const (
	SinkMaildir Sink = iota
	SinkMH
	SinkMbox
	SinkRaw
	SinkExcerpt
)

// Options configures one materialisation pass.
type Options struct {
	Sink     Sink
	Path     string    // target directory (maildir/MH) or file (mbox)
	Augment  bool      // skip clearing existing output first
	Hardlink bool      // hard-link instead of symlink for maildir/MH FILE messages
	Stdout   io.Writer // destination for raw/excerpt sinks
	Now      time.Time // delivery timestamp embedded in maildir filenames
}

// Materialise writes every message selected by hits to opts' sink.
func Materialise(r *mairixdb.Reader, hits *query.Bitset, opts Options) error {
	if !opts.Augment {
		if err := clear(opts); err != nil {
			return err
		}
	}
	switch opts.Sink {
	case SinkMaildir:
		return writeMaildir(r, hits, opts)
	case SinkMH:
		return writeMH(r, hits, opts)
	case SinkMbox:
		return writeMbox(r, hits, opts)
	case SinkRaw:
		return writeRaw(r, hits, opts)
	case SinkExcerpt:
		return writeExcerpt(r, hits, opts)
	default:
		return fmt.Errorf("output: unknown sink %d", opts.Sink)
	}
}

func clear(opts Options) error {
	switch opts.Sink {
	case SinkMaildir:
		return clearMaildir(opts.Path)
	case SinkMH:
		return clearMH(opts.Path)
	case SinkMbox:
		if err := os.Remove(opts.Path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// clearMaildir removes only symlinks and regular files directly inside
// new/ and cur/, leaving the directory structure itself intact.
func clearMaildir(dir string) error {
	for _, sub := range []string{"new", "cur"} {
		entries, err := os.ReadDir(filepath.Join(dir, sub))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		for _, e := range entries {
			info, err := e.Info()
			if err != nil {
				continue
			}
			if info.Mode()&os.ModeSymlink != 0 || info.Mode().IsRegular() {
				_ = os.Remove(filepath.Join(dir, sub, e.Name()))
			}
		}
	}
	return nil
}

// clearMH removes only entries whose names parse as decimal integers.
func clearMH(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if _, err := strconv.Atoi(e.Name()); err == nil {
			_ = os.Remove(filepath.Join(dir, e.Name()))
		}
	}
	return nil
}

func ensureMaildirDirs(dir string) error {
	for _, sub := range []string{"new", "cur", "tmp"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return err
		}
	}
	return nil
}

func flagSuffix(m mairixdb.Message) string {
	var letters []string
	if m.Flagged() {
		letters = append(letters, "F")
	}
	if m.Replied() {
		letters = append(letters, "R")
	}
	if m.Seen() {
		letters = append(letters, "S")
	}
	sort.Strings(letters)
	if len(letters) == 0 {
		return ""
	}
	return ":2," + strings.Join(letters, "")
}

func writeMaildir(r *mairixdb.Reader, hits *query.Bitset, opts Options) error {
	if err := ensureMaildirDirs(opts.Path); err != nil {
		return err
	}
	base := opts.Now.Unix()
	for _, idx := range hits.Indices() {
		m := r.Message(int(idx))
		name := fmt.Sprintf("%d.%d.mairix%s", base, idx, flagSuffix(m))
		dest := filepath.Join(opts.Path, "cur", name)

		if m.Kind == mairixdb.KindFile {
			if err := linkFile(m.Path, dest, opts.Hardlink); err != nil {
				return err
			}
			continue
		}
		if err := writeSourceFolderCopy(r, m, dest); err != nil {
			return err
		}
	}
	return nil
}

func linkFile(src, dest string, hardlink bool) error {
	if hardlink {
		return os.Link(src, dest)
	}
	return os.Symlink(src, dest)
}

func writeMH(r *mairixdb.Reader, hits *query.Bitset, opts Options) error {
	if err := os.MkdirAll(opts.Path, 0755); err != nil {
		return err
	}
	for ordinal, idx := range hits.Indices() {
		m := r.Message(int(idx))
		dest := filepath.Join(opts.Path, strconv.Itoa(ordinal+1))
		if m.Kind == mairixdb.KindFile {
			if err := linkFile(m.Path, dest, opts.Hardlink); err != nil {
				return err
			}
			continue
		}
		if err := writeSourceFolderCopy(r, m, dest); err != nil {
			return err
		}
	}
	return nil
}

// writeSourceFolderCopy materialises a mbox-backed message as a regular
// file, prepending a synthetic X-source-folder header (spec §4.13).
func writeSourceFolderCopy(r *mairixdb.Reader, m mairixdb.Message, dest string) error {
	raw, folder, err := readMboxMessage(r, m)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "X-source-folder: %s\n", folder); err != nil {
		return err
	}
	_, err = f.Write(raw)
	return err
}

func readMboxMessage(r *mairixdb.Reader, m mairixdb.Message) (raw []byte, folder string, err error) {
	mb := r.Mbox(int(m.MboxIndex))
	f, err := os.Open(mb.Path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	buf := make([]byte, m.Size)
	if _, err := f.ReadAt(buf, m.Mtime); err != nil {
		return nil, "", err
	}
	return buf, mb.Path, nil
}

func writeMbox(r *mairixdb.Reader, hits *query.Bitset, opts Options) error {
	f, err := os.OpenFile(opts.Path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, idx := range hits.Indices() {
		m := r.Message(int(idx))
		var raw []byte
		var folder string
		if m.Kind == mairixdb.KindFile {
			raw, err = os.ReadFile(m.Path)
			if err != nil {
				return err
			}
			folder = m.Path
		} else {
			raw, folder, err = readMboxMessage(r, m)
			if err != nil {
				return err
			}
		}
		if _, err := f.WriteString("From mairix@mairix Mon Jan  1 12:34:56 1970\n"); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(f, "X-source-folder: %s\n", folder); err != nil {
			return err
		}
		if _, err := f.Write(raw); err != nil {
			return err
		}
		if err := writeMboxTerminator(f, raw); err != nil {
			return err
		}
	}
	return nil
}

// writeMboxTerminator guarantees the message (and hence the file at this
// point) ends with exactly "\n\n", even when the source bytes lacked a
// trailing newline (spec §8 boundary behaviour).
func writeMboxTerminator(f *os.File, raw []byte) error {
	switch {
	case len(raw) >= 2 && raw[len(raw)-2] == '\n' && raw[len(raw)-1] == '\n':
		return nil
	case len(raw) >= 1 && raw[len(raw)-1] == '\n':
		_, err := f.WriteString("\n")
		return err
	default:
		_, err := f.WriteString("\n\n")
		return err
	}
}

func writeRaw(r *mairixdb.Reader, hits *query.Bitset, opts Options) error {
	for _, idx := range hits.Indices() {
		m := r.Message(int(idx))
		if m.Kind == mairixdb.KindFile {
			fmt.Fprintln(opts.Stdout, m.Path)
			continue
		}
		mb := r.Mbox(int(m.MboxIndex))
		fmt.Fprintf(opts.Stdout, "mbox:%s [%d,%d)\n", mb.Path, m.Mtime, m.Mtime+m.Size)
	}
	return nil
}

func writeExcerpt(r *mairixdb.Reader, hits *query.Bitset, opts Options) error {
	for _, idx := range hits.Indices() {
		m := r.Message(int(idx))
		var raw []byte
		var err error
		if m.Kind == mairixdb.KindFile {
			raw, err = os.ReadFile(m.Path)
		} else {
			raw, _, err = readMboxMessage(r, m)
		}
		if err != nil {
			fmt.Fprintf(opts.Stdout, "--- message %d: %v ---\n", idx, err)
			continue
		}
		tree, perr := rfc822.Parse(raw)
		fmt.Fprintf(opts.Stdout, "--- message %d ---\n", idx)
		if perr != nil {
			fmt.Fprintf(opts.Stdout, "(unparseable: %v)\n", perr)
			continue
		}
		fmt.Fprintf(opts.Stdout, "From: %s\nTo: %s\nSubject: %s\nDate: %s\n",
			textutil.EnsureUTF8(tree.Headers.From), textutil.EnsureUTF8(tree.Headers.To),
			textutil.FirstLine(textutil.EnsureUTF8(tree.Headers.Subject)), time.Unix(m.Date, 0).UTC())
	}
	return nil
}
