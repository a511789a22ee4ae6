// Package scan is the directory-traversal and glob-expansion external
// collaborator pinned by spec §6: given a list of roots it returns a
// flat, sorted array of (path, mtime, size) tuples for candidate
// messages. No third-party directory-walking library appears anywhere
// in the retrieval pack, so this stays on filepath.WalkDir/filepath.Glob.
package scan

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/mchl/mairix/internal/mboxrecon"
	"github.com/mchl/mairix/internal/update"
)

// Maildirs walks one or more maildir roots (each expanded as a glob
// pattern), collecting regular files directly under cur/ and new/.
func Maildirs(roots []string) ([]update.FileStat, error) {
	var out []update.FileStat
	for _, root := range roots {
		matches, err := expandRoot(root)
		if err != nil {
			return nil, err
		}
		for _, dir := range matches {
			for _, sub := range []string{"cur", "new"} {
				files, err := statDir(filepath.Join(dir, sub), func(name string) bool {
					return !strings.HasPrefix(name, ".")
				})
				if err != nil {
					continue
				}
				out = append(out, files...)
			}
		}
	}
	sortFileStats(out)
	return out, nil
}

// MHFolders walks one or more MH mailbox roots (glob-expanded),
// collecting entries whose names parse as decimal message numbers,
// recursing into MH sub-folders.
func MHFolders(roots []string) ([]update.FileStat, error) {
	var out []update.FileStat
	for _, root := range roots {
		matches, err := expandRoot(root)
		if err != nil {
			return nil, err
		}
		for _, dir := range matches {
			if err := walkMH(dir, &out); err != nil {
				continue
			}
		}
	}
	sortFileStats(out)
	return out, nil
}

func walkMH(dir string, out *[]update.FileStat) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // skip unreadable entries, matching spec §7 SourceIOError policy
		}
		if d.IsDir() {
			return nil
		}
		if _, aerr := strconv.Atoi(d.Name()); aerr != nil {
			return nil
		}
		info, ierr := d.Info()
		if ierr != nil {
			return nil
		}
		*out = append(*out, update.FileStat{Path: path, Mtime: info.ModTime().Unix(), Size: info.Size()})
		return nil
	})
}

// Mboxen glob-expands one or more mbox path patterns and stats each
// surviving regular file.
func Mboxen(patterns []string) ([]mboxrecon.CandidateStat, error) {
	var out []mboxrecon.CandidateStat
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			if info, serr := os.Stat(pattern); serr == nil && info.Mode().IsRegular() {
				matches = []string{pattern}
			}
		}
		for _, path := range matches {
			info, serr := os.Stat(path)
			if serr != nil || !info.Mode().IsRegular() {
				continue
			}
			out = append(out, mboxrecon.CandidateStat{Path: path, Mtime: info.ModTime().Unix(), Size: info.Size()})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func expandRoot(root string) ([]string, error) {
	matches, err := filepath.Glob(root)
	if err != nil {
		return nil, err
	}
	if matches == nil {
		if info, serr := os.Stat(root); serr == nil && info.IsDir() {
			matches = []string{root}
		}
	}
	return matches, nil
}

func statDir(dir string, keep func(name string) bool) ([]update.FileStat, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []update.FileStat
	for _, e := range entries {
		if e.IsDir() || !keep(e.Name()) {
			continue
		}
		info, ierr := e.Info()
		if ierr != nil {
			continue
		}
		out = append(out, update.FileStat{
			Path:  filepath.Join(dir, e.Name()),
			Mtime: info.ModTime().Unix(),
			Size:  info.Size(),
		})
	}
	return out, nil
}

func sortFileStats(fs []update.FileStat) {
	sort.Slice(fs, func(i, j int) bool { return fs[i].Path < fs[j].Path })
}
