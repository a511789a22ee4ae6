//go:build !windows

package lockfile

import (
	"os"
	"syscall"
)

// linkCount reports the hard-link count of path, or 0 if it cannot be
// stat'd.
func linkCount(path string) int {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0
	}
	return int(st.Nlink)
}
