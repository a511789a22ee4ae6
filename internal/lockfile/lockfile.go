// Package lockfile is the external locking collaborator pinned by spec §6:
// link-based dotlocking that serialises the single writer process across
// the whole core (spec §5). Grounded on original_source/dotlock.c.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"os/user"
)

// ErrLockUnavailable is spec §7's LockUnavailable kind: a lock file is
// present, held by a still-distinguishable owner, and force was not
// requested.
var ErrLockUnavailable = errors.New("lockfile: database is locked")

// Lock holds one acquired dotlock; Unlock is idempotent.
type Lock struct {
	path string
	held bool
}

// Acquire establishes exclusivity over path+".lock" via the classic
// link-then-check-nlink dance: a uniquely named temp file is written with
// identifying info, then hard-linked to the lock path. A successful link
// (or an nlink of exactly 2 after a failed link, meaning we raced our own
// temp file) means we hold the lock. force unconditionally removes any
// existing lock file first.
func Acquire(path string, force bool) (*Lock, error) {
	lockPath := path + ".lock"
	if force {
		_ = os.Remove(lockPath)
	}

	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	uname := "unknown"
	if u, uerr := user.Current(); uerr == nil {
		uname = u.Username
	}
	pid := os.Getpid()

	tmpPath := fmt.Sprintf("%s.%d.%s", lockPath, pid, host)
	content := fmt.Sprintf("%d,%s,%s\n", pid, host, uname)
	if err := os.WriteFile(tmpPath, []byte(content), 0644); err != nil {
		return nil, fmt.Errorf("lockfile: write %s: %w", tmpPath, err)
	}
	defer os.Remove(tmpPath)

	if err := os.Link(tmpPath, lockPath); err != nil {
		if linkCount(tmpPath) == 2 {
			// We raced and won: the existing lockPath is our own temp file
			// seen from the other name.
			return &Lock{path: lockPath, held: true}, nil
		}
		owner, _ := os.ReadFile(lockPath)
		return nil, fmt.Errorf("%w: held by (pid,node,user)=(%s)", ErrLockUnavailable, firstLine(owner))
	}
	return &Lock{path: lockPath, held: true}, nil
}

// Unlock removes the lock file. Safe to call more than once.
func (l *Lock) Unlock() error {
	if l == nil || !l.held {
		return nil
	}
	l.held = false
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func firstLine(b []byte) string {
	for i, c := range b {
		if c == '\n' {
			return string(b[:i])
		}
	}
	return string(b)
}
