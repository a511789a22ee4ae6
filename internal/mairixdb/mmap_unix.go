//go:build !windows

package mairixdb

import (
	"os"

	"golang.org/x/sys/unix"
)

// mmapFile memory-maps f read-write for exactly size bytes (the writer has
// already truncated the file to that length).
func mmapFile(f *os.File, size int) ([]byte, error) {
	return unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

// mmapFileReadOnly memory-maps f read-only for size bytes.
func mmapFileReadOnly(f *os.File, size int) ([]byte, error) {
	return unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
}

func munmap(b []byte) error {
	return unix.Munmap(b)
}

func msync(b []byte) error {
	return unix.Msync(b, unix.MS_SYNC)
}
