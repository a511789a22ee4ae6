//go:build windows

package mairixdb

import (
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

func mmapFile(f *os.File, size int) ([]byte, error) {
	return mmap(f, size, windows.PAGE_READWRITE, windows.FILE_MAP_WRITE)
}

func mmapFileReadOnly(f *os.File, size int) ([]byte, error) {
	return mmap(f, size, windows.PAGE_READONLY, windows.FILE_MAP_READ)
}

func mmap(f *os.File, size int, protect, access uint32) ([]byte, error) {
	h, err := windows.CreateFileMapping(windows.Handle(f.Fd()), nil, protect, 0, uint32(size), nil)
	if err != nil {
		return nil, err
	}
	defer windows.CloseHandle(h)

	addr, err := windows.MapViewOfFile(h, access, 0, 0, uintptr(size))
	if err != nil {
		return nil, err
	}
	var b []byte
	sh := (*sliceHeader)(unsafe.Pointer(&b))
	sh.Data = addr
	sh.Len = size
	sh.Cap = size
	return b, nil
}

type sliceHeader struct {
	Data uintptr
	Len  int
	Cap  int
}

func munmap(b []byte) error {
	addr := uintptr(unsafe.Pointer(&b[0]))
	return windows.UnmapViewOfFile(addr)
}

func msync(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return windows.FlushViewOfFile(uintptr(unsafe.Pointer(&b[0])), uintptr(len(b)))
}
