//go:build windows

package vmem

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

var system Memory = windowsMemory{}

// windowsMemory maps the interface onto VirtualAlloc and VirtualFree.
type windowsMemory struct{}

func (windowsMemory) PageSize() int {
	return os.Getpagesize()
}

func (windowsMemory) Reserve(size int) ([]byte, error) {
	if size <= 0 {
		return nil, invalidSize(size)
	}
	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_RESERVE, windows.PAGE_NOACCESS)
	if err != nil {
		return nil, fmt.Errorf("%w: VirtualAlloc %d bytes: %w", ErrReserve, size, err)
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}

func (windowsMemory) Commit(region []byte) error {
	if len(region) == 0 {
		return nil
	}
	_, err := windows.VirtualAlloc(base(region), uintptr(len(region)), windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil {
		return fmt.Errorf("%w: VirtualAlloc %d bytes: %w", ErrCommit, len(region), err)
	}
	return nil
}

func (windowsMemory) Decommit(region []byte) error {
	if len(region) == 0 {
		return nil
	}
	if err := windows.VirtualFree(base(region), uintptr(len(region)), windows.MEM_DECOMMIT); err != nil {
		return fmt.Errorf("%w: VirtualFree %d bytes: %w", ErrDecommit, len(region), err)
	}
	return nil
}

func (windowsMemory) Release(reservation []byte) error {
	if len(reservation) == 0 {
		return nil
	}
	if err := windows.VirtualFree(base(reservation), 0, windows.MEM_RELEASE); err != nil {
		return fmt.Errorf("%w: VirtualFree %d bytes: %w", ErrRelease, len(reservation), err)
	}
	return nil
}

func base(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}
