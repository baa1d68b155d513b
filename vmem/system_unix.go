//go:build linux || darwin || freebsd

package vmem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

var system Memory = unixMemory{}

// unixMemory reserves with PROT_NONE anonymous mappings and commits by
// changing page protection.
type unixMemory struct{}

func (unixMemory) PageSize() int {
	return unix.Getpagesize()
}

func (unixMemory) Reserve(size int) ([]byte, error) {
	if size <= 0 {
		return nil, invalidSize(size)
	}
	b, err := unix.Mmap(-1, 0, size, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap %d bytes: %w", ErrReserve, size, err)
	}
	return b, nil
}

func (unixMemory) Commit(region []byte) error {
	if len(region) == 0 {
		return nil
	}
	if err := unix.Mprotect(region, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return fmt.Errorf("%w: mprotect %d bytes: %w", ErrCommit, len(region), err)
	}
	return nil
}

func (unixMemory) Decommit(region []byte) error {
	if len(region) == 0 {
		return nil
	}
	if err := unix.Madvise(region, unix.MADV_DONTNEED); err != nil {
		return fmt.Errorf("%w: madvise %d bytes: %w", ErrDecommit, len(region), err)
	}
	if err := unix.Mprotect(region, unix.PROT_NONE); err != nil {
		return fmt.Errorf("%w: mprotect %d bytes: %w", ErrDecommit, len(region), err)
	}
	return nil
}

func (unixMemory) Release(reservation []byte) error {
	if len(reservation) == 0 {
		return nil
	}
	if err := unix.Munmap(reservation); err != nil {
		return fmt.Errorf("%w: munmap %d bytes: %w", ErrRelease, len(reservation), err)
	}
	return nil
}
