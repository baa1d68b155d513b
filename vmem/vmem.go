// Package vmem exposes the host's virtual memory primitives: reserving a
// range of address space, committing and decommitting pages inside it, and
// releasing the whole range.
//
// Reserved memory is not backed by physical pages. Touching a reserved but
// uncommitted byte faults, so callers must only access ranges they have
// committed. Every region handed to Commit or Decommit must start on a page
// boundary relative to the reservation returned by Reserve.
package vmem

import "os"

// Common memory amounts, in bytes.
const (
	KiB = 1 << 10
	MiB = 1 << 20
	GiB = 1 << 30
)

// Memory is the four-call virtual memory interface containers grow through.
type Memory interface {
	// PageSize reports the granularity of Commit and Decommit.
	PageSize() int
	// Reserve claims size bytes of address space without committing them.
	// The returned slice spans the whole reservation.
	Reserve(size int) ([]byte, error)
	// Commit backs region, a sub-slice of a reservation, with memory.
	Commit(region []byte) error
	// Decommit returns the pages of region to the host. Their contents are
	// lost; the address range stays reserved.
	Decommit(region []byte) error
	// Release gives back a reservation obtained from Reserve.
	Release(reservation []byte) error
}

// System returns the Memory of the host operating system. On platforms
// without a reserve/commit distinction it returns a Heap.
func System() Memory {
	return system
}

// PageAlign rounds n up to a multiple of page. page must be a power of two.
func PageAlign(n, page int) int {
	return (n + page - 1) &^ (page - 1)
}

// Heap emulates reservations with ordinary garbage-collected allocations.
// Reserve allocates the full size eagerly, Commit is free and Decommit zeroes
// the region. It stands in for the host interface where one is unavailable
// and keeps small test reservations cheap.
type Heap struct{}

func (Heap) PageSize() int {
	return os.Getpagesize()
}

func (Heap) Reserve(size int) ([]byte, error) {
	if size <= 0 {
		return nil, invalidSize(size)
	}
	return make([]byte, size), nil
}

func (Heap) Commit(region []byte) error {
	return nil
}

func (Heap) Decommit(region []byte) error {
	clear(region)
	return nil
}

func (Heap) Release(reservation []byte) error {
	return nil
}
