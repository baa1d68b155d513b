package vmem

import (
	"errors"
	"fmt"
)

var (
	// ErrReserve is returned when the host refuses an address space reservation.
	ErrReserve = errors.New("vmem: reserve failed")

	// ErrCommit is returned when reserved pages cannot be committed.
	ErrCommit = errors.New("vmem: commit failed")

	// ErrDecommit is returned when committed pages cannot be decommitted.
	ErrDecommit = errors.New("vmem: decommit failed")

	// ErrRelease is returned when a reservation cannot be released.
	ErrRelease = errors.New("vmem: release failed")
)

func invalidSize(size int) error {
	return fmt.Errorf("%w: invalid size %d", ErrReserve, size)
}
