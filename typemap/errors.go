package typemap

import "errors"

var (
	// ErrNotFound is the panic value of MustGet when no value of the
	// requested type is stored.
	ErrNotFound = errors.New("typemap: type not found")

	// ErrReleased is the panic value of any call on a released Store.
	ErrReleased = errors.New("typemap: store released")

	// ErrShrink is the panic value of Resize when the new sizes cannot hold
	// the current entries.
	ErrShrink = errors.New("typemap: resize below current usage")
)
