package arena

import "errors"

var (
	// ErrReservationExhausted is returned when a Vec must grow past the
	// address space it reserved at creation.
	ErrReservationExhausted = errors.New("arena: reservation exhausted")

	// ErrIndexOutOfBounds is returned by operations given an index past the
	// end of a Vec.
	ErrIndexOutOfBounds = errors.New("arena: index out of bounds")

	// ErrCapacityExceedsReservation is returned when the requested initial
	// capacity does not fit the reservation.
	ErrCapacityExceedsReservation = errors.New("arena: capacity exceeds reservation")

	// ErrPointerType is returned when a value holding Go pointers is written
	// into raw bytes.
	ErrPointerType = errors.New("arena: type contains pointers")
)
