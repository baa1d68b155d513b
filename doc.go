// Package arena implements Vec, a growable sequence backed by a single
// virtual memory reservation.
//
// # Overview
//
// A Vec reserves a large range of address space once, when it is created,
// and grows by committing more of that range. Elements are never copied to
// a new buffer, so pointers into a Vec stay valid across growth. This makes
// Vec the storage layer for containers that hand out long-lived references:
//
//   - typemap.Store keeps one value per Go type
//   - uniq.Store keeps per-call-site state keyed by a numeric key
//   - msgbus.Bus packs messages into a byte Vec
//
// # Basic Usage
//
//	v := arena.MustNew[int](arena.WithReservation(64 * vmem.MiB))
//	defer v.Release() // Decommit and release the reservation
//
//	v.Push(42)
//	p := v.Get(0) // Stable until removed or released
//	for i := 0; i < 1000; i++ {
//		v.Push(i) // p still points at 42
//	}
//
//	// Fallible growth
//	if err := v.TryPush(7); errors.Is(err, arena.ErrReservationExhausted) {
//		// handle a full reservation
//	}
//
// # Growth
//
// When a push does not fit, the Vec commits enough pages to double the bytes
// in use. If doubling would pass the end of the reservation it commits
// everything left; if that is still not enough, Push panics and TryPush
// returns ErrReservationExhausted.
//
// # Memory Layout
//
// Element types without Go pointers are stored in the raw reservation,
// obtained from vmem.Memory. Types holding pointers cannot live in memory
// the garbage collector does not scan, so they are stored in typed segments
// that follow the same growth rule.
//
// # Byte Arenas
//
// Append and At treat a Vec[byte] as an arena of pointer-free values placed
// at aligned offsets.
//
// # Thread Safety
//
// Vec performs no locking. Callers run a single writer at a time.
package arena
