package typemap

// Handle is a long-lived reference to the value stored for T. It caches the
// value's location and looks it up again after the Store has grown or been
// cleared.
type Handle[T any] struct {
	s   *Store
	gen uint64
	p   *T
}

// Ref returns a Handle to the value stored for T. The value does not need
// to exist yet.
func Ref[T any](s *Store) Handle[T] {
	p, _ := Get[T](s)
	return Handle[T]{s: s, gen: s.gen, p: p}
}

// Get returns the current location of the value, or false when the Store
// holds no value of type T.
func (h *Handle[T]) Get() (*T, bool) {
	if h.p == nil || h.gen != h.s.gen {
		h.p, _ = Get[T](h.s)
		h.gen = h.s.gen
	}
	return h.p, h.p != nil
}

// Stale reports whether the Store has moved or forgotten its values since
// the Handle last resolved its location.
func (h *Handle[T]) Stale() bool {
	return h.gen != h.s.gen
}
