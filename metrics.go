package arena

// Len returns the number of elements in the Vec.
func (v *Vec[T]) Len() int {
	return v.length
}

// IsEmpty reports whether the Vec has no elements.
func (v *Vec[T]) IsEmpty() bool {
	return v.length == 0
}

// Cap returns how many elements fit in committed memory.
func (v *Vec[T]) Cap() int {
	return v.committed / v.stride
}

// ReservedBytes returns the size of the reservation, fixed at creation.
func (v *Vec[T]) ReservedBytes() int {
	return v.reserved
}

// CommittedBytes returns how much of the reservation is committed.
func (v *Vec[T]) CommittedBytes() int {
	return v.committed
}

// RemainingSpace returns how many more elements can be pushed before the
// reservation is exhausted.
func (v *Vec[T]) RemainingSpace() int {
	return v.reserved/v.stride - v.length
}

// Utilization returns the ratio of bytes in use to committed bytes (0.0 to 1.0).
// Returns 0.0 if nothing is committed.
func (v *Vec[T]) Utilization() float64 {
	if v.committed == 0 {
		return 0
	}
	return float64(v.length*v.stride) / float64(v.committed)
}

// Metrics returns a snapshot of Vec statistics.
func (v *Vec[T]) Metrics() VecMetrics {
	return VecMetrics{
		Len:            v.length,
		ElemSize:       v.stride,
		CommittedBytes: v.committed,
		ReservedBytes:  v.reserved,
		Segments:       len(v.segs),
		Utilization:    v.Utilization(),
	}
}

// VecMetrics contains statistical information about a Vec.
type VecMetrics struct {
	Len            int     // Elements stored
	ElemSize       int     // Bytes accounted per element
	CommittedBytes int     // Bytes backed by memory
	ReservedBytes  int     // Address space reserved at creation
	Segments       int     // Typed segments; 0 for contiguous Vecs
	Utilization    float64 // Ratio of used to committed bytes (0.0-1.0)
}
