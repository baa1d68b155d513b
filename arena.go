package arena

import (
	"fmt"
	"iter"
	"reflect"
	"sort"
	"unsafe"

	"go.uber.org/zap"

	"github.com/pavanmanishd/arena/v2/vmem"
)

// DefaultReservation is the address space a Vec reserves when no
// reservation is configured (1 GiB). Reserving costs no physical memory on
// hosts with a reserve/commit distinction.
const DefaultReservation = vmem.GiB

// Vec is a growable sequence that never moves its elements. Capacity grows
// by committing more of a reservation made once at creation, so a pointer
// returned by Get stays valid across any number of later pushes, until the
// element is removed or the Vec is released.
//
// Element types without Go pointers live in one contiguous reservation of
// the configured vmem.Memory. Element types holding pointers (and zero-size
// types) are kept in typed segments, one per commit, which the garbage
// collector can see; segments are never reallocated either.
//
// Vec is not safe for concurrent use.
type Vec[T any] struct {
	log  *zap.Logger
	mem  vmem.Memory
	page int

	stride    int // element size, at least 1
	reserved  int // bytes, page aligned
	committed int // bytes
	length    int

	// contiguous backing
	block []byte
	items []T

	// segmented backing
	segs   [][]T
	starts []int

	released bool
}

// New reserves address space for a Vec. See the Option helpers for the
// defaults.
func New[T any](opts ...Option) (*Vec[T], error) {
	cfg := NewConfig(opts...)

	var zero T
	size := int(unsafe.Sizeof(zero))
	v := &Vec[T]{
		log:    cfg.Logger.Named("arena"),
		mem:    cfg.Memory,
		page:   cfg.Memory.PageSize(),
		stride: max(size, 1),
	}
	v.reserved = vmem.PageAlign(cfg.Reservation, v.page)

	if cfg.Capacity > v.reserved/v.stride {
		return nil, fmt.Errorf("%w: %d elements of %d bytes, %d bytes reserved",
			ErrCapacityExceedsReservation, cfg.Capacity, v.stride, v.reserved)
	}

	if size > 0 && !HasPointers(reflect.TypeFor[T]()) {
		block, err := v.mem.Reserve(v.reserved)
		if err != nil {
			return nil, err
		}
		v.block = block
		v.items = unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(block))), v.reserved/size)
	}

	if cfg.Capacity > 0 {
		if err := v.commitTo(vmem.PageAlign(cfg.Capacity*v.stride, v.page)); err != nil {
			_ = v.Release()
			return nil, err
		}
	}
	return v, nil
}

// MustNew is like New but panics if the reservation fails.
func MustNew[T any](opts ...Option) *Vec[T] {
	v, err := New[T](opts...)
	if err != nil {
		panic(err)
	}
	return v
}

// Push appends val, committing more of the reservation when needed. It
// panics with ErrReservationExhausted when the reservation is full; use
// TryPush to get the error instead.
func (v *Vec[T]) Push(val T) {
	if err := v.TryPush(val); err != nil {
		panic(err)
	}
}

// TryPush appends val or reports why it could not.
func (v *Vec[T]) TryPush(val T) error {
	v.panicIfReleased()
	if err := v.ensure(v.length + 1); err != nil {
		return err
	}
	*v.at(v.length) = val
	v.length++
	return nil
}

// Extend appends vals in order, panicking like Push.
func (v *Vec[T]) Extend(vals ...T) {
	if err := v.TryExtend(vals...); err != nil {
		panic(err)
	}
}

// TryExtend appends vals in order. Nothing is appended when the
// reservation cannot hold all of them.
func (v *Vec[T]) TryExtend(vals ...T) error {
	v.panicIfReleased()
	if err := v.ensure(v.length + len(vals)); err != nil {
		return err
	}
	if v.items != nil {
		copy(v.items[v.length:], vals)
	} else {
		for i, val := range vals {
			*v.at(v.length + i) = val
		}
	}
	v.length += len(vals)
	return nil
}

// Get returns a pointer to element i, or nil when i is out of bounds.
func (v *Vec[T]) Get(i int) *T {
	v.panicIfReleased()
	if i < 0 || i >= v.length {
		return nil
	}
	return v.at(i)
}

// Set overwrites element i and reports whether i was in bounds.
func (v *Vec[T]) Set(i int, val T) bool {
	p := v.Get(i)
	if p == nil {
		return false
	}
	*p = val
	return true
}

// Insert places val at index i, shifting later elements up. It panics when
// i > Len or the reservation is full.
func (v *Vec[T]) Insert(i int, val T) {
	if err := v.TryInsert(i, val); err != nil {
		panic(err)
	}
}

// TryInsert places val at index i, shifting later elements up.
func (v *Vec[T]) TryInsert(i int, val T) error {
	v.panicIfReleased()
	if i < 0 || i > v.length {
		return fmt.Errorf("%w: insert at %d, len %d", ErrIndexOutOfBounds, i, v.length)
	}
	if err := v.ensure(v.length + 1); err != nil {
		return err
	}
	if v.items != nil {
		copy(v.items[i+1:v.length+1], v.items[i:v.length])
	} else {
		for j := v.length; j > i; j-- {
			*v.at(j) = *v.at(j - 1)
		}
	}
	*v.at(i) = val
	v.length++
	return nil
}

// Remove deletes element i, shifting later elements down one slot. The
// underlying block is never reallocated.
func (v *Vec[T]) Remove(i int) (T, bool) {
	v.panicIfReleased()
	var zero T
	if i < 0 || i >= v.length {
		return zero, false
	}
	val := *v.at(i)
	if v.items != nil {
		copy(v.items[i:v.length-1], v.items[i+1:v.length])
	} else {
		for j := i; j < v.length-1; j++ {
			*v.at(j) = *v.at(j + 1)
		}
	}
	v.length--
	*v.at(v.length) = zero
	return val, true
}

// SwapRemove deletes element i by moving the last element into its slot.
func (v *Vec[T]) SwapRemove(i int) (T, bool) {
	v.panicIfReleased()
	var zero T
	if i < 0 || i >= v.length {
		return zero, false
	}
	last := v.length - 1
	val := *v.at(i)
	*v.at(i) = *v.at(last)
	*v.at(last) = zero
	v.length = last
	return val, true
}

// Pop removes and returns the last element.
func (v *Vec[T]) Pop() (T, bool) {
	v.panicIfReleased()
	var zero T
	if v.length == 0 {
		return zero, false
	}
	v.length--
	p := v.at(v.length)
	val := *p
	*p = zero
	return val, true
}

// Truncate drops every element at index n or later. Committed memory is kept.
func (v *Vec[T]) Truncate(n int) {
	v.panicIfReleased()
	if n < 0 || n >= v.length {
		return
	}
	v.zeroRange(n, v.length)
	v.length = n
}

// Clear sets the length to zero without decommitting memory, so the next
// pushes reuse committed pages.
func (v *Vec[T]) Clear() {
	v.Truncate(0)
}

// Resize sets the length to n, filling new slots with the zero value.
func (v *Vec[T]) Resize(n int) {
	if err := v.TryResize(n); err != nil {
		panic(err)
	}
}

// TryResize sets the length to n, filling new slots with the zero value.
func (v *Vec[T]) TryResize(n int) error {
	v.panicIfReleased()
	if n <= v.length {
		v.Truncate(max(n, 0))
		return nil
	}
	if err := v.ensure(n); err != nil {
		return err
	}
	v.zeroRange(v.length, n)
	v.length = n
	return nil
}

// Reserve commits room for at least additional more elements.
func (v *Vec[T]) Reserve(additional int) {
	if err := v.TryReserve(additional); err != nil {
		panic(err)
	}
}

// TryReserve commits room for at least additional more elements.
func (v *Vec[T]) TryReserve(additional int) error {
	v.panicIfReleased()
	return v.ensure(v.length + additional)
}

// Retain keeps the elements for which keep returns true, preserving order.
func (v *Vec[T]) Retain(keep func(*T) bool) {
	v.panicIfReleased()
	n := 0
	for i := 0; i < v.length; i++ {
		p := v.at(i)
		if !keep(p) {
			continue
		}
		if i != n {
			*v.at(n) = *p
		}
		n++
	}
	v.zeroRange(n, v.length)
	v.length = n
}

// All iterates over index and element pointer pairs.
func (v *Vec[T]) All() iter.Seq2[int, *T] {
	return func(yield func(int, *T) bool) {
		for i := 0; i < v.length; i++ {
			if !yield(i, v.at(i)) {
				return
			}
		}
	}
}

// Drain yields every element in order and leaves the Vec empty once the
// iteration finishes or is stopped early.
func (v *Vec[T]) Drain() iter.Seq[T] {
	return func(yield func(T) bool) {
		defer v.Clear()
		for i := 0; i < v.length; i++ {
			if !yield(*v.at(i)) {
				return
			}
		}
	}
}

// View returns elements [lo, hi). For pointer-free element types the slice
// aliases the Vec's memory and is valid until the elements are removed;
// otherwise it is a copy.
func (v *Vec[T]) View(lo, hi int) []T {
	v.panicIfReleased()
	if lo < 0 || hi < lo || hi > v.length {
		panic(fmt.Errorf("%w: view [%d:%d] of len %d", ErrIndexOutOfBounds, lo, hi, v.length))
	}
	if v.items != nil {
		return v.items[lo:hi:hi]
	}
	out := make([]T, hi-lo)
	for i := range out {
		out[i] = *v.at(lo + i)
	}
	return out
}

// ShrinkTo lowers committed memory to what minCap elements (or the current
// length, whichever is larger) need. It is the only operation that gives
// committed memory back before Release.
func (v *Vec[T]) ShrinkTo(minCap int) error {
	v.panicIfReleased()
	keep := max(minCap, v.length)
	if v.items != nil {
		target := vmem.PageAlign(keep*v.stride, v.page)
		if target >= v.committed {
			return nil
		}
		if err := v.mem.Decommit(v.block[target:v.committed]); err != nil {
			return err
		}
		v.log.Debug("decommitted", zap.Int("from", v.committed), zap.Int("to", target))
		v.committed = target
		return nil
	}
	for len(v.segs) > 0 && v.starts[len(v.starts)-1] >= keep {
		last := len(v.segs) - 1
		v.committed -= len(v.segs[last]) * v.stride
		v.segs[last] = nil
		v.segs = v.segs[:last]
		v.starts = v.starts[:last]
	}
	return nil
}

// ShrinkToFit is ShrinkTo(0).
func (v *Vec[T]) ShrinkToFit() error {
	return v.ShrinkTo(0)
}

// Release decommits all committed memory and gives the reservation back.
// The Vec must not be used afterwards.
func (v *Vec[T]) Release() error {
	if v.released {
		return nil
	}
	v.released = true
	var err error
	if v.block != nil {
		if v.committed > 0 {
			err = v.mem.Decommit(v.block[:v.committed])
		}
		if rerr := v.mem.Release(v.block); err == nil {
			err = rerr
		}
	}
	v.block, v.items = nil, nil
	v.segs, v.starts = nil, nil
	v.length, v.committed = 0, 0
	return err
}

func (v *Vec[T]) at(i int) *T {
	if v.items != nil {
		return &v.items[i]
	}
	k := sort.Search(len(v.starts), func(j int) bool { return v.starts[j] > i }) - 1
	return &v.segs[k][i-v.starts[k]]
}

func (v *Vec[T]) zeroRange(lo, hi int) {
	if lo >= hi {
		return
	}
	if v.items != nil {
		clear(v.items[lo:hi])
		return
	}
	var zero T
	for i := lo; i < hi; i++ {
		*v.at(i) = zero
	}
}

// ensure commits enough memory for n elements. Growth doubles the bytes in
// use, falls back to whatever remains of the reservation, and fails when even
// that is too small.
func (v *Vec[T]) ensure(n int) error {
	if n < 0 || n > v.reserved/v.stride {
		return fmt.Errorf("%w: %d elements of %d bytes, %d bytes reserved",
			ErrReservationExhausted, n, v.stride, v.reserved)
	}
	need := n * v.stride
	if need <= v.committed {
		return nil
	}
	used := v.length * v.stride
	target := vmem.PageAlign(max(v.committed+max(used, v.stride), need), v.page)
	if target > v.reserved {
		target = v.reserved
	}
	return v.commitTo(target)
}

func (v *Vec[T]) commitTo(target int) error {
	if target <= v.committed {
		return nil
	}
	if v.items != nil {
		if err := v.mem.Commit(v.block[v.committed:target]); err != nil {
			return err
		}
	} else {
		n := target/v.stride - v.committed/v.stride
		v.starts = append(v.starts, v.committed/v.stride)
		v.segs = append(v.segs, make([]T, n))
		target = v.committed + n*v.stride
	}
	v.log.Debug("committed",
		zap.Int("from", v.committed),
		zap.Int("to", target),
		zap.Int("reserved", v.reserved))
	v.committed = target
	return nil
}

// panicIfReleased panics if the Vec has been released.
func (v *Vec[T]) panicIfReleased() {
	if v.released {
		panic("arena: use after Release()")
	}
}
