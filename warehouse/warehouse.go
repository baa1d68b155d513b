// Package warehouse pools reusable instances in an arena.Vec.
package warehouse

import (
	"github.com/pavanmanishd/arena/v2"
)

// Resetter is implemented by instances that clear their state when they are
// returned.
type Resetter interface {
	Reset()
}

// Warehouse hands out stored instances and builds new ones when it is
// empty. The most recently returned instance is taken first.
//
// Warehouse is not safe for concurrent use.
type Warehouse[T any] struct {
	build func() T
	stock *arena.Vec[T]
}

// New creates an empty Warehouse that builds instances with build.
func New[T any](build func() T, opts ...arena.Option) (*Warehouse[T], error) {
	stock, err := arena.New[T](opts...)
	if err != nil {
		return nil, err
	}
	return &Warehouse[T]{build: build, stock: stock}, nil
}

// Take removes a stored instance or builds a new one.
func (w *Warehouse[T]) Take() T {
	if v, ok := w.stock.Pop(); ok {
		return v
	}
	return w.build()
}

// Return resets v and stores it for the next Take. If the stock's
// reservation is full, v is dropped.
func (w *Warehouse[T]) Return(v T) {
	if r, ok := any(&v).(Resetter); ok {
		r.Reset()
	} else if r, ok := any(v).(Resetter); ok {
		r.Reset()
	}
	_ = w.stock.TryPush(v)
}

// Get takes an instance wrapped in a Lease that returns it on Release.
func (w *Warehouse[T]) Get() *Lease[T] {
	return &Lease[T]{w: w, val: w.Take()}
}

// Len returns the number of stored instances.
func (w *Warehouse[T]) Len() int {
	return w.stock.Len()
}

// Release drops every stored instance and frees the stock.
func (w *Warehouse[T]) Release() error {
	return w.stock.Release()
}

// Lease is an instance on loan from a Warehouse.
type Lease[T any] struct {
	w    *Warehouse[T]
	val  T
	done bool
}

// Value returns the leased instance. It must not be used after Release.
func (l *Lease[T]) Value() *T {
	return &l.val
}

// Release returns the instance to its Warehouse. Releasing twice is a
// no-op.
func (l *Lease[T]) Release() {
	if l.done {
		return
	}
	l.done = true
	l.w.Return(l.val)
	var zero T
	l.val = zero
}
