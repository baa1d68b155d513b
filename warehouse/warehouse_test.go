package warehouse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavanmanishd/arena/v2"
	"github.com/pavanmanishd/arena/v2/vmem"
)

type buffer struct {
	data []byte
	id   int
}

func (b *buffer) Reset() {
	b.data = b.data[:0]
}

type counter struct {
	n int
}

func (c *counter) Reset() {
	c.n = 0
}

func newWarehouse[T any](t *testing.T, build func() T) *Warehouse[T] {
	t.Helper()
	w, err := New(build, arena.WithReservation(vmem.MiB))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Release() })
	return w
}

func TestTakeBuildsWhenEmpty(t *testing.T) {
	built := 0
	w := newWarehouse(t, func() *buffer {
		built++
		return &buffer{id: built}
	})

	a := w.Take()
	b := w.Take()
	assert.Equal(t, 2, built)
	assert.NotSame(t, a, b)
	assert.Zero(t, w.Len())
}

func TestReturnResetsAndReuses(t *testing.T) {
	w := newWarehouse(t, func() *buffer { return &buffer{} })

	b := w.Take()
	b.data = append(b.data, "hello"...)
	w.Return(b)
	require.Equal(t, 1, w.Len())

	again := w.Take()
	assert.Same(t, b, again)
	assert.Empty(t, again.data)
	assert.GreaterOrEqual(t, cap(again.data), 5, "reset keeps the allocation")
}

func TestTakeIsLIFO(t *testing.T) {
	w := newWarehouse(t, func() *buffer { return &buffer{} })

	first, second := &buffer{id: 1}, &buffer{id: 2}
	w.Return(first)
	w.Return(second)

	assert.Same(t, second, w.Take())
	assert.Same(t, first, w.Take())
}

func TestValueResetter(t *testing.T) {
	w := newWarehouse(t, func() counter { return counter{} })

	w.Return(counter{n: 5})
	assert.Equal(t, counter{}, w.Take())
}

func TestLease(t *testing.T) {
	w := newWarehouse(t, func() []int { return make([]int, 0, 8) })

	l := w.Get()
	*l.Value() = append(*l.Value(), 1, 2)
	l.Release()
	l.Release()
	assert.Equal(t, 1, w.Len(), "releasing twice returns once")

	got := w.Take()
	assert.Equal(t, []int{1, 2}, got, "slices carry no Reset")
}
