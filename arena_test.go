package arena

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavanmanishd/arena/v2/vmem"
)

func pageSize() int {
	return vmem.System().PageSize()
}

func TestNewVec(t *testing.T) {
	page := pageSize()
	tests := []struct {
		name        string
		reservation int
		expected    int
	}{
		{"default reservation", 0, DefaultReservation},
		{"negative reservation", -1, DefaultReservation},
		{"rounded to page", 1, page},
		{"exact pages", 3 * page, 3 * page},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := New[int32](WithReservation(tt.reservation))
			require.NoError(t, err)
			defer v.Release()

			assert.Equal(t, tt.expected, v.ReservedBytes())
			assert.Zero(t, v.CommittedBytes(), "nothing is committed until first use")
			assert.Zero(t, v.Len())
		})
	}
}

func TestNewWithCapacity(t *testing.T) {
	page := pageSize()
	v, err := New[int64](WithReservation(4*page), WithCapacity(10))
	require.NoError(t, err)
	defer v.Release()

	assert.Equal(t, page, v.CommittedBytes())
	assert.Equal(t, page/8, v.Cap())

	_, err = New[int64](WithReservation(page), WithCapacity(page))
	require.ErrorIs(t, err, ErrCapacityExceedsReservation)
}

func TestVecPushGet(t *testing.T) {
	v := MustNew[int32](WithReservation(100 * 4))
	defer v.Release()

	for i := int32(0); i < 100; i++ {
		v.Push(i)
	}
	require.Equal(t, 100, v.Len())
	require.NotNil(t, v.Get(50))
	assert.Equal(t, int32(50), *v.Get(50))

	assert.Nil(t, v.Get(100), "out of bounds is absent, not a panic")
	assert.Nil(t, v.Get(-1))
}

func TestVecAddressStability(t *testing.T) {
	for _, mem := range []vmem.Memory{vmem.System(), vmem.Heap{}} {
		v := MustNew[uint64](WithMemory(mem), WithReservation(vmem.MiB))

		v.Push(7)
		first := v.Get(0)
		mid := (*uint64)(nil)
		for i := 1; i < 100_000; i++ {
			v.Push(uint64(i))
			if i == 50_000 {
				mid = v.Get(i)
			}
		}

		assert.Same(t, first, v.Get(0))
		assert.Same(t, mid, v.Get(50_000))
		assert.Equal(t, uint64(7), *first)
		assert.Equal(t, uint64(50_000), *mid)
		require.NoError(t, v.Release())
	}
}

func TestVecSegmentedAddressStability(t *testing.T) {
	v := MustNew[string](WithReservation(vmem.MiB))
	defer v.Release()

	v.Push("zero")
	first := v.Get(0)
	for i := 1; i < 10_000; i++ {
		v.Push(strconv.Itoa(i))
	}

	assert.Same(t, first, v.Get(0))
	assert.Equal(t, "zero", *first)
	assert.Equal(t, "9999", *v.Get(9999))
	assert.Greater(t, v.Metrics().Segments, 1)
}

func TestVecGrowthDoubles(t *testing.T) {
	page := pageSize()
	for _, name := range []string{"contiguous", "segmented"} {
		t.Run(name, func(t *testing.T) {
			var (
				push      func() error
				committed func() int
				release   func() error
			)
			if name == "contiguous" {
				v := MustNew[[16]byte](WithReservation(12 * page))
				push, committed, release = func() error { return v.TryPush([16]byte{}) }, v.CommittedBytes, v.Release
			} else {
				v := MustNew[[2]*int](WithReservation(12 * page))
				push, committed, release = func() error { return v.TryPush([2]*int{}) }, v.CommittedBytes, v.Release
			}
			defer release()

			perPage := page / 16
			var seen []int
			for i := 0; i < 12*perPage; i++ {
				require.NoError(t, push())
				if len(seen) == 0 || seen[len(seen)-1] != committed() {
					seen = append(seen, committed())
				}
			}
			assert.Equal(t, []int{page, 2 * page, 4 * page, 8 * page, 12 * page}, seen)

			err := push()
			require.ErrorIs(t, err, ErrReservationExhausted)
		})
	}
}

func TestVecPushPanicsWhenExhausted(t *testing.T) {
	page := pageSize()
	v := MustNew[int64](WithReservation(page))
	defer v.Release()

	for i := 0; i < page/8; i++ {
		v.Push(int64(i))
	}
	assert.Zero(t, v.RemainingSpace())

	defer func() {
		r := recover()
		require.NotNil(t, r, "Push past the reservation must panic")
		err, ok := r.(error)
		require.True(t, ok)
		assert.True(t, errors.Is(err, ErrReservationExhausted))
		assert.Equal(t, page/8, v.Len(), "failed push must not change the length")
	}()
	v.Push(-1)
}

func TestVecRemove(t *testing.T) {
	v := MustNew[int](WithReservation(vmem.MiB))
	defer v.Release()
	v.Extend(0, 1, 2, 3, 4)
	p := v.Get(1)

	got, ok := v.Remove(1)
	require.True(t, ok)
	assert.Equal(t, 1, got)
	assert.Equal(t, []int{0, 2, 3, 4}, v.View(0, v.Len()))
	assert.Same(t, p, v.Get(1), "remove shifts bytes but never moves the block")
	assert.Equal(t, 2, *p)

	_, ok = v.Remove(4)
	assert.False(t, ok)
	_, ok = v.Remove(-1)
	assert.False(t, ok)
}

func TestVecInsert(t *testing.T) {
	v := MustNew[string](WithReservation(vmem.MiB))
	defer v.Release()

	v.Push("a")
	v.Push("c")
	v.Insert(1, "b")
	v.Insert(3, "d")
	v.Insert(0, "_")
	assert.Equal(t, []string{"_", "a", "b", "c", "d"}, v.View(0, v.Len()))

	err := v.TryInsert(9, "x")
	require.ErrorIs(t, err, ErrIndexOutOfBounds)
	assert.Panics(t, func() { v.Insert(-1, "x") })
}

func TestVecSwapRemovePop(t *testing.T) {
	v := MustNew[int](WithReservation(vmem.MiB))
	defer v.Release()
	v.Extend(10, 20, 30, 40)

	got, ok := v.SwapRemove(0)
	require.True(t, ok)
	assert.Equal(t, 10, got)
	assert.Equal(t, []int{40, 20, 30}, v.View(0, v.Len()))

	got, ok = v.Pop()
	require.True(t, ok)
	assert.Equal(t, 30, got)
	assert.Equal(t, 2, v.Len())

	v.Clear()
	_, ok = v.Pop()
	assert.False(t, ok)
	_, ok = v.SwapRemove(0)
	assert.False(t, ok)
}

func TestVecClearKeepsCommitted(t *testing.T) {
	v := MustNew[int](WithReservation(vmem.MiB))
	defer v.Release()
	for i := 0; i < 5000; i++ {
		v.Push(i)
	}
	committed := v.CommittedBytes()

	v.Clear()
	assert.Zero(t, v.Len())
	assert.True(t, v.IsEmpty())
	assert.Equal(t, committed, v.CommittedBytes())

	v.Push(1)
	assert.Equal(t, committed, v.CommittedBytes())
}

func TestVecTruncateResize(t *testing.T) {
	v := MustNew[int](WithReservation(vmem.MiB))
	defer v.Release()
	v.Extend(1, 2, 3, 4)

	v.Truncate(2)
	assert.Equal(t, []int{1, 2}, v.View(0, v.Len()))
	v.Truncate(10)
	assert.Equal(t, 2, v.Len())

	v.Resize(4)
	assert.Equal(t, []int{1, 2, 0, 0}, v.View(0, v.Len()), "reused slots are zeroed")
	v.Resize(1)
	assert.Equal(t, []int{1}, v.View(0, v.Len()))
}

func TestVecRetain(t *testing.T) {
	v := MustNew[*int](WithReservation(vmem.MiB))
	defer v.Release()
	for i := 0; i < 10; i++ {
		n := i
		v.Push(&n)
	}

	v.Retain(func(p **int) bool { return **p%3 == 0 })
	require.Equal(t, 4, v.Len())
	for i, want := range []int{0, 3, 6, 9} {
		assert.Equal(t, want, **v.Get(i))
	}
}

func TestVecIterators(t *testing.T) {
	v := MustNew[int](WithReservation(vmem.MiB))
	defer v.Release()
	v.Extend(1, 2, 3)

	sum := 0
	for i, p := range v.All() {
		*p *= 10
		sum += i
	}
	assert.Equal(t, 3, sum)

	var drained []int
	for x := range v.Drain() {
		drained = append(drained, x)
	}
	assert.Equal(t, []int{10, 20, 30}, drained)
	assert.Zero(t, v.Len())

	v.Extend(1, 2, 3)
	for range v.Drain() {
		break
	}
	assert.Zero(t, v.Len(), "stopping a drain early still empties the Vec")
}

func TestVecView(t *testing.T) {
	v := MustNew[byte](WithReservation(vmem.MiB))
	defer v.Release()
	v.Extend([]byte("hello")...)

	view := v.View(1, 4)
	assert.Equal(t, []byte("ell"), view)
	view[0] = 'a'
	assert.Equal(t, byte('a'), *v.Get(1), "pointer-free views alias the Vec")

	s := MustNew[string](WithReservation(vmem.MiB))
	defer s.Release()
	s.Extend("x", "y")
	copied := s.View(0, 2)
	copied[0] = "z"
	assert.Equal(t, "x", *s.Get(0))

	assert.Panics(t, func() { v.View(3, 9) })
}

func TestVecShrinkTo(t *testing.T) {
	page := pageSize()

	t.Run("contiguous", func(t *testing.T) {
		v := MustNew[byte](WithReservation(64 * page))
		defer v.Release()
		v.Resize(10 * page)
		v.Truncate(page / 2)
		committed := v.CommittedBytes()

		require.NoError(t, v.ShrinkTo(2*page))
		assert.Equal(t, 2*page, v.CommittedBytes())
		assert.Less(t, v.CommittedBytes(), committed)

		require.NoError(t, v.ShrinkToFit())
		assert.Equal(t, page, v.CommittedBytes())

		v.Resize(3 * page)
		assert.GreaterOrEqual(t, v.CommittedBytes(), 3*page)
	})

	t.Run("segmented", func(t *testing.T) {
		v := MustNew[*int](WithReservation(64 * page))
		defer v.Release()
		for i := 0; i < 4*page/8; i++ {
			v.Push(nil)
		}
		segs := v.Metrics().Segments
		v.Truncate(1)
		require.NoError(t, v.ShrinkToFit())
		assert.Equal(t, 1, v.Metrics().Segments)
		assert.Less(t, 1, segs)
		assert.NotNil(t, v.Get(0))
	})
}

func TestVecZeroSizeElements(t *testing.T) {
	v := MustNew[struct{}](WithReservation(vmem.MiB))
	defer v.Release()
	for i := 0; i < 1000; i++ {
		v.Push(struct{}{})
	}
	assert.Equal(t, 1000, v.Len())
	assert.NotNil(t, v.Get(999))
}

func TestVecRelease(t *testing.T) {
	v := MustNew[int](WithReservation(vmem.MiB))
	v.Push(1)

	require.NoError(t, v.Release())
	assert.Zero(t, v.CommittedBytes())
	require.NoError(t, v.Release(), "releasing twice is harmless")

	assert.PanicsWithValue(t, "arena: use after Release()", func() { v.Push(2) })
}
