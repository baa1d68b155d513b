package arena

import (
	"reflect"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavanmanishd/arena/v2/vmem"
)

type testStruct struct {
	a int64
	b int32
	c int16
	d int8
}

func TestHasPointers(t *testing.T) {
	type flat struct {
		A int64
		B [4]float32
		C struct{ D uint8 }
	}
	type nested struct {
		A int
		B [2]struct{ S string }
	}

	tests := []struct {
		typ  reflect.Type
		want bool
	}{
		{reflect.TypeFor[int](), false},
		{reflect.TypeFor[uintptr](), false},
		{reflect.TypeFor[complex128](), false},
		{reflect.TypeFor[testStruct](), false},
		{reflect.TypeFor[flat](), false},
		{reflect.TypeFor[[0]*int](), false},
		{reflect.TypeFor[struct{}](), false},
		{reflect.TypeFor[*int](), true},
		{reflect.TypeFor[string](), true},
		{reflect.TypeFor[[]byte](), true},
		{reflect.TypeFor[map[int]int](), true},
		{reflect.TypeFor[func()](), true},
		{reflect.TypeFor[any](), true},
		{reflect.TypeFor[nested](), true},
		{reflect.TypeFor[unsafe.Pointer](), true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HasPointers(tt.typ), "HasPointers(%s)", tt.typ)
		// cached answer
		assert.Equal(t, tt.want, HasPointers(tt.typ), "HasPointers(%s) cached", tt.typ)
	}
}

func TestAppendAt(t *testing.T) {
	b := MustNew[byte](WithReservation(vmem.MiB))
	defer b.Release()

	off8, err := Append(b, int8(-3))
	require.NoError(t, err)
	offS, err := Append(b, testStruct{a: 1, b: 2, c: 3, d: 4})
	require.NoError(t, err)
	off32, err := Append(b, int32(99))
	require.NoError(t, err)

	assert.Zero(t, off8)
	assert.Zero(t, offS%int(unsafe.Alignof(testStruct{})), "struct offset is aligned")
	assert.Zero(t, off32%4)

	assert.Equal(t, int8(-3), *At[int8](b, off8))
	assert.Equal(t, testStruct{a: 1, b: 2, c: 3, d: 4}, *At[testStruct](b, offS))
	assert.Equal(t, int32(99), *At[int32](b, off32))

	// Writes through the view land in the arena.
	*At[int32](b, off32) = 100
	assert.Equal(t, int32(100), *At[int32](b, off32))

	assert.Nil(t, At[int64](b, b.Len()-4), "a view past the end is absent")
	assert.Nil(t, At[int8](b, -1))
}

func TestAppendAlignmentInMemory(t *testing.T) {
	b := MustNew[byte](WithReservation(vmem.MiB))
	defer b.Release()

	for i := 0; i < 100; i++ {
		_, err := Append(b, byte(i))
		require.NoError(t, err)
		off, err := Append(b, uint64(i))
		require.NoError(t, err)
		addr := uintptr(unsafe.Pointer(At[uint64](b, off)))
		require.Zero(t, addr%unsafe.Alignof(uint64(0)), "uint64 %d not properly aligned: %x", i, addr)
	}
}

func TestAppendRejectsPointers(t *testing.T) {
	b := MustNew[byte](WithReservation(vmem.MiB))
	defer b.Release()

	_, err := Append(b, "text")
	require.ErrorIs(t, err, ErrPointerType)
	_, err = Append(b, &testStruct{})
	require.ErrorIs(t, err, ErrPointerType)
	assert.Zero(t, b.Len())
}

func TestAppendExhausted(t *testing.T) {
	page := pageSize()
	b := MustNew[byte](WithReservation(page))
	defer b.Release()

	_, err := Append(b, [1]byte{})
	require.NoError(t, err)
	_, err = Append(b, make([]byte, 0))
	require.ErrorIs(t, err, ErrPointerType)

	var big [64]byte
	for i := 0; i < page/64-1; i++ {
		_, err = Append(b, big)
		require.NoError(t, err)
	}
	_, err = Append(b, big)
	require.ErrorIs(t, err, ErrReservationExhausted)
}

func TestAlignUp(t *testing.T) {
	tests := []struct {
		off, align, expected int
	}{
		{0, 8, 0},
		{1, 8, 8},
		{8, 8, 8},
		{9, 8, 16},
		{3, 1, 3},
		{5, 4, 8},
	}

	for _, tt := range tests {
		if got := AlignUp(tt.off, tt.align); got != tt.expected {
			t.Errorf("AlignUp(%d, %d) = %d, want %d", tt.off, tt.align, got, tt.expected)
		}
	}
}
