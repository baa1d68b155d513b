package arena

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"
)

var pointerTypes sync.Map // reflect.Type -> bool

// HasPointers reports whether values of t contain Go pointers. Such values
// must not be stored in raw bytes, where the garbage collector cannot see
// them.
func HasPointers(t reflect.Type) bool {
	if v, ok := pointerTypes.Load(t); ok {
		return v.(bool)
	}
	has := hasPointers(t)
	pointerTypes.Store(t, has)
	return has
}

func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// Append copies the bytes of val onto the end of b, at the next offset
// aligned for T, and returns that offset. T must not contain pointers.
func Append[T any](b *Vec[byte], val T) (int, error) {
	if HasPointers(reflect.TypeFor[T]()) {
		return 0, fmt.Errorf("%w: %s", ErrPointerType, reflect.TypeFor[T]())
	}
	size := int(unsafe.Sizeof(val))
	off := AlignUp(b.Len(), int(unsafe.Alignof(val)))
	if err := b.TryResize(off + size); err != nil {
		return 0, err
	}
	if size > 0 {
		copy(b.items[off:off+size], unsafe.Slice((*byte)(unsafe.Pointer(&val)), size))
	}
	return off, nil
}

// At returns a *T located at byte offset off of b, or nil when the value
// would extend past b's length. The pointer stays valid while the bytes
// remain in b.
func At[T any](b *Vec[byte], off int) *T {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if off < 0 || off+size > b.Len() || b.items == nil {
		return nil
	}
	if size == 0 {
		return &zero
	}
	return (*T)(unsafe.Pointer(&b.items[off]))
}

// AlignUp rounds off up to align, which must be a power of two.
func AlignUp(off, align int) int {
	mask := align - 1
	return (off + mask) &^ mask
}
