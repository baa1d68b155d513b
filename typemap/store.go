// Package typemap stores at most one value per Go type.
//
// A Store is an open-addressing table keyed by reflect.Type. Colliding types
// are threaded through otherwise empty buckets in a chain that starts at the
// home bucket of the first type. Values without Go pointers are copied into
// a private byte arena at aligned offsets; values with pointers are boxed.
// Entries are never removed one by one: Clear forgets all of them and
// Release runs their destructors.
//
//	s := typemap.New(0, 0)
//	typemap.Insert(s, Config{Width: 80})
//	cfg, ok := typemap.Get[Config](s)
package typemap

import (
	"fmt"
	"hash/maphash"
	"iter"
	"reflect"
	"unsafe"

	"go.uber.org/zap"

	"github.com/pavanmanishd/arena/v2"
	"github.com/pavanmanishd/arena/v2/vmem"
)

var seed = maphash.MakeSeed()

// Destroyer is implemented by values that release resources when they are
// overwritten or when their Store is released.
type Destroyer interface {
	Destroy()
}

type entry struct {
	tag   reflect.Type
	off   int // byte offset into storage, or box index
	boxed bool
	next  int // bucket of the next entry in the chain, or -1
	used  bool

	load func(*Store, *entry) any
	drop func(*Store, *entry)
}

// Store maps each Go type to at most one value.
//
// Pointers returned by Get stay valid until the Store grows, is cleared or
// is released. Growth moves pointer-free values to a new arena, so callers
// holding on to a value across inserts should use a Handle.
//
// Store is not safe for concurrent use.
type Store struct {
	log *zap.Logger

	buckets []entry
	n       int

	storage  *arena.Vec[byte] // created on first raw insert
	capBytes int
	boxes    []any

	gen      uint64
	released bool
}

// New returns a Store with room for buckets entries and storageBytes bytes
// of pointer-free values. Either may be zero; the byte arena is only
// allocated by the first insert that needs it.
func New(buckets, storageBytes int, opts ...Option) *Store {
	cfg := config{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Store{
		log:      cfg.log.Named("typemap"),
		buckets:  newBuckets(max(buckets, 0)),
		capBytes: max(storageBytes, 0),
	}
}

// TagOf returns the tag values of type T are stored under.
func TagOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// Insert stores val as the value for its type. A value already stored for
// the type is destroyed and overwritten in place; this never grows the
// Store.
func Insert[T any](s *Store, val T) {
	s.panicIfReleased()
	tag := TagOf[T]()
	if e := s.find(tag); e != nil {
		if e.drop != nil {
			e.drop(s, e)
		}
		*pointer[T](s, e) = val
		return
	}

	e := entry{tag: tag, next: -1, used: true, load: load[T], drop: destroyer[T]()}
	if boxed[T]() {
		if s.n == len(s.buckets) {
			s.grow(0)
		}
		p := new(T)
		*p = val
		e.off, e.boxed = len(s.boxes), true
		s.boxes = append(s.boxes, p)
	} else {
		need := arena.AlignUp(s.UsedStorage(), int(unsafe.Alignof(val))) + int(unsafe.Sizeof(val))
		if s.n == len(s.buckets) || need > s.capBytes {
			s.grow(need)
		}
		off, err := arena.Append(s.bytes(), val)
		if err != nil {
			// the arena was sized for need above
			panic(err)
		}
		e.off = off
	}
	s.link(e)
}

// Get returns the value stored for T.
func Get[T any](s *Store) (*T, bool) {
	s.panicIfReleased()
	e := s.find(TagOf[T]())
	if e == nil {
		return nil, false
	}
	return pointer[T](s, e), true
}

// MustGet is like Get but panics with ErrNotFound naming T when no value is
// stored.
func MustGet[T any](s *Store) *T {
	p, ok := Get[T](s)
	if !ok {
		panic(fmt.Errorf("%w: %s", ErrNotFound, TagOf[T]()))
	}
	return p
}

// Contains reports whether a value of type T is stored.
func Contains[T any](s *Store) bool {
	s.panicIfReleased()
	return s.find(TagOf[T]()) != nil
}

// GetTag returns a pointer to the value stored under tag, as an any holding
// a *T.
func (s *Store) GetTag(tag reflect.Type) (any, bool) {
	s.panicIfReleased()
	e := s.find(tag)
	if e == nil {
		return nil, false
	}
	return e.load(s, e), true
}

// Tags iterates over the tags of every stored value in bucket order.
func (s *Store) Tags() iter.Seq[reflect.Type] {
	return func(yield func(reflect.Type) bool) {
		for i := range s.buckets {
			if s.buckets[i].used && !yield(s.buckets[i].tag) {
				return
			}
		}
	}
}

// Resize rebuilds the Store with the given bucket count and storage
// capacity, keeping every value. It panics with ErrShrink when the sizes
// cannot hold the current contents.
func (s *Store) Resize(buckets, storageBytes int) {
	s.panicIfReleased()
	if buckets < s.n || storageBytes < s.UsedStorage() {
		panic(fmt.Errorf("%w: %d entries in %d buckets, %d bytes in %d",
			ErrShrink, s.n, buckets, s.UsedStorage(), storageBytes))
	}
	s.log.Debug("resize",
		zap.Int("buckets", len(s.buckets)),
		zap.Int("newBuckets", buckets),
		zap.Int("storage", s.capBytes),
		zap.Int("newStorage", storageBytes))

	if s.storage != nil && storageBytes != s.capBytes {
		next := newStorage(storageBytes)
		next.Extend(s.storage.View(0, s.storage.Len())...)
		_ = s.storage.Release()
		s.storage = next
	}
	s.capBytes = storageBytes

	old := s.buckets
	s.buckets = newBuckets(buckets)
	s.n = 0
	for i := range old {
		if old[i].used {
			e := old[i]
			e.next = -1
			s.link(e)
		}
	}
	s.gen++
}

// Clear forgets every entry without running destructors. Storage stays
// allocated for reuse. Pointers and Handles obtained earlier are invalid.
func (s *Store) Clear() {
	s.panicIfReleased()
	for i := range s.buckets {
		s.buckets[i] = entry{next: -1}
	}
	s.n = 0
	if s.storage != nil {
		s.storage.Clear()
	}
	clear(s.boxes)
	s.boxes = s.boxes[:0]
	s.gen++
}

// Release runs the destructor of every stored value and frees the Store's
// memory. The Store must not be used afterwards.
func (s *Store) Release() {
	if s.released {
		return
	}
	for i := range s.buckets {
		if e := &s.buckets[i]; e.used && e.drop != nil {
			e.drop(s, e)
		}
	}
	if s.storage != nil {
		_ = s.storage.Release()
	}
	s.storage, s.buckets, s.boxes = nil, nil, nil
	s.n = 0
	s.gen++
	s.released = true
}

func (s *Store) grow(need int) {
	buckets := max(len(s.buckets)*2, 1)
	storage := max(s.capBytes*2, 1)
	for storage < need {
		storage *= 2
	}
	s.Resize(buckets, storage)
}

func (s *Store) bytes() *arena.Vec[byte] {
	if s.storage == nil {
		s.storage = newStorage(s.capBytes)
	}
	return s.storage
}

func (s *Store) index(tag reflect.Type) int {
	return int(maphash.Comparable(seed, tag) % uint64(len(s.buckets)))
}

func (s *Store) find(tag reflect.Type) *entry {
	if s.n == 0 {
		return nil
	}
	for i := s.index(tag); i >= 0; {
		e := &s.buckets[i]
		if !e.used {
			return nil
		}
		if e.tag == tag {
			return e
		}
		i = e.next
	}
	return nil
}

// link places e in its home bucket or, when that is taken, in the first
// free bucket after it, appended to the chain running through the home
// bucket. There must be a free bucket.
func (s *Store) link(e entry) {
	home := s.index(e.tag)
	s.n++
	if !s.buckets[home].used {
		s.buckets[home] = e
		return
	}
	tail := home
	for s.buckets[tail].next >= 0 {
		tail = s.buckets[tail].next
	}
	free := home
	for s.buckets[free].used {
		free = (free + 1) % len(s.buckets)
	}
	s.buckets[free] = e
	s.buckets[tail].next = free
}

func (s *Store) panicIfReleased() {
	if s.released {
		panic(ErrReleased)
	}
}

func newBuckets(n int) []entry {
	b := make([]entry, n)
	for i := range b {
		b[i].next = -1
	}
	return b
}

// newStorage reserves from the Go heap: a pointer handed out before growth
// may still be dereferenced, so the old arena must stay valid memory.
func newStorage(capBytes int) *arena.Vec[byte] {
	return arena.MustNew[byte](
		arena.WithMemory(vmem.Heap{}),
		arena.WithReservation(max(capBytes, 1)),
	)
}

func boxed[T any]() bool {
	var zero T
	return unsafe.Sizeof(zero) == 0 || arena.HasPointers(TagOf[T]())
}

func pointer[T any](s *Store, e *entry) *T {
	if e.boxed {
		return s.boxes[e.off].(*T)
	}
	return arena.At[T](s.storage, e.off)
}

func load[T any](s *Store, e *entry) any {
	return pointer[T](s, e)
}

var destroyerType = reflect.TypeFor[Destroyer]()

// destroyer picks how to run Destroy for T: through *T when its method set
// has it, or on the stored value itself when T is a pointer or interface.
func destroyer[T any]() func(*Store, *entry) {
	t := reflect.TypeFor[T]()
	switch {
	case reflect.PointerTo(t).Implements(destroyerType):
		return func(s *Store, e *entry) {
			any(pointer[T](s, e)).(Destroyer).Destroy()
		}
	case t.Kind() == reflect.Pointer && t.Implements(destroyerType),
		t.Kind() == reflect.Interface:
		return func(s *Store, e *entry) {
			p := pointer[T](s, e)
			if reflect.ValueOf(p).Elem().IsNil() {
				return
			}
			if d, ok := any(*p).(Destroyer); ok {
				d.Destroy()
			}
		}
	}
	return nil
}
