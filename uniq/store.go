// Package uniq keeps state for call sites that come and go, such as a
// widget redrawn every frame. Each slot is addressed by a numeric Key that
// the caller derives, usually with Here, and survives for the lifetime of
// the Store.
//
//	s, _ := uniq.New()
//	clicks := uniq.GetOrDefault[int](s, uniq.Here())
//	*clicks++
//
// Two call sites that compute the same Key share one slot. The Store cannot
// detect this unless the value types differ.
package uniq

import (
	"fmt"
	"hash/maphash"
	"reflect"
	"unsafe"

	"go.uber.org/zap"

	"github.com/pavanmanishd/arena/v2"
)

type entry struct {
	key   Key
	typ   uint64 // hash of the value type
	off   int    // byte offset, or box index
	next  int    // bucket of the next entry in the chain, 0 when unset
	boxed bool
	used  bool
}

// Store maps Keys to values of any type. Values never move: the pointer
// returned for a Key stays valid until the Store is released.
//
// Store is not safe for concurrent use.
type Store struct {
	log  *zap.Logger
	opts []arena.Option

	buckets *arena.Vec[entry]
	n       int

	bytes *arena.Vec[byte]
	boxes *arena.Vec[any]

	released bool
}

// New creates a Store with DefaultBuckets buckets unless configured
// otherwise.
func New(opts ...Option) (*Store, error) {
	cfg := config{buckets: DefaultBuckets}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Store{
		log:  arena.NewConfig(cfg.arena...).Logger.Named("uniq"),
		opts: cfg.arena,
	}
	var err error
	if s.buckets, err = s.newBuckets(cfg.buckets); err != nil {
		return nil, err
	}
	if s.bytes, err = arena.New[byte](s.opts...); err != nil {
		_ = s.buckets.Release()
		return nil, err
	}
	if s.boxes, err = arena.New[any](s.opts...); err != nil {
		_ = s.buckets.Release()
		_ = s.bytes.Release()
		return nil, err
	}
	return s, nil
}

// GetOrInsert returns the value stored under key, first storing the result
// of def when the key is new. def may itself use the Store.
//
// It panics with ErrKeyTypeMismatch when key holds a value of another type.
func GetOrInsert[T any](s *Store, key Key, def func() T) *T {
	if p, ok := Lookup[T](s, key); ok {
		return p
	}
	val := def()
	// def may have inserted key itself
	if p, ok := Lookup[T](s, key); ok {
		return p
	}

	if s.n == s.buckets.Len() {
		s.grow()
	}
	e := entry{key: key, typ: typeHash[T](), used: true}
	if boxed[T]() {
		p := new(T)
		*p = val
		e.off, e.boxed = s.boxes.Len(), true
		s.boxes.Push(p)
	} else {
		off, err := arena.Append(s.bytes, val)
		if err != nil {
			panic(err)
		}
		e.off = off
	}
	s.link(e)
	return pointer[T](s, &e)
}

// GetOrDefault is GetOrInsert with the zero value of T as the default.
func GetOrDefault[T any](s *Store, key Key) *T {
	return GetOrInsert(s, key, func() T {
		var zero T
		return zero
	})
}

// Lookup returns the value stored under key without inserting.
//
// It panics with ErrKeyTypeMismatch when key holds a value of another type.
func Lookup[T any](s *Store, key Key) (*T, bool) {
	s.panicIfReleased()
	e := s.find(key)
	if e == nil {
		return nil, false
	}
	if e.typ != typeHash[T]() {
		s.log.Debug("key type mismatch",
			zap.Uint64("key", uint64(key)),
			zap.Stringer("type", reflect.TypeFor[T]()))
		panic(fmt.Errorf("%w: key %#x requested as %s", ErrKeyTypeMismatch, uint64(key), reflect.TypeFor[T]()))
	}
	return pointer[T](s, e), true
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	return s.n
}

// Buckets returns the bucket count.
func (s *Store) Buckets() int {
	return s.buckets.Len()
}

// Release frees the Store's vectors. Pointers obtained from the Store must
// not be used afterwards.
func (s *Store) Release() error {
	s.released = true
	err := s.buckets.Release()
	if berr := s.bytes.Release(); err == nil {
		err = berr
	}
	if berr := s.boxes.Release(); err == nil {
		err = berr
	}
	s.n = 0
	return err
}

func (s *Store) newBuckets(n int) (*arena.Vec[entry], error) {
	b, err := arena.New[entry](s.opts...)
	if err != nil {
		return nil, err
	}
	if err := b.TryResize(n); err != nil {
		_ = b.Release()
		return nil, err
	}
	return b, nil
}

// grow moves every entry into a bucket vector twice the size. Values stay
// where they are.
func (s *Store) grow() {
	old := s.buckets
	next, err := s.newBuckets(max(old.Len()*2, 1))
	if err != nil {
		panic(err)
	}
	s.log.Debug("grow", zap.Int("buckets", old.Len()), zap.Int("newBuckets", next.Len()))

	s.buckets, s.n = next, 0
	for _, e := range old.All() {
		if e.used {
			moved := *e
			moved.next = 0
			s.link(moved)
		}
	}
	_ = old.Release()
}

func (s *Store) index(key Key) int {
	return int(uint64(key) % uint64(s.buckets.Len()))
}

func (s *Store) find(key Key) *entry {
	if s.n == 0 {
		return nil
	}
	e := s.buckets.Get(s.index(key))
	for e.used {
		if e.key == key {
			return e
		}
		if e.next == 0 {
			break
		}
		e = s.buckets.Get(e.next - 1)
	}
	return nil
}

// link places e in its home bucket or in the first free bucket after it,
// appended to the chain through the home bucket. Links are stored one-based
// so zeroed buckets have no successor.
func (s *Store) link(e entry) {
	n := s.buckets.Len()
	home := s.index(e.key)
	s.n++
	if !s.buckets.Get(home).used {
		s.buckets.Set(home, e)
		return
	}
	tail := s.buckets.Get(home)
	for tail.next != 0 {
		tail = s.buckets.Get(tail.next - 1)
	}
	free := home
	for s.buckets.Get(free).used {
		free = (free + 1) % n
	}
	s.buckets.Set(free, e)
	tail.next = free + 1
}

func (s *Store) panicIfReleased() {
	if s.released {
		panic("uniq: use after Release()")
	}
}

func typeHash[T any]() uint64 {
	return maphash.Comparable(seed, reflect.TypeFor[T]())
}

func boxed[T any]() bool {
	var zero T
	return unsafe.Sizeof(zero) == 0 || arena.HasPointers(reflect.TypeFor[T]())
}

func pointer[T any](s *Store, e *entry) *T {
	if e.boxed {
		return (*s.boxes.Get(e.off)).(*T)
	}
	return arena.At[T](s.bytes, e.off)
}
