// Package msgbus queues messages of any type in one byte buffer and
// delivers them to handlers registered per message type.
//
// Each message is written as a frame: a little endian u32 tag index, a u32
// payload length, and the payload. Frames start on 8 byte boundaries so
// payloads can be read in place. Messages without Go pointers are copied
// into the payload; other messages are kept in a side table and the payload
// holds their index.
//
//	bus, _ := msgbus.New[*World]()
//	msgbus.Handle(bus, func(w *World, m Resize) { w.width = m.Width })
//	msgbus.MustSend(bus, Resize{Width: 80})
//	bus.Drain(world)
package msgbus

import (
	"encoding/binary"
	"fmt"
	"reflect"
	"unsafe"

	"go.uber.org/zap"

	"github.com/pavanmanishd/arena/v2"
	"github.com/pavanmanishd/arena/v2/typemap"
)

const (
	headerSize = 8
	frameAlign = 8
)

// Handler handles messages of type M sent to a Bus[S].
type Handler[S, M any] func(S, M)

// codecRef is the key under which the tag index of M is interned.
type codecRef[M any] struct {
	index uint32
}

type codec[S any] struct {
	tag     reflect.Type
	deliver func(b *Bus[S], s S, frame []byte, boxes *arena.Vec[any]) bool
}

// Bus delivers messages to handlers in the order they were sent. S is the
// value handed to every handler, usually the store handlers mutate.
//
// Bus is not safe for concurrent use.
type Bus[S any] struct {
	log *zap.Logger

	handlers *typemap.Store
	codecs   *typemap.Store
	table    []codec[S]

	pending, spare    *arena.Vec[byte]
	boxes, spareBoxes *arena.Vec[any]
	frames            int
	draining          bool
	released          bool
}

// New creates an empty Bus. opts configure the message buffers.
func New[S any](opts ...arena.Option) (*Bus[S], error) {
	log := arena.NewConfig(opts...).Logger.Named("msgbus")
	b := &Bus[S]{
		log:      log,
		handlers: typemap.New(0, 0, typemap.WithLogger(log)),
		codecs:   typemap.New(0, 0, typemap.WithLogger(log)),
	}

	var err error
	if b.pending, b.boxes, err = newQueue(opts...); err != nil {
		return nil, err
	}
	if b.spare, b.spareBoxes, err = newQueue(opts...); err != nil {
		_ = b.pending.Release()
		_ = b.boxes.Release()
		return nil, err
	}
	return b, nil
}

func newQueue(opts ...arena.Option) (*arena.Vec[byte], *arena.Vec[any], error) {
	buf, err := arena.New[byte](opts...)
	if err != nil {
		return nil, nil, err
	}
	boxes, err := arena.New[any](opts...)
	if err != nil {
		_ = buf.Release()
		return nil, nil, err
	}
	return buf, boxes, nil
}

// Handle registers fn for messages of type M, replacing any handler
// registered before.
func Handle[S, M any](b *Bus[S], fn Handler[S, M]) {
	b.panicIfReleased()
	tagIndex[S, M](b)
	typemap.Insert(b.handlers, fn)
}

// Send queues m. It fails when the message buffer's reservation is
// exhausted, in which case nothing is queued.
func Send[S, M any](b *Bus[S], m M) error {
	b.panicIfReleased()
	tag := tagIndex[S, M](b)
	buf := b.pending

	start := buf.Len()
	if err := buf.TryResize(arena.AlignUp(start, frameAlign) + headerSize); err != nil {
		return err
	}
	header := buf.Len() - headerSize

	var size int
	if boxed[M]() {
		if err := b.boxes.TryPush(m); err != nil {
			buf.Truncate(start)
			return err
		}
		off, err := arena.Append(buf, uint32(b.boxes.Len()-1))
		if err != nil {
			_, _ = b.boxes.Pop()
			buf.Truncate(start)
			return err
		}
		size = buf.Len() - off
	} else {
		off, err := arena.Append(buf, m)
		if err != nil {
			buf.Truncate(start)
			return err
		}
		size = buf.Len() - off
	}

	h := buf.View(header, header+headerSize)
	binary.LittleEndian.PutUint32(h[0:4], tag)
	binary.LittleEndian.PutUint32(h[4:8], uint32(size))
	b.frames++
	return nil
}

// MustSend is like Send but panics on error.
func MustSend[S, M any](b *Bus[S], m M) {
	if err := Send(b, m); err != nil {
		panic(err)
	}
}

// Drain delivers every queued message to its handler in send order and
// returns the number of frames walked. Messages sent by handlers are queued
// for the next Drain. Messages without a handler are dropped.
//
// Drain called from inside a handler returns 0 without delivering.
func (b *Bus[S]) Drain(s S) int {
	b.panicIfReleased()
	if b.draining || b.frames == 0 {
		return 0
	}
	b.draining = true
	b.pending, b.spare = b.spare, b.pending
	b.boxes, b.spareBoxes = b.spareBoxes, b.boxes
	b.frames = 0

	buf, boxes := b.spare, b.spareBoxes
	defer func() {
		buf.Clear()
		boxes.Clear()
		b.draining = false
	}()

	n := 0
	for pos := 0; pos < buf.Len(); {
		pos = arena.AlignUp(pos, frameAlign)
		h := buf.View(pos, pos+headerSize)
		tag := binary.LittleEndian.Uint32(h[0:4])
		size := int(binary.LittleEndian.Uint32(h[4:8]))

		c := &b.table[tag]
		if !c.deliver(b, s, buf.View(pos+headerSize, pos+headerSize+size), boxes) {
			b.log.Debug("no handler", zap.Stringer("message", c.tag))
		}
		pos += headerSize + size
		n++
	}
	return n
}

// Pending returns the number of queued messages.
func (b *Bus[S]) Pending() int {
	return b.frames
}

// Release frees the Bus. Queued messages are dropped.
func (b *Bus[S]) Release() error {
	if b.released {
		return nil
	}
	b.released = true
	b.handlers.Release()
	b.codecs.Release()
	var err error
	for _, v := range []*arena.Vec[byte]{b.pending, b.spare} {
		if rerr := v.Release(); err == nil {
			err = rerr
		}
	}
	for _, v := range []*arena.Vec[any]{b.boxes, b.spareBoxes} {
		if rerr := v.Release(); err == nil {
			err = rerr
		}
	}
	b.frames = 0
	return err
}

func (b *Bus[S]) panicIfReleased() {
	if b.released {
		panic("msgbus: use after Release()")
	}
}

// tagIndex interns M in the codec table.
func tagIndex[S, M any](b *Bus[S]) uint32 {
	if ref, ok := typemap.Get[codecRef[M]](b.codecs); ok {
		return ref.index
	}
	idx := uint32(len(b.table))
	b.table = append(b.table, codec[S]{tag: reflect.TypeFor[M](), deliver: deliver[S, M]})
	typemap.Insert(b.codecs, codecRef[M]{index: idx})
	return idx
}

func deliver[S, M any](b *Bus[S], s S, payload []byte, boxes *arena.Vec[any]) bool {
	h, ok := typemap.Get[Handler[S, M]](b.handlers)
	if !ok {
		return false
	}
	var m M
	if boxed[M]() {
		idx := binary.NativeEndian.Uint32(payload)
		m = (*boxes.Get(int(idx))).(M)
	} else if len(payload) > 0 {
		m = *(*M)(unsafe.Pointer(unsafe.SliceData(payload)))
	}
	(*h)(s, m)
	return true
}

func boxed[M any]() bool {
	return arena.HasPointers(reflect.TypeFor[M]())
}

// String describes the queue for debugging.
func (b *Bus[S]) String() string {
	return fmt.Sprintf("msgbus: %d frames, %d bytes queued", b.frames, b.pending.Len())
}
