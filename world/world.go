// Package world ties the stores together into the state container of an
// application: singleton states and plugins keyed by type, per call site
// state, a message bus and a queue of deferred mutations.
//
// A World has a single writer. Work that runs in parallel receives a
// read-only View and describes its writes as a Mutation, which the owning
// goroutine applies afterwards.
package world

import (
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/pavanmanishd/arena/v2"
	"github.com/pavanmanishd/arena/v2/msgbus"
	"github.com/pavanmanishd/arena/v2/typemap"
	"github.com/pavanmanishd/arena/v2/uniq"
	"github.com/pavanmanishd/arena/v2/warehouse"
)

// Plugin sets up a World, usually by adding states and message handlers.
type Plugin interface {
	Load(w *World)
}

// World owns every store of an application.
type World struct {
	log *zap.Logger

	states  *typemap.Store
	plugins *typemap.Store
	uniq    *uniq.Store
	bus     *msgbus.Bus[*World]

	mutations *arena.Vec[Mutation]
	batches   *warehouse.Warehouse[[]Mutation]
}

// New creates an empty World.
func New(opts ...Option) (*World, error) {
	cfg := config{
		states:        DefaultStates,
		plugins:       DefaultPlugins,
		statesMemory:  DefaultStatesMemory,
		pluginsMemory: DefaultPluginsMemory,
		log:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	aopts := append(slices.Clone(cfg.arena), arena.WithLogger(cfg.log))

	w := &World{
		log:     cfg.log.Named("world"),
		states:  typemap.New(cfg.states, cfg.statesMemory, typemap.WithLogger(cfg.log)),
		plugins: typemap.New(cfg.plugins, cfg.pluginsMemory, typemap.WithLogger(cfg.log)),
	}

	var err error
	if w.uniq, err = uniq.New(uniq.WithArena(aopts...)); err != nil {
		return nil, err
	}
	if w.bus, err = msgbus.New[*World](aopts...); err != nil {
		w.Release()
		return nil, err
	}
	if w.mutations, err = arena.New[Mutation](aopts...); err != nil {
		w.Release()
		return nil, err
	}
	if w.batches, err = warehouse.New(func() []Mutation { return nil }, aopts...); err != nil {
		w.Release()
		return nil, err
	}
	return w, nil
}

// MustNew is like New but panics on error.
func MustNew(opts ...Option) *World {
	w, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return w
}

// AddState stores s as the World's state of type S, replacing any state of
// that type.
func AddState[S any](w *World, s S) *World {
	typemap.Insert(w.states, s)
	return w
}

// State returns the state of type S. It panics with ErrMissingState when no
// such state was added. The pointer is valid until the next AddState, which
// may move pointer-free states; use StateRef to keep tracking the
// state across additions.
func State[S any](w *World) *S {
	s, ok := typemap.Get[S](w.states)
	if !ok {
		panic(fmt.Errorf("%w: %s was never added, did you forget to load a plugin?",
			ErrMissingState, typemap.TagOf[S]()))
	}
	return s
}

// TryState returns the state of type S if it was added. The pointer has the
// same lifetime as the one State returns.
func TryState[S any](w *World) (*S, bool) {
	return typemap.Get[S](w.states)
}

// StateRef returns a handle that re-resolves the state of type S after the
// states store grows.
func StateRef[S any](w *World) typemap.Handle[S] {
	return typemap.Ref[S](w.states)
}

// LoadPlugin loads p unless a plugin of type P is already loaded.
func LoadPlugin[P Plugin](w *World, p P) *World {
	if typemap.Contains[P](w.plugins) {
		return w
	}
	p.Load(w)
	typemap.Insert(w.plugins, p)
	w.log.Debug("plugin loaded", zap.Stringer("plugin", typemap.TagOf[P]()))
	return w
}

// HasPlugin reports whether a plugin of type P was loaded.
func HasPlugin[P Plugin](w *World) bool {
	return typemap.Contains[P](w.plugins)
}

// Uniq returns the World's per call site store.
func (w *World) Uniq() *uniq.Store {
	return w.uniq
}

// Handle registers fn for messages of type M.
func Handle[M any](w *World, fn func(*World, M)) {
	msgbus.Handle(w.bus, msgbus.Handler[*World, M](fn))
}

// Send queues m for the next ProcessMessages.
func Send[M any](w *World, m M) error {
	return msgbus.Send(w.bus, m)
}

// ProcessMessages delivers the queued messages and returns how many were
// walked. Messages sent by handlers wait for the next call.
func (w *World) ProcessMessages() int {
	return w.bus.Drain(w)
}

// QueueMutation defers m until the next ApplyMutations.
func (w *World) QueueMutation(m Mutation) {
	w.mutations.Push(m)
}

// ApplyMutations applies queued mutations in the order they were queued,
// including those queued while applying.
func (w *World) ApplyMutations() {
	for i := 0; i < w.mutations.Len(); i++ {
		m := *w.mutations.Get(i)
		m.Apply(w)
	}
	w.mutations.Clear()
}

// Execute runs fn with write access, then applies its mutation and any
// mutation queued on the way.
func (w *World) Execute(fn func(*World) Mutation) {
	if m := fn(w); m != nil {
		w.QueueMutation(m)
	}
	w.ApplyMutations()
}

// ExecuteParallel runs every fn on its own goroutine with a read-only View.
// Once all have returned, their mutations are applied on the calling
// goroutine in argument order. A panic in any fn is raised again here after
// the others finish, and no mutation is applied.
func (w *World) ExecuteParallel(fns ...func(View) Mutation) {
	results := w.batches.Take()
	results = slices.Grow(results[:0], len(fns))[:len(fns)]
	defer func() {
		clear(results)
		w.batches.Return(results[:0])
	}()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		failure any
	)
	view := w.View()
	for i, fn := range fns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					if failure == nil {
						failure = r
					}
					mu.Unlock()
				}
			}()
			results[i] = fn(view)
		}()
	}
	wg.Wait()
	if failure != nil {
		panic(failure)
	}

	for _, m := range results {
		if m != nil {
			w.QueueMutation(m)
		}
	}
	w.ApplyMutations()
}

// Release runs the destructors of states and plugins and frees the World.
func (w *World) Release() {
	w.states.Release()
	w.plugins.Release()
	if w.uniq != nil {
		_ = w.uniq.Release()
	}
	if w.bus != nil {
		_ = w.bus.Release()
	}
	if w.mutations != nil {
		_ = w.mutations.Release()
	}
	if w.batches != nil {
		_ = w.batches.Release()
	}
}
