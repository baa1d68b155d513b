package world

// Mutation is a deferred write to a World.
type Mutation interface {
	Apply(w *World)
}

// Reversible is a Mutation that can describe its own undo. Reverse is
// called before Apply and sees the World as it is then.
type Reversible interface {
	Mutation
	Reverse(v View) Mutation
}

// Reverse returns the undo of m, or Noop when m cannot describe one.
func Reverse(v View, m Mutation) Mutation {
	if r, ok := m.(Reversible); ok {
		return r.Reverse(v)
	}
	return Noop{}
}

// MutationFunc adapts a function to a Mutation.
type MutationFunc func(w *World)

func (f MutationFunc) Apply(w *World) {
	f(w)
}

// Noop changes nothing.
type Noop struct{}

func (Noop) Apply(*World) {}

func (Noop) Reverse(View) Mutation {
	return Noop{}
}

// MutationSet applies its mutations in order.
type MutationSet []Mutation

func (s MutationSet) Apply(w *World) {
	for _, m := range s {
		m.Apply(w)
	}
}

// Reverse undoes the set by undoing each mutation in reverse order.
func (s MutationSet) Reverse(v View) Mutation {
	out := make(MutationSet, len(s))
	for i, m := range s {
		out[len(s)-1-i] = Reverse(v, m)
	}
	return out
}

// SetState replaces the state of type S with Value.
type SetState[S any] struct {
	Value S
}

func (m SetState[S]) Apply(w *World) {
	AddState(w, m.Value)
}

// Reverse restores the current state. A missing state cannot be removed
// again, so its undo is Noop.
func (m SetState[S]) Reverse(v View) Mutation {
	if cur, ok := Read[S](v); ok {
		return SetState[S]{Value: *cur}
	}
	return Noop{}
}
