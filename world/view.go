package world

import (
	"github.com/pavanmanishd/arena/v2/typemap"
)

// View is read-only access to a World, safe to share between goroutines
// while no one writes to the World.
type View struct {
	w *World
}

// View returns read-only access to w.
func (w *World) View() View {
	return View{w: w}
}

// Read returns the state of type S if it was added. The state must not be
// modified through the returned pointer.
// It is valid until the next AddState.
func Read[S any](v View) (*S, bool) {
	return typemap.Get[S](v.w.states)
}

// Loaded reports whether a plugin of type P was loaded.
func Loaded[P Plugin](v View) bool {
	return typemap.Contains[P](v.w.plugins)
}
