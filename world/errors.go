package world

import "errors"

// ErrMissingState is the panic value of State when the requested state was
// never added.
var ErrMissingState = errors.New("world: missing state")
