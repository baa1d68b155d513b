package uniq

import "errors"

// ErrKeyTypeMismatch is the panic value when a key is used with a value
// type other than the one it was first inserted with.
var ErrKeyTypeMismatch = errors.New("uniq: key reused with a different type")
