package uniq

import (
	"go.uber.org/zap"

	"github.com/pavanmanishd/arena/v2"
	"github.com/pavanmanishd/arena/v2/vmem"
)

// DefaultBuckets is the initial bucket count of a Store.
const DefaultBuckets = 4

type config struct {
	buckets int
	arena   []arena.Option
}

// Option configures a Store.
type Option func(*config)

// WithBuckets sets the initial bucket count. If n <= 0, DefaultBuckets is
// used.
func WithBuckets(n int) Option {
	return func(c *config) {
		if n <= 0 {
			n = DefaultBuckets
		}
		c.buckets = n
	}
}

// WithMemory selects the virtual memory backing the Store's vectors.
func WithMemory(m vmem.Memory) Option {
	return WithArena(arena.WithMemory(m))
}

// WithReservation sets the reservation of each of the Store's vectors.
func WithReservation(bytes int) Option {
	return WithArena(arena.WithReservation(bytes))
}

// WithLogger sets the logger of the Store and its vectors.
func WithLogger(l *zap.Logger) Option {
	return WithArena(arena.WithLogger(l))
}

// WithArena passes options through to every vector the Store creates.
func WithArena(opts ...arena.Option) Option {
	return func(c *config) {
		c.arena = append(c.arena, opts...)
	}
}
