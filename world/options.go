package world

import (
	"go.uber.org/zap"

	"github.com/pavanmanishd/arena/v2"
)

// Default capacities of a World's stores.
const (
	DefaultStates        = 100
	DefaultPlugins       = 10
	DefaultStatesMemory  = 1000 // bytes
	DefaultPluginsMemory = 100  // bytes
)

type config struct {
	states, plugins             int
	statesMemory, pluginsMemory int
	arena                       []arena.Option
	log                         *zap.Logger
}

// Option configures a World.
type Option func(*config)

// WithCapacities sizes the state and plugin stores up front. Values <= 0
// keep the defaults.
func WithCapacities(states, plugins, statesMemory, pluginsMemory int) Option {
	return func(c *config) {
		set := func(dst *int, v int) {
			if v > 0 {
				*dst = v
			}
		}
		set(&c.states, states)
		set(&c.plugins, plugins)
		set(&c.statesMemory, statesMemory)
		set(&c.pluginsMemory, pluginsMemory)
	}
}

// WithArenaOptions configures the vectors behind the World's keyed store,
// message bus and mutation queue.
func WithArenaOptions(opts ...arena.Option) Option {
	return func(c *config) {
		c.arena = append(c.arena, opts...)
	}
}

// WithLogger sets the logger of the World and everything it owns.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.log = l
		}
	}
}
