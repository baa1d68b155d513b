package arena

import (
	"go.uber.org/zap"

	"github.com/pavanmanishd/arena/v2/vmem"
)

// Config holds the settings shared by every container built on a Vec.
// Packages layered on top of Vec accept the same Options and read the
// resolved Config for their own logger.
type Config struct {
	Memory      vmem.Memory
	Reservation int // bytes
	Capacity    int // elements committed at creation
	Logger      *zap.Logger
}

// Option configures a Vec.
type Option func(*Config)

// NewConfig applies opts over the defaults: the host's virtual memory,
// DefaultReservation, no initial capacity and a no-op logger.
func NewConfig(opts ...Option) Config {
	cfg := Config{
		Memory:      vmem.System(),
		Reservation: DefaultReservation,
		Logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithMemory selects the virtual memory implementation. A nil Memory keeps
// the default.
func WithMemory(m vmem.Memory) Option {
	return func(c *Config) {
		if m != nil {
			c.Memory = m
		}
	}
}

// WithReservation sets how many bytes of address space to reserve.
// If bytes <= 0, DefaultReservation is used.
func WithReservation(bytes int) Option {
	return func(c *Config) {
		if bytes <= 0 {
			bytes = DefaultReservation
		}
		c.Reservation = bytes
	}
}

// WithCapacity commits room for n elements up front.
func WithCapacity(n int) Option {
	return func(c *Config) {
		c.Capacity = max(n, 0)
	}
}

// WithLogger sets the logger used for growth diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}
