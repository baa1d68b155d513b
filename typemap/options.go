package typemap

import "go.uber.org/zap"

type config struct {
	log *zap.Logger
}

// Option configures a Store.
type Option func(*config)

// WithLogger sets the logger used for resize diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.log = l
		}
	}
}
