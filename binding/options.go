package binding

import (
	"log/slog"
	"time"

	"github.com/comalice/blockx"
)

// Option configures a Constraint.
type Option func(*Constraint)

// WithLogger sets the log sink.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Constraint) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPeriod recomputes every d while operational, in addition to
// recomputing on parameter changes.
func WithPeriod(d time.Duration) Option {
	return func(c *Constraint) {
		c.period = d
	}
}

// WithMachineOptions passes options to the constraint's machine, for
// example blockx.Synchronous or a transmitter.
func WithMachineOptions(opts ...blockx.Option) Option {
	return func(c *Constraint) {
		c.mopts = append(c.mopts, opts...)
	}
}
