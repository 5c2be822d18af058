package blockx

import "log/slog"

// Option configures a Machine.
type Option func(*Machine)

// WithName sets the name used in logs and trace records. Defaults to the
// topology name.
func WithName(name string) Option {
	return func(m *Machine) {
		m.name = name
	}
}

// WithLogger sets the log sink.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithTransmitter sets the transition trace transmitter.
func WithTransmitter(t Transmitter) Option {
	return func(m *Machine) {
		m.transmitter = t
	}
}

// WithData attaches application data exposed as Context.Data.
func WithData(data any) Option {
	return func(m *Machine) {
		m.data = data
	}
}

// Synchronous makes the machine process events on the goroutine that
// queues them instead of a dedicated one.
func Synchronous() Option {
	return func(m *Machine) {
		m.synchronous = true
	}
}
