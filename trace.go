package blockx

import "context"

// TraceRecord describes one processed transition. Records feed timing
// diagrams and transition-history tooling.
type TraceRecord struct {
	Context      string `json:"context" yaml:"context"`
	Timestamp    int64  `json:"timestamp" yaml:"timestamp"` // Unix milliseconds
	CurrentState string `json:"currentState" yaml:"currentState"`
	Event        string `json:"event" yaml:"event"`
	Transition   string `json:"transition" yaml:"transition"`
	Guard        string `json:"guard,omitempty" yaml:"guard,omitempty"`
	Effect       string `json:"effect,omitempty" yaml:"effect,omitempty"`
	NextState    string `json:"nextState" yaml:"nextState"`
}

// Transmitter receives a record after every processed transition. It runs on
// the machine goroutine and should return quickly.
type Transmitter interface {
	Transmit(ctx context.Context, rec TraceRecord) error
}

// TransmitterFunc adapts a function to the Transmitter interface.
type TransmitterFunc func(ctx context.Context, rec TraceRecord) error

// Transmit calls f(ctx, rec).
func (f TransmitterFunc) Transmit(ctx context.Context, rec TraceRecord) error {
	return f(ctx, rec)
}
