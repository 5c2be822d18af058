package block

import (
	"log/slog"

	"github.com/comalice/blockx"
)

// DefaultPoolSize bounds the ancillary goroutines of a block.
const DefaultPoolSize = 4

// Option configures a Block.
type Option func(*Block)

// WithLogger sets the base logger. The block adds its own name to it.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Block) {
		if logger != nil {
			b.baseLogger = logger
		}
	}
}

// WithPoolSize bounds the number of goroutines started through Go. Values
// below one fall back to DefaultPoolSize. The state machine's own goroutine
// is not taken from the pool, so every slot is available to Go and TryGo.
func WithPoolSize(n int) Option {
	return func(b *Block) {
		if n > 0 {
			b.poolSize = n
		}
	}
}

// WithMachineOptions passes options to the block's state machine.
func WithMachineOptions(opts ...blockx.Option) Option {
	return func(b *Block) {
		b.machineOpts = append(b.machineOpts, opts...)
	}
}
