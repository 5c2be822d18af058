// Package production provides production integrations for machines:
// transition trace transmitters, topology visualization and topology
// descriptors for external tooling.
package production

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/comalice/blockx"
)

// ChannelTransmitter forwards trace records to a Go channel. Sends never
// block: records are dropped while the channel is full.
type ChannelTransmitter struct {
	ch      chan<- blockx.TraceRecord
	dropped atomic.Uint64
}

// NewChannelTransmitter creates a ChannelTransmitter writing to ch.
func NewChannelTransmitter(ch chan<- blockx.TraceRecord) *ChannelTransmitter {
	return &ChannelTransmitter{ch: ch}
}

func (t *ChannelTransmitter) Transmit(ctx context.Context, rec blockx.TraceRecord) error {
	select {
	case t.ch <- rec:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		t.dropped.Add(1)
		return nil
	}
}

// Dropped returns the number of records lost to backpressure.
func (t *ChannelTransmitter) Dropped() uint64 { return t.dropped.Load() }

func (t *ChannelTransmitter) Close() error {
	close(t.ch)
	return nil
}

// YAMLTransmitter writes every record as a YAML document to a stream.
type YAMLTransmitter struct {
	mu  sync.Mutex
	enc *yaml.Encoder
}

// NewYAMLTransmitter creates a YAMLTransmitter writing to w.
func NewYAMLTransmitter(w io.Writer) *YAMLTransmitter {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return &YAMLTransmitter{enc: enc}
}

func (t *YAMLTransmitter) Transmit(_ context.Context, rec blockx.TraceRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enc.Encode(rec)
}

// Close flushes the stream.
func (t *YAMLTransmitter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enc.Close()
}

// Fanout sends every record to each transmitter and returns the first
// error.
type Fanout []blockx.Transmitter

func (f Fanout) Transmit(ctx context.Context, rec blockx.TraceRecord) error {
	var first error
	for _, t := range f {
		if err := t.Transmit(ctx, rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}
