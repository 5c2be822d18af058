// Package relay connects block ports to peers. A peer may be a block in the
// same process or a stand-in that forwards events to another process; the
// sending side cannot tell the difference.
package relay

import (
	"log/slog"
	"sync"

	"github.com/comalice/blockx"
)

// Peer accepts events sent through a port. *block.Block satisfies it.
type Peer interface {
	AcceptEvent(e blockx.Event)
}

// PeerFunc adapts a function to the Peer interface.
type PeerFunc func(e blockx.Event)

// AcceptEvent calls f(e).
func (f PeerFunc) AcceptEvent(e blockx.Event) { f(e) }

type options struct {
	logger *slog.Logger
	source string
}

// Option configures ports, remote peers and receivers.
type Option func(*options)

// WithLogger sets the log sink.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSource names the sender in outgoing datagrams.
func WithSource(name string) Option {
	return func(o *options) {
		o.source = name
	}
}

func newOptions(opts []Option) *options {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Port fans events out to its connected peers.
type Port struct {
	name   string
	logger *slog.Logger

	mu    sync.RWMutex
	peers []Peer
}

// NewPort creates an unconnected port.
func NewPort(name string, opts ...Option) *Port {
	o := newOptions(opts)
	return &Port{name: name, logger: o.logger.With("port", name)}
}

func (p *Port) Name() string { return p.name }

// AddConnectedPeer connects peer to the port.
func (p *Port) AddConnectedPeer(peer Peer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.peers = append(p.peers, peer)
}

// Peers returns the connected peers.
func (p *Port) Peers() []Peer {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Peer(nil), p.peers...)
}

// Send delivers e to every connected peer and returns how many received it.
func (p *Port) Send(e blockx.Event) int {
	peers := p.Peers()
	if len(peers) == 0 {
		p.logger.Info("port has no connected peers, event dropped", "event", e.String())
		return 0
	}
	for _, peer := range peers {
		peer.AcceptEvent(e)
	}
	return len(peers)
}
