package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/comalice/blockx"
)

// RemotePeer stands in for a block running in another process. It does not
// execute anything: AcceptEvent encodes the event and sends it as a single
// UDP datagram. Delivery is fire-and-forget.
type RemotePeer struct {
	addr   string
	source string
	conn   net.Conn
	logger *slog.Logger
}

// Dial creates a remote peer sending to addr.
func Dial(ctx context.Context, addr string, opts ...Option) (*RemotePeer, error) {
	o := newOptions(opts)
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial remote peer %s: %w", addr, err)
	}
	return &RemotePeer{
		addr:   addr,
		source: o.source,
		conn:   conn,
		logger: o.logger.With("peer", addr),
	}, nil
}

// AcceptEvent forwards e. Encoding and write failures are logged.
func (r *RemotePeer) AcceptEvent(e blockx.Event) {
	data, err := encode(r.source, e)
	if err != nil {
		r.logger.Error("event not forwarded", "event", e.String(), "error", err)
		return
	}
	if _, err := r.conn.Write(data); err != nil {
		r.logger.Warn("datagram write failed", "event", e.String(), "error", err)
	}
}

// Addr returns the destination address.
func (r *RemotePeer) Addr() string { return r.addr }

// Close releases the socket.
func (r *RemotePeer) Close() error { return r.conn.Close() }

// Receiver reads datagrams and hands the decoded events to a local peer.
type Receiver struct {
	conn   net.PacketConn
	peer   Peer
	logger *slog.Logger
}

// Listen opens a UDP socket on addr delivering into peer. Use
// "127.0.0.1:0" for an ephemeral port.
func Listen(ctx context.Context, addr string, peer Peer, opts ...Option) (*Receiver, error) {
	o := newOptions(opts)
	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return &Receiver{
		conn:   conn,
		peer:   peer,
		logger: o.logger.With("listener", conn.LocalAddr().String()),
	}, nil
}

// Addr returns the bound address.
func (r *Receiver) Addr() net.Addr { return r.conn.LocalAddr() }

// Serve dispatches datagrams until ctx is cancelled, then closes the
// socket. Malformed datagrams are logged and skipped.
func (r *Receiver) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = r.conn.Close() })
	defer stop()

	buf := make([]byte, maxDatagram)
	for {
		n, from, err := r.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read datagram: %w", err)
		}
		d, e, err := decode(buf[:n])
		if err != nil {
			r.logger.Error("datagram dropped", "from", from.String(), "error", err)
			continue
		}
		r.logger.Debug("datagram received", "id", d.ID, "source", d.Source, "event", e.String())
		r.peer.AcceptEvent(e)
	}
}

// Close stops Serve.
func (r *Receiver) Close() error { return r.conn.Close() }
