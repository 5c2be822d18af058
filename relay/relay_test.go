package relay_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/blockx"
	"github.com/comalice/blockx/relay"
	"github.com/comalice/blockx/testutil"
)

type collector struct {
	events chan blockx.Event
}

func newCollector() *collector { return &collector{events: make(chan blockx.Event, 16)} }

func (c *collector) AcceptEvent(e blockx.Event) { c.events <- e }

func (c *collector) next(t *testing.T) blockx.Event {
	t.Helper()
	select {
	case e := <-c.events:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return blockx.Event{}
	}
}

func TestPortFansOut(t *testing.T) {
	p := relay.NewPort("out")
	a, b := newCollector(), newCollector()
	p.AddConnectedPeer(a)
	p.AddConnectedPeer(b)

	n := p.Send(blockx.SignalEvent("ping", 1))
	assert.Equal(t, 2, n)
	assert.Equal(t, "ping", a.next(t).Name)
	assert.Equal(t, "ping", b.next(t).Name)
	assert.Len(t, p.Peers(), 2)
}

func TestPortWithoutPeersLogs(t *testing.T) {
	logger, logs := testutil.NewLogger()
	p := relay.NewPort("out", relay.WithLogger(logger))
	assert.Zero(t, p.Send(blockx.SignalEvent("ping", nil)))
	assert.Len(t, logs.Lines("no connected peers", "port=out"), 1)
}

func TestPortDrivesLocalMachine(t *testing.T) {
	b := blockx.NewTopology("lamp")
	off := b.State("off")
	on := b.State("on")
	b.Transition(b.Initial(), off)
	b.Transition(off, on, blockx.OnSignal("switch"))
	topo, err := b.Build()
	require.NoError(t, err)

	m := blockx.NewMachine(topo, blockx.Synchronous())
	require.NoError(t, m.Start(context.Background()))

	p := relay.NewPort("power")
	p.AddConnectedPeer(relay.PeerFunc(m.QueueEvent))
	p.Send(blockx.SignalEvent("switch", nil))
	assert.Equal(t, "on", m.CurrentName())
}

func TestRemotePeerOverUDP(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := newCollector()
	rx, err := relay.Listen(ctx, "127.0.0.1:0", sink)
	require.NoError(t, err)
	served := make(chan error, 1)
	go func() { served <- rx.Serve(ctx) }()

	remote, err := relay.Dial(ctx, rx.Addr().String(), relay.WithSource("sensor"))
	require.NoError(t, err)
	defer remote.Close()

	p := relay.NewPort("out")
	p.AddConnectedPeer(remote)

	p.Send(blockx.ChangeEvent("temperature", 42.5))
	e := sink.next(t)
	assert.Equal(t, blockx.KindChange, e.Kind)
	assert.Equal(t, "temperature", e.Expression)
	assert.Equal(t, 42.5, e.Payload)

	p.Send(blockx.TimeEvent("tick"))
	e = sink.next(t)
	assert.Equal(t, blockx.KindTime, e.Kind)
	assert.Equal(t, "tick", e.TimerID)

	p.Send(blockx.CallEvent("reset", map[string]any{"hard": true}))
	e = sink.next(t)
	assert.Equal(t, "reset", e.Name)
	assert.Equal(t, map[string]any{"hard": true}, e.Payload)

	cancel()
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("receiver did not stop")
	}
}

func TestRemotePeerLogsUnencodablePayload(t *testing.T) {
	logger, logs := testutil.NewLogger()
	rx, err := relay.Listen(context.Background(), "127.0.0.1:0", newCollector())
	require.NoError(t, err)
	defer rx.Close()

	remote, err := relay.Dial(context.Background(), rx.Addr().String(), relay.WithLogger(logger))
	require.NoError(t, err)
	defer remote.Close()

	remote.AcceptEvent(blockx.SignalEvent("bad", make(chan int)))
	assert.Len(t, logs.Lines("level=ERROR", "event not forwarded"), 1)
}
