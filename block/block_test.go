package block_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/blockx"
	"github.com/comalice/blockx/block"
	"github.com/comalice/blockx/internal/ctxlog"
	"github.com/comalice/blockx/testutil"
	"github.com/comalice/blockx/value"
)

func TestBuilderRunsPhasesInOrder(t *testing.T) {
	var order []string
	step := func(name string) block.Step {
		return func(*block.Block) error {
			order = append(order, name)
			return nil
		}
	}
	_, err := block.NewBuilder("ordered").
		Connectors(step("connectors")).
		StateMachine(func(*block.Block) (*blockx.Topology, error) {
			order = append(order, "state machine")
			return simpleTopology(t), nil
		}).
		Constraints(step("constraints")).
		Activities(step("activities")).
		Ports(step("ports")).
		Parts(step("parts")).
		Flows(step("flows")).
		Values(step("values")).
		Build()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"values", "flows", "parts", "ports", "activities", "constraints", "state machine", "connectors",
	}, order)
}

func TestBuildFailureNamesPhase(t *testing.T) {
	_, err := block.NewBuilder("broken").
		Ports(func(*block.Block) error { return errors.New("no socket") }).
		Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ports phase")
	assert.Contains(t, err.Error(), "no socket")
}

func simpleTopology(t *testing.T) *blockx.Topology {
	t.Helper()
	b := blockx.NewTopology("heater")
	off := b.State("off")
	on := b.State("on")
	b.Transition(b.Initial(), off)
	b.Transition(off, on, blockx.OnSignal("on"))
	b.Transition(on, off, blockx.OnSignal("off"))
	topo, err := b.Build()
	require.NoError(t, err)
	return topo
}

func TestBlockWithMachine(t *testing.T) {
	var powered atomic.Bool
	heater, err := block.NewBuilder("heater", block.WithMachineOptions(blockx.Synchronous())).
		Values(func(b *block.Block) error {
			return b.AddValue(value.New("power", 0.0))
		}).
		Activities(func(b *block.Block) error {
			b.AddActivity("powerUp", func(c *blockx.Context) error {
				owner := c.Data.(*block.Block)
				v, _ := owner.Value("power")
				v.(*value.Value[float64]).Set(1500)
				powered.Store(true)
				return nil
			})
			return nil
		}).
		StateMachine(func(b *block.Block) (*blockx.Topology, error) {
			powerUp, _ := b.Activity("powerUp")
			tb := blockx.NewTopology("heater")
			off := tb.State("off")
			on := tb.State("on", blockx.WithEnter(powerUp))
			tb.Transition(tb.Initial(), off)
			tb.Transition(off, on, blockx.OnSignal("on"))
			return tb.Build()
		}).
		Build()
	require.NoError(t, err)
	require.NotNil(t, heater.Machine())
	assert.NotEmpty(t, heater.ID())
	assert.Equal(t, "heater", heater.Machine().Name())

	require.NoError(t, heater.Start(context.Background()))
	heater.AcceptEvent(blockx.SignalEvent("on", nil))
	assert.Equal(t, "on", heater.Machine().CurrentName())
	assert.True(t, powered.Load())

	v, ok := heater.Value("power")
	require.True(t, ok)
	assert.Equal(t, 1500.0, v.(*value.Value[float64]).Get())
	heater.Stop()
}

func TestBlockWithoutMachineWarns(t *testing.T) {
	logger, logs := testutil.NewLogger()
	b, err := block.NewBuilder("passive", block.WithLogger(logger)).Build()
	require.NoError(t, err)
	assert.Nil(t, b.Machine())

	assert.NoError(t, b.Start(context.Background()))
	b.AcceptEvent(blockx.SignalEvent("x", nil))
	b.Stop()

	assert.Len(t, logs.Lines("level=WARN", "no state machine", "block=passive"), 3)
}

func TestPartsStartAndStopRecursively(t *testing.T) {
	child := block.NewBuilder("element").
		StateMachine(func(*block.Block) (*blockx.Topology, error) { return simpleTopology(t), nil })
	root, err := block.NewBuilder("oven").
		Part(child).
		StateMachine(func(*block.Block) (*blockx.Topology, error) { return simpleTopology(t), nil }).
		Build()
	require.NoError(t, err)

	part, ok := root.Part("element")
	require.True(t, ok)
	assert.Same(t, root, part.Parent())
	assert.Equal(t, "oven.element", part.Path())
	assert.Len(t, root.Parts(), 1)
	assert.NotEqual(t, root.ID(), part.ID())

	require.NoError(t, root.Start(context.Background()))
	testutil.WaitForState(t, part.Machine(), "off", time.Second)
	testutil.WaitForState(t, root.Machine(), "off", time.Second)

	root.Stop()
	testutil.WaitDone(t, root.Machine(), time.Second)
	testutil.WaitDone(t, part.Machine(), time.Second)
}

type fakeConstraint struct {
	name             string
	err              error
	started, stopped atomic.Int32
}

func (f *fakeConstraint) Name() string {
	if f.name == "" {
		return "fake"
	}
	return f.name
}

func (f *fakeConstraint) Start(context.Context) error {
	f.started.Add(1)
	return f.err
}

func (f *fakeConstraint) Stop() { f.stopped.Add(1) }

func TestConstraintsFollowBlockLifecycle(t *testing.T) {
	fc := &fakeConstraint{}
	b, err := block.NewBuilder("network").
		Constraints(func(b *block.Block) error {
			b.AddConstraint(fc)
			return nil
		}).
		Build()
	require.NoError(t, err)

	require.NoError(t, b.Start(context.Background()))
	b.Stop()
	assert.Equal(t, int32(1), fc.started.Load())
	assert.Equal(t, int32(1), fc.stopped.Load())
	assert.Len(t, b.Constraints(), 1)
}

func TestFailedStartStopsStartedComponents(t *testing.T) {
	inner := &fakeConstraint{name: "inner"}
	good := &fakeConstraint{name: "good"}
	bad := &fakeConstraint{name: "bad", err: errors.New("no sensor")}

	child := block.NewBuilder("child").
		Constraints(func(b *block.Block) error {
			b.AddConstraint(inner)
			return nil
		})
	b, err := block.NewBuilder("network").
		Part(child).
		Constraints(func(b *block.Block) error {
			b.AddConstraint(good)
			b.AddConstraint(bad)
			return nil
		}).
		Build()
	require.NoError(t, err)

	err = b.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start constraint bad: no sensor")

	assert.Equal(t, int32(1), inner.stopped.Load(), "part stopped on rollback")
	assert.Equal(t, int32(1), good.stopped.Load())
	assert.Zero(t, bad.stopped.Load(), "failed component is not stopped")
}

func TestConnectorsWirePortsToParts(t *testing.T) {
	sensor := block.NewBuilder("sensor").
		Ports(func(b *block.Block) error {
			_, err := b.AddPort("reading")
			return err
		})
	display := block.NewBuilder("display", block.WithMachineOptions(blockx.Synchronous())).
		StateMachine(func(*block.Block) (*blockx.Topology, error) { return simpleTopology(t), nil })

	root, err := block.NewBuilder("station").
		Part(sensor).
		Part(display).
		Connectors(func(b *block.Block) error {
			s, _ := b.Part("sensor")
			d, _ := b.Part("display")
			p, ok := s.Port("reading")
			if !ok {
				return errors.New("sensor has no reading port")
			}
			p.AddConnectedPeer(d)
			return nil
		}).
		Build()
	require.NoError(t, err)
	require.NoError(t, root.Start(context.Background()))

	s, _ := root.Part("sensor")
	d, _ := root.Part("display")
	p, _ := s.Port("reading")
	p.Send(blockx.SignalEvent("on", nil))
	assert.Equal(t, "on", d.Machine().CurrentName())
}

func TestDuplicatesRejected(t *testing.T) {
	_, err := block.NewBuilder("dup").
		Values(func(b *block.Block) error {
			if err := b.AddValue(value.New("x", 1)); err != nil {
				return err
			}
			return b.AddValue(value.New("x", 2))
		}).
		Build()
	assert.ErrorContains(t, err, `duplicate value "x"`)

	_, err = block.NewBuilder("dupPort").
		Ports(func(b *block.Block) error {
			if _, err := b.AddPort("p"); err != nil {
				return err
			}
			_, err := b.AddPort("p")
			return err
		}).
		Build()
	assert.ErrorContains(t, err, `duplicate port "p"`)
}

func TestFlows(t *testing.T) {
	b, err := block.NewBuilder("pipe").
		Flows(func(b *block.Block) error { return b.AddFlow(value.New("water", 3.5)) }).
		Build()
	require.NoError(t, err)
	f, ok := b.Flow("water")
	require.True(t, ok)
	assert.Equal(t, "water", f.Name())
}

func TestPoolIsBounded(t *testing.T) {
	b, err := block.NewBuilder("pool", block.WithPoolSize(2)).Build()
	require.NoError(t, err)
	require.NoError(t, b.Start(context.Background()))

	var running, peak atomic.Int32
	release := make(chan struct{})
	work := func(ctx context.Context) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		running.Add(-1)
		return nil
	}
	b.Go(work)
	b.Go(work)
	require.True(t, testutil.Eventually(time.Second, func() bool { return running.Load() == 2 }))
	assert.False(t, b.TryGo(work))

	close(release)
	require.NoError(t, b.Wait())
	assert.Equal(t, int32(2), peak.Load())
}

func TestPoolReportsFirstError(t *testing.T) {
	b, err := block.NewBuilder("failing").Build()
	require.NoError(t, err)

	boom := errors.New("boom")
	b.Go(func(context.Context) error { return boom })
	b.Go(func(context.Context) error { return nil })
	assert.ErrorIs(t, b.Wait(), boom)
}

func TestPoolContextCarriesLogger(t *testing.T) {
	logger, logs := testutil.NewLogger()
	b, err := block.NewBuilder("logged", block.WithLogger(logger)).Build()
	require.NoError(t, err)
	require.NoError(t, b.Start(context.Background()))

	b.Go(func(ctx context.Context) error {
		ctxlog.FromContext(ctx).Info("pool work done")
		return nil
	})
	require.NoError(t, b.Wait())
	assert.Len(t, logs.Lines("pool work done", "block=logged"), 1)
}
