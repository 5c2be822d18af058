package blockx_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/comalice/blockx"
	"github.com/comalice/blockx/internal/ctxlog"
)

type counter struct{ n int }

func TestContextExposesMachineState(t *testing.T) {
	data := &counter{}
	var (
		sourceName, targetName, current string
		hasLogger                       bool
		ctxLogger                       bool
	)
	b := NewTopology("ctx")
	a := b.State("a")
	c := b.State("c")
	b.Transition(b.Initial(), a)
	b.Transition(a, c, OnSignal("go"), WithEffect("inspect", func(ctx *Context) error {
		ctx.Data.(*counter).n++
		sourceName = ctx.Source.Name()
		targetName = ctx.Target.Name()
		current = ctx.CurrentState()
		hasLogger = ctx.Logger != nil
		ctxLogger = ctxlog.FromContext(ctx.Ctx()) == ctx.Logger
		return nil
	}))
	topo, err := b.Build()
	require.NoError(t, err)

	m := NewMachine(topo, Synchronous(), WithData(data))
	require.NoError(t, m.Start(context.Background()))
	m.QueueEvent(SignalEvent("go", 7))

	assert.Equal(t, 1, data.n)
	assert.Equal(t, "a", sourceName)
	assert.Equal(t, "c", targetName)
	// effects run before the cursor moves
	assert.Equal(t, "a", current)
	assert.True(t, hasLogger)
	assert.True(t, ctxLogger)
}

func TestContextSendQueuesOnOwner(t *testing.T) {
	b := NewTopology("relay")
	a := b.State("a")
	x := b.State("x")
	y := b.State("y")
	b.Transition(b.Initial(), a)
	b.Transition(a, x, OnSignal("first"), WithEffect("forward", func(c *Context) error {
		c.Send(SignalEvent("second", nil))
		return nil
	}))
	b.Transition(x, y, OnSignal("second"))
	topo, err := b.Build()
	require.NoError(t, err)

	m := NewMachine(topo)
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()
	m.QueueEvent(SignalEvent("first", nil))

	deadline := time.Now().Add(time.Second)
	for m.CurrentName() != "y" && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, "y", m.CurrentName())
}

func TestContextCtxWithoutMachineContext(t *testing.T) {
	var c Context
	assert.NotNil(t, c.Ctx())
}
