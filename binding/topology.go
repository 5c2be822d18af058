package binding

import (
	"sync"

	"github.com/comalice/blockx"
)

const (
	// ParameterChange is the expression of change events raised by ports.
	ParameterChange = "parameter"
	// PeriodTimer identifies the recomputation timer of WithPeriod.
	PeriodTimer = "period"
)

func owner(ctx *blockx.Context) *Constraint { return ctx.Data.(*Constraint) }

// constraintTopology is shared by every constraint; behaviors reach their
// constraint through Context.Data.
var constraintTopology = sync.OnceValues(func() (*blockx.Topology, error) {
	b := blockx.NewTopology("constraint")
	initializing := b.State("Initializing", blockx.WithEnter(func(ctx *blockx.Context) error {
		return owner(ctx).initialize(ctx)
	}))
	operational := b.State("Operational",
		blockx.WithEnter(func(ctx *blockx.Context) error { return owner(ctx).startPeriod(ctx) }),
		blockx.WithExit(func(ctx *blockx.Context) error { return owner(ctx).stopPeriod(ctx) }))
	final := b.Final("Final")

	b.Transition(b.Initial(), initializing)
	b.Transition(initializing, operational, blockx.OnCompletion())
	b.Transition(operational, operational, blockx.OnChange(ParameterChange), blockx.AsInternal(),
		blockx.WithEffect("onParameterChange", func(ctx *blockx.Context) error {
			return owner(ctx).onParameterChange(ctx)
		}))
	b.Transition(operational, operational, blockx.OnTime(PeriodTimer), blockx.AsInternal(),
		blockx.WithEffect("onTimeEvent", func(ctx *blockx.Context) error {
			return owner(ctx).onTimeEvent(ctx)
		}))
	b.Transition(operational, final, blockx.OnFinal())
	return b.Build()
})
