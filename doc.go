// Package blockx executes behavioral models of engineered systems.
//
// A Topology describes a hierarchical state machine: vertices (states,
// choice pseudostates, one initial pseudostate and an optional final state)
// connected by transitions with triggers, guards and effects. It is
// assembled with a TopologyBuilder and immutable once built.
//
// A Machine interprets a Topology. Events are queued from any goroutine and
// consumed one at a time, either on a dedicated goroutine or, for
// synchronous machines, on the goroutine that queues them:
//
//	b := blockx.NewTopology("phase")
//	ice := b.State("Ice")
//	liquid := b.State("Liquid")
//	b.Transition(b.Initial(), ice)
//	b.Transition(ice, liquid, blockx.OnChange("temperature"),
//		blockx.WithGuard("aboveMelting", func(c *blockx.Context) bool {
//			return c.Event.Payload.(float64) >= 0
//		}))
//	topo, err := b.Build()
//
//	m := blockx.NewMachine(topo)
//	err = m.Start(ctx)
//	m.QueueEvent(blockx.ChangeEvent("temperature", 50.0))
//
// Guards are evaluated in declaration order and the first passing
// transition fires. Topology.Ambiguities reports where that order decides.
package blockx
