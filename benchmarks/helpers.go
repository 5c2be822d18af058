// Package benchmarks provides shared helpers for benchmark tests.
package benchmarks

import (
	"fmt"

	"github.com/comalice/blockx"
	"github.com/comalice/blockx/internal/production"
)

// Tick is the signal every generated topology cycles on.
const Tick = "tick"

// GenFlat creates a flat topology with n states cycling on Tick.
func GenFlat(n int) *blockx.Topology {
	if n < 1 {
		n = 1
	}
	b := blockx.NewTopology(fmt.Sprintf("flat_%d", n))
	states := make([]*blockx.Vertex, n)
	for i := range states {
		states[i] = b.State(fmt.Sprintf("s%d", i))
	}
	b.Transition(b.Initial(), states[0])
	for i, s := range states {
		b.Transition(s, states[(i+1)%n], blockx.OnSignal(Tick))
	}
	return mustBuild(b)
}

// GenDeep creates depth nested composites under c0 and a top-level sibling
// "out". Tick alternates between the innermost leaf and out, so every event
// exits or enters the full hierarchy.
func GenDeep(depth int) *blockx.Topology {
	if depth < 1 {
		depth = 1
	}
	b := blockx.NewTopology(fmt.Sprintf("deep_%d", depth))
	parent := b.State("c0")
	for i := 1; i < depth; i++ {
		parent = b.State(fmt.Sprintf("c%d", i), blockx.InitialChildOf(parent))
	}
	leaf := b.State("leaf", blockx.InitialChildOf(parent))
	out := b.State("out")
	b.Transition(b.Initial(), out)
	b.Transition(leaf, out, blockx.OnSignal(Tick))
	b.Transition(out, leaf, blockx.OnSignal(Tick))
	return mustBuild(b)
}

// GenWide creates a state with n guarded Tick transitions where only the
// last guard passes, so every event evaluates all n guards.
func GenWide(n int) *blockx.Topology {
	if n < 1 {
		n = 1
	}
	b := blockx.NewTopology(fmt.Sprintf("wide_%d", n))
	main := b.State("main")
	b.Transition(b.Initial(), main)
	for i := 0; i < n; i++ {
		last := i == n-1
		target := b.State(fmt.Sprintf("target%d", i))
		b.Transition(main, target, blockx.OnSignal(Tick),
			blockx.WithGuard(fmt.Sprintf("g%d", i), func(*blockx.Context) bool { return last }))
		b.Transition(target, main, blockx.OnSignal(Tick))
	}
	return mustBuild(b)
}

// GenDescriptorYAML encodes the descriptor of a flat or deep topology.
func GenDescriptorYAML(size int, hierarchical bool) []byte {
	topo := GenFlat(size)
	if hierarchical {
		topo = GenDeep(size)
	}
	data, err := production.Describe(topo).Encode()
	if err != nil {
		panic(err)
	}
	return data
}

func mustBuild(b *blockx.TopologyBuilder) *blockx.Topology {
	topo, err := b.Build()
	if err != nil {
		panic(err)
	}
	return topo
}
