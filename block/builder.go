package block

import (
	"fmt"

	"github.com/comalice/blockx"
)

// Phase is one step of block assembly. Phases always run in declaration
// order, whatever order the builder methods were called in.
type Phase int

const (
	PhaseValues Phase = iota
	PhaseFlows
	PhaseParts
	PhasePorts
	PhaseActivities
	PhaseConstraints
	PhaseStateMachine
	PhaseConnectors
	numPhases
)

var phaseNames = [...]string{
	PhaseValues:       "values",
	PhaseFlows:        "flows",
	PhaseParts:        "parts",
	PhasePorts:        "ports",
	PhaseActivities:   "activities",
	PhaseConstraints:  "constraints",
	PhaseStateMachine: "state machine",
	PhaseConnectors:   "connectors",
}

func (p Phase) String() string {
	if p >= 0 && p < numPhases {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Step mutates a block under construction.
type Step func(b *Block) error

// TopologyFunc returns the topology of a block's state machine. It runs
// after values, parts, ports, activities and constraints exist.
type TopologyFunc func(b *Block) (*blockx.Topology, error)

// Builder assembles a Block.
type Builder struct {
	name     string
	opts     []Option
	steps    [numPhases][]Step
	topology TopologyFunc
}

// NewBuilder starts a block called name.
func NewBuilder(name string, opts ...Option) *Builder {
	return &Builder{name: name, opts: opts}
}

func (bb *Builder) add(p Phase, s Step) *Builder {
	bb.steps[p] = append(bb.steps[p], s)
	return bb
}

// Values adds a step that registers typed values.
func (bb *Builder) Values(s Step) *Builder { return bb.add(PhaseValues, s) }

// Flows adds a step that registers item flows.
func (bb *Builder) Flows(s Step) *Builder { return bb.add(PhaseFlows, s) }

// Parts adds a step that nests other blocks.
func (bb *Builder) Parts(s Step) *Builder { return bb.add(PhaseParts, s) }

// Ports adds a step that creates ports.
func (bb *Builder) Ports(s Step) *Builder { return bb.add(PhasePorts, s) }

// Activities adds a step that registers named activities.
func (bb *Builder) Activities(s Step) *Builder { return bb.add(PhaseActivities, s) }

// Constraints adds a step that attaches constraints.
func (bb *Builder) Constraints(s Step) *Builder { return bb.add(PhaseConstraints, s) }

// Connectors adds a step that wires ports to peers.
func (bb *Builder) Connectors(s Step) *Builder { return bb.add(PhaseConnectors, s) }

// StateMachine sets the topology of the block's machine. A block built
// without one has no machine.
func (bb *Builder) StateMachine(fn TopologyFunc) *Builder {
	bb.topology = fn
	return bb
}

// Part adds a nested block built from child during the parts phase.
func (bb *Builder) Part(child *Builder) *Builder {
	return bb.Parts(func(b *Block) error {
		p, err := child.Build()
		if err != nil {
			return err
		}
		return b.AddPart(p)
	})
}

// Build runs every phase in order. The first failing step aborts the build.
func (bb *Builder) Build() (*Block, error) {
	b := newBlock(bb.name, bb.opts...)
	for p := PhaseValues; p < numPhases; p++ {
		if p == PhaseStateMachine {
			if err := bb.buildMachine(b); err != nil {
				return nil, fmt.Errorf("block %s: %s phase: %w", bb.name, p, err)
			}
		}
		for _, s := range bb.steps[p] {
			if err := s(b); err != nil {
				return nil, fmt.Errorf("block %s: %s phase: %w", bb.name, p, err)
			}
		}
	}
	b.logger.Debug("block built", "id", b.id, "parts", len(b.parts), "machine", b.machine != nil)
	return b, nil
}

func (bb *Builder) buildMachine(b *Block) error {
	if bb.topology == nil {
		return nil
	}
	topo, err := bb.topology(b)
	if err != nil {
		return err
	}
	opts := append([]blockx.Option{
		blockx.WithName(b.name),
		blockx.WithLogger(b.baseLogger),
		blockx.WithData(b),
	}, b.machineOpts...)
	b.machine = blockx.NewMachine(topo, opts...)
	return nil
}
