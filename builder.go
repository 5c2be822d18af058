package blockx

import (
	"errors"
	"fmt"
)

// TopologyBuilder assembles a state machine topology before any machine
// runs it. Each call returns a typed handle so transitions reference
// vertices directly instead of by name.
type TopologyBuilder struct {
	name        string
	vertices    []*Vertex
	byName      map[string]*Vertex
	transitions []*Transition
	initial     *Vertex
	final       *Vertex
	errs        []error
}

// NewTopology creates a builder for a topology called name.
func NewTopology(name string) *TopologyBuilder {
	return &TopologyBuilder{
		name:   name,
		byName: make(map[string]*Vertex),
	}
}

// Initial returns the initial pseudostate, creating it on first use.
func (b *TopologyBuilder) Initial() *Vertex {
	if b.initial == nil {
		b.initial = b.add("initial", InitialVertex)
	}
	return b.initial
}

// State adds a state.
func (b *TopologyBuilder) State(name string, opts ...VertexOption) *Vertex {
	v := b.add(name, StateVertex)
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Choice adds a choice pseudostate. Its outgoing transitions must not carry
// triggers; they are evaluated in declaration order on entry.
func (b *TopologyBuilder) Choice(name string, opts ...VertexOption) *Vertex {
	v := b.add(name, ChoiceVertex)
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Final adds the final state. A topology has at most one.
func (b *TopologyBuilder) Final(name string) *Vertex {
	if b.final != nil {
		b.errs = append(b.errs, fmt.Errorf("second final state %q (already have %q)", name, b.final.name))
		return b.final
	}
	b.final = b.add(name, FinalVertex)
	return b.final
}

// Transition connects from and to. Transitions leaving the initial
// pseudostate default to the initial trigger.
func (b *TopologyBuilder) Transition(from, to *Vertex, opts ...TransitionOption) *Transition {
	t := &Transition{
		source: from,
		target: to,
		index:  len(b.transitions),
	}
	for _, opt := range opts {
		opt(t)
	}
	if from != nil && from.kind == InitialVertex && t.trigger.Kind == KindNone {
		t.trigger = Trigger{Kind: KindInitial}
	}
	if t.name == "" && from != nil && to != nil {
		t.name = from.name + "->" + to.name
	}
	b.transitions = append(b.transitions, t)
	return t
}

// Build validates the topology and freezes it.
func (b *TopologyBuilder) Build() (*Topology, error) {
	if err := b.validate(); err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidTopology, b.name, err)
	}

	t := &Topology{
		name:        b.name,
		vertices:    append([]*Vertex(nil), b.vertices...),
		transitions: append([]*Transition(nil), b.transitions...),
		byName:      make(map[string]*Vertex, len(b.byName)),
		outgoing:    make(map[*Vertex][]*Transition),
		initial:     b.initial,
		final:       b.final,
	}
	for name, v := range b.byName {
		t.byName[name] = v
	}
	for _, tr := range b.transitions {
		t.outgoing[tr.source] = append(t.outgoing[tr.source], tr)
	}
	return t, nil
}

func (b *TopologyBuilder) add(name string, kind VertexKind) *Vertex {
	v := &Vertex{name: name, kind: kind, index: len(b.vertices)}
	if name == "" {
		b.errs = append(b.errs, errors.New("vertex name is required"))
	} else if _, dup := b.byName[name]; dup {
		b.errs = append(b.errs, fmt.Errorf("duplicate vertex name %q", name))
	} else {
		b.byName[name] = v
	}
	b.vertices = append(b.vertices, v)
	return v
}

func (b *TopologyBuilder) owns(v *Vertex) bool {
	return v != nil && v.index < len(b.vertices) && b.vertices[v.index] == v
}

func (b *TopologyBuilder) validate() error {
	errs := append([]error(nil), b.errs...)

	if b.initial == nil {
		errs = append(errs, errors.New("no initial pseudostate"))
	}

	for _, v := range b.vertices {
		if v.parent != nil {
			if !b.owns(v.parent) {
				errs = append(errs, fmt.Errorf("vertex %q has a parent from another topology", v.name))
			} else if v.parent.kind != StateVertex {
				errs = append(errs, fmt.Errorf("vertex %q nested in %s %q; only states can be composite", v.name, v.parent.kind, v.parent.name))
			}
			if v.kind == InitialVertex || v.kind == FinalVertex {
				errs = append(errs, fmt.Errorf("%s vertex %q cannot be nested", v.kind, v.name))
			}
		}
		if v.IsComposite() && v.initialChild == nil {
			errs = append(errs, fmt.Errorf("composite state %q has no initial child", v.name))
		}
	}

	incoming := make(map[*Vertex]int)
	outgoing := make(map[*Vertex]int)
	for _, t := range b.transitions {
		if !b.owns(t.source) || !b.owns(t.target) {
			errs = append(errs, fmt.Errorf("transition %d references a vertex outside the topology", t.index))
			continue
		}
		incoming[t.target]++
		outgoing[t.source]++

		if t.kind == Internal {
			if t.source != t.target {
				errs = append(errs, fmt.Errorf("internal transition %q must have source == target", t.name))
			}
			if t.source.kind != StateVertex {
				errs = append(errs, fmt.Errorf("internal transition %q must leave a state", t.name))
			}
		}
		switch t.source.kind {
		case InitialVertex:
			if t.trigger.Kind != KindInitial {
				errs = append(errs, fmt.Errorf("initial transition %q must use the initial trigger", t.name))
			}
			if t.guard != nil {
				errs = append(errs, fmt.Errorf("initial transition %q cannot be guarded", t.name))
			}
		case ChoiceVertex:
			if t.trigger.Kind != KindNone {
				errs = append(errs, fmt.Errorf("choice transition %q cannot have a trigger", t.name))
			}
		case FinalVertex:
			errs = append(errs, fmt.Errorf("final state %q cannot have outgoing transition %q", t.source.name, t.name))
		}
		if t.target.kind == InitialVertex {
			errs = append(errs, fmt.Errorf("transition %q targets the initial pseudostate", t.name))
		}
	}

	if b.initial != nil && outgoing[b.initial] != 1 {
		errs = append(errs, fmt.Errorf("initial pseudostate needs exactly one outgoing transition, has %d", outgoing[b.initial]))
	}
	for _, v := range b.vertices {
		if v.kind == ChoiceVertex && outgoing[v] == 0 {
			errs = append(errs, fmt.Errorf("choice %q has no outgoing transitions", v.name))
		}
	}

	if len(errs) == 0 {
		for _, v := range b.unreachable() {
			errs = append(errs, fmt.Errorf("vertex %q is not reachable from the initial pseudostate", v.name))
		}
	}
	return errors.Join(errs...)
}

// unreachable walks transitions from the initial pseudostate. Entering a
// vertex also enters its ancestors and, for composites, the initial child.
func (b *TopologyBuilder) unreachable() []*Vertex {
	visited := make(map[*Vertex]bool)
	var pending []*Vertex
	mark := func(v *Vertex) {
		for ; v != nil; v = v.parent {
			if !visited[v] {
				visited[v] = true
				pending = append(pending, v)
			}
		}
	}
	mark(b.initial)
	for len(pending) > 0 {
		v := pending[0]
		pending = pending[1:]
		if v.initialChild != nil {
			mark(v.initialChild)
		}
		for _, t := range b.transitions {
			if t.source == v {
				mark(t.target)
			}
		}
	}

	var out []*Vertex
	for _, v := range b.vertices {
		if !visited[v] {
			out = append(out, v)
		}
	}
	return out
}
