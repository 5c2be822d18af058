package blockx

// VertexKind classifies a vertex of a state machine.
type VertexKind int

const (
	// InitialVertex is the single entry pseudostate of a machine.
	InitialVertex VertexKind = iota + 1
	// ChoiceVertex resolves its outgoing guards immediately on entry.
	ChoiceVertex
	// StateVertex waits for events and may own enter/exit activities and children.
	StateVertex
	// FinalVertex terminates the run loop once entered.
	FinalVertex
)

func (k VertexKind) String() string {
	switch k {
	case InitialVertex:
		return "initial"
	case ChoiceVertex:
		return "choice"
	case StateVertex:
		return "state"
	case FinalVertex:
		return "final"
	}
	return "unknown"
}

// Activity runs on entry to or exit from a state.
type Activity func(ctx *Context) error

// Vertex is a node of a state machine topology. Vertices are created through
// a TopologyBuilder and are immutable once the topology is built.
type Vertex struct {
	name         string
	kind         VertexKind
	parent       *Vertex
	children     []*Vertex
	initialChild *Vertex
	enter        Activity
	exit         Activity
	index        int
}

// VertexOption configures a state.
type VertexOption func(*Vertex)

// WithEnter sets the enter activity.
func WithEnter(fn Activity) VertexOption {
	return func(v *Vertex) { v.enter = fn }
}

// WithExit sets the exit activity.
func WithExit(fn Activity) VertexOption {
	return func(v *Vertex) { v.exit = fn }
}

// WithParent nests the state inside a composite parent.
func WithParent(parent *Vertex) VertexOption {
	return func(v *Vertex) {
		v.parent = parent
		if parent != nil {
			parent.children = append(parent.children, v)
		}
	}
}

// InitialChildOf nests the state inside parent and makes it the child
// entered whenever parent is entered.
func InitialChildOf(parent *Vertex) VertexOption {
	return func(v *Vertex) {
		WithParent(parent)(v)
		if parent != nil {
			parent.initialChild = v
		}
	}
}

func (v *Vertex) Name() string           { return v.name }
func (v *Vertex) Kind() VertexKind       { return v.kind }
func (v *Vertex) Parent() *Vertex        { return v.parent }
func (v *Vertex) InitialChild() *Vertex  { return v.initialChild }
func (v *Vertex) IsComposite() bool      { return len(v.children) > 0 }
func (v *Vertex) HasEnterActivity() bool { return v.enter != nil }
func (v *Vertex) HasExitActivity() bool  { return v.exit != nil }

// Children returns the nested vertices in declaration order.
func (v *Vertex) Children() []*Vertex {
	out := make([]*Vertex, len(v.children))
	copy(out, v.children)
	return out
}

// Path returns the dot separated names from the outermost ancestor to v.
func (v *Vertex) Path() string {
	if v.parent == nil {
		return v.name
	}
	return v.parent.Path() + "." + v.name
}

func (v *Vertex) String() string { return v.name }

// isAncestorOf reports whether v is a strict ancestor of other.
func (v *Vertex) isAncestorOf(other *Vertex) bool {
	for p := other.parent; p != nil; p = p.parent {
		if p == v {
			return true
		}
	}
	return false
}

// transitionDomain returns the deepest vertex that strictly contains both
// source and target, or nil for the machine root. An external transition
// exits and re-enters everything below the domain.
func transitionDomain(source, target *Vertex) *Vertex {
	for d := source.parent; d != nil; d = d.parent {
		if d.isAncestorOf(target) {
			return d
		}
	}
	return nil
}
