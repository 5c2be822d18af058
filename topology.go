package blockx

// Topology is the immutable structure of a state machine: its vertices and
// transitions. One topology can drive any number of machines.
type Topology struct {
	name        string
	vertices    []*Vertex
	transitions []*Transition
	byName      map[string]*Vertex
	outgoing    map[*Vertex][]*Transition
	initial     *Vertex
	final       *Vertex
}

// Ambiguity describes transitions leaving the same vertex on the same
// trigger. Selection between them falls back to declaration order, so
// overlapping guards make the outcome depend on that order.
type Ambiguity struct {
	Source      *Vertex
	Trigger     Trigger
	Transitions []*Transition
	// Shadowed is set when an unguarded transition precedes others; those
	// can never fire.
	Shadowed bool
}

func (t *Topology) Name() string     { return t.name }
func (t *Topology) Initial() *Vertex { return t.initial }

// Final returns the final state or nil when the topology has none.
func (t *Topology) Final() *Vertex { return t.final }

// Vertex looks a vertex up by name.
func (t *Topology) Vertex(name string) (*Vertex, bool) {
	v, ok := t.byName[name]
	return v, ok
}

// Vertices returns all vertices in declaration order.
func (t *Topology) Vertices() []*Vertex {
	return append([]*Vertex(nil), t.vertices...)
}

// Transitions returns all transitions in declaration order.
func (t *Topology) Transitions() []*Transition {
	return append([]*Transition(nil), t.transitions...)
}

// Outgoing returns the transitions leaving v in declaration order.
func (t *Topology) Outgoing(v *Vertex) []*Transition {
	return append([]*Transition(nil), t.outgoing[v]...)
}

// Ambiguities lists every vertex/trigger pair with more than one candidate
// transition.
func (t *Topology) Ambiguities() []Ambiguity {
	var out []Ambiguity
	for _, v := range t.vertices {
		groups := make(map[Trigger][]*Transition)
		var order []Trigger
		for _, tr := range t.outgoing[v] {
			if _, seen := groups[tr.trigger]; !seen {
				order = append(order, tr.trigger)
			}
			groups[tr.trigger] = append(groups[tr.trigger], tr)
		}
		for _, trig := range order {
			candidates := groups[trig]
			if len(candidates) < 2 {
				continue
			}
			a := Ambiguity{Source: v, Trigger: trig, Transitions: candidates}
			for _, c := range candidates[:len(candidates)-1] {
				if c.guard == nil {
					a.Shadowed = true
					break
				}
			}
			out = append(out, a)
		}
	}
	return out
}
