package binding

import (
	"github.com/comalice/blockx/internal/queue"
	"github.com/comalice/blockx/value"
)

// BindFunc pulls the current value of source into port and signals the
// owning constraint. It runs on whatever goroutine changed the source.
type BindFunc func(port *Port, source any)

// Port is the handoff between a bound source and a constraint. Writers Put
// from any goroutine; the constraint takes one value per signal on its own
// goroutine.
type Port struct {
	id     string
	owner  *Constraint
	source any
	bind   BindFunc
	q      *queue.Queue[any]
}

func newPort(id string, owner *Constraint, source any, bind BindFunc) *Port {
	return &Port{id: id, owner: owner, source: source, bind: bind, q: queue.New[any]()}
}

// ID returns the parameter id.
func (p *Port) ID() string { return p.id }

// Put hands v to the constraint.
func (p *Port) Put(v any) { p.q.Put(v) }

// Take returns the oldest handed-off value without blocking.
func (p *Port) Take() (any, bool) { return p.q.TryTake() }

// Pending returns the number of values not yet taken.
func (p *Port) Pending() int { return p.q.Len() }

// Signal tells the owner that the parameter changed.
func (p *Port) Signal() { p.owner.ParameterChanged(p.id) }

// Pull runs the bind function against the bound source.
func (p *Port) Pull() {
	if p.bind != nil {
		p.bind(p, p.source)
	}
}

// ValueChanged implements value.Observer so a port can watch its source
// directly.
func (p *Port) ValueChanged(value.Observable) { p.Pull() }
