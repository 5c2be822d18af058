package binding

import "github.com/comalice/blockx/value"

// Bind declares parameter id bound to src. Every Set on src hands the new
// value to the constraint.
func Bind[T any](c *Constraint, id string, src *value.Value[T]) (*Port, error) {
	return c.Observe(id, src, func(p *Port, source any) {
		p.Put(source.(*value.Value[T]).Get())
		p.Signal()
	})
}

// Objective is a constraint whose perform evaluates a scalar objective
// function into Output.
type Objective struct {
	*Constraint
	output *value.Value[float64]
}

// NewObjective creates an objective called name. fn runs on every
// recomputation; its result is stored in Output and observers of both the
// output and the objective are notified.
func NewObjective(name string, fn func(c *Constraint) (float64, error), opts ...Option) *Objective {
	o := &Objective{output: value.New(name, 0.0)}
	o.Constraint = New(name, func(c *Constraint) error {
		v, err := fn(c)
		if err != nil {
			return err
		}
		o.output.Set(v)
		c.NotifyObservers()
		return nil
	}, opts...)
	return o
}

// Output is the value downstream constraints bind to.
func (o *Objective) Output() *value.Value[float64] { return o.output }
