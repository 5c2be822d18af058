// Package binding propagates value changes between blocks that run on
// different goroutines.
//
// A Constraint declares parameters bound to values owned elsewhere. A
// change to a bound value is handed to the parameter's Port and converted
// into a change event on the constraint's own state machine, so every
// recomputation runs on a single goroutine no matter which goroutine wrote
// the source:
//
//	source.Set(x)            (any goroutine)
//	  -> Port.Put(x), Port.Signal()
//	  -> change event        (constraint machine)
//	  -> params[id] = x, perform(c), c.NotifyObservers()
package binding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/comalice/blockx"
	"github.com/comalice/blockx/value"
)

// PerformFunc recomputes a constraint's outputs from its parameters. It
// runs on the constraint's machine goroutine. An error stops the
// constraint.
type PerformFunc func(c *Constraint) error

// Constraint is a block capability that keeps derived values consistent
// with bound parameters. It is observable: perform implementations call
// NotifyObservers once outputs are updated.
type Constraint struct {
	value.Subject

	name    string
	perform PerformFunc
	logger  *slog.Logger
	period  time.Duration
	mopts   []blockx.Option
	machine *blockx.Machine

	portMu sync.RWMutex
	ports  map[string]*Port
	order  []string
	watch  []watched

	paramMu        sync.RWMutex
	params         map[string]any
	currentParamID string
	currentParam   any
	previousParam  any

	performed atomic.Uint64
}

type watched struct {
	src  value.Observable
	port *Port
}

// New creates a constraint called name recomputed by perform.
func New(name string, perform PerformFunc, opts ...Option) *Constraint {
	c := &Constraint{
		name:    name,
		perform: perform,
		logger:  slog.Default(),
		ports:   make(map[string]*Port),
		params:  make(map[string]any),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("constraint", name)

	topo, err := constraintTopology()
	if err != nil {
		panic(fmt.Sprintf("binding: constraint topology: %v", err))
	}
	mopts := append([]blockx.Option{
		blockx.WithName(name),
		blockx.WithLogger(c.logger),
		blockx.WithData(c),
	}, c.mopts...)
	c.machine = blockx.NewMachine(topo, mopts...)
	return c
}

func (c *Constraint) Name() string             { return c.name }
func (c *Constraint) Machine() *blockx.Machine { return c.machine }
func (c *Constraint) Done() <-chan struct{}    { return c.machine.Done() }
func (c *Constraint) Err() error               { return c.machine.Err() }
func (c *Constraint) State() string            { return c.machine.CurrentName() }

// Performed returns how many times perform ran.
func (c *Constraint) Performed() uint64 { return c.performed.Load() }

// AddPort declares parameter id bound to source through bind.
func (c *Constraint) AddPort(id string, source any, bind BindFunc) (*Port, error) {
	if id == "" {
		return nil, errors.New("parameter id is required")
	}
	c.portMu.Lock()
	defer c.portMu.Unlock()
	if _, dup := c.ports[id]; dup {
		return nil, fmt.Errorf("constraint %s: duplicate parameter %q", c.name, id)
	}
	p := newPort(id, c, source, bind)
	c.ports[id] = p
	c.order = append(c.order, id)
	return p, nil
}

// Observe declares parameter id and subscribes its port to src, so every
// notification of src pulls the value through bind.
func (c *Constraint) Observe(id string, src value.Observable, bind BindFunc) (*Port, error) {
	p, err := c.AddPort(id, src, bind)
	if err != nil {
		return nil, err
	}
	src.AddObserver(p)
	c.portMu.Lock()
	c.watch = append(c.watch, watched{src: src, port: p})
	c.portMu.Unlock()
	return p, nil
}

// Port returns the port of parameter id.
func (c *Constraint) Port(id string) (*Port, bool) {
	c.portMu.RLock()
	defer c.portMu.RUnlock()
	p, ok := c.ports[id]
	return p, ok
}

// ParameterChanged queues a change event carrying id.
func (c *Constraint) ParameterChanged(id string) {
	c.machine.QueueEvent(blockx.ChangeEvent(ParameterChange, id))
}

// Start runs the constraint machine. While initializing, every port pulls
// its source once so parameters start populated.
func (c *Constraint) Start(ctx context.Context) error {
	return c.machine.Start(ctx)
}

// Stop detaches from observed sources and moves the machine to its final
// state, which stops the period timer.
func (c *Constraint) Stop() {
	c.portMu.Lock()
	watch := c.watch
	c.watch = nil
	c.portMu.Unlock()
	for _, w := range watch {
		w.src.RemoveObserver(w.port)
	}
	c.machine.QueueEvent(blockx.FinalEvent())
}

// NotifyObservers tells observers that outputs changed.
func (c *Constraint) NotifyObservers() {
	c.NotifyFrom(c)
}

// Param returns the last value taken for id.
func (c *Constraint) Param(id string) (any, bool) {
	c.paramMu.RLock()
	defer c.paramMu.RUnlock()
	v, ok := c.params[id]
	return v, ok
}

// Params returns a copy of all parameter values.
func (c *Constraint) Params() map[string]any {
	c.paramMu.RLock()
	defer c.paramMu.RUnlock()
	out := make(map[string]any, len(c.params))
	for k, v := range c.params {
		out[k] = v
	}
	return out
}

// CurrentParamID returns the id of the parameter that triggered the
// running or last perform. Empty for time-driven runs before any change.
func (c *Constraint) CurrentParamID() string {
	c.paramMu.RLock()
	defer c.paramMu.RUnlock()
	return c.currentParamID
}

// CurrentParam returns the value that triggered the running or last perform.
func (c *Constraint) CurrentParam() any {
	c.paramMu.RLock()
	defer c.paramMu.RUnlock()
	return c.currentParam
}

// PreviousParam returns the triggering value of the perform before that.
func (c *Constraint) PreviousParam() any {
	c.paramMu.RLock()
	defer c.paramMu.RUnlock()
	return c.previousParam
}

// ParamAs returns parameter id converted to T.
func ParamAs[T any](c *Constraint, id string) (T, bool) {
	v, ok := c.Param(id)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

func (c *Constraint) initialize(*blockx.Context) error {
	c.portMu.RLock()
	ports := make([]*Port, 0, len(c.order))
	for _, id := range c.order {
		ports = append(ports, c.ports[id])
	}
	c.portMu.RUnlock()

	for _, p := range ports {
		p.Pull()
	}
	c.logger.Debug("constraint initialized", "parameters", len(ports))
	return nil
}

func (c *Constraint) onParameterChange(ctx *blockx.Context) error {
	id, _ := ctx.Event.Payload.(string)
	p, ok := c.Port(id)
	if !ok {
		c.logger.Error("change for unknown parameter ignored", "parameter", id)
		return nil
	}
	v, ok := p.Take()
	if !ok || v == nil {
		c.logger.Error("parameter port handed off no value, change ignored", "parameter", id)
		return nil
	}

	c.paramMu.Lock()
	c.previousParam = c.currentParam
	c.currentParam = v
	c.params[id] = v
	c.currentParamID = id
	c.paramMu.Unlock()

	return c.run()
}

func (c *Constraint) onTimeEvent(*blockx.Context) error {
	return c.run()
}

func (c *Constraint) run() error {
	c.performed.Add(1)
	if c.perform == nil {
		c.NotifyObservers()
		return nil
	}
	return c.perform(c)
}

func (c *Constraint) startPeriod(ctx *blockx.Context) error {
	if c.period > 0 {
		ctx.StartTimer(PeriodTimer, c.period, c.period)
	}
	return nil
}

func (c *Constraint) stopPeriod(ctx *blockx.Context) error {
	ctx.StopTimer(PeriodTimer)
	return nil
}
