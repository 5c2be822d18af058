// Package block provides the execution unit of a model: a named block that
// owns typed values, nested parts, ports, constraints and optionally a state
// machine, plus a bounded pool for ancillary concurrent work.
package block

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/comalice/blockx"
	"github.com/comalice/blockx/internal/ctxlog"
	"github.com/comalice/blockx/internal/idgen"
	"github.com/comalice/blockx/relay"
	"github.com/comalice/blockx/value"
)

// Component is a started and stopped collaborator of a block, typically a
// constraint.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop()
}

// Block is an execution unit. Blocks are assembled by a Builder and are
// safe for concurrent use once built.
type Block struct {
	id         string
	name       string
	parent     *Block
	baseLogger *slog.Logger
	logger     *slog.Logger

	poolSize    int
	pool        *errgroup.Group
	machineOpts []blockx.Option
	machine     *blockx.Machine

	mu          sync.RWMutex
	ctx         context.Context
	values      map[string]value.Observable
	valueOrder  []string
	flows       map[string]value.Observable
	parts       []*Block
	partsByName map[string]*Block
	ports       map[string]*relay.Port
	activities  map[string]blockx.Activity
	constraints []Component
}

func newBlock(name string, opts ...Option) *Block {
	b := &Block{
		id:          idgen.New(),
		name:        name,
		baseLogger:  slog.Default(),
		poolSize:    DefaultPoolSize,
		ctx:         context.Background(),
		values:      make(map[string]value.Observable),
		flows:       make(map[string]value.Observable),
		partsByName: make(map[string]*Block),
		ports:       make(map[string]*relay.Port),
		activities:  make(map[string]blockx.Activity),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.baseLogger.With("block", name)
	b.pool = new(errgroup.Group)
	b.pool.SetLimit(b.poolSize)
	return b
}

func (b *Block) ID() string               { return b.id }
func (b *Block) Name() string             { return b.name }
func (b *Block) Parent() *Block           { return b.parent }
func (b *Block) Logger() *slog.Logger     { return b.logger }
func (b *Block) Machine() *blockx.Machine { return b.machine }
func (b *Block) String() string           { return b.name }

// Path returns the dotted names from the root block down to b.
func (b *Block) Path() string {
	if b.parent == nil {
		return b.name
	}
	return b.parent.Path() + "." + b.name
}

// AddValue registers a typed value under its name.
func (b *Block) AddValue(v value.Observable) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, dup := b.values[v.Name()]; dup {
		return fmt.Errorf("block %s: duplicate value %q", b.name, v.Name())
	}
	b.values[v.Name()] = v
	b.valueOrder = append(b.valueOrder, v.Name())
	return nil
}

// Value returns the value registered as name.
func (b *Block) Value(name string) (value.Observable, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[name]
	return v, ok
}

// Values returns the registered values in registration order.
func (b *Block) Values() []value.Observable {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]value.Observable, 0, len(b.valueOrder))
	for _, name := range b.valueOrder {
		out = append(out, b.values[name])
	}
	return out
}

// AddFlow registers an item flow: a value that crosses the block boundary.
func (b *Block) AddFlow(v value.Observable) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, dup := b.flows[v.Name()]; dup {
		return fmt.Errorf("block %s: duplicate flow %q", b.name, v.Name())
	}
	b.flows[v.Name()] = v
	return nil
}

// Flow returns the item flow registered as name.
func (b *Block) Flow(name string) (value.Observable, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.flows[name]
	return v, ok
}

// AddPart nests p inside b.
func (b *Block) AddPart(p *Block) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, dup := b.partsByName[p.name]; dup {
		return fmt.Errorf("block %s: duplicate part %q", b.name, p.name)
	}
	if p.parent != nil {
		return fmt.Errorf("block %s: part %q already belongs to %s", b.name, p.name, p.parent.name)
	}
	p.parent = b
	b.parts = append(b.parts, p)
	b.partsByName[p.name] = p
	return nil
}

// Part returns the nested block called name.
func (b *Block) Part(name string) (*Block, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.partsByName[name]
	return p, ok
}

// Parts returns the nested blocks in the order they were added.
func (b *Block) Parts() []*Block {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]*Block(nil), b.parts...)
}

// AddPort creates the port called name.
func (b *Block) AddPort(name string) (*relay.Port, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, dup := b.ports[name]; dup {
		return nil, fmt.Errorf("block %s: duplicate port %q", b.name, name)
	}
	p := relay.NewPort(name, relay.WithLogger(b.logger))
	b.ports[name] = p
	return p, nil
}

// Port returns the port called name.
func (b *Block) Port(name string) (*relay.Port, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.ports[name]
	return p, ok
}

// AddActivity registers a named activity that the state machine phase can
// attach to vertices.
func (b *Block) AddActivity(name string, fn blockx.Activity) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.activities[name] = fn
}

// Activity returns the activity registered as name.
func (b *Block) Activity(name string) (blockx.Activity, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	fn, ok := b.activities[name]
	return fn, ok
}

// AddConstraint attaches a component started and stopped with the block.
func (b *Block) AddConstraint(c Component) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.constraints = append(b.constraints, c)
}

// Constraints returns the attached components.
func (b *Block) Constraints() []Component {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Component(nil), b.constraints...)
}

// Start starts parts, constraints and then the block's own machine. If any
// of them fails, the components already started are stopped in reverse
// order before the error is returned.
func (b *Block) Start(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, b.logger)
	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()

	var started []Component
	rollback := func(err error) error {
		for i := len(started) - 1; i >= 0; i-- {
			started[i].Stop()
		}
		b.logger.Error("block start failed, started components stopped", "stopped", len(started), "error", err)
		return err
	}

	for _, p := range b.Parts() {
		if err := p.Start(ctx); err != nil {
			return rollback(fmt.Errorf("start part %s: %w", p.name, err))
		}
		started = append(started, p)
	}
	for _, c := range b.Constraints() {
		if err := c.Start(ctx); err != nil {
			return rollback(fmt.Errorf("start constraint %s: %w", c.Name(), err))
		}
		started = append(started, c)
	}
	if b.machine == nil {
		b.logger.Warn("block has no state machine, start ignored")
		return nil
	}
	if err := b.machine.Start(ctx); err != nil {
		return rollback(fmt.Errorf("start machine: %w", err))
	}
	return nil
}

// Stop stops the block's machine, its constraints and then its parts.
func (b *Block) Stop() {
	if b.machine == nil {
		b.logger.Warn("block has no state machine, stop ignored")
	} else {
		b.machine.Stop()
	}
	for _, c := range b.Constraints() {
		c.Stop()
	}
	for _, p := range b.Parts() {
		p.Stop()
	}
}

// AcceptEvent queues e on the block's machine.
func (b *Block) AcceptEvent(e blockx.Event) {
	if b.machine == nil {
		b.logger.Warn("block has no state machine, event ignored", "event", e.String())
		return
	}
	b.machine.QueueEvent(e)
}

// Go runs fn on the block's pool. It blocks while the pool is full. fn
// receives the context passed to Start, carrying the block's logger.
func (b *Block) Go(fn func(ctx context.Context) error) {
	ctx := b.context()
	b.pool.Go(func() error { return fn(ctx) })
}

// TryGo runs fn only if the pool has room and reports whether it did.
func (b *Block) TryGo(fn func(ctx context.Context) error) bool {
	ctx := b.context()
	return b.pool.TryGo(func() error { return fn(ctx) })
}

// Wait blocks until every function started with Go returned and reports
// the first error.
func (b *Block) Wait() error {
	return b.pool.Wait()
}

func (b *Block) context() context.Context {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ctx
}
