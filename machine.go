package blockx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/comalice/blockx/internal/clock"
	"github.com/comalice/blockx/internal/ctxlog"
	"github.com/comalice/blockx/internal/queue"
)

// Machine interprets one topology. Events are queued from any goroutine and
// consumed by exactly one goroutine at a time, so transitions of a machine
// are totally ordered by dequeue order. Ordering across machines is not
// defined.
type Machine struct {
	name        string
	topology    *Topology
	logger      *slog.Logger
	transmitter Transmitter
	data        any
	synchronous bool

	queue *queue.Queue[Event]

	mu      sync.RWMutex
	current *Vertex
	started bool
	err     error

	processed atomic.Uint64

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	doneOnce sync.Once

	// drainMu admits a single drainer for synchronous machines.
	drainMu sync.Mutex

	timerMu  sync.Mutex
	timers   map[string]*timerEntry
	timerGen uint64
}

// NewMachine creates a machine for topology. The machine does nothing until
// Start is called; events queued before that are kept.
func NewMachine(topology *Topology, opts ...Option) *Machine {
	m := &Machine{
		name:     topology.name,
		topology: topology,
		logger:   slog.Default(),
		queue:    queue.New[Event](),
		current:  topology.initial,
		done:     make(chan struct{}),
		timers:   make(map[string]*timerEntry),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("block", m.name)

	for _, a := range topology.Ambiguities() {
		if a.Shadowed {
			m.logger.Warn("unguarded transition shadows later candidates",
				"state", a.Source.name, "trigger", a.Trigger.String(), "candidates", len(a.Transitions))
		} else {
			m.logger.Debug("guards resolved by declaration order",
				"state", a.Source.name, "trigger", a.Trigger.String(), "candidates", len(a.Transitions))
		}
	}
	return m
}

// Start injects the initial event ahead of anything already queued. An
// asynchronous machine then runs its loop on a dedicated goroutine; a
// synchronous machine processes the queue before Start returns. A machine
// stopped before it was started returns ErrStopped.
func (m *Machine) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	if m.terminated() {
		m.mu.Unlock()
		return ErrStopped
	}
	m.started = true
	m.ctx, m.cancel = context.WithCancel(ctxlog.WithLogger(ctx, m.logger))
	m.mu.Unlock()

	m.queue.PutFront(InitialEvent())
	m.logger.Debug("machine started", "synchronous", m.synchronous)

	if m.synchronous {
		m.drain()
		return m.Err()
	}
	go m.run()
	return nil
}

// QueueEvent appends e to the event queue. Safe from any goroutine,
// including from effects of this machine. Events sent to a terminated
// machine are discarded.
func (m *Machine) QueueEvent(e Event) {
	if m.terminated() {
		m.logger.Debug("machine terminated, event discarded", "event", e.String())
		return
	}
	m.queue.Put(e)
	if m.synchronous && m.isStarted() {
		m.drain()
	}
}

// Stop ends the machine. An asynchronous machine is cancelled at once:
// queued events are abandoned and a running effect sees its context
// cancelled. A synchronous machine receives a final event instead and must
// handle it from any state. All timers are cancelled either way.
func (m *Machine) Stop() {
	m.StopAllTimers()
	if !m.isStarted() {
		m.finish(ErrStopped)
		return
	}
	if m.synchronous {
		m.QueueEvent(FinalEvent())
		return
	}
	m.mu.RLock()
	cancel := m.cancel
	m.mu.RUnlock()
	cancel()
}

// Done is closed once the machine has terminated.
func (m *Machine) Done() <-chan struct{} { return m.done }

// Err reports why the machine terminated: nil for a final state, ErrStopped
// for a hard stop or an error wrapping ErrBehaviorFailed.
func (m *Machine) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

func (m *Machine) Name() string        { return m.name }
func (m *Machine) Topology() *Topology { return m.topology }
func (m *Machine) Synchronous() bool   { return m.synchronous }

// Processed returns the number of events fully processed so far.
func (m *Machine) Processed() uint64 { return m.processed.Load() }

// Pending returns the number of queued events.
func (m *Machine) Pending() int { return m.queue.Len() }

// Current returns the current vertex.
func (m *Machine) Current() *Vertex {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// CurrentName returns the name of the current vertex.
func (m *Machine) CurrentName() string {
	return m.Current().name
}

// IsInState reports whether name is the current vertex or one of its ancestors.
func (m *Machine) IsInState(name string) bool {
	for v := m.Current(); v != nil; v = v.parent {
		if v.name == name {
			return true
		}
	}
	return false
}

func (m *Machine) isStarted() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.started
}

func (m *Machine) terminated() bool {
	select {
	case <-m.done:
		return true
	default:
		return false
	}
}

// run is the dedicated goroutine of an asynchronous machine.
func (m *Machine) run() {
	for {
		if m.ctx.Err() != nil {
			m.finish(ErrStopped)
			return
		}
		e, err := m.queue.Take(m.ctx)
		if err != nil {
			m.finish(ErrStopped)
			return
		}
		if !m.step(e) {
			return
		}
	}
}

// drain processes queued events on the calling goroutine. Only one
// goroutine drains at a time; others leave their event for it.
func (m *Machine) drain() {
	for {
		if !m.drainMu.TryLock() {
			return
		}
		for !m.terminated() {
			e, ok := m.queue.TryTake()
			if !ok {
				break
			}
			if !m.step(e) {
				break
			}
		}
		m.drainMu.Unlock()
		// an event may have arrived after the last TryTake while the lock
		// was still held by us
		if m.terminated() || m.queue.Len() == 0 {
			return
		}
	}
}

// step processes one event and reports whether the machine keeps running.
func (m *Machine) step(e Event) bool {
	err := m.dispatch(e)
	m.processed.Add(1)
	if err != nil {
		m.logger.Error("behavior failed, machine stopped", "state", m.CurrentName(), "event", e.String(), "error", err)
		m.finish(fmt.Errorf("%w: %w", ErrBehaviorFailed, err))
		return false
	}
	if cur := m.Current(); cur.kind == FinalVertex {
		m.logger.Info("final state reached", "state", cur.name)
		m.finish(nil)
		return false
	}
	return true
}

func (m *Machine) finish(err error) {
	m.doneOnce.Do(func() {
		m.mu.Lock()
		m.err = err
		cancel := m.cancel
		m.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		m.StopAllTimers()
		close(m.done)
	})
}

func (m *Machine) dispatch(e Event) error {
	if e.Kind == KindTime && !m.timerEventLive(e) {
		m.logger.Debug("stale time event discarded", "timer", e.TimerID)
		return nil
	}

	cur := m.Current()
	t, err := m.selectTransition(cur, e, true)
	if err != nil {
		return err
	}
	if t == nil {
		m.logger.Info("event dropped: no matching transition", "state", cur.name, "event", e.String())
		return nil
	}
	next, err := m.fire(t, e)
	if err != nil || t.kind == Internal {
		return err
	}
	return m.settle(next)
}

// settle resolves choice pseudostates and takes completion transitions of
// freshly entered states until the cursor rests. It loops rather than
// recursing so long choice/completion chains run in constant stack.
func (m *Machine) settle(v *Vertex) error {
	for {
		if v.kind != ChoiceVertex && v.kind != StateVertex {
			return nil
		}
		t, err := m.selectTransition(v, CompletionEvent(), false)
		if err != nil {
			return err
		}
		if t == nil {
			if v.kind == ChoiceVertex {
				m.logger.Error("no enabled choice branch, machine is stuck", "choice", v.name)
			}
			return nil
		}
		if v, err = m.fire(t, CompletionEvent()); err != nil || t.kind == Internal {
			return err
		}
	}
}

// selectTransition returns the first transition, in declaration order, whose
// trigger matches e and whose guard passes. With ancestors set, transitions
// of enclosing states are considered after those of cur, nearest first.
func (m *Machine) selectTransition(cur *Vertex, e Event, ancestors bool) (*Transition, error) {
	for v := cur; v != nil; v = v.parent {
		for _, t := range m.topology.outgoing[v] {
			if !t.trigger.Matches(e) {
				continue
			}
			ok, err := m.evalGuard(t, e)
			if err != nil {
				return nil, err
			}
			if ok {
				return t, nil
			}
			m.logger.Debug("guard rejected transition", "transition", t.name, "guard", t.guardName)
		}
		if !ancestors {
			break
		}
	}
	return nil, nil
}

// fire executes t for event e and returns the vertex the cursor rests on.
func (m *Machine) fire(t *Transition, e Event) (*Vertex, error) {
	from := m.Current()
	rec := TraceRecord{
		Context:      m.name,
		CurrentState: from.name,
		Event:        e.String(),
		Transition:   t.name,
		Guard:        t.guardName,
		Effect:       t.effectName,
	}

	if t.kind == Internal {
		if err := m.runEffect(t, e); err != nil {
			return nil, err
		}
		rec.NextState = from.name
		m.transmit(rec)
		return from, nil
	}

	domain := transitionDomain(t.source, t.target)
	for v := from; v != nil && v != domain; v = v.parent {
		if err := m.exitVertex(v, t, e); err != nil {
			return nil, err
		}
	}
	if err := m.runEffect(t, e); err != nil {
		return nil, err
	}
	var path []*Vertex
	for v := t.target; v != nil && v != domain; v = v.parent {
		path = append([]*Vertex{v}, path...)
	}
	for _, v := range path {
		if err := m.enterVertex(v, t, e); err != nil {
			return nil, err
		}
	}
	for v := t.target; v.initialChild != nil; v = v.initialChild {
		if err := m.enterVertex(v.initialChild, t, e); err != nil {
			return nil, err
		}
	}

	next := m.Current()
	rec.NextState = next.name
	m.transmit(rec)
	m.logger.Debug("transition fired", "transition", t.name, "from", from.name, "to", next.name, "event", e.String())
	return next, nil
}

func (m *Machine) enterVertex(v *Vertex, t *Transition, e Event) error {
	m.mu.Lock()
	m.current = v
	m.mu.Unlock()
	if v.enter == nil {
		return nil
	}
	ctx := m.newContext(e, t.source, v)
	return m.call("enter activity", v.name, func() error { return v.enter(ctx) })
}

func (m *Machine) exitVertex(v *Vertex, t *Transition, e Event) error {
	if v.exit == nil {
		return nil
	}
	ctx := m.newContext(e, v, t.target)
	return m.call("exit activity", v.name, func() error { return v.exit(ctx) })
}

func (m *Machine) runEffect(t *Transition, e Event) error {
	if t.effect == nil {
		return nil
	}
	ctx := m.newContext(e, t.source, t.target)
	return m.call("effect", t.effectName, func() error { return t.effect(ctx) })
}

func (m *Machine) evalGuard(t *Transition, e Event) (ok bool, err error) {
	if t.guard == nil {
		return true, nil
	}
	ctx := m.newContext(e, t.source, t.target)
	err = m.call("guard", t.guardName, func() error {
		ok = t.guard(ctx)
		return nil
	})
	return ok, err
}

// call runs a behavior and converts a panic into an error.
func (m *Machine) call(what, name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s %q panicked: %v", what, name, r)
		}
	}()
	if err = fn(); err != nil {
		return fmt.Errorf("%s %q: %w", what, name, err)
	}
	return nil
}

func (m *Machine) newContext(e Event, source, target *Vertex) *Context {
	m.mu.RLock()
	ctx := m.ctx
	m.mu.RUnlock()
	return &Context{
		Machine: m,
		Event:   e,
		Source:  source,
		Target:  target,
		Data:    m.data,
		Logger:  m.logger,
		ctx:     ctx,
	}
}

func (m *Machine) transmit(rec TraceRecord) {
	if m.transmitter == nil {
		return
	}
	rec.Timestamp = clock.NowMillis()
	if err := m.transmitter.Transmit(m.ctx, rec); err != nil && !errors.Is(err, context.Canceled) {
		m.logger.Warn("trace transmit failed", "transition", rec.Transition, "error", err)
	}
}
