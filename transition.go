package blockx

// TransitionKind distinguishes external from internal transitions.
type TransitionKind int

const (
	// External transitions run exit activities, the effect and enter activities.
	External TransitionKind = iota
	// Internal transitions keep the cursor and only run the effect.
	Internal
)

func (k TransitionKind) String() string {
	if k == Internal {
		return "internal"
	}
	return "external"
}

// Guard gates a transition. Guards are evaluated synchronously on the
// machine goroutine and must not have side effects.
type Guard func(ctx *Context) bool

// Effect runs after a transition is selected. It may mutate block state and
// queue further events, including into other blocks.
type Effect func(ctx *Context) error

// Transition connects a source vertex to a target vertex.
type Transition struct {
	name       string
	source     *Vertex
	target     *Vertex
	trigger    Trigger
	guard      Guard
	guardName  string
	effect     Effect
	effectName string
	kind       TransitionKind
	index      int
}

// TransitionOption configures a transition.
type TransitionOption func(*Transition)

// On sets the trigger.
func On(tr Trigger) TransitionOption {
	return func(t *Transition) { t.trigger = tr }
}

// OnSignal fires on signals named name; an empty name accepts any signal.
func OnSignal(name string) TransitionOption { return On(Trigger{Kind: KindSignal, Name: name}) }

// OnChange fires on change events for expr; an empty expr accepts any change.
func OnChange(expr string) TransitionOption { return On(Trigger{Kind: KindChange, Name: expr}) }

// OnCall fires on call events for op.
func OnCall(op string) TransitionOption { return On(Trigger{Kind: KindCall, Name: op}) }

// OnTime fires on time events of timerID; an empty id accepts any timer.
func OnTime(timerID string) TransitionOption { return On(Trigger{Kind: KindTime, Name: timerID}) }

// OnCompletion fires when the source state completes.
func OnCompletion() TransitionOption { return On(Trigger{Kind: KindCompletion}) }

// OnFinal fires on the final event delivered by Stop.
func OnFinal() TransitionOption { return On(Trigger{Kind: KindFinal}) }

// WithGuard sets a named guard.
func WithGuard(name string, fn Guard) TransitionOption {
	return func(t *Transition) {
		t.guard = fn
		t.guardName = name
	}
}

// WithEffect sets a named effect.
func WithEffect(name string, fn Effect) TransitionOption {
	return func(t *Transition) {
		t.effect = fn
		t.effectName = name
	}
}

// AsInternal marks the transition internal. Source and target must be the same state.
func AsInternal() TransitionOption {
	return func(t *Transition) { t.kind = Internal }
}

// Named overrides the default "source->target" name.
func Named(name string) TransitionOption {
	return func(t *Transition) { t.name = name }
}

func (t *Transition) Name() string         { return t.name }
func (t *Transition) Source() *Vertex      { return t.source }
func (t *Transition) Target() *Vertex      { return t.target }
func (t *Transition) Trigger() Trigger     { return t.trigger }
func (t *Transition) Kind() TransitionKind { return t.kind }
func (t *Transition) GuardName() string    { return t.guardName }
func (t *Transition) EffectName() string   { return t.effectName }
func (t *Transition) HasGuard() bool       { return t.guard != nil }
func (t *Transition) HasEffect() bool      { return t.effect != nil }

func (t *Transition) String() string { return t.name }
