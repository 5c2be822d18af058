package blockx

import "fmt"

// EventKind tags an Event. Kinds are mutually exclusive.
type EventKind int

const (
	// KindNone is never carried by an event. As a trigger it marks a
	// transition that fires on completion or from a choice pseudostate.
	KindNone EventKind = iota
	KindInitial
	KindFinal
	KindCall
	KindChange
	KindSignal
	KindCompletion
	KindTime
)

var kindNames = [...]string{
	KindNone:       "none",
	KindInitial:    "initial",
	KindFinal:      "final",
	KindCall:       "call",
	KindChange:     "change",
	KindSignal:     "signal",
	KindCompletion: "completion",
	KindTime:       "time",
}

func (k EventKind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Event is an immutable message consumed by exactly one interpreter.
// Use the constructors; consumers must not modify an event after creation.
type Event struct {
	Kind       EventKind
	Name       string // signal name, call operation, change expression or timer id
	Expression string // change expression, empty for other kinds
	TimerID    string // set for KindTime
	Payload    any

	timerGen uint64 // generation of the timer that produced the event, 0 when untracked
}

// InitialEvent starts a machine.
func InitialEvent() Event { return Event{Kind: KindInitial} }

// FinalEvent asks a machine to move to its final state.
func FinalEvent() Event { return Event{Kind: KindFinal} }

// CompletionEvent signals that a state finished its activities.
func CompletionEvent() Event { return Event{Kind: KindCompletion} }

// CallEvent represents an operation invoked on the owning block.
func CallEvent(op string, args any) Event {
	return Event{Kind: KindCall, Name: op, Payload: args}
}

// ChangeEvent reports that expr changed; payload usually carries the new
// value or the id of the changed parameter.
func ChangeEvent(expr string, payload any) Event {
	return Event{Kind: KindChange, Name: expr, Expression: expr, Payload: payload}
}

// SignalEvent is an asynchronous named message.
func SignalEvent(name string, payload any) Event {
	return Event{Kind: KindSignal, Name: name, Payload: payload}
}

// TimeEvent is produced by the timer identified by timerID.
func TimeEvent(timerID string) Event {
	return Event{Kind: KindTime, Name: timerID, TimerID: timerID}
}

func (e Event) String() string {
	if e.Name == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ":" + e.Name
}

// Trigger selects the events a transition reacts to.
type Trigger struct {
	Kind EventKind
	Name string // empty matches any name of Kind
}

// Matches reports whether e fires a transition with this trigger.
// Initial and Final triggers match unconditionally on kind. A KindNone
// trigger matches completion events only.
func (t Trigger) Matches(e Event) bool {
	switch t.Kind {
	case KindNone:
		return e.Kind == KindCompletion
	case KindInitial, KindFinal:
		return e.Kind == t.Kind
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Name == "" || t.Name == e.Name
}

func (t Trigger) String() string {
	if t.Name == "" {
		return t.Kind.String()
	}
	return t.Kind.String() + ":" + t.Name
}
