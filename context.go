package blockx

import (
	"context"
	"log/slog"
	"time"
)

// Context is handed to guards, effects and activities. It is only valid for
// the duration of the call.
type Context struct {
	Machine *Machine
	Event   Event
	// Source and Target are the transition's vertices; for activities both
	// point at the state being entered or exited.
	Source *Vertex
	Target *Vertex
	Data   any
	Logger *slog.Logger

	ctx context.Context
}

// Ctx returns the machine's context. It is cancelled when the machine is
// stopped, which is the only way a running effect learns about a hard stop.
func (c *Context) Ctx() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// CurrentState returns the name of the machine's current vertex.
func (c *Context) CurrentState() string {
	return c.Machine.CurrentName()
}

// Send queues an event on the owning machine.
func (c *Context) Send(e Event) {
	c.Machine.QueueEvent(e)
}

// StartTimer schedules time events for id on the owning machine.
func (c *Context) StartTimer(id string, initialDelay, period time.Duration) {
	c.Machine.StartTimer(id, initialDelay, period)
}

// StopTimer cancels the timer id. No-op if it is not running.
func (c *Context) StopTimer(id string) {
	c.Machine.StopTimer(id)
}

// TimerActive reports whether timer id is running.
func (c *Context) TimerActive(id string) bool {
	return c.Machine.TimerActive(id)
}
