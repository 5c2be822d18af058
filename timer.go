package blockx

import "time"

// timerEntry tracks a running timer. The generation is copied into every
// time event so events from a stopped or restarted timer can be discarded
// when they are dequeued.
type timerEntry struct {
	id      string
	gen     uint64
	oneShot bool
	stop    chan struct{}
}

// StartTimer schedules time events tagged with id. The first event fires
// after initialDelay, then every period; a zero period fires once. Starting
// an id that is already running replaces it.
func (m *Machine) StartTimer(id string, initialDelay, period time.Duration) {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()

	if existing, ok := m.timers[id]; ok {
		close(existing.stop)
		delete(m.timers, id)
	}

	m.timerGen++
	entry := &timerEntry{
		id:      id,
		gen:     m.timerGen,
		oneShot: period <= 0,
		stop:    make(chan struct{}),
	}
	m.timers[id] = entry
	go m.runTimer(entry, initialDelay, period)

	m.logger.Debug("timer started", "timer", id, "delay", initialDelay, "period", period)
}

// StopTimer cancels future firings of id. Events already queued by the
// timer are discarded. No-op if the timer is not running.
func (m *Machine) StopTimer(id string) {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()

	if entry, ok := m.timers[id]; ok {
		close(entry.stop)
		delete(m.timers, id)
		m.logger.Debug("timer stopped", "timer", id)
	}
}

// StopAllTimers cancels every timer of the machine.
func (m *Machine) StopAllTimers() {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()

	for id, entry := range m.timers {
		close(entry.stop)
		m.logger.Debug("timer stopped (cleanup)", "timer", id)
	}
	m.timers = make(map[string]*timerEntry)
}

// TimerActive reports whether id is running.
func (m *Machine) TimerActive(id string) bool {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()
	_, ok := m.timers[id]
	return ok
}

func (m *Machine) runTimer(entry *timerEntry, initialDelay, period time.Duration) {
	if initialDelay < 0 {
		initialDelay = 0
	}
	first := time.NewTimer(initialDelay)
	defer first.Stop()

	select {
	case <-entry.stop:
		return
	case <-first.C:
	}
	m.fireTimer(entry)
	if entry.oneShot {
		return
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-entry.stop:
			return
		case <-ticker.C:
			m.fireTimer(entry)
		}
	}
}

func (m *Machine) fireTimer(entry *timerEntry) {
	e := TimeEvent(entry.id)
	e.timerGen = entry.gen
	m.QueueEvent(e)
}

// timerEventLive reports whether a dequeued time event still belongs to a
// running timer. A one-shot timer is retired once its event is accepted.
func (m *Machine) timerEventLive(e Event) bool {
	if e.timerGen == 0 {
		return true
	}
	m.timerMu.Lock()
	defer m.timerMu.Unlock()

	entry, ok := m.timers[e.TimerID]
	if !ok || entry.gen != e.timerGen {
		return false
	}
	if entry.oneShot {
		close(entry.stop)
		delete(m.timers, e.TimerID)
	}
	return true
}
