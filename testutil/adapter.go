package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/comalice/blockx"
)

// Mode names an execution mode of a machine so one test body can run
// against both.
type Mode struct {
	Name    string
	Options []blockx.Option
}

// Modes lists the asynchronous and synchronous execution modes.
func Modes() []Mode {
	return []Mode{
		{Name: "async"},
		{Name: "sync", Options: []blockx.Option{blockx.Synchronous()}},
	}
}

// ForEachMode runs fn as a subtest once per execution mode.
func ForEachMode(t *testing.T, fn func(t *testing.T, mode Mode)) {
	t.Helper()
	for _, mode := range Modes() {
		t.Run(mode.Name, func(t *testing.T) {
			fn(t, mode)
		})
	}
}

// WaitForState polls until m is in state name or timeout elapses.
func WaitForState(t *testing.T, m *blockx.Machine, name string, timeout time.Duration) {
	t.Helper()
	if !Eventually(timeout, func() bool { return m.IsInState(name) }) {
		t.Fatalf("machine %s: want state %q, still in %q after %v", m.Name(), name, m.CurrentName(), timeout)
	}
}

// WaitForProcessed polls until m has fully processed at least n events.
func WaitForProcessed(t *testing.T, m *blockx.Machine, n uint64, timeout time.Duration) {
	t.Helper()
	if !Eventually(timeout, func() bool { return m.Processed() >= n }) {
		t.Fatalf("machine %s: want %d processed events, got %d after %v", m.Name(), n, m.Processed(), timeout)
	}
}

// WaitDone waits for m to terminate.
func WaitDone(t *testing.T, m *blockx.Machine, timeout time.Duration) {
	t.Helper()
	select {
	case <-m.Done():
	case <-time.After(timeout):
		t.Fatalf("machine %s did not terminate within %v (state %q)", m.Name(), timeout, m.CurrentName())
	}
}

// Eventually polls cond every millisecond until it holds or timeout elapses.
func Eventually(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}

// Recorder is a Transmitter that keeps every record.
type Recorder struct {
	mu      sync.Mutex
	records []blockx.TraceRecord
}

func (r *Recorder) Transmit(_ context.Context, rec blockx.TraceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

// Records returns a copy of the records seen so far.
func (r *Recorder) Records() []blockx.TraceRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]blockx.TraceRecord(nil), r.records...)
}

// Path returns the NextState of every record in order.
func (r *Recorder) Path() []string {
	var out []string
	for _, rec := range r.Records() {
		out = append(out, rec.NextState)
	}
	return out
}

// LogBuffer captures slog output for assertions.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// NewLogger returns a debug-level text logger writing into a new LogBuffer.
func NewLogger() (*slog.Logger, *LogBuffer) {
	lb := &LogBuffer{}
	return slog.New(slog.NewTextHandler(lb, &slog.HandlerOptions{Level: slog.LevelDebug})), lb
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Lines returns the captured lines containing every one of substrs.
func (b *LogBuffer) Lines(substrs ...string) []string {
	var out []string
	for _, line := range strings.Split(b.String(), "\n") {
		if line == "" {
			continue
		}
		match := true
		for _, s := range substrs {
			if !strings.Contains(line, s) {
				match = false
				break
			}
		}
		if match {
			out = append(out, line)
		}
	}
	return out
}
