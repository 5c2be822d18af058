package relay

import (
	"encoding/json"
	"fmt"

	"github.com/comalice/blockx"
	"github.com/comalice/blockx/internal/clock"
	"github.com/comalice/blockx/internal/idgen"
)

// maxDatagram bounds a single encoded event.
const maxDatagram = 64 * 1024

// datagram is the JSON form of an event on the wire.
type datagram struct {
	ID         string          `json:"id"`
	Source     string          `json:"source,omitempty"`
	SentAt     int64           `json:"sentAt"`
	Kind       string          `json:"kind"`
	Name       string          `json:"name,omitempty"`
	Expression string          `json:"expression,omitempty"`
	TimerID    string          `json:"timerId,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

func encode(source string, e blockx.Event) ([]byte, error) {
	d := datagram{
		ID:         idgen.New(),
		Source:     source,
		SentAt:     clock.NowMillis(),
		Kind:       e.Kind.String(),
		Name:       e.Name,
		Expression: e.Expression,
		TimerID:    e.TimerID,
	}
	if e.Payload != nil {
		raw, err := json.Marshal(e.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload of %s: %w", e, err)
		}
		d.Payload = raw
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	if len(data) > maxDatagram {
		return nil, fmt.Errorf("event %s encodes to %d bytes, limit is %d", e, len(data), maxDatagram)
	}
	return data, nil
}

func decode(data []byte) (datagram, blockx.Event, error) {
	var d datagram
	if err := json.Unmarshal(data, &d); err != nil {
		return d, blockx.Event{}, fmt.Errorf("decode datagram: %w", err)
	}
	kind, ok := parseKind(d.Kind)
	if !ok {
		return d, blockx.Event{}, fmt.Errorf("datagram %s: unknown event kind %q", d.ID, d.Kind)
	}
	var payload any
	if len(d.Payload) > 0 {
		if err := json.Unmarshal(d.Payload, &payload); err != nil {
			return d, blockx.Event{}, fmt.Errorf("datagram %s: decode payload: %w", d.ID, err)
		}
	}

	var e blockx.Event
	switch kind {
	case blockx.KindInitial:
		e = blockx.InitialEvent()
	case blockx.KindFinal:
		e = blockx.FinalEvent()
	case blockx.KindCompletion:
		e = blockx.CompletionEvent()
	case blockx.KindCall:
		e = blockx.CallEvent(d.Name, payload)
	case blockx.KindChange:
		e = blockx.ChangeEvent(d.Expression, payload)
	case blockx.KindSignal:
		e = blockx.SignalEvent(d.Name, payload)
	case blockx.KindTime:
		e = blockx.TimeEvent(d.TimerID)
	}
	return d, e, nil
}

func parseKind(s string) (blockx.EventKind, bool) {
	for k := blockx.KindInitial; k <= blockx.KindTime; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return blockx.KindNone, false
}
