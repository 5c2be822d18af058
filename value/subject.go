package value

import "sync"

// Subject keeps an observer list. Types embed it to implement the observer
// half of Observable and call NotifyFrom with themselves as the source.
// The zero value is ready to use.
type Subject struct {
	mu        sync.Mutex
	observers []*registration
}

// registration wraps an observer so ObserverFunc values, which are not
// comparable, can still be removed by handle.
type registration struct {
	o Observer
}

// AddObserver registers o. The same observer may be registered more than
// once and is then notified once per registration.
func (s *Subject) AddObserver(o Observer) {
	if o == nil {
		return
	}
	s.mu.Lock()
	s.observers = append(s.observers, &registration{o: o})
	s.mu.Unlock()
}

// RemoveObserver drops the first registration of o. Observers that are not
// comparable (such as ObserverFunc) cannot be removed this way; use Subscribe.
func (s *Subject) RemoveObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.observers {
		if sameObserver(r.o, o) {
			s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
			return
		}
	}
}

// Subscribe registers o and returns a function that removes exactly this
// registration.
func (s *Subject) Subscribe(o Observer) (cancel func()) {
	r := &registration{o: o}
	s.mu.Lock()
	s.observers = append(s.observers, r)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, cur := range s.observers {
			if cur == r {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// Observers reports the number of registrations.
func (s *Subject) Observers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers)
}

// NotifyFrom invokes every observer registered when the call starts, in
// registration order, passing source.
func (s *Subject) NotifyFrom(source Observable) {
	s.mu.Lock()
	snapshot := make([]*registration, len(s.observers))
	copy(snapshot, s.observers)
	s.mu.Unlock()

	for _, r := range snapshot {
		r.o.ValueChanged(source)
	}
}

// sameObserver compares two observers; uncomparable dynamic types never match.
func sameObserver(a, b Observer) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
