package events

import (
	"context"
	"sync"
)

// MemorySink stores events in memory. Used in tests and as the default
// sink when no storage backend is configured.
type MemorySink struct {
	mu     sync.Mutex
	events []*Event
	nextID int64
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{nextID: 1}
}

// Emit stores the event and assigns it an ID.
func (s *MemorySink) Emit(_ context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *event
	clone.ID = s.nextID
	s.nextID++
	s.events = append(s.events, &clone)
	return nil
}

// Events returns stored events passing the filter, oldest first.
func (s *MemorySink) Events(filter EventFilter) []*Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Event
	for _, e := range s.events {
		if filter.Matches(e) {
			out = append(out, e)
			if filter.Limit > 0 && len(out) >= filter.Limit {
				break
			}
		}
	}
	return out
}

// Len returns the total number of stored events.
func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// MultiSink fans events out to several sinks. A failing sink does not
// stop delivery to the others; the first error is returned.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink combines sinks; nil entries are dropped.
func NewMultiSink(sinks ...Sink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Emit delivers the event to every sink.
func (m *MultiSink) Emit(ctx context.Context, event *Event) error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.Emit(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
