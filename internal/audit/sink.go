package audit

import (
	"context"
	"sync"
)

// Sink receives capture events. Sink failures are an observability concern:
// they are logged by the fan-out and never surface into capture outcomes.
type Sink interface {
	Record(ctx context.Context, event CaptureEvent) error
	Close() error
}

// MemorySink keeps the most recent events in a bounded ring. It always runs,
// backing tests and the serve-mode introspection endpoint.
type MemorySink struct {
	mu     sync.Mutex
	limit  int
	events []CaptureEvent
}

// NewMemorySink creates a ring holding at most limit events.
func NewMemorySink(limit int) *MemorySink {
	if limit <= 0 {
		limit = 256
	}
	return &MemorySink{limit: limit}
}

// Record implements Sink.
func (s *MemorySink) Record(ctx context.Context, event CaptureEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	if len(s.events) > s.limit {
		s.events = s.events[len(s.events)-s.limit:]
	}
	return nil
}

// Events returns a copy of the retained events, oldest first.
func (s *MemorySink) Events() []CaptureEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CaptureEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Close implements Sink.
func (s *MemorySink) Close() error {
	return nil
}
