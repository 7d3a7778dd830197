package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Fanout delivers capture events to all sinks asynchronously so the capture
// path never blocks on audit I/O. Events are dropped, with a log line, if
// the buffer is full.
type Fanout struct {
	ch     chan CaptureEvent
	sinks  []Sink
	logger *zap.Logger
	wg     sync.WaitGroup
	once   sync.Once

	mu     sync.RWMutex
	closed bool
}

// NewFanout starts the delivery goroutine.
func NewFanout(buffer int, logger *zap.Logger, sinks ...Sink) *Fanout {
	if buffer <= 0 {
		buffer = 64
	}
	f := &Fanout{
		ch:     make(chan CaptureEvent, buffer),
		sinks:  sinks,
		logger: logger,
	}
	f.wg.Add(1)
	go f.run()
	return f
}

// Emit queues an event without blocking the capture path. Events arriving
// after Close are dropped.
func (f *Fanout) Emit(event CaptureEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		f.logger.Warn("audit trail closed, dropping event",
			zap.String("op", event.Op),
			zap.String("outcome", string(event.Outcome)))
		return
	}
	select {
	case f.ch <- event:
	default:
		f.logger.Warn("audit buffer full, dropping event",
			zap.String("op", event.Op),
			zap.String("outcome", string(event.Outcome)))
	}
}

func (f *Fanout) run() {
	defer f.wg.Done()
	for event := range f.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		for _, sink := range f.sinks {
			if err := sink.Record(ctx, event); err != nil {
				f.logger.Warn("audit sink failed",
					zap.String("op", event.Op),
					zap.Error(err))
			}
		}
		cancel()
	}
}

// Close drains queued events, then closes every sink.
func (f *Fanout) Close() {
	f.once.Do(func() {
		f.mu.Lock()
		f.closed = true
		close(f.ch)
		f.mu.Unlock()
		f.wg.Wait()
		for _, sink := range f.sinks {
			if err := sink.Close(); err != nil {
				f.logger.Warn("audit sink close failed", zap.Error(err))
			}
		}
	})
}
