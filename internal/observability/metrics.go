package observability

import (
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for capture operations.
type Metrics struct {
	mu             sync.Mutex
	outcomeCount   map[string]int64
	transientCount map[string]int64
	elapsedTotal   map[string]time.Duration
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		outcomeCount:   make(map[string]int64),
		transientCount: make(map[string]int64),
		elapsedTotal:   make(map[string]time.Duration),
	}
}

// RecordOutcome increments the counter for one completed operation.
func (m *Metrics) RecordOutcome(op, tag string, elapsed time.Duration) {
	if m == nil {
		return
	}
	key := op + "|" + tag
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomeCount[key]++
	m.elapsedTotal[op] += elapsed
}

// RecordTransientError counts a swallowed per-probe error.
func (m *Metrics) RecordTransientError(op string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transientCount[op]++
}

// Snapshot returns a copy of the counters for introspection endpoints.
func (m *Metrics) Snapshot() map[string]any {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	outcomes := make(map[string]int64, len(m.outcomeCount))
	for k, v := range m.outcomeCount {
		outcomes[k] = v
	}
	transients := make(map[string]int64, len(m.transientCount))
	for k, v := range m.transientCount {
		transients[k] = v
	}
	elapsed := make(map[string]string, len(m.elapsedTotal))
	for k, v := range m.elapsedTotal {
		elapsed[k] = v.String()
	}
	return map[string]any{
		"outcomes":         outcomes,
		"transient_errors": transients,
		"elapsed_total":    elapsed,
	}
}
