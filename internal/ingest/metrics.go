package ingest

import (
	"sync"
	"time"
)

// PipelineMetrics tracks ingest throughput and outcomes.
type PipelineMetrics struct {
	EventsReceived  int64
	EventsProcessed int64
	EventsFailed    int64
	RecordsWritten  int64
	AlertsStored    int64
	ModeChanges     int64
	JourneysClosed  int64
	LastEventAt     time.Time
	ByEventType     map[string]int64
}

// MetricsTracker is a goroutine-safe wrapper around PipelineMetrics.
type MetricsTracker struct {
	mu      sync.RWMutex
	metrics PipelineMetrics
}

func NewMetricsTracker() *MetricsTracker {
	return &MetricsTracker{
		metrics: PipelineMetrics{ByEventType: make(map[string]int64)},
	}
}

// Update applies a mutation under the lock.
func (t *MetricsTracker) Update(fn func(*PipelineMetrics)) {
	if fn == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.metrics)
}

// Snapshot returns a copy of the current metrics.
func (t *MetricsTracker) Snapshot() PipelineMetrics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := t.metrics
	out.ByEventType = make(map[string]int64, len(t.metrics.ByEventType))
	for k, v := range t.metrics.ByEventType {
		out.ByEventType[k] = v
	}
	return out
}

// Reset clears accumulated metrics.
func (t *MetricsTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics = PipelineMetrics{ByEventType: make(map[string]int64)}
}
