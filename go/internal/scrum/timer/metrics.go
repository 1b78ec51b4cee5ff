package timer

import (
	"sync/atomic"
	"time"

	"github.com/mcdev12/scrumdinger/go/internal/scrum/events"
)

// MetricsCollector defines the interface for collecting timer metrics
type MetricsCollector interface {
	RecordTick(duration time.Duration)
	RecordTransition(trigger events.Trigger, finished bool)
	RecordDroppedUpdate()
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) RecordTick(duration time.Duration)                      {}
func (NoOpMetricsCollector) RecordTransition(trigger events.Trigger, finished bool) {}
func (NoOpMetricsCollector) RecordDroppedUpdate()                                   {}

// CountingMetrics keeps simple in-process counters. Safe to read from any
// goroutine while the timer runs.
type CountingMetrics struct {
	Ticks          atomic.Int64
	TickNanos      atomic.Int64
	Timeouts       atomic.Int64
	Skips          atomic.Int64
	Completions    atomic.Int64
	DroppedUpdates atomic.Int64
}

func (m *CountingMetrics) RecordTick(duration time.Duration) {
	m.Ticks.Add(1)
	m.TickNanos.Add(int64(duration))
}

func (m *CountingMetrics) RecordTransition(trigger events.Trigger, finished bool) {
	switch trigger {
	case events.TriggerTimeout:
		m.Timeouts.Add(1)
	case events.TriggerSkip:
		m.Skips.Add(1)
	}
	if finished {
		m.Completions.Add(1)
	}
}

func (m *CountingMetrics) RecordDroppedUpdate() {
	m.DroppedUpdates.Add(1)
}

// AverageTick is the mean time spent handling one tick.
func (m *CountingMetrics) AverageTick() time.Duration {
	n := m.Ticks.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(m.TickNanos.Load() / n)
}
