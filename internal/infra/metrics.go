package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	ticksProcessed atomic.Uint64
	ordersPlaced   atomic.Uint64
	cancelsIssued  atomic.Uint64
	cancelFailures atomic.Uint64
	ordersFilled   atomic.Uint64
	errorsTotal    atomic.Uint64

	// Gauges
	activeConnections atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordTick records one processed price tick.
func (m *Metrics) RecordTick() {
	m.ticksProcessed.Add(1)
}

// RecordOrderPlaced records a successful order placement.
func (m *Metrics) RecordOrderPlaced() {
	m.ordersPlaced.Add(1)
}

// RecordCancelIssued records an issued cancellation request.
func (m *Metrics) RecordCancelIssued() {
	m.cancelsIssued.Add(1)
}

// RecordCancelFailure records a failed cancellation request.
func (m *Metrics) RecordCancelFailure() {
	m.cancelFailures.Add(1)
}

// RecordOrderFilled records a filled order.
func (m *Metrics) RecordOrderFilled() {
	m.ordersFilled.Add(1)
}

// RecordError records an error occurrence.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// IncrementConnections increments active stream connections by 1.
func (m *Metrics) IncrementConnections() {
	m.activeConnections.Add(1)
}

// DecrementConnections decrements active stream connections by 1.
func (m *Metrics) DecrementConnections() {
	m.activeConnections.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	TicksProcessed    uint64
	OrdersPlaced      uint64
	CancelsIssued     uint64
	CancelFailures    uint64
	OrdersFilled      uint64
	ErrorsTotal       uint64
	ActiveConnections int32
	Timestamp         time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		TicksProcessed:    m.ticksProcessed.Load(),
		OrdersPlaced:      m.ordersPlaced.Load(),
		CancelsIssued:     m.cancelsIssued.Load(),
		CancelFailures:    m.cancelFailures.Load(),
		OrdersFilled:      m.ordersFilled.Load(),
		ErrorsTotal:       m.errorsTotal.Load(),
		ActiveConnections: m.activeConnections.Load(),
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.ticksProcessed.Store(0)
	m.ordersPlaced.Store(0)
	m.cancelsIssued.Store(0)
	m.cancelFailures.Store(0)
	m.ordersFilled.Store(0)
	m.errorsTotal.Store(0)
	m.activeConnections.Store(0)
}
