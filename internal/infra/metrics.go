package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	eventsProcessed atomic.Uint64
	statusReceipts  atomic.Uint64
	messagesSent    atomic.Uint64
	sendTimeouts    atomic.Uint64
	sendFailures    atomic.Uint64
	tradesCreated   atomic.Uint64
	errorsTotal     atomic.Uint64

	// Latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64
}

// NewMetrics creates an empty metrics set
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordEvent records a handled inbound message with its latency.
func (m *Metrics) RecordEvent(latency time.Duration) {
	m.eventsProcessed.Add(1)
	m.latencySumNs.Add(latency.Nanoseconds())
	m.latencyCount.Add(1)
}

// RecordStatusReceipt records an acknowledged delivery receipt.
func (m *Metrics) RecordStatusReceipt() {
	m.statusReceipts.Add(1)
}

// RecordSend records an outbound send outcome.
func (m *Metrics) RecordSend(err error, timeout bool) {
	switch {
	case err == nil:
		m.messagesSent.Add(1)
	case timeout:
		m.sendTimeouts.Add(1)
	default:
		m.sendFailures.Add(1)
	}
}

// RecordTradeCreated records a newly stored trade.
func (m *Metrics) RecordTradeCreated() {
	m.tradesCreated.Add(1)
}

// RecordError records an error occurrence.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	EventsProcessed uint64    `json:"events_processed"`
	StatusReceipts  uint64    `json:"status_receipts"`
	MessagesSent    uint64    `json:"messages_sent"`
	SendTimeouts    uint64    `json:"send_timeouts"`
	SendFailures    uint64    `json:"send_failures"`
	TradesCreated   uint64    `json:"trades_created"`
	ErrorsTotal     uint64    `json:"errors_total"`
	AvgLatencyNs    int64     `json:"avg_latency_ns"`
	Timestamp       time.Time `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		EventsProcessed: m.eventsProcessed.Load(),
		StatusReceipts:  m.statusReceipts.Load(),
		MessagesSent:    m.messagesSent.Load(),
		SendTimeouts:    m.sendTimeouts.Load(),
		SendFailures:    m.sendFailures.Load(),
		TradesCreated:   m.tradesCreated.Load(),
		ErrorsTotal:     m.errorsTotal.Load(),
		AvgLatencyNs:    avgLatency,
		Timestamp:       time.Now(),
	}
}

// Reset clears all metrics. Called after a data wipe so counters match the empty store.
func (m *Metrics) Reset() {
	m.eventsProcessed.Store(0)
	m.statusReceipts.Store(0)
	m.messagesSent.Store(0)
	m.sendTimeouts.Store(0)
	m.sendFailures.Store(0)
	m.tradesCreated.Store(0)
	m.errorsTotal.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
}
