// Package metrics tracks deck build outcomes and latency for the API.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Outcome classifies a finished build request.
type Outcome int

const (
	OutcomeBuilt Outcome = iota
	OutcomeInvalid
	OutcomeRetrievalFailure
	OutcomeInsufficient
	OutcomeError
)

// BuildMetrics counts build requests by outcome and records their latency.
type BuildMetrics struct {
	Latency *Histogram

	Requests          atomic.Uint64
	Built             atomic.Uint64
	Invalid           atomic.Uint64
	RetrievalFailures atomic.Uint64
	Insufficient      atomic.Uint64
	Errors            atomic.Uint64

	mu        sync.RWMutex
	startTime time.Time
}

// NewBuildMetrics creates a new metrics collector.
func NewBuildMetrics() *BuildMetrics {
	return &BuildMetrics{
		Latency:   NewHistogram(10000),
		startTime: time.Now(),
	}
}

// Record counts one finished request.
func (m *BuildMetrics) Record(outcome Outcome, d time.Duration) {
	m.Requests.Add(1)
	m.Latency.Record(d)

	switch outcome {
	case OutcomeBuilt:
		m.Built.Add(1)
	case OutcomeInvalid:
		m.Invalid.Add(1)
	case OutcomeRetrievalFailure:
		m.RetrievalFailures.Add(1)
	case OutcomeInsufficient:
		m.Insufficient.Add(1)
	default:
		m.Errors.Add(1)
	}
}

// BuildStats is a point-in-time view of the metrics.
type BuildStats struct {
	Latency LatencyStats `json:"latency"`

	Requests          uint64  `json:"requests"`
	Built             uint64  `json:"built"`
	Invalid           uint64  `json:"invalid"`
	RetrievalFailures uint64  `json:"retrieval_failures"`
	Insufficient      uint64  `json:"insufficient"`
	Errors            uint64  `json:"errors"`
	SuccessRate       float64 `json:"success_rate"` // percentage of requests that produced a deck

	Uptime string `json:"uptime"`
}

// LatencyStats summarises a latency histogram, in milliseconds.
type LatencyStats struct {
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// GetStats returns a snapshot of the current statistics.
func (m *BuildMetrics) GetStats() *BuildStats {
	m.mu.RLock()
	started := m.startTime
	m.mu.RUnlock()

	stats := &BuildStats{
		Latency:           m.Latency.Stats(),
		Requests:          m.Requests.Load(),
		Built:             m.Built.Load(),
		Invalid:           m.Invalid.Load(),
		RetrievalFailures: m.RetrievalFailures.Load(),
		Insufficient:      m.Insufficient.Load(),
		Errors:            m.Errors.Load(),
		Uptime:            time.Since(started).Round(time.Second).String(),
	}
	if stats.Requests > 0 {
		stats.SuccessRate = float64(stats.Built) / float64(stats.Requests) * 100
	}
	return stats
}

// Reset clears all metrics.
func (m *BuildMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Latency.Reset()
	m.Requests.Store(0)
	m.Built.Store(0)
	m.Invalid.Store(0)
	m.RetrievalFailures.Store(0)
	m.Insufficient.Store(0)
	m.Errors.Store(0)
	m.startTime = time.Now()
}
