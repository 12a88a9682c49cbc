package redis

import (
	"sync/atomic"
	"time"
)

// Metrics tracks cache performance statistics
type Metrics struct {
	cacheHits   atomic.Uint64
	cacheMisses atomic.Uint64
	cacheErrors atomic.Uint64

	getOperations    atomic.Uint64
	setOperations    atomic.Uint64
	deleteOperations atomic.Uint64

	// nanoseconds
	totalGetLatency atomic.Uint64
	totalSetLatency atomic.Uint64
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordCacheHit adds n cache hits
func (m *Metrics) RecordCacheHit(n int) {
	m.cacheHits.Add(uint64(n))
}

// RecordCacheMiss adds n cache misses
func (m *Metrics) RecordCacheMiss(n int) {
	m.cacheMisses.Add(uint64(n))
}

// RecordCacheError increments cache error counter
func (m *Metrics) RecordCacheError() {
	m.cacheErrors.Add(1)
}

// RecordGet records a get round trip with latency
func (m *Metrics) RecordGet(duration time.Duration) {
	m.getOperations.Add(1)
	m.totalGetLatency.Add(uint64(duration.Nanoseconds()))
}

// RecordSet records a set round trip with latency
func (m *Metrics) RecordSet(duration time.Duration) {
	m.setOperations.Add(1)
	m.totalSetLatency.Add(uint64(duration.Nanoseconds()))
}

// RecordDelete records a delete operation
func (m *Metrics) RecordDelete() {
	m.deleteOperations.Add(1)
}

// GetSnapshot returns a snapshot of current metrics
func (m *Metrics) GetSnapshot() MetricsSnapshot {
	hits := m.cacheHits.Load()
	misses := m.cacheMisses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	getOps := m.getOperations.Load()
	setOps := m.setOperations.Load()

	var avgGetLatency, avgSetLatency time.Duration
	if getOps > 0 {
		avgGetLatency = time.Duration(m.totalGetLatency.Load() / getOps)
	}
	if setOps > 0 {
		avgSetLatency = time.Duration(m.totalSetLatency.Load() / setOps)
	}

	return MetricsSnapshot{
		CacheHits:        hits,
		CacheMisses:      misses,
		CacheErrors:      m.cacheErrors.Load(),
		CacheHitRate:     hitRate,
		GetOperations:    getOps,
		SetOperations:    setOps,
		DeleteOperations: m.deleteOperations.Load(),
		AvgGetLatency:    avgGetLatency,
		AvgSetLatency:    avgSetLatency,
	}
}

// Reset resets all metrics counters
func (m *Metrics) Reset() {
	m.cacheHits.Store(0)
	m.cacheMisses.Store(0)
	m.cacheErrors.Store(0)
	m.getOperations.Store(0)
	m.setOperations.Store(0)
	m.deleteOperations.Store(0)
	m.totalGetLatency.Store(0)
	m.totalSetLatency.Store(0)
}

// MetricsSnapshot represents a point-in-time snapshot of metrics
type MetricsSnapshot struct {
	// Cache metrics, counted per key
	CacheHits    uint64
	CacheMisses  uint64
	CacheErrors  uint64
	CacheHitRate float64 // Percentage

	// Round trips
	GetOperations    uint64
	SetOperations    uint64
	DeleteOperations uint64

	AvgGetLatency time.Duration
	AvgSetLatency time.Duration
}
