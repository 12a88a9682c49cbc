package prefetch

import "sync/atomic"

// Metrics tracks resolver statistics
type Metrics struct {
	chunks        atomic.Uint64
	cacheHits     atomic.Uint64
	cacheMisses   atomic.Uint64
	fetches       atomic.Uint64
	fetchedRows   atomic.Uint64
	evictions     atomic.Uint64
	bridgeQueries atomic.Uint64
	bridgeHits    atomic.Uint64
	dangling      atomic.Uint64
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordChunk increments the processed chunk counter
func (m *Metrics) RecordChunk() {
	m.chunks.Add(1)
}

// RecordLookup records how many needed ids were cached and how many were not
func (m *Metrics) RecordLookup(hits, misses int) {
	m.cacheHits.Add(uint64(hits))
	m.cacheMisses.Add(uint64(misses))
}

// RecordFetch records one bulk fetch returning rows entities
func (m *Metrics) RecordFetch(rows int) {
	m.fetches.Add(1)
	m.fetchedRows.Add(uint64(rows))
}

// RecordEviction increments the eviction counter
func (m *Metrics) RecordEviction() {
	m.evictions.Add(1)
}

// RecordBridgeQuery increments the join relation query counter
func (m *Metrics) RecordBridgeQuery() {
	m.bridgeQueries.Add(1)
}

// RecordBridgeHit increments the counter of bridge resolutions served from cache
func (m *Metrics) RecordBridgeHit() {
	m.bridgeHits.Add(1)
}

// RecordDangling counts referenced ids the repository did not return
func (m *Metrics) RecordDangling(n int) {
	m.dangling.Add(uint64(n))
}

// GetSnapshot returns a snapshot of current metrics
func (m *Metrics) GetSnapshot() MetricsSnapshot {
	hits := m.cacheHits.Load()
	misses := m.cacheMisses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	return MetricsSnapshot{
		Chunks:        m.chunks.Load(),
		CacheHits:     hits,
		CacheMisses:   misses,
		CacheHitRate:  hitRate,
		Fetches:       m.fetches.Load(),
		FetchedRows:   m.fetchedRows.Load(),
		Evictions:     m.evictions.Load(),
		BridgeQueries: m.bridgeQueries.Load(),
		BridgeHits:    m.bridgeHits.Load(),
		DanglingIDs:   m.dangling.Load(),
	}
}

// Reset resets all metrics counters
func (m *Metrics) Reset() {
	m.chunks.Store(0)
	m.cacheHits.Store(0)
	m.cacheMisses.Store(0)
	m.fetches.Store(0)
	m.fetchedRows.Store(0)
	m.evictions.Store(0)
	m.bridgeQueries.Store(0)
	m.bridgeHits.Store(0)
	m.dangling.Store(0)
}

// MetricsSnapshot represents a point-in-time snapshot of metrics
type MetricsSnapshot struct {
	Chunks uint64

	// Entity cache lookups during need computation
	CacheHits    uint64
	CacheMisses  uint64
	CacheHitRate float64 // Percentage

	Fetches     uint64
	FetchedRows uint64
	Evictions   uint64 // Entity and bridge caches

	BridgeQueries uint64
	BridgeHits    uint64

	DanglingIDs uint64
}
