package scoped

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a specific counter or histogram in the in-process
// metrics system.
type MetricID uint16

const (
	// MetricIssueSuccess counts successful token mints (initial and refresh).
	MetricIssueSuccess MetricID = iota
	// MetricIssueFailure counts signing failures.
	MetricIssueFailure
	// MetricIssueRateLimited counts mints rejected by the issuance throttle.
	MetricIssueRateLimited
	// MetricRefreshSuccess counts completed re-issuances.
	MetricRefreshSuccess
	// MetricRefreshFailure counts failed re-issuances.
	MetricRefreshFailure
	// MetricRefreshCoalesced counts callers that piggybacked on an in-flight
	// re-issuance instead of starting their own.
	MetricRefreshCoalesced
	// MetricSessionCreated counts sessions built.
	MetricSessionCreated
	// MetricSessionDiscarded counts sessions torn down.
	MetricSessionDiscarded
	// MetricIssueLatency is the issue-latency histogram.
	MetricIssueLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

// histBounds are the issue-latency bucket upper bounds. The last bucket is
// unbounded.
var histBounds = [histBucketCount - 1]time.Duration{
	50 * time.Microsecond,
	100 * time.Microsecond,
	250 * time.Microsecond,
	500 * time.Microsecond,
	time.Millisecond,
	2500 * time.Microsecond,
	5 * time.Millisecond,
}

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds atomic counters and an optional issue-latency histogram.
// All operations are no-ops when disabled, and a nil *Metrics is safe.
type Metrics struct {
	enabled bool
	latency bool

	counters     [metricIDCount]paddedCounter
	issueLatency metricHistogram
}

// NewMetrics creates a [Metrics] instance configured by the given
// [MetricsConfig]. When Enabled is false, all operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled: cfg.Enabled,
		latency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Inc increments the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Get returns the current value of a counter.
func (m *Metrics) Get(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// ObserveIssueLatency records one signing duration in the latency histogram.
func (m *Metrics) ObserveIssueLatency(d time.Duration) {
	if m == nil || !m.latency {
		return
	}

	bucket := histBucketCount - 1
	for i, bound := range histBounds {
		if d <= bound {
			bucket = i
			break
		}
	}
	atomic.AddUint64(&m.issueLatency.buckets[bucket], 1)
}

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// Snapshot returns a deep copy of the current counters and histograms.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snapshot := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}
	if m == nil {
		return snapshot
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricIssueLatency {
			continue
		}
		snapshot.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	buckets := make([]uint64, histBucketCount)
	for i := range m.issueLatency.buckets {
		buckets[i] = atomic.LoadUint64(&m.issueLatency.buckets[i])
	}
	snapshot.Histograms[MetricIssueLatency] = buckets

	return snapshot
}
