package internaldefs

import (
	scoped "github.com/iAmLakshya/supabase-scoped-clients"
)

// CounterDef ties a metric ID to its stable exported name and help text.
type CounterDef struct {
	ID   scoped.MetricID
	Name string
	Help string
}

// HistogramDef ties a histogram metric ID to its stable exported name and
// help text.
type HistogramDef struct {
	ID   scoped.MetricID
	Name string
	Help string
}

// CounterDefs lists every counter both exporters expose, in metric ID order.
var CounterDefs = []CounterDef{
	{ID: scoped.MetricIssueSuccess, Name: "scoped_issue_success_total", Help: "Successful token mints."},
	{ID: scoped.MetricIssueFailure, Name: "scoped_issue_failure_total", Help: "Failed token mints."},
	{ID: scoped.MetricIssueRateLimited, Name: "scoped_issue_rate_limited_total", Help: "Token mints rejected by the issuance throttle."},
	{ID: scoped.MetricRefreshSuccess, Name: "scoped_refresh_success_total", Help: "Successful token re-issuances."},
	{ID: scoped.MetricRefreshFailure, Name: "scoped_refresh_failure_total", Help: "Failed token re-issuances."},
	{ID: scoped.MetricRefreshCoalesced, Name: "scoped_refresh_coalesced_total", Help: "Callers that shared an in-flight re-issuance."},
	{ID: scoped.MetricSessionCreated, Name: "scoped_session_created_total", Help: "Created sessions."},
	{ID: scoped.MetricSessionDiscarded, Name: "scoped_session_discarded_total", Help: "Discarded sessions."},
}

// HistogramDefs lists every histogram both exporters expose.
var HistogramDefs = []HistogramDef{
	{ID: scoped.MetricIssueLatency, Name: "scoped_issue_latency_seconds", Help: "Token signing latency histogram."},
}

// HistogramBounds are the bucket upper bounds in seconds, as label values.
var HistogramBounds = []string{
	"0.00005",
	"0.0001",
	"0.00025",
	"0.0005",
	"0.001",
	"0.0025",
	"0.005",
	"+Inf",
}

// HistogramBoundSuffix are the bucket bounds as metric-name-safe suffixes.
var HistogramBoundSuffix = []string{
	"0_00005",
	"0_0001",
	"0_00025",
	"0_0005",
	"0_001",
	"0_0025",
	"0_005",
	"inf",
}

// NormalizeBuckets copies a raw bucket slice into a fixed-size array,
// padding or truncating as needed.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into cumulative counts; the
// final element equals the total sample count.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
