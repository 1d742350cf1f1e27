// Package observability exposes Prometheus metrics for the intake pipeline.
//
// Every stage of the pipeline (capture → debounce → resolve → commit)
// increments its own counters, so silent drops (noise tokens, duplicate
// scans, stale lookup responses) stay visible in telemetry even though
// they never surface to the operator.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Capture Metrics ────────────────────────────────────────────────────────

// TokensEmitted counts scan tokens that passed framing and the length gate.
var TokensEmitted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "partflow",
	Subsystem: "capture",
	Name:      "tokens_emitted_total",
	Help:      "Total scan tokens emitted by the capture framer.",
})

// NoiseDiscarded counts buffers flushed below the minimum length.
var NoiseDiscarded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "partflow",
	Subsystem: "capture",
	Name:      "noise_discarded_total",
	Help:      "Total buffers discarded for being shorter than the minimum token length.",
})

// ─── Debounce Metrics ───────────────────────────────────────────────────────

// DuplicatesSuppressed counts tokens dropped inside the cooldown window.
var DuplicatesSuppressed = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "partflow",
	Subsystem: "debounce",
	Name:      "duplicates_suppressed_total",
	Help:      "Total tokens suppressed for arriving inside the debounce cooldown.",
})

// ─── Resolution Metrics ─────────────────────────────────────────────────────

// Lookups counts catalog lookups by result (found, not_found, transport_error).
var Lookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "partflow",
	Subsystem: "resolve",
	Name:      "lookups_total",
	Help:      "Total catalog lookups by result.",
}, []string{"result"})

// LookupDuration tracks catalog lookup latency.
var LookupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "partflow",
	Subsystem: "resolve",
	Name:      "lookup_duration_seconds",
	Help:      "Catalog lookup latency in seconds.",
	Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
})

// StaleResponsesDiscarded counts lookup responses discarded because the
// originating resolution was cancelled before they arrived.
var StaleResponsesDiscarded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "partflow",
	Subsystem: "resolve",
	Name:      "stale_responses_discarded_total",
	Help:      "Total lookup responses discarded after resolution cancellation.",
})

// ManualEntriesSubmitted counts manual-review submissions for unknown codes.
var ManualEntriesSubmitted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "partflow",
	Subsystem: "resolve",
	Name:      "manual_entries_submitted_total",
	Help:      "Total manual-entry review records submitted for unknown codes.",
})

// ─── Commit Metrics ─────────────────────────────────────────────────────────

// CommitLines counts commit-line outcomes (committed, failed) by origin.
var CommitLines = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "partflow",
	Subsystem: "commit",
	Name:      "lines_total",
	Help:      "Total commit line outcomes by origin and result.",
}, []string{"origin", "outcome"})

// CommitBatches counts commit runs by overall disposition (full, partial).
var CommitBatches = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "partflow",
	Subsystem: "commit",
	Name:      "batches_total",
	Help:      "Total commit batches by disposition.",
}, []string{"disposition"})
