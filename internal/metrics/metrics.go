// Venuescope - Multi-Source Venue Aggregation and Deduplication
// Copyright 2026 Venuescope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venuescope/venuescope

// Package metrics provides Prometheus instrumentation for the aggregation
// pipeline: source fetch performance, deduplication outcomes, persistence
// results and run-level timings. All metrics are registered via promauto on
// the default registry and exposed at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Source adapter metrics
	SourceFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "source_fetch_duration_seconds",
			Help:    "Duration of a full paginated fetch from one upstream source",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"source"},
	)

	SourceFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_fetch_errors_total",
			Help: "Total number of failed source fetches (the run continues without them)",
		},
		[]string{"source"},
	)

	SourceVenuesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_venues_fetched_total",
			Help: "Total number of venue drafts produced by each source",
		},
		[]string{"source"},
	)

	SourceRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_rate_limit_hits_total",
			Help: "Total number of HTTP 429 responses received from upstream sources",
		},
		[]string{"source"},
	)

	// Deduplication metrics
	DedupeMerges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dedupe_merges_total",
			Help: "Total number of drafts merged into an existing unique draft",
		},
		[]string{"tier"}, // "source_id", "exact_key", "fuzzy"
	)

	DedupeInputSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dedupe_input_size",
			Help:    "Number of candidate drafts entering deduplication per run",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000},
		},
	)

	// Persistence metrics
	VenuesInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "venues_inserted_total",
			Help: "Total number of new venue rows inserted",
		},
	)

	VenuesUpdated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "venues_updated_total",
			Help: "Total number of existing venue rows coalesce-updated",
		},
	)

	VenueUpsertErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "venue_upsert_errors_total",
			Help: "Total number of per-record upsert failures (skipped, batch continues)",
		},
	)

	// Orchestrator metrics
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aggregation_run_duration_seconds",
			Help:    "Duration of a complete pipeline run for one city",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"city"},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregation_runs_total",
			Help: "Total number of pipeline runs by outcome",
		},
		[]string{"result"}, // "completed", "failed", "rejected"
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "source_circuit_breaker_state",
			Help: "Circuit breaker state per source (0=closed, 1=half-open, 2=open)",
		},
		[]string{"source"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_circuit_breaker_transitions_total",
			Help: "Total circuit breaker state transitions per source",
		},
		[]string{"source", "from", "to"},
	)
)
