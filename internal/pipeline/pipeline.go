// Venuescope - Multi-Source Venue Aggregation and Deduplication
// Copyright 2026 Venuescope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venuescope/venuescope

/*
pipeline.go - Aggregation Orchestrator

Drives one aggregation run per city: fetch from every configured source
adapter, deduplicate the combined candidate list, upsert each unique draft
and report a run summary.

Single-flight: an orchestrator instance never executes two runs at once. A
concurrent trigger is rejected immediately (zero-count summary, no error),
not queued. The flag is process-wide per instance, not distributed.

Failure semantics per run:
  - a failed or unconfigured source contributes an empty list, the run
    continues with the remaining sources
  - a failed upsert skips that record and continues the batch
  - an unknown city or an unreachable store aborts the run and surfaces to
    the caller; the single-flight flag is always released
*/
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/venuescope/venuescope/internal/dedupe"
	"github.com/venuescope/venuescope/internal/logging"
	"github.com/venuescope/venuescope/internal/metrics"
	"github.com/venuescope/venuescope/internal/models"
	"github.com/venuescope/venuescope/internal/source"
)

// CityRegistry is the slice of the store the orchestrator needs.
type CityRegistry interface {
	GetCity(ctx context.Context, cityID string) (*models.City, error)
	ListCities(ctx context.Context) ([]models.City, error)
}

// Upserter persists one deduplicated draft. Implemented by persist.Persister.
type Upserter interface {
	Upsert(ctx context.Context, draft *models.Venue, cityID string) (bool, error)
}

// Pipeline orchestrates aggregation runs.
type Pipeline struct {
	registry  CityRegistry
	persister Upserter
	adapters  []source.Adapter

	interCityDelay time.Duration

	running atomic.Bool // single-flight flag

	mu      sync.RWMutex // protects lastRun
	lastRun time.Time
}

// New creates a Pipeline over the given registry, persister and adapters.
// interCityDelay is the pause inserted between cities in a full run.
func New(registry CityRegistry, persister Upserter, adapters []source.Adapter, interCityDelay time.Duration) *Pipeline {
	return &Pipeline{
		registry:       registry,
		persister:      persister,
		adapters:       adapters,
		interCityDelay: interCityDelay,
	}
}

// RunForCity executes one aggregation run for a single city. A run already in
// progress causes immediate rejection: a zero-count summary and no error.
// An unknown city is fatal for the run.
func (p *Pipeline) RunForCity(ctx context.Context, cityID string, category models.Category) (*models.RunSummary, error) {
	if !p.running.CompareAndSwap(false, true) {
		logging.Warn().Str("city_id", cityID).Msg("Aggregation run rejected, another run is in progress")
		metrics.RunsTotal.WithLabelValues("rejected").Inc()
		return &models.RunSummary{CityID: cityID}, nil
	}
	defer p.running.Store(false)

	return p.runCity(ctx, cityID, category)
}

// RunAll executes one aggregation run for every registered city, sequentially,
// pausing between cities to respect upstream rate limits. A failure in one
// city is logged and does not stop the remaining cities. The whole sweep
// holds the single-flight flag.
func (p *Pipeline) RunAll(ctx context.Context, category models.Category) ([]models.RunSummary, error) {
	if !p.running.CompareAndSwap(false, true) {
		logging.Warn().Msg("Full aggregation run rejected, another run is in progress")
		metrics.RunsTotal.WithLabelValues("rejected").Inc()
		return nil, nil
	}
	defer p.running.Store(false)

	cities, err := p.registry.ListCities(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list cities: %w", err)
	}

	summaries := make([]models.RunSummary, 0, len(cities))
	for i, city := range cities {
		if i > 0 && p.interCityDelay > 0 {
			if err := sleepCtx(ctx, p.interCityDelay); err != nil {
				return summaries, err
			}
		}

		summary, err := p.runCity(ctx, city.ID, category)
		if err != nil {
			logging.Error().Err(err).Str("city_id", city.ID).Msg("Aggregation run failed for city, continuing")
			continue
		}
		summaries = append(summaries, *summary)
	}
	return summaries, nil
}

// Schedule triggers an immediate full run and then re-triggers every interval
// until ctx is canceled. Pure timer-based triggering.
func (p *Pipeline) Schedule(ctx context.Context, interval time.Duration) {
	logging.Info().Dur("interval", interval).Msg("Aggregation scheduler started")

	if _, err := p.RunAll(ctx, ""); err != nil {
		logging.Error().Err(err).Msg("Scheduled aggregation run failed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Aggregation scheduler stopped")
			return
		case <-ticker.C:
			if _, err := p.RunAll(ctx, ""); err != nil {
				logging.Error().Err(err).Msg("Scheduled aggregation run failed")
			}
		}
	}
}

// Status reports the orchestrator state.
func (p *Pipeline) Status() models.RunStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	sources := make(map[string]bool, len(p.adapters))
	for _, adapter := range p.adapters {
		sources[adapter.Name()] = adapter.Configured()
	}

	status := models.RunStatus{
		IsRunning:         p.running.Load(),
		SourcesConfigured: sources,
	}
	if !p.lastRun.IsZero() {
		lastRun := p.lastRun
		status.LastRunTime = &lastRun
	}
	return status
}

// runCity is the guts of a single-city run. The caller holds the
// single-flight flag.
func (p *Pipeline) runCity(ctx context.Context, cityID string, category models.Category) (*models.RunSummary, error) {
	start := time.Now()

	city, err := p.registry.GetCity(ctx, cityID)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	logging.Info().
		Str("city_id", city.ID).
		Str("city", city.Name).
		Int("sources", len(p.adapters)).
		Msg("Aggregation run started")

	candidates := p.fetchAll(ctx, *city, category)
	unique := dedupe.Dedupe(candidates)

	inserted := 0
	for i := range unique {
		ok, err := p.persister.Upsert(ctx, &unique[i], city.ID)
		if err != nil {
			logging.Warn().Err(err).
				Str("city_id", city.ID).
				Str("venue", unique[i].Name).
				Msg("Upsert failed, skipping record")
			continue
		}
		if ok {
			inserted++
		}
	}

	duration := time.Since(start)

	p.mu.Lock()
	p.lastRun = time.Now().UTC()
	p.mu.Unlock()

	metrics.RunDuration.WithLabelValues(city.ID).Observe(duration.Seconds())
	metrics.RunsTotal.WithLabelValues("completed").Inc()

	logging.Info().
		Str("city_id", city.ID).
		Int("fetched", len(candidates)).
		Int("unique", len(unique)).
		Int("inserted", inserted).
		Dur("duration", duration).
		Msg("Aggregation run completed")

	return &models.RunSummary{
		CityID:     city.ID,
		City:       city.Name,
		Fetched:    len(candidates),
		Unique:     len(unique),
		Inserted:   inserted,
		Duration:   duration,
		DurationMS: duration.Milliseconds(),
	}, nil
}

// fetchAll invokes every adapter concurrently and concatenates the results.
// A failed or unconfigured adapter contributes an empty list.
func (p *Pipeline) fetchAll(ctx context.Context, city models.City, category models.Category) []models.Venue {
	results := make([][]models.Venue, len(p.adapters))

	var wg sync.WaitGroup
	for i, adapter := range p.adapters {
		if !adapter.Configured() {
			logging.Debug().Str("source", adapter.Name()).Msg("Source not configured, skipping")
			continue
		}

		wg.Add(1)
		go func(i int, adapter source.Adapter) {
			defer wg.Done()

			fetchStart := time.Now()
			venues, err := adapter.Fetch(ctx, city, category)
			metrics.SourceFetchDuration.WithLabelValues(adapter.Name()).Observe(time.Since(fetchStart).Seconds())

			if err != nil {
				metrics.SourceFetchErrors.WithLabelValues(adapter.Name()).Inc()
				logging.Warn().Err(err).
					Str("source", adapter.Name()).
					Str("city_id", city.ID).
					Msg("Source fetch failed, continuing without it")
				return
			}

			metrics.SourceVenuesFetched.WithLabelValues(adapter.Name()).Add(float64(len(venues)))
			results[i] = venues
		}(i, adapter)
	}
	wg.Wait()

	var combined []models.Venue
	for _, venues := range results {
		combined = append(combined, venues...)
	}
	return combined
}

// sleepCtx blocks for d or until ctx is canceled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
