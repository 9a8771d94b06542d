// Venuescope - Multi-Source Venue Aggregation and Deduplication
// Copyright 2026 Venuescope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venuescope/venuescope

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venuescope/venuescope/internal/models"
	"github.com/venuescope/venuescope/internal/source"
	"github.com/venuescope/venuescope/internal/store"
)

// fakeRegistry serves a fixed city list.
type fakeRegistry struct {
	cities  []models.City
	listErr error
}

func (r *fakeRegistry) GetCity(_ context.Context, cityID string) (*models.City, error) {
	for _, city := range r.cities {
		if city.ID == cityID {
			c := city
			return &c, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", store.ErrCityNotFound, cityID)
}

func (r *fakeRegistry) ListCities(_ context.Context) ([]models.City, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.cities, nil
}

// fakeUpserter counts upserts; the first insertNew calls report inserted=true.
type fakeUpserter struct {
	mu        sync.Mutex
	calls     int
	insertNew int
	err       error
}

func (u *fakeUpserter) Upsert(_ context.Context, _ *models.Venue, _ string) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return false, u.err
	}
	u.calls++
	return u.calls <= u.insertNew, nil
}

// fakeAdapter is a configurable in-memory source.
type fakeAdapter struct {
	name       string
	configured bool
	venues     []models.Venue
	err        error
	delay      time.Duration
	fetches    atomic.Int32
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) Configured() bool { return a.configured }

func (a *fakeAdapter) Fetch(ctx context.Context, _ models.City, _ models.Category) ([]models.Venue, error) {
	a.fetches.Add(1)
	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if a.err != nil {
		return nil, a.err
	}
	return a.venues, nil
}

func venueDraft(name, placeID, sourceName string) models.Venue {
	return models.Venue{
		Name:     name,
		Address:  "1 Main St",
		Category: models.CategoryRestaurant,
		Source:   models.SourceRef{Name: sourceName, PlaceID: placeID},
	}
}

var nycRegistry = &fakeRegistry{cities: []models.City{
	{ID: "new-york", Name: "New York", Lat: 40.7128, Lng: -74.0060},
}}

func TestRunForCityHappyPath(t *testing.T) {
	t.Parallel()

	google := &fakeAdapter{name: "Google Places", configured: true, venues: []models.Venue{
		venueDraft("Joe's Pizza", "gp-1", "Google Places"),
		venueDraft("Blue Note", "gp-2", "Google Places"),
	}}
	yelp := &fakeAdapter{name: "Yelp", configured: true, venues: []models.Venue{
		venueDraft("Joe's Pizza", "yelp-1", "Yelp"), // exact-key duplicate
	}}

	upserter := &fakeUpserter{insertNew: 2}
	p := New(nycRegistry, upserter, []source.Adapter{google, yelp}, 0)

	summary, err := p.RunForCity(context.Background(), "new-york", "")
	require.NoError(t, err)

	assert.Equal(t, "new-york", summary.CityID)
	assert.Equal(t, "New York", summary.City)
	assert.Equal(t, 3, summary.Fetched)
	assert.Equal(t, 2, summary.Unique, "duplicate merged before persisting")
	assert.Equal(t, 2, summary.Inserted)
	assert.GreaterOrEqual(t, summary.DurationMS, int64(0))

	status := p.Status()
	assert.False(t, status.IsRunning)
	require.NotNil(t, status.LastRunTime)
}

func TestRunForCityUnknownCityIsFatal(t *testing.T) {
	t.Parallel()

	p := New(nycRegistry, &fakeUpserter{}, nil, 0)

	_, err := p.RunForCity(context.Background(), "atlantis", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrCityNotFound)
	assert.False(t, p.Status().IsRunning, "single-flight flag released after a fatal error")
}

func TestRunForCitySingleFlight(t *testing.T) {
	t.Parallel()

	slow := &fakeAdapter{name: "Google Places", configured: true, delay: 200 * time.Millisecond,
		venues: []models.Venue{venueDraft("Joe's Pizza", "gp-1", "Google Places")}}

	upserter := &fakeUpserter{insertNew: 10}
	p := New(nycRegistry, upserter, []source.Adapter{slow}, 0)

	done := make(chan *models.RunSummary, 1)
	go func() {
		summary, err := p.RunForCity(context.Background(), "new-york", "")
		require.NoError(t, err)
		done <- summary
	}()

	// Wait until the first run holds the flag.
	require.Eventually(t, func() bool { return p.Status().IsRunning },
		time.Second, 5*time.Millisecond)

	rejected, err := p.RunForCity(context.Background(), "new-york", "")
	require.NoError(t, err)
	assert.Equal(t, 0, rejected.Inserted, "concurrent run rejected with zero count")
	assert.Equal(t, 0, rejected.Fetched)

	first := <-done
	assert.Equal(t, 1, first.Inserted)
	assert.Equal(t, int32(1), slow.fetches.Load(), "rejected call never reached the adapter")
}

func TestRunForCityPartialSourceFailure(t *testing.T) {
	t.Parallel()

	working := &fakeAdapter{name: "Google Places", configured: true,
		venues: []models.Venue{venueDraft("Joe's Pizza", "gp-1", "Google Places")}}
	broken := &fakeAdapter{name: "Yelp", configured: true, err: errors.New("quota exceeded")}
	unconfigured := &fakeAdapter{name: "Foursquare", configured: false}

	upserter := &fakeUpserter{insertNew: 10}
	p := New(nycRegistry, upserter, []source.Adapter{working, broken, unconfigured}, 0)

	summary, err := p.RunForCity(context.Background(), "new-york", "")
	require.NoError(t, err, "one source failing never fails the run")
	assert.Equal(t, 1, summary.Fetched)
	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, int32(0), unconfigured.fetches.Load(), "unconfigured adapter is never invoked")
}

func TestRunForCityAllSourcesEmpty(t *testing.T) {
	t.Parallel()

	empty := &fakeAdapter{name: "Google Places", configured: true}
	upserter := &fakeUpserter{}
	p := New(nycRegistry, upserter, []source.Adapter{empty}, 0)

	summary, err := p.RunForCity(context.Background(), "new-york", "")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Fetched)
	assert.Equal(t, 0, summary.Unique)
	assert.Equal(t, 0, summary.Inserted)
}

func TestRunForCityUpsertFailuresSkipRecords(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{name: "Google Places", configured: true, venues: []models.Venue{
		venueDraft("Joe's Pizza", "gp-1", "Google Places"),
		venueDraft("Blue Note", "gp-2", "Google Places"),
	}}

	upserter := &fakeUpserter{err: errors.New("disk full")}
	p := New(nycRegistry, upserter, []source.Adapter{adapter}, 0)

	summary, err := p.RunForCity(context.Background(), "new-york", "")
	require.NoError(t, err, "per-record persistence failures never fail the run")
	assert.Equal(t, 2, summary.Unique)
	assert.Equal(t, 0, summary.Inserted)
}

func TestRunAllProcessesEveryCity(t *testing.T) {
	t.Parallel()

	registry := &fakeRegistry{cities: []models.City{
		{ID: "new-york", Name: "New York", Lat: 40.7128, Lng: -74.0060},
		{ID: "london", Name: "London", Lat: 51.5074, Lng: -0.1278},
	}}
	adapter := &fakeAdapter{name: "Google Places", configured: true,
		venues: []models.Venue{venueDraft("Joe's Pizza", "gp-1", "Google Places")}}

	upserter := &fakeUpserter{insertNew: 10}
	p := New(registry, upserter, []source.Adapter{adapter}, time.Millisecond)

	summaries, err := p.RunAll(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "new-york", summaries[0].CityID)
	assert.Equal(t, "london", summaries[1].CityID)
	assert.Equal(t, int32(2), adapter.fetches.Load())
}

func TestRunAllSingleFlight(t *testing.T) {
	t.Parallel()

	slow := &fakeAdapter{name: "Google Places", configured: true, delay: 200 * time.Millisecond}
	p := New(nycRegistry, &fakeUpserter{}, []source.Adapter{slow}, 0)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := p.RunAll(context.Background(), "")
		require.NoError(t, err)
	}()

	require.Eventually(t, func() bool { return p.Status().IsRunning },
		time.Second, 5*time.Millisecond)

	summaries, err := p.RunAll(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, summaries, "concurrent full run rejected")

	<-done
}

func TestRunAllContinuesPastFailingCity(t *testing.T) {
	t.Parallel()

	registry := &fakeRegistry{cities: []models.City{
		{ID: "new-york", Name: "New York", Lat: 40.7128, Lng: -74.0060},
		{ID: "london", Name: "London", Lat: 51.5074, Lng: -0.1278},
	}}

	// GetCity fails for the first city by removing it after listing.
	brokenRegistry := &registryWithBrokenCity{fakeRegistry: registry, brokenID: "new-york"}

	adapter := &fakeAdapter{name: "Google Places", configured: true,
		venues: []models.Venue{venueDraft("Joe's Pizza", "gp-1", "Google Places")}}
	p := New(brokenRegistry, &fakeUpserter{insertNew: 10}, []source.Adapter{adapter}, 0)

	summaries, err := p.RunAll(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, summaries, 1, "failing city skipped, remaining cities processed")
	assert.Equal(t, "london", summaries[0].CityID)
}

type registryWithBrokenCity struct {
	*fakeRegistry
	brokenID string
}

func (r *registryWithBrokenCity) GetCity(ctx context.Context, cityID string) (*models.City, error) {
	if cityID == r.brokenID {
		return nil, errors.New("store unreachable")
	}
	return r.fakeRegistry.GetCity(ctx, cityID)
}

func TestStatusReportsConfiguredSources(t *testing.T) {
	t.Parallel()

	p := New(nycRegistry, &fakeUpserter{}, []source.Adapter{
		&fakeAdapter{name: "Google Places", configured: true},
		&fakeAdapter{name: "Yelp", configured: false},
	}, 0)

	status := p.Status()
	assert.False(t, status.IsRunning)
	assert.Nil(t, status.LastRunTime)
	assert.Equal(t, map[string]bool{"Google Places": true, "Yelp": false}, status.SourcesConfigured)
}

func TestScheduleRunsImmediatelyAndStopsOnCancel(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{name: "Google Places", configured: true,
		venues: []models.Venue{venueDraft("Joe's Pizza", "gp-1", "Google Places")}}
	p := New(nycRegistry, &fakeUpserter{insertNew: 100}, []source.Adapter{adapter}, 0)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Schedule(ctx, 30*time.Millisecond)
	}()

	require.Eventually(t, func() bool { return adapter.fetches.Load() >= 2 },
		2*time.Second, 5*time.Millisecond, "immediate run plus at least one tick")

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}
