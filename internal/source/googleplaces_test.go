// Venuescope - Multi-Source Venue Aggregation and Deduplication
// Copyright 2026 Venuescope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venuescope/venuescope

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venuescope/venuescope/internal/config"
	"github.com/venuescope/venuescope/internal/models"
)

var testCity = models.City{ID: "nyc", Name: "New York", Lat: 40.7128, Lng: -74.0060}

func newTestGoogle(t *testing.T, handler http.Handler) (*GooglePlaces, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	g := NewGooglePlaces(&config.GoogleConfig{APIKey: "test-key", BaseURL: server.URL}, 6000)
	g.pageDelay = time.Millisecond // keep tests fast
	g.client.retryBaseDelay = time.Millisecond
	return g, server
}

func TestGooglePlacesNotConfigured(t *testing.T) {
	t.Parallel()

	g := NewGooglePlaces(&config.GoogleConfig{}, 6000)
	venues, err := g.Fetch(context.Background(), testCity, "")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Nil(t, venues)
	assert.False(t, g.Configured())
}

func TestGooglePlacesFetchPaginates(t *testing.T) {
	t.Parallel()

	var pageTokens []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/nearbysearch/json", r.URL.Path)
		require.Equal(t, "test-key", r.URL.Query().Get("key"))

		token := r.URL.Query().Get("pagetoken")
		pageTokens = append(pageTokens, token)

		switch token {
		case "":
			fmt.Fprint(w, `{"status":"OK","next_page_token":"page2","results":[
				{"place_id":"gp-1","name":"Joe's Pizza","vicinity":"7 Carmine St",
				 "geometry":{"location":{"lat":40.7306,"lng":-74.0027}},
				 "types":["restaurant","food"],"rating":4.6,"price_level":1,
				 "photos":[{"photo_reference":"ref-1"}]}]}`)
		case "page2":
			fmt.Fprint(w, `{"status":"OK","results":[
				{"place_id":"gp-2","name":"Blue Note","vicinity":"131 W 3rd St",
				 "geometry":{"location":{"lat":40.7308,"lng":-74.0006}},
				 "types":["night_club"],"rating":4.2}]}`)
		default:
			t.Errorf("unexpected page token %q", token)
		}
	})

	g, server := newTestGoogle(t, handler)

	venues, err := g.Fetch(context.Background(), testCity, "")
	require.NoError(t, err)
	require.Len(t, venues, 2)
	assert.Equal(t, []string{"", "page2"}, pageTokens, "second page requested with token")

	joe := venues[0]
	assert.Equal(t, "Joe's Pizza", joe.Name)
	assert.Equal(t, models.CategoryRestaurant, joe.Category)
	assert.Equal(t, models.SourceRef{Name: "Google Places", PlaceID: "gp-1"}, joe.Source)
	require.NotNil(t, joe.PriceLevel)
	assert.Equal(t, 1, *joe.PriceLevel)
	require.NotNil(t, joe.ImageURL)
	assert.Contains(t, *joe.ImageURL, server.URL+"/photo?")
	assert.Contains(t, *joe.ImageURL, "photoreference=ref-1")
	assert.Contains(t, *joe.ImageURL, "key=test-key")

	assert.Equal(t, models.CategoryNightclub, venues[1].Category)
	assert.Nil(t, venues[1].ImageURL, "no photo reference means no image URL")
}

func TestGooglePlacesDetailsEnrichment(t *testing.T) {
	t.Parallel()

	detailCalls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/nearbysearch/json":
			fmt.Fprint(w, `{"status":"OK","results":[
				{"place_id":"gp-top","name":"Top Rated","vicinity":"1 Main St",
				 "geometry":{"location":{"lat":40.7,"lng":-74.0}},
				 "types":["restaurant"],"rating":4.8},
				{"place_id":"gp-low","name":"Low Rated","vicinity":"2 Main St",
				 "geometry":{"location":{"lat":40.7,"lng":-74.0}},
				 "types":["restaurant"],"rating":3.1}]}`)
		case "/details/json":
			detailCalls++
			require.Equal(t, "gp-top", r.URL.Query().Get("place_id"))
			fmt.Fprint(w, `{"status":"OK","result":{
				"formatted_phone_number":"(212) 555-0001",
				"website":"https://toprated.example",
				"opening_hours":{"weekday_text":[
					"Monday: 11:00 AM – 10:00 PM",
					"Tuesday: Closed"]}}}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	g, _ := newTestGoogle(t, handler)

	venues, err := g.Fetch(context.Background(), testCity, "")
	require.NoError(t, err)
	require.Len(t, venues, 2)
	assert.Equal(t, 1, detailCalls, "only the high-rated venue is enriched")

	top := venues[0]
	require.NotNil(t, top.Phone)
	assert.Equal(t, "(212) 555-0001", *top.Phone)
	require.NotNil(t, top.Website)

	require.Contains(t, top.Hours, models.Monday)
	monday := top.Hours[models.Monday]
	require.NotNil(t, monday.Open)
	assert.Equal(t, "11:00", *monday.Open)
	assert.Equal(t, "22:00", *monday.Close)

	require.Contains(t, top.Hours, models.Tuesday)
	tuesday := top.Hours[models.Tuesday]
	assert.Nil(t, tuesday.Open)
	assert.Nil(t, tuesday.Close)

	assert.Nil(t, venues[1].Phone, "low-rated venue is not enriched")
}

func TestGooglePlacesEnrichmentFailureDegrades(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/nearbysearch/json":
			fmt.Fprint(w, `{"status":"OK","results":[
				{"place_id":"gp-top","name":"Top Rated","vicinity":"1 Main St",
				 "geometry":{"location":{"lat":40.7,"lng":-74.0}},
				 "types":["restaurant"],"rating":4.9}]}`)
		case "/details/json":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	g, _ := newTestGoogle(t, handler)

	venues, err := g.Fetch(context.Background(), testCity, "")
	require.NoError(t, err, "details failure must not abort the fetch")
	require.Len(t, venues, 1)
	assert.Nil(t, venues[0].Phone)
	assert.Nil(t, venues[0].Hours)
}

func TestGooglePlacesErrorStatus(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status":"REQUEST_DENIED","error_message":"The provided API key is invalid."}`)
	})

	g, _ := newTestGoogle(t, handler)

	_, err := g.Fetch(context.Background(), testCity, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REQUEST_DENIED")
}

func TestCategoryFromGoogleTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		types    []string
		expected models.Category
	}{
		{"restaurant", []string{"restaurant", "food"}, models.CategoryRestaurant},
		{"bar", []string{"bar", "point_of_interest"}, models.CategoryBar},
		{"cafe via bakery", []string{"bakery"}, models.CategoryCafe},
		{"nightclub", []string{"night_club"}, models.CategoryNightclub},
		{"hotel", []string{"lodging"}, models.CategoryHotel},
		{"first mapped type wins", []string{"gym", "bar"}, models.CategoryFitness},
		{"unknown defaults to restaurant", []string{"point_of_interest", "establishment"}, models.CategoryRestaurant},
		{"empty defaults to restaurant", nil, models.CategoryRestaurant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, categoryFromGoogleTypes(tt.types))
		})
	}
}

func TestParseWeekdayText(t *testing.T) {
	t.Parallel()

	t.Run("open range with en dash", func(t *testing.T) {
		t.Parallel()
		hours := parseWeekdayText([]string{"Monday: 11:00 AM – 10:00 PM"})
		require.Contains(t, hours, models.Monday)
		require.NotNil(t, hours[models.Monday].Open)
		assert.Equal(t, "11:00", *hours[models.Monday].Open)
		assert.Equal(t, "22:00", *hours[models.Monday].Close)
	})

	t.Run("closed day has no open or close", func(t *testing.T) {
		t.Parallel()
		hours := parseWeekdayText([]string{"Monday: Closed"})
		require.Contains(t, hours, models.Monday)
		assert.Nil(t, hours[models.Monday].Open)
		assert.Nil(t, hours[models.Monday].Close)
	})

	t.Run("unparseable entry degrades to unknown", func(t *testing.T) {
		t.Parallel()
		hours := parseWeekdayText([]string{"Friday: Open 24 hours"})
		require.Contains(t, hours, models.Friday)
		assert.Nil(t, hours[models.Friday].Open)
	})

	t.Run("midnight and noon", func(t *testing.T) {
		t.Parallel()
		hours := parseWeekdayText([]string{"Saturday: 12:00 PM – 12:00 AM"})
		require.Contains(t, hours, models.Saturday)
		assert.Equal(t, "12:00", *hours[models.Saturday].Open)
		assert.Equal(t, "00:00", *hours[models.Saturday].Close)
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, parseWeekdayText(nil))
	})
}
