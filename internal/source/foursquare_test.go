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

func newTestFoursquare(t *testing.T, handler http.Handler) *Foursquare {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	f := NewFoursquare(&config.FoursquareConfig{APIKey: "fsq-key", BaseURL: server.URL}, 6000)
	f.client.retryBaseDelay = time.Millisecond
	return f
}

func TestFoursquareNotConfigured(t *testing.T) {
	t.Parallel()

	f := NewFoursquare(&config.FoursquareConfig{}, 6000)
	venues, err := f.Fetch(context.Background(), testCity, "")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Nil(t, venues)
}

func TestFoursquareFetchFollowsLinkHeader(t *testing.T) {
	t.Parallel()

	requests := 0
	var server *httptest.Server
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "fsq-key", r.Header.Get("Authorization"))
		requests++

		switch r.URL.Query().Get("cursor") {
		case "":
			w.Header().Set("Link", fmt.Sprintf(`<%s/places/search?cursor=c2>; rel="next"`, server.URL))
			fmt.Fprint(w, `{"results":[
				{"fsq_id":"fsq-1","name":"Joe's Pizza",
				 "location":{"formatted_address":"7 Carmine St, New York, NY 10014"},
				 "geocodes":{"main":{"latitude":40.7306,"longitude":-74.0027}},
				 "categories":[{"id":13064,"name":"Pizzeria"}],
				 "rating":8.6,"price":1,"tel":"(212) 555-0002",
				 "tastes":["pizza","casual"],
				 "photos":[{"prefix":"https://img.example/","suffix":"/photo.jpg"}]}]}`)
		case "c2":
			fmt.Fprint(w, `{"results":[
				{"fsq_id":"fsq-2","name":"Corner Brewery",
				 "location":{"address":"99 Grand St"},
				 "geocodes":{"main":{"latitude":40.72,"longitude":-74.0}},
				 "categories":[{"id":13029,"name":"Brewery"}],
				 "rating":9.0}]}`)
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("cursor"))
		}
	})
	server = httptest.NewServer(handler)
	t.Cleanup(server.Close)

	f := NewFoursquare(&config.FoursquareConfig{APIKey: "fsq-key", BaseURL: server.URL}, 6000)
	f.client.retryBaseDelay = time.Millisecond

	venues, err := f.Fetch(context.Background(), testCity, "")
	require.NoError(t, err)
	require.Len(t, venues, 2)
	assert.Equal(t, 2, requests, "follows exactly one rel=next link")

	joe := venues[0]
	assert.Equal(t, "Joe's Pizza", joe.Name)
	assert.Equal(t, "7 Carmine St, New York, NY 10014", joe.Address)
	assert.Equal(t, models.SourceRef{Name: "Foursquare", PlaceID: "fsq-1"}, joe.Source)
	require.NotNil(t, joe.Rating)
	assert.InDelta(t, 4.3, *joe.Rating, 0.001, "0-10 rating is halved onto 0-5")
	require.NotNil(t, joe.PriceLevel)
	assert.Equal(t, 1, *joe.PriceLevel)
	require.NotNil(t, joe.ImageURL)
	assert.Equal(t, "https://img.example/original/photo.jpg", *joe.ImageURL)
	assert.Equal(t, []string{"pizza", "casual"}, joe.Features)
	require.NotNil(t, joe.Cuisine)
	assert.Equal(t, "Pizzeria", *joe.Cuisine)

	brewery := venues[1]
	assert.Equal(t, "99 Grand St", brewery.Address, "plain address used when formatted_address missing")
	assert.Equal(t, models.CategoryBar, brewery.Category)
	require.NotNil(t, brewery.Rating)
	assert.InDelta(t, 4.5, *brewery.Rating, 0.001)
}

func TestFoursquareFetchSinglePage(t *testing.T) {
	t.Parallel()

	requests := 0
	f := newTestFoursquare(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		fmt.Fprint(w, `{"results":[]}`)
	}))

	venues, err := f.Fetch(context.Background(), testCity, models.CategoryBar)
	require.NoError(t, err)
	assert.Empty(t, venues)
	assert.Equal(t, 1, requests, "no Link header means no further pages")
}

func TestFoursquareHoursFromSlots(t *testing.T) {
	t.Parallel()

	hours := hoursFromSlots([]fsqHoursSlot{
		{Day: 1, Open: "1100", Close: "2200"},
		{Day: 7, Open: "1000", Close: "1600"},
		{Day: 3, Open: "bad", Close: "2200"},
		{Day: 9, Open: "1100", Close: "2200"},
	})

	require.Contains(t, hours, models.Monday)
	require.NotNil(t, hours[models.Monday].Open)
	assert.Equal(t, "11:00", *hours[models.Monday].Open)
	assert.Equal(t, "22:00", *hours[models.Monday].Close)

	require.Contains(t, hours, models.Sunday)
	assert.Equal(t, "10:00", *hours[models.Sunday].Open)

	require.Contains(t, hours, models.Wednesday, "malformed slot keeps the day with unknown times")
	assert.Nil(t, hours[models.Wednesday].Open)

	assert.Len(t, hours, 3, "out-of-range day is dropped")
	assert.Nil(t, hoursFromSlots(nil))
}

func TestFormatHHMM(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected string
		ok       bool
	}{
		{"1100", "11:00", true},
		{"0000", "00:00", true},
		{"2359", "23:59", true},
		{"2400", "", false},
		{"1260", "", false},
		{"110", "", false},
		{"11000", "", false},
		{"11:0", "", false},
		{"abcd", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, ok := formatHHMM(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCategoryFromFoursquare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		categories []fsqCategory
		expected   models.Category
	}{
		{"night club before bar", []fsqCategory{{Name: "Night Club"}}, models.CategoryNightclub},
		{"brewery is a bar", []fsqCategory{{Name: "Brewery"}}, models.CategoryBar},
		{"accented cafe", []fsqCategory{{Name: "Café"}}, models.CategoryCafe},
		{"coffee shop", []fsqCategory{{Name: "Coffee Shop"}}, models.CategoryCafe},
		{"fitness center", []fsqCategory{{Name: "Fitness Center"}}, models.CategoryFitness},
		{"hotel", []fsqCategory{{Name: "Hotel"}}, models.CategoryHotel},
		{"mall", []fsqCategory{{Name: "Shopping Mall"}}, models.CategoryShopping},
		{"movie theater", []fsqCategory{{Name: "Movie Theater"}}, models.CategoryEntertainment},
		{"pizzeria defaults", []fsqCategory{{Name: "Pizzeria"}}, models.CategoryRestaurant},
		{"empty defaults", nil, models.CategoryRestaurant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, categoryFromFoursquare(tt.categories))
		})
	}
}

func TestNextLinkURL(t *testing.T) {
	t.Parallel()

	t.Run("rel next extracted", func(t *testing.T) {
		t.Parallel()
		header := http.Header{}
		header.Set("Link", `<https://api.example/places/search?cursor=abc>; rel="next"`)
		assert.Equal(t, "https://api.example/places/search?cursor=abc", nextLinkURL(header))
	})

	t.Run("other rels ignored", func(t *testing.T) {
		t.Parallel()
		header := http.Header{}
		header.Set("Link", `<https://api.example/a>; rel="prev", <https://api.example/b>; rel="next"`)
		assert.Equal(t, "https://api.example/b", nextLinkURL(header))
	})

	t.Run("no link header", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, nextLinkURL(http.Header{}))
		assert.Empty(t, nextLinkURL(nil))
	})
}
