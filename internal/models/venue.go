// Venuescope - Multi-Source Venue Aggregation and Deduplication
// Copyright 2026 Venuescope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venuescope/venuescope

// Package models defines data structures shared across the Venuescope pipeline:
// canonical venue drafts, persisted venue rows, cities and API response envelopes.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Category is the normalized venue category vocabulary.
// Provider-specific type/category tags are mapped onto this fixed set by each
// source adapter; unrecognized values default to CategoryRestaurant.
type Category string

// Normalized category values.
const (
	CategoryRestaurant    Category = "restaurant"
	CategoryBar           Category = "bar"
	CategoryCafe          Category = "cafe"
	CategoryNightclub     Category = "nightclub"
	CategoryShopping      Category = "shopping"
	CategoryEntertainment Category = "entertainment"
	CategoryFitness       Category = "fitness"
	CategoryHotel         Category = "hotel"
)

// Valid reports whether c is one of the normalized category values.
func (c Category) Valid() bool {
	switch c {
	case CategoryRestaurant, CategoryBar, CategoryCafe, CategoryNightclub,
		CategoryShopping, CategoryEntertainment, CategoryFitness, CategoryHotel:
		return true
	}
	return false
}

// Weekday identifies a day of the week in the canonical hours map.
// Lowercase English names are used as stable JSON/database keys.
type Weekday string

// Weekday keys for the canonical hours map.
const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// Weekdays lists all weekday keys in calendar order (Monday first).
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// DayHours holds opening hours for a single weekday as 24-hour local-time
// strings ("HH:MM"). Nil Open and Close means the day is closed or the hours
// are unknown; both are represented identically.
type DayHours struct {
	Open  *string `json:"open,omitempty"`
	Close *string `json:"close,omitempty"`
}

// Coordinates is a WGS84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SourceRef identifies the upstream provider record a draft came from.
// PlaceID is the provider's own identifier and is unique per source.
type SourceRef struct {
	Name    string `json:"name"`
	PlaceID string `json:"place_id"`
}

// Venue is the canonical, provider-agnostic draft of a place.
//
// Drafts are produced fresh by source adapters on every pipeline run, merged
// by the deduplicator and consumed by the persister; they carry no identity
// across runs except SourceRef. Optional fields use pointers so that "absent"
// is distinguishable from a zero value, which the merge rules depend on.
type Venue struct {
	Name     string   `json:"name"`
	Address  string   `json:"address"`
	Category Category `json:"category"`

	Cuisine    *string  `json:"cuisine,omitempty"`
	PriceLevel *int     `json:"price_level,omitempty"` // 1-4, rendered as $..$$$$
	Rating     *float64 `json:"rating,omitempty"`      // 0-5 scale

	Coordinates *Coordinates         `json:"coordinates,omitempty"`
	Hours       map[Weekday]DayHours `json:"hours,omitempty"`
	Features    []string             `json:"features,omitempty"`

	ImageURL    *string `json:"image_url,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Website     *string `json:"website,omitempty"`
	Description *string `json:"description,omitempty"`

	Source SourceRef `json:"source"`

	// Provenance names every provider that contributed to this draft after
	// merging, e.g. "Google Places, Yelp". Set by the deduplicator; adapters
	// leave it equal to Source.Name.
	Provenance string `json:"provenance,omitempty"`
}

// PopulatedHours returns the number of weekday entries that carry at least an
// open or close time. Used by the merge rule that keeps the richer hours map.
func (v *Venue) PopulatedHours() int {
	n := 0
	for _, h := range v.Hours {
		if h.Open != nil || h.Close != nil {
			n++
		}
	}
	return n
}

// StoredVenue is a persisted venue row. At most one row represents a given
// real-world venue within a city; the deduplicator establishes this before
// any write reaches the store.
type StoredVenue struct {
	ID     uuid.UUID `json:"id"`
	CityID string    `json:"city_id"`

	Name     string   `json:"name"`
	Address  string   `json:"address"`
	Category Category `json:"category"`

	Cuisine    *string  `json:"cuisine,omitempty"`
	PriceLevel int      `json:"price_level"`
	Rating     *float64 `json:"rating,omitempty"`

	Coordinates *Coordinates         `json:"coordinates,omitempty"`
	Hours       map[Weekday]DayHours `json:"hours,omitempty"`
	Features    []string             `json:"features"`

	ImageURL    *string `json:"image_url,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Website     *string `json:"website,omitempty"`
	Description *string `json:"description,omitempty"`

	Provenance string `json:"provenance,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// City is an entry in the city registry consumed by the orchestrator.
type City struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}
