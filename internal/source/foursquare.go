// Venuescope - Multi-Source Venue Aggregation and Deduplication
// Copyright 2026 Venuescope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venuescope/venuescope

/*
foursquare.go - Foursquare Source Adapter

Fetches venues via the Foursquare Places API (v3) and maps them into
canonical drafts.

Provider mechanics encapsulated here:
  - API key authentication via the Authorization header
  - Link-header cursor pagination (rel="next"), max 3 pages of 50
  - ratings on Foursquare's 0-10 scale, halved on ingestion
  - numeric HHMM open/close slots keyed by 1-7 weekday index (Mon=1)
  - photo prefix+suffix composition into an image URL
  - category name keyword matching onto the normalized vocabulary
*/
package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/venuescope/venuescope/internal/config"
	"github.com/venuescope/venuescope/internal/models"
)

const (
	foursquareSourceName = "Foursquare"

	// foursquarePageLimit is the provider's maximum page size.
	foursquarePageLimit = 50

	// foursquareMaxPages bounds cursor pagination per fetch.
	foursquareMaxPages = 3
)

// foursquareFields is the field set requested from the search endpoint.
// Requesting hours, rating and photos up front avoids a per-venue details call.
const foursquareFields = "fsq_id,name,location,geocodes,categories,rating,price,tel,website,hours,photos,tastes,description"

// foursquareCategoryIDs maps a requested canonical category to Foursquare
// category IDs for the search filter.
var foursquareCategoryIDs = map[models.Category]string{
	models.CategoryRestaurant:    "13065",
	models.CategoryBar:           "13003",
	models.CategoryCafe:          "13032",
	models.CategoryNightclub:     "10032",
	models.CategoryShopping:      "17000",
	models.CategoryEntertainment: "10000",
	models.CategoryFitness:       "18021",
	models.CategoryHotel:         "19014",
}

// Raw response shapes (Foursquare-specific, never leave this file).

type fsqSearchResponse struct {
	Results []fsqPlace `json:"results"`
}

type fsqPlace struct {
	FsqID    string `json:"fsq_id"`
	Name     string `json:"name"`
	Location struct {
		FormattedAddress string `json:"formatted_address"`
		Address          string `json:"address"`
	} `json:"location"`
	Geocodes struct {
		Main struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"main"`
	} `json:"geocodes"`
	Categories []fsqCategory `json:"categories"`
	Rating     *float64      `json:"rating"` // 0-10 scale
	Price      *int          `json:"price"`  // 1-4
	Tel        string        `json:"tel"`
	Website    string        `json:"website"`
	Hours      struct {
		Regular []fsqHoursSlot `json:"regular"`
	} `json:"hours"`
	Photos []struct {
		Prefix string `json:"prefix"`
		Suffix string `json:"suffix"`
	} `json:"photos"`
	Tastes      []string `json:"tastes"`
	Description string   `json:"description"`
}

type fsqCategory struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// fsqHoursSlot is one opening slot: Day is 1 (Monday) through 7 (Sunday),
// Open and Close are "HHMM" strings such as "1100".
type fsqHoursSlot struct {
	Day   int    `json:"day"`
	Open  string `json:"open"`
	Close string `json:"close"`
}

// Foursquare is the Foursquare Places source adapter.
type Foursquare struct {
	cfg     *config.FoursquareConfig
	radiusM int
	client  *apiClient
}

// NewFoursquare creates a Foursquare adapter.
func NewFoursquare(cfg *config.FoursquareConfig, radiusM int) *Foursquare {
	return &Foursquare{
		cfg:     cfg,
		radiusM: radiusM,
		client:  newAPIClient(foursquareSourceName, 5, 3),
	}
}

// Name implements Adapter.
func (f *Foursquare) Name() string { return foursquareSourceName }

// Configured implements Adapter.
func (f *Foursquare) Configured() bool { return f.cfg.APIKey != "" }

// Fetch implements Adapter. It follows rel="next" Link headers until the
// provider stops returning one or the page cap is reached.
func (f *Foursquare) Fetch(ctx context.Context, city models.City, category models.Category) ([]models.Venue, error) {
	if !f.Configured() {
		return nil, ErrNotConfigured
	}

	categoryID := foursquareCategoryIDs[models.CategoryRestaurant]
	if id, ok := foursquareCategoryIDs[category]; ok {
		categoryID = id
	}

	params := url.Values{}
	params.Set("ll", fmt.Sprintf("%f,%f", city.Lat, city.Lng))
	params.Set("radius", fmt.Sprintf("%d", f.radiusM))
	params.Set("categories", categoryID)
	params.Set("limit", fmt.Sprintf("%d", foursquarePageLimit))
	params.Set("fields", foursquareFields)

	reqURL := fmt.Sprintf("%s/places/search?%s", f.cfg.BaseURL, params.Encode())

	header := http.Header{}
	header.Set("Authorization", f.cfg.APIKey)
	header.Set("Accept", "application/json")

	var venues []models.Venue

	for page := 0; page < foursquareMaxPages && reqURL != ""; page++ {
		resp := &fsqSearchResponse{}
		respHeader, err := f.client.getJSONPaged(ctx, reqURL, header, resp)
		if err != nil {
			return nil, fmt.Errorf("place search failed: %w", err)
		}

		for i := range resp.Results {
			venues = append(venues, f.mapPlace(&resp.Results[i]))
		}

		reqURL = nextLinkURL(respHeader)
	}

	return venues, nil
}

// mapPlace converts one raw Foursquare result into a canonical draft.
func (f *Foursquare) mapPlace(p *fsqPlace) models.Venue {
	address := p.Location.FormattedAddress
	if address == "" {
		address = p.Location.Address
	}

	v := models.Venue{
		Name:     p.Name,
		Address:  address,
		Category: categoryFromFoursquare(p.Categories),
		Coordinates: &models.Coordinates{
			Lat: p.Geocodes.Main.Latitude,
			Lng: p.Geocodes.Main.Longitude,
		},
		PriceLevel: p.Price,
		Hours:      hoursFromSlots(p.Hours.Regular),
		Features:   p.Tastes,
		Source:     models.SourceRef{Name: foursquareSourceName, PlaceID: p.FsqID},
	}

	// Foursquare rates on a 0-10 scale; halve onto the canonical 0-5.
	if p.Rating != nil {
		halved := *p.Rating / 2
		v.Rating = &halved
	}

	if p.Tel != "" {
		tel := p.Tel
		v.Phone = &tel
	}
	if p.Website != "" {
		website := p.Website
		v.Website = &website
	}
	if p.Description != "" {
		desc := p.Description
		v.Description = &desc
	}
	if len(p.Categories) > 0 {
		cuisine := p.Categories[0].Name
		v.Cuisine = &cuisine
	}

	if len(p.Photos) > 0 && p.Photos[0].Prefix != "" && p.Photos[0].Suffix != "" {
		imageURL := p.Photos[0].Prefix + "original" + p.Photos[0].Suffix
		v.ImageURL = &imageURL
	}

	return v
}

// hoursFromSlots converts Foursquare's numeric weekday slots into the
// canonical hours map. Slots with out-of-range days or malformed HHMM values
// are skipped; a venue with only bad slots ends up with unknown hours rather
// than a failed fetch.
func hoursFromSlots(slots []fsqHoursSlot) map[models.Weekday]models.DayHours {
	if len(slots) == 0 {
		return nil
	}

	hours := make(map[models.Weekday]models.DayHours, len(slots))
	for _, slot := range slots {
		if slot.Day < 1 || slot.Day > 7 {
			continue
		}
		weekday := models.Weekdays[slot.Day-1]

		open, okOpen := formatHHMM(slot.Open)
		closeTime, okClose := formatHHMM(slot.Close)
		if !okOpen || !okClose {
			// Keep the weekday present with unknown times.
			if _, exists := hours[weekday]; !exists {
				hours[weekday] = models.DayHours{}
			}
			continue
		}
		hours[weekday] = models.DayHours{Open: &open, Close: &closeTime}
	}
	return hours
}

// formatHHMM converts "1100" into "11:00". Returns ok=false for anything that
// is not exactly four digits within valid time bounds.
func formatHHMM(s string) (string, bool) {
	if len(s) != 4 {
		return "", false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	hh := (int(s[0]-'0') * 10) + int(s[1]-'0')
	mm := (int(s[2]-'0') * 10) + int(s[3]-'0')
	if hh > 23 || mm > 59 {
		return "", false
	}
	return s[:2] + ":" + s[2:], true
}

// categoryFromFoursquare keyword-matches category names onto the normalized
// vocabulary. Foursquare's taxonomy is deep, so matching is by name rather
// than by exhaustive ID table; unmatched categories default to restaurant.
func categoryFromFoursquare(categories []fsqCategory) models.Category {
	for _, c := range categories {
		name := strings.ToLower(c.Name)
		switch {
		case strings.Contains(name, "night club") || strings.Contains(name, "nightclub"):
			return models.CategoryNightclub
		case strings.Contains(name, "bar") || strings.Contains(name, "pub") || strings.Contains(name, "brewery"):
			return models.CategoryBar
		case strings.Contains(name, "café") || strings.Contains(name, "cafe") || strings.Contains(name, "coffee"):
			return models.CategoryCafe
		case strings.Contains(name, "gym") || strings.Contains(name, "fitness"):
			return models.CategoryFitness
		case strings.Contains(name, "hotel"):
			return models.CategoryHotel
		case strings.Contains(name, "store") || strings.Contains(name, "shop") || strings.Contains(name, "mall"):
			return models.CategoryShopping
		case strings.Contains(name, "theater") || strings.Contains(name, "casino") || strings.Contains(name, "arcade"):
			return models.CategoryEntertainment
		case strings.Contains(name, "restaurant"):
			return models.CategoryRestaurant
		}
	}
	return models.CategoryRestaurant
}

// nextLinkURL extracts the rel="next" URL from a Link response header, or
// returns "" when there is no further page.
func nextLinkURL(header http.Header) string {
	if header == nil {
		return ""
	}
	for _, link := range header.Values("Link") {
		for _, part := range strings.Split(link, ",") {
			segments := strings.Split(part, ";")
			if len(segments) < 2 {
				continue
			}
			target := strings.Trim(strings.TrimSpace(segments[0]), "<>")
			for _, attr := range segments[1:] {
				if strings.TrimSpace(attr) == `rel="next"` {
					return target
				}
			}
		}
	}
	return ""
}
