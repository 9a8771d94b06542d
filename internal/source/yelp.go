// Venuescope - Multi-Source Venue Aggregation and Deduplication
// Copyright 2026 Venuescope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venuescope/venuescope

/*
yelp.go - Yelp Fusion Source Adapter

Fetches venues via the Yelp Fusion Business Search API and maps them into
canonical drafts.

Provider mechanics encapsulated here:
  - Bearer token authentication
  - offset pagination (limit 50, provider-capped at 1000 results)
  - "$".."$$$$" price strings mapped to the 1-4 price level
  - category alias lookup onto the normalized vocabulary
  - business details enrichment (structured hours keyed by 0-6 weekday
    index, Mon=0) for a bounded subset of high-rated results
  - transactions ("delivery", "pickup") surfaced as feature tags
*/
package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/venuescope/venuescope/internal/config"
	"github.com/venuescope/venuescope/internal/logging"
	"github.com/venuescope/venuescope/internal/models"
)

const (
	yelpSourceName = "Yelp"

	// yelpPageLimit is the provider's maximum page size.
	yelpPageLimit = 50

	// yelpMaxPages bounds offset pagination per fetch. Yelp itself refuses
	// offset+limit beyond 1000.
	yelpMaxPages = 4

	// Enrichment bounds for the business details call (structured hours).
	yelpDetailsLimit     = 10
	yelpDetailsMinRating = 4.5
)

// yelpAliasCategories maps Yelp category aliases to the normalized category
// vocabulary. Aliases not listed here fall through to CategoryRestaurant.
var yelpAliasCategories = map[string]models.Category{
	"restaurants":   models.CategoryRestaurant,
	"food":          models.CategoryRestaurant,
	"bars":          models.CategoryBar,
	"pubs":          models.CategoryBar,
	"cocktailbars":  models.CategoryBar,
	"breweries":     models.CategoryBar,
	"cafes":         models.CategoryCafe,
	"coffee":        models.CategoryCafe,
	"bakeries":      models.CategoryCafe,
	"danceclubs":    models.CategoryNightclub,
	"shopping":      models.CategoryShopping,
	"movietheaters": models.CategoryEntertainment,
	"arcades":       models.CategoryEntertainment,
	"casinos":       models.CategoryEntertainment,
	"gyms":          models.CategoryFitness,
	"fitness":       models.CategoryFitness,
	"hotels":        models.CategoryHotel,
}

// yelpSearchCategories maps a requested canonical category to the categories
// parameter of the search call.
var yelpSearchCategories = map[models.Category]string{
	models.CategoryRestaurant:    "restaurants",
	models.CategoryBar:           "bars",
	models.CategoryCafe:          "cafes",
	models.CategoryNightclub:     "danceclubs",
	models.CategoryShopping:      "shopping",
	models.CategoryEntertainment: "arts",
	models.CategoryFitness:       "fitness",
	models.CategoryHotel:         "hotels",
}

// yelpPriceLevels maps Yelp price strings onto the 1-4 scale.
var yelpPriceLevels = map[string]int{
	"$":    1,
	"$$":   2,
	"$$$":  3,
	"$$$$": 4,
}

// Raw response shapes (Yelp-specific, never leave this file).

type yelpSearchResponse struct {
	Businesses []yelpBusiness `json:"businesses"`
	Total      int            `json:"total"`
}

type yelpBusiness struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location struct {
		DisplayAddress []string `json:"display_address"`
	} `json:"location"`
	Coordinates struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"coordinates"`
	Categories   []yelpCategory `json:"categories"`
	Rating       *float64       `json:"rating"` // already 0-5
	Price        string         `json:"price"`
	Phone        string         `json:"display_phone"`
	URL          string         `json:"url"`
	ImageURL     string         `json:"image_url"`
	Transactions []string       `json:"transactions"`
}

type yelpCategory struct {
	Alias string `json:"alias"`
	Title string `json:"title"`
}

type yelpBusinessDetails struct {
	Hours []struct {
		Open []yelpHoursSlot `json:"open"`
	} `json:"hours"`
}

// yelpHoursSlot is one opening slot: Day is 0 (Monday) through 6 (Sunday),
// Start and End are "HHMM" strings such as "1100".
type yelpHoursSlot struct {
	Day   int    `json:"day"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// Yelp is the Yelp Fusion source adapter.
type Yelp struct {
	cfg     *config.YelpConfig
	radiusM int
	client  *apiClient
}

// NewYelp creates a Yelp adapter.
func NewYelp(cfg *config.YelpConfig, radiusM int) *Yelp {
	return &Yelp{
		cfg:     cfg,
		radiusM: radiusM,
		client:  newAPIClient(yelpSourceName, 5, 3),
	}
}

// Name implements Adapter.
func (y *Yelp) Name() string { return yelpSourceName }

// Configured implements Adapter.
func (y *Yelp) Configured() bool { return y.cfg.APIKey != "" }

// Fetch implements Adapter. It pages by offset until the reported total is
// exhausted or the page cap is hit, then enriches a bounded high-rated subset
// with structured hours from the business details endpoint.
func (y *Yelp) Fetch(ctx context.Context, city models.City, category models.Category) ([]models.Venue, error) {
	if !y.Configured() {
		return nil, ErrNotConfigured
	}

	searchCategory := yelpSearchCategories[models.CategoryRestaurant]
	if c, ok := yelpSearchCategories[category]; ok {
		searchCategory = c
	}

	var venues []models.Venue

	for page := 0; page < yelpMaxPages; page++ {
		offset := page * yelpPageLimit

		resp, err := y.searchPage(ctx, city, searchCategory, offset)
		if err != nil {
			return nil, err
		}

		for i := range resp.Businesses {
			venues = append(venues, y.mapBusiness(&resp.Businesses[i]))
		}

		if offset+yelpPageLimit >= resp.Total || len(resp.Businesses) < yelpPageLimit {
			break
		}
	}

	y.enrichTopRated(ctx, venues)

	return venues, nil
}

// searchPage issues one Business Search request.
func (y *Yelp) searchPage(ctx context.Context, city models.City, searchCategory string, offset int) (*yelpSearchResponse, error) {
	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%f", city.Lat))
	params.Set("longitude", fmt.Sprintf("%f", city.Lng))
	params.Set("radius", fmt.Sprintf("%d", y.radiusM))
	params.Set("categories", searchCategory)
	params.Set("limit", fmt.Sprintf("%d", yelpPageLimit))
	params.Set("offset", fmt.Sprintf("%d", offset))

	reqURL := fmt.Sprintf("%s/businesses/search?%s", y.cfg.BaseURL, params.Encode())

	resp := &yelpSearchResponse{}
	if err := y.client.getJSON(ctx, reqURL, y.authHeader(), resp); err != nil {
		return nil, fmt.Errorf("business search failed: %w", err)
	}
	return resp, nil
}

func (y *Yelp) authHeader() http.Header {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+y.cfg.APIKey)
	return header
}

// mapBusiness converts one raw Yelp business into a canonical draft.
func (y *Yelp) mapBusiness(b *yelpBusiness) models.Venue {
	address := ""
	if len(b.Location.DisplayAddress) > 0 {
		address = joinNonEmpty(b.Location.DisplayAddress, ", ")
	}

	v := models.Venue{
		Name:     b.Name,
		Address:  address,
		Category: categoryFromYelp(b.Categories),
		Rating:   b.Rating,
		Coordinates: &models.Coordinates{
			Lat: b.Coordinates.Latitude,
			Lng: b.Coordinates.Longitude,
		},
		Features: b.Transactions,
		Source:   models.SourceRef{Name: yelpSourceName, PlaceID: b.ID},
	}

	if level, ok := yelpPriceLevels[b.Price]; ok {
		v.PriceLevel = &level
	}
	if b.Phone != "" {
		phone := b.Phone
		v.Phone = &phone
	}
	if b.URL != "" {
		website := b.URL
		v.Website = &website
	}
	if b.ImageURL != "" {
		imageURL := b.ImageURL
		v.ImageURL = &imageURL
	}
	if len(b.Categories) > 0 {
		cuisine := b.Categories[0].Title
		v.Cuisine = &cuisine
	}

	return v
}

// enrichTopRated fetches structured hours for up to yelpDetailsLimit venues
// rated yelpDetailsMinRating or better. Enrichment failures degrade to the
// un-enriched draft; they never abort the fetch.
func (y *Yelp) enrichTopRated(ctx context.Context, venues []models.Venue) {
	enriched := 0
	for i := range venues {
		if enriched >= yelpDetailsLimit {
			break
		}
		if venues[i].Rating == nil || *venues[i].Rating < yelpDetailsMinRating {
			continue
		}

		details, err := y.businessDetails(ctx, venues[i].Source.PlaceID)
		if err != nil {
			logging.Warn().Err(err).
				Str("source", yelpSourceName).
				Str("business_id", venues[i].Source.PlaceID).
				Msg("Business details enrichment failed, keeping base record")
			continue
		}

		if len(details.Hours) > 0 {
			if hours := hoursFromYelpSlots(details.Hours[0].Open); len(hours) > 0 {
				venues[i].Hours = hours
			}
		}
		enriched++
	}
}

// businessDetails issues one business details request.
func (y *Yelp) businessDetails(ctx context.Context, businessID string) (*yelpBusinessDetails, error) {
	reqURL := fmt.Sprintf("%s/businesses/%s", y.cfg.BaseURL, url.PathEscape(businessID))

	resp := &yelpBusinessDetails{}
	if err := y.client.getJSON(ctx, reqURL, y.authHeader(), resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// hoursFromYelpSlots converts Yelp's 0-indexed weekday slots into the
// canonical hours map. Malformed slots degrade to unknown hours for that day.
func hoursFromYelpSlots(slots []yelpHoursSlot) map[models.Weekday]models.DayHours {
	if len(slots) == 0 {
		return nil
	}

	hours := make(map[models.Weekday]models.DayHours, len(slots))
	for _, slot := range slots {
		if slot.Day < 0 || slot.Day > 6 {
			continue
		}
		weekday := models.Weekdays[slot.Day]

		open, okOpen := formatHHMM(slot.Start)
		closeTime, okClose := formatHHMM(slot.End)
		if !okOpen || !okClose {
			if _, exists := hours[weekday]; !exists {
				hours[weekday] = models.DayHours{}
			}
			continue
		}
		hours[weekday] = models.DayHours{Open: &open, Close: &closeTime}
	}
	return hours
}

// categoryFromYelp returns the first mapped category alias, defaulting to
// restaurant when nothing is recognized.
func categoryFromYelp(categories []yelpCategory) models.Category {
	for _, c := range categories {
		if cat, ok := yelpAliasCategories[c.Alias]; ok {
			return cat
		}
	}
	return models.CategoryRestaurant
}

// joinNonEmpty joins the non-empty elements of parts with sep.
func joinNonEmpty(parts []string, sep string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += sep
		}
		out += p
	}
	return out
}
