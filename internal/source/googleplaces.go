// Venuescope - Multi-Source Venue Aggregation and Deduplication
// Copyright 2026 Venuescope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venuescope/venuescope

/*
googleplaces.go - Google Places Source Adapter

Fetches venues via the Places Nearby Search API and maps them into canonical
drafts.

Provider mechanics encapsulated here:
  - next_page_token pagination, max 3 pages (Google's hard cap of 60 results)
  - mandatory >=2s sleep before a page token becomes valid
  - type-array to category mapping via a fixed lookup table
  - photo_reference composed into a photo endpoint URL with the API key
  - optional Place Details enrichment (phone, website, weekday_text hours)
    for a bounded subset of high-rated results, to limit API cost
  - "Monday: 11:00 AM – 10:00 PM" / "Monday: Closed" hours parsing
*/
package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/venuescope/venuescope/internal/config"
	"github.com/venuescope/venuescope/internal/logging"
	"github.com/venuescope/venuescope/internal/models"
)

const (
	googleSourceName = "Google Places"

	// googleMaxPages caps token pagination; Google never returns more than
	// three pages of 20 results.
	googleMaxPages = 3

	// googlePageTokenDelay is the minimum wait before a next_page_token is
	// accepted by the API. Requesting earlier returns INVALID_REQUEST.
	googlePageTokenDelay = 2 * time.Second

	// Enrichment bounds: only this many results, and only well-rated ones,
	// get a second Place Details call.
	googleDetailsLimit     = 10
	googleDetailsMinRating = 4.5
)

// googleTypeCategories maps Google place types to the normalized category
// vocabulary. Types not listed here fall through to CategoryRestaurant.
var googleTypeCategories = map[string]models.Category{
	"restaurant":       models.CategoryRestaurant,
	"meal_takeaway":    models.CategoryRestaurant,
	"meal_delivery":    models.CategoryRestaurant,
	"bar":              models.CategoryBar,
	"cafe":             models.CategoryCafe,
	"bakery":           models.CategoryCafe,
	"night_club":       models.CategoryNightclub,
	"shopping_mall":    models.CategoryShopping,
	"department_store": models.CategoryShopping,
	"movie_theater":    models.CategoryEntertainment,
	"casino":           models.CategoryEntertainment,
	"amusement_park":   models.CategoryEntertainment,
	"gym":              models.CategoryFitness,
	"lodging":          models.CategoryHotel,
}

// googleSearchTypes maps a requested canonical category to the "type"
// parameter of the Nearby Search call.
var googleSearchTypes = map[models.Category]string{
	models.CategoryRestaurant:    "restaurant",
	models.CategoryBar:           "bar",
	models.CategoryCafe:          "cafe",
	models.CategoryNightclub:     "night_club",
	models.CategoryShopping:      "shopping_mall",
	models.CategoryEntertainment: "movie_theater",
	models.CategoryFitness:       "gym",
	models.CategoryHotel:         "lodging",
}

// Raw response shapes (Google-specific, never leave this file).

type googleSearchResponse struct {
	Results       []googlePlace `json:"results"`
	NextPageToken string        `json:"next_page_token"`
	Status        string        `json:"status"`
	ErrorMessage  string        `json:"error_message"`
}

type googlePlace struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	Vicinity         string   `json:"vicinity"`
	FormattedAddress string   `json:"formatted_address"`
	Types            []string `json:"types"`
	Rating           *float64 `json:"rating"`
	PriceLevel       *int     `json:"price_level"` // 0-4 on Google's scale
	Geometry         struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	Photos []struct {
		PhotoReference string `json:"photo_reference"`
	} `json:"photos"`
}

type googleDetailsResponse struct {
	Result googleDetails `json:"result"`
	Status string        `json:"status"`
}

type googleDetails struct {
	FormattedPhoneNumber string `json:"formatted_phone_number"`
	Website              string `json:"website"`
	OpeningHours         struct {
		WeekdayText []string `json:"weekday_text"`
	} `json:"opening_hours"`
}

// GooglePlaces is the Google Places source adapter.
type GooglePlaces struct {
	cfg       *config.GoogleConfig
	radiusM   int
	client    *apiClient
	pageDelay time.Duration // token activation wait between pages
}

// NewGooglePlaces creates a Google Places adapter. The adapter is created
// even without an API key; Configured() reports whether it can fetch.
func NewGooglePlaces(cfg *config.GoogleConfig, radiusM int) *GooglePlaces {
	return &GooglePlaces{
		cfg:       cfg,
		radiusM:   radiusM,
		client:    newAPIClient(googleSourceName, 10, 5),
		pageDelay: googlePageTokenDelay,
	}
}

// Name implements Adapter.
func (g *GooglePlaces) Name() string { return googleSourceName }

// Configured implements Adapter.
func (g *GooglePlaces) Configured() bool { return g.cfg.APIKey != "" }

// Fetch implements Adapter. It pages through Nearby Search results around the
// city center and enriches a bounded high-rated subset with Place Details.
func (g *GooglePlaces) Fetch(ctx context.Context, city models.City, category models.Category) ([]models.Venue, error) {
	if !g.Configured() {
		return nil, ErrNotConfigured
	}

	searchType := googleSearchTypes[models.CategoryRestaurant]
	if t, ok := googleSearchTypes[category]; ok {
		searchType = t
	}

	var venues []models.Venue
	pageToken := ""

	for page := 0; page < googleMaxPages; page++ {
		if pageToken != "" {
			// The token is not valid until shortly after it is issued.
			if err := sleepCtx(ctx, g.pageDelay); err != nil {
				return venues, err
			}
		}

		resp, err := g.searchPage(ctx, city, searchType, pageToken)
		if err != nil {
			return nil, err
		}

		for i := range resp.Results {
			venues = append(venues, g.mapPlace(&resp.Results[i]))
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	g.enrichTopRated(ctx, venues)

	return venues, nil
}

// searchPage issues one Nearby Search request.
func (g *GooglePlaces) searchPage(ctx context.Context, city models.City, searchType, pageToken string) (*googleSearchResponse, error) {
	params := url.Values{}
	params.Set("key", g.cfg.APIKey)
	if pageToken != "" {
		// A page token encodes the original query; other parameters are ignored.
		params.Set("pagetoken", pageToken)
	} else {
		params.Set("location", fmt.Sprintf("%f,%f", city.Lat, city.Lng))
		params.Set("radius", fmt.Sprintf("%d", g.radiusM))
		params.Set("type", searchType)
	}

	reqURL := fmt.Sprintf("%s/nearbysearch/json?%s", g.cfg.BaseURL, params.Encode())

	resp := &googleSearchResponse{}
	if err := g.client.getJSON(ctx, reqURL, nil, resp); err != nil {
		return nil, fmt.Errorf("nearby search failed: %w", err)
	}

	if resp.Status != "OK" && resp.Status != "ZERO_RESULTS" {
		return nil, fmt.Errorf("nearby search returned status %s: %s", resp.Status, resp.ErrorMessage)
	}
	return resp, nil
}

// mapPlace converts one raw Google result into a canonical draft.
func (g *GooglePlaces) mapPlace(p *googlePlace) models.Venue {
	address := p.Vicinity
	if address == "" {
		address = p.FormattedAddress
	}

	v := models.Venue{
		Name:     p.Name,
		Address:  address,
		Category: categoryFromGoogleTypes(p.Types),
		Rating:   p.Rating,
		Coordinates: &models.Coordinates{
			Lat: p.Geometry.Location.Lat,
			Lng: p.Geometry.Location.Lng,
		},
		Source: models.SourceRef{Name: googleSourceName, PlaceID: p.PlaceID},
	}

	if p.PriceLevel != nil {
		// Google uses 0 (free) through 4; clamp onto the 1-4 scale.
		level := *p.PriceLevel
		if level < 1 {
			level = 1
		}
		if level > 4 {
			level = 4
		}
		v.PriceLevel = &level
	}

	if len(p.Photos) > 0 && p.Photos[0].PhotoReference != "" {
		photoURL := fmt.Sprintf("%s/photo?maxwidth=800&photoreference=%s&key=%s",
			g.cfg.BaseURL, url.QueryEscape(p.Photos[0].PhotoReference), url.QueryEscape(g.cfg.APIKey))
		v.ImageURL = &photoURL
	}

	return v
}

// enrichTopRated issues a Place Details call for up to googleDetailsLimit
// venues rated googleDetailsMinRating or better. Enrichment failures degrade
// to the un-enriched draft; they never abort the fetch.
func (g *GooglePlaces) enrichTopRated(ctx context.Context, venues []models.Venue) {
	enriched := 0
	for i := range venues {
		if enriched >= googleDetailsLimit {
			break
		}
		if venues[i].Rating == nil || *venues[i].Rating < googleDetailsMinRating {
			continue
		}

		details, err := g.placeDetails(ctx, venues[i].Source.PlaceID)
		if err != nil {
			logging.Warn().Err(err).
				Str("source", googleSourceName).
				Str("place_id", venues[i].Source.PlaceID).
				Msg("Place details enrichment failed, keeping base record")
			continue
		}

		if details.FormattedPhoneNumber != "" {
			phone := details.FormattedPhoneNumber
			venues[i].Phone = &phone
		}
		if details.Website != "" {
			website := details.Website
			venues[i].Website = &website
		}
		if hours := parseWeekdayText(details.OpeningHours.WeekdayText); len(hours) > 0 {
			venues[i].Hours = hours
		}
		enriched++
	}
}

// placeDetails issues one Place Details request for enrichment fields only.
func (g *GooglePlaces) placeDetails(ctx context.Context, placeID string) (*googleDetails, error) {
	params := url.Values{}
	params.Set("key", g.cfg.APIKey)
	params.Set("place_id", placeID)
	params.Set("fields", "formatted_phone_number,website,opening_hours")

	reqURL := fmt.Sprintf("%s/details/json?%s", g.cfg.BaseURL, params.Encode())

	resp := &googleDetailsResponse{}
	if err := g.client.getJSON(ctx, reqURL, nil, resp); err != nil {
		return nil, err
	}
	if resp.Status != "OK" {
		return nil, fmt.Errorf("place details returned status %s", resp.Status)
	}
	return &resp.Result, nil
}

// categoryFromGoogleTypes returns the first mapped type, or restaurant when
// nothing in the type array is recognized.
func categoryFromGoogleTypes(types []string) models.Category {
	for _, t := range types {
		if cat, ok := googleTypeCategories[t]; ok {
			return cat
		}
	}
	return models.CategoryRestaurant
}

// weekdayNames maps the English day prefix of a weekday_text line to the
// canonical weekday key.
var weekdayNames = map[string]models.Weekday{
	"monday":    models.Monday,
	"tuesday":   models.Tuesday,
	"wednesday": models.Wednesday,
	"thursday":  models.Thursday,
	"friday":    models.Friday,
	"saturday":  models.Saturday,
	"sunday":    models.Sunday,
}

// parseWeekdayText parses Google's weekday_text lines, e.g.
//
//	"Monday: 11:00 AM – 10:00 PM"
//	"Tuesday: Closed"
//
// into the canonical hours map. "Closed" and unparseable ranges are recorded
// as a present weekday with no open/close (unknown/closed), never an error.
func parseWeekdayText(lines []string) map[models.Weekday]models.DayHours {
	if len(lines) == 0 {
		return nil
	}

	hours := make(map[models.Weekday]models.DayHours, len(lines))
	for _, line := range lines {
		day, spec, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		weekday, ok := weekdayNames[strings.ToLower(strings.TrimSpace(day))]
		if !ok {
			continue
		}

		open, closeTime, ok := parseHoursRange(strings.TrimSpace(spec))
		if !ok {
			hours[weekday] = models.DayHours{}
			continue
		}
		hours[weekday] = models.DayHours{Open: &open, Close: &closeTime}
	}
	return hours
}

// parseHoursRange parses "11:00 AM – 10:00 PM" (en dash or hyphen) into
// 24-hour "HH:MM" strings. Returns ok=false for "Closed" or anything it
// cannot parse.
func parseHoursRange(spec string) (open, closeTime string, ok bool) {
	sep := "–" // Google uses an en dash
	if !strings.Contains(spec, sep) {
		sep = "-"
	}
	parts := strings.SplitN(spec, sep, 2)
	if len(parts) != 2 {
		return "", "", false
	}

	open, ok = parse12Hour(strings.TrimSpace(parts[0]))
	if !ok {
		return "", "", false
	}
	closeTime, ok = parse12Hour(strings.TrimSpace(parts[1]))
	if !ok {
		return "", "", false
	}
	return open, closeTime, true
}

// parse12Hour converts "11:00 AM" or "10:00 PM" to "11:00" / "22:00".
// Google occasionally emits a narrow no-break space before AM/PM; normalize
// whitespace before parsing.
func parse12Hour(s string) (string, bool) {
	s = strings.Join(strings.Fields(strings.ReplaceAll(s, "\u202f", " ")), " ")
	for _, layout := range []string{"3:04 PM", "3:04PM", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04"), true
		}
	}
	return "", false
}
