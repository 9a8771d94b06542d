// Venuescope - Multi-Source Venue Aggregation and Deduplication
// Copyright 2026 Venuescope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venuescope/venuescope

// Package source contains one adapter per upstream place-search provider
// (Google Places, Foursquare, Yelp). Each adapter performs authenticated,
// paginated fetches against its provider and maps the provider-specific JSON
// into canonical venue drafts. Pagination mechanics, rate limits and field
// names differ per provider and are encapsulated entirely inside that
// provider's adapter.
//
// Adapters never abort a pipeline run: a missing API key, a quota failure or
// an open circuit breaker degrades that source to an empty contribution and
// the run continues with the remaining sources.
package source

import (
	"context"
	"errors"

	"github.com/venuescope/venuescope/internal/models"
)

// ErrNotConfigured is returned by Fetch when the adapter has no API key.
// The orchestrator treats it as an empty contribution, not a failure.
var ErrNotConfigured = errors.New("source is not configured")

// Adapter is implemented by each upstream provider integration.
//
// Fetch resolves the city's coordinates into one or more nearby searches
// within the configured radius and returns canonical drafts. The category is
// optional; an empty value fetches the adapter's default mix. Fetch returns
// an error only for whole-source failures; per-record parse problems degrade
// to "unknown" field values instead.
type Adapter interface {
	Name() string
	Configured() bool
	Fetch(ctx context.Context, city models.City, category models.Category) ([]models.Venue, error)
}
