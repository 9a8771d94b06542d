// Venuescope - Multi-Source Venue Aggregation and Deduplication
// Copyright 2026 Venuescope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venuescope/venuescope

/*
persist.go - Venue Persister

Upserts deduplicated venue drafts against the store. The existence check is
delegated to the store (case-insensitive name match within the city, or
coordinates within ~10 m); an existing row is refreshed field by field with a
fill-missing rule, a new row gets a fresh UUID and defaults.

A single record's failure never aborts the batch: the caller receives
inserted=false together with the error and decides to continue.
*/
package persist

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/venuescope/venuescope/internal/logging"
	"github.com/venuescope/venuescope/internal/metrics"
	"github.com/venuescope/venuescope/internal/models"
	"github.com/venuescope/venuescope/internal/store"
)

// VenueStore is the slice of the store the persister needs.
type VenueStore interface {
	FindByNameOrCoordinates(ctx context.Context, cityID, name string, coords *models.Coordinates) (*models.StoredVenue, error)
	InsertVenue(ctx context.Context, v *models.StoredVenue) error
	UpdateVenue(ctx context.Context, id uuid.UUID, update *store.VenueUpdate) error
}

// defaultPriceLevel is assumed when no source reported a price ("$$").
const defaultPriceLevel = 2

// Persister writes deduplicated drafts to the store.
type Persister struct {
	store VenueStore
}

// New creates a Persister on top of the given store.
func New(s VenueStore) *Persister {
	return &Persister{store: s}
}

// Upsert inserts draft as a new row or refreshes the matching existing row.
// Returns true when a new row was inserted. On error the record is skipped;
// the error is returned for the caller to log and count, never to abort the
// batch on.
func (p *Persister) Upsert(ctx context.Context, draft *models.Venue, cityID string) (bool, error) {
	existing, err := p.store.FindByNameOrCoordinates(ctx, cityID, draft.Name, draft.Coordinates)
	if err != nil {
		metrics.VenueUpsertErrors.Inc()
		return false, err
	}

	if existing != nil {
		if err := p.store.UpdateVenue(ctx, existing.ID, updateFromDraft(draft)); err != nil {
			metrics.VenueUpsertErrors.Inc()
			return false, err
		}
		metrics.VenuesUpdated.Inc()
		logging.Debug().
			Str("city_id", cityID).
			Str("venue", draft.Name).
			Str("matched", existing.Name).
			Msg("Updated existing venue")
		return false, nil
	}

	if err := p.store.InsertVenue(ctx, rowFromDraft(draft, cityID)); err != nil {
		metrics.VenueUpsertErrors.Inc()
		return false, err
	}
	metrics.VenuesInserted.Inc()
	logging.Debug().
		Str("city_id", cityID).
		Str("venue", draft.Name).
		Str("provenance", draft.Provenance).
		Msg("Inserted new venue")
	return true, nil
}

// updateFromDraft maps the draft onto the refreshable field set. Absent draft
// values stay nil so the store leaves the existing column untouched; present
// values win over whatever is stored.
func updateFromDraft(draft *models.Venue) *store.VenueUpdate {
	update := &store.VenueUpdate{
		Rating:   draft.Rating,
		Phone:    draft.Phone,
		Website:  draft.Website,
		ImageURL: draft.ImageURL,
	}
	if len(draft.Hours) > 0 {
		update.Hours = draft.Hours
	}
	if len(draft.Features) > 0 {
		update.Features = draft.Features
	}
	return update
}

// rowFromDraft builds a fresh row for insertion, applying defaults: price
// level 2 when no source reported one, an empty feature list and provenance
// falling back to the originating source.
func rowFromDraft(draft *models.Venue, cityID string) *models.StoredVenue {
	now := time.Now().UTC()

	priceLevel := defaultPriceLevel
	if draft.PriceLevel != nil {
		priceLevel = *draft.PriceLevel
	}

	features := draft.Features
	if features == nil {
		features = []string{}
	}

	provenance := draft.Provenance
	if provenance == "" {
		provenance = draft.Source.Name
	}

	return &models.StoredVenue{
		ID:          uuid.New(),
		CityID:      cityID,
		Name:        draft.Name,
		Address:     draft.Address,
		Category:    draft.Category,
		Cuisine:     draft.Cuisine,
		PriceLevel:  priceLevel,
		Rating:      draft.Rating,
		Coordinates: draft.Coordinates,
		Hours:       draft.Hours,
		Features:    features,
		ImageURL:    draft.ImageURL,
		Phone:       draft.Phone,
		Website:     draft.Website,
		Description: draft.Description,
		Provenance:  provenance,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
