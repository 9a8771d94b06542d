// Venuescope - Multi-Source Venue Aggregation and Deduplication
// Copyright 2026 Venuescope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venuescope/venuescope

/*
venues.go - Venue Row CRUD

Implements the relational contract consumed by the persister:
FindByNameOrCoordinates, InsertVenue and UpdateVenue, plus the read paths
used by the HTTP API.
*/
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/venuescope/venuescope/internal/models"
)

// coordMatchEpsilon is the coordinate tolerance of the existence check,
// roughly 10 meters in latitude.
const coordMatchEpsilon = 0.0001

const venueColumns = `id, city_id, name, address, category, cuisine, price_level, rating,
	lat, lng, hours, features, image_url, phone, website, description, provenance,
	created_at, updated_at`

// ErrVenueNotFound is returned by GetVenue for an unknown venue ID.
var ErrVenueNotFound = errors.New("venue not found")

// FindByNameOrCoordinates looks for an existing row in the city that matches
// the draft either by case-insensitive exact name, or, when coords is non-nil,
// by stored coordinates within coordMatchEpsilon on both axes. Returns
// (nil, nil) when no row matches.
func (s *Store) FindByNameOrCoordinates(ctx context.Context, cityID, name string, coords *models.Coordinates) (*models.StoredVenue, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM venues
		WHERE city_id = ? AND lower(name) = lower(?) LIMIT 1`, venueColumns)
	args := []interface{}{cityID, name}

	if coords != nil {
		query = fmt.Sprintf(`SELECT %s FROM venues
			WHERE city_id = ? AND (lower(name) = lower(?)
				OR (lat IS NOT NULL AND lng IS NOT NULL
					AND abs(lat - ?) <= ? AND abs(lng - ?) <= ?))
			LIMIT 1`, venueColumns)
		args = []interface{}{cityID, name, coords.Lat, coordMatchEpsilon, coords.Lng, coordMatchEpsilon}
	}

	venue, err := scanVenue(s.conn.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find venue: %w", err)
	}
	return venue, nil
}

// InsertVenue inserts a new venue row.
func (s *Store) InsertVenue(ctx context.Context, v *models.StoredVenue) error {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	hoursJSON, err := marshalHours(v.Hours)
	if err != nil {
		return fmt.Errorf("failed to encode hours: %w", err)
	}
	featuresJSON, err := marshalFeatures(v.Features)
	if err != nil {
		return fmt.Errorf("failed to encode features: %w", err)
	}

	var lat, lng interface{}
	if v.Coordinates != nil {
		lat, lng = v.Coordinates.Lat, v.Coordinates.Lng
	}

	_, err = s.conn.ExecContext(ctx, `INSERT INTO venues (`+venueColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.CityID, v.Name, v.Address, string(v.Category),
		v.Cuisine, v.PriceLevel, v.Rating,
		lat, lng, hoursJSON, featuresJSON,
		v.ImageURL, v.Phone, v.Website, v.Description, v.Provenance,
		v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert venue: %w", err)
	}
	return nil
}

// VenueUpdate carries the partial field set the persister may refresh on an
// existing row. Nil fields are left untouched.
type VenueUpdate struct {
	Rating   *float64
	Phone    *string
	Website  *string
	Hours    map[models.Weekday]models.DayHours
	Features []string
	ImageURL *string
}

// UpdateVenue applies the non-nil fields of update to the row and bumps the
// update timestamp.
func (s *Store) UpdateVenue(ctx context.Context, id uuid.UUID, update *VenueUpdate) error {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	var sets []string
	var args []interface{}

	if update.Rating != nil {
		sets = append(sets, "rating = ?")
		args = append(args, *update.Rating)
	}
	if update.Phone != nil {
		sets = append(sets, "phone = ?")
		args = append(args, *update.Phone)
	}
	if update.Website != nil {
		sets = append(sets, "website = ?")
		args = append(args, *update.Website)
	}
	if update.Hours != nil {
		hoursJSON, err := marshalHours(update.Hours)
		if err != nil {
			return fmt.Errorf("failed to encode hours: %w", err)
		}
		sets = append(sets, "hours = ?")
		args = append(args, hoursJSON)
	}
	if update.Features != nil {
		featuresJSON, err := marshalFeatures(update.Features)
		if err != nil {
			return fmt.Errorf("failed to encode features: %w", err)
		}
		sets = append(sets, "features = ?")
		args = append(args, featuresJSON)
	}
	if update.ImageURL != nil {
		sets = append(sets, "image_url = ?")
		args = append(args, *update.ImageURL)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC())
	args = append(args, id)

	query := fmt.Sprintf("UPDATE venues SET %s WHERE id = ?", strings.Join(sets, ", "))
	if _, err := s.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update venue: %w", err)
	}
	return nil
}

// GetVenue fetches a single venue row by ID.
func (s *Store) GetVenue(ctx context.Context, id uuid.UUID) (*models.StoredVenue, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	query := fmt.Sprintf("SELECT %s FROM venues WHERE id = ?", venueColumns)
	venue, err := scanVenue(s.conn.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrVenueNotFound, id)
		}
		return nil, fmt.Errorf("failed to get venue: %w", err)
	}
	return venue, nil
}

// VenueFilter narrows and pages ListVenues results.
type VenueFilter struct {
	CityID   string
	Category models.Category
	Limit    int
	Offset   int
}

// ListVenues returns venue rows matching the filter, ordered by rating
// (highest first, unrated last) then name.
func (s *Store) ListVenues(ctx context.Context, filter VenueFilter) ([]models.StoredVenue, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	var conditions []string
	var args []interface{}
	if filter.CityID != "" {
		conditions = append(conditions, "city_id = ?")
		args = append(args, filter.CityID)
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, string(filter.Category))
	}

	query := fmt.Sprintf("SELECT %s FROM venues", venueColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY rating DESC NULLS LAST, name"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list venues: %w", err)
	}
	defer rows.Close()

	var venues []models.StoredVenue
	for rows.Next() {
		venue, err := scanVenue(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan venue: %w", err)
		}
		venues = append(venues, *venue)
	}
	return venues, rows.Err()
}

// CountVenues counts venue rows, optionally restricted to one city.
func (s *Store) CountVenues(ctx context.Context, cityID string) (int64, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	var count int64
	var err error
	if cityID != "" {
		err = s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM venues WHERE city_id = ?", cityID).Scan(&count)
	} else {
		err = s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM venues").Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count venues: %w", err)
	}
	return count, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanVenue scans one venue row, decoding the JSON hours and features columns
// and re-assembling nullable coordinates.
func scanVenue(row rowScanner) (*models.StoredVenue, error) {
	var (
		v            models.StoredVenue
		category     string
		cuisine      sql.NullString
		rating       sql.NullFloat64
		lat, lng     sql.NullFloat64
		hoursJSON    sql.NullString
		featuresJSON string
		imageURL     sql.NullString
		phone        sql.NullString
		website      sql.NullString
		description  sql.NullString
		provenance   sql.NullString
	)

	err := row.Scan(&v.ID, &v.CityID, &v.Name, &v.Address, &category,
		&cuisine, &v.PriceLevel, &rating, &lat, &lng, &hoursJSON, &featuresJSON,
		&imageURL, &phone, &website, &description, &provenance,
		&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}

	v.Category = models.Category(category)
	v.Cuisine = nullableString(cuisine)
	v.ImageURL = nullableString(imageURL)
	v.Phone = nullableString(phone)
	v.Website = nullableString(website)
	v.Description = nullableString(description)
	if provenance.Valid {
		v.Provenance = provenance.String
	}
	if rating.Valid {
		v.Rating = &rating.Float64
	}
	if lat.Valid && lng.Valid {
		v.Coordinates = &models.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
	}

	if hoursJSON.Valid && hoursJSON.String != "" {
		if err := json.Unmarshal([]byte(hoursJSON.String), &v.Hours); err != nil {
			return nil, fmt.Errorf("failed to decode hours: %w", err)
		}
	}
	v.Features = []string{}
	if featuresJSON != "" {
		if err := json.Unmarshal([]byte(featuresJSON), &v.Features); err != nil {
			return nil, fmt.Errorf("failed to decode features: %w", err)
		}
	}

	return &v, nil
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	value := s.String
	return &value
}

// marshalHours encodes the hours map as JSON, or NULL when empty.
func marshalHours(hours map[models.Weekday]models.DayHours) (interface{}, error) {
	if len(hours) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(hours)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// marshalFeatures encodes the feature list as JSON, never NULL.
func marshalFeatures(features []string) (string, error) {
	if features == nil {
		features = []string{}
	}
	data, err := json.Marshal(features)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
