// Venuescope - Multi-Source Venue Aggregation and Deduplication
// Copyright 2026 Venuescope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venuescope/venuescope

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/venuescope/venuescope/internal/models"
)

// DefaultCities is the registry seeded into an empty database. IDs are stable
// slugs used in API paths; coordinates are the city-center search origin.
var DefaultCities = []models.City{
	{ID: "new-york", Name: "New York", Lat: 40.7128, Lng: -74.0060},
	{ID: "london", Name: "London", Lat: 51.5074, Lng: -0.1278},
	{ID: "berlin", Name: "Berlin", Lat: 52.5200, Lng: 13.4050},
	{ID: "paris", Name: "Paris", Lat: 48.8566, Lng: 2.3522},
	{ID: "tokyo", Name: "Tokyo", Lat: 35.6762, Lng: 139.6503},
	{ID: "san-francisco", Name: "San Francisco", Lat: 37.7749, Lng: -122.4194},
}

// SeedCities inserts or refreshes the given city registry entries.
func (s *Store) SeedCities(ctx context.Context, cities []models.City) error {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	query := `INSERT INTO cities (id, name, lat, lng) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, lat = excluded.lat, lng = excluded.lng`

	for _, city := range cities {
		if _, err := s.conn.ExecContext(ctx, query, city.ID, city.Name, city.Lat, city.Lng); err != nil {
			return fmt.Errorf("failed to seed city %s: %w", city.ID, err)
		}
	}
	return nil
}

// GetCity resolves a city registry entry by ID. Returns ErrCityNotFound for
// unknown IDs.
func (s *Store) GetCity(ctx context.Context, cityID string) (*models.City, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	city := &models.City{}
	err := s.conn.QueryRowContext(ctx,
		"SELECT id, name, lat, lng FROM cities WHERE id = ?", cityID).
		Scan(&city.ID, &city.Name, &city.Lat, &city.Lng)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrCityNotFound, cityID)
		}
		return nil, fmt.Errorf("failed to get city: %w", err)
	}
	return city, nil
}

// ListCities returns all city registry entries ordered by name.
func (s *Store) ListCities(ctx context.Context) ([]models.City, error) {
	ctx, cancel := s.ensureContext(ctx)
	defer cancel()

	rows, err := s.conn.QueryContext(ctx, "SELECT id, name, lat, lng FROM cities ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list cities: %w", err)
	}
	defer rows.Close()

	var cities []models.City
	for rows.Next() {
		var city models.City
		if err := rows.Scan(&city.ID, &city.Name, &city.Lat, &city.Lng); err != nil {
			return nil, fmt.Errorf("failed to scan city: %w", err)
		}
		cities = append(cities, city)
	}
	return cities, rows.Err()
}
