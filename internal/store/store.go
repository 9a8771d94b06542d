// Venuescope - Multi-Source Venue Aggregation and Deduplication
// Copyright 2026 Venuescope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venuescope/venuescope

/*
store.go - DuckDB-Backed Venue Store

Owns the DuckDB connection and schema for the two persistent tables:

  - cities: the city registry consumed by the orchestrator
  - venues: persisted venue rows, at most one per real-world venue per city

Hours and features are stored as JSON text columns; coordinates as nullable
DOUBLE pairs so that absence survives a round trip.
*/
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/venuescope/venuescope/internal/config"
	"github.com/venuescope/venuescope/internal/logging"
)

// ErrCityNotFound is returned by GetCity for an unknown city ID. The
// orchestrator treats it as fatal for the run.
var ErrCityNotFound = errors.New("city not found")

// Store wraps the DuckDB connection and provides venue and city data access.
type Store struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// New opens (or creates) the DuckDB database and initializes the schema.
func New(cfg *config.DatabaseConfig) (*Store, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	// Ensure the parent directory exists for the database file.
	dbDir := filepath.Dir(cfg.Path)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
		}
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s",
		cfg.Path, numThreads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{conn: conn, cfg: cfg}
	s.configureConnectionPool()

	if err := s.createTables(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Info().Str("path", cfg.Path).Msg("Database opened")
	return s, nil
}

func (s *Store) configureConnectionPool() {
	s.conn.SetMaxOpenConns(runtime.NumCPU())
	s.conn.SetMaxIdleConns(2)
	s.conn.SetConnMaxLifetime(time.Hour)
	s.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// createTables creates the schema if it does not exist yet.
func (s *Store) createTables() error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	queries := []string{
		`CREATE TABLE IF NOT EXISTS cities (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			lat DOUBLE NOT NULL,
			lng DOUBLE NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS venues (
			id UUID PRIMARY KEY,
			city_id TEXT NOT NULL,
			name TEXT NOT NULL,
			address TEXT NOT NULL,
			category TEXT NOT NULL,
			cuisine TEXT,
			price_level INTEGER NOT NULL DEFAULT 2,
			rating DOUBLE,
			lat DOUBLE,
			lng DOUBLE,
			hours TEXT,
			features TEXT NOT NULL DEFAULT '[]',
			image_url TEXT,
			phone TEXT,
			website TEXT,
			description TEXT,
			provenance TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,

		// The persister's existence check filters by city and matches on
		// name or coordinates.
		`CREATE INDEX IF NOT EXISTS idx_venues_city ON venues(city_id)`,
		`CREATE INDEX IF NOT EXISTS idx_venues_city_name ON venues(city_id, name)`,
	}

	for _, query := range queries {
		if _, err := s.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

// ensureContext creates a context with a 30-second timeout if none provided.
func (s *Store) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), 30*time.Second)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, 30*time.Second)
	}
	return ctx, func() {}
}

// Ping checks whether the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	if s.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return s.conn.PingContext(ctx)
}

// Close checkpoints the WAL and closes the connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := s.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
	}

	return s.conn.Close()
}

func closeQuietly(c interface{ Close() error }) {
	if err := c.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close database connection")
	}
}
