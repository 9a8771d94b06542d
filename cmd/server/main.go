// Venuescope - Multi-Source Venue Aggregation and Deduplication
// Copyright 2026 Venuescope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venuescope/venuescope

// Package main is the entry point for the Venuescope server.
//
// Venuescope aggregates venue data from multiple place-search APIs
// (Google Places, Foursquare, Yelp), deduplicates near-identical records
// across sources and persists one merged row per real-world venue.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Koanf v2 with layered sources (defaults, YAML file,
//     environment variables)
//  2. Database: DuckDB store holding the city registry and venue rows
//  3. Source adapters: one per configured provider; providers without an
//     API key are skipped at runtime, not at startup
//  4. Pipeline: the single-flight aggregation orchestrator, optionally
//     re-triggered on a fixed interval
//  5. HTTP server: trigger surface, read API, health and metrics
//
// # Configuration
//
// All settings come from environment variables or an optional config.yaml;
// see internal/config for the full key set. The minimum useful setup is one
// provider credential:
//
//	export GOOGLE_PLACES_API_KEY=your-key
//	export DUCKDB_PATH=data/venuescope.db
//	./venuescope
//
// Periodic aggregation is enabled by setting an interval:
//
//	export AGGREGATION_INTERVAL=12h
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger a graceful shutdown: the HTTP server stops
// accepting connections and in-flight requests get 10 seconds to finish
// before the store is closed.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/venuescope/venuescope/internal/api"
	"github.com/venuescope/venuescope/internal/config"
	"github.com/venuescope/venuescope/internal/logging"
	"github.com/venuescope/venuescope/internal/persist"
	"github.com/venuescope/venuescope/internal/pipeline"
	"github.com/venuescope/venuescope/internal/source"
	"github.com/venuescope/venuescope/internal/store"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Dur("interval", cfg.Aggregate.Interval).
		Msg("Starting Venuescope")

	db, err := store.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	if err := db.SeedCities(context.Background(), store.DefaultCities); err != nil {
		logging.Fatal().Err(err).Msg("Failed to seed city registry")
	}

	adapters := []source.Adapter{
		source.NewGooglePlaces(&cfg.Google, cfg.Aggregate.SearchRadiusM),
		source.NewFoursquare(&cfg.Foursquare, cfg.Aggregate.SearchRadiusM),
		source.NewYelp(&cfg.Yelp, cfg.Aggregate.SearchRadiusM),
	}
	for _, adapter := range adapters {
		logging.Info().
			Str("source", adapter.Name()).
			Bool("configured", adapter.Configured()).
			Msg("Source adapter registered")
	}

	persister := persist.New(db)
	p := pipeline.New(db, persister, adapters, cfg.Aggregate.InterCityDelay)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Aggregate.Interval > 0 {
		go p.Schedule(ctx, cfg.Aggregate.Interval)
	} else {
		logging.Info().Msg("Periodic aggregation disabled, runs are trigger-only")
	}

	router := api.NewRouter(api.NewHandler(p, db, &cfg.API))
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: 0, // aggregation triggers are long-running synchronous calls
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errCh:
		logging.Error().Err(err).Msg("HTTP server failed")
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("HTTP server shutdown error")
	}

	logging.Info().Msg("Application stopped gracefully")
}
