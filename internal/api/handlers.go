// Venuescope - Multi-Source Venue Aggregation and Deduplication
// Copyright 2026 Venuescope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venuescope/venuescope

/*
handlers.go - HTTP API Handlers

The trigger surface over the aggregation pipeline plus read endpoints for
persisted venues and the city registry. Responses use the standard envelope
from models.APIResponse; response codes map to success or failure of the
call itself, not to partial per-record failures inside a run.
*/
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/venuescope/venuescope/internal/config"
	"github.com/venuescope/venuescope/internal/models"
	"github.com/venuescope/venuescope/internal/store"
)

// Orchestrator is the pipeline surface the handlers trigger.
type Orchestrator interface {
	RunForCity(ctx context.Context, cityID string, category models.Category) (*models.RunSummary, error)
	RunAll(ctx context.Context, category models.Category) ([]models.RunSummary, error)
	Status() models.RunStatus
}

// Reader is the store surface the read endpoints consume.
type Reader interface {
	ListVenues(ctx context.Context, filter store.VenueFilter) ([]models.StoredVenue, error)
	CountVenues(ctx context.Context, cityID string) (int64, error)
	ListCities(ctx context.Context) ([]models.City, error)
	Ping(ctx context.Context) error
}

// Handler holds the HTTP handler dependencies.
type Handler struct {
	orchestrator Orchestrator
	reader       Reader
	cfg          *config.APIConfig
}

// NewHandler creates the API handler set.
func NewHandler(orchestrator Orchestrator, reader Reader, cfg *config.APIConfig) *Handler {
	return &Handler{orchestrator: orchestrator, reader: reader, cfg: cfg}
}

// AggregateCity handles POST /api/v1/aggregate/{cityID}. It triggers a
// synchronous run for one city and reports the run summary. A run already in
// progress yields 409; an unknown city 404.
func (h *Handler) AggregateCity(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	cityID := chi.URLParam(r, "cityID")

	category := models.Category(r.URL.Query().Get("category"))
	if category != "" && !category.Valid() {
		respondError(w, http.StatusBadRequest, "INVALID_CATEGORY",
			"unknown category: "+string(category), nil)
		return
	}

	summary, err := h.orchestrator.RunForCity(r.Context(), cityID, category)
	if err != nil {
		if errors.Is(err, store.ErrCityNotFound) {
			respondError(w, http.StatusNotFound, "CITY_NOT_FOUND", err.Error(), nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "RUN_FAILED", "aggregation run failed", err)
		return
	}

	// A rejected run never resolves the city, so its name stays empty.
	if summary.City == "" {
		respondError(w, http.StatusConflict, "RUN_IN_PROGRESS",
			"an aggregation run is already in progress", nil)
		return
	}

	respondSuccess(w, http.StatusOK, summary, start)
}

// AggregateAll handles POST /api/v1/aggregate. It triggers a synchronous full
// run over every registered city.
func (h *Handler) AggregateAll(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	category := models.Category(r.URL.Query().Get("category"))
	if category != "" && !category.Valid() {
		respondError(w, http.StatusBadRequest, "INVALID_CATEGORY",
			"unknown category: "+string(category), nil)
		return
	}

	summaries, err := h.orchestrator.RunAll(r.Context(), category)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "RUN_FAILED", "aggregation run failed", err)
		return
	}
	if summaries == nil {
		respondError(w, http.StatusConflict, "RUN_IN_PROGRESS",
			"an aggregation run is already in progress", nil)
		return
	}

	respondSuccess(w, http.StatusOK, summaries, start)
}

// Status handles GET /api/v1/status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, http.StatusOK, h.orchestrator.Status(), time.Now())
}

// venuesResponse pages persisted venue rows.
type venuesResponse struct {
	Venues []models.StoredVenue `json:"venues"`
	Total  int64                `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

// Venues handles GET /api/v1/venues with optional city, category, limit and
// offset query parameters.
func (h *Handler) Venues(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	limit := getIntParam(r, "limit", h.cfg.DefaultPageSize)
	if limit < 1 || limit > h.cfg.MaxPageSize {
		limit = h.cfg.DefaultPageSize
	}
	offset := getIntParam(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	category := models.Category(r.URL.Query().Get("category"))
	if category != "" && !category.Valid() {
		respondError(w, http.StatusBadRequest, "INVALID_CATEGORY",
			"unknown category: "+string(category), nil)
		return
	}

	filter := store.VenueFilter{
		CityID:   r.URL.Query().Get("city"),
		Category: category,
		Limit:    limit,
		Offset:   offset,
	}

	venues, err := h.reader.ListVenues(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "failed to list venues", err)
		return
	}
	total, err := h.reader.CountVenues(r.Context(), filter.CityID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "failed to count venues", err)
		return
	}

	if venues == nil {
		venues = []models.StoredVenue{}
	}
	respondSuccess(w, http.StatusOK, venuesResponse{
		Venues: venues,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, start)
}

// Cities handles GET /api/v1/cities.
func (h *Handler) Cities(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	cities, err := h.reader.ListCities(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "failed to list cities", err)
		return
	}
	if cities == nil {
		cities = []models.City{}
	}
	respondSuccess(w, http.StatusOK, cities, start)
}

// HealthLive handles GET /healthz/live. Process liveness only.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]string{"status": "alive"}, time.Now())
}

// HealthReady handles GET /healthz/ready. Verifies the store is reachable.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.reader.Ping(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "database not reachable", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"status": "ready"}, time.Now())
}
