// Venuescope - Multi-Source Venue Aggregation and Deduplication
// Copyright 2026 Venuescope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venuescope/venuescope

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router assembles the HTTP surface.
type Router struct {
	handler *Handler
}

// NewRouter creates a Router around the given handler set.
func NewRouter(handler *Handler) *Router {
	return &Router{handler: handler}
}

// Setup wires all routes and middleware and returns the root handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Health and metrics stay outside the rate-limited API tree so that
	// monitoring is never throttled away.
	r.Route("/healthz", func(r chi.Router) {
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(120, time.Minute))

		r.Get("/status", router.handler.Status)
		r.Get("/venues", router.handler.Venues)
		r.Get("/cities", router.handler.Cities)

		// Aggregation triggers are expensive synchronous calls; keep their
		// budget tighter than the read endpoints.
		r.With(httprate.LimitByIP(10, time.Minute)).
			Post("/aggregate", router.handler.AggregateAll)
		r.With(httprate.LimitByIP(10, time.Minute)).
			Post("/aggregate/{cityID}", router.handler.AggregateCity)
	})

	return r
}
