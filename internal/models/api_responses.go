// Venuescope - Multi-Source Venue Aggregation and Deduplication
// Copyright 2026 Venuescope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venuescope/venuescope

package models

import "time"

// APIResponse is the standard envelope for all HTTP API responses.
type APIResponse struct {
	Status   string      `json:"status"` // "success" or "error"
	Data     interface{} `json:"data,omitempty"`
	Error    *APIError   `json:"error,omitempty"`
	Metadata Metadata    `json:"metadata"`
}

// APIError carries a machine-readable code plus a human-readable message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Metadata contains response metadata for observability.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms"`
}

// RunStatus describes the orchestrator state as exposed by GET /status.
type RunStatus struct {
	IsRunning         bool            `json:"is_running"`
	LastRunTime       *time.Time      `json:"last_run_time,omitempty"`
	SourcesConfigured map[string]bool `json:"sources_configured"`
}

// RunSummary reports the outcome of a single pipeline run for one city.
type RunSummary struct {
	CityID     string        `json:"city_id"`
	City       string        `json:"city"`
	Fetched    int           `json:"fetched"`
	Unique     int           `json:"unique"`
	Inserted   int           `json:"inserted"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
}
