// Venuescope - Multi-Source Venue Aggregation and Deduplication
// Copyright 2026 Venuescope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venuescope/venuescope

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/venuescope/venuescope/internal/logging"
	"github.com/venuescope/venuescope/internal/models"
)

// respondJSON sends a JSON response with proper headers.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondSuccess wraps data in the standard envelope.
func respondSuccess(w http.ResponseWriter, status int, data interface{}, start time.Time) {
	respondJSON(w, status, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().Str("code", code).Err(err).Msg("API error")
	}

	respondJSON(w, status, &models.APIResponse{
		Status: "error",
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
		},
		Error: &models.APIError{
			Code:    code,
			Message: message,
		},
	})
}

// getIntParam extracts an integer query parameter with a default value.
func getIntParam(r *http.Request, name string, defaultValue int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return value
}
