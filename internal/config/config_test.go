// Venuescope - Multi-Source Venue Aggregation and Deduplication
// Copyright 2026 Venuescope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venuescope/venuescope

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, 6000, cfg.Aggregate.SearchRadiusM)
	assert.Equal(t, 5*time.Second, cfg.Aggregate.InterCityDelay)
	assert.Empty(t, cfg.Google.APIKey, "no provider credentials by default")
	assert.Empty(t, cfg.Foursquare.APIKey)
	assert.Empty(t, cfg.Yelp.APIKey)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid defaults",
			mutate:  func(*Config) {},
			wantErr: "",
		},
		{
			name:    "port too low",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "server.port",
		},
		{
			name:    "port too high",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "server.port",
		},
		{
			name:    "empty database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name:    "negative interval",
			mutate:  func(c *Config) { c.Aggregate.Interval = -time.Hour },
			wantErr: "aggregate.interval",
		},
		{
			name:    "radius too small",
			mutate:  func(c *Config) { c.Aggregate.SearchRadiusM = 100 },
			wantErr: "aggregate.search_radius_m",
		},
		{
			name:    "default page size above max",
			mutate:  func(c *Config) { c.API.DefaultPageSize = 500 },
			wantErr: "api.default_page_size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		env      string
		expected string
	}{
		{"GOOGLE_PLACES_API_KEY", "google.api_key"},
		{"FOURSQUARE_API_KEY", "foursquare.api_key"},
		{"YELP_API_KEY", "yelp.api_key"},
		{"DUCKDB_PATH", "database.path"},
		{"HTTP_PORT", "server.port"},
		{"AGGREGATION_INTERVAL", "aggregate.interval"},
		{"LOG_LEVEL", "logging.level"},
		{"PATH", ""},     // stray env vars are skipped
		{"HOME", ""},
		{"RANDOM_VAR", ""},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, envTransformFunc(tt.env))
		})
	}
}

func TestLoadWithKoanfEnvOverride(t *testing.T) {
	t.Setenv("YELP_API_KEY", "yelp-secret")
	t.Setenv("HTTP_PORT", "9191")
	t.Setenv("SEARCH_RADIUS_METERS", "8000")

	cfg, err := LoadWithKoanf()
	require.NoError(t, err)

	assert.Equal(t, "yelp-secret", cfg.Yelp.APIKey)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, 8000, cfg.Aggregate.SearchRadiusM)
	// Untouched settings keep their defaults.
	assert.Equal(t, "https://api.yelp.com/v3", cfg.Yelp.BaseURL)
}
