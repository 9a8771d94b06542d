// Venuescope - Multi-Source Venue Aggregation and Deduplication
// Copyright 2026 Venuescope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venuescope/venuescope

// Package config loads and validates application configuration using Koanf v2
// with layered sources: struct defaults, an optional YAML file, and
// environment variables (highest precedence).
package config

import (
	"fmt"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Aggregate  AggregateConfig  `koanf:"aggregate"`
	Google     GoogleConfig     `koanf:"google"`
	Foursquare FoursquareConfig `koanf:"foursquare"`
	Yelp       YelpConfig       `koanf:"yelp"`
	API        APIConfig        `koanf:"api"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port    int           `koanf:"port"`
	Host    string        `koanf:"host"`
	Timeout time.Duration `koanf:"timeout"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = use runtime.NumCPU()
}

// AggregateConfig controls pipeline scheduling and pacing.
type AggregateConfig struct {
	// Interval between scheduled full runs. 0 disables the scheduler.
	Interval time.Duration `koanf:"interval"`

	// InterCityDelay is the pause inserted between cities in a full run,
	// protecting upstream rate limits.
	InterCityDelay time.Duration `koanf:"inter_city_delay"`

	// SearchRadiusM is the nearby-search radius in meters passed to each
	// provider. Providers cap this at their own maximums.
	SearchRadiusM int `koanf:"search_radius_m"`
}

// GoogleConfig holds Google Places API settings.
// An empty APIKey means the source is not configured and is skipped at runtime.
type GoogleConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
}

// FoursquareConfig holds Foursquare Places API settings.
type FoursquareConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
}

// YelpConfig holds Yelp Fusion API settings.
type YelpConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
}

// APIConfig holds HTTP API pagination limits.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for invalid values. It is called by
// LoadWithKoanf after all layers are applied.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Aggregate.Interval < 0 {
		return fmt.Errorf("aggregate.interval must not be negative, got %s", c.Aggregate.Interval)
	}
	if c.Aggregate.InterCityDelay < 0 {
		return fmt.Errorf("aggregate.inter_city_delay must not be negative, got %s", c.Aggregate.InterCityDelay)
	}
	if c.Aggregate.SearchRadiusM < 1000 || c.Aggregate.SearchRadiusM > 50000 {
		return fmt.Errorf("aggregate.search_radius_m must be between 1000 and 50000, got %d", c.Aggregate.SearchRadiusM)
	}
	if c.API.DefaultPageSize < 1 || c.API.DefaultPageSize > c.API.MaxPageSize {
		return fmt.Errorf("api.default_page_size must be between 1 and api.max_page_size (%d), got %d",
			c.API.MaxPageSize, c.API.DefaultPageSize)
	}
	return nil
}
