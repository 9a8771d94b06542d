// Venuescope - Multi-Source Venue Aggregation and Deduplication
// Copyright 2026 Venuescope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venuescope/venuescope

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order
// of priority. The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/venuescope/config.yaml",
	"/etc/venuescope/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:    8090,
			Host:    "0.0.0.0",
			Timeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path:      "/data/venuescope.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		Aggregate: AggregateConfig{
			Interval:       0, // scheduler disabled unless configured
			InterCityDelay: 5 * time.Second,
			SearchRadiusM:  6000,
		},
		Google: GoogleConfig{
			APIKey:  "",
			BaseURL: "https://maps.googleapis.com/maps/api/place",
		},
		Foursquare: FoursquareConfig{
			APIKey:  "",
			BaseURL: "https://api.foursquare.com/v3",
		},
		Yelp: YelpConfig{
			APIKey:  "",
			BaseURL: "https://api.yelp.com/v3",
		},
		API: APIConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML config file (if exists)
//  3. Environment variables: override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	// GOOGLE_PLACES_API_KEY -> google.api_key, DUCKDB_PATH -> database.path
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc transforms environment variable names to koanf config
// paths. Only explicitly mapped variables are honored; everything else is
// skipped so stray environment variables cannot pollute the config.
//
// Examples:
//   - GOOGLE_PLACES_API_KEY -> google.api_key
//   - YELP_API_KEY          -> yelp.api_key
//   - DUCKDB_PATH           -> database.path
//   - HTTP_PORT             -> server.port
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Provider credentials and endpoints
		"google_places_api_key":  "google.api_key",
		"google_places_base_url": "google.base_url",
		"foursquare_api_key":     "foursquare.api_key",
		"foursquare_base_url":    "foursquare.base_url",
		"yelp_api_key":           "yelp.api_key",
		"yelp_base_url":          "yelp.base_url",

		// Database mappings
		"duckdb_path":       "database.path",
		"duckdb_max_memory": "database.max_memory",
		"duckdb_threads":    "database.threads",

		// Aggregation mappings
		"aggregation_interval": "aggregate.interval",
		"inter_city_delay":     "aggregate.inter_city_delay",
		"search_radius_meters": "aggregate.search_radius_m",

		// Server mappings
		"http_port":    "server.port",
		"http_host":    "server.host",
		"http_timeout": "server.timeout",

		// API mappings
		"api_default_page_size": "api.default_page_size",
		"api_max_page_size":     "api.max_page_size",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Unmapped keys are skipped.
	return ""
}
