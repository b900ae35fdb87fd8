// Package config centralises runtime configuration for the tracker, loaded
// entirely from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort                  = "4000"
	defaultLogLevel              = "info"
	defaultMappingEndpoint       = "http://127.0.0.0:3000/api/mappings"
	defaultOddsEndpoint          = "http://127.0.0.1:3000/api/state"
	defaultOddsPollingIntervalMS = 100
)

// Settings contains the tracker configuration loaded from the environment.
type Settings struct {
	Port                 string
	LogLevel             string
	MappingEndpoint      string
	OddsEndpoint         string
	OddsPollingInterval  time.Duration
}

// FromEnv loads configuration values from environment variables, applying
// the defaults in spec §6.3 whenever a variable is unset or unparsable.
func FromEnv() Settings {
	cfg := Settings{
		Port:                defaultPort,
		LogLevel:            defaultLogLevel,
		MappingEndpoint:     defaultMappingEndpoint,
		OddsEndpoint:        defaultOddsEndpoint,
		OddsPollingInterval: defaultOddsPollingIntervalMS * time.Millisecond,
	}

	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		cfg.Port = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("MAPPING_ENDPOINT")); v != "" {
		cfg.MappingEndpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("ODDS_ENDPOINT")); v != "" {
		cfg.OddsEndpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("ODDS_POLLING_INTERVAL_MS")); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			cfg.OddsPollingInterval = time.Duration(ms) * time.Millisecond
		}
	}

	return cfg
}

// Addr returns the address the HTTP server should listen on.
func (s Settings) Addr() string {
	port := strings.TrimSpace(s.Port)
	if port == "" {
		port = defaultPort
	}
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}
