// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the GalleyTrack service configuration.
//
// Configuration is resolved from three layers, lowest precedence first:
//
//  1. Built-in defaults (safe for local development)
//  2. An optional galleytrack.yaml file in the working directory or /etc/galleytrack
//  3. Environment variables prefixed with GALLEYTRACK_ (dots become underscores,
//     e.g. server.port -> GALLEYTRACK_SERVER_PORT)
//
// The loader never fails on a missing config file; a missing file simply means
// defaults plus environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable of the gateway and its collaborators.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Warehouse WarehouseConfig `mapstructure:"warehouse"`
	Scripts   ScriptsConfig   `mapstructure:"scripts"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Workflow  WorkflowConfig  `mapstructure:"workflow"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port         string `mapstructure:"port"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// AuthConfig controls session token issuance.
//
// Secret must be overridden in any non-development deployment; the default
// exists only so a bare checkout can boot.
type AuthConfig struct {
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// WarehouseConfig is the operational-store connection string.
type WarehouseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// ScriptsConfig points at the external inventory capabilities.
//
// Both are executables that speak JSON on stdout; see services/provision.
type ScriptsConfig struct {
	FlightLookup string `mapstructure:"flight_lookup"`
	Validate     string `mapstructure:"validate"`
}

// OpenAIConfig configures the vision and assistant clients.
type OpenAIConfig struct {
	APIKey         string `mapstructure:"api_key"`
	VisionModel    string `mapstructure:"vision_model"`
	AssistantModel string `mapstructure:"assistant_model"`
}

// WorkflowConfig holds the orchestrator deadlines and display delays.
//
// Every external call made on behalf of a workflow is bounded by one of
// these deadlines; there is no automatic retry anywhere in the workflow.
type WorkflowConfig struct {
	LookupTimeout       time.Duration `mapstructure:"lookup_timeout"`
	VisionTimeout       time.Duration `mapstructure:"vision_timeout"`
	ValidationTimeout   time.Duration `mapstructure:"validation_timeout"`
	SuccessDisplayDelay time.Duration `mapstructure:"success_display_delay"`
	FailureDisplayDelay time.Duration `mapstructure:"failure_display_delay"`
	SessionIdleTTL      time.Duration `mapstructure:"session_idle_ttl"`
}

// DashboardConfig controls the background metrics refresher.
type DashboardConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// Load reads configuration from defaults, optional file, and environment.
//
// # Outputs
//
//   - *Config: Fully resolved configuration.
//   - error: Non-nil only if a config file exists but cannot be parsed.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", "3001")
	v.SetDefault("server.otlp_endpoint", "")
	v.SetDefault("auth.secret", "dev-only-secret-change-me")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("warehouse.dsn", "")
	v.SetDefault("scripts.flight_lookup", "./scripts/get_inventory.py")
	v.SetDefault("scripts.validate", "./scripts/validate_inventory.py")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.vision_model", "gpt-4o")
	v.SetDefault("openai.assistant_model", "gpt-4o-mini")
	v.SetDefault("workflow.lookup_timeout", 15*time.Second)
	v.SetDefault("workflow.vision_timeout", 60*time.Second)
	v.SetDefault("workflow.validation_timeout", 30*time.Second)
	v.SetDefault("workflow.success_display_delay", 3*time.Second)
	v.SetDefault("workflow.failure_display_delay", 5*time.Second)
	v.SetDefault("workflow.session_idle_ttl", 30*time.Minute)
	v.SetDefault("dashboard.refresh_interval", 30*time.Second)

	v.SetConfigName("galleytrack")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/galleytrack")

	v.SetEnvPrefix("GALLEYTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}
