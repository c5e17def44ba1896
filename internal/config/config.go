// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads configuration from config.yaml and environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when neither --config nor CONFIG_PATH is set.
const DefaultPath = "config.yaml"

// TenantConfig holds the app registration used to call Graph.
type TenantConfig struct {
	Alias        string
	TenantID     string
	ClientID     string
	ClientSecret string
}

// Config holds all configuration for the report tool.
type Config struct {
	Tenant TenantConfig

	// Graph
	GraphBaseURL  string
	AuthorityHost string
	HTTPTimeout   time.Duration
	PageSize      int

	// Mailbox lookup pacing
	LookupRatePerSecond float64
	LookupBurst         int

	// Redis (optional publish sink)
	RedisURL         string
	SubmissionsQueue string

	LogLevel slog.Level
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Tenant struct {
		Alias        string `yaml:"alias"`
		TenantID     string `yaml:"tenant_id"`
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
	} `yaml:"tenant"`
	Graph struct {
		BaseURL       string `yaml:"base_url"`
		AuthorityHost string `yaml:"authority_host"`
		Timeout       string `yaml:"timeout"`
		PageSize      int    `yaml:"page_size"`
	} `yaml:"graph"`
	Lookup struct {
		RatePerSecond float64 `yaml:"rate_per_second"`
		Burst         int     `yaml:"burst"`
	} `yaml:"lookup"`
	Redis struct {
		URL    string `yaml:"url"`
		Queues struct {
			Submissions string `yaml:"submissions"`
		} `yaml:"queues"`
	} `yaml:"redis"`
	LogLevel string `yaml:"log_level"`
}

// Load reads configuration from path (with ${VAR} expansion) and fills
// anything the file leaves empty from environment variables. A missing
// file is not an error: the tool can run from environment alone.
func Load(path string) (*Config, error) {
	if path == "" {
		path = envOrDefault("CONFIG_PATH", DefaultPath)
	}

	var raw rawConfig

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Debug("config file not found, using environment only", "path", path)
	case err != nil:
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	default:
		// Expand ${VAR} references in the YAML
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
			return nil, fmt.Errorf("parse config YAML: %w", err)
		}
	}

	timeout, err := parseDuration(raw.Graph.Timeout, envOrDefaultDuration("GRAPH_TIMEOUT", 60*time.Second))
	if err != nil {
		return nil, fmt.Errorf("graph.timeout: %w", err)
	}

	cfg := &Config{
		Tenant: TenantConfig{
			Alias:        firstNonEmpty(raw.Tenant.Alias, os.Getenv("TENANT_ALIAS")),
			TenantID:     firstNonEmpty(raw.Tenant.TenantID, os.Getenv("AZURE_TENANT_ID")),
			ClientID:     firstNonEmpty(raw.Tenant.ClientID, os.Getenv("AZURE_CLIENT_ID")),
			ClientSecret: firstNonEmpty(raw.Tenant.ClientSecret, os.Getenv("AZURE_CLIENT_SECRET")),
		},
		GraphBaseURL:        firstNonEmpty(raw.Graph.BaseURL, envOrDefault("GRAPH_BASE_URL", "https://graph.microsoft.com/beta")),
		AuthorityHost:       firstNonEmpty(raw.Graph.AuthorityHost, envOrDefault("AUTHORITY_HOST", "https://login.microsoftonline.com")),
		HTTPTimeout:         timeout,
		PageSize:            firstPositive(raw.Graph.PageSize, envOrDefaultInt("PAGE_SIZE", 100)),
		LookupRatePerSecond: raw.Lookup.RatePerSecond,
		LookupBurst:         firstPositive(raw.Lookup.Burst, envOrDefaultInt("LOOKUP_BURST", 1)),
		RedisURL:            firstNonEmpty(raw.Redis.URL, os.Getenv("REDIS_URL")),
		SubmissionsQueue:    firstNonEmpty(raw.Redis.Queues.Submissions, envOrDefault("SUBMISSIONS_QUEUE", "submissions")),
	}

	if cfg.LookupRatePerSecond <= 0 {
		cfg.LookupRatePerSecond = envOrDefaultFloat("LOOKUP_RATE", 4)
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(firstNonEmpty(raw.LogLevel, envOrDefault("LOG_LEVEL", "info")))); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	if err := cfg.Tenant.validate(); err != nil {
		return nil, err
	}

	if cfg.Tenant.Alias == "" {
		cfg.Tenant.Alias = cfg.Tenant.TenantID[:min(8, len(cfg.Tenant.TenantID))] // Use first 8 chars of tenant ID as fallback
	}

	return cfg, nil
}

func (t TenantConfig) validate() error {
	var missing []string
	if t.TenantID == "" {
		missing = append(missing, "tenant_id")
	}
	if t.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if t.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if len(missing) > 0 {
		return fmt.Errorf("tenant credentials incomplete, missing %s (set them in config.yaml or AZURE_* environment variables)",
			strings.Join(missing, ", "))
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func parseDuration(v string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(v) == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
