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

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// clearEnv blanks every variable Load consults so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_PATH", "TENANT_ALIAS", "AZURE_TENANT_ID", "AZURE_CLIENT_ID", "AZURE_CLIENT_SECRET",
		"GRAPH_BASE_URL", "AUTHORITY_HOST", "GRAPH_TIMEOUT", "PAGE_SIZE",
		"LOOKUP_RATE", "LOOKUP_BURST", "REDIS_URL", "SUBMISSIONS_QUEUE", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_YAMLWithExpansion(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_CLIENT_SECRET", "s3cret")

	path := writeConfig(t, `
tenant:
  alias: contoso
  tenant_id: 11111111-2222-3333-4444-555555555555
  client_id: app-id
  client_secret: ${TEST_CLIENT_SECRET}
graph:
  base_url: https://graph.example.test/beta
  timeout: 15s
  page_size: 50
lookup:
  rate_per_second: 2.5
  burst: 3
redis:
  url: redis://localhost:6379/1
  queues:
    submissions: review
log_level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "contoso", cfg.Tenant.Alias)
	assert.Equal(t, "app-id", cfg.Tenant.ClientID)
	assert.Equal(t, "s3cret", cfg.Tenant.ClientSecret)
	assert.Equal(t, "https://graph.example.test/beta", cfg.GraphBaseURL)
	assert.Equal(t, "https://login.microsoftonline.com", cfg.AuthorityHost)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, 2.5, cfg.LookupRatePerSecond)
	assert.Equal(t, 3, cfg.LookupBurst)
	assert.Equal(t, "redis://localhost:6379/1", cfg.RedisURL)
	assert.Equal(t, "review", cfg.SubmissionsQueue)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoad_EnvironmentOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv("AZURE_TENANT_ID", "abcdef0123456789")
	t.Setenv("AZURE_CLIENT_ID", "app")
	t.Setenv("AZURE_CLIENT_SECRET", "secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "abcdef01", cfg.Tenant.Alias)
	assert.Equal(t, "https://graph.microsoft.com/beta", cfg.GraphBaseURL)
	assert.Equal(t, 60*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 100, cfg.PageSize)
	assert.Equal(t, 4.0, cfg.LookupRatePerSecond)
	assert.Equal(t, 1, cfg.LookupBurst)
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, "submissions", cfg.SubmissionsQueue)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoad_FileOverridesEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("AZURE_TENANT_ID", "from-env")
	t.Setenv("AZURE_CLIENT_ID", "from-env")
	t.Setenv("AZURE_CLIENT_SECRET", "from-env")

	path := writeConfig(t, `
tenant:
  client_id: from-file
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Tenant.ClientID)
	assert.Equal(t, "from-env", cfg.Tenant.TenantID)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing credentials", "graph:\n  page_size: 10\n", "client_secret"},
		{"bad yaml", "tenant: [unclosed", "parse config YAML"},
		{"bad timeout", "tenant:\n  tenant_id: t\n  client_id: c\n  client_secret: s\ngraph:\n  timeout: soon\n", "graph.timeout"},
		{"bad log level", "tenant:\n  tenant_id: t\n  client_id: c\n  client_secret: s\nlog_level: loud\n", "log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_ConfigPathFromEnvironment(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "tenant:\n  tenant_id: t\n  client_id: c\n  client_secret: s\n")
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "t", cfg.Tenant.Alias)
}
