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

// Package auth builds an authenticated Graph HTTP client from an app
// registration using the OAuth2 client-credentials flow.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/bcem/submissions/internal/config"
)

const (
	// DefaultAuthorityHost is the Entra ID login endpoint.
	DefaultAuthorityHost = "https://login.microsoftonline.com"

	// GraphScope requests the app's granted Graph application permissions.
	GraphScope = "https://graph.microsoft.com/.default"
)

// ConnectionError means no token could be acquired for the tenant.
type ConnectionError struct {
	TenantID string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to tenant %s: %v", e.TenantID, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Options tunes the token endpoint and the returned client.
type Options struct {
	// AuthorityHost defaults to DefaultAuthorityHost.
	AuthorityHost string
	// Timeout applies to every request made with the returned client.
	Timeout time.Duration
	// Transport is the base round tripper. Defaults to an otelhttp
	// instrumented http.DefaultTransport.
	Transport http.RoundTripper
}

// TokenURL returns the v2.0 token endpoint for tenantID.
func TokenURL(authorityHost, tenantID string) string {
	if authorityHost == "" {
		authorityHost = DefaultAuthorityHost
	}
	return fmt.Sprintf("%s/%s/oauth2/v2.0/token", strings.TrimRight(authorityHost, "/"), tenantID)
}

// Connect acquires a token for tenant and returns an HTTP client that
// attaches it to every request, refreshing as needed. The first token is
// fetched eagerly so bad credentials fail here with a *ConnectionError
// rather than on the first Graph call.
func Connect(ctx context.Context, tenant config.TenantConfig, opts Options) (*http.Client, error) {
	transport := opts.Transport
	if transport == nil {
		transport = otelhttp.NewTransport(http.DefaultTransport)
	}
	base := &http.Client{Transport: transport, Timeout: opts.Timeout}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	creds := &clientcredentials.Config{
		ClientID:     tenant.ClientID,
		ClientSecret: tenant.ClientSecret,
		TokenURL:     TokenURL(opts.AuthorityHost, tenant.TenantID),
		Scopes:       []string{GraphScope},
	}

	ts := creds.TokenSource(ctx)
	if _, err := ts.Token(); err != nil {
		return nil, &ConnectionError{TenantID: tenant.TenantID, Err: err}
	}

	slog.Info("authenticated to tenant", "tenant", tenant.Alias)

	client := oauth2.NewClient(ctx, ts)
	client.Timeout = opts.Timeout
	return client, nil
}
