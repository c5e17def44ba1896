// Copyright (c) 2026 John Earle
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://github.com/yourusername/bcem/blob/main/LICENSE
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package graph provides a thin JSON client for the Microsoft Graph API.
// Authentication is handled by the *http.Client passed in.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultBaseURL is the Graph beta surface, which is where the
// threatSubmission resources live.
const DefaultBaseURL = "https://graph.microsoft.com/beta"

// maxErrorBody caps how much of an error response is kept for diagnostics.
const maxErrorBody = 4096

// Client issues GET requests against the Graph API and decodes JSON bodies.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a Graph client. An empty baseURL means DefaultBaseURL.
func NewClient(httpClient *http.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// BaseURL returns the root that relative resource paths are joined to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL joins a resource path and an encoded query string onto the base URL.
func (c *Client) URL(path, rawQuery string) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if rawQuery != "" {
		u += "?" + rawQuery
	}
	return u
}

// StatusError is returned for any non-2xx Graph response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("graph API returned HTTP %d: %s", e.StatusCode, e.Body)
}

// GetJSON fetches an absolute URL (a built resource URL or an
// @odata.nextLink) and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graph request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode graph response: %w", err)
	}

	return nil
}

// Literal renders s as a quoted OData string literal, doubling any single
// quotes so the value cannot terminate the literal early.
func Literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
