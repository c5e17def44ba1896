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

// Package submissions retrieves email threat submissions from the Graph
// security API, following @odata.nextLink pagination, and turns them into
// sorted canonical records.
package submissions

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/bcem/submissions/internal/graph"
	"github.com/bcem/submissions/internal/models"
)

const (
	// ResourcePath is the emailThreats collection under the Graph base URL.
	ResourcePath = "security/threatSubmission/emailThreats"

	// DefaultPageSize is the $top hint sent with the first request.
	DefaultPageSize = 100
)

// RetrievalError reports a page that could not be fetched. Records from
// earlier pages are returned alongside it.
type RetrievalError struct {
	Page int
	URL  string
	Err  error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("fetch submissions page %d: %v", e.Page, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// ProgressFunc is told the running record count after each page.
type ProgressFunc func(count int)

// submissionsPage is one page of the emailThreats list response.
type submissionsPage struct {
	Value    []models.RawSubmission `json:"value"`
	NextLink string                 `json:"@odata.nextLink"`
}

// Driver pages through the emailThreats collection.
type Driver struct {
	graph    *graph.Client
	progress ProgressFunc
}

// NewDriver creates a pagination driver. progress may be nil.
func NewDriver(g *graph.Client, progress ProgressFunc) *Driver {
	return &Driver{graph: g, progress: progress}
}

// FetchAll returns every submission matching filter, in the order the API
// returned them. If a page fails, the loop stops and the records gathered
// so far are returned with a *RetrievalError. Failed pages are not retried.
func (d *Driver) FetchAll(ctx context.Context, filter string, pageSize int) ([]models.RawSubmission, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	params := url.Values{}
	params.Set("$filter", filter)
	params.Set("$top", strconv.Itoa(pageSize))

	firstURL := d.graph.URL(ResourcePath, params.Encode())

	var records []models.RawSubmission
	pageCount := 0

	for nextURL := firstURL; nextURL != ""; {
		if err := ctx.Err(); err != nil {
			return records, &RetrievalError{Page: pageCount + 1, URL: nextURL, Err: err}
		}

		var page submissionsPage
		if err := d.graph.GetJSON(ctx, nextURL, &page); err != nil {
			slog.Error("submissions page failed",
				"page", pageCount+1,
				"records_so_far", len(records),
				"error", err,
			)
			return records, &RetrievalError{Page: pageCount + 1, URL: nextURL, Err: err}
		}
		pageCount++

		records = append(records, page.Value...)

		slog.Debug("submissions page fetched",
			"page", pageCount,
			"page_records", len(page.Value),
			"total", len(records),
		)

		if d.progress != nil {
			d.progress(len(records))
		}

		nextURL = page.NextLink
	}

	slog.Info("submissions retrieved",
		"records", len(records),
		"pages", pageCount,
	)

	return records, nil
}
