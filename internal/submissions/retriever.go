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

package submissions

import (
	"context"
	"slices"
	"time"

	"github.com/bcem/submissions/internal/models"
)

// Normalizer turns a raw submission into an export record.
// Implemented by normalize.Normalizer.
type Normalizer interface {
	Normalize(ctx context.Context, raw models.RawSubmission) models.CanonicalRecord
}

// Result is the outcome of a retrieval run.
type Result struct {
	Filter  string
	Records []models.CanonicalRecord
	// Partial is set when pagination stopped early on an error.
	Partial bool
}

// Retriever fetches, normalizes and orders submissions.
type Retriever struct {
	driver     *Driver
	normalizer Normalizer
	now        func() time.Time
}

// NewRetriever creates a retriever.
func NewRetriever(driver *Driver, normalizer Normalizer) *Retriever {
	return &Retriever{
		driver:     driver,
		normalizer: normalizer,
		now:        time.Now,
	}
}

// Run retrieves the submissions matching q. On a *RetrievalError the
// returned Result still holds every record fetched before the failure.
func (r *Retriever) Run(ctx context.Context, q Query) (*Result, error) {
	filter := BuildFilter(q, r.now())

	raw, fetchErr := r.driver.FetchAll(ctx, filter, q.PageSize)

	records := make([]models.CanonicalRecord, 0, len(raw))
	for _, s := range raw {
		records = append(records, r.normalizer.Normalize(ctx, s))
	}
	SortByCreatedDesc(records)

	return &Result{
		Filter:  filter,
		Records: records,
		Partial: fetchErr != nil,
	}, fetchErr
}

// SortByCreatedDesc orders records newest first. The sort is stable and
// records with an unparseable creation time go last.
func SortByCreatedDesc(records []models.CanonicalRecord) {
	slices.SortStableFunc(records, func(a, b models.CanonicalRecord) int {
		ta, errA := time.Parse(time.RFC3339, a.CreatedDateTime)
		tb, errB := time.Parse(time.RFC3339, b.CreatedDateTime)
		switch {
		case errA != nil && errB != nil:
			return 0
		case errA != nil:
			return 1
		case errB != nil:
			return -1
		}
		return tb.Compare(ta)
	})
}
