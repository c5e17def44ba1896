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
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bcem/submissions/internal/graph"
)

// Categories are the submission categories accepted as a filter.
var Categories = []string{"phishing", "spam", "malware", "notJunk"}

// Query describes which submissions to retrieve.
type Query struct {
	DaysBack                int
	Category                string // empty = all categories
	IncludeAdminSubmissions bool
	PageSize                int // $top hint; 0 = DefaultPageSize
}

// Validate checks the query before any request is made.
func (q Query) Validate() error {
	if q.DaysBack < 1 {
		return fmt.Errorf("days back must be at least 1, got %d", q.DaysBack)
	}
	if q.Category != "" && !slices.Contains(Categories, q.Category) {
		return fmt.Errorf("unknown category %q (want one of %s)", q.Category, strings.Join(Categories, ", "))
	}
	if q.PageSize < 0 {
		return fmt.Errorf("page size must not be negative, got %d", q.PageSize)
	}
	return nil
}

// BuildFilter composes the $filter expression for q relative to now.
// Clauses appear in a fixed order: source, creation lower bound, category.
func BuildFilter(q Query, now time.Time) string {
	source := "source eq " + graph.Literal("user")
	if q.IncludeAdminSubmissions {
		source = fmt.Sprintf("(%s or source eq %s)", source, graph.Literal("administrator"))
	}

	since := now.UTC().AddDate(0, 0, -q.DaysBack).Format(time.RFC3339)

	clauses := []string{
		source,
		"createdDateTime ge " + since,
	}
	if q.Category != "" {
		clauses = append(clauses, "category eq "+graph.Literal(q.Category))
	}

	return strings.Join(clauses, " and ")
}
