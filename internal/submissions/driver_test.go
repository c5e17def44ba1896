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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcem/submissions/internal/graph"
)

// --- Test helpers ---

// pageOf builds n submission stubs numbered from start.
func pageOf(start, n int) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, n)
	for i := start; i < start+n; i++ {
		out = append(out, map[string]interface{}{
			"id":              fmt.Sprintf("sub-%03d", i),
			"createdDateTime": "2026-03-10T15:00:00Z",
			"source":          "user",
		})
	}
	return out
}

// pagedServer serves sizes[i] records for page i, linking each page to the
// next. A status in failAt replaces the page at that index.
func pagedServer(t *testing.T, sizes []int, failAt map[int]int) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(&calls, 1)) - 1

		if status, ok := failAt[n]; ok {
			w.WriteHeader(status)
			w.Write([]byte(`{"error": {"code": "failed"}}`))
			return
		}
		if n >= len(sizes) {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		start := 0
		for _, s := range sizes[:n] {
			start += s
		}

		body := map[string]interface{}{"value": pageOf(start, sizes[n])}
		if n < len(sizes)-1 {
			body["@odata.nextLink"] = fmt.Sprintf("http://%s/page%d", r.Host, n+2)
		}

		w.Header().Set("Content-Type", "application/json")
		data, _ := json.Marshal(body)
		w.Write(data)
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

// TestFetchAll_Pagination verifies every page is followed and records keep
// their encounter order.
func TestFetchAll_Pagination(t *testing.T) {
	server, calls := pagedServer(t, []int{100, 100, 37}, nil)

	var progress []int
	d := NewDriver(graph.NewClient(server.Client(), server.URL), func(count int) {
		progress = append(progress, count)
	})

	records, err := d.FetchAll(context.Background(), "source eq 'user'", 100)
	require.NoError(t, err)

	require.Len(t, records, 237)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
	assert.Equal(t, []int{100, 200, 237}, progress)

	for i, r := range records {
		assert.Equal(t, fmt.Sprintf("sub-%03d", i), r.ID)
	}
}

// TestFetchAll_PartialFailure verifies records from earlier pages survive a
// failed page and the failure is reported as a RetrievalError.
func TestFetchAll_PartialFailure(t *testing.T) {
	server, calls := pagedServer(t, []int{100, 100}, map[int]int{1: http.StatusInternalServerError})

	d := NewDriver(graph.NewClient(server.Client(), server.URL), nil)

	records, err := d.FetchAll(context.Background(), "source eq 'user'", 100)
	require.Error(t, err)

	assert.Len(t, records, 100)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls), "failed page must not be retried")

	var retrievalErr *RetrievalError
	require.True(t, errors.As(err, &retrievalErr))
	assert.Equal(t, 2, retrievalErr.Page)

	var statusErr *graph.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
}

func TestFetchAll_FirstPageUnauthorized(t *testing.T) {
	server, _ := pagedServer(t, []int{10}, map[int]int{0: http.StatusUnauthorized})

	d := NewDriver(graph.NewClient(server.Client(), server.URL), nil)

	records, err := d.FetchAll(context.Background(), "source eq 'user'", 100)
	require.Error(t, err)
	assert.Empty(t, records)

	var retrievalErr *RetrievalError
	require.True(t, errors.As(err, &retrievalErr))
	assert.Equal(t, 1, retrievalErr.Page)
}

// TestFetchAll_InitialRequest verifies the path, $filter and $top of the
// first request.
func TestFetchAll_InitialRequest(t *testing.T) {
	var gotPath, gotFilter, gotTop string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotFilter = r.URL.Query().Get("$filter")
		gotTop = r.URL.Query().Get("$top")
		w.Write([]byte(`{"value": []}`))
	}))
	defer server.Close()

	d := NewDriver(graph.NewClient(server.Client(), server.URL), nil)

	records, err := d.FetchAll(context.Background(), "source eq 'user' and category eq 'spam'", 0)
	require.NoError(t, err)
	assert.Empty(t, records)

	assert.Equal(t, "/security/threatSubmission/emailThreats", gotPath)
	assert.Equal(t, "source eq 'user' and category eq 'spam'", gotFilter)
	assert.Equal(t, "100", gotTop)
}

func TestFetchAll_MalformedPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value": [{"id": `))
	}))
	defer server.Close()

	d := NewDriver(graph.NewClient(server.Client(), server.URL), nil)

	_, err := d.FetchAll(context.Background(), "source eq 'user'", 100)

	var retrievalErr *RetrievalError
	assert.True(t, errors.As(err, &retrievalErr))
}

func TestFetchAll_CancelledContext(t *testing.T) {
	server, calls := pagedServer(t, []int{5}, nil)
	d := NewDriver(graph.NewClient(server.Client(), server.URL), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.FetchAll(ctx, "source eq 'user'", 100)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestRetrievalError_Message(t *testing.T) {
	err := &RetrievalError{Page: 3, Err: errors.New("boom")}
	assert.Equal(t, "fetch submissions page 3: boom", err.Error())
}
