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

// Package dedup remembers which submissions have already been published
// using Redis keys with a TTL. Report runs overlap by design (every run
// looks back a number of days), so the same submission comes back often.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL covers the longest lookback the tool is normally run with.
	DefaultTTL = 181 * 24 * time.Hour

	// keyPrefix namespaces dedup keys in Redis.
	keyPrefix = "submissions:published:"
)

// Filter tracks which submission IDs have already been published.
type Filter struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewFilter creates a dedup filter backed by Redis. A ttl of zero uses
// DefaultTTL.
func NewFilter(rdb redis.Cmdable, ttl time.Duration) *Filter {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Filter{
		rdb: rdb,
		ttl: ttl,
	}
}

// Key returns the Redis key for a submission ID.
func Key(submissionID string) string {
	return keyPrefix + submissionID
}

// IsNew returns true if the submission ID has NOT been seen before.
// If true, the ID is marked as seen atomically (SETNX).
func (f *Filter) IsNew(ctx context.Context, submissionID string) (bool, error) {
	set, err := f.rdb.SetNX(ctx, Key(submissionID), 1, f.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup SETNX: %w", err)
	}
	return set, nil
}

// Forget clears the mark for a submission ID, used when publishing fails
// after IsNew claimed it.
func (f *Filter) Forget(ctx context.Context, submissionID string) error {
	if err := f.rdb.Del(ctx, Key(submissionID)).Err(); err != nil {
		return fmt.Errorf("dedup DEL: %w", err)
	}
	return nil
}
