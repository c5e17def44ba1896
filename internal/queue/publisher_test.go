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

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcem/submissions/internal/models"
)

// fakeRedis records LPUSH calls. Other commands panic through the nil
// embedded interface.
type fakeRedis struct {
	redis.Cmdable
	pushed  map[string][]string
	pushErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{pushed: make(map[string][]string)}
}

func (f *fakeRedis) LPush(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	if f.pushErr != nil {
		return redis.NewIntResult(0, f.pushErr)
	}
	for _, v := range values {
		f.pushed[key] = append(f.pushed[key], v.(string))
	}
	return redis.NewIntResult(int64(len(f.pushed[key])), nil)
}

func (f *fakeRedis) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

// memorySeen is an in-memory dedup filter.
type memorySeen struct {
	seen      map[string]bool
	forgotten []string
}

func (m *memorySeen) IsNew(_ context.Context, id string) (bool, error) {
	if m.seen[id] {
		return false, nil
	}
	m.seen[id] = true
	return true, nil
}

func (m *memorySeen) Forget(_ context.Context, id string) error {
	delete(m.seen, id)
	m.forgotten = append(m.forgotten, id)
	return nil
}

func TestBuildMessage(t *testing.T) {
	record := models.CanonicalRecord{
		SubmissionID:      "sub-1",
		Subject:           "Invoice",
		InternetMessageID: "RETRIEVED: <abc@example.com>",
	}

	data, err := buildMessage(record, "submissions", "task-1")
	require.NoError(t, err)

	var msg celeryMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, TaskName, msg.Headers["task"])
	assert.Equal(t, "task-1", msg.Headers["id"])
	assert.Equal(t, "submissions", msg.Properties["routing_key"])

	var task celeryTask
	require.NoError(t, json.Unmarshal([]byte(msg.Body), &task))
	assert.Equal(t, "task-1", task.ID)
	assert.Equal(t, TaskName, task.Task)
	require.Len(t, task.Args, 1)

	var got models.CanonicalRecord
	require.NoError(t, json.Unmarshal([]byte(task.Args[0].(string)), &got))
	assert.Equal(t, record, got)
}

func TestPublishNew_SkipsSeen(t *testing.T) {
	rdb := newFakeRedis()
	p := NewPublisher(rdb, "submissions")
	seen := &memorySeen{seen: map[string]bool{"sub-2": true}}

	records := []models.CanonicalRecord{
		{SubmissionID: "sub-1"}, {SubmissionID: "sub-2"}, {SubmissionID: "sub-3"},
	}

	res, err := p.PublishNew(context.Background(), records, seen)
	require.NoError(t, err)
	assert.Equal(t, PublishResult{Published: 2, Skipped: 1}, res)
	assert.Len(t, rdb.pushed["submissions"], 2)

	// A second run publishes nothing.
	res, err = p.PublishNew(context.Background(), records, seen)
	require.NoError(t, err)
	assert.Equal(t, PublishResult{Published: 0, Skipped: 3}, res)
}

func TestPublishNew_PushFailureReleasesClaim(t *testing.T) {
	rdb := newFakeRedis()
	rdb.pushErr = errors.New("READONLY")
	seen := &memorySeen{seen: map[string]bool{}}

	res, err := NewPublisher(rdb, "submissions").PublishNew(context.Background(),
		[]models.CanonicalRecord{{SubmissionID: "sub-1"}, {SubmissionID: "sub-2"}}, seen)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish submission sub-1")
	assert.Equal(t, 0, res.Published)
	assert.Equal(t, []string{"sub-1"}, seen.forgotten)
	assert.False(t, seen.seen["sub-1"])
}

func TestPing(t *testing.T) {
	assert.NoError(t, NewPublisher(newFakeRedis(), "q").Ping(context.Background()))
}
