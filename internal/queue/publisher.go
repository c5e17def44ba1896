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

// Package queue publishes normalized submissions to Redis as
// Celery-compatible tasks for downstream review workers.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bcem/submissions/internal/models"
)

// TaskName is the Celery task that consumes published submissions.
const TaskName = "reporting.tasks.review_submission"

// Seen reports whether a submission is being published for the first
// time. Implemented by dedup.Filter.
type Seen interface {
	IsNew(ctx context.Context, submissionID string) (bool, error)
	Forget(ctx context.Context, submissionID string) error
}

// Publisher sends submissions to Redis in Celery task format.
type Publisher struct {
	rdb       redis.Cmdable
	queueName string
	newID     func() string
}

// NewPublisher creates a new Redis publisher targeting the specified queue.
func NewPublisher(rdb redis.Cmdable, queueName string) *Publisher {
	return &Publisher{
		rdb:       rdb,
		queueName: queueName,
		newID:     func() string { return uuid.New().String() },
	}
}

// celeryTask represents a Celery-compatible task message.
type celeryTask struct {
	ID      string        `json:"id"`
	Task    string        `json:"task"`
	Args    []interface{} `json:"args"`
	Kwargs  interface{}   `json:"kwargs"`
	Retries int           `json:"retries"`
	ETA     *string       `json:"eta"`
}

// celeryMessage wraps a task for Redis transport.
type celeryMessage struct {
	Body            string                 `json:"body"`
	ContentEncoding string                 `json:"content-encoding"`
	ContentType     string                 `json:"content-type"`
	Headers         map[string]interface{} `json:"headers"`
	Properties      map[string]interface{} `json:"properties"`
}

// buildMessage wraps the record JSON in a Celery envelope for queueName.
func buildMessage(record models.CanonicalRecord, queueName, taskID string) ([]byte, error) {
	recordJSON, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshal submission: %w", err)
	}

	task := celeryTask{
		ID:     taskID,
		Task:   TaskName,
		Args:   []interface{}{string(recordJSON)},
		Kwargs: map[string]interface{}{},
	}
	taskBody, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("marshal celery task: %w", err)
	}

	msg := celeryMessage{
		Body:            string(taskBody),
		ContentEncoding: "utf-8",
		ContentType:     "application/json",
		Headers: map[string]interface{}{
			"lang":    "py",
			"task":    TaskName,
			"id":      taskID,
			"retries": 0,
		},
		Properties: map[string]interface{}{
			"correlation_id": taskID,
			"delivery_mode":  2,
			"delivery_tag":   taskID,
			"body_encoding":  "utf-8",
			"exchange":       queueName,
			"routing_key":    queueName,
			"delivery_info": map[string]string{
				"exchange":    queueName,
				"routing_key": queueName,
			},
		},
	}

	msgJSON, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal celery message: %w", err)
	}
	return msgJSON, nil
}

// PublishSubmission publishes one record as a Celery task.
func (p *Publisher) PublishSubmission(ctx context.Context, record models.CanonicalRecord) error {
	taskID := p.newID()
	msg, err := buildMessage(record, p.queueName, taskID)
	if err != nil {
		return err
	}

	// Celery consumes with BRPOP, so producers LPUSH.
	if err := p.rdb.LPush(ctx, p.queueName, string(msg)).Err(); err != nil {
		return fmt.Errorf("redis LPUSH: %w", err)
	}

	slog.Debug("published submission to queue",
		"task_id", taskID,
		"submission_id", record.SubmissionID,
		"queue", p.queueName,
	)
	return nil
}

// PublishResult counts the outcome of PublishNew.
type PublishResult struct {
	Published int
	Skipped   int
}

// PublishNew publishes every record that seen has not recorded before.
// It stops at the first Redis failure; records published so far stay
// published.
func (p *Publisher) PublishNew(ctx context.Context, records []models.CanonicalRecord, seen Seen) (PublishResult, error) {
	var res PublishResult
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		isNew, err := seen.IsNew(ctx, r.SubmissionID)
		if err != nil {
			return res, fmt.Errorf("check submission %s: %w", r.SubmissionID, err)
		}
		if !isNew {
			res.Skipped++
			continue
		}

		if err := p.PublishSubmission(ctx, r); err != nil {
			// Release the claim so the next run retries this record.
			if ferr := seen.Forget(ctx, r.SubmissionID); ferr != nil {
				slog.Warn("failed to release dedup key", "submission_id", r.SubmissionID, "error", ferr)
			}
			return res, fmt.Errorf("publish submission %s: %w", r.SubmissionID, err)
		}
		res.Published++
	}

	slog.Info("published submissions",
		"queue", p.queueName,
		"published", res.Published,
		"skipped", res.Skipped,
	)
	return res, nil
}

// Ping checks the Redis connection.
func (p *Publisher) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.rdb.Ping(ctx).Err()
}
