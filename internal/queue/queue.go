// internal/queue/queue.go
package queue

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// Job is one typed unit of work consumed from the queue.
type Job struct {
	// ID is the queue entry id and doubles as the idempotency token
	// for the notification store.
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
	// Attempt is 1 on first delivery and counts up on redelivery.
	Attempt int64 `json:"attempt"`
}

// Handler processes one job. A nil return acknowledges the entry; a retryable
// error leaves it pending for redelivery.
type Handler func(ctx context.Context, job Job) error

// Enqueuer adds jobs to a stream. Production jobs come from the CRUD services;
// this is used by tests and backfill tooling.
type Enqueuer struct {
	rdb *redis.Client
}

func NewEnqueuer(rdb *redis.Client) *Enqueuer {
	return &Enqueuer{rdb: rdb}
}

// Enqueue appends a job to the stream and returns the entry id.
func (e *Enqueuer) Enqueue(ctx context.Context, stream, jobType string, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return e.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{
			"type":    jobType,
			"payload": string(body),
		},
	}).Result()
}
