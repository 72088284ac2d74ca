// internal/queue/consumer.go
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"recipehub-notifier/internal/common/config"
	apperrors "recipehub-notifier/internal/common/errors"
	"recipehub-notifier/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

// DeadLetterFunc is invoked for a job that exhausted its redelivery budget.
// The entry is acknowledged afterwards regardless of the outcome.
type DeadLetterFunc func(ctx context.Context, job Job)

// Consumer reads jobs from a Redis Stream through a consumer group and hands
// them to a Handler on a fixed pool of workers. Delivery is at-least-once:
// an entry is acknowledged only after the handler returns nil or a
// non-retryable error; anything else stays pending and is reclaimed by the
// redelivery loop after an idle period.
type Consumer struct {
	rdb        *redis.Client
	cfg        config.QueueConfig
	handler    Handler
	deadLetter DeadLetterFunc
	logger     logger.Logger
}

func NewConsumer(rdb *redis.Client, cfg config.QueueConfig, handler Handler, deadLetter DeadLetterFunc, log logger.Logger) *Consumer {
	return &Consumer{
		rdb:        rdb,
		cfg:        cfg,
		handler:    handler,
		deadLetter: deadLetter,
		logger:     log.WithFields(map[string]interface{}{"stream": cfg.Stream, "group": cfg.Group}),
	}
}

// Run blocks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.ensureGroup(ctx); err != nil {
		return err
	}

	c.logger.Info("queue consumer started", map[string]interface{}{
		"workers":  c.cfg.Workers,
		"consumer": c.cfg.Consumer,
	})

	var wg sync.WaitGroup
	for i := 0; i < c.cfg.Workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			c.readLoop(ctx, fmt.Sprintf("%s-%d", c.cfg.Consumer, worker))
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.reclaimLoop(ctx)
	}()

	wg.Wait()
	c.logger.Info("queue consumer stopped", nil)
	return nil
}

func (c *Consumer) ensureGroup(ctx context.Context) error {
	err := c.rdb.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

func (c *Consumer) readLoop(ctx context.Context, consumer string) {
	for {
		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.cfg.Group,
			Consumer: consumer,
			Streams:  []string{c.cfg.Stream, ">"},
			Count:    1,
			Block:    time.Duration(c.cfg.BlockMillis) * time.Millisecond,
		}).Result()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if err != redis.Nil {
				c.logger.Warn("queue read failed", map[string]interface{}{"error": err.Error()})
				select {
				case <-time.After(time.Second):
				case <-ctx.Done():
					return
				}
			}
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				c.process(ctx, consumer, msg, 1)
			}
		}
	}
}

// process runs the handler and decides the entry's fate. Only retryable
// failures leave the entry pending; everything else is acknowledged so the
// queue does not redeliver jobs that can never succeed.
func (c *Consumer) process(ctx context.Context, consumer string, msg redis.XMessage, attempt int64) {
	job, err := decodeJob(msg, attempt)
	if err != nil {
		c.logger.Error("undecodable queue entry, discarding", map[string]interface{}{
			"entryId": msg.ID,
			"error":   err.Error(),
		})
		c.ack(ctx, msg.ID)
		return
	}

	err = c.handler(ctx, job)
	if err == nil {
		c.ack(ctx, msg.ID)
		return
	}

	if apperrors.IsRetryable(err) {
		c.logger.Warn("job failed, leaving pending for redelivery", map[string]interface{}{
			"entryId": msg.ID,
			"jobType": job.Type,
			"attempt": attempt,
			"error":   err.Error(),
		})
		return
	}

	// Non-retryable: the failure has already been recorded by the handler.
	c.ack(ctx, msg.ID)
}

// reclaimLoop implements the queue's redelivery policy: pending entries idle
// longer than ReclaimIdleMillis are claimed and re-processed; entries past
// MaxAttempts are dead-lettered and acknowledged.
func (c *Consumer) reclaimLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(c.cfg.ReclaimIntervalMillis) * time.Millisecond)
	defer ticker.Stop()

	consumer := c.cfg.Consumer + "-reclaim"
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pending, err := c.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
			Stream: c.cfg.Stream,
			Group:  c.cfg.Group,
			Idle:   time.Duration(c.cfg.ReclaimIdleMillis) * time.Millisecond,
			Start:  "-",
			End:    "+",
			Count:  64,
		}).Result()
		if err != nil {
			if ctx.Err() == nil && err != redis.Nil {
				c.logger.Warn("pending scan failed", map[string]interface{}{"error": err.Error()})
			}
			continue
		}

		for _, p := range pending {
			msgs, err := c.rdb.XClaim(ctx, &redis.XClaimArgs{
				Stream:   c.cfg.Stream,
				Group:    c.cfg.Group,
				Consumer: consumer,
				MinIdle:  time.Duration(c.cfg.ReclaimIdleMillis) * time.Millisecond,
				Messages: []string{p.ID},
			}).Result()
			if err != nil || len(msgs) == 0 {
				// Claimed by someone else in the meantime.
				continue
			}

			attempt := p.RetryCount + 1
			if p.RetryCount >= int64(c.cfg.MaxAttempts) {
				c.handleDeadLetter(ctx, msgs[0], attempt)
				continue
			}
			c.process(ctx, consumer, msgs[0], attempt)
		}
	}
}

func (c *Consumer) handleDeadLetter(ctx context.Context, msg redis.XMessage, attempt int64) {
	c.logger.Error("job exhausted redelivery budget", map[string]interface{}{
		"entryId":  msg.ID,
		"attempts": attempt,
	})
	if c.deadLetter != nil {
		if job, err := decodeJob(msg, attempt); err == nil {
			c.deadLetter(ctx, job)
		}
	}
	c.ack(ctx, msg.ID)
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.rdb.XAck(ctx, c.cfg.Stream, c.cfg.Group, id).Err(); err != nil && ctx.Err() == nil {
		c.logger.Error("ack failed", map[string]interface{}{"entryId": id, "error": err.Error()})
	}
}

func decodeJob(msg redis.XMessage, attempt int64) (Job, error) {
	jobType, _ := msg.Values["type"].(string)
	if jobType == "" {
		return Job{}, apperrors.NewQueueDecodeError(fmt.Errorf("entry %s has no type field", msg.ID))
	}

	payload := map[string]any{}
	if raw, ok := msg.Values["payload"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return Job{}, apperrors.NewQueueDecodeError(fmt.Errorf("entry %s payload: %w", msg.ID, err))
		}
	}

	return Job{
		ID:      msg.ID,
		Type:    jobType,
		Payload: payload,
		Attempt: attempt,
	}, nil
}
