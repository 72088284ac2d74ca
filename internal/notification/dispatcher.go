// internal/notification/dispatcher.go
package notification

import (
	"context"
	"time"

	apperrors "recipehub-notifier/internal/common/errors"
	"recipehub-notifier/internal/common/logger"
	"recipehub-notifier/internal/common/metrics"
	"recipehub-notifier/internal/queue"
)

// Publisher delivers one envelope to every live connection of a user.
// Per-connection failures are contained inside the implementation.
type Publisher interface {
	Broadcast(ctx context.Context, ownerID string, env Envelope)
}

// SideChannel is an optional secondary delivery channel (e.g. price-alert
// email). Strictly best-effort: its errors never fail the job.
type SideChannel interface {
	Notify(ctx context.Context, n Notification, message string) error
}

// Dispatcher is the single entry point invoked once per consumed job. One
// store write and at most one broadcast per successfully processed job;
// every failure is written to the failure log before being returned to the
// queue consumer.
type Dispatcher struct {
	store        Store
	publisher    Publisher
	failures     *FailureLogger
	sideChannels []SideChannel
	logger       logger.Logger
}

func NewDispatcher(store Store, publisher Publisher, failures *FailureLogger, log logger.Logger, sideChannels ...SideChannel) *Dispatcher {
	return &Dispatcher{
		store:        store,
		publisher:    publisher,
		failures:     failures,
		sideChannels: sideChannels,
		logger:       log,
	}
}

// Dispatch processes one job: route by type, build, persist, broadcast.
// The returned error's retryable flag tells the queue consumer whether to
// acknowledge the entry or leave it for redelivery.
func (d *Dispatcher) Dispatch(ctx context.Context, job queue.Job) error {
	start := time.Now()
	defer func() {
		metrics.JobDuration.WithLabelValues(job.Type).Observe(time.Since(start).Seconds())
	}()

	builder, ok := BuilderFor(job.Type)
	if !ok {
		err := apperrors.NewUnknownJobTypeError(job.Type)
		d.fail(ctx, job, err)
		return err
	}

	n, message, err := builder(job.ID, job.Payload)
	if err != nil {
		d.fail(ctx, job, err)
		return err
	}

	saved, err := d.store.Save(ctx, n)
	if err != nil {
		perr := apperrors.NewPersistenceError(err)
		d.fail(ctx, job, perr)
		return perr
	}

	// The record is durable from here on; live delivery is an optimization
	// and must not fail the job.
	d.publisher.Broadcast(ctx, saved.RecipientID, Envelope{
		Type:    saved.Type,
		Message: message,
		Data:    saved,
	})

	for _, ch := range d.sideChannels {
		if err := ch.Notify(ctx, saved, message); err != nil {
			d.logger.Warn("side channel delivery failed", map[string]interface{}{
				"jobType":        job.Type,
				"notificationId": saved.ID,
				"error":          err.Error(),
			})
		}
	}

	metrics.JobsCompleted.WithLabelValues(job.Type).Inc()
	d.logger.Debug("job dispatched", map[string]interface{}{
		"jobType":        job.Type,
		"notificationId": saved.ID,
		"recipientId":    saved.RecipientID,
	})
	return nil
}

// DeadLetter records a job that exhausted the queue's redelivery budget.
func (d *Dispatcher) DeadLetter(ctx context.Context, job queue.Job) {
	err := apperrors.NewRetriesExhaustedError(job.Type, job.Attempt)
	d.failures.Log(ctx, job.Type, job.Payload, err)
	metrics.JobsFailed.WithLabelValues(job.Type, string(apperrors.ErrCodeRetriesExhausted)).Inc()
}

func (d *Dispatcher) fail(ctx context.Context, job queue.Job, err error) {
	d.failures.Log(ctx, job.Type, job.Payload, err)
	metrics.JobsFailed.WithLabelValues(job.Type, string(apperrors.CodeOf(err))).Inc()
	d.logger.Error("job dispatch failed", map[string]interface{}{
		"jobType":   job.Type,
		"jobId":     job.ID,
		"attempt":   job.Attempt,
		"errorCode": string(apperrors.CodeOf(err)),
		"retryable": apperrors.IsRetryable(err),
		"error":     err.Error(),
	})
}
