// internal/notification/failure.go
package notification

import (
	"context"
	"time"

	"recipehub-notifier/internal/common/logger"
)

// FailureLogger records dispatch failures with the original payload for audit
// and manual replay. It never fails: a store error here is reported through
// local diagnostics only, so failure logging cannot cascade.
type FailureLogger struct {
	store  Store
	logger logger.Logger
}

func NewFailureLogger(store Store, log logger.Logger) *FailureLogger {
	return &FailureLogger{store: store, logger: log}
}

func (f *FailureLogger) Log(ctx context.Context, jobType string, payload map[string]any, dispatchErr error) {
	entry := FailureEntry{
		JobType:   jobType,
		Payload:   payload,
		Error:     dispatchErr.Error(),
		Timestamp: time.Now().UTC(),
	}
	if err := f.store.LogFailure(ctx, entry); err != nil {
		f.logger.Error("failure log write failed", map[string]interface{}{
			"jobType": jobType,
			"cause":   dispatchErr.Error(),
			"error":   err.Error(),
		})
	}
}
