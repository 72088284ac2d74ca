// internal/notification/store.go
package notification

import "context"

// Store persists notification records and dispatch failures. Save must be
// idempotent under queue redelivery: two calls with the same JobID result in
// one stored record.
type Store interface {
	Save(ctx context.Context, n Notification) (Notification, error)
	LogFailure(ctx context.Context, entry FailureEntry) error

	// Read side, used by the platform's notification history endpoint.
	List(ctx context.Context, userID string, limit int64) ([]Notification, error)
	MarkRead(ctx context.Context, userID, notifID string) error
	CountUnread(ctx context.Context, userID string) (int64, error)
}
