// internal/realtime/publisher.go
package realtime

import (
	"context"
	"encoding/json"
	"time"

	apperrors "recipehub-notifier/internal/common/errors"
	"recipehub-notifier/internal/common/logger"
	"recipehub-notifier/internal/common/metrics"
	"recipehub-notifier/internal/notification"
)

// Publisher pushes notification envelopes to every live connection of a
// user. A user with no connections is a silent no-op; the persisted record
// is what they will see on next fetch.
type Publisher struct {
	registry    *Registry
	sendTimeout time.Duration
	logger      logger.Logger
}

func NewPublisher(registry *Registry, sendTimeout time.Duration, log logger.Logger) *Publisher {
	return &Publisher{
		registry:    registry,
		sendTimeout: sendTimeout,
		logger:      log,
	}
}

// Broadcast serializes the envelope once and sends it to each of the
// owner's connections concurrently. A slow or dead connection only loses
// its own copy; it is closed and unregistered without affecting the rest.
func (p *Publisher) Broadcast(ctx context.Context, ownerID string, env notification.Envelope) {
	conns := p.registry.ConnectionsFor(ownerID)
	if len(conns) == 0 {
		return
	}

	data, err := json.Marshal(env)
	if err != nil {
		p.logger.Error("envelope marshal failed", map[string]interface{}{
			"ownerId": ownerID,
			"type":    string(env.Type),
			"error":   err.Error(),
		})
		return
	}

	for _, conn := range conns {
		go p.send(ctx, ownerID, conn, data)
	}
}

func (p *Publisher) send(ctx context.Context, ownerID string, conn Conn, data []byte) {
	sendCtx, cancel := context.WithTimeout(ctx, p.sendTimeout)
	defer cancel()

	if err := conn.Send(sendCtx, data); err != nil {
		metrics.BroadcastsSent.WithLabelValues("error").Inc()
		derr := apperrors.NewDeliveryError(conn.ID(), err)
		p.logger.Warn("dropping dead connection", map[string]interface{}{
			"ownerId": ownerID,
			"connId":  conn.ID(),
			"error":   derr.Error(),
		})
		p.registry.Unregister(ownerID, conn.ID())
		_ = conn.Close()
		return
	}
	metrics.BroadcastsSent.WithLabelValues("ok").Inc()
}
