// internal/realtime/publisher_test.go
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipehub-notifier/internal/common/logger"
	"recipehub-notifier/internal/notification"
)

func testEnvelope() notification.Envelope {
	return notification.Envelope{
		Type:    notification.TypeRecipeLiked,
		Message: `Maria liked your recipe "Paella"`,
		Data: notification.Notification{
			ID:          "n-1",
			JobID:       "job-1",
			Type:        notification.TypeRecipeLiked,
			RecipientID: "u-1",
		},
	}
}

func TestPublisher_FanOutToAllConnections(t *testing.T) {
	r := NewRegistry()
	c1 := &mockConn{id: "c-1"}
	c2 := &mockConn{id: "c-2"}
	r.Register("u-1", c1)
	r.Register("u-1", c2)

	p := NewPublisher(r, time.Second, logger.NewNoOpLogger())
	p.Broadcast(context.Background(), "u-1", testEnvelope())

	require.Eventually(t, func() bool {
		return len(c1.messages()) == 1 && len(c2.messages()) == 1
	}, time.Second, 10*time.Millisecond)

	var env notification.Envelope
	require.NoError(t, json.Unmarshal(c1.messages()[0], &env))
	assert.Equal(t, notification.TypeRecipeLiked, env.Type)
	assert.Equal(t, "n-1", env.Data.ID)
}

func TestPublisher_NoConnectionsIsNoOp(t *testing.T) {
	p := NewPublisher(NewRegistry(), time.Second, logger.NewNoOpLogger())
	// Must not panic or block.
	p.Broadcast(context.Background(), "nobody", testEnvelope())
}

func TestPublisher_FailedConnectionIsDroppedOthersDeliver(t *testing.T) {
	r := NewRegistry()
	dead := &mockConn{id: "c-dead", sendErr: errors.New("broken pipe")}
	live := &mockConn{id: "c-live"}
	r.Register("u-1", dead)
	r.Register("u-1", live)

	p := NewPublisher(r, time.Second, logger.NewNoOpLogger())
	p.Broadcast(context.Background(), "u-1", testEnvelope())

	require.Eventually(t, func() bool {
		return dead.isClosed() && len(live.messages()) == 1
	}, time.Second, 10*time.Millisecond)

	conns := r.ConnectionsFor("u-1")
	require.Len(t, conns, 1)
	assert.Equal(t, "c-live", conns[0].ID())
}

func TestPublisher_OtherUsersConnectionsUntouched(t *testing.T) {
	r := NewRegistry()
	mine := &mockConn{id: "c-1"}
	other := &mockConn{id: "c-2"}
	r.Register("u-1", mine)
	r.Register("u-2", other)

	p := NewPublisher(r, time.Second, logger.NewNoOpLogger())
	p.Broadcast(context.Background(), "u-1", testEnvelope())

	require.Eventually(t, func() bool {
		return len(mine.messages()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Empty(t, other.messages())
}
