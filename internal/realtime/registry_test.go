// internal/realtime/registry_test.go
package realtime

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mocks
// ==========================

type mockConn struct {
	id string

	mu       sync.Mutex
	received [][]byte
	sendErr  error
	closed   bool
}

func (c *mockConn) ID() string { return c.id }

func (c *mockConn) Send(_ context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.received = append(c.received, data)
	return nil
}

func (c *mockConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *mockConn) messages() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.received))
	copy(out, c.received)
	return out
}

func (c *mockConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// ==========================
// Registry Tests
// ==========================

func TestRegistry_RegisterMultipleConnectionsPerUser(t *testing.T) {
	r := NewRegistry()
	c1 := &mockConn{id: "c-1"}
	c2 := &mockConn{id: "c-2"}

	r.Register("u-1", c1)
	r.Register("u-1", c2)

	conns := r.ConnectionsFor("u-1")
	assert.Len(t, conns, 2)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_UnregisterRemovesOnlyThatConnection(t *testing.T) {
	r := NewRegistry()
	r.Register("u-1", &mockConn{id: "c-1"})
	r.Register("u-1", &mockConn{id: "c-2"})

	r.Unregister("u-1", "c-1")

	conns := r.ConnectionsFor("u-1")
	require.Len(t, conns, 1)
	assert.Equal(t, "c-2", conns[0].ID())
}

func TestRegistry_LastUnregisterDropsUserEntry(t *testing.T) {
	r := NewRegistry()
	r.Register("u-1", &mockConn{id: "c-1"})
	r.Unregister("u-1", "c-1")

	assert.Empty(t, r.ConnectionsFor("u-1"))
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_UnregisterUnknownIsNoOp(t *testing.T) {
	r := NewRegistry()
	r.Unregister("nobody", "c-1")
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_ConnectionsForUnknownUser(t *testing.T) {
	r := NewRegistry()
	assert.Nil(t, r.ConnectionsFor("nobody"))
}

func TestRegistry_ConcurrentRegisterUnregister(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			c := &mockConn{id: string(rune('a' + n))}
			r.Register("u-1", c)
			r.ConnectionsFor("u-1")
			r.Unregister("u-1", c.ID())
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, r.Len())
}
