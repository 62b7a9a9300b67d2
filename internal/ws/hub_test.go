package ws

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/skillswap/skillswap-backend/internal/common"
	"github.com/skillswap/skillswap-backend/internal/domain"
	"github.com/skillswap/skillswap-backend/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(realtime.NewBroker(nil, 4), nil, nil, Config{})
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func isClosed(c *Client) bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := newTestHub(t)
	a := NewClient(hub, nil, domain.Authenticated{ID: "u1"})
	b := NewClient(hub, nil, domain.Authenticated{ID: "u1"})

	hub.Register(a)
	hub.Register(b)
	require.Eventually(t, func() bool { return hub.ClientCount("u1") == 2 }, time.Second, 5*time.Millisecond)

	hub.Unregister(a)
	hub.Unregister(a)
	require.Eventually(t, func() bool { return hub.ClientCount("u1") == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, hub.ClientCount("u2"))
}

func TestHub_StopClosesClients(t *testing.T) {
	hub := NewHub(realtime.NewBroker(nil, 4), nil, nil, Config{})
	go hub.Run()

	c := NewClient(hub, nil, domain.Authenticated{ID: "u1"})
	hub.Register(c)
	require.Eventually(t, func() bool { return hub.ClientCount("u1") == 1 }, time.Second, 5*time.Millisecond)

	hub.Stop()
	require.Eventually(t, func() bool { return isClosed(c) }, time.Second, 5*time.Millisecond)

	// registering after stop shuts the client down; unregistering does not block
	late := NewClient(hub, nil, domain.Authenticated{ID: "u2"})
	hub.Register(late)
	assert.True(t, isClosed(late))
	hub.Unregister(c)
}

func TestClient_SlowConsumerIsClosed(t *testing.T) {
	hub := newTestHub(t)
	c := NewClient(hub, nil, domain.Authenticated{ID: "u1"})

	for i := 0; i < sendBuffer; i++ {
		c.enqueue(OutboundFrame{Type: FrameMessage, MessageID: fmt.Sprint(i)})
	}
	assert.False(t, isClosed(c))

	c.enqueue(OutboundFrame{Type: FrameMessage})
	assert.True(t, isClosed(c))

	// later frames are discarded quietly
	c.enqueue(OutboundFrame{Type: FrameMessage})
	assert.Len(t, c.send, sendBuffer)
}

func TestFailureFrame(t *testing.T) {
	frame := failureFrame("r1", fmt.Errorf("send message: %w: %w", common.ErrPersistence, errors.New("disk full")))
	assert.Equal(t, FrameError, frame.Type)
	assert.Equal(t, "r1", frame.RequestID)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", frame.Error.Code)
	assert.Equal(t, "internal error", frame.Error.Message)

	frame = failureFrame("r2", common.ErrEmptyContent)
	assert.Equal(t, "BAD_REQUEST", frame.Error.Code)
	assert.Equal(t, common.ErrEmptyContent.Error(), frame.Error.Message)

	assert.Equal(t, "NOT_FOUND", failureFrame("", common.ErrNotFound).Error.Code)
	assert.Equal(t, "UNAUTHORIZED", failureFrame("", common.ErrUnauthenticated).Error.Code)
}
