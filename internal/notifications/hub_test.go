package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func TestHub_RegisterAndBroadcast(t *testing.T) {
	hub := NewHub()

	a, err := hub.Register(10, nil)
	require.NoError(t, err)
	b, err := hub.Register(10, nil)
	require.NoError(t, err)
	other, err := hub.Register(11, nil)
	require.NoError(t, err)

	hub.Broadcast(10, `{"type":"post_created"}`)

	assert.Equal(t, `{"type":"post_created"}`, string(<-a.Send))
	assert.Equal(t, `{"type":"post_created"}`, string(<-b.Send))
	assert.Empty(t, other.Send)
	assert.True(t, hub.IsOnline(10))
	assert.Equal(t, 2, hub.ConnectionCount(10))
}

func TestHub_UnregisterClosesSendOnce(t *testing.T) {
	hub := NewHub()
	client, err := hub.Register(7, nil)
	require.NoError(t, err)

	hub.UnregisterClient(client)
	hub.UnregisterClient(client)

	_, open := <-client.Send
	assert.False(t, open)
	assert.False(t, hub.IsOnline(7))

	// Broadcasting to a user with no sockets is a no-op.
	hub.Broadcast(7, "ignored")
}

func TestHub_PerUserLimit(t *testing.T) {
	hub := NewHub()
	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register(3, nil)
		require.NoError(t, err)
	}
	_, err := hub.Register(3, nil)
	assert.Error(t, err)
}

func TestHub_ShutdownRefusesNewClients(t *testing.T) {
	hub := NewHub()
	client, err := hub.Register(1, nil)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))

	_, open := <-client.Send
	assert.False(t, open)
	_, err = hub.Register(1, nil)
	assert.ErrorIs(t, err, ErrHubClosed)

	// A pump exiting after shutdown must not double-close.
	hub.UnregisterClient(client)
}

func TestClient_TrySendDropsWhenFull(t *testing.T) {
	hub := NewHub()
	client, err := hub.Register(5, nil)
	require.NoError(t, err)

	for i := 0; i < sendBufferSize; i++ {
		client.TrySend([]byte("x"))
	}
	client.TrySend([]byte("overflow"))
	assert.Len(t, client.Send, sendBufferSize)
}

func TestHub_StartWiringWithRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	n := NewNotifier(rdb)
	require.NoError(t, hub.StartWiring(ctx, n))

	client, err := hub.Register(42, nil)
	require.NoError(t, err)

	require.NoError(t, n.Notify(ctx, []uint{42}, EventFollowerAdded, map[string]string{"follower": "leo"}))

	assert.Eventually(t, func() bool {
		return len(client.Send) == 1
	}, testEventuallyTimeout, testPollInterval)
	assert.Contains(t, string(<-client.Send), `"type":"follower_added"`)
}

func TestHub_StartWiringWithoutRedis(t *testing.T) {
	hub := NewHub()
	n := NewNotifier(nil)
	require.NoError(t, hub.StartWiring(context.Background(), n))

	client, err := hub.Register(9, nil)
	require.NoError(t, err)

	require.NoError(t, n.Notify(context.Background(), []uint{9, 10}, EventPostCreated, map[string]uint{"post_id": 1}))
	require.Len(t, client.Send, 1)
	assert.Contains(t, string(<-client.Send), `"post_id":1`)
}
