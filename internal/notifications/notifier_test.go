package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_PublishUserWithoutRedis(t *testing.T) {
	// No Redis and no sink: a no-op.
	n := NewNotifier(nil)
	assert.NoError(t, n.PublishUser(context.Background(), 1, "test payload"))

	var got []string
	n.SetLocalSink(func(userID uint, payload string) {
		got = append(got, payload)
	})
	require.NoError(t, n.PublishUser(context.Background(), 1, "hello"))
	assert.Equal(t, []string{"hello"}, got)
}

func TestNotifier_NotifyEncodesEvent(t *testing.T) {
	n := NewNotifier(nil)
	var payloads []string
	n.SetLocalSink(func(_ uint, payload string) { payloads = append(payloads, payload) })

	require.NoError(t, n.Notify(context.Background(), []uint{1, 2}, EventPostCreated, map[string]interface{}{"post_id": 5}))
	require.Len(t, payloads, 2)

	var ev struct {
		Type      string                 `json:"type"`
		Payload   map[string]interface{} `json:"payload"`
		Timestamp time.Time              `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal([]byte(payloads[0]), &ev))
	assert.Equal(t, EventPostCreated, ev.Type)
	assert.Equal(t, float64(5), ev.Payload["post_id"])
	assert.False(t, ev.Timestamp.IsZero())

	assert.NoError(t, n.Notify(context.Background(), nil, EventPostCreated, nil))
}

func TestUserChannel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		userID   uint
		expected string
	}{
		{1, "notifications:user:1"},
		{100, "notifications:user:100"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, UserChannel(tt.userID))
		id, ok := ParseUserChannel(tt.expected)
		assert.True(t, ok)
		assert.Equal(t, tt.userID, id)
	}

	for _, bad := range []string{"notifications:user:", "notifications:user:abc", "chat:conv:1", "notifications:user:0"} {
		_, ok := ParseUserChannel(bad)
		assert.False(t, ok, bad)
	}
}

func TestNotifier_SubscriberStopsOnCancel(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payloads := make(chan string, 4)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(_ string, payload string) {
		payloads <- payload
	}))

	require.NoError(t, n.PublishUser(context.Background(), 1, "before-cancel"))
	select {
	case p := <-payloads:
		assert.Equal(t, "before-cancel", p)
	case <-time.After(time.Second):
		t.Fatal("expected message before cancel")
	}

	cancel()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, n.PublishUser(context.Background(), 1, "after-cancel"))
	assert.Never(t, func() bool {
		select {
		case payload := <-payloads:
			return payload == "after-cancel"
		default:
			return false
		}
	}, 200*time.Millisecond, 10*time.Millisecond)
}
