package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRateLimiter_Allow(t *testing.T) {
	t.Run("Disabled outside production", func(t *testing.T) {
		for _, env := range []string{"", "test", "development", "stress"} {
			allowed, err := NewRateLimiter(nil, env).Allow(context.Background(), "r", "1", 0, time.Minute)
			assert.NoError(t, err)
			assert.True(t, allowed)
		}
	})

	t.Run("Nil redis errors", func(t *testing.T) {
		allowed, err := NewRateLimiter(nil, "production").Allow(context.Background(), "r", "1", 1, time.Minute)
		assert.Error(t, err)
		assert.False(t, allowed)
	})

	t.Run("Counts within window", func(t *testing.T) {
		mr, rdb := newTestRedis(t)
		limiter := NewRateLimiter(rdb, "production")
		ctx := context.Background()

		for i := 0; i < 2; i++ {
			allowed, err := limiter.Allow(ctx, "login", "ip:1", 2, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed)
		}
		allowed, err := limiter.Allow(ctx, "login", "ip:1", 2, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)
		assert.True(t, mr.TTL("rl:login:ip:1") > 0)

		mr.FastForward(2 * time.Minute)
		allowed, err = limiter.Allow(ctx, "login", "ip:1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}

func TestRateLimiter_Handler(t *testing.T) {
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	get := func(app *fiber.App, path string) int {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}

	t.Run("Rejects over limit", func(t *testing.T) {
		_, rdb := newTestRedis(t)
		app := fiber.New()
		app.Get("/comment", NewRateLimiter(rdb, "production").Handler("comment", 1, time.Minute, FailOpen), ok)

		assert.Equal(t, http.StatusOK, get(app, "/comment"))
		assert.Equal(t, http.StatusTooManyRequests, get(app, "/comment"))
	})

	t.Run("FailOpen with nil redis", func(t *testing.T) {
		app := fiber.New()
		app.Get("/test", NewRateLimiter(nil, "production").Handler("", 1, time.Minute, FailOpen), ok)
		assert.Equal(t, http.StatusOK, get(app, "/test"))
	})

	t.Run("FailClosed with nil redis", func(t *testing.T) {
		app := fiber.New()
		app.Get("/sensitive", NewRateLimiter(nil, "production").Handler("", 1, time.Minute, FailClosed), ok)
		assert.Equal(t, http.StatusServiceUnavailable, get(app, "/sensitive"))
	})
}
