package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"yatube/internal/config"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

type testEnv struct {
	srv *Server
	app *fiber.App
	db  *gorm.DB
	mr  *miniredis.Miniredis
	cfg *config.Config
}

// newTestEnv wires a full server against sqlite and miniredis.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		JWTSecret:            testSecret,
		Env:                  "test",
		Port:                 "0",
		PageSize:             10,
		IndexCacheTTLSeconds: 20,
		MediaDir:             t.TempDir(),
		ImageMaxUploadSizeMB: 5,
	}
	srv, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)
	return &testEnv{srv: srv, app: srv.App(), db: db, mr: mr, cfg: cfg}
}

func (e *testEnv) token(t *testing.T, user *models.User) string {
	t.Helper()
	tok, _, err := middleware.IssueToken(testSecret, user.ID)
	require.NoError(t, err)
	return tok
}

// request sends a request; token may be empty for anonymous calls.
func (e *testEnv) request(t *testing.T, method, path, token string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) get(t *testing.T, path, token string) *http.Response {
	t.Helper()
	return e.request(t, http.MethodGet, path, token, nil, "")
}

func (e *testEnv) post(t *testing.T, path, token string) *http.Response {
	t.Helper()
	return e.request(t, http.MethodPost, path, token, nil, "")
}

func (e *testEnv) postForm(t *testing.T, path, token string, form url.Values) *http.Response {
	t.Helper()
	return e.request(t, http.MethodPost, path, token, strings.NewReader(form.Encode()), fiber.MIMEApplicationForm)
}

func (e *testEnv) postJSON(t *testing.T, path, token string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return e.request(t, http.MethodPost, path, token, strings.NewReader(string(raw)), fiber.MIMEApplicationJSON)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(raw)
}

func assertRedirect(t *testing.T, resp *http.Response, location string) {
	t.Helper()
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, location, resp.Header.Get("Location"))
}

func TestHealthChecks(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/health/live", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = env.get(t, "/health/ready", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "healthy", body["status"])
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["database"])
	assert.Equal(t, "healthy", checks["redis"])

	env.mr.Close()
	resp = env.get(t, "/health", "")
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestReadinessWithoutRedis(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	srv, err := NewServerWithDeps(&config.Config{JWTSecret: testSecret, Env: "test", MediaDir: t.TempDir()}, db, nil)
	require.NoError(t, err)

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil), -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "unavailable", body["checks"].(map[string]any)["redis"])
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/no/such/page/", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestNewServerWithDeps_RelayOnlyWithBrokers(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	srv, err := NewServerWithDeps(&config.Config{JWTSecret: testSecret, Env: "test"}, db, nil)
	require.NoError(t, err)
	assert.Nil(t, srv.relay)
	assert.Nil(t, srv.publisher)

	srv, err = NewServerWithDeps(&config.Config{
		JWTSecret:        testSecret,
		Env:              "test",
		KafkaBrokers:     "localhost:9092",
		KafkaFollowTopic: "follow-events",
	}, db, nil)
	require.NoError(t, err)
	assert.NotNil(t, srv.relay)
	require.NotNil(t, srv.publisher)
	assert.NoError(t, srv.publisher.Close())
}
