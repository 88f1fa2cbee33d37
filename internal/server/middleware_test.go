package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"yatube/internal/cache"
	"yatube/internal/middleware"
	"yatube/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_AuthRequired(t *testing.T) {
	env := newTestEnv(t)
	env.app.Get("/ws/probe", env.srv.AuthRequired(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": currentUserID(c)})
	})

	generateToken := func(userID uint, issuer, audience string, exp time.Duration) string {
		claims := jwt.MapClaims{
			"sub": strconv.FormatUint(uint64(userID), 10),
			"iss": issuer,
			"aud": audience,
			"exp": time.Now().Add(exp).Unix(),
			"jti": "test-jti-valid-length",
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		str, _ := token.SignedString([]byte(testSecret))
		return str
	}
	valid := generateToken(123, middleware.TokenIssuer, middleware.TokenAudience, time.Hour)

	tests := []struct {
		name       string
		path       string
		authHeader string
		cookie     string
		wantStatus int
	}{
		{
			name:       "Valid Token",
			path:       "/follow/",
			authHeader: "Bearer " + valid,
			wantStatus: http.StatusOK,
		},
		{
			name:       "Valid Cookie",
			path:       "/follow/",
			cookie:     valid,
			wantStatus: http.StatusOK,
		},
		{
			name:       "Query Param Ignored Outside Websockets",
			path:       "/follow/?token=" + valid,
			wantStatus: http.StatusFound,
		},
		{
			name:       "Query Param On Websocket Path",
			path:       "/ws/probe?token=" + valid,
			wantStatus: http.StatusOK,
		},
		{
			name:       "Expired Token",
			path:       "/follow/",
			authHeader: "Bearer " + generateToken(123, middleware.TokenIssuer, middleware.TokenAudience, -time.Hour),
			wantStatus: http.StatusFound,
		},
		{
			name:       "Invalid Issuer",
			path:       "/follow/",
			authHeader: "Bearer " + generateToken(123, "wrong-issuer", middleware.TokenAudience, time.Hour),
			wantStatus: http.StatusFound,
		},
		{
			name:       "Invalid Audience",
			path:       "/follow/",
			authHeader: "Bearer " + generateToken(123, middleware.TokenIssuer, "wrong-audience", time.Hour),
			wantStatus: http.StatusFound,
		},
		{
			name:       "Malformed Bearer Format",
			path:       "/follow/",
			authHeader: "Token " + valid,
			wantStatus: http.StatusFound,
		},
		{
			name:       "Missing Token On Websocket Path",
			path:       "/ws/probe",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: middleware.TokenCookie, Value: tt.cookie})
			}
			resp, err := env.app.Test(req, -1)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestServer_AuthRequired_KeepsQueryInNext(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/follow/?page=2", "")
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, middleware.LoginRedirectURL("/follow/?page=2"), resp.Header.Get("Location"))
}

func TestServer_AuthRequired_RevokedToken(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, "leo")
	token, claims, err := middleware.IssueToken(testSecret, user.ID)
	require.NoError(t, err)

	require.Equal(t, fiber.StatusOK, env.get(t, "/follow/", token).StatusCode)

	require.NoError(t, env.mr.Set(cache.BlacklistKey(claims.ID), "1"))

	assertRedirect(t, env.get(t, "/follow/", token), "/auth/login/?next=/follow/")
}

func TestServer_AdminRequired(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, "leo")
	admin := testutil.CreateUser(t, env.db, "root")
	require.NoError(t, env.srv.userService.SetAdmin(context.Background(), "root", true))

	resp := env.request(t, http.MethodPost, "/admin/cache/index/invalidate", env.token(t, user), nil, "")
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = env.request(t, http.MethodPost, "/admin/cache/index/invalidate", env.token(t, admin), nil, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Index cache cleared", decode[map[string]string](t, resp)["message"])

	resp = env.request(t, http.MethodPost, "/admin/cache/index/invalidate", "", nil, "")
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
}

func TestSetupMiddleware_SecurityHeaders(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/health/live", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", resp.Header.Get("X-Frame-Options"))
	assert.Equal(t, "same-site", resp.Header.Get("Cross-Origin-Resource-Policy"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}
