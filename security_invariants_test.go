package authgate

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/authgate/jwt"
	"github.com/MrEthical07/authgate/permission"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ordersRoute = Route{Method: http.MethodGet, Path: "/api/orders", Permission: "View Orders"}

// foreignToken is a well-formed access token signed with an unrelated secret.
func foreignToken(t *testing.T) string {
	t.Helper()
	now := time.Now()
	claims := jwt.Claims{
		User: jwt.Subject{ID: "u1", Role: "User"},
		Type: jwt.TypeAccess,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   "u1",
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(time.Hour)),
		},
	}
	s, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("some-other-service-secret-000000000"))
	require.NoError(t, err)
	return s
}

func TestInvariantNoCredentialsNeverReachesGate(t *testing.T) {
	env := newTestEnv(t, nil)

	requests := []Request{
		{Method: http.MethodGet, Path: "/api/orders"},
		{Method: http.MethodPost, Path: "/api/orders", ClientIP: "203.0.113.10"},
		{Method: http.MethodGet, Path: "/api/orders", HasCookies: true},
		{Method: http.MethodDelete, Path: "/api/admin/users", HasCookies: true, CSRFToken: "x"},
		{Method: http.MethodGet, Path: "/api/orders", Platform: "ios"},
	}
	for _, req := range requests {
		result, err := env.engine.Evaluate(context.Background(), req, ordersRoute)
		assert.Nil(t, result)
		require.Error(t, err)
		assert.Equal(t, http.StatusUnauthorized, HTTPStatus(err), "%+v", req)
	}
	assert.Zero(t, env.records.roleCalls.Load(), "authorization gate must not run")
}

func TestInvariantUnknownAPIKeyAlwaysUnauthorized(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.accessToken(t, "u1", "User")
	env.putRefreshRecord(t, "sid-1", "whatever", "u1", "User")

	requests := []Request{
		{Method: http.MethodGet, Path: "/api/orders", HasCookies: true, APIKey: "nope"},
		{Method: http.MethodGet, Path: "/api/orders", HasCookies: true, APIKey: "nope", AccessToken: token},
		{Method: http.MethodGet, Path: "/api/orders", HasCookies: true, APIKey: "nope", SessionID: "sid-1"},
		{Method: http.MethodGet, Path: "/api/orders", Platform: "android", APIKey: "nope", AccessToken: token},
		{Method: http.MethodPost, Path: "/api/exchange/order", HasCookies: true, APIKey: "nope", CSRFToken: "csrf"},
	}
	for _, req := range requests {
		result, err := env.engine.Evaluate(context.Background(), req, ordersRoute)
		assert.Nil(t, result)
		require.Error(t, err)
		assert.Equal(t, http.StatusUnauthorized, HTTPStatus(err), "%+v", req)
	}
}

func TestInvariantValidTokenIdentityMatchesSubject(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, id := range []string{"u1", "u-2", "00000000-0000-0000-0000-000000000000"} {
		token := env.accessToken(t, id, "User")
		result, err := env.engine.Evaluate(context.Background(), cookieRequest(http.MethodGet, "/api/orders", token, ""), ordersRoute)
		require.NoError(t, err)
		assert.Equal(t, AuthAccessToken, result.Method)
		assert.Equal(t, id, result.Identity.ID)
		assert.Equal(t, "User", result.Identity.Role)
	}
}

func TestInvariantExpiredOrTamperedTokenNeverAuthenticates(t *testing.T) {
	env := newTestEnv(t, nil)
	valid := env.accessToken(t, "u1", "User")
	parts := strings.Split(valid, ".")
	require.Len(t, parts, 3)

	tokens := map[string]string{
		"expired":          signExpiredAccess(t, "u1", "User"),
		"payload swapped":  parts[0] + "." + strings.Repeat("A", len(parts[1])) + "." + parts[2],
		"signature cut":    parts[0] + "." + parts[1] + ".",
		"garbage":          "not-a-jwt",
		"foreign signer":   foreignToken(t),
		"payload extended": parts[0] + "." + parts[1] + "x." + parts[2],
	}
	for name, token := range tokens {
		t.Run(name, func(t *testing.T) {
			result, err := env.engine.Evaluate(context.Background(), cookieRequest(http.MethodGet, "/api/orders", token, ""), ordersRoute)
			assert.Nil(t, result)
			requireKind(t, err, ErrMissingSessionID, http.StatusUnauthorized)
		})
	}
}

func TestInvariantMalformedRefreshTokenFallsBack(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, stored := range []string{"garbage", "a.b.c", foreignToken(t)} {
		env.putRefreshRecord(t, "sid-1", stored, "u1", "User")
		result, err := env.engine.Evaluate(context.Background(), cookieRequest(http.MethodGet, "/api/orders", "", "sid-1"), ordersRoute)
		require.NoError(t, err, stored)
		assert.Equal(t, AuthRefresh, result.Method)
		assert.Equal(t, "u1", result.Identity.ID)
		assert.NotEmpty(t, result.Tokens.AccessToken)
	}
}

func TestInvariantCSRFReadNeverBlockedWriteMismatchForbidden(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.RateLimit.Enabled = false })
	env.putCSRFRecord(t, "u1", "sid-1", "csrf-genuine")
	token := env.accessToken(t, "u1", "User")
	route := Route{Path: "/logout"}

	for _, csrf := range []string{"", "forged", "csrf-genuine"} {
		req := cookieRequest(http.MethodGet, "/logout", token, "sid-1")
		req.CSRFToken = csrf
		_, err := env.engine.Evaluate(context.Background(), req, route)
		require.NoError(t, err, "csrf %q", csrf)
	}

	req := cookieRequest(http.MethodPost, "/logout", token, "sid-1")
	req.CSRFToken = "forged"
	result, err := env.engine.Evaluate(context.Background(), req, route)
	require.NotNil(t, result)
	requireKind(t, err, ErrCSRFMismatch, http.StatusForbidden)
}

func TestInvariantRateLimitWindow(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.RateLimit.Limit = 3
		c.RateLimit.Window = 30 * time.Second
	})
	token := env.accessToken(t, "u1", "User")
	route := Route{Method: http.MethodPost, Path: "/api/orders"}
	req := cookieRequest(http.MethodPost, "/api/orders", token, "")

	for i := 0; i < 3; i++ {
		_, err := env.engine.Evaluate(context.Background(), req, route)
		require.NoError(t, err, "request %d", i+1)
	}
	_, err := env.engine.Evaluate(context.Background(), req, route)
	requireKind(t, err, ErrRateLimited, http.StatusTooManyRequests)

	env.mr.FastForward(31 * time.Second)

	_, err = env.engine.Evaluate(context.Background(), req, route)
	require.NoError(t, err)
	count, err := env.mr.Get("rateLimit:" + req.ClientIP)
	require.NoError(t, err)
	assert.Equal(t, "1", count)
}

func TestInvariantSuperAdminAndDemoFreeze(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.Gate.DemoMode = true
		c.RateLimit.Enabled = false
	})
	route := Route{Method: http.MethodPost, Path: "/api/admin/users", Permission: "Edit Users"}

	admin := cookieRequest(http.MethodPost, "/api/admin/users", env.accessToken(t, "a1", "Admin"), "")
	_, err := env.engine.Evaluate(context.Background(), admin, route)
	requireKind(t, err, ErrDemoMode, http.StatusForbidden)

	root := cookieRequest(http.MethodPost, "/api/admin/users", env.accessToken(t, "r1", permission.SuperAdmin), "")
	_, err = env.engine.Evaluate(context.Background(), root, route)
	require.NoError(t, err)
}

func TestInvariantMaintenanceDeniesEveryRoute(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.Maintenance.Enabled = true })
	token := env.accessToken(t, "u1", "User")

	for _, route := range []Route{ordersRoute, {Path: "/api/profile"}} {
		_, err := env.engine.Evaluate(context.Background(), cookieRequest(http.MethodGet, route.Path, token, ""), route)
		requireKind(t, err, ErrMaintenance, http.StatusForbidden)
	}

	admin := env.accessToken(t, "a1", "Admin")
	_, err := env.engine.Evaluate(context.Background(), cookieRequest(http.MethodGet, "/api/profile", admin, ""), Route{Path: "/api/profile"})
	require.NoError(t, err)
}
