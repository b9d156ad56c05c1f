package authgate

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticateNoCredentialsNeverReachesGate(t *testing.T) {
	env := newTestEnv(t, nil)

	req := Request{Method: http.MethodPost, Path: "/api/admin/users", ClientIP: "203.0.113.1"}
	result, err := env.engine.Evaluate(context.Background(), req, Route{Permission: "Edit Users"})

	assert.Nil(t, result)
	requireKind(t, err, ErrMissingCredentials, http.StatusUnauthorized)
	assert.Zero(t, env.records.roleCalls.Load(), "role store must not be consulted")
	assert.False(t, env.mr.Exists("rateLimit:203.0.113.1"), "rate limiter must not count rejected requests")
}

func TestAuthenticatePlatformWithoutToken(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.engine.Authenticate(context.Background(), Request{
		Method:   http.MethodGet,
		Path:     "/api/user/profile",
		Platform: "app",
	})
	requireKind(t, err, ErrPlatformTokenRequired, http.StatusUnauthorized)
	assert.Equal(t, "Authentication Required", err.Error())
}

func TestAuthenticatePreflightBypasses(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, method := range []string{http.MethodOptions, "options", "Options"} {
		req := Request{Method: method, Path: "/logout"}
		assert.True(t, req.IsPreflight(), method)

		result, err := env.engine.Authenticate(context.Background(), req)
		require.NoError(t, err, method)
		assert.Equal(t, AuthNone, result.Method)
		assert.Nil(t, result.Identity)

		result, err = env.engine.Evaluate(context.Background(), req, Route{Permission: "Edit Users"})
		require.NoError(t, err, method)
		assert.Equal(t, AuthNone, result.Method)
	}
}

func TestAuthenticateValidAccessToken(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.accessToken(t, "u1", "User")

	result, err := env.engine.Authenticate(context.Background(), cookieRequest(http.MethodGet, "/api/orders", token, ""))
	require.NoError(t, err)
	assert.Equal(t, AuthAccessToken, result.Method)
	assert.Equal(t, &Identity{ID: "u1", Role: "User"}, result.Identity)
	assert.Empty(t, result.Tokens.AccessToken)
	assert.False(t, result.SkipCSRF)
}

func TestAuthenticatePlatformHeaderToken(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.accessToken(t, "u1", "User")

	result, err := env.engine.Authenticate(context.Background(), Request{
		Method:      http.MethodGet,
		Path:        "/api/orders",
		Platform:    "app",
		AccessToken: token,
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", result.Identity.ID)
}

func TestAuthenticateExpiredOrTamperedTokenNeverYieldsIdentity(t *testing.T) {
	env := newTestEnv(t, nil)

	cases := map[string]string{
		"expired":  signExpiredAccess(t, "u1", "User"),
		"tampered": env.accessToken(t, "u1", "User") + "A",
		"garbage":  "not-a-jwt",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			result, err := env.engine.Authenticate(context.Background(), cookieRequest(http.MethodGet, "/api/orders", token, ""))
			assert.Nil(t, result)
			requireKind(t, err, ErrMissingSessionID, http.StatusUnauthorized)
		})
	}
}

func TestAuthenticateRefreshTokenNotAcceptedAsAccess(t *testing.T) {
	env := newTestEnv(t, nil)
	pair, err := env.engine.Tokens().RefreshTokens(subject("u1", "User"), "sid-1")
	require.NoError(t, err)

	_, err = env.engine.Authenticate(context.Background(), cookieRequest(http.MethodGet, "/api/orders", pair.RefreshToken, ""))
	requireKind(t, err, ErrMissingSessionID, http.StatusUnauthorized)
}

func TestAuthenticateUnknownAPIKeyAlwaysRejected(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.accessToken(t, "u1", "User")

	requests := []Request{
		{Method: http.MethodGet, Path: "/api/orders", HasCookies: true, APIKey: "missing"},
		{Method: http.MethodGet, Path: "/api/orders", HasCookies: true, APIKey: "missing", AccessToken: token},
		{Method: http.MethodPost, Path: "/api/orders", Platform: "app", APIKey: "missing", AccessToken: token, SessionID: "s"},
	}
	for _, req := range requests {
		_, err := env.engine.Authenticate(context.Background(), req)
		requireKind(t, err, ErrInvalidAPIKey, http.StatusUnauthorized)
	}
}

func TestAuthenticateAPIKeyLookupErrorRejected(t *testing.T) {
	env := newTestEnv(t, nil)
	env.records.keyErr = errors.New("db down")

	_, err := env.engine.Authenticate(context.Background(), Request{
		Method: http.MethodGet, Path: "/api/orders", HasCookies: true, APIKey: "key-trader",
	})
	requireKind(t, err, ErrInvalidAPIKey, http.StatusUnauthorized)
	assert.ErrorIs(t, err, env.records.keyErr)
}

func TestAuthenticateAPIKeyIdentity(t *testing.T) {
	env := newTestEnv(t, nil)

	result, err := env.engine.Authenticate(context.Background(), Request{
		Method: http.MethodPost, Path: "/logout", HasCookies: true, APIKey: "key-trader",
	})
	require.NoError(t, err)
	assert.Equal(t, AuthAPIKey, result.Method)
	assert.True(t, result.SkipCSRF)
	assert.Equal(t, &Identity{ID: "u-key", Role: "User", Permissions: []string{"trade"}, APIKey: true}, result.Identity)
}

func TestAuthenticateAPIKeyWithoutRoleResolver(t *testing.T) {
	_, rdb := newTestRedis(t)
	engine, err := New().WithConfig(testConfig()).WithRedis(rdb).WithRecordStore(plainRecords{f: newFakeRecords()}).Build()
	require.NoError(t, err)
	defer engine.Close()

	result, err := engine.Authenticate(context.Background(), Request{
		Method: http.MethodGet, Path: "/api/orders", HasCookies: true, APIKey: "key-trader",
	})
	require.NoError(t, err)
	assert.Empty(t, result.Identity.Role)
	assert.True(t, result.Identity.APIKey)
}

func TestAuthenticatePanicIsInternal(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.Metrics.Enabled = true })
	env.engine.records = panicRecords{}
	env.engine.initFlows()

	_, err := env.engine.Authenticate(context.Background(), Request{
		Method: http.MethodGet, Path: "/api/orders", HasCookies: true, APIKey: "any",
	})
	requireKind(t, err, ErrInternal, http.StatusInternalServerError)
	assert.Equal(t, uint64(1), env.engine.MetricsSnapshot().Counters[MetricInternalError])
}
