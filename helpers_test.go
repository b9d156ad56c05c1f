package authgate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/authgate/jwt"
	"github.com/MrEthical07/authgate/permission"
	"github.com/MrEthical07/authgate/session"
	"github.com/alicebob/miniredis/v2"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

var testAccessSecret = []byte("access-secret-0123456789abcdef012345")

type fakeRecords struct {
	mu        sync.RWMutex
	keys      map[string]*permission.APIKey
	roles     map[string]*permission.Role
	userRoles map[string]string

	keyErr    error
	roleErr   error
	keyCalls  atomic.Int64
	roleCalls atomic.Int64
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{
		keys: map[string]*permission.APIKey{
			"key-trader": {Key: "key-trader", UserID: "u-key", Type: "user", Permissions: `["trade"]`},
			"key-none":   {Key: "key-none", UserID: "u-key", Type: "user", Permissions: []string{}},
			"key-plugin": {Key: "key-plugin", UserID: "u-plugin", Type: permission.KeyTypePlugin, Permissions: []any{"withdraw"}},
		},
		roles: map[string]*permission.Role{
			permission.SuperAdmin: {Name: permission.SuperAdmin},
			"Admin":               {Name: "Admin", Permissions: []string{permission.AdminDashboard, "View Users", "Edit Users"}},
			"User":                {Name: "User", Permissions: []string{"View Orders", "Create Orders"}},
		},
		userRoles: map[string]string{
			"u-key":    "User",
			"u-plugin": "User",
		},
	}
}

func (f *fakeRecords) FindAPIKeyByKey(_ context.Context, key string) (*permission.APIKey, error) {
	f.keyCalls.Add(1)
	if f.keyErr != nil {
		return nil, f.keyErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	k, ok := f.keys[key]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return k, nil
}

func (f *fakeRecords) FindRoleByName(_ context.Context, name string) (*permission.Role, error) {
	f.roleCalls.Add(1)
	if f.roleErr != nil {
		return nil, f.roleErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	r, ok := f.roles[name]
	if !ok {
		return nil, nil
	}
	return r, nil
}

func (f *fakeRecords) FindUserRole(_ context.Context, userID string) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	role, ok := f.userRoles[userID]
	if !ok {
		return "", ErrRecordNotFound
	}
	return role, nil
}

// plainRecords exposes only the RecordStore methods, so key owners get no role.
type plainRecords struct {
	f *fakeRecords
}

func (p plainRecords) FindAPIKeyByKey(ctx context.Context, key string) (*permission.APIKey, error) {
	return p.f.FindAPIKeyByKey(ctx, key)
}

func (p plainRecords) FindRoleByName(ctx context.Context, name string) (*permission.Role, error) {
	return p.f.FindRoleByName(ctx, name)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessPrivateKey = append([]byte(nil), testAccessSecret...)
	cfg.Roles.CacheTTL = 0
	return cfg
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

type testEnv struct {
	engine  *Engine
	mr      *miniredis.Miniredis
	rdb     *redis.Client
	records *fakeRecords
}

func newTestEnv(t *testing.T, mutate func(*Config), opts ...func(*Builder)) *testEnv {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	mr, rdb := newTestRedis(t)
	records := newFakeRecords()

	b := New().WithConfig(cfg).WithRedis(rdb).WithRecordStore(records)
	for _, opt := range opts {
		opt(b)
	}
	engine, err := b.Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	return &testEnv{engine: engine, mr: mr, rdb: rdb, records: records}
}

func (env *testEnv) accessToken(t *testing.T, id, role string) string {
	t.Helper()
	pair, err := env.engine.Tokens().GenerateTokens(jwt.Subject{ID: id, Role: role})
	require.NoError(t, err)
	return pair.AccessToken
}

// putRefreshRecord writes sessionId:<sid> with the given refresh token.
func (env *testEnv) putRefreshRecord(t *testing.T, sid, refreshToken, userID, role string) {
	t.Helper()
	err := env.engine.Sessions().SaveRecord(context.Background(), session.RefreshKey(sid), &session.Record{
		RefreshToken: refreshToken,
		User:         session.Snapshot{ID: userID, Role: role},
	}, time.Hour)
	require.NoError(t, err)
}

// putCSRFRecord writes sessionId:<uid>:<sid> holding csrf.
func (env *testEnv) putCSRFRecord(t *testing.T, userID, sid, csrf string) {
	t.Helper()
	err := env.engine.Sessions().SaveRecord(context.Background(), session.CSRFKey(userID, sid), &session.Record{
		CSRFToken: csrf,
		User:      session.Snapshot{ID: userID},
	}, time.Hour)
	require.NoError(t, err)
}

func signExpiredAccess(t *testing.T, id, role string) string {
	t.Helper()
	past := time.Now().Add(-time.Hour)
	claims := jwt.Claims{
		User: jwt.Subject{ID: id, Role: role},
		Type: jwt.TypeAccess,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   id,
			IssuedAt:  jwtlib.NewNumericDate(past.Add(-time.Minute)),
			ExpiresAt: jwtlib.NewNumericDate(past),
		},
	}
	s, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(testAccessSecret)
	require.NoError(t, err)
	return s
}

func cookieRequest(method, path, accessToken, sessionID string) Request {
	return Request{
		Method:      method,
		Path:        path,
		HasCookies:  true,
		AccessToken: accessToken,
		SessionID:   sessionID,
		ClientIP:    "203.0.113.10",
	}
}

func requireKind(t *testing.T, err error, sentinel error, status int) {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, sentinel), "expected %v, got %v", sentinel, err)
	require.Equal(t, status, HTTPStatus(err))
}

func subject(id, role string) jwt.Subject {
	return jwt.Subject{ID: id, Role: role}
}

type panicRecords struct{}

func (panicRecords) FindAPIKeyByKey(context.Context, string) (*permission.APIKey, error) {
	panic("record store exploded")
}

func (panicRecords) FindRoleByName(context.Context, string) (*permission.Role, error) {
	panic("record store exploded")
}
