package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/authgate/jwt"
	"github.com/MrEthical07/authgate/permission"
	"github.com/MrEthical07/authgate/session"
	"github.com/stretchr/testify/require"
)

var errNotFound = errors.New("not found")

type fakeSessions struct {
	records  map[string]*session.Record
	loadErr  error
	writeErr error
	writes   map[string]*session.Record
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{records: map[string]*session.Record{}, writes: map[string]*session.Record{}}
}

func (f *fakeSessions) LoadRecord(_ context.Context, key string) (*session.Record, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	rec, ok := f.records[key]
	if !ok {
		return nil, errNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeSessions) ReplaceRefreshToken(_ context.Context, key, refreshToken string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	rec, ok := f.records[key]
	if !ok {
		return session.ErrNotFound
	}
	cp := *rec
	cp.RefreshToken = refreshToken
	f.writes[key] = &cp
	f.records[key] = &cp
	return nil
}

type fakeKeys struct {
	keys  map[string]*permission.APIKey
	err   error
	calls int
}

func (f *fakeKeys) FindAPIKeyByKey(_ context.Context, key string) (*permission.APIKey, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.keys[key], nil
}

type fakeRoles map[string]*permission.Role

func (f fakeRoles) Resolve(_ context.Context, name string) (*permission.Role, error) {
	role, ok := f[name]
	if !ok {
		return nil, permission.ErrRoleNotFound
	}
	return role, nil
}

func newTestManager(t *testing.T) *jwt.Manager {
	t.Helper()
	m, err := jwt.NewManager(jwt.Config{
		AccessTTL:         time.Minute,
		RefreshTTL:        time.Hour,
		SigningMethod:     jwt.MethodHS256,
		AccessPrivateKey:  []byte("flows-access-secret-0123456789ab"),
		RefreshPrivateKey: []byte("flows-refresh-secret-0123456789a"),
	})
	require.NoError(t, err)
	return m
}

func refreshDeps(m *jwt.Manager, store *fakeSessions) RefreshDeps {
	return RefreshDeps{
		Sessions:       store,
		VerifyRefresh:  m.VerifyRefreshToken,
		RefreshTokens:  m.RefreshTokens,
		GenerateTokens: m.GenerateTokens,
		PersistRotated: true,
		NotFound:       errNotFound,
	}
}
