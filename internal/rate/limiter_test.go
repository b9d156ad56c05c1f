package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/authgate/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiterTest(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(session.NewStore(rdb, ""), cfg), mr
}

func TestLimiterRejectsAfterBudgetAndRecoversAfterWindow(t *testing.T) {
	l, mr := newLimiterTest(t, Config{Limit: 3, Window: 10 * time.Second})
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		d, err := l.Check(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, i, d.Count)
		assert.Equal(t, 3-i, d.Remaining)
	}

	_, err := l.Check(ctx, "10.0.0.1")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.True(t, IsRateLimited(err))

	got, err := mr.Get(Key("10.0.0.1"))
	require.NoError(t, err)
	assert.Equal(t, "3", got, "rejected requests must not increment")

	mr.FastForward(11 * time.Second)

	d, err := l.Check(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.Count)
}

func TestLimiterIsolatesClients(t *testing.T) {
	l, _ := newLimiterTest(t, Config{Limit: 1, Window: time.Minute})
	ctx := context.Background()

	_, err := l.Check(ctx, "a")
	require.NoError(t, err)
	_, err = l.Check(ctx, "b")
	require.NoError(t, err)
	_, err = l.Check(ctx, "a")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestLimiterDefaults(t *testing.T) {
	l := New(nil, Config{})
	assert.Equal(t, DefaultLimit, l.Config().Limit)
	assert.Equal(t, DefaultWindow, l.Config().Window)
}

type failingCounter struct {
	getErr  error
	incrErr error
}

func (f failingCounter) GetCounter(context.Context, string) (int64, bool, error) {
	return 0, false, f.getErr
}

func (f failingCounter) IncrWithExpire(context.Context, string, time.Duration) (int64, error) {
	return 0, f.incrErr
}

func TestLimiterStoreFailures(t *testing.T) {
	boom := errors.New("boom")

	_, err := New(failingCounter{getErr: boom}, Config{}).Check(context.Background(), "ip")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.False(t, IsRateLimited(err))

	_, err = New(failingCounter{incrErr: boom}, Config{}).Check(context.Background(), "ip")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
