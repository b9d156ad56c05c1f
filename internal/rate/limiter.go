package rate

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const keyPrefix = "rateLimit:"

// Defaults applied when Config leaves a field zero.
const (
	DefaultLimit  = 100
	DefaultWindow = 60 * time.Second
)

// Counter is the subset of the session store used for rate limiting.
type Counter interface {
	GetCounter(ctx context.Context, key string) (int64, bool, error)
	IncrWithExpire(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Config holds rate limiter tuning parameters.
type Config struct {
	Limit  int
	Window time.Duration
}

// Decision reports the counter state after an admitted request.
type Decision struct {
	Count     int64
	Remaining int64
}

// Limiter enforces a per-client request budget over a fixed window.
type Limiter struct {
	store  Counter
	config Config
}

// New creates a rate [Limiter] backed by store.
func New(store Counter, cfg Config) *Limiter {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	return &Limiter{store: store, config: cfg}
}

// Config returns the effective limiter configuration.
func (l *Limiter) Config() Config {
	return l.config
}

// Key returns the counter key for a client address.
func Key(clientIP string) string {
	return keyPrefix + clientIP
}

// Check admits or rejects one request from clientIP.
// It returns [ErrRateLimited] when the budget is spent and wraps
// [ErrStoreUnavailable] on any store failure.
func (l *Limiter) Check(ctx context.Context, clientIP string) (Decision, error) {
	key := Key(clientIP)
	limit := int64(l.config.Limit)

	current, _, err := l.store.GetCounter(ctx, key)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if current >= limit {
		return Decision{Count: current}, ErrRateLimited
	}

	count, err := l.store.IncrWithExpire(ctx, key, l.config.Window)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Count: count, Remaining: remaining}, nil
}

// IsRateLimited reports whether err is a budget rejection rather than a store fault.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
