package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("session key not found")

// ErrRedisUnavailable is returned when a command could not be completed.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrRecordChanged is returned when a watched record was modified by another
// writer before a rewrite could commit.
var ErrRecordChanged = errors.New("session record changed concurrently")

const keyPrefix = "sessionId:"

// RefreshKey returns the key of the record read by the refresh flow.
func RefreshKey(sessionID string) string {
	return keyPrefix + sessionID
}

// CSRFKey returns the key of the record read by the CSRF guard.
func CSRFKey(userID, sessionID string) string {
	return keyPrefix + userID + ":" + sessionID
}

// RedisConfig defines a public type used by authgate APIs.
//
// RedisConfig instances are intended to be configured during initialization and
// then treated as immutable.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

var (
	sharedMu     sync.Mutex
	sharedClient *redis.Client
)

// SharedClient returns the process-wide Redis client, creating it from cfg on
// first use. Later calls return the same client and ignore cfg. go-redis dials
// lazily, so no connection is made until the first command.
func SharedClient(cfg RedisConfig) *redis.Client {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if sharedClient == nil {
		sharedClient = redis.NewClient(&redis.Options{
			Addr:         cfg.Addr,
			Password:     cfg.Password,
			DB:           cfg.DB,
			PoolSize:     cfg.PoolSize,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		})
	}
	return sharedClient
}

// CloseSharedClient closes the process-wide client. A later [SharedClient]
// call creates a fresh one.
func CloseSharedClient() error {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if sharedClient == nil {
		return nil
	}
	err := sharedClient.Close()
	sharedClient = nil
	return err
}

// Store is a thin Redis wrapper exposing the primitives used by the pipeline.
// It is safe for concurrent use.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a [Store] backed by client. A non-empty prefix namespaces
// every key as "<prefix>:<key>".
func NewStore(client redis.UniversalClient, prefix string) *Store {
	return &Store{redis: client, prefix: prefix}
}

// Client returns the underlying Redis client.
func (s *Store) Client() redis.UniversalClient {
	return s.redis
}

func (s *Store) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
}

// Get returns the string stored at key, or [ErrNotFound].
//
//	Performance: 1 Redis GET.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.redis.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", unavailable(err)
	}
	return v, nil
}

// Set stores value at key. A zero ttl stores without expiry.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// SetKeepTTL overwrites the value at an existing key without touching its
// remaining TTL. A missing key is never created; it returns [ErrNotFound].
func (s *Store) SetKeepTTL(ctx context.Context, key, value string) error {
	err := s.redis.SetArgs(ctx, s.key(key), value, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return unavailable(err)
	}
	return nil
}

// Incr increments the counter at key and returns the new value.
func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	n, err := s.redis.Incr(ctx, s.key(key)).Result()
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

// Expire sets the TTL of key. It reports whether the key existed.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.redis.Expire(ctx, s.key(key), ttl).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return ok, nil
}

// Multi runs fn inside a MULTI/EXEC transaction. Keys passed to the pipeliner
// are used as-is; callers building keys should use [Store.Key].
func (s *Store) Multi(ctx context.Context, fn func(redis.Pipeliner) error) error {
	if _, err := s.redis.TxPipelined(ctx, fn); err != nil {
		return unavailable(err)
	}
	return nil
}

// Key returns the namespaced form of key as written to Redis.
func (s *Store) Key(key string) string {
	return s.key(key)
}

// IncrWithExpire increments the counter at key and refreshes its TTL in one
// MULTI/EXEC unit, returning the new count.
//
//	Performance: 1 round trip (MULTI, INCR, EXPIRE, EXEC).
func (s *Store) IncrWithExpire(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	k := s.key(key)
	var incr *redis.IntCmd
	err := s.Multi(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.Expire(ctx, k, ttl)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// GetCounter reads the integer counter at key. found is false when the key
// does not exist.
func (s *Store) GetCounter(ctx context.Context, key string) (int64, bool, error) {
	v, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, true, fmt.Errorf("counter %q: %w", key, err)
	}
	return n, true, nil
}

// LoadRecord reads and decodes the session record at key.
// It returns [ErrNotFound] on a miss and [ErrCorruptRecord] on a bad blob.
func (s *Store) LoadRecord(ctx context.Context, key string) (*Record, error) {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return DecodeRecord([]byte(raw))
}

// SaveRecord encodes r and stores it at key with ttl.
func (s *Store) SaveRecord(ctx context.Context, key string, r *Record, ttl time.Duration) error {
	data, err := EncodeRecord(r)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, string(data), ttl)
}

// ReplaceRecord overwrites the record at key, keeping its remaining TTL.
// It returns [ErrNotFound] when the record has expired or been deleted.
func (s *Store) ReplaceRecord(ctx context.Context, key string, r *Record) error {
	data, err := EncodeRecord(r)
	if err != nil {
		return err
	}
	return s.SetKeepTTL(ctx, key, string(data))
}

// ReplaceRefreshToken rewrites only the refreshToken field of the record at
// key. The stored user snapshot and any unknown top-level fields are written
// back as found. The rewrite runs under WATCH so a record
// deleted or changed after the read is never recreated or clobbered; those
// cases return [ErrNotFound] and [ErrRecordChanged].
//
//	Performance: WATCH, GET, MULTI, SET XX KEEPTTL, EXEC.
func (s *Store) ReplaceRefreshToken(ctx context.Context, key, refreshToken string) error {
	k := s.key(key)
	err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, k).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			return unavailable(err)
		}
		patched, err := patchRefreshToken(raw, refreshToken)
		if err != nil {
			return err
		}

		var set *redis.StatusCmd
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			set = pipe.SetArgs(ctx, k, patched, redis.SetArgs{Mode: "XX", KeepTTL: true})
			return nil
		})
		switch {
		case errors.Is(err, redis.TxFailedErr):
			return ErrRecordChanged
		case errors.Is(err, redis.Nil), set != nil && errors.Is(set.Err(), redis.Nil):
			return ErrNotFound
		case err != nil:
			return unavailable(err)
		}
		return nil
	}, k)
	return err
}

// Delete removes keys. Missing keys are ignored.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	if err := s.redis.Del(ctx, full...).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// Ping round-trips a PING and returns the observed latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, unavailable(err)
	}
	return time.Since(start), nil
}
