package permission

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRoleNotFound is returned when a role name does not resolve to a role.
var ErrRoleNotFound = errors.New("role not found")

// RoleLookup resolves a role by name from the store of record.
// Implementations return (nil, nil) or [ErrRoleNotFound] on a miss.
type RoleLookup func(ctx context.Context, name string) (*Role, error)

type cachedRole struct {
	role    *Role
	expires time.Time
}

// RoleCache defines a public type used by authgate APIs.
//
// RoleCache fronts a [RoleLookup] with a short-lived in-process cache shared by
// all requests. Misses and lookup errors are never cached. A zero TTL disables
// caching and every call goes to the lookup.
type RoleCache struct {
	lookup RoleLookup
	ttl    time.Duration
	now    func() time.Time

	mu    sync.RWMutex
	roles map[string]cachedRole
}

// NewRoleCache describes the newrolecache operation and its observable behavior.
//
// NewRoleCache does not perform I/O; lookups happen lazily on [RoleCache.Resolve].
func NewRoleCache(lookup RoleLookup, ttl time.Duration) *RoleCache {
	if ttl < 0 {
		ttl = 0
	}
	return &RoleCache{
		lookup: lookup,
		ttl:    ttl,
		now:    time.Now,
		roles:  make(map[string]cachedRole),
	}
}

// Resolve returns the role named name. An empty name or a miss returns
// [ErrRoleNotFound]; lookup failures are returned unchanged.
func (rc *RoleCache) Resolve(ctx context.Context, name string) (*Role, error) {
	if name == "" {
		return nil, ErrRoleNotFound
	}
	if rc == nil || rc.lookup == nil {
		return nil, errors.New("role lookup not configured")
	}

	if rc.ttl > 0 {
		rc.mu.RLock()
		entry, ok := rc.roles[name]
		rc.mu.RUnlock()
		if ok && rc.now().Before(entry.expires) {
			return entry.role, nil
		}
	}

	role, err := rc.lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, ErrRoleNotFound
	}

	if rc.ttl > 0 {
		rc.mu.Lock()
		rc.roles[name] = cachedRole{role: role, expires: rc.now().Add(rc.ttl)}
		rc.mu.Unlock()
	}

	return role, nil
}

// Invalidate drops a cached role so the next Resolve reads the store of record.
func (rc *RoleCache) Invalidate(name string) {
	if rc == nil {
		return
	}
	rc.mu.Lock()
	delete(rc.roles, name)
	rc.mu.Unlock()
}

// Purge drops every cached role.
func (rc *RoleCache) Purge() {
	if rc == nil {
		return
	}
	rc.mu.Lock()
	rc.roles = make(map[string]cachedRole)
	rc.mu.Unlock()
}

// Count returns the number of cached roles, expired entries included.
func (rc *RoleCache) Count() int {
	if rc == nil {
		return 0
	}
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return len(rc.roles)
}
