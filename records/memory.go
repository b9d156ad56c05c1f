package records

import (
	"context"
	"fmt"
	"sync"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/permission"
)

var (
	_ authgate.RecordStore      = (*Memory)(nil)
	_ authgate.UserRoleResolver = (*Memory)(nil)
	_ Writer                    = (*Memory)(nil)
	_ authgate.RecordStore      = (*SQLite)(nil)
	_ authgate.UserRoleResolver = (*SQLite)(nil)
	_ Writer                    = (*SQLite)(nil)
)

// Memory is an in-memory record store.
type Memory struct {
	keys      map[string]*permission.APIKey
	roles     map[string]*permission.Role
	userRoles map[string]string
	mu        sync.RWMutex
}

// NewMemory creates an empty in-memory record store.
func NewMemory() *Memory {
	return &Memory{
		keys:      make(map[string]*permission.APIKey),
		roles:     make(map[string]*permission.Role),
		userRoles: make(map[string]string),
	}
}

// FindAPIKeyByKey returns the key record, or an error wrapping
// [authgate.ErrRecordNotFound].
func (s *Memory) FindAPIKeyByKey(ctx context.Context, key string) (*permission.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	k, ok := s.keys[key]
	if !ok {
		return nil, fmt.Errorf("api key: %w", authgate.ErrRecordNotFound)
	}
	out := *k
	return &out, nil
}

// FindRoleByName returns (nil, nil) on a miss.
func (s *Memory) FindRoleByName(ctx context.Context, name string) (*permission.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.roles[name]
	if !ok {
		return nil, nil
	}
	return &permission.Role{Name: r.Name, Permissions: append([]string(nil), r.Permissions...)}, nil
}

// FindUserRole returns the role name assigned to userID.
func (s *Memory) FindUserRole(ctx context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	role, ok := s.userRoles[userID]
	if !ok {
		return "", fmt.Errorf("user %q: %w", userID, authgate.ErrRecordNotFound)
	}
	return role, nil
}

// PutRole creates or replaces a role.
func (s *Memory) PutRole(ctx context.Context, role permission.Role) error {
	if role.Name == "" {
		return ErrEmptyName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[role.Name] = &permission.Role{Name: role.Name, Permissions: append([]string(nil), role.Permissions...)}
	return nil
}

// PutUser assigns role to userID.
func (s *Memory) PutUser(ctx context.Context, userID, role string) error {
	if userID == "" {
		return ErrEmptyName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userRoles[userID] = role
	return nil
}

// PutAPIKey creates or replaces an API key. The permission list is stored
// as given.
func (s *Memory) PutAPIKey(ctx context.Context, key permission.APIKey) error {
	if key.Key == "" {
		return ErrEmptyName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key.Key] = &key
	return nil
}

// DeleteAPIKey revokes key. Deleting an unknown key is not an error.
func (s *Memory) DeleteAPIKey(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}

// Count returns the number of API keys, roles and users held.
func (s *Memory) Count() (keys, roles, users int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys), len(s.roles), len(s.userRoles)
}
