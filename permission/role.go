package permission

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	// SuperAdmin is the role name that satisfies every permission check and is
	// exempt from the demo-mode write freeze.
	SuperAdmin = "Super Admin"

	// AdminDashboard is the permission that grants access while the system is
	// in maintenance mode.
	AdminDashboard = "Access Admin Dashboard"

	// KeyTypePlugin marks API keys issued to plugins.
	KeyTypePlugin = "plugin"
)

// ErrInvalidPermissionList is returned when a stored permission list cannot be parsed.
var ErrInvalidPermissionList = errors.New("invalid permission list")

// Role defines a public type used by authgate APIs.
//
// Role instances are read from the store of record and treated as immutable.
type Role struct {
	Name        string   `json:"name" yaml:"name"`
	Permissions []string `json:"permissions" yaml:"permissions"`
}

// IsSuperAdmin reports whether r is the Super Admin sentinel role.
func (r *Role) IsSuperAdmin() bool {
	return r != nil && r.Name == SuperAdmin
}

// Has reports whether the role's permission list contains perm exactly.
func (r *Role) Has(perm string) bool {
	if r == nil {
		return false
	}
	for _, p := range r.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// Allows reports whether the role satisfies perm, either by holding it or by
// being the Super Admin sentinel.
func (r *Role) Allows(perm string) bool {
	return r.IsSuperAdmin() || r.Has(perm)
}

// APIKey defines a public type used by authgate APIs.
//
// Permissions holds the list as it came out of the store of record: either a
// JSON-encoded string or an already structured list. Use [ParseList] to read it.
type APIKey struct {
	Key         string `json:"key" yaml:"key"`
	UserID      string `json:"userId" yaml:"userId"`
	Type        string `json:"type" yaml:"type"`
	Permissions any    `json:"permissions" yaml:"permissions"`
}

// IsPlugin reports whether the key was issued to a plugin.
func (k *APIKey) IsPlugin() bool {
	return k != nil && k.Type == KeyTypePlugin
}

// PermissionList parses the key's stored permissions.
func (k *APIKey) PermissionList() ([]string, error) {
	if k == nil {
		return nil, nil
	}
	return ParseList(k.Permissions)
}

// ParseList normalizes a stored permission list. It accepts a JSON array
// encoded as a string or bytes, a []string, a []any of strings, or nil.
func ParseList(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return []string{}, nil
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: non-string entry %T", ErrInvalidPermissionList, item)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		return parseEncodedList([]byte(v))
	case []byte:
		return parseEncodedList(v)
	case json.RawMessage:
		return parseEncodedList(v)
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrInvalidPermissionList, raw)
	}
}

func parseEncodedList(data []byte) ([]string, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return []string{}, nil
	}

	var out []string
	if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPermissionList, err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// Contains reports whether list holds name.
func Contains(list []string, name string) bool {
	for _, item := range list {
		if item == name {
			return true
		}
	}
	return false
}
