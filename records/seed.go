package records

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/MrEthical07/authgate/permission"
	"gopkg.in/yaml.v3"
)

// ErrEmptyName is returned when a record is written without its identifying name.
var ErrEmptyName = errors.New("record name must not be empty")

// User assigns a role to a user id.
type User struct {
	ID   string `yaml:"id"`
	Role string `yaml:"role"`
}

// Seed is the YAML document read by [LoadSeed].
//
//	roles:
//	  - name: Admin
//	    permissions: ["Access Admin Dashboard"]
//	users:
//	  - id: u1
//	    role: Admin
//	apiKeys:
//	  - key: k-1
//	    userId: u1
//	    type: plugin
//	    permissions: ["withdraw"]
type Seed struct {
	Roles   []permission.Role   `yaml:"roles"`
	Users   []User              `yaml:"users"`
	APIKeys []permission.APIKey `yaml:"apiKeys"`
}

// Writer is implemented by stores that can be seeded.
type Writer interface {
	PutRole(ctx context.Context, role permission.Role) error
	PutUser(ctx context.Context, userID, role string) error
	PutAPIKey(ctx context.Context, key permission.APIKey) error
}

// LoadSeed decodes a seed document. Unknown fields are rejected and every
// API key permission list must parse.
func LoadSeed(r io.Reader) (*Seed, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var seed Seed
	if err := dec.Decode(&seed); err != nil {
		if errors.Is(err, io.EOF) {
			return &seed, nil
		}
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	for i, k := range seed.APIKeys {
		if _, err := k.PermissionList(); err != nil {
			return nil, fmt.Errorf("apiKeys[%d]: %w", i, err)
		}
	}
	return &seed, nil
}

// Apply writes every record of s to w, roles first.
func (s *Seed) Apply(ctx context.Context, w Writer) error {
	for _, r := range s.Roles {
		if err := w.PutRole(ctx, r); err != nil {
			return fmt.Errorf("role %q: %w", r.Name, err)
		}
	}
	for _, u := range s.Users {
		if err := w.PutUser(ctx, u.ID, u.Role); err != nil {
			return fmt.Errorf("user %q: %w", u.ID, err)
		}
	}
	for _, k := range s.APIKeys {
		if err := w.PutAPIKey(ctx, k); err != nil {
			return fmt.Errorf("api key for %q: %w", k.UserID, err)
		}
	}
	return nil
}
