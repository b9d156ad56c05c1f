package flows

import (
	"context"

	"github.com/MrEthical07/authgate/permission"
)

// Identity is the caller resolved by the authenticate or refresh flow.
// Root converts it into the public authgate.Identity.
type Identity struct {
	ID          string
	Role        string
	Permissions []string
	APIKey      bool
}

// APIKeyLookup reads API-key records from the store of record.
// A miss is reported as (nil, nil) or as an error; both deny.
type APIKeyLookup interface {
	FindAPIKeyByKey(ctx context.Context, key string) (*permission.APIKey, error)
}

// RoleResolver resolves a role by name, typically through permission.RoleCache.
type RoleResolver interface {
	Resolve(ctx context.Context, name string) (*permission.Role, error)
}
