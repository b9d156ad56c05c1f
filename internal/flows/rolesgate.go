package flows

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/authgate/permission"
)

// GateFailureKind classifies authorization gate failures for root-level mapping.
type GateFailureKind int

const (
	GateFailureNone GateFailureKind = iota
	GateFailureUnauthenticated
	GateFailureAPIKeyInvalid
	GateFailureCapability
	GateFailureRoleLookup
	GateFailurePermission
	GateFailureDemoMode
)

// GateRequest carries the inputs of one authorization decision.
type GateRequest struct {
	Method     string
	Path       string
	Permission string
	Identity   *Identity
	APIKey     string
}

// GateResult is the outcome of the authorization gate.
type GateResult struct {
	Failure    GateFailureKind
	Err        error
	Capability string
	Role       *permission.Role
}

// GateDeps captures authorization gate dependencies.
type GateDeps struct {
	Keys            APIKeyLookup
	Roles           RoleResolver
	Capabilities    permission.CapabilityMap
	DemoMode        bool
	AdminPathPrefix string
	MutatingMethods map[string]struct{}
}

// RunRolesGate decides whether the identity may call a route declaring
// req.Permission. API-key scope and role permission are stacked conditions.
func RunRolesGate(ctx context.Context, req GateRequest, deps GateDeps) GateResult {
	if req.Permission == "" {
		return GateResult{}
	}
	if req.Identity == nil {
		return GateResult{Failure: GateFailureUnauthenticated}
	}

	var result GateResult
	if req.APIKey != "" {
		if deps.Keys == nil {
			return GateResult{Failure: GateFailureAPIKeyInvalid, Err: errors.New("api key lookup not configured")}
		}
		record, err := deps.Keys.FindAPIKeyByKey(ctx, req.APIKey)
		if err != nil {
			return GateResult{Failure: GateFailureAPIKeyInvalid, Err: err}
		}
		if record == nil {
			return GateResult{Failure: GateFailureAPIKeyInvalid, Err: errors.New("api key not found")}
		}
		perms, err := record.PermissionList()
		if err != nil {
			return GateResult{Failure: GateFailureCapability, Err: err}
		}
		if capability, owned := deps.Capabilities.Lookup(req.Path); owned {
			result.Capability = capability
			if !permission.Contains(perms, capability) {
				return GateResult{Failure: GateFailureCapability, Capability: capability}
			}
		}
	}

	role, err := deps.Roles.Resolve(ctx, req.Identity.Role)
	if err != nil {
		return GateResult{Failure: GateFailureRoleLookup, Err: err, Capability: result.Capability}
	}
	result.Role = role

	if !role.Allows(req.Permission) {
		result.Failure = GateFailurePermission
		return result
	}

	if deps.DemoMode && !role.IsSuperAdmin() && isMutating(req.Method, deps.MutatingMethods) &&
		deps.AdminPathPrefix != "" && strings.HasPrefix(req.Path, deps.AdminPathPrefix) {
		result.Failure = GateFailureDemoMode
		return result
	}

	return result
}

func isMutating(method string, set map[string]struct{}) bool {
	_, ok := set[strings.ToUpper(method)]
	return ok
}
