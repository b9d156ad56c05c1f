package flows

import (
	"context"

	"github.com/MrEthical07/authgate/permission"
)

// MaintenanceFailureKind classifies maintenance gate failures for root-level mapping.
type MaintenanceFailureKind int

const (
	MaintenanceFailureNone MaintenanceFailureKind = iota
	MaintenanceFailureUnauthenticated
	MaintenanceFailureRoleLookup
	MaintenanceFailureLocked
)

// MaintenanceResult is the outcome of the maintenance gate.
type MaintenanceResult struct {
	Failure MaintenanceFailureKind
	Err     error
}

// MaintenanceDeps captures maintenance gate dependencies.
type MaintenanceDeps struct {
	Enabled bool
	Roles   RoleResolver
}

// RunMaintenance admits only Super Admin or admin-dashboard roles while
// maintenance mode is on. Route permissions play no part.
func RunMaintenance(ctx context.Context, identity *Identity, deps MaintenanceDeps) MaintenanceResult {
	if !deps.Enabled {
		return MaintenanceResult{}
	}
	if identity == nil {
		return MaintenanceResult{Failure: MaintenanceFailureUnauthenticated}
	}

	role, err := deps.Roles.Resolve(ctx, identity.Role)
	if err != nil {
		return MaintenanceResult{Failure: MaintenanceFailureRoleLookup, Err: err}
	}
	if !role.Allows(permission.AdminDashboard) {
		return MaintenanceResult{Failure: MaintenanceFailureLocked}
	}
	return MaintenanceResult{}
}
