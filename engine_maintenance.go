package authgate

import (
	"context"

	internalaudit "github.com/MrEthical07/authgate/internal/audit"
	"github.com/MrEthical07/authgate/internal/flows"
	"go.uber.org/zap"
)

// CheckMaintenance describes the checkmaintenance operation and its observable behavior.
//
// While maintenance mode is on only Super Admin and roles holding
// "Access Admin Dashboard" pass. Route permissions play no part.
func (e *Engine) CheckMaintenance(ctx context.Context, req Request, identity *Identity) (err error) {
	if !e.ready() {
		return newError(KindInternal, ErrEngineNotReady, nil)
	}
	if !e.config.Maintenance.Enabled {
		return nil
	}

	ctx, span := e.startSpan(ctx, "maintenance", req)
	defer func() { endSpan(span, err) }()
	defer e.recoverStage("maintenance", &err, nil)

	res := e.flows.Maintenance(ctx, toFlowIdentity(identity))
	switch res.Failure {
	case flows.MaintenanceFailureNone:
		return nil
	case flows.MaintenanceFailureUnauthenticated:
		err = newError(KindUnauthenticated, ErrMissingCredentials, nil)
	case flows.MaintenanceFailureRoleLookup:
		e.logger.Warn("role lookup failed during maintenance", zap.Error(res.Err))
		err = newError(KindForbidden, ErrMaintenance, res.Err)
	default:
		err = newError(KindForbidden, ErrMaintenance, nil)
	}

	userID := ""
	if identity != nil {
		userID = identity.ID
	}
	e.metricInc(MetricMaintenanceDenied)
	e.emitAudit(ctx, internalaudit.EventMaintenanceBlock, false, req, userID, err, nil)
	return err
}
