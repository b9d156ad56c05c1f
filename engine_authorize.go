package authgate

import (
	"context"

	internalaudit "github.com/MrEthical07/authgate/internal/audit"
	"github.com/MrEthical07/authgate/internal/flows"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Authorize describes the authorize operation and its observable behavior.
//
// Authorize applies the route's permission requirement to identity. API-key
// callers must also hold the capability owning the request path, then pass
// the same role check as token callers. In demo mode, mutating requests
// under the admin prefix are refused to everyone but Super Admin.
func (e *Engine) Authorize(ctx context.Context, req Request, route Route, identity *Identity) (err error) {
	if !e.ready() {
		return newError(KindInternal, ErrEngineNotReady, nil)
	}
	if route.Permission == "" {
		return nil
	}

	ctx, span := e.startSpan(ctx, "roles_gate", req)
	span.SetAttributes(attribute.String("authgate.route.permission", route.Permission))
	defer func() { endSpan(span, err) }()
	defer e.recoverStage("roles_gate", &err, nil)

	apiKey := ""
	if identity != nil && identity.APIKey {
		apiKey = req.APIKey
	}

	res := e.flows.RolesGate(ctx, flows.GateRequest{
		Method:     req.Method,
		Path:       req.Path,
		Permission: route.Permission,
		Identity:   toFlowIdentity(identity),
		APIKey:     apiKey,
	})

	event := internalaudit.EventAccessDenied
	switch res.Failure {
	case flows.GateFailureNone:
		return nil
	case flows.GateFailureUnauthenticated:
		err = newError(KindUnauthenticated, ErrMissingCredentials, nil)
	case flows.GateFailureAPIKeyInvalid:
		err = newError(KindUnauthenticated, ErrInvalidAPIKey, res.Err)
	case flows.GateFailureCapability:
		e.metricInc(MetricCapabilityDenied)
		err = newError(KindForbidden, ErrPermissionDenied, res.Err)
	case flows.GateFailureRoleLookup:
		e.metricInc(MetricRoleDenied)
		e.logger.Warn("role lookup failed", zap.String("role", identity.Role), zap.Error(res.Err))
		err = newError(KindForbidden, ErrPermissionDenied, res.Err)
	case flows.GateFailurePermission:
		e.metricInc(MetricRoleDenied)
		err = newError(KindForbidden, ErrPermissionDenied, nil)
	case flows.GateFailureDemoMode:
		e.metricInc(MetricDemoModeDenied)
		event = internalaudit.EventDemoModeDenied
		err = newError(KindForbidden, ErrDemoMode, nil)
	default:
		err = newError(KindForbidden, ErrPermissionDenied, res.Err)
	}

	userID := ""
	if identity != nil {
		userID = identity.ID
	}
	e.emitAudit(ctx, event, false, req, userID, err, func() map[string]string {
		meta := map[string]string{"permission": route.Permission}
		if res.Capability != "" {
			meta["capability"] = res.Capability
		}
		return meta
	})
	return err
}
