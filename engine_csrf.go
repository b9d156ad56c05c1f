package authgate

import (
	"context"

	internalaudit "github.com/MrEthical07/authgate/internal/audit"
	"github.com/MrEthical07/authgate/internal/flows"
	"go.uber.org/zap"
)

// CheckCSRF describes the checkcsrf operation and its observable behavior.
//
// CheckCSRF compares the request's CSRF token with the one stored at
// sessionId:<userId>:<sessionId> for non-read requests to protected paths.
// Requests authenticated by API key skip the check.
func (e *Engine) CheckCSRF(ctx context.Context, req Request, auth *AuthResult) (err error) {
	if !e.ready() {
		return newError(KindInternal, ErrEngineNotReady, nil)
	}
	if !e.config.CSRF.Enabled || req.IsPreflight() {
		return nil
	}
	if auth != nil && auth.SkipCSRF {
		return nil
	}

	ctx, span := e.startSpan(ctx, "csrf", req)
	defer func() { endSpan(span, err) }()
	defer e.recoverStage("csrf", &err, nil)

	var identity *Identity
	if auth != nil {
		identity = auth.Identity
	}

	res := e.flows.CSRF(ctx, flows.CSRFRequest{
		Method:    req.Method,
		Path:      req.Path,
		Identity:  toFlowIdentity(identity),
		SessionID: req.SessionID,
		CSRFToken: req.CSRFToken,
	})
	if res.Checked {
		e.metricInc(MetricCSRFChecked)
	}

	switch res.Failure {
	case flows.CSRFFailureNone:
		return nil
	case flows.CSRFFailureMissing:
		err = newError(KindForbidden, ErrCSRFMissing, nil)
	case flows.CSRFFailureUnauthenticated:
		err = newError(KindUnauthenticated, ErrMissingCredentials, nil)
	case flows.CSRFFailureInvalidSession:
		err = newError(KindForbidden, ErrCSRFInvalidSession, res.Err)
	case flows.CSRFFailureMismatch:
		err = newError(KindForbidden, ErrCSRFMismatch, nil)
	default:
		e.logger.Error("csrf check failed", zap.String("path", req.Path), zap.Error(res.Err))
		err = newError(KindForbidden, ErrCSRFCheckFailed, res.Err)
	}

	userID := ""
	if identity != nil {
		userID = identity.ID
	}
	e.metricInc(MetricCSRFRejected)
	e.emitAudit(ctx, internalaudit.EventCSRFRejected, false, req, userID, err, nil)
	return err
}
