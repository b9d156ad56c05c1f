package authgate

import (
	"context"
	"fmt"

	internalaudit "github.com/MrEthical07/authgate/internal/audit"
	"github.com/MrEthical07/authgate/internal/flows"
	"go.uber.org/zap"
)

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh runs only the session refresh flow for req.SessionID, ignoring any
// access token. It is meant for explicit refresh endpoints; the pipeline
// reaches the same flow through [Engine.Authenticate].
func (e *Engine) Refresh(ctx context.Context, req Request) (result *AuthResult, err error) {
	if !e.ready() {
		return nil, newError(KindInternal, ErrEngineNotReady, nil)
	}

	ctx, span := e.startSpan(ctx, "refresh", req)
	defer func() { endSpan(span, err) }()
	defer e.recoverStage("refresh", &err, func() { result = nil })

	res := e.flows.Refresh(ctx, req.SessionID)
	if res.Failure != flows.RefreshFailureNone {
		return nil, e.refreshFailure(ctx, req, &res)
	}

	e.refreshSucceeded(ctx, req, &res)
	return &AuthResult{
		Identity: fromFlowIdentity(res.Identity),
		Method:   AuthRefresh,
		Tokens:   res.Tokens,
	}, nil
}

func (e *Engine) refreshSucceeded(ctx context.Context, req Request, res *flows.RefreshResult) {
	e.metricInc(MetricRefreshSuccess)

	userID := ""
	if res.Identity != nil {
		userID = res.Identity.ID
	}

	if res.Fallback {
		e.metricInc(MetricRefreshFallback)
		e.logger.Warn("stored refresh token rejected, minted from session snapshot",
			zap.String("user_id", userID),
			zap.Error(res.FallbackErr),
		)
		e.emitAudit(ctx, internalaudit.EventRefreshFallback, true, req, userID, nil, func() map[string]string {
			return map[string]string{"reason": res.FallbackErr.Error()}
		})
	} else {
		e.emitAudit(ctx, internalaudit.EventRefreshSuccess, true, req, userID, nil, nil)
	}

	if res.PersistErr != nil {
		e.metricInc(MetricRefreshPersistFailure)
		e.logger.Error("rotated refresh token not persisted",
			zap.String("user_id", userID),
			zap.Error(res.PersistErr),
		)
	}
}

func (e *Engine) refreshFailure(ctx context.Context, req Request, res *flows.RefreshResult) error {
	e.metricInc(MetricRefreshFailure)

	if res == nil {
		return newError(KindUnauthenticated, ErrRefreshFailed, nil)
	}

	var err *Error
	switch res.Failure {
	case flows.RefreshFailureMissingSessionID:
		err = newError(KindUnauthenticated, ErrMissingSessionID, nil)
	case flows.RefreshFailureSessionNotFound:
		err = newError(KindUnauthenticated, ErrSessionNotFound, res.Err)
	case flows.RefreshFailureMissingRefreshToken:
		err = newError(KindUnauthenticated, ErrMissingRefreshToken, nil)
	case flows.RefreshFailureStore:
		e.logger.Error("session record unreadable", zap.Error(res.Err))
		err = newError(KindUnauthenticated, ErrRefreshFailed, res.Err)
	case flows.RefreshFailureMissingSubject:
		e.logger.Warn("session snapshot has no user id", zap.Error(res.Err))
		err = newError(KindUnauthenticated, ErrRefreshFailed, res.Err)
	case flows.RefreshFailureMint:
		e.logger.Error("token minting failed during refresh", zap.Error(res.Err))
		err = newError(KindUnauthenticated, ErrRefreshFailed, res.Err)
	default:
		err = newError(KindUnauthenticated, ErrRefreshFailed, fmt.Errorf("unknown refresh failure %d", res.Failure))
	}

	e.emitAudit(ctx, internalaudit.EventRefreshFailure, false, req, "", err, nil)
	return err
}
