package authgate

import (
	"context"

	internalaudit "github.com/MrEthical07/authgate/internal/audit"
	"github.com/MrEthical07/authgate/internal/flows"
	"github.com/MrEthical07/authgate/permission"
	"go.uber.org/zap"
)

// VerifyPluginKey describes the verifypluginkey operation and its observable behavior.
//
// VerifyPluginKey guards plugin-only routes: the request must carry an API key
// of type "plugin" that holds the capability owning the request path. It is
// not part of [Engine.Evaluate].
func (e *Engine) VerifyPluginKey(ctx context.Context, req Request) (key *permission.APIKey, err error) {
	if !e.ready() {
		return nil, newError(KindInternal, ErrEngineNotReady, nil)
	}

	ctx, span := e.startSpan(ctx, "plugin_key", req)
	defer func() { endSpan(span, err) }()
	defer e.recoverStage("plugin_key", &err, func() { key = nil })

	res := e.flows.PluginKey(ctx, req.APIKey, req.Path)
	switch res.Failure {
	case flows.PluginFailureNone:
		return res.Key, nil
	case flows.PluginFailureKeyRequired:
		err = newError(KindUnauthenticated, ErrAPIKeyRequired, nil)
	case flows.PluginFailureInvalidKey:
		if res.Err != nil {
			e.logger.Debug("plugin key lookup failed", zap.Error(res.Err))
		}
		err = newError(KindUnauthenticated, ErrInvalidAPIKey, res.Err)
	case flows.PluginFailureNotPlugin:
		err = newError(KindForbidden, ErrPluginOnly, nil)
	default:
		err = newError(KindForbidden, ErrPluginPermission, res.Err)
	}

	userID := ""
	if res.Key != nil {
		userID = res.Key.UserID
	}
	e.metricInc(MetricPluginKeyDenied)
	e.emitAudit(ctx, internalaudit.EventPluginDenied, false, req, userID, err, func() map[string]string {
		if res.Capability == "" {
			return nil
		}
		return map[string]string{"capability": res.Capability}
	})
	return nil, err
}
