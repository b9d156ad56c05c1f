package authgate

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	internalaudit "github.com/MrEthical07/authgate/internal/audit"
	"github.com/MrEthical07/authgate/internal/flows"
	"github.com/MrEthical07/authgate/internal/rate"
	"github.com/MrEthical07/authgate/jwt"
	"github.com/MrEthical07/authgate/permission"
	"github.com/MrEthical07/authgate/session"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Engine defines a public type used by authgate APIs.
//
// Engine runs the request pipeline: Authenticate, CSRF, rate limit, roles
// gate and maintenance gate. It holds no per-request state and is safe for
// concurrent use once built.
type Engine struct {
	config      Config
	sessions    *session.Store
	records     RecordStore
	roles       *permission.RoleCache
	limiter     *rate.Limiter
	jwtManager  *jwt.Manager
	flows       flows.Service
	audit       *internalaudit.Dispatcher
	metrics     *Metrics
	logger      *zap.Logger
	tracer      trace.Tracer
	rateMethods map[string]struct{}
}

// Close describes the close operation and its observable behavior.
//
// Close drains the audit dispatcher. The Redis client is not closed; it is
// owned by the caller or by [session.SharedClient].
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	_ = e.logger.Sync()
}

// AuditDropped describes the auditdropped operation and its observable behavior.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditDroppedByType breaks [Engine.AuditDropped] down by audit event type.
func (e *Engine) AuditDroppedByType() map[string]uint64 {
	if e == nil {
		return map[string]uint64{}
	}
	return e.audit.DroppedByType()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Tokens returns the token service used by the engine.
func (e *Engine) Tokens() *jwt.Manager {
	return e.jwtManager
}

// Sessions returns the session store used by the engine.
func (e *Engine) Sessions() *session.Store {
	return e.sessions
}

// Roles returns the role cache fronting the record store.
func (e *Engine) Roles() *permission.RoleCache {
	return e.roles
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.flows.Initialized() && e.sessions != nil
}

/*
====================================
PIPELINE
====================================
*/

// Evaluate describes the evaluate operation and its observable behavior.
//
// Evaluate runs Authenticate, CSRF, RateLimit, RolesGate and Maintenance in
// order and stops at the first rejection. Pre-flight requests bypass every
// stage. When a rejection happens after authentication the AuthResult is
// returned alongside the error so that refreshed tokens can still be handed
// back to the client.
func (e *Engine) Evaluate(ctx context.Context, req Request, route Route) (result *AuthResult, err error) {
	if !e.ready() {
		return nil, newError(KindInternal, ErrEngineNotReady, nil)
	}

	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() {
			e.metrics.Observe(MetricEvaluateLatency, time.Since(start))
		}()
	}

	if req.IsPreflight() {
		e.metricInc(MetricPreflightBypass)
		return &AuthResult{Method: AuthNone}, nil
	}

	ctx, span := e.startSpan(ctx, "evaluate", req)
	span.SetAttributes(attribute.String("authgate.route.permission", route.Permission))
	defer func() { endSpan(span, err) }()

	result, err = e.Authenticate(ctx, req)
	if err != nil {
		return nil, err
	}
	if err = e.CheckCSRF(ctx, req, result); err != nil {
		return result, err
	}
	if err = e.CheckRateLimit(ctx, req); err != nil {
		return result, err
	}
	if err = e.Authorize(ctx, req, route, result.Identity); err != nil {
		return result, err
	}
	if err = e.CheckMaintenance(ctx, req, result.Identity); err != nil {
		return result, err
	}

	e.metricInc(MetricRequestAllowed)
	return result, nil
}

/*
====================================
AUTHENTICATE
====================================
*/

// Authenticate describes the authenticate operation and its observable behavior.
//
// Authenticate resolves the caller from an API key, an access token, or the
// session refresh flow, in that order. Every failure is an *Error of kind
// Unauthenticated except unexpected faults, which are Internal.
func (e *Engine) Authenticate(ctx context.Context, req Request) (result *AuthResult, err error) {
	if !e.ready() {
		return nil, newError(KindInternal, ErrEngineNotReady, nil)
	}
	if req.IsPreflight() {
		return &AuthResult{Method: AuthNone}, nil
	}

	ctx, span := e.startSpan(ctx, "authenticate", req)
	defer func() { endSpan(span, err) }()
	defer e.recoverStage("authenticate", &err, func() { result = nil })

	res := e.flows.Authenticate(ctx, flows.AuthRequest{
		Platform:    req.Platform,
		HasCookies:  req.HasCookies,
		APIKey:      req.APIKey,
		AccessToken: req.AccessToken,
		SessionID:   req.SessionID,
	})

	switch res.Failure {
	case flows.AuthFailureNone:
	case flows.AuthFailurePlatformTokenRequired:
		err = newError(KindUnauthenticated, ErrPlatformTokenRequired, nil)
	case flows.AuthFailureMissingCredentials:
		err = newError(KindUnauthenticated, ErrMissingCredentials, nil)
	case flows.AuthFailureInvalidAPIKey:
		e.logger.Debug("api key rejected", zap.String("path", req.Path), zap.Error(res.Err))
		err = newError(KindUnauthenticated, ErrInvalidAPIKey, res.Err)
	case flows.AuthFailureRefresh:
		if res.TokenErr != nil && req.AccessToken != "" {
			e.logger.Debug("access token rejected", zap.Error(res.TokenErr))
		}
		err = e.refreshFailure(ctx, req, res.Refresh)
	default:
		err = newError(KindInternal, ErrInternal, fmt.Errorf("unknown authenticate failure %d", res.Failure))
	}

	if err != nil {
		e.metricInc(MetricAuthFailure)
		e.emitAudit(ctx, internalaudit.EventAuthFailure, false, req, "", err, nil)
		return nil, err
	}

	result = &AuthResult{
		Identity: fromFlowIdentity(res.Identity),
		SkipCSRF: res.SkipCSRF,
	}
	switch res.Method {
	case flows.AuthAPIKey:
		result.Method = AuthAPIKey
		e.metricInc(MetricAuthAPIKey)
	case flows.AuthAccessToken:
		result.Method = AuthAccessToken
		e.metricInc(MetricAuthAccessToken)
	case flows.AuthRefresh:
		result.Method = AuthRefresh
		result.Tokens = res.Refresh.Tokens
		e.refreshSucceeded(ctx, req, res.Refresh)
	}

	span.SetAttributes(attribute.String("authgate.auth.method", result.Method.String()))
	return result, nil
}

func fromFlowIdentity(id *flows.Identity) *Identity {
	if id == nil {
		return nil
	}
	return &Identity{
		ID:          id.ID,
		Role:        id.Role,
		Permissions: append([]string(nil), id.Permissions...),
		APIKey:      id.APIKey,
	}
}

func toFlowIdentity(id *Identity) *flows.Identity {
	if id == nil {
		return nil
	}
	return &flows.Identity{
		ID:          id.ID,
		Role:        id.Role,
		Permissions: id.Permissions,
		APIKey:      id.APIKey,
	}
}

/*
====================================
TRACING / FAULTS
====================================
*/

func (e *Engine) startSpan(ctx context.Context, stage string, req Request) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "authgate."+stage,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.Path),
		),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Reason(err))
		span.SetAttributes(attribute.Int("http.response.status_code", HTTPStatus(err)))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// recoverStage converts a panic raised by a collaborator into an Internal
// error. reset clears the stage's other named results.
func (e *Engine) recoverStage(stage string, errp *error, reset func()) {
	r := recover()
	if r == nil {
		return
	}
	e.metricInc(MetricInternalError)
	e.logger.Error("pipeline stage panicked",
		zap.String("stage", stage),
		zap.Any("panic", r),
		zap.Stack("stack"),
	)
	if reset != nil {
		reset()
	}
	*errp = newError(KindInternal, ErrInternal, fmt.Errorf("panic in %s: %v", stage, r))
}

func isMethod(method string, set map[string]struct{}) bool {
	if method == "" {
		method = http.MethodGet
	}
	_, ok := set[strings.ToUpper(method)]
	return ok
}
