package authgate

import (
	"context"
	"strconv"

	internalaudit "github.com/MrEthical07/authgate/internal/audit"
	"github.com/MrEthical07/authgate/internal/rate"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const unknownClientIP = "unknown"

// CheckRateLimit describes the checkratelimit operation and its observable behavior.
//
// CheckRateLimit counts mutating requests per client IP in a fixed window.
// A request arriving when the counter has reached the limit is rejected
// without being counted. Store failures are Internal errors.
func (e *Engine) CheckRateLimit(ctx context.Context, req Request) (err error) {
	if !e.ready() {
		return newError(KindInternal, ErrEngineNotReady, nil)
	}
	if !e.config.RateLimit.Enabled || !isMethod(req.Method, e.rateMethods) {
		return nil
	}

	ctx, span := e.startSpan(ctx, "rate_limit", req)
	defer func() { endSpan(span, err) }()
	defer e.recoverStage("rate_limit", &err, nil)

	ip := req.ClientIP
	if ip == "" {
		ip = unknownClientIP
	}

	decision, checkErr := e.limiter.Check(ctx, ip)
	span.SetAttributes(attribute.Int64("authgate.rate_limit.count", decision.Count))

	switch {
	case checkErr == nil:
		return nil
	case rate.IsRateLimited(checkErr):
		e.metricInc(MetricRateLimitHit)
		err = newError(KindRateLimited, ErrRateLimited, checkErr)
		e.emitAudit(ctx, internalaudit.EventRateLimited, false, req, "", err, func() map[string]string {
			return map[string]string{
				"count": strconv.FormatInt(decision.Count, 10),
				"limit": strconv.Itoa(e.config.RateLimit.Limit),
			}
		})
		return err
	default:
		e.metricInc(MetricRateLimitStoreError)
		e.logger.Error("rate limit store failure", zap.String("client_ip", ip), zap.Error(checkErr))
		return newError(KindInternal, ErrInternal, checkErr)
	}
}
