package authgate

import (
	"context"
	"errors"

	internalaudit "github.com/MrEthical07/authgate/internal/audit"
)

// AuditErrorCode defines a public type used by authgate APIs.
//
// AuditErrorCode is the stable machine-readable error recorded on audit events.
type AuditErrorCode string

const (
	auditErrUnauthenticated  AuditErrorCode = "unauthenticated"
	auditErrInvalidAPIKey    AuditErrorCode = "invalid_api_key"
	auditErrMissingSession   AuditErrorCode = "missing_session"
	auditErrSessionNotFound  AuditErrorCode = "session_not_found"
	auditErrMissingRefresh   AuditErrorCode = "missing_refresh_token"
	auditErrRefreshFailed    AuditErrorCode = "refresh_failed"
	auditErrCSRFMissing      AuditErrorCode = "csrf_missing"
	auditErrCSRFInvalid      AuditErrorCode = "csrf_invalid"
	auditErrCSRFCheckFailed  AuditErrorCode = "csrf_check_failed"
	auditErrRateLimited      AuditErrorCode = "rate_limited"
	auditErrPermissionDenied AuditErrorCode = "permission_denied"
	auditErrDemoMode         AuditErrorCode = "demo_mode"
	auditErrMaintenance      AuditErrorCode = "maintenance"
	auditErrPluginOnly       AuditErrorCode = "plugin_only"
	auditErrAPIKeyRequired   AuditErrorCode = "api_key_required"
	auditErrInternal         AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	req Request,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	event := internalaudit.NewEvent(eventType, success)
	event.UserID = userID
	event.SessionID = req.SessionID
	event.IP = req.ClientIP
	event.Method = req.Method
	event.Path = req.Path
	if metadataBuilder != nil {
		event.Metadata = metadataBuilder()
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrPlatformTokenRequired),
		errors.Is(err, ErrMissingCredentials):
		return auditErrUnauthenticated
	case errors.Is(err, ErrInvalidAPIKey):
		return auditErrInvalidAPIKey
	case errors.Is(err, ErrMissingSessionID):
		return auditErrMissingSession
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrMissingRefreshToken):
		return auditErrMissingRefresh
	case errors.Is(err, ErrRefreshFailed):
		return auditErrRefreshFailed
	case errors.Is(err, ErrCSRFMissing):
		return auditErrCSRFMissing
	case errors.Is(err, ErrCSRFInvalidSession),
		errors.Is(err, ErrCSRFMismatch):
		return auditErrCSRFInvalid
	case errors.Is(err, ErrCSRFCheckFailed):
		return auditErrCSRFCheckFailed
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrPermissionDenied),
		errors.Is(err, ErrPluginPermission):
		return auditErrPermissionDenied
	case errors.Is(err, ErrDemoMode):
		return auditErrDemoMode
	case errors.Is(err, ErrMaintenance):
		return auditErrMaintenance
	case errors.Is(err, ErrPluginOnly):
		return auditErrPluginOnly
	case errors.Is(err, ErrAPIKeyRequired):
		return auditErrAPIKeyRequired
	default:
		return auditErrInternal
	}
}
