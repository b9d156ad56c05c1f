package authgate

import (
	"bytes"

	"github.com/MrEthical07/authgate/internal/security"
)

// SecurityReport summarizes the protections an engine runs with and lists
// settings that weaken them. It contains no key material.
type SecurityReport = security.Report

// SecurityReport describes the securityreport operation and its observable behavior.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	cfg := e.config
	return security.BuildReport(security.ReportInput{
		SigningAlgorithm:      cfg.JWT.SigningMethod,
		AccessTTL:             cfg.JWT.AccessTTL,
		RefreshTTL:            cfg.JWT.RefreshTTL,
		SeparateRefreshKey:    len(cfg.JWT.RefreshPrivateKey) > 0 && !bytes.Equal(cfg.JWT.RefreshPrivateKey, cfg.JWT.AccessPrivateKey),
		CSRFEnabled:           cfg.CSRF.Enabled,
		CSRFProtectedPaths:    len(cfg.CSRF.ProtectedPaths),
		RateLimitEnabled:      cfg.RateLimit.Enabled,
		RateLimit:             e.limiter.Config().Limit,
		RateWindow:            e.limiter.Config().Window,
		SecureCookies:         cfg.Transport.CookieSecure,
		TrustForwardedFor:     cfg.Transport.TrustForwardedFor,
		DemoMode:              cfg.Gate.DemoMode,
		MaintenanceMode:       cfg.Maintenance.Enabled,
		PersistRotatedRefresh: cfg.Session.PersistRotatedRefresh,
		AuditEnabled:          e.audit != nil,
		MetricsEnabled:        e.metrics.Enabled(),
	})
}
