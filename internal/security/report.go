package security

import "time"

// Warning messages emitted by BuildReport.
const (
	WarnInsecureCookies = "session cookies are not marked Secure"
	WarnTrustForwarded  = "client IP is taken from X-Forwarded-For"
	WarnRateLimitOff    = "rate limiting is disabled"
	WarnCSRFOff         = "CSRF guard is disabled"
	WarnNoCSRFPaths     = "CSRF guard protects no paths"
	WarnDemoMode        = "demo mode is on: admin writes are refused"
	WarnMaintenance     = "maintenance mode is on: only admins are admitted"
	WarnSharedSecret    = "refresh tokens are signed with the access token key"
	WarnLongAccessTTL   = "access token lifetime exceeds one hour"

	maxAdvisedAccessTTL = time.Hour
)

type Report struct {
	SigningAlgorithm      string
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	SeparateRefreshKey    bool
	CSRFActive            bool
	CSRFProtectedPaths    int
	RateLimitingActive    bool
	RateLimit             int
	RateWindow            time.Duration
	SecureCookies         bool
	TrustForwardedFor     bool
	DemoMode              bool
	MaintenanceMode       bool
	PersistRotatedRefresh bool
	AuditEnabled          bool
	MetricsEnabled        bool
	Warnings              []string
}

type ReportInput struct {
	SigningAlgorithm      string
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	SeparateRefreshKey    bool
	CSRFEnabled           bool
	CSRFProtectedPaths    int
	RateLimitEnabled      bool
	RateLimit             int
	RateWindow            time.Duration
	SecureCookies         bool
	TrustForwardedFor     bool
	DemoMode              bool
	MaintenanceMode       bool
	PersistRotatedRefresh bool
	AuditEnabled          bool
	MetricsEnabled        bool
}

func BuildReport(input ReportInput) Report {
	r := Report{
		SigningAlgorithm:      input.SigningAlgorithm,
		AccessTTL:             input.AccessTTL,
		RefreshTTL:            input.RefreshTTL,
		SeparateRefreshKey:    input.SeparateRefreshKey,
		CSRFActive:            input.CSRFEnabled && input.CSRFProtectedPaths > 0,
		CSRFProtectedPaths:    input.CSRFProtectedPaths,
		RateLimitingActive:    input.RateLimitEnabled && input.RateLimit > 0,
		RateLimit:             input.RateLimit,
		RateWindow:            input.RateWindow,
		SecureCookies:         input.SecureCookies,
		TrustForwardedFor:     input.TrustForwardedFor,
		DemoMode:              input.DemoMode,
		MaintenanceMode:       input.MaintenanceMode,
		PersistRotatedRefresh: input.PersistRotatedRefresh,
		AuditEnabled:          input.AuditEnabled,
		MetricsEnabled:        input.MetricsEnabled,
	}

	warn := func(cond bool, msg string) {
		if cond {
			r.Warnings = append(r.Warnings, msg)
		}
	}
	warn(!input.SecureCookies, WarnInsecureCookies)
	warn(input.TrustForwardedFor, WarnTrustForwarded)
	warn(!r.RateLimitingActive, WarnRateLimitOff)
	warn(!input.CSRFEnabled, WarnCSRFOff)
	warn(input.CSRFEnabled && input.CSRFProtectedPaths == 0, WarnNoCSRFPaths)
	warn(input.DemoMode, WarnDemoMode)
	warn(input.MaintenanceMode, WarnMaintenance)
	warn(!input.SeparateRefreshKey, WarnSharedSecret)
	warn(input.AccessTTL > maxAdvisedAccessTTL, WarnLongAccessTTL)

	return r
}
