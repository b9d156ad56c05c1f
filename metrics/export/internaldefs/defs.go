package internaldefs

import (
	"github.com/MrEthical07/authgate"
)

// CounterDef defines a public type used by authgate APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by authgate APIs.
type HistogramDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the authentication engine.
var CounterDefs = []CounterDef{
	{ID: authgate.MetricRequestAllowed, Name: "authgate_request_allowed_total", Help: "Requests admitted by the full pipeline."},
	{ID: authgate.MetricPreflightBypass, Name: "authgate_preflight_bypass_total", Help: "Pre-flight requests that bypassed the pipeline."},
	{ID: authgate.MetricAuthAPIKey, Name: "authgate_auth_api_key_total", Help: "Callers authenticated by API key."},
	{ID: authgate.MetricAuthAccessToken, Name: "authgate_auth_access_token_total", Help: "Callers authenticated by access token."},
	{ID: authgate.MetricAuthFailure, Name: "authgate_auth_failure_total", Help: "Failed authentications."},
	{ID: authgate.MetricRefreshSuccess, Name: "authgate_refresh_success_total", Help: "Token pairs minted from a session record."},
	{ID: authgate.MetricRefreshFallback, Name: "authgate_refresh_fallback_total", Help: "Refreshes that fell back to minting from the session snapshot."},
	{ID: authgate.MetricRefreshFailure, Name: "authgate_refresh_failure_total", Help: "Failed refresh attempts."},
	{ID: authgate.MetricRefreshPersistFailure, Name: "authgate_refresh_persist_failure_total", Help: "Rotated refresh tokens that could not be written back."},
	{ID: authgate.MetricCSRFChecked, Name: "authgate_csrf_checked_total", Help: "Requests that went through the CSRF comparison."},
	{ID: authgate.MetricCSRFRejected, Name: "authgate_csrf_rejected_total", Help: "Requests rejected by the CSRF guard."},
	{ID: authgate.MetricRateLimitHit, Name: "authgate_rate_limit_hit_total", Help: "Requests rejected by the rate limiter."},
	{ID: authgate.MetricRateLimitStoreError, Name: "authgate_rate_limit_store_error_total", Help: "Rate limiter counter store failures."},
	{ID: authgate.MetricCapabilityDenied, Name: "authgate_capability_denied_total", Help: "API-key requests lacking the route capability."},
	{ID: authgate.MetricRoleDenied, Name: "authgate_role_denied_total", Help: "Requests whose role lacks the route permission."},
	{ID: authgate.MetricDemoModeDenied, Name: "authgate_demo_mode_denied_total", Help: "Admin writes refused in demo mode."},
	{ID: authgate.MetricMaintenanceDenied, Name: "authgate_maintenance_denied_total", Help: "Requests refused during maintenance."},
	{ID: authgate.MetricPluginKeyDenied, Name: "authgate_plugin_key_denied_total", Help: "Requests rejected by the plugin key gate."},
	{ID: authgate.MetricInternalError, Name: "authgate_internal_error_total", Help: "Pipeline stages that failed unexpectedly."},
}

// HistogramDefs is an exported constant or variable used by the authentication engine.
var HistogramDefs = []HistogramDef{
	{ID: authgate.MetricEvaluateLatency, Name: "authgate_evaluate_latency_seconds", Help: "Evaluate latency histogram."},
}

// AuditDroppedName and AuditDroppedHelp describe the audit backpressure counter.
const (
	AuditDroppedName = "authgate_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramUpperBounds are the finite bucket bounds, in seconds. The last
// bucket of a snapshot is the +Inf bucket.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix is an exported constant or variable used by the authentication engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets does not mutate shared global state and can be used concurrently.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
