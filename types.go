package authgate

import (
	"context"
	"io"
	"net/http"
	"strings"

	internalaudit "github.com/MrEthical07/authgate/internal/audit"
	internalmetrics "github.com/MrEthical07/authgate/internal/metrics"
	"github.com/MrEthical07/authgate/jwt"
	"github.com/MrEthical07/authgate/permission"
	"go.uber.org/zap"
)

// Identity is the caller resolved by [Engine.Authenticate]. It is request
// scoped and passed explicitly from stage to stage.
//
// API-key identities carry the key's capability list in Permissions and have
// APIKey set. Token identities carry the role name from the token subject or
// the session snapshot.
type Identity struct {
	ID          string
	Role        string
	Permissions []string
	APIKey      bool
}

// AuthMethod records which entry path produced an identity.
type AuthMethod int

const (
	// AuthNone is reported for pre-flight requests, which carry no identity.
	AuthNone AuthMethod = iota
	// AuthAPIKey is an exported constant or variable used by the authentication engine.
	AuthAPIKey
	// AuthAccessToken is an exported constant or variable used by the authentication engine.
	AuthAccessToken
	// AuthRefresh means the access token was absent or invalid and the
	// session record minted a new pair.
	AuthRefresh
)

func (m AuthMethod) String() string {
	switch m {
	case AuthAPIKey:
		return "api_key"
	case AuthAccessToken:
		return "access_token"
	case AuthRefresh:
		return "refresh"
	default:
		return "none"
	}
}

// Route is the per-route metadata declared by the router.
// An empty Permission means the route only requires authentication.
type Route struct {
	Method     string `json:"method" yaml:"method"`
	Path       string `json:"path" yaml:"path"`
	Permission string `json:"permission,omitempty" yaml:"permission,omitempty"`
}

// Request carries the credential material of one incoming call. The
// middleware package builds it from an *http.Request.
type Request struct {
	Method      string
	Path        string
	Platform    string
	HasCookies  bool
	APIKey      string
	AccessToken string
	SessionID   string
	CSRFToken   string
	ClientIP    string
}

// IsPreflight reports whether the request is a CORS pre-flight.
func (r Request) IsPreflight() bool {
	return strings.EqualFold(r.Method, http.MethodOptions)
}

// AuthResult is returned by [Engine.Authenticate] and [Engine.Evaluate].
//
// Tokens is non-empty only when the refresh flow minted a new pair; the
// transport must hand it back to the client.
type AuthResult struct {
	Identity *Identity
	Method   AuthMethod
	Tokens   jwt.Pair
	SkipCSRF bool
}

// Refreshed reports whether the request was authenticated through the refresh flow.
func (r *AuthResult) Refreshed() bool {
	return r != nil && r.Method == AuthRefresh && r.Tokens.AccessToken != ""
}

// RecordStore is the persistence layer consulted by the pipeline. Misses are
// reported as (nil, nil) or as an error wrapping [ErrRecordNotFound].
type RecordStore interface {
	FindAPIKeyByKey(ctx context.Context, key string) (*permission.APIKey, error)
	FindRoleByName(ctx context.Context, name string) (*permission.Role, error)
}

// UserRoleResolver is optionally implemented by a RecordStore to attach the
// key owner's role to API-key identities.
type UserRoleResolver interface {
	FindUserRole(ctx context.Context, userID string) (string, error)
}

// AuditEvent defines a public type used by authgate APIs.
type AuditEvent = internalaudit.Event

// AuditSink defines a public type used by authgate APIs.
type AuditSink = internalaudit.Sink

// NoOpSink defines a public type used by authgate APIs.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink defines a public type used by authgate APIs.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink defines a public type used by authgate APIs.
type JSONWriterSink = internalaudit.JSONWriterSink

// ZapSink defines a public type used by authgate APIs.
type ZapSink = internalaudit.ZapSink

// NewChannelSink describes the newchannelsink operation and its observable behavior.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink describes the newjsonwritersink operation and its observable behavior.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewZapSink describes the newzapsink operation and its observable behavior.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return internalaudit.NewZapSink(logger)
}

// MetricID defines a public type used by authgate APIs.
type MetricID = internalmetrics.MetricID

const (
	MetricRequestAllowed        = internalmetrics.MetricRequestAllowed
	MetricPreflightBypass       = internalmetrics.MetricPreflightBypass
	MetricAuthAPIKey            = internalmetrics.MetricAuthAPIKey
	MetricAuthAccessToken       = internalmetrics.MetricAuthAccessToken
	MetricAuthFailure           = internalmetrics.MetricAuthFailure
	MetricRefreshSuccess        = internalmetrics.MetricRefreshSuccess
	MetricRefreshFallback       = internalmetrics.MetricRefreshFallback
	MetricRefreshFailure        = internalmetrics.MetricRefreshFailure
	MetricRefreshPersistFailure = internalmetrics.MetricRefreshPersistFailure
	MetricCSRFChecked           = internalmetrics.MetricCSRFChecked
	MetricCSRFRejected          = internalmetrics.MetricCSRFRejected
	MetricRateLimitHit          = internalmetrics.MetricRateLimitHit
	MetricRateLimitStoreError   = internalmetrics.MetricRateLimitStoreError
	MetricCapabilityDenied      = internalmetrics.MetricCapabilityDenied
	MetricRoleDenied            = internalmetrics.MetricRoleDenied
	MetricDemoModeDenied        = internalmetrics.MetricDemoModeDenied
	MetricMaintenanceDenied     = internalmetrics.MetricMaintenanceDenied
	MetricPluginKeyDenied       = internalmetrics.MetricPluginKeyDenied
	MetricInternalError         = internalmetrics.MetricInternalError
	MetricEvaluateLatency       = internalmetrics.MetricEvaluateLatency
	MetricIDCount               = internalmetrics.MetricIDCount
)

// Metrics defines a public type used by authgate APIs.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot defines a public type used by authgate APIs.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics describes the newmetrics operation and its observable behavior.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
