package authgate

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/authgate/internal/rate"
	"github.com/MrEthical07/authgate/permission"
)

// Config defines a public type used by authgate APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT         JWTConfig
	Session     SessionConfig
	Redis       RedisConfig
	RateLimit   RateLimitConfig
	CSRF        CSRFConfig
	Gate        GateConfig
	Maintenance MaintenanceConfig
	Transport   TransportConfig
	Roles       RolesConfig
	Audit       AuditConfig
	Metrics     MetricsConfig
	Log         LogConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by authgate APIs.
//
// Refresh keys default to the access keys when empty.
type JWTConfig struct {
	AccessTTL         time.Duration
	RefreshTTL        time.Duration
	SigningMethod     string // "hs256" (default) or "ed25519"
	AccessPrivateKey  []byte
	AccessPublicKey   []byte
	RefreshPrivateKey []byte
	RefreshPublicKey  []byte
	Issuer            string
	Audience          string
	Leeway            time.Duration
	KeyID             string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by authgate APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	// RedisPrefix namespaces every key written by the engine. Empty keeps the
	// bare "sessionId:" and "rateLimit:" shapes shared with other services.
	RedisPrefix string

	// PersistRotatedRefresh rewrites the session record with the newly minted
	// refresh token after a successful refresh. The key TTL is preserved.
	PersistRotatedRefresh bool
}

// RedisConfig defines a public type used by authgate APIs.
//
// It is only consulted when no client is passed to the builder.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig defines a public type used by authgate APIs.
//
// RateLimitConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RateLimitConfig struct {
	Enabled         bool
	Limit           int
	Window          time.Duration
	MutatingMethods []string
}

/*
====================================
CSRF CONFIG
====================================
*/

// CSRFConfig defines a public type used by authgate APIs.
//
// ProtectedPaths are matched exactly against the request path.
type CSRFConfig struct {
	Enabled        bool
	ProtectedPaths []string
	ReadMethods    []string
}

/*
====================================
GATE CONFIG
====================================
*/

// GateConfig defines a public type used by authgate APIs.
//
// GateConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type GateConfig struct {
	DemoMode        bool
	AdminPathPrefix string
	MutatingMethods []string
	Capabilities    permission.CapabilityMap
}

// MaintenanceConfig defines a public type used by authgate APIs.
type MaintenanceConfig struct {
	Enabled bool
}

/*
====================================
TRANSPORT CONFIG
====================================
*/

// TransportConfig names the cookies and headers the middleware reads and
// writes. Header names are matched case-insensitively.
type TransportConfig struct {
	AccessTokenCookie  string
	RefreshTokenCookie string
	SessionIDCookie    string
	CSRFTokenCookie    string

	PlatformHeader     string
	AccessTokenHeader  string
	RefreshTokenHeader string
	SessionIDHeader    string
	CSRFTokenHeader    string
	APIKeyHeader       string

	CookiePath     string
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite

	TrustForwardedFor bool
}

// RolesConfig defines a public type used by authgate APIs.
type RolesConfig struct {
	CacheTTL time.Duration
}

/*
====================================
AUDIT / METRICS / LOG CONFIG
====================================
*/

// AuditConfig defines a public type used by authgate APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by authgate APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// LogConfig defines a public type used by authgate APIs.
//
// Format is "json" or "console"; Output is "stdout", "stderr" or a file path.
type LogConfig struct {
	Level  string
	Format string
	Output string
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration used by [New].
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    14 * 24 * time.Hour,
			SigningMethod: "hs256",
		},
		Session: SessionConfig{
			PersistRotatedRefresh: true,
		},
		Redis: RedisConfig{
			Addr:         "127.0.0.1:6379",
			PoolSize:     20,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:         true,
			Limit:           rate.DefaultLimit,
			Window:          rate.DefaultWindow,
			MutatingMethods: []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		},
		CSRF: CSRFConfig{
			Enabled:        true,
			ProtectedPaths: []string{"/logout"},
			ReadMethods:    []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		},
		Gate: GateConfig{
			AdminPathPrefix: "/api/admin",
			MutatingMethods: []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
			Capabilities:    permission.DefaultCapabilities.Clone(),
		},
		Transport: TransportConfig{
			AccessTokenCookie:  "accessToken",
			RefreshTokenCookie: "refreshToken",
			SessionIDCookie:    "sessionId",
			CSRFTokenCookie:    "csrfToken",
			PlatformHeader:     "platform",
			AccessTokenHeader:  "accesstoken",
			RefreshTokenHeader: "refreshtoken",
			SessionIDHeader:    "sessionid",
			CSRFTokenHeader:    "csrftoken",
			APIKeyHeader:       "x-api-key",
			CookiePath:         "/",
			CookieSecure:       true,
			CookieSameSite:     http.SameSiteStrictMode,
		},
		Roles: RolesConfig{
			CacheTTL: 30 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessPrivateKey = cloneBytes(cfg.JWT.AccessPrivateKey)
	out.JWT.AccessPublicKey = cloneBytes(cfg.JWT.AccessPublicKey)
	out.JWT.RefreshPrivateKey = cloneBytes(cfg.JWT.RefreshPrivateKey)
	out.JWT.RefreshPublicKey = cloneBytes(cfg.JWT.RefreshPublicKey)
	out.RateLimit.MutatingMethods = cloneStrings(cfg.RateLimit.MutatingMethods)
	out.CSRF.ProtectedPaths = cloneStrings(cfg.CSRF.ProtectedPaths)
	out.CSRF.ReadMethods = cloneStrings(cfg.CSRF.ReadMethods)
	out.Gate.MutatingMethods = cloneStrings(cfg.Gate.MutatingMethods)
	out.Gate.Capabilities = cfg.Gate.Capabilities.Clone()
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

func methodSet(methods []string) map[string]struct{} {
	out := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m != "" {
			out[m] = struct{}{}
		}
	}
	return out
}

func pathSet(paths []string) map[string]struct{} {
	out := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if p != "" {
			out[p] = struct{}{}
		}
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.AccessPrivateKey) == 0 {
			return errors.New("hs256 requires AccessPrivateKey")
		}
	case "ed25519":
		if len(c.JWT.AccessPrivateKey) == 0 || len(c.JWT.AccessPublicKey) == 0 {
			return errors.New("ed25519 requires AccessPrivateKey and AccessPublicKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Rate limit
	if c.RateLimit.Enabled {
		if c.RateLimit.Limit <= 0 {
			return errors.New("RateLimit Limit must be > 0")
		}
		if c.RateLimit.Window <= 0 {
			return errors.New("RateLimit Window must be > 0")
		}
		if len(c.RateLimit.MutatingMethods) == 0 {
			return errors.New("RateLimit MutatingMethods must not be empty")
		}
	}

	// CSRF
	if c.CSRF.Enabled && len(c.CSRF.ReadMethods) == 0 {
		return errors.New("CSRF ReadMethods must not be empty")
	}

	// Gate
	if c.Gate.DemoMode && c.Gate.AdminPathPrefix == "" {
		return errors.New("Gate AdminPathPrefix must be set when DemoMode is true")
	}
	for _, capability := range c.Gate.Capabilities {
		if capability.Name == "" {
			return errors.New("Gate capability name must not be empty")
		}
		if len(capability.Prefixes) == 0 {
			return errors.New("Gate capability " + capability.Name + " has no route prefixes")
		}
	}

	// Transport
	if c.Transport.AccessTokenCookie == "" || c.Transport.RefreshTokenCookie == "" ||
		c.Transport.SessionIDCookie == "" || c.Transport.CSRFTokenCookie == "" {
		return errors.New("Transport cookie names must not be empty")
	}
	if c.Transport.PlatformHeader == "" || c.Transport.AccessTokenHeader == "" ||
		c.Transport.SessionIDHeader == "" || c.Transport.CSRFTokenHeader == "" ||
		c.Transport.APIKeyHeader == "" {
		return errors.New("Transport header names must not be empty")
	}
	if c.Transport.CookieSameSite == http.SameSiteNoneMode && !c.Transport.CookieSecure {
		return errors.New("Transport SameSite=None requires CookieSecure")
	}

	// Roles
	if c.Roles.CacheTTL < 0 {
		return errors.New("Roles CacheTTL must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Log
	switch c.Log.Format {
	case "", "json", "console":
	default:
		return errors.New("Log Format must be 'json' or 'console'")
	}

	return nil
}
