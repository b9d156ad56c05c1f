package authgate

import (
	"errors"
	"net/http"
)

var (
	// ErrPlatformTokenRequired is returned when a platform client sends no access token.
	ErrPlatformTokenRequired = errors.New("Authentication Required")
	// ErrMissingCredentials is returned when a browser request carries no cookies.
	ErrMissingCredentials = errors.New("Authentication Required")
	// ErrInvalidAPIKey is an exported constant or variable used by the authentication engine.
	ErrInvalidAPIKey = errors.New("Invalid API key")
	// ErrMissingSessionID is an exported constant or variable used by the authentication engine.
	ErrMissingSessionID = errors.New("Authentication Required: Missing session ID")
	// ErrSessionNotFound is an exported constant or variable used by the authentication engine.
	ErrSessionNotFound = errors.New("Authentication Required: Session not found")
	// ErrMissingRefreshToken is an exported constant or variable used by the authentication engine.
	ErrMissingRefreshToken = errors.New("Authentication Required: No refresh token found")
	// ErrRefreshFailed covers every other refresh failure: store faults,
	// corrupt records, snapshots without an id and minting errors.
	ErrRefreshFailed = errors.New("Authentication Required")
	// ErrCSRFMissing is an exported constant or variable used by the authentication engine.
	ErrCSRFMissing = errors.New("CSRF Token or Session ID missing")
	// ErrCSRFInvalidSession is an exported constant or variable used by the authentication engine.
	ErrCSRFInvalidSession = errors.New("Invalid Session")
	// ErrCSRFMismatch is an exported constant or variable used by the authentication engine.
	ErrCSRFMismatch = errors.New("Invalid CSRF Token")
	// ErrCSRFCheckFailed is an exported constant or variable used by the authentication engine.
	ErrCSRFCheckFailed = errors.New("CSRF Check Failed")
	// ErrRateLimited is an exported constant or variable used by the authentication engine.
	ErrRateLimited = errors.New("Rate Limit Exceeded, Try Again Later")
	// ErrPermissionDenied is an exported constant or variable used by the authentication engine.
	ErrPermissionDenied = errors.New("Forbidden - You do not have permission to access this")
	// ErrDemoMode is an exported constant or variable used by the authentication engine.
	ErrDemoMode = errors.New("Action not allowed in demo mode")
	// ErrMaintenance is an exported constant or variable used by the authentication engine.
	ErrMaintenance = errors.New("Forbidden - You do not have permission to access this until maintenance is over")
	// ErrAPIKeyRequired is an exported constant or variable used by the authentication engine.
	ErrAPIKeyRequired = errors.New("API key is required")
	// ErrPluginOnly is an exported constant or variable used by the authentication engine.
	ErrPluginOnly = errors.New("Forbidden: Access restricted to plugin type")
	// ErrPluginPermission is an exported constant or variable used by the authentication engine.
	ErrPluginPermission = errors.New("Forbidden: Permission denied")
	// ErrInternal is an exported constant or variable used by the authentication engine.
	ErrInternal = errors.New("Internal Server Error")
	// ErrEngineNotReady is returned by a nil or partially built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrRecordNotFound is returned by RecordStore implementations on a miss.
	ErrRecordNotFound = errors.New("record not found")
)

// Kind classifies a pipeline rejection. Each kind maps to one HTTP status.
type Kind int

const (
	// KindInternal is an exported constant or variable used by the authentication engine.
	KindInternal Kind = iota
	// KindUnauthenticated is an exported constant or variable used by the authentication engine.
	KindUnauthenticated
	// KindForbidden is an exported constant or variable used by the authentication engine.
	KindForbidden
	// KindRateLimited is an exported constant or variable used by the authentication engine.
	KindRateLimited
)

// Status returns the HTTP status code for k.
func (k Kind) Status() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// Error defines a public type used by authgate APIs.
//
// Error is the only error type returned by Engine stage methods. Its message is
// the short, caller-safe reason; the dependency error that caused it, if any,
// is reachable through errors.Is and errors.As but never rendered to clients.
type Error struct {
	Kind     Kind
	sentinel error
	cause    error
}

func newError(kind Kind, sentinel, cause error) *Error {
	return &Error{Kind: kind, sentinel: sentinel, cause: cause}
}

func (e *Error) Error() string {
	if e == nil || e.sentinel == nil {
		return ErrInternal.Error()
	}
	return e.sentinel.Error()
}

// Reason returns the caller-facing message.
func (e *Error) Reason() string {
	return e.Error()
}

// Status returns the HTTP status code for the error kind.
func (e *Error) Status() int {
	if e == nil {
		return http.StatusInternalServerError
	}
	return e.Kind.Status()
}

// Cause returns the underlying dependency error, if any.
func (e *Error) Cause() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func (e *Error) Unwrap() []error {
	if e == nil {
		return nil
	}
	out := make([]error, 0, 2)
	if e.sentinel != nil {
		out = append(out, e.sentinel)
	}
	if e.cause != nil {
		out = append(out, e.cause)
	}
	return out
}

// HTTPStatus maps err to a response status. nil maps to 200 and any error
// that is not an *Error maps to 500.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Status()
	}
	return http.StatusInternalServerError
}

// Reason returns the caller-facing message for err. Errors that are not
// an *Error are reported as the generic internal reason.
func Reason(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Reason()
	}
	return ErrInternal.Error()
}
