package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/authgate/jwt"
)

// AuthMethod records which entry path produced the identity.
type AuthMethod int

const (
	AuthNone AuthMethod = iota
	AuthAPIKey
	AuthAccessToken
	AuthRefresh
)

// AuthFailureKind classifies authenticate flow failures for root-level mapping.
type AuthFailureKind int

const (
	AuthFailureNone AuthFailureKind = iota
	AuthFailurePlatformTokenRequired
	AuthFailureMissingCredentials
	AuthFailureInvalidAPIKey
	AuthFailureRefresh
)

// AuthRequest carries the credential material extracted from one request.
type AuthRequest struct {
	Preflight   bool
	Platform    string
	HasCookies  bool
	APIKey      string
	AccessToken string
	SessionID   string
}

// AuthResult is the outcome of the authenticate flow.
type AuthResult struct {
	Failure  AuthFailureKind
	Err      error
	Method   AuthMethod
	Identity *Identity
	SkipCSRF bool

	// TokenErr is the access-token verification error that sent the request
	// down the refresh path, if any.
	TokenErr error
	Refresh  *RefreshResult
}

// AuthenticateDeps captures authenticate flow dependencies.
type AuthenticateDeps struct {
	Keys         APIKeyLookup
	UserRole     func(ctx context.Context, userID string) (string, error)
	VerifyAccess func(string) (*jwt.Claims, error)
	Refresh      RefreshDeps
}

// RunAuthenticate resolves the caller of one request.
//
// Order: preflight, platform header contract, cookie presence, API key,
// access token, session refresh. The API-key and token paths are exclusive.
func RunAuthenticate(ctx context.Context, req AuthRequest, deps AuthenticateDeps) AuthResult {
	if req.Preflight {
		return AuthResult{Method: AuthNone}
	}
	if req.Platform != "" && req.AccessToken == "" {
		return AuthResult{Failure: AuthFailurePlatformTokenRequired}
	}
	if req.Platform == "" && !req.HasCookies {
		return AuthResult{Failure: AuthFailureMissingCredentials}
	}

	if req.APIKey != "" {
		return authenticateAPIKey(ctx, req.APIKey, deps)
	}

	var tokenErr error
	if req.AccessToken == "" {
		tokenErr = errors.New("access token absent")
	} else {
		claims, err := deps.VerifyAccess(req.AccessToken)
		switch {
		case err != nil:
			tokenErr = err
		case claims.User.ID == "":
			tokenErr = errors.New("access token subject has no id")
		default:
			return AuthResult{
				Method:   AuthAccessToken,
				Identity: &Identity{ID: claims.User.ID, Role: claims.User.Role},
			}
		}
	}

	refresh := RunRefresh(ctx, req.SessionID, deps.Refresh)
	if refresh.Failure != RefreshFailureNone {
		return AuthResult{
			Failure:  AuthFailureRefresh,
			Err:      refresh.Err,
			TokenErr: tokenErr,
			Refresh:  &refresh,
		}
	}
	return AuthResult{
		Method:   AuthRefresh,
		Identity: refresh.Identity,
		TokenErr: tokenErr,
		Refresh:  &refresh,
	}
}

func authenticateAPIKey(ctx context.Context, key string, deps AuthenticateDeps) AuthResult {
	if deps.Keys == nil {
		return AuthResult{Failure: AuthFailureInvalidAPIKey, Err: errors.New("api key lookup not configured")}
	}

	record, err := deps.Keys.FindAPIKeyByKey(ctx, key)
	if err != nil {
		return AuthResult{Failure: AuthFailureInvalidAPIKey, Err: err}
	}
	if record == nil {
		return AuthResult{Failure: AuthFailureInvalidAPIKey, Err: errors.New("api key not found")}
	}

	perms, err := record.PermissionList()
	if err != nil {
		return AuthResult{Failure: AuthFailureInvalidAPIKey, Err: err}
	}

	identity := &Identity{ID: record.UserID, Permissions: perms, APIKey: true}
	if deps.UserRole != nil && record.UserID != "" {
		role, err := deps.UserRole(ctx, record.UserID)
		if err != nil {
			return AuthResult{
				Failure: AuthFailureInvalidAPIKey,
				Err:     fmt.Errorf("resolve key owner role: %w", err),
			}
		}
		identity.Role = role
	}

	// API-key callers skip the CSRF guard. This mirrors the header-only usage
	// of keys but leaves cookie-carrying key requests unguarded; keep under review.
	return AuthResult{Method: AuthAPIKey, Identity: identity, SkipCSRF: true}
}
