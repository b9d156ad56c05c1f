package authgate

import "context"

type identityContextKey struct{}
type authResultContextKey struct{}

// WithIdentity attaches the authenticated caller to ctx for downstream handlers.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext returns the caller stored by [WithIdentity], if any.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	identity, ok := ctx.Value(identityContextKey{}).(*Identity)
	return identity, ok && identity != nil
}

// WithAuthResult attaches the full authentication outcome to ctx so that
// later stages in a custom middleware chain can reuse it.
func WithAuthResult(ctx context.Context, result *AuthResult) context.Context {
	ctx = context.WithValue(ctx, authResultContextKey{}, result)
	if result != nil && result.Identity != nil {
		ctx = WithIdentity(ctx, result.Identity)
	}
	return ctx
}

// AuthResultFromContext returns the outcome stored by [WithAuthResult], if any.
func AuthResultFromContext(ctx context.Context) (*AuthResult, bool) {
	if ctx == nil {
		return nil, false
	}
	result, ok := ctx.Value(authResultContextKey{}).(*AuthResult)
	return result, ok && result != nil
}
