package middleware

import (
	"context"
	"net/http"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/permission"
)

type pluginKeyContextKey struct{}

// PluginKeyFromContext returns the key admitted by [RequirePluginKey], if any.
func PluginKeyFromContext(ctx context.Context) (*permission.APIKey, bool) {
	key, ok := ctx.Value(pluginKeyContextKey{}).(*permission.APIKey)
	return key, ok && key != nil
}

func transport(engine *authgate.Engine) (authgate.TransportConfig, authgate.JWTConfig) {
	cfg := authgate.DefaultConfig()
	if engine != nil {
		cfg = engine.Config()
	}
	return cfg.Transport, cfg.JWT
}

// Protect runs the full pipeline for route before calling next. Refreshed
// tokens are written even when a later stage rejects the request.
func Protect(engine *authgate.Engine, route authgate.Route) func(http.Handler) http.Handler {
	tc, jc := transport(engine)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := RequestFromHTTP(r, tc)
			res, err := engine.Evaluate(r.Context(), req, route)
			if res != nil {
				WriteTokens(w, req, res, tc, jc)
			}
			if err != nil {
				WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(authgate.WithAuthResult(r.Context(), res)))
		})
	}
}

// Authenticate resolves the caller and stores the result in the request
// context for the stages that follow it.
func Authenticate(engine *authgate.Engine) func(http.Handler) http.Handler {
	tc, jc := transport(engine)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := RequestFromHTTP(r, tc)
			res, err := engine.Authenticate(r.Context(), req)
			if err != nil {
				WriteError(w, err)
				return
			}
			WriteTokens(w, req, res, tc, jc)
			next.ServeHTTP(w, r.WithContext(authgate.WithAuthResult(r.Context(), res)))
		})
	}
}

// CSRF checks the double-submit token. It must run after [Authenticate].
func CSRF(engine *authgate.Engine) func(http.Handler) http.Handler {
	return stage(engine, func(ctx context.Context, req authgate.Request) error {
		res, _ := authgate.AuthResultFromContext(ctx)
		return engine.CheckCSRF(ctx, req, res)
	})
}

// RateLimit applies the per-client request budget.
func RateLimit(engine *authgate.Engine) func(http.Handler) http.Handler {
	return stage(engine, engine.CheckRateLimit)
}

// RolesGate requires perm. It must run after [Authenticate].
func RolesGate(engine *authgate.Engine, perm string) func(http.Handler) http.Handler {
	return stage(engine, func(ctx context.Context, req authgate.Request) error {
		identity, _ := authgate.IdentityFromContext(ctx)
		return engine.Authorize(ctx, req, authgate.Route{Method: req.Method, Path: req.Path, Permission: perm}, identity)
	})
}

// Maintenance refuses non-admin callers while maintenance mode is on. It must
// run after [Authenticate].
func Maintenance(engine *authgate.Engine) func(http.Handler) http.Handler {
	return stage(engine, func(ctx context.Context, req authgate.Request) error {
		identity, _ := authgate.IdentityFromContext(ctx)
		return engine.CheckMaintenance(ctx, req, identity)
	})
}

// RequirePluginKey admits only plugin API keys holding the capability that
// owns the request path.
func RequirePluginKey(engine *authgate.Engine) func(http.Handler) http.Handler {
	tc, _ := transport(engine)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			key, err := engine.VerifyPluginKey(r.Context(), RequestFromHTTP(r, tc))
			if err != nil {
				WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), pluginKeyContextKey{}, key)))
		})
	}
}

func stage(engine *authgate.Engine, check func(context.Context, authgate.Request) error) func(http.Handler) http.Handler {
	tc, _ := transport(engine)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if err := check(r.Context(), RequestFromHTTP(r, tc)); err != nil {
				WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
