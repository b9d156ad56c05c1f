package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/middleware"
	promexport "github.com/MrEthical07/authgate/metrics/export/prometheus"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type server struct {
	engine *authgate.Engine
	users  authgate.UserRoleResolver
	logger *zap.Logger
	cfg    authgate.Config
}

func newServer(engine *authgate.Engine, users authgate.UserRoleResolver, logger *zap.Logger) *server {
	return &server{
		engine: engine,
		users:  users,
		logger: logger,
		cfg:    engine.Config(),
	}
}

func (s *server) router(table *routeTable) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		promexport.NewCollector(s.engine),
	)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Post("/login", s.login)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	preflight := map[string]bool{}
	for _, route := range table.Routes {
		h := http.HandlerFunc(s.whoami)
		if route.Path == "/logout" {
			h = s.logout
		}
		protected := r.With(middleware.Protect(s.engine, route))
		protected.Method(route.Method, route.Path, h)
		if !preflight[route.Path] {
			protected.Options(route.Path, noContent)
			preflight[route.Path] = true
		}
	}
	for _, route := range table.Plugins {
		r.With(middleware.RequirePluginKey(s.engine)).Method(route.Method, route.Path, http.HandlerFunc(s.plugin))
	}
	return r
}

type loginRequest struct {
	UserID string `json:"userId"`
}

type loginResponse struct {
	SessionID    string `json:"sessionId"`
	CSRFToken    string `json:"csrfToken"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// login opens a session for any seeded user. Credential checking is out of
// scope for the demo. The CSRF token is only returned in the body; clients
// send it back in the csrftoken header.
func (s *server) login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "userId is required"})
		return
	}

	role, err := s.users.FindUserRole(r.Context(), body.UserID)
	if errors.Is(err, authgate.ErrRecordNotFound) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unknown user"})
		return
	}
	if err != nil {
		s.logger.Error("user lookup failed", zap.String("user_id", body.UserID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": authgate.ErrInternal.Error()})
		return
	}

	issued, err := s.engine.IssueSession(r.Context(), authgate.Identity{ID: body.UserID, Role: role})
	if err != nil {
		s.logger.Error("issue session failed", zap.String("user_id", body.UserID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": authgate.ErrInternal.Error()})
		return
	}

	tc := s.cfg.Transport
	refreshAge := int(s.cfg.JWT.RefreshTTL.Seconds())
	s.setCookie(w, tc.AccessTokenCookie, issued.Tokens.AccessToken, int(s.cfg.JWT.AccessTTL.Seconds()))
	s.setCookie(w, tc.RefreshTokenCookie, issued.Tokens.RefreshToken, refreshAge)
	s.setCookie(w, tc.SessionIDCookie, issued.SessionID, refreshAge)

	s.logger.Info("session issued", zap.String("user_id", body.UserID), zap.String("role", role))
	writeJSON(w, http.StatusOK, loginResponse{
		SessionID:    issued.SessionID,
		CSRFToken:    issued.CSRFToken,
		AccessToken:  issued.Tokens.AccessToken,
		RefreshToken: issued.Tokens.RefreshToken,
	})
}

func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	identity, _ := authgate.IdentityFromContext(r.Context())
	req := middleware.RequestFromHTTP(r, s.cfg.Transport)

	if identity != nil {
		if err := s.engine.RevokeSession(r.Context(), identity.ID, req.SessionID); err != nil {
			s.logger.Error("revoke session failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"message": authgate.ErrInternal.Error()})
			return
		}
	}

	tc := s.cfg.Transport
	for _, name := range []string{tc.AccessTokenCookie, tc.RefreshTokenCookie, tc.SessionIDCookie, tc.CSRFTokenCookie} {
		s.setCookie(w, name, "", -1)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (s *server) whoami(w http.ResponseWriter, r *http.Request) {
	identity, ok := authgate.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":     identity.ID,
		"role":   identity.Role,
		"apiKey": identity.APIKey,
		"path":   r.URL.Path,
	})
}

func (s *server) plugin(w http.ResponseWriter, r *http.Request) {
	key, _ := middleware.PluginKeyFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"owner": key.UserID, "path": r.URL.Path})
}

func (s *server) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	if name == "" {
		return
	}
	tc := s.cfg.Transport
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     tc.CookiePath,
		Domain:   tc.CookieDomain,
		MaxAge:   maxAge,
		Secure:   tc.CookieSecure,
		HttpOnly: true,
		SameSite: tc.CookieSameSite,
	})
}

func noContent(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
