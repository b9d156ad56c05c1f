package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/authgate"
)

type errorBody struct {
	Message string `json:"message"`
}

// WriteError renders err as {"message": "<reason>"} with the status of its kind.
func WriteError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(authgate.HTTPStatus(err))
	_ = json.NewEncoder(w).Encode(errorBody{Message: authgate.Reason(err)})
}

// WriteTokens hands a refreshed token pair back to the client. Headers are
// always set; cookies only when the request came from a cookie client.
func WriteTokens(w http.ResponseWriter, req authgate.Request, result *authgate.AuthResult, tc authgate.TransportConfig, cfg authgate.JWTConfig) {
	if !result.Refreshed() {
		return
	}

	h := w.Header()
	h.Set(tc.AccessTokenHeader, result.Tokens.AccessToken)
	if result.Tokens.RefreshToken != "" && tc.RefreshTokenHeader != "" {
		h.Set(tc.RefreshTokenHeader, result.Tokens.RefreshToken)
	}

	if !req.HasCookies {
		return
	}
	http.SetCookie(w, tokenCookie(tc, tc.AccessTokenCookie, result.Tokens.AccessToken, int(cfg.AccessTTL.Seconds())))
	if result.Tokens.RefreshToken != "" && tc.RefreshTokenCookie != "" {
		http.SetCookie(w, tokenCookie(tc, tc.RefreshTokenCookie, result.Tokens.RefreshToken, int(cfg.RefreshTTL.Seconds())))
	}
}

func tokenCookie(tc authgate.TransportConfig, name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     tc.CookiePath,
		Domain:   tc.CookieDomain,
		MaxAge:   maxAge,
		Secure:   tc.CookieSecure,
		HttpOnly: true,
		SameSite: tc.CookieSameSite,
	}
}
