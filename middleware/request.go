package middleware

import (
	"net/http"
	"strings"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/internal"
)

// RequestFromHTTP extracts the credential material of r. A cookie takes
// precedence over the matching header.
func RequestFromHTTP(r *http.Request, tc authgate.TransportConfig) authgate.Request {
	return authgate.Request{
		Method:      r.Method,
		Path:        r.URL.Path,
		Platform:    r.Header.Get(tc.PlatformHeader),
		HasCookies:  len(r.Cookies()) > 0,
		APIKey:      r.Header.Get(tc.APIKeyHeader),
		AccessToken: firstOf(cookieValue(r, tc.AccessTokenCookie), r.Header.Get(tc.AccessTokenHeader)),
		SessionID:   firstOf(cookieValue(r, tc.SessionIDCookie), r.Header.Get(tc.SessionIDHeader)),
		CSRFToken:   firstOf(cookieValue(r, tc.CSRFTokenCookie), r.Header.Get(tc.CSRFTokenHeader)),
		ClientIP:    internal.ClientIP(r.RemoteAddr, r.Header.Get("X-Forwarded-For"), tc.TrustForwardedFor),
	}
}

func cookieValue(r *http.Request, name string) string {
	if name == "" {
		return ""
	}
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
