package internal

import (
	"net"
	"strings"
)

// ClientIP returns the address a request is attributed to for rate limiting.
// The first X-Forwarded-For hop is used only when trustForwarded is set;
// otherwise the host part of remoteAddr is returned.
func ClientIP(remoteAddr, forwardedFor string, trustForwarded bool) string {
	if trustForwarded && forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return strings.TrimSpace(remoteAddr)
	}
	return host
}
