package pkg

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ReadUserIP returns the client address used for rate limiting. Exactly one
// reverse-proxy hop is trusted: the last entry of X-Forwarded-For is the
// address the trusted proxy saw, everything before it is client-controlled
// and ignored.
func ReadUserIP(r *http.Request) (string, error) {
	if forwardedFor := r.Header.Get("X-Forwarded-For"); forwardedFor != "" {
		hops := strings.Split(forwardedFor, ",")
		ip := strings.TrimSpace(hops[len(hops)-1])
		if net.ParseIP(ip) == nil {
			return "", fmt.Errorf("forwarded addr %s is invalid", ip)
		}
		return ip, nil
	}

	if realIP := r.Header.Get("X-Real-Ip"); realIP != "" {
		if net.ParseIP(realIP) == nil {
			return "", fmt.Errorf("real ip addr %s is invalid", realIP)
		}
		return realIP, nil
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr can come without a port in tests
		if net.ParseIP(r.RemoteAddr) != nil {
			return r.RemoteAddr, nil
		}
		return "", fmt.Errorf("remote addr %s is invalid", r.RemoteAddr)
	}

	return host, nil
}
