package http

import (
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// IPConfig holds configuration for IP extraction and validation
type IPConfig struct {
	TrustedProxies []string // CIDR ranges of trusted proxies
}

// ExtractClientIP extracts the real client IP address from the request.
//
// Flow:
// 1. CF-Connecting-IP, set by the Cloudflare edge in front of the app
// 2. If request is from trusted proxy, the right-most X-Forwarded-For entry
//    that is not itself a trusted proxy
// 3. If request is from trusted proxy, X-Real-IP
// 4. Fall back to RemoteAddr
//
// Proxies append the peer they saw, so entries left of the first untrusted hop
// are client supplied and never used.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	remoteIP := getRemoteAddr(r)

	if IsFromTrustedProxy(r, config) {
		if cf := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); isValidIP(cf) {
			return cf
		}

		if ip := rightmostUntrusted(r.Header.Values("X-Forwarded-For"), config.TrustedProxies); ip != "" {
			return ip
		}

		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); isValidIP(xri) {
			return xri
		}
	}

	return remoteIP
}

// IsFromTrustedProxy reports whether the direct peer is a configured proxy
func IsFromTrustedProxy(r *http.Request, config *IPConfig) bool {
	return config != nil && isTrustedProxy(getRemoteAddr(r), config.TrustedProxies)
}

// rightmostUntrusted walks X-Forwarded-For from the right, skipping trusted proxies.
// A malformed entry stops the walk.
func rightmostUntrusted(headers []string, trustedProxies []string) string {
	var hops []string
	for _, h := range headers {
		hops = append(hops, strings.Split(h, ",")...)
	}

	for i := len(hops) - 1; i >= 0; i-- {
		ip := strings.TrimSpace(hops[i])
		if !isValidIP(ip) {
			return ""
		}
		if !isTrustedProxy(ip, trustedProxies) {
			return ip
		}
	}
	return ""
}

// RequestID returns the edge ray id, the caller's X-Request-Id, or the id chi generated
func RequestID(r *http.Request) string {
	if r == nil {
		return ""
	}
	if ray := r.Header.Get("CF-Ray"); ray != "" {
		return ray
	}
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return r.Header.Get(middleware.RequestIDHeader)
}

// getRemoteAddr extracts the IP address from RemoteAddr (removing port if present)
func getRemoteAddr(r *http.Request) string {
	if r.RemoteAddr != "" {
		if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return ip
		}
		return r.RemoteAddr
	}
	return "unknown"
}

// isTrustedProxy checks if an IP address matches a trusted proxy address or CIDR range
func isTrustedProxy(ip string, trustedProxies []string) bool {
	if len(trustedProxies) == 0 {
		return false
	}

	clientIP := net.ParseIP(ip)
	if clientIP == nil {
		return false
	}

	for _, cidr := range trustedProxies {
		if !strings.Contains(cidr, "/") {
			if proxyIP := net.ParseIP(cidr); proxyIP != nil && proxyIP.Equal(clientIP) {
				return true
			}
			continue
		}
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if ipNet.Contains(clientIP) {
			return true
		}
	}

	return false
}

func isValidIP(ip string) bool {
	return ip != "" && net.ParseIP(ip) != nil
}
