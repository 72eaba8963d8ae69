package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/lulusspp/lulus-api/internal/auth"
	"github.com/lulusspp/lulus-api/internal/metrics"
	"github.com/lulusspp/lulus-api/internal/models"
	"github.com/lulusspp/lulus-api/internal/ratelimit"
	pkghttp "github.com/lulusspp/lulus-api/pkg/http"
)

// DefaultDeniedAgents are User-Agent fragments of scripting clients and scanners.
// Matching is case-insensitive.
var DefaultDeniedAgents = []string{
	"curl",
	"wget",
	"python-requests",
	"python-urllib",
	"aiohttp",
	"go-http-client",
	"libwww-perl",
	"httpie",
	"java/",
	"okhttp",
	"scrapy",
	"sqlmap",
	"nikto",
	"nmap",
	"masscan",
	"zgrab",
	"nuclei",
	"acunetix",
	"wpscan",
	"dirbuster",
	"gobuster",
	"httpx",
}

// AdmissionConfig holds the admission gate limits
type AdmissionConfig struct {
	MaxURLLength   int
	MaxQueryLength int
	MaxBodyBytes   int64
	LoginPath      string
	SearchPath     string
	DeniedAgents   []string
	IPConfig       *pkghttp.IPConfig
}

// DefaultAdmissionConfig returns the production limits
func DefaultAdmissionConfig() AdmissionConfig {
	return AdmissionConfig{
		MaxURLLength:   2048,
		MaxQueryLength: 1200,
		MaxBodyBytes:   200_000,
		LoginPath:      "/api/auth",
		SearchPath:     "/api/search",
		DeniedAgents:   DefaultDeniedAgents,
	}
}

// adminPrefixes are API collections whose mutations require the admin cookie
var adminPrefixes = []string{
	"/api/announcements",
	"/api/bidang",
	"/api/cara-daftar",
}

// AdmissionGate filters every API request before it reaches a handler:
// structural limits, client heuristics, per-bucket rate limits, and a coarse
// admin-cookie prefilter, in that order.
type AdmissionGate struct {
	config  AdmissionConfig
	limiter *ratelimit.Limiter
	denied  []string
	logger  *slog.Logger
}

// NewAdmissionGate creates a new AdmissionGate
func NewAdmissionGate(config AdmissionConfig, limiter *ratelimit.Limiter, logger *slog.Logger) *AdmissionGate {
	denied := make([]string, 0, len(config.DeniedAgents))
	for _, agent := range config.DeniedAgents {
		denied = append(denied, strings.ToLower(agent))
	}
	return &AdmissionGate{
		config:  config,
		limiter: limiter,
		denied:  denied,
		logger:  logger,
	}
}

// Handler returns the gate as chi-compatible middleware
func (g *AdmissionGate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status, reason, msg := g.checkStructure(r); status != 0 {
			g.reject(w, r, status, reason, msg)
			return
		}

		if reason, msg := g.checkClient(r); reason != "" {
			g.reject(w, r, http.StatusForbidden, reason, msg)
			return
		}

		bucket := g.Classify(r)
		clientIP := pkghttp.ExtractClientIP(r, g.config.IPConfig)
		decision := g.limiter.Hit(bucket, clientIP)
		if !decision.Allowed {
			metrics.RecordGateRejection(metrics.ReasonRateLimited, string(bucket))
			g.logger.Info("admission rejected",
				slog.String("reason", metrics.ReasonRateLimited),
				slog.String("bucket", string(bucket)),
				slog.String("ip_address", clientIP),
				slog.String("request_id", pkghttp.RequestID(r)))
			pkghttp.WriteTooManyRequests(w, r, "Too many requests. Please slow down.",
				models.RetryAfterSeconds(decision.RetryAfter))
			return
		}

		if isAdminProtectedAPI(r.URL.Path, r.Method) && !auth.HasSessionCookie(r) {
			g.reject(w, r, http.StatusForbidden, metrics.ReasonAdminCookieReq, "Admin access required.")
			return
		}

		if r.Body != nil && r.Body != http.NoBody {
			r.Body = http.MaxBytesReader(w, r.Body, g.config.MaxBodyBytes)
		}

		next.ServeHTTP(w, r)
	})
}

// checkStructure applies the stateless size limits. A zero status means the request passed.
func (g *AdmissionGate) checkStructure(r *http.Request) (int, string, string) {
	if g.fullURLLength(r) > g.config.MaxURLLength {
		return http.StatusRequestURITooLong, metrics.ReasonURLTooLong, "Request URL too long."
	}
	if len(r.URL.RawQuery) > g.config.MaxQueryLength {
		return http.StatusBadRequest, metrics.ReasonQueryTooLong, "Query string too long."
	}
	if r.ContentLength > g.config.MaxBodyBytes {
		return http.StatusRequestEntityTooLarge, metrics.ReasonBodyTooLarge, "Request body too large."
	}
	return 0, "", ""
}

// checkClient applies the User-Agent heuristics. An empty reason means the request passed.
func (g *AdmissionGate) checkClient(r *http.Request) (string, string) {
	agent := strings.TrimSpace(r.UserAgent())
	if agent == "" {
		if r.URL.Path == g.config.LoginPath || r.Method != http.MethodGet {
			return metrics.ReasonMissingAgent, "Client not allowed."
		}
		return "", ""
	}

	lower := strings.ToLower(agent)
	for _, sig := range g.denied {
		if strings.Contains(lower, sig) {
			return metrics.ReasonDeniedAgent, "Client not allowed."
		}
	}
	return "", ""
}

// Classify maps a request to its rate-limit bucket
func (g *AdmissionGate) Classify(r *http.Request) ratelimit.Bucket {
	path := r.URL.Path
	switch {
	case r.Method == http.MethodPost && path == g.config.LoginPath:
		return ratelimit.BucketAuth
	case path == g.config.SearchPath || strings.HasPrefix(path, g.config.SearchPath+"/"):
		return ratelimit.BucketSearch
	case r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions:
		return ratelimit.BucketRead
	default:
		return ratelimit.BucketWrite
	}
}

func (g *AdmissionGate) reject(w http.ResponseWriter, r *http.Request, status int, reason, msg string) {
	metrics.RecordGateRejection(reason, "")
	g.logger.Info("admission rejected",
		slog.String("reason", reason),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", pkghttp.RequestID(r)))
	pkghttp.WriteError(w, r, status, msg)
}

// isAdminProtectedAPI reports whether the route+method needs the admin cookie.
// Collection GETs stay public; /api/labels itself is public but /api/labels/{id} is not.
func isAdminProtectedAPI(path, method string) bool {
	for _, prefix := range adminPrefixes {
		if strings.HasPrefix(path, prefix) {
			return !(path == prefix && method == http.MethodGet)
		}
	}
	if strings.HasPrefix(path, "/api/labels") {
		return path != "/api/labels"
	}
	return false
}

// fullURLLength is the length of scheme://host/path?query as the client sent it.
// X-Forwarded-Proto is only honored from a trusted proxy.
func (g *AdmissionGate) fullURLLength(r *http.Request) int {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" && pkghttp.IsFromTrustedProxy(r, g.config.IPConfig) {
		scheme = proto
	}
	return len(scheme) + len("://") + len(r.Host) + len(r.URL.RequestURI())
}
