package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	pkghttp "github.com/lulusspp/lulus-api/pkg/http"
)

// ServiceName is reported by the health endpoint
const ServiceName = "lulus-spp"

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status     string `json:"status"`
	Service    string `json:"service"`
	Version    string `json:"version"`
	Database   string `json:"database"`
	Timestamp  string `json:"timestamp"`
	DurationMs int64  `json:"durationMs"`
}

// HealthHandler serves the liveness and database reachability probe
type HealthHandler struct {
	db      HealthChecker
	version string
	timeout time.Duration
	logger  *slog.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db HealthChecker, version string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		db:      db,
		version: version,
		timeout: 2 * time.Second,
		logger:  logger,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{
		Status:   "ok",
		Service:  ServiceName,
		Version:  h.version,
		Database: "up",
	}
	status := http.StatusOK

	if err := h.db.HealthCheck(ctx); err != nil {
		h.logger.Warn("health check: database unreachable",
			slog.String("request_id", pkghttp.RequestID(r)),
			slog.Any("error", err))
		resp.Status = "degraded"
		resp.Database = "down"
		status = http.StatusServiceUnavailable
	}

	resp.Timestamp = time.Now().UTC().Format(time.RFC3339)
	resp.DurationMs = time.Since(start).Milliseconds()
	pkghttp.WriteJSON(w, status, resp)
}
