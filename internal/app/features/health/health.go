// Package health provides liveness and readiness endpoints.
package health

import (
	"context"
	"net/http"

	"github.com/dalemusser/filesmanager/internal/app/system/jsonutil"
	"github.com/dalemusser/filesmanager/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Check is one dependency probed by the readiness endpoints.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Handler provides health check endpoints.
type Handler struct {
	checks []Check
	logger *zap.Logger
}

// NewHandler creates a new health check Handler.
func NewHandler(logger *zap.Logger, checks ...Check) *Handler {
	return &Handler{checks: checks, logger: logger}
}

// Response represents the health check response.
type Response struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
}

// Routes returns a chi.Router with health check routes mounted.
// Provides /health (full check), /health/ready, and /health/live.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Check)
	r.Get("/ready", h.Ready)
	r.Get("/live", h.Live)
	return r
}

// MountRootEndpoints adds /ready, /readyz and /livez directly on the root router.
func MountRootEndpoints(r chi.Router, h *Handler) {
	r.Get("/ready", h.Ready)
	r.Get("/readyz", h.Ready)
	r.Get("/livez", h.Live)
}

// probe runs every check and reports per-service state.
func (h *Handler) probe(ctx context.Context) Response {
	resp := Response{Status: "ok", Services: make(map[string]string, len(h.checks))}
	for _, c := range h.checks {
		pctx, cancel := context.WithTimeout(ctx, timeouts.Ping())
		err := c.Ping(pctx)
		cancel()
		if err != nil {
			resp.Status = "degraded"
			resp.Services[c.Name] = "unavailable"
			h.logger.Warn("health check failed",
				zap.String("service", c.Name), zap.Error(err))
			continue
		}
		resp.Services[c.Name] = "ok"
	}
	return resp
}

// Check reports the state of every dependency. It answers 503 when any is down.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	resp := h.probe(r.Context())
	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	jsonutil.JSON(w, status, resp)
}

// Ready answers 200 only when every dependency responds.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.probe(r.Context()).Status != "ok" {
		jsonutil.JSON(w, http.StatusServiceUnavailable, Response{Status: "not ready"})
		return
	}
	jsonutil.OK(w, Response{Status: "ready"})
}

// Live reports that the process is up.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	jsonutil.OK(w, Response{Status: "alive"})
}
