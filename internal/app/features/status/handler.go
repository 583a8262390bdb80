// Package status serves the service status, counters and job queue stats.
package status

import (
	"context"
	"net/http"

	"github.com/dalemusser/filesmanager/internal/app/system/jobrunner"
	"github.com/dalemusser/filesmanager/internal/app/system/jsonutil"
	"github.com/dalemusser/filesmanager/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Pinger reports whether a backing service answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Counter counts stored records.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// JobStats reports background job activity.
type JobStats interface {
	Stats(ctx context.Context) (jobrunner.Stats, error)
}

// Handler holds dependencies for the status endpoints.
type Handler struct {
	KV     Pinger
	DB     Pinger
	Users  Counter
	Files  Counter
	Jobs   JobStats
	Logger *zap.Logger
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Redis bool `json:"redis"`
	DB    bool `json:"db"`
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	Users int64 `json:"users"`
	Files int64 `json:"files"`
}

// Status reports whether the KV store and the database respond.
// It always answers 200; a dead dependency reads as false.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	jsonutil.OK(w, StatusResponse{
		Redis: h.alive(r.Context(), "kv", h.KV),
		DB:    h.alive(r.Context(), "db", h.DB),
	})
}

func (h *Handler) alive(ctx context.Context, name string, p Pinger) bool {
	if p == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		h.Logger.Debug("status: ping failed", zap.String("service", name), zap.Error(err))
		return false
	}
	return true
}

// Stats reports user and file counts. A failing count reads as 0.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Logger, "stats")
	defer cancel()
	jsonutil.OK(w, StatsResponse{
		Users: h.count(ctx, "users", h.Users),
		Files: h.count(ctx, "files", h.Files),
	})
}

func (h *Handler) count(ctx context.Context, name string, c Counter) int64 {
	if c == nil {
		return 0
	}
	n, err := c.Count(ctx)
	if err != nil {
		h.Logger.Warn("stats: count failed", zap.String("collection", name), zap.Error(err))
		return 0
	}
	return n
}

// JobsStatus reports background job queue statistics.
func (h *Handler) JobsStatus(w http.ResponseWriter, r *http.Request) {
	if h.Jobs == nil {
		jsonutil.OK(w, jobrunner.Stats{})
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Logger, "job stats")
	defer cancel()
	stats, err := h.Jobs.Stats(ctx)
	if err != nil {
		jsonutil.FromError(w, r, err, h.Logger)
		return
	}
	jsonutil.OK(w, stats)
}
