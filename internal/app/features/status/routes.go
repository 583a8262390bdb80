package status

import (
	"github.com/go-chi/chi/v5"
)

// Mount registers /status, /status/jobs and /stats on r.
func Mount(r chi.Router, h *Handler) {
	r.Get("/status", h.Status)
	r.Get("/status/jobs", h.JobsStatus)
	r.Get("/stats", h.Stats)
}
