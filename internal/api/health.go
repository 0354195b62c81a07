package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Pinger is implemented by dependencies the health check probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store   Pinger
	timeout time.Duration
	now     func() time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{
		store:   store,
		timeout: 5 * time.Second,
		now:     time.Now,
	}
}

// Health reports liveness with the current UTC time. A failing session
// store turns the response into a 503.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"ok":   true,
		"time": h.now().UTC().Format(time.RFC3339Nano),
	}

	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			slog.Error("Health check failed", "error", err)
			body["ok"] = false
			body["error"] = "session store unreachable"
			JSON(w, http.StatusServiceUnavailable, body)
			return
		}
	}

	JSON(w, http.StatusOK, body)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
