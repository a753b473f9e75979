package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function, such as a Redis ping, to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	version string
	checks  map[string]Pinger
}

// NewHealthHandler reports db as the "database" check. A nil db, as with
// in-process storage, leaves the check out.
func NewHealthHandler(version string, db Pinger) *HealthHandler {
	h := &HealthHandler{version: version, checks: map[string]Pinger{}}
	if db != nil {
		h.checks["database"] = db
	}
	return h
}

// WithCheck adds a dependency to the readiness report.
func (h *HealthHandler) WithCheck(name string, p Pinger) *HealthHandler {
	h.checks[name] = p
	return h
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"version":   h.version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	httpStatus := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, p := range h.checks {
		results[name] = "ok"
		if err := p.PingContext(ctx); err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			results[name] = "down"
			httpStatus = http.StatusServiceUnavailable
		}
	}

	overallStatus := "ok"
	if httpStatus != http.StatusOK {
		overallStatus = "down"
	}

	RespondJSON(w, httpStatus, map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    results,
	})
}
