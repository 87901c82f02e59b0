package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const checkTimeout = 2 * time.Second

// CheckFunc probes one dependency. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

// HealthStatus is the aggregated health report served at /health.
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// HealthChecker runs named dependency probes and aggregates them into
// one healthy/unhealthy answer.
type HealthChecker struct {
	checks map[string]CheckFunc
}

// NewHealthChecker creates a HealthChecker with no registered probes
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{checks: make(map[string]CheckFunc)}
}

// AddCheck registers a named dependency probe
func (h *HealthChecker) AddCheck(name string, fn CheckFunc) {
	h.checks[name] = fn
}

// DatabaseCheck probes the connection pool with a ping
func DatabaseCheck(pool *pgxpool.Pool) CheckFunc {
	return func(ctx context.Context) error {
		return pool.Ping(ctx)
	}
}

// Check runs every registered probe. Any failing probe makes the
// overall status unhealthy; the per-probe results are kept so the
// report names the broken dependency.
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	results := make(map[string]string, len(h.checks))
	overallStatus := "healthy"

	for name, fn := range h.checks {
		probeCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := fn(probeCtx)
		cancel()

		if err != nil {
			results[name] = "unhealthy: " + err.Error()
			overallStatus = "unhealthy"
		} else {
			results[name] = "healthy"
		}
	}

	return HealthStatus{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Checks:    results,
	}
}

// HealthHandler returns an HTTP handler serving the aggregated report
func (h *HealthChecker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := h.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if status.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		json.NewEncoder(w).Encode(status)
	}
}
