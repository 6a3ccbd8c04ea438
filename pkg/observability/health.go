package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger is satisfied by storage backends
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// HealthStatus is the result of a health check
type HealthStatus struct {
	Healthy   bool              `json:"healthy"`
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// HealthChecker probes the service's dependencies
type HealthChecker struct {
	db      Pinger
	timeout time.Duration
}

// NewHealthChecker creates a health checker over the storage backend
func NewHealthChecker(db Pinger) *HealthChecker {
	return &HealthChecker{
		db:      db,
		timeout: 5 * time.Second,
	}
}

// Check runs all health checks
func (hc *HealthChecker) Check(ctx context.Context) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, hc.timeout)
	defer cancel()

	status := HealthStatus{
		Healthy:   true,
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Checks:    map[string]string{},
	}

	if hc.db != nil {
		if err := hc.db.HealthCheck(ctx); err != nil {
			status.Healthy = false
			status.Status = "degraded"
			status.Checks["database"] = err.Error()
		} else {
			status.Checks["database"] = "ok"
		}
	}

	return status
}

// Handler returns the HTTP handler for the /health endpoint.
// Responds 200 when healthy, 503 when degraded.
func (hc *HealthChecker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := hc.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if !status.Healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(status)
	})
}
