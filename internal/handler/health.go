package handler

import (
	"context"
	"net/http"
	"time"
)

const readinessTimeout = 5 * time.Second

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type namedCheck struct {
	name    string
	checker HealthChecker
}

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	checks []namedCheck
}

// NewHealthHandler creates a HealthHandler with no dependencies.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Register adds a dependency to the readiness probe.
// Only dependencies that are actually configured should be registered.
func (h *HealthHandler) Register(name string, checker HealthChecker) *HealthHandler {
	h.checks = append(h.checks, namedCheck{name: name, checker: checker})
	return h
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz is a liveness probe endpoint.
// It returns 200 if the server is running; dependencies are not checked.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz is a readiness probe endpoint.
// It returns 200 only if every registered dependency answers.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	checks := make(map[string]string, len(h.checks))
	healthy := true

	for _, c := range h.checks {
		if err := c.checker.Ping(ctx); err != nil {
			checks[c.name] = "error: " + err.Error()
			healthy = false
			continue
		}
		checks[c.name] = "ok"
	}

	status := "ok"
	statusCode := http.StatusOK
	if !healthy {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, HealthResponse{
		Status: status,
		Checks: checks,
	})
}
