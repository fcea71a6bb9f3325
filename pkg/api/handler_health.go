package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

const (
	healthStatusHealthy  = "healthy"
	healthStatusDegraded = "degraded"
)

// healthHandler handles GET /health. Unauthenticated and minimal by design
// (spec.md §7) — it reports only this process's own components, not the
// reachability of the LLM provider or any downstream browser target.
func (s *Server) healthHandler(c *echo.Context) error {
	checks := map[string]string{"api": healthStatusHealthy}
	status := healthStatusHealthy

	if s.dispatcher == nil {
		checks["trigger_dispatcher"] = "not configured"
		status = healthStatusDegraded
	} else {
		checks["trigger_dispatcher"] = healthStatusHealthy
	}

	return c.JSON(http.StatusOK, &HealthResponse{Status: status, Checks: checks})
}
