package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// createRunHandler handles POST /runs: executes a single Plan immediately
// (spec.md §4.5), outside of any suite. The Plan is upserted into the Plan
// store so a later suite run can resolve it by id.
func (s *Server) createRunHandler(c *echo.Context) error {
	var req createRunRequest
	if err := c.Bind(&req); err != nil {
		return mapError(validationErr(err))
	}
	if err := req.Plan.Validate(); err != nil {
		return mapError(validationErr(err))
	}

	if err := s.store.SavePlan(&req.Plan); err != nil {
		return mapError(err)
	}

	exec := s.newExecutor("", req.Plan.ID)
	run, err := exec.Execute(c.Request().Context(), &req.Plan, req.Options.toExecutorOptions())
	if err != nil {
		return mapError(err)
	}
	if err := s.store.SaveRunReport(run); err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusCreated, &createRunResponse{Run: run})
}

// getRunHandler handles GET /runs/:runId.
func (s *Server) getRunHandler(c *echo.Context) error {
	run, err := s.store.LoadRunReport(c.Param("runId"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, &createRunResponse{Run: run})
}
