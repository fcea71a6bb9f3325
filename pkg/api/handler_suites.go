package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/webqa/autoheal/pkg/orchestrator"
)

// runSuiteHandler handles POST /suites/:suiteId/run (spec.md §4.6): expands
// the suite tree rooted at suiteId and drives every resolved Plan through
// the Suite Orchestrator.
func (s *Server) runSuiteHandler(c *echo.Context) error {
	suiteID := c.Param("suiteId")
	if _, err := s.store.LoadSuite(suiteID); err != nil {
		return mapError(err)
	}

	var req runSuiteRequest
	if err := c.Bind(&req); err != nil {
		return mapError(validationErr(err))
	}

	opts := orchestrator.DefaultOptions()
	if req.Mode == string(orchestrator.ModeParallel) {
		opts.Mode = orchestrator.ModeParallel
	}
	req.Options.apply(&opts)

	disabled := make(map[string]bool, len(req.Disabled))
	for _, id := range req.Disabled {
		disabled[id] = true
	}

	suites, err := s.store.ListSuites()
	if err != nil {
		return mapError(err)
	}

	results, err := s.orch.Run(c.Request().Context(), suites, suiteID, disabled, opts)
	if err != nil {
		return mapError(err)
	}

	dtos := make([]planResultDTO, 0, len(results))
	for _, r := range results {
		if r.Run != nil {
			if err := s.store.SaveRunReport(r.Run); err != nil {
				return mapError(err)
			}
		}
		dto := planResultDTO{PlanID: r.PlanID, Run: r.Run}
		if r.Err != nil {
			dto.Error = r.Err.Error()
		}
		dtos = append(dtos, dto)
	}

	if s.feed != nil {
		s.feed.Broadcast(suiteID)
	}

	return c.JSON(http.StatusOK, &runSuiteResponse{SuiteID: suiteID, Results: dtos})
}

// suiteStatusHandler handles GET /suites/:suiteId/status (spec.md §4.7).
func (s *Server) suiteStatusHandler(c *echo.Context) error {
	if s.tracker == nil {
		return echo.NewHTTPError(503, "live-status tracker not available")
	}
	snap := s.tracker.Snapshot(c.Param("suiteId"))
	return c.JSON(http.StatusOK, snap)
}
