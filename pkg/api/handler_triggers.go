package api

import (
	"net/http"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v5"

	"github.com/webqa/autoheal/pkg/suite"
)

// createTriggerHandler handles POST /triggers (spec.md §3 Trigger).
func (s *Server) createTriggerHandler(c *echo.Context) error {
	var req triggerRequest
	if err := c.Bind(&req); err != nil {
		return mapError(validationErr(err))
	}
	if req.TriggerType == "" || len(req.TargetSuiteIDs) == 0 {
		return mapError(validationErr(errInvalidTrigger))
	}

	trg := &suite.Trigger{
		ID:               uuid.NewString(),
		Enabled:          req.Enabled,
		TriggerType:      req.TriggerType,
		MatchConditions:  req.MatchConditions,
		TargetSuiteIDs:   req.TargetSuiteIDs,
		ExecutionOptions: req.ExecutionOptions,
	}
	if err := s.store.SaveTrigger(trg); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, trg)
}

// listTriggersHandler handles GET /triggers.
func (s *Server) listTriggersHandler(c *echo.Context) error {
	typ := suite.TriggerType(c.QueryParam("type"))
	triggers, err := s.store.ListTriggers(typ)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, &listTriggersResponse{Triggers: triggers})
}

// getTriggerHandler handles GET /triggers/:triggerId.
func (s *Server) getTriggerHandler(c *echo.Context) error {
	trg, err := s.store.LoadTrigger(c.Param("triggerId"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, trg)
}

// updateTriggerHandler handles PUT /triggers/:triggerId.
func (s *Server) updateTriggerHandler(c *echo.Context) error {
	triggerID := c.Param("triggerId")
	existing, err := s.store.LoadTrigger(triggerID)
	if err != nil {
		return mapError(err)
	}

	var req triggerRequest
	if err := c.Bind(&req); err != nil {
		return mapError(validationErr(err))
	}
	if req.TriggerType == "" || len(req.TargetSuiteIDs) == 0 {
		return mapError(validationErr(errInvalidTrigger))
	}

	existing.Enabled = req.Enabled
	existing.TriggerType = req.TriggerType
	existing.MatchConditions = req.MatchConditions
	existing.TargetSuiteIDs = req.TargetSuiteIDs
	existing.ExecutionOptions = req.ExecutionOptions

	if err := s.store.SaveTrigger(existing); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, existing)
}

// deleteTriggerHandler handles DELETE /triggers/:triggerId.
func (s *Server) deleteTriggerHandler(c *echo.Context) error {
	if _, err := s.store.LoadTrigger(c.Param("triggerId")); err != nil {
		return mapError(err)
	}
	if err := s.store.DeleteTrigger(c.Param("triggerId")); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// fireTriggerHandler handles POST /triggers/:triggerId/fire: a manual
// ingress event (spec.md §4.9 "Manual (explicit trigger)").
func (s *Server) fireTriggerHandler(c *echo.Context) error {
	if s.dispatcher == nil {
		return echo.NewHTTPError(503, "trigger dispatcher not available")
	}
	h, err := s.dispatcher.Manual(c.Request().Context(), c.Param("triggerId"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, &h)
}
