package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/webqa/autoheal/pkg/suite"
)

// webhookHandler handles POST /webhooks/:provider (spec.md §4.9 VCS
// ingress). Provider-specific payload parsing (GitHub/GitLab signatures and
// event shapes) is out of scope — the caller is expected to normalize the
// payload into webhookRequest before it reaches this core.
func (s *Server) webhookHandler(c *echo.Context) error {
	if s.dispatcher == nil {
		return echo.NewHTTPError(503, "trigger dispatcher not available")
	}

	var req webhookRequest
	if err := c.Bind(&req); err != nil {
		return mapError(validationErr(err))
	}

	ev := suite.VCSEvent{
		Provider:      c.Param("provider"),
		Branch:        req.Branch,
		ChangedFiles:  req.ChangedFiles,
		CommitMessage: req.CommitMessage,
		CommitSHA:     req.CommitSHA,
	}

	history, err := s.dispatcher.VCSEvent(c.Request().Context(), ev)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, &webhookResponse{Dispatched: history})
}
