package api

import (
	"context"
	"errors"
	"strconv"

	echo "github.com/labstack/echo/v5"
)

var (
	errMissingIDOrDocument     = errors.New("id and document are required")
	errMissingQueryOrEmbedding = errors.New("query or embedding is required")
	errMissingChangedFiles     = errors.New("changedFiles must be non-empty")
	errNoEmbeddingClient       = errors.New("no embedding client configured")
	errNoImpactAnalyser        = errors.New("no impact analyser configured")
	errInvalidTrigger          = errors.New("triggerType and at least one targetSuiteId are required")
)

// withTimeout bounds a handler's collaborator calls to requestTimeout.
func withTimeout(c *echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.New("must be positive")
	}
	return n, nil
}
