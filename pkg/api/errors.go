package api

import (
	"errors"
	"log/slog"
	"net/http"
	"os"

	echo "github.com/labstack/echo/v5"

	"github.com/webqa/autoheal/pkg/knowledge"
	"github.com/webqa/autoheal/pkg/trigger"
)

var errMissingSuiteID = errors.New("suiteId is required")

// ErrorBody is the structured JSON error shape spec.md §7 requires: a
// machine-readable code plus a human message, never a stack trace.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError wraps a request-shape or domain-validation failure
// (malformed JSON, an invalid Plan, an unresolvable suite tree) so mapError
// can tell it apart from an infrastructure failure — it is always the
// client's fault.
type ValidationError struct{ Err error }

func (v *ValidationError) Error() string { return v.Err.Error() }
func (v *ValidationError) Unwrap() error { return v.Err }

func validationErr(err error) error { return &ValidationError{Err: err} }

// mapError maps a domain error into the HTTP status/body spec.md §6.4/§7
// names: 400 validation, 404 unknown ids, 429 queue_full, 500 everything
// else, never leaking internals to the client. Duplicate trigger deliveries
// are not errors: they are reported in-band as History rows with status
// duplicate.
func mapError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, knowledge.ErrNotFound):
		return httpError(http.StatusNotFound, "not_found", err)
	case errors.Is(err, trigger.ErrUnknownTrigger):
		return httpError(http.StatusNotFound, "not_found", err)
	case errors.Is(err, trigger.ErrQueueFull):
		return httpError(http.StatusTooManyRequests, "queue_full", err)
	case errors.Is(err, os.ErrNotExist):
		return httpError(http.StatusNotFound, "not_found", err)
	case isValidation(err):
		return httpError(http.StatusBadRequest, "validation_failed", err)
	default:
		slog.Error("api: unexpected error", "error", err)
		return httpError(http.StatusInternalServerError, "internal_error", errors.New("internal server error"))
	}
}

// isValidation reports whether err originates from a Plan/Suite structural
// check rather than an infrastructure failure — those are always the
// client's fault (400), never the server's.
func isValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

func httpError(status int, code string, err error) *echo.HTTPError {
	return echo.NewHTTPError(status, ErrorBody{Code: code, Message: err.Error()})
}
