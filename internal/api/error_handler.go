package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
	"github.com/99minutos/account-service/internal/core/validation"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

var statusByError = []struct {
	err    error
	status int
}{
	{domain.ErrInvalidCredentials, http.StatusUnauthorized},
	{domain.ErrUnauthorized, http.StatusUnauthorized},
	{domain.ErrEmailAlreadyRegistered, http.StatusConflict},
	{domain.ErrEmailNotVerified, http.StatusForbidden},
	{domain.ErrEmailImmutable, http.StatusBadRequest},
	{domain.ErrInvalidToken, http.StatusBadRequest},
	{domain.ErrTokenExpired, http.StatusBadRequest},
	{domain.ErrInvalidOAuthState, http.StatusBadRequest},
	{domain.ErrOAuthEmailMissing, http.StatusBadRequest},
	{domain.ErrAccountNotLinked, http.StatusConflict},
	{domain.ErrUnsupportedProvider, http.StatusNotFound},
	{domain.ErrUserNotFound, http.StatusNotFound},
	{domain.ErrInvalidImage, http.StatusUnprocessableEntity},
	{domain.ErrImageHostNotAllowed, http.StatusUnprocessableEntity},
	{domain.ErrImageTooLarge, http.StatusRequestEntityTooLarge},
	{domain.ErrTooManyAttempts, http.StatusTooManyRequests},
	{domain.ErrUpstream, http.StatusServiceUnavailable},
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Renders validation failures as 422 with per-field messages.
//   - Logs and reports unexpected errors without leaking details to the client.
func NewHTTPErrorHandler(log zerolog.Logger, reporter ports.ErrorReporter) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err)
		if code >= http.StatusInternalServerError {
			log.Error().
				Err(err).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Msg("request failed")
			if reporter != nil {
				reporter.CaptureException(err)
			}
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	if ve, ok := validation.AsErrors(err); ok {
		return http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: ve.Fields}
	}

	for _, m := range statusByError {
		if errors.Is(err, m.err) {
			return m.status, errorResponse{Error: m.err.Error()}
		}
	}

	return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
}
