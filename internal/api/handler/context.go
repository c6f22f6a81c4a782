package handler

import (
	"errors"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/validation"
)

const genericErrorMessage = "Something went wrong. Please try again."

func clientInfo(c echo.Context) domain.ClientInfo {
	return domain.ClientInfo{
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
}

// userMessage is the text shown to the user for err. Upstream failures and
// errors without a public message are logged.
func userMessage(log zerolog.Logger, c echo.Context, err error) string {
	msg, ok := domain.PublicMessage(err)
	if !ok || errors.Is(err, domain.ErrUpstream) {
		log.Error().
			Err(err).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Msg("request failed")
	}
	if !ok {
		return genericErrorMessage
	}
	return msg
}

func signInResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrEmailNotVerified):
		return "not_verified"
	case errors.Is(err, domain.ErrTooManyAttempts):
		return "rate_limited"
	default:
		return "error"
	}
}

func signUpResult(err error) string {
	if _, ok := validation.AsErrors(err); ok {
		return "invalid"
	}
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrEmailAlreadyRegistered):
		return "duplicate"
	default:
		return "error"
	}
}

func updateResult(err error) string {
	if err == nil {
		return "success"
	}
	if _, ok := validation.AsErrors(err); ok {
		return "invalid"
	}
	if errors.Is(err, domain.ErrEmailImmutable) || errors.Is(err, domain.ErrImageHostNotAllowed) {
		return "invalid"
	}
	return "error"
}

func uploadResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrImageTooLarge):
		return "too_large"
	case errors.Is(err, domain.ErrInvalidImage):
		return "invalid"
	default:
		return "error"
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
