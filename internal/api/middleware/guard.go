package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/service"
)

// RequireAuthenticated redirects visitors without a live session to the
// sign-in page.
func RequireAuthenticated() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			d := service.RequireAuthenticated(c.Request().Context(), Lookup(c))
			if !d.Allowed() {
				return c.Redirect(http.StatusSeeOther, d.Redirect)
			}
			return next(c)
		}
	}
}

// RequireAnonymous redirects signed-in users home.
func RequireAnonymous() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			d := service.RequireAnonymous(c.Request().Context(), Lookup(c))
			if !d.Allowed() {
				return c.Redirect(http.StatusSeeOther, d.Redirect)
			}
			return next(c)
		}
	}
}

// RequireAPISession is the JSON counterpart of RequireAuthenticated: it
// fails with domain.ErrUnauthorized instead of redirecting.
func RequireAPISession() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			d := service.RequireAuthenticated(c.Request().Context(), Lookup(c))
			if !d.Allowed() {
				return domain.ErrUnauthorized
			}
			return next(c)
		}
	}
}
