package middleware

import (
	"context"
	"errors"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-service/internal/api/metrics"
	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

const lookupKey = "session.lookup"

// Sessions attaches a request-scoped session lookup to every request. The
// session is resolved lazily, at most once per request.
func Sessions(auth ports.AuthService, cookies *SessionCookies) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(lookupKey, &requestLookup{c: c, auth: auth, cookies: cookies})
			return next(c)
		}
	}
}

// Lookup returns the session lookup of c. Requests that did not pass through
// Sessions get a lookup that always reports no session.
func Lookup(c echo.Context) ports.SessionLookup {
	if l, ok := c.Get(lookupKey).(*requestLookup); ok {
		return l
	}
	return ports.SessionLookupFunc(func(context.Context) (*domain.Session, error) {
		return nil, domain.ErrUnauthorized
	})
}

// Current resolves the session of c.
func Current(c echo.Context) (*domain.Session, error) {
	return Lookup(c).Current(c.Request().Context())
}

// Replace swaps the memoized session after a mutation so later reads in the
// same request see the refreshed snapshot.
func Replace(c echo.Context, session *domain.Session) {
	if l, ok := c.Get(lookupKey).(*requestLookup); ok {
		l.once.Do(func() {})
		l.session, l.err = session, nil
		if session == nil {
			l.err = domain.ErrUnauthorized
		}
	}
}

type requestLookup struct {
	c       echo.Context
	auth    ports.AuthService
	cookies *SessionCookies

	once    sync.Once
	session *domain.Session
	err     error
}

func (l *requestLookup) Current(ctx context.Context) (*domain.Session, error) {
	l.once.Do(func() {
		l.session, l.err = l.resolve(ctx)
	})
	return l.session, l.err
}

func (l *requestLookup) resolve(ctx context.Context) (*domain.Session, error) {
	token := l.cookies.Token(l.c)
	if token == "" {
		metrics.SessionLookupsTotal.WithLabelValues("none").Inc()
		return nil, domain.ErrUnauthorized
	}

	if cached, err := l.cookies.Cached(l.c, token); err == nil {
		metrics.SessionLookupsTotal.WithLabelValues("cookie_cache").Inc()
		return cached, nil
	}

	session, err := l.auth.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			l.cookies.Clear(l.c)
		}
		metrics.SessionLookupsTotal.WithLabelValues("none").Inc()
		return nil, err
	}

	l.cookies.Write(l.c, session)
	metrics.SessionLookupsTotal.WithLabelValues("database").Inc()
	return session, nil
}
