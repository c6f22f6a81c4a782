package service

import (
	"context"
	"fmt"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

const (
	SignInPath = "/sign-in"
	HomePath   = "/"
)

// Decision is the outcome of a guard. Exactly one of Session and Redirect is
// meaningful: a non-empty Redirect means rendering must stop.
type Decision struct {
	Session  *domain.Session
	Redirect string
}

func (d Decision) Allowed() bool { return d.Redirect == "" }

// RequireAuthenticated lets the request through with its session, or
// redirects to the sign-in page. Lookup errors count as no session.
func RequireAuthenticated(ctx context.Context, lookup ports.SessionLookup) Decision {
	session, err := current(ctx, lookup)
	if err != nil || session == nil {
		return Decision{Redirect: SignInPath}
	}
	return Decision{Session: session}
}

// RequireAnonymous redirects signed-in users home.
func RequireAnonymous(ctx context.Context, lookup ports.SessionLookup) Decision {
	session, err := current(ctx, lookup)
	if err == nil && session != nil {
		return Decision{Redirect: HomePath}
	}
	return Decision{}
}

func current(ctx context.Context, lookup ports.SessionLookup) (session *domain.Session, err error) {
	if lookup == nil {
		return nil, domain.ErrUnauthorized
	}
	defer func() {
		if r := recover(); r != nil {
			session, err = nil, fmt.Errorf("session lookup panicked: %v", r)
		}
	}()
	return lookup.Current(ctx)
}
