package ports

import (
	"context"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/validation"
)

// UpdateUserInput is the payload of an update-user call. Email is accepted
// only to be compared against the session user; it is never written.
type UpdateUserInput struct {
	Name  *string `json:"name,omitempty"`
	Image *string `json:"image,omitempty"`
	Email *string `json:"email,omitempty"`
}

// AuthService is the gateway every sign-in, sign-up and account mutation goes
// through.
type AuthService interface {
	SignIn(ctx context.Context, in validation.SignIn, client domain.ClientInfo) (*domain.Session, error)
	SignUp(ctx context.Context, in validation.SignUp) error
	SignOut(ctx context.Context, token string) error
	GetSession(ctx context.Context, token string) (*domain.Session, error)
	UpdateUser(ctx context.Context, token string, in UpdateUserInput) (*domain.Session, error)
	VerifyEmail(ctx context.Context, token string) error
	RequestPasswordReset(ctx context.Context, in validation.RequestPassword) error
	ResetPassword(ctx context.Context, in validation.ResetPassword) error
}

type SocialAuthService interface {
	// SignInSocial returns the provider URL the user agent is sent to.
	SignInSocial(ctx context.Context, provider, callbackURL string) (string, error)
	// CompleteSocial finishes the handshake and returns the new session along
	// with the callback URL saved when it started.
	CompleteSocial(ctx context.Context, provider, state, code string, client domain.ClientInfo) (*domain.Session, string, error)
}

type ProfileService interface {
	Get(ctx context.Context, userID string) (domain.Profile, error)
	Update(ctx context.Context, token string, in validation.Profile) (*domain.Session, error)
}

// SessionLookup resolves the session of the request it was built for.
type SessionLookup interface {
	Current(ctx context.Context) (*domain.Session, error)
}

// SessionLookupFunc adapts a function to SessionLookup.
type SessionLookupFunc func(ctx context.Context) (*domain.Session, error)

func (f SessionLookupFunc) Current(ctx context.Context) (*domain.Session, error) {
	return f(ctx)
}

// SessionCodec signs and verifies the short-lived session cache cookie.
type SessionCodec interface {
	Encode(session *domain.Session) (string, error)
	Decode(value, token string) (*domain.Session, error)
}
