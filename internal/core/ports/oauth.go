package ports

import (
	"context"
	"time"
)

// OAuthIdentity is what a provider tells us about the signed-in user.
type OAuthIdentity struct {
	Provider      string
	AccountID     string
	Email         string
	EmailVerified bool
	Name          string
	Image         string
}

type OAuthProvider interface {
	Name() string
	AuthCodeURL(state, verifier, nonce string) string
	Exchange(ctx context.Context, code, verifier, nonce string) (*OAuthIdentity, error)
}

// OAuthState is saved between the redirect to the provider and its callback.
type OAuthState struct {
	Provider    string `json:"provider"`
	CallbackURL string `json:"callbackURL"`
	Verifier    string `json:"verifier"`
	Nonce       string `json:"nonce"`
}

type OAuthStateStore interface {
	Save(ctx context.Context, key string, state OAuthState, ttl time.Duration) error
	// Take returns and deletes the state. Unknown or expired keys return
	// domain.ErrInvalidOAuthState.
	Take(ctx context.Context, key string) (*OAuthState, error)
}
