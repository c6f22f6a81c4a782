// Package oauth adapts Google and GitHub sign-in to ports.OAuthProvider.
package oauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

const googleIssuer = "https://accounts.google.com"

// Credentials are the client settings shared by both providers.
type Credentials struct {
	ClientID     string
	ClientSecret string
	// RedirectURL is this service's callback, e.g.
	// https://host/api/auth/callback/google.
	RedirectURL string
}

// Google signs users in with OpenID Connect. The ID token is verified against
// Google's published keys and must carry the nonce sent in the request.
type Google struct {
	config   *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// NewGoogle fetches Google's discovery document.
func NewGoogle(ctx context.Context, creds Credentials) (*Google, error) {
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("google discovery: %w", err)
	}
	return &Google{
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: creds.ClientID}),
	}, nil
}

func (g *Google) Name() string { return domain.ProviderGoogle }

func (g *Google) AuthCodeURL(state, verifier, nonce string) string {
	return g.config.AuthCodeURL(state,
		oauth2.S256ChallengeOption(verifier),
		oidc.Nonce(nonce),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
}

func (g *Google) Exchange(ctx context.Context, code, verifier, nonce string) (*ports.OAuthIdentity, error) {
	token, err := g.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("google token exchange: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("google: no id_token in token response")
	}
	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("google: verify id token: %w", err)
	}
	if idToken.Nonce != nonce {
		return nil, domain.ErrInvalidOAuthState
	}

	var claims struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("google: decode claims: %w", err)
	}
	if claims.Email == "" {
		return nil, domain.ErrOAuthEmailMissing
	}

	return &ports.OAuthIdentity{
		Provider:      domain.ProviderGoogle,
		AccountID:     claims.Sub,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		Image:         claims.Picture,
	}, nil
}
