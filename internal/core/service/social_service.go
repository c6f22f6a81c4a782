package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

const oauthStateTTL = 10 * time.Minute

// SocialAuthService runs the OAuth handshake with Google and GitHub and links
// the returned identity to a user.
type SocialAuthService struct {
	providers map[string]ports.OAuthProvider
	states    ports.OAuthStateStore
	users     ports.UserRepository
	accounts  ports.AccountRepository
	issuer    *sessionIssuer
	log       zerolog.Logger
	now       func() time.Time
}

func NewSocialAuthService(
	providers []ports.OAuthProvider,
	states ports.OAuthStateStore,
	users ports.UserRepository,
	accounts ports.AccountRepository,
	sessions ports.SessionRepository,
	sessionTTL time.Duration,
	log zerolog.Logger,
) *SocialAuthService {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	byName := make(map[string]ports.OAuthProvider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	now := func() time.Time { return time.Now().UTC() }
	return &SocialAuthService{
		providers: byName,
		states:    states,
		users:     users,
		accounts:  accounts,
		issuer:    &sessionIssuer{repo: sessions, ttl: sessionTTL, now: now},
		log:       log,
		now:       now,
	}
}

// Providers lists the configured provider names.
func (s *SocialAuthService) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for _, n := range []string{domain.ProviderGoogle, domain.ProviderGitHub} {
		if _, ok := s.providers[n]; ok {
			names = append(names, n)
		}
	}
	return names
}

func (s *SocialAuthService) SignInSocial(ctx context.Context, provider, callbackURL string) (string, error) {
	p, ok := s.providers[strings.ToLower(provider)]
	if !ok {
		return "", domain.ErrUnsupportedProvider
	}

	state, err := randomToken()
	if err != nil {
		return "", err
	}
	nonce, err := randomToken()
	if err != nil {
		return "", err
	}
	verifier := oauth2.GenerateVerifier()

	if err := s.states.Save(ctx, state, ports.OAuthState{
		Provider:    p.Name(),
		CallbackURL: SafeRedirect(callbackURL, "/"),
		Verifier:    verifier,
		Nonce:       nonce,
	}, oauthStateTTL); err != nil {
		return "", upstream("save oauth state", err)
	}

	return p.AuthCodeURL(state, verifier, nonce), nil
}

func (s *SocialAuthService) CompleteSocial(ctx context.Context, provider, state, code string, client domain.ClientInfo) (*domain.Session, string, error) {
	p, ok := s.providers[strings.ToLower(provider)]
	if !ok {
		return nil, "", domain.ErrUnsupportedProvider
	}
	if state == "" || code == "" {
		return nil, "", domain.ErrInvalidOAuthState
	}

	saved, err := s.states.Take(ctx, state)
	if errors.Is(err, domain.ErrInvalidOAuthState) {
		return nil, "", err
	}
	if err != nil {
		return nil, "", upstream("take oauth state", err)
	}
	if saved.Provider != p.Name() {
		return nil, "", domain.ErrInvalidOAuthState
	}

	identity, err := p.Exchange(ctx, code, saved.Verifier, saved.Nonce)
	if err != nil {
		if errors.Is(err, domain.ErrOAuthEmailMissing) || errors.Is(err, domain.ErrInvalidOAuthState) {
			return nil, "", err
		}
		return nil, "", upstream("oauth exchange", err)
	}

	user, err := s.resolveUser(ctx, identity)
	if err != nil {
		return nil, "", err
	}

	session, err := s.issuer.issue(ctx, user, client)
	if err != nil {
		return nil, "", err
	}

	s.log.Info().Str("user_id", user.ID).Str("provider", identity.Provider).Msg("signed in with provider")
	return session, saved.CallbackURL, nil
}

// resolveUser maps a provider identity to a user:
//  1. an existing (provider, account id) link wins;
//  2. otherwise a user with the same verified email is linked;
//  3. otherwise a new user is created.
func (s *SocialAuthService) resolveUser(ctx context.Context, id *ports.OAuthIdentity) (*domain.User, error) {
	account, err := s.accounts.FindByProvider(ctx, id.Provider, id.AccountID)
	switch {
	case err == nil:
		user, err := s.users.FindByID(ctx, account.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				return nil, domain.ErrAccountNotLinked
			}
			return nil, upstream("resolve user", err)
		}
		return user, nil
	case !errors.Is(err, domain.ErrAccountNotFound):
		return nil, upstream("find account", err)
	}

	email := strings.ToLower(strings.TrimSpace(id.Email))
	if email == "" {
		return nil, domain.ErrOAuthEmailMissing
	}

	now := s.now()
	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if !id.EmailVerified {
			return nil, domain.ErrAccountNotLinked
		}
		if !user.EmailVerified {
			if err := s.users.MarkEmailVerified(ctx, user.ID); err != nil {
				s.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to mark email verified")
			} else {
				user.EmailVerified = true
			}
		}
	case errors.Is(err, domain.ErrUserNotFound):
		user, err = s.users.Create(ctx, &domain.User{
			Email:         email,
			Name:          id.Name,
			Image:         id.Image,
			EmailVerified: id.EmailVerified,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		if err != nil {
			if errors.Is(err, domain.ErrEmailAlreadyRegistered) {
				return nil, err
			}
			return nil, upstream("create user", err)
		}
	default:
		return nil, upstream("find user", err)
	}

	if err := s.accounts.Create(ctx, &domain.Account{
		ID:                uuid.NewString(),
		UserID:            user.ID,
		Provider:          id.Provider,
		ProviderAccountID: id.AccountID,
		CreatedAt:         now,
	}); err != nil {
		return nil, upstream("link account", err)
	}
	return user, nil
}
