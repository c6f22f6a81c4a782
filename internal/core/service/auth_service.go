package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
	"github.com/99minutos/account-service/internal/core/validation"
)

const DefaultVerificationTTL = time.Hour

// AuthConfig carries the tunables of AuthService. Zero durations fall back
// to the defaults declared in this package.
type AuthConfig struct {
	BaseURL                  string
	AppName                  string
	RequireEmailVerification bool
	SessionTTL               time.Duration
	SessionUpdateAge         time.Duration
	VerificationTTL          time.Duration
	ImageHosts               []string
	// ImageOrigins are base URLs of our own image store. URLs below them are
	// accepted whatever their scheme.
	ImageOrigins []string
}

// AuthDeps groups the collaborators of AuthService. Limiter may be nil.
type AuthDeps struct {
	Users         ports.UserRepository
	Accounts      ports.AccountRepository
	Sessions      ports.SessionRepository
	Verifications ports.VerificationRepository
	Limiter       ports.AttemptLimiter
	Emails        ports.EmailRenderer
	Dispatcher    ports.EmailDispatcher
}

// AuthService implements credential sign-in, sign-up, sessions, email
// verification and password reset.
type AuthService struct {
	deps   AuthDeps
	cfg    AuthConfig
	issuer *sessionIssuer
	log    zerolog.Logger
	now    func() time.Time
}

func NewAuthService(deps AuthDeps, cfg AuthConfig, log zerolog.Logger) *AuthService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.SessionUpdateAge <= 0 {
		cfg.SessionUpdateAge = DefaultSessionUpdateAge
	}
	if cfg.VerificationTTL <= 0 {
		cfg.VerificationTTL = DefaultVerificationTTL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	s := &AuthService{deps: deps, cfg: cfg, log: log}
	s.setClock(func() time.Time { return time.Now().UTC() })
	return s
}

func (s *AuthService) setClock(now func() time.Time) {
	s.now = now
	s.issuer = &sessionIssuer{repo: s.deps.Sessions, ttl: s.cfg.SessionTTL, now: now}
}

func (s *AuthService) SignIn(ctx context.Context, in validation.SignIn, client domain.ClientInfo) (*domain.Session, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	email := validation.NormalizeEmail(in.Email)

	if err := s.allow(ctx, "sign-in:"+email); err != nil {
		return nil, err
	}

	user, err := s.deps.Users.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		// Burn comparable time so unknown emails are not distinguishable.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(in.Password))
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, upstream("sign in", err)
	}

	if user.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	if s.cfg.RequireEmailVerification && !user.EmailVerified {
		return nil, domain.ErrEmailNotVerified
	}

	if s.deps.Limiter != nil {
		if err := s.deps.Limiter.Reset(ctx, "sign-in:"+email); err != nil {
			s.log.Warn().Err(err).Msg("failed to reset sign-in attempts")
		}
	}

	session, err := s.issuer.issue(ctx, user, client)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Msg("signed in")
	return session, nil
}

func (s *AuthService) SignUp(ctx context.Context, in validation.SignUp) error {
	if err := in.Validate(); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("sign up: hash password: %w", err)
	}

	now := s.now()
	user, err := s.deps.Users.Create(ctx, &domain.User{
		Email:        validation.NormalizeEmail(in.Email),
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, domain.ErrEmailAlreadyRegistered) {
		return err
	}
	if err != nil {
		return upstream("sign up", err)
	}

	if err := s.deps.Accounts.Create(ctx, &domain.Account{
		ID:                uuid.NewString(),
		UserID:            user.ID,
		Provider:          domain.ProviderCredential,
		ProviderAccountID: user.ID,
		CreatedAt:         now,
	}); err != nil {
		// The password hash lives on the user, so sign-in still works.
		// ResetPassword recreates the link when it is missing.
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("sign up: credential account not linked")
	}

	s.log.Info().Str("user_id", user.ID).Msg("user signed up")

	s.sendVerification(ctx, user)
	return nil
}

// sendVerification issues a verification token and hands the email to the
// dispatcher. Failures are logged only; the caller has already succeeded.
func (s *AuthService) sendVerification(ctx context.Context, user *domain.User) {
	token, err := s.createVerification(ctx, user, domain.PurposeEmailVerification)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to create verification token")
		return
	}

	q := url.Values{}
	q.Set("token", token)
	q.Set("callbackURL", "/")

	msg, err := s.deps.Emails.Verification(ports.VerificationEmail{
		To:      user.Email,
		URL:     s.cfg.BaseURL + "/api/auth/verify-email?" + q.Encode(),
		Name:    user.DisplayName(),
		AppName: s.cfg.AppName,
	})
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to render verification email")
		return
	}
	s.deps.Dispatcher.Dispatch(msg)
}

func (s *AuthService) createVerification(ctx context.Context, user *domain.User, purpose domain.VerificationPurpose) (string, error) {
	token, err := randomToken()
	if err != nil {
		return "", err
	}

	now := s.now()
	if err := s.deps.Verifications.Create(ctx, &domain.Verification{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		Identifier: user.Email,
		Purpose:    purpose,
		TokenHash:  hashToken(token),
		ExpiresAt:  now.Add(s.cfg.VerificationTTL),
		CreatedAt:  now,
	}); err != nil {
		return "", upstream("create verification", err)
	}
	return token, nil
}

func (s *AuthService) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.deps.Sessions.DeleteByToken(ctx, token); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return upstream("sign out", err)
	}
	return nil
}

// GetSession loads the live session for token together with its user. A
// session older than the update age gets its expiry pushed forward.
func (s *AuthService) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}

	session, err := s.deps.Sessions.FindByToken(ctx, token)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, upstream("get session", err)
	}

	now := s.now()
	if session.Expired(now) {
		if err := s.deps.Sessions.DeleteByToken(ctx, token); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			s.log.Warn().Err(err).Str("session_id", session.ID).Msg("failed to delete expired session")
		}
		return nil, domain.ErrUnauthorized
	}

	user, err := s.deps.Users.FindByID(ctx, session.UserID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, upstream("get session: user", err)
	}
	session.User = user

	if now.Sub(session.UpdatedAt) >= s.cfg.SessionUpdateAge {
		expiresAt := now.Add(s.cfg.SessionTTL)
		if err := s.deps.Sessions.Extend(ctx, token, expiresAt, now); err != nil {
			s.log.Warn().Err(err).Str("session_id", session.ID).Msg("failed to refresh session")
		} else {
			session.ExpiresAt = expiresAt
			session.UpdatedAt = now
		}
	}

	return session, nil
}

// UpdateUser writes name and image for the session user and returns the
// refreshed session. An email that differs from the stored one is rejected.
func (s *AuthService) UpdateUser(ctx context.Context, token string, in ports.UpdateUserInput) (*domain.Session, error) {
	session, err := s.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}

	if in.Email != nil && validation.NormalizeEmail(*in.Email) != session.User.Email {
		return nil, domain.ErrEmailImmutable
	}

	if err := validation.Update(in.Name, in.Image); err != nil {
		return nil, err
	}
	if in.Image != nil && *in.Image != "" && !s.imageAllowed(*in.Image) {
		return nil, domain.ErrImageHostNotAllowed
	}

	update := domain.ProfileUpdate{Name: in.Name, Image: in.Image}
	if update.Empty() {
		return session, nil
	}
	if update.Name != nil {
		trimmed := strings.TrimSpace(*update.Name)
		update.Name = &trimmed
	}

	user, err := s.deps.Users.UpdateProfile(ctx, session.UserID, update)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, upstream("update user", err)
	}

	refreshed := *session
	refreshed.User = user
	s.log.Info().Str("user_id", user.ID).Msg("profile updated")
	return &refreshed, nil
}

// imageAllowed accepts everything when no hosts or origins are configured.
func (s *AuthService) imageAllowed(rawURL string) bool {
	if len(s.cfg.ImageHosts) == 0 && len(s.cfg.ImageOrigins) == 0 {
		return true
	}
	return validation.HostAllowed(rawURL, s.cfg.ImageHosts) ||
		validation.UnderOrigin(rawURL, s.cfg.ImageOrigins)
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	v, err := s.consume(ctx, token, domain.PurposeEmailVerification)
	if err != nil {
		return err
	}

	if err := s.deps.Users.MarkEmailVerified(ctx, v.UserID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrInvalidToken
		}
		return upstream("verify email", err)
	}

	s.log.Info().Str("user_id", v.UserID).Msg("email verified")
	return nil
}

// RequestPasswordReset emails a reset link when the address belongs to a
// user. Unknown addresses succeed silently.
func (s *AuthService) RequestPasswordReset(ctx context.Context, in validation.RequestPassword) error {
	if err := in.Validate(); err != nil {
		return err
	}

	user, err := s.deps.Users.FindByEmail(ctx, validation.NormalizeEmail(in.Email))
	if errors.Is(err, domain.ErrUserNotFound) {
		s.log.Debug().Msg("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return upstream("request password reset", err)
	}

	token, err := s.createVerification(ctx, user, domain.PurposeResetPassword)
	if err != nil {
		return err
	}

	msg, err := s.deps.Emails.PasswordReset(ports.PasswordResetEmail{
		To:      user.Email,
		URL:     s.cfg.BaseURL + resetPath(in.RedirectTo) + "?token=" + url.QueryEscape(token),
		AppName: s.cfg.AppName,
	})
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("failed to render password reset email")
		return nil
	}
	s.deps.Dispatcher.Dispatch(msg)
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, in validation.ResetPassword) error {
	if err := in.Validate(); err != nil {
		return err
	}

	v, err := s.consume(ctx, in.Token, domain.PurposeResetPassword)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("reset password: hash password: %w", err)
	}

	if err := s.deps.Users.UpdatePasswordHash(ctx, v.UserID, string(hash)); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrInvalidToken
		}
		return upstream("reset password", err)
	}

	// Social-only users gain a credential account on their first reset.
	if _, err := s.deps.Accounts.FindByUser(ctx, v.UserID, domain.ProviderCredential); errors.Is(err, domain.ErrAccountNotFound) {
		if err := s.deps.Accounts.Create(ctx, &domain.Account{
			ID:                uuid.NewString(),
			UserID:            v.UserID,
			Provider:          domain.ProviderCredential,
			ProviderAccountID: v.UserID,
			CreatedAt:         s.now(),
		}); err != nil {
			return upstream("reset password: link credential", err)
		}
	} else if err != nil {
		return upstream("reset password: find credential", err)
	}

	if err := s.deps.Sessions.DeleteByUserID(ctx, v.UserID); err != nil {
		s.log.Warn().Err(err).Str("user_id", v.UserID).Msg("failed to revoke sessions after password reset")
	}

	s.log.Info().Str("user_id", v.UserID).Msg("password reset")
	return nil
}

func (s *AuthService) consume(ctx context.Context, token string, purpose domain.VerificationPurpose) (*domain.Verification, error) {
	if token == "" {
		return nil, domain.ErrInvalidToken
	}
	v, err := s.deps.Verifications.Consume(ctx, hashToken(token), purpose)
	if errors.Is(err, domain.ErrInvalidToken) {
		return nil, err
	}
	if err != nil {
		return nil, upstream("consume token", err)
	}
	if v.Expired(s.now()) {
		return nil, domain.ErrTokenExpired
	}
	return v, nil
}

func (s *AuthService) allow(ctx context.Context, key string) error {
	if s.deps.Limiter == nil {
		return nil
	}
	ok, err := s.deps.Limiter.Allow(ctx, key)
	if err != nil {
		// Limiter outages fail open.
		s.log.Warn().Err(err).Msg("attempt limiter unavailable")
		return nil
	}
	if !ok {
		return domain.ErrTooManyAttempts
	}
	return nil
}

// resetPath keeps redirect targets on this host.
func resetPath(redirectTo string) string {
	if SafeRedirect(redirectTo, "") == "" {
		return "/reset-password"
	}
	u, _ := url.Parse(redirectTo)
	return u.Path
}

// SafeRedirect returns target when it is a local absolute path and fallback
// otherwise.
func SafeRedirect(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, `\`) {
		return fallback
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return target
}

// dummyHash is compared against when the email is unknown.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("account-service"), bcrypt.DefaultCost)
