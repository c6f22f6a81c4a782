package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

const (
	DefaultSessionTTL       = 7 * 24 * time.Hour
	DefaultSessionUpdateAge = 24 * time.Hour
)

// sessionIssuer creates sessions for both the credential and the social
// sign-in paths.
type sessionIssuer struct {
	repo ports.SessionRepository
	ttl  time.Duration
	now  func() time.Time
}

func (i *sessionIssuer) issue(ctx context.Context, user *domain.User, client domain.ClientInfo) (*domain.Session, error) {
	token, err := randomToken()
	if err != nil {
		return nil, err
	}

	now := i.now()
	session := &domain.Session{
		ID:        uuid.NewString(),
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: now.Add(i.ttl),
		CreatedAt: now,
		UpdatedAt: now,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
	}
	if err := i.repo.Create(ctx, session); err != nil {
		return nil, upstream("create session", err)
	}

	session.User = user
	return session, nil
}

// randomToken returns 32 random bytes, base64url encoded.
func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// upstream tags err as a dependency failure.
func upstream(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrUpstream, err)
}
