package ports

import (
	"context"
	"time"

	"github.com/99minutos/account-service/internal/core/domain"
)

// UserRepository persists users. FindBy* return domain.ErrUserNotFound when
// nothing matches and Create returns domain.ErrEmailAlreadyRegistered on a
// duplicate email.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// UpdateProfile writes only the non-nil fields of update and returns the
	// stored user.
	UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.User, error)
	MarkEmailVerified(ctx context.Context, id string) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	// FindByProvider returns domain.ErrAccountNotFound when the pair is unknown.
	FindByProvider(ctx context.Context, provider, providerAccountID string) (*domain.Account, error)
	FindByUser(ctx context.Context, userID, provider string) (*domain.Account, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	// FindByToken returns domain.ErrSessionNotFound for unknown tokens.
	FindByToken(ctx context.Context, token string) (*domain.Session, error)
	Extend(ctx context.Context, token string, expiresAt, updatedAt time.Time) error
	DeleteByToken(ctx context.Context, token string) error
	DeleteByUserID(ctx context.Context, userID string) error
}

type VerificationRepository interface {
	Create(ctx context.Context, v *domain.Verification) error
	// Consume atomically removes and returns the request matching tokenHash
	// and purpose. A token can be consumed once; later calls return
	// domain.ErrInvalidToken.
	Consume(ctx context.Context, tokenHash string, purpose domain.VerificationPurpose) (*domain.Verification, error)
}

// AttemptLimiter counts attempts per key within a fixed window.
type AttemptLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}
