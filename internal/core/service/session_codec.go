package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/99minutos/account-service/internal/core/domain"
)

const DefaultCookieCacheTTL = 60 * time.Minute

// JWTSessionCodec signs a snapshot of the session into the session_data
// cookie so most requests skip the database.
type JWTSessionCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTSessionCodec(secret string, ttl time.Duration) *JWTSessionCodec {
	if ttl <= 0 {
		ttl = DefaultCookieCacheTTL
	}
	return &JWTSessionCodec{secret: []byte(secret), ttl: ttl, now: time.Now}
}

type sessionClaims struct {
	SessionID        string `json:"sid"`
	Token            string `json:"tok"`
	UserID           string `json:"uid"`
	Email            string `json:"email"`
	Name             string `json:"name"`
	Image            string `json:"image,omitempty"`
	EmailVerified    bool   `json:"ev"`
	TwoFactorEnabled bool   `json:"tfa"`
	SessionExpiresAt int64  `json:"sexp"`
	jwt.RegisteredClaims
}

func (c *JWTSessionCodec) Encode(s *domain.Session) (string, error) {
	if s == nil || s.User == nil {
		return "", errors.New("encode session: missing user")
	}

	now := c.now()
	exp := now.Add(c.ttl)
	if s.ExpiresAt.Before(exp) {
		exp = s.ExpiresAt
	}

	claims := sessionClaims{
		SessionID:        s.ID,
		Token:            hashToken(s.Token),
		UserID:           s.UserID,
		Email:            s.User.Email,
		Name:             s.User.Name,
		Image:            s.User.Image,
		EmailVerified:    s.User.EmailVerified,
		TwoFactorEnabled: s.User.TwoFactorEnabled,
		SessionExpiresAt: s.ExpiresAt.Unix(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session cache: %w", err)
	}
	return signed, nil
}

// Decode verifies value and checks it was issued for token. Any failure
// returns domain.ErrUnauthorized; callers fall back to a database lookup.
func (c *JWTSessionCodec) Decode(value, token string) (*domain.Session, error) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(value, &claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, domain.ErrUnauthorized
	}
	if claims.Token != hashToken(token) {
		return nil, domain.ErrUnauthorized
	}

	return &domain.Session{
		ID:        claims.SessionID,
		Token:     token,
		UserID:    claims.UserID,
		ExpiresAt: time.Unix(claims.SessionExpiresAt, 0).UTC(),
		CreatedAt: claims.IssuedAt.Time,
		UpdatedAt: claims.IssuedAt.Time,
		User: &domain.User{
			ID:               claims.UserID,
			Email:            claims.Email,
			Name:             claims.Name,
			Image:            claims.Image,
			EmailVerified:    claims.EmailVerified,
			TwoFactorEnabled: claims.TwoFactorEnabled,
		},
	}, nil
}
