package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
	"github.com/99minutos/account-service/internal/core/validation"
)

// ProfileService backs the update-profile page.
type ProfileService struct {
	users ports.UserRepository
	auth  ports.AuthService
	log   zerolog.Logger
}

func NewProfileService(users ports.UserRepository, auth ports.AuthService, log zerolog.Logger) *ProfileService {
	return &ProfileService{users: users, auth: auth, log: log}
}

// Get returns the editable projection of the user. A user deleted after the
// session was issued yields domain.ErrUserNotFound.
func (s *ProfileService) Get(ctx context.Context, userID string) (domain.Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.Profile{}, err
	}
	if err != nil {
		return domain.Profile{}, upstream("get profile", err)
	}
	return user.Profile(), nil
}

// Update validates the submitted form and forwards name and image only. The
// submitted email is checked by validation but never sent on.
func (s *ProfileService) Update(ctx context.Context, token string, in validation.Profile) (*domain.Session, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	name, image := in.Name, in.Image
	return s.auth.UpdateUser(ctx, token, ports.UpdateUserInput{
		Name:  &name,
		Image: &image,
	})
}
