package domain

import (
	"strings"
	"time"
)

// User models an account owner. The password hash never leaves the server.
type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	Image            string    `json:"image,omitempty"`
	PasswordHash     string    `json:"-"`
	EmailVerified    bool      `json:"emailVerified"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// DisplayName returns the name used in emails, falling back to the local part
// of the address for accounts created without one.
func (u *User) DisplayName() string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}

// Profile is the projection of a User the profile page reads.
type Profile struct {
	Email            string `json:"email"`
	Name             string `json:"name"`
	Image            string `json:"image"`
	TwoFactorEnabled bool   `json:"twoFactorEnabled"`
}

func (u *User) Profile() Profile {
	return Profile{
		Email:            u.Email,
		Name:             u.Name,
		Image:            u.Image,
		TwoFactorEnabled: u.TwoFactorEnabled,
	}
}

// ProfileUpdate is a partial write. Nil fields are left untouched; email and
// password are not representable here on purpose.
type ProfileUpdate struct {
	Name  *string
	Image *string
}

func (p ProfileUpdate) Empty() bool {
	return p.Name == nil && p.Image == nil
}
