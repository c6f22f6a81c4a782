package domain

import "time"

// Session is an issued login. Token is the opaque value stored in the
// session cookie; ID is internal.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"-"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`

	// User is filled by lookups; it is not persisted with the session.
	User *User `json:"user,omitempty"`
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// ClientInfo describes the user agent that asked for a session.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}
