package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

const (
	SessionTokenCookie = "session_token"
	SessionDataCookie  = "session_data"
)

// SessionCookies reads and writes the two session cookies: the opaque token
// and a signed cache of the session that saves a database round trip.
type SessionCookies struct {
	codec    ports.SessionCodec
	secure   bool
	cacheTTL time.Duration
}

func NewSessionCookies(codec ports.SessionCodec, secure bool, cacheTTL time.Duration) *SessionCookies {
	return &SessionCookies{codec: codec, secure: secure, cacheTTL: cacheTTL}
}

func (sc *SessionCookies) Token(c echo.Context) string {
	cookie, err := c.Cookie(SessionTokenCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Cached returns the session from the cache cookie when it is valid for token.
func (sc *SessionCookies) Cached(c echo.Context, token string) (*domain.Session, error) {
	cookie, err := c.Cookie(SessionDataCookie)
	if err != nil || cookie.Value == "" {
		return nil, domain.ErrUnauthorized
	}
	return sc.codec.Decode(cookie.Value, token)
}

// Write sets both cookies for session. A cache that cannot be encoded is
// skipped; the token alone is enough to authenticate.
func (sc *SessionCookies) Write(c echo.Context, session *domain.Session) {
	c.SetCookie(sc.cookie(SessionTokenCookie, session.Token, session.ExpiresAt))

	if value, err := sc.codec.Encode(session); err == nil {
		c.SetCookie(sc.cookie(SessionDataCookie, value, time.Now().Add(sc.cacheTTL)))
	}
}

func (sc *SessionCookies) Clear(c echo.Context) {
	for _, name := range []string{SessionTokenCookie, SessionDataCookie} {
		cookie := sc.cookie(name, "", time.Unix(0, 0))
		cookie.MaxAge = -1
		c.SetCookie(cookie)
	}
}

func (sc *SessionCookies) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   sc.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
