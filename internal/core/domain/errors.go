package domain

import "errors"

var (
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrEmailAlreadyRegistered = errors.New("user already exists")
	ErrEmailNotVerified       = errors.New("email not verified")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrUserNotFound           = errors.New("user not found")
	ErrEmailImmutable         = errors.New("email cannot be updated")
	ErrTooManyAttempts        = errors.New("too many attempts, try again later")

	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	ErrUnsupportedProvider = errors.New("provider not found")
	ErrInvalidOAuthState   = errors.New("invalid oauth state")
	ErrOAuthEmailMissing   = errors.New("email not found on provider account")
	ErrAccountNotLinked    = errors.New("account not linked")
	ErrAccountNotFound     = errors.New("account not found")
	ErrSessionNotFound     = errors.New("session not found")

	ErrInvalidImage        = errors.New("invalid image")
	ErrImageTooLarge       = errors.New("image exceeds maximum size")
	ErrImageHostNotAllowed = errors.New("image host is not allowed")

	// ErrUpstream marks failures of the database, email provider, object
	// storage or an OAuth provider.
	ErrUpstream = errors.New("upstream service unavailable")
)

// public lists the errors whose message may be shown to end users verbatim.
var public = []error{
	ErrInvalidCredentials,
	ErrEmailAlreadyRegistered,
	ErrEmailNotVerified,
	ErrUnauthorized,
	ErrUserNotFound,
	ErrEmailImmutable,
	ErrTooManyAttempts,
	ErrInvalidToken,
	ErrTokenExpired,
	ErrUnsupportedProvider,
	ErrInvalidOAuthState,
	ErrOAuthEmailMissing,
	ErrAccountNotLinked,
	ErrInvalidImage,
	ErrImageTooLarge,
	ErrImageHostNotAllowed,
	ErrUpstream,
}

// PublicMessage returns the user-facing message of the first known error in
// err's chain. Wrapping context added by callers is dropped.
func PublicMessage(err error) (string, bool) {
	for _, target := range public {
		if errors.Is(err, target) {
			return target.Error(), true
		}
	}
	return "", false
}
