package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-service/internal/api/middleware"
	"github.com/99minutos/account-service/internal/api/views"
	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
	"github.com/99minutos/account-service/internal/core/service"
	"github.com/99minutos/account-service/internal/core/validation"
)

type stubAuthService struct {
	signInFn          func(ctx context.Context, in validation.SignIn, client domain.ClientInfo) (*domain.Session, error)
	signUpFn          func(ctx context.Context, in validation.SignUp) error
	signOutFn         func(ctx context.Context, token string) error
	getSessionFn      func(ctx context.Context, token string) (*domain.Session, error)
	updateUserFn      func(ctx context.Context, token string, in ports.UpdateUserInput) (*domain.Session, error)
	verifyEmailFn     func(ctx context.Context, token string) error
	requestPasswordFn func(ctx context.Context, in validation.RequestPassword) error
	resetPasswordFn   func(ctx context.Context, in validation.ResetPassword) error
}

func (s *stubAuthService) SignIn(ctx context.Context, in validation.SignIn, client domain.ClientInfo) (*domain.Session, error) {
	return s.signInFn(ctx, in, client)
}

func (s *stubAuthService) SignUp(ctx context.Context, in validation.SignUp) error {
	return s.signUpFn(ctx, in)
}

func (s *stubAuthService) SignOut(ctx context.Context, token string) error {
	return s.signOutFn(ctx, token)
}

func (s *stubAuthService) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	return s.getSessionFn(ctx, token)
}

func (s *stubAuthService) UpdateUser(ctx context.Context, token string, in ports.UpdateUserInput) (*domain.Session, error) {
	return s.updateUserFn(ctx, token, in)
}

func (s *stubAuthService) VerifyEmail(ctx context.Context, token string) error {
	return s.verifyEmailFn(ctx, token)
}

func (s *stubAuthService) RequestPasswordReset(ctx context.Context, in validation.RequestPassword) error {
	return s.requestPasswordFn(ctx, in)
}

func (s *stubAuthService) ResetPassword(ctx context.Context, in validation.ResetPassword) error {
	return s.resetPasswordFn(ctx, in)
}

type stubSocialService struct {
	signInFn   func(ctx context.Context, provider, callbackURL string) (string, error)
	completeFn func(ctx context.Context, provider, state, code string, client domain.ClientInfo) (*domain.Session, string, error)
}

func (s *stubSocialService) SignInSocial(ctx context.Context, provider, callbackURL string) (string, error) {
	return s.signInFn(ctx, provider, callbackURL)
}

func (s *stubSocialService) CompleteSocial(ctx context.Context, provider, state, code string, client domain.ClientInfo) (*domain.Session, string, error) {
	return s.completeFn(ctx, provider, state, code, client)
}

type stubProfileService struct {
	getFn    func(ctx context.Context, userID string) (domain.Profile, error)
	updateFn func(ctx context.Context, token string, in validation.Profile) (*domain.Session, error)
}

func (s *stubProfileService) Get(ctx context.Context, userID string) (domain.Profile, error) {
	return s.getFn(ctx, userID)
}

func (s *stubProfileService) Update(ctx context.Context, token string, in validation.Profile) (*domain.Session, error) {
	return s.updateFn(ctx, token, in)
}

type stubImageStore struct {
	uploadFn func(ctx context.Context, r io.Reader, size int64) (string, error)
}

func (s *stubImageStore) UploadImage(ctx context.Context, r io.Reader, size int64) (string, error) {
	return s.uploadFn(ctx, r, size)
}

func testCookies() *middleware.SessionCookies {
	return middleware.NewSessionCookies(service.NewJWTSessionCodec("test-secret", time.Hour), false, time.Hour)
}

func testSession() *domain.Session {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.Session{
		ID:        "sess_1",
		Token:     "tok_1",
		UserID:    "user_1",
		ExpiresAt: now.Add(7 * 24 * time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
		User:      &domain.User{ID: "user_1", Email: "user@test.com", Name: "Jane", EmailVerified: true},
	}
}

func newEcho(t *testing.T) *echo.Echo {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()
	r, err := views.NewRenderer()
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	e.Renderer = r
	return e
}

func formRequest(method, target string, values map[string]string) *http.Request {
	form := url.Values{}
	for k, v := range values {
		form.Set(k, v)
	}
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}

// attachSession installs a request lookup that resolves to s; nil means
// no session.
func attachSession(t *testing.T, c echo.Context, s *domain.Session) {
	t.Helper()
	mw := middleware.Sessions(&stubAuthService{}, testCookies())
	if err := mw(func(echo.Context) error { return nil })(c); err != nil {
		t.Fatalf("sessions middleware: %v", err)
	}
	middleware.Replace(c, s)
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
