package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/api/middleware"
	"github.com/99minutos/account-service/internal/api/views"
	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
	"github.com/99minutos/account-service/internal/core/service"
	"github.com/99minutos/account-service/internal/infrastructure/http/handlers"
)

// routerAuth answers GetSession only.
type routerAuth struct {
	ports.AuthService
	session *domain.Session
}

func (a *routerAuth) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	if a.session == nil || token != a.session.Token {
		return nil, domain.ErrUnauthorized
	}
	return a.session, nil
}

func newTestRouter(t *testing.T, session *domain.Session, ready error) http.Handler {
	t.Helper()
	renderer, err := views.NewRenderer()
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	codec := service.NewJWTSessionCodec("test-secret", time.Hour)
	return NewRouter(Dependencies{
		Log:      zerolog.Nop(),
		Auth:     &routerAuth{session: session},
		Cookies:  middleware.NewSessionCookies(codec, false, time.Hour),
		Renderer: renderer,
		AppName:  "Acme",
		Registry: prometheus.NewRegistry(),
		Readiness: map[string]handlers.Check{
			"mongo": func(context.Context) error { return ready },
		},
	})
}

func serve(h http.Handler, method, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_HomeRequiresSession(t *testing.T) {
	rec := serve(newTestRouter(t, nil, nil), http.MethodGet, "/")
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/sign-in" {
		t.Fatalf("expected 303 to /sign-in, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestRouter_HomeWithSession(t *testing.T) {
	session := &domain.Session{
		ID:        "sess_1",
		Token:     "tok_1",
		UserID:    "user_1",
		ExpiresAt: time.Now().Add(time.Hour),
		User:      &domain.User{ID: "user_1", Email: "user@test.com", Name: "Jane"},
	}
	rec := serve(newTestRouter(t, session, nil), http.MethodGet, "/",
		&http.Cookie{Name: middleware.SessionTokenCookie, Value: "tok_1"})

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Welcome, Jane") {
		t.Fatalf("expected home page, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_SignInPageIsPublic(t *testing.T) {
	rec := serve(newTestRouter(t, nil, nil), http.MethodGet, "/sign-in")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<h1>Sign in</h1>") {
		t.Fatalf("expected sign-in page, got %d", rec.Code)
	}
}

func TestRouter_UpdateUserRequiresSession(t *testing.T) {
	rec := serve(newTestRouter(t, nil, nil), http.MethodPost, "/api/auth/update-user")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body.Error != domain.ErrUnauthorized.Error() {
		t.Fatalf("unexpected error body: %+v", body)
	}
}

func TestRouter_Readiness(t *testing.T) {
	if rec := serve(newTestRouter(t, nil, nil), http.MethodGet, "/health/ready"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := serve(newTestRouter(t, nil, errors.New("down")), http.MethodGet, "/health/ready"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestRouter_Metrics(t *testing.T) {
	router := newTestRouter(t, nil, nil)
	serve(router, http.MethodGet, "/health")

	rec := serve(router, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "accounts_requests_total") {
		t.Fatalf("expected request metrics, got %d %s", rec.Code, rec.Body.String())
	}
}
