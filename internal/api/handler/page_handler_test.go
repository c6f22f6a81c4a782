package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/api/middleware"
	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/validation"
)

func newPageHandler(deps PageDeps) *PageHandler {
	if deps.Cookies == nil {
		deps.Cookies = testCookies()
	}
	deps.AppName = "Acme"
	return NewPageHandler(deps, zerolog.Nop())
}

func TestPageHandler_SignUp_MismatchRendersConfirmError(t *testing.T) {
	e := newEcho(t)
	h := newPageHandler(PageDeps{Auth: &stubAuthService{
		signUpFn: func(ctx context.Context, in validation.SignUp) error {
			t.Fatal("gateway must not be called for invalid input")
			return nil
		},
	}})

	rec := httptest.NewRecorder()
	c := e.NewContext(formRequest(http.MethodPost, "/sign-up", map[string]string{
		"name":            "Jane",
		"email":           "new@test.com",
		"password":        "longenough1",
		"confirmPassword": "different1",
	}), rec)

	if err := h.SignUp(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Count(body, `class="error"`) != 1 || !strings.Contains(body, "Passwords do not match") {
		t.Fatalf("expected a single confirmation error, got %s", body)
	}
	if !strings.Contains(body, `value="new@test.com"`) {
		t.Fatal("expected submitted email to be kept in the form")
	}
}

func TestPageHandler_SignUp_SuccessRedirectsWithFlash(t *testing.T) {
	e := newEcho(t)
	h := newPageHandler(PageDeps{Auth: &stubAuthService{
		signUpFn: func(ctx context.Context, in validation.SignUp) error { return nil },
	}})

	rec := httptest.NewRecorder()
	c := e.NewContext(formRequest(http.MethodPost, "/sign-up", map[string]string{
		"name":            "New",
		"email":           "new@test.com",
		"password":        "longenough1",
		"confirmPassword": "longenough1",
	}), rec)

	if err := h.SignUp(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusSeeOther || rec.Header().Get(echo.HeaderLocation) != "/sign-in" {
		t.Fatalf("expected 303 to /sign-in, got %d %q", rec.Code, rec.Header().Get(echo.HeaderLocation))
	}
	if findCookie(rec, flashCookie) == nil {
		t.Fatal("expected a flash notification")
	}
}

func TestPageHandler_SignIn_GatewayErrorShownVerbatim(t *testing.T) {
	e := newEcho(t)
	h := newPageHandler(PageDeps{Auth: &stubAuthService{
		signInFn: func(ctx context.Context, in validation.SignIn, client domain.ClientInfo) (*domain.Session, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}})

	rec := httptest.NewRecorder()
	c := e.NewContext(formRequest(http.MethodPost, "/sign-in", map[string]string{
		"email":    "user@test.com",
		"password": "wrongpw",
	}), rec)

	if err := h.SignIn(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), domain.ErrInvalidCredentials.Error()) {
		t.Fatalf("expected gateway message in page, got %s", rec.Body.String())
	}
	if findCookie(rec, middleware.SessionTokenCookie) != nil {
		t.Fatal("no session cookie may be set on failure")
	}
}

func TestPageHandler_SignIn_SuccessSetsCookieAndRedirectsHome(t *testing.T) {
	e := newEcho(t)
	h := newPageHandler(PageDeps{Auth: &stubAuthService{
		signInFn: func(ctx context.Context, in validation.SignIn, client domain.ClientInfo) (*domain.Session, error) {
			return testSession(), nil
		},
	}})

	rec := httptest.NewRecorder()
	c := e.NewContext(formRequest(http.MethodPost, "/sign-in", map[string]string{
		"email":    "user@test.com",
		"password": "longenough1",
	}), rec)

	if err := h.SignIn(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusSeeOther || rec.Header().Get(echo.HeaderLocation) != "/" {
		t.Fatalf("expected 303 to /, got %d %q", rec.Code, rec.Header().Get(echo.HeaderLocation))
	}
	if findCookie(rec, middleware.SessionTokenCookie) == nil {
		t.Fatal("expected session cookie")
	}
}

func TestPageHandler_ProfileForm_MissingUserRedirects(t *testing.T) {
	e := newEcho(t)
	h := newPageHandler(PageDeps{Profiles: &stubProfileService{
		getFn: func(ctx context.Context, userID string) (domain.Profile, error) {
			return domain.Profile{}, domain.ErrUserNotFound
		},
	}})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/update-profile", nil), rec)
	attachSession(t, c, testSession())

	if err := h.ProfileForm(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Header().Get(echo.HeaderLocation) != "/sign-in" {
		t.Fatalf("expected redirect to /sign-in, got %q", rec.Header().Get(echo.HeaderLocation))
	}
}

func TestPageHandler_UpdateProfile_WritesOnlyNameAndImage(t *testing.T) {
	e := newEcho(t)
	session := testSession()
	var got validation.Profile
	h := newPageHandler(PageDeps{Profiles: &stubProfileService{
		getFn: func(ctx context.Context, userID string) (domain.Profile, error) {
			return domain.Profile{Email: "user@test.com", Name: "Old"}, nil
		},
		updateFn: func(ctx context.Context, token string, in validation.Profile) (*domain.Session, error) {
			got = in
			return session, nil
		},
	}})

	rec := httptest.NewRecorder()
	c := e.NewContext(formRequest(http.MethodPost, "/update-profile", map[string]string{
		"email": "attacker@test.com",
		"name":  "Jane",
		"image": "https://utfs.io/f/abc.png",
	}), rec)
	attachSession(t, c, session)

	if err := h.UpdateProfile(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got.Email != "user@test.com" || got.Name != "Jane" || got.Image != "https://utfs.io/f/abc.png" {
		t.Fatalf("unexpected update: %+v", got)
	}
	if rec.Code != http.StatusSeeOther || rec.Header().Get(echo.HeaderLocation) != "/update-profile" {
		t.Fatalf("expected 303 back to the form, got %d %q", rec.Code, rec.Header().Get(echo.HeaderLocation))
	}
}

func TestPageHandler_UpdateProfile_RemoveImage(t *testing.T) {
	e := newEcho(t)
	var got validation.Profile
	h := newPageHandler(PageDeps{Profiles: &stubProfileService{
		getFn: func(ctx context.Context, userID string) (domain.Profile, error) {
			return domain.Profile{Email: "user@test.com", Name: "Jane", Image: "https://utfs.io/f/old.png"}, nil
		},
		updateFn: func(ctx context.Context, token string, in validation.Profile) (*domain.Session, error) {
			got = in
			return testSession(), nil
		},
	}})

	c := e.NewContext(formRequest(http.MethodPost, "/update-profile", map[string]string{
		"name":         "Jane",
		"image":        "https://utfs.io/f/old.png",
		"remove_image": "1",
	}), httptest.NewRecorder())
	attachSession(t, c, testSession())

	if err := h.UpdateProfile(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got.Image != "" {
		t.Fatalf("expected image to be cleared, got %q", got.Image)
	}
}

func TestPageHandler_UpdateProfile_UploadsAttachedFile(t *testing.T) {
	e := newEcho(t)
	var got validation.Profile
	h := newPageHandler(PageDeps{
		Profiles: &stubProfileService{
			getFn: func(ctx context.Context, userID string) (domain.Profile, error) {
				return domain.Profile{Email: "user@test.com", Name: "Jane"}, nil
			},
			updateFn: func(ctx context.Context, token string, in validation.Profile) (*domain.Session, error) {
				got = in
				return testSession(), nil
			},
		},
		Images: &stubImageStore{
			uploadFn: func(ctx context.Context, r io.Reader, size int64) (string, error) {
				data, _ := io.ReadAll(r)
				if string(data) != "png-bytes" {
					t.Fatalf("unexpected upload body %q", data)
				}
				return "https://utfs.io/f/new.png", nil
			},
		},
	})

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	_ = w.WriteField("name", "Jane")
	part, _ := w.CreateFormFile("file", "avatar.png")
	_, _ = part.Write([]byte("png-bytes"))
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/update-profile", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	c := e.NewContext(req, httptest.NewRecorder())
	attachSession(t, c, testSession())

	if err := h.UpdateProfile(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got.Image != "https://utfs.io/f/new.png" {
		t.Fatalf("expected uploaded URL to become the image, got %q", got.Image)
	}
}

func TestPageHandler_UpdateProfile_InvalidNameSkipsGateway(t *testing.T) {
	e := newEcho(t)
	h := newPageHandler(PageDeps{Profiles: &stubProfileService{
		getFn: func(ctx context.Context, userID string) (domain.Profile, error) {
			return domain.Profile{Email: "user@test.com", Name: "Jane"}, nil
		},
		updateFn: func(ctx context.Context, token string, in validation.Profile) (*domain.Session, error) {
			t.Fatal("gateway must not be called for invalid input")
			return nil, nil
		},
	}})

	rec := httptest.NewRecorder()
	c := e.NewContext(formRequest(http.MethodPost, "/update-profile", map[string]string{"name": "J"}), rec)
	attachSession(t, c, testSession())

	if err := h.UpdateProfile(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity || !strings.Contains(rec.Body.String(), "Name must be at least 2 characters") {
		t.Fatalf("expected name error, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestPageHandler_RequestPassword_AlwaysReportsSuccess(t *testing.T) {
	e := newEcho(t)
	var got validation.RequestPassword
	h := newPageHandler(PageDeps{Auth: &stubAuthService{
		requestPasswordFn: func(ctx context.Context, in validation.RequestPassword) error {
			got = in
			return nil
		},
	}})

	rec := httptest.NewRecorder()
	c := e.NewContext(formRequest(http.MethodPost, "/request-password", map[string]string{"email": "nobody@test.com"}), rec)

	if err := h.RequestPassword(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got.RedirectTo != "/reset-password" {
		t.Fatalf("expected reset page as redirect target, got %q", got.RedirectTo)
	}
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
}

func TestPageHandler_ResetPasswordForm_RequiresToken(t *testing.T) {
	e := newEcho(t)
	h := newPageHandler(PageDeps{})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/reset-password", nil), rec)

	if err := h.ResetPasswordForm(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Header().Get(echo.HeaderLocation) != "/request-password" {
		t.Fatalf("expected redirect to /request-password, got %q", rec.Header().Get(echo.HeaderLocation))
	}
}

func TestPageHandler_Home_ShowsFlashOnce(t *testing.T) {
	e := newEcho(t)
	h := newPageHandler(PageDeps{})

	pending := httptest.NewRecorder()
	setFlash(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), pending), "success", "Profile updated successfully")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(findCookie(pending, flashCookie))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	attachSession(t, c, testSession())

	if err := h.Home(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "Profile updated successfully") {
		t.Fatal("expected flash message to be rendered")
	}
	if cookie := findCookie(rec, flashCookie); cookie == nil || cookie.MaxAge >= 0 {
		t.Fatalf("expected flash cookie to be cleared, got %+v", cookie)
	}
}
