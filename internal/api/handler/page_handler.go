package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/api/metrics"
	"github.com/99minutos/account-service/internal/api/middleware"
	"github.com/99minutos/account-service/internal/api/views"
	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
	"github.com/99minutos/account-service/internal/core/service"
	"github.com/99minutos/account-service/internal/core/validation"
)

const (
	signUpMessage         = "Sign up successful. Check your email to verify your account."
	resetRequestedMessage = "If this email exists in our system, check your email for the reset link."
	profileUpdatedMessage = "Profile updated successfully"
	passwordResetMessage  = "Password reset. You can now sign in with your new password."

	profilePath         = "/update-profile"
	requestPasswordPath = "/request-password"
	resetPasswordPath   = "/reset-password"
)

type PageDeps struct {
	Auth      ports.AuthService
	Social    ports.SocialAuthService
	Profiles  ports.ProfileService
	Images    ports.ImageStore
	Cookies   *middleware.SessionCookies
	AppName   string
	Providers []string
}

// PageHandler serves the server-rendered forms. Every successful POST
// redirects (post/redirect/get) and reports its outcome as a flash.
type PageHandler struct {
	deps PageDeps
	log  zerolog.Logger
}

func NewPageHandler(deps PageDeps, log zerolog.Logger) *PageHandler {
	return &PageHandler{deps: deps, log: log}
}

func (h *PageHandler) render(c echo.Context, status int, name string, page views.Page) error {
	page.AppName = h.deps.AppName
	if page.Flash == nil {
		page.Flash = popFlash(c)
	}
	return c.Render(status, name, page)
}

// rerender shows the form again with field errors, or with the gateway's
// message as a notification.
func (h *PageHandler) rerender(c echo.Context, name string, page views.Page, err error) error {
	if ve, ok := validation.AsErrors(err); ok {
		page.Errors = ve
		return h.render(c, http.StatusUnprocessableEntity, name, page)
	}
	page.Flash = &views.Flash{Kind: views.FlashError, Message: userMessage(h.log, c, err)}
	return h.render(c, http.StatusOK, name, page)
}

func (h *PageHandler) redirectWithFlash(c echo.Context, to, kind, message string) error {
	setFlash(c, kind, message)
	return c.Redirect(http.StatusSeeOther, to)
}

func (h *PageHandler) Home(c echo.Context) error {
	session, err := middleware.Current(c)
	if err != nil {
		return c.Redirect(http.StatusSeeOther, service.SignInPath)
	}
	return h.render(c, http.StatusOK, views.PageHome, views.Page{Title: "Home", Session: session})
}

func (h *PageHandler) SignInForm(c echo.Context) error {
	return h.render(c, http.StatusOK, views.PageSignIn, h.signInPage(nil))
}

func (h *PageHandler) SignIn(c echo.Context) error {
	var in validation.SignIn
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	page := h.signInPage(map[string]string{"email": in.Email})

	if err := in.Validate(); err != nil {
		return h.rerender(c, views.PageSignIn, page, err)
	}

	session, err := h.deps.Auth.SignIn(c.Request().Context(), in, clientInfo(c))
	metrics.SignInsTotal.WithLabelValues(signInResult(err)).Inc()
	if err != nil {
		return h.rerender(c, views.PageSignIn, page, err)
	}

	h.deps.Cookies.Write(c, session)
	return c.Redirect(http.StatusSeeOther, service.HomePath)
}

func (h *PageHandler) signInPage(form map[string]string) views.Page {
	return views.Page{Title: "Sign in", Form: form, Providers: h.deps.Providers}
}

func (h *PageHandler) SignUpForm(c echo.Context) error {
	return h.render(c, http.StatusOK, views.PageSignUp, h.signUpPage(nil))
}

func (h *PageHandler) SignUp(c echo.Context) error {
	var in validation.SignUp
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	page := h.signUpPage(map[string]string{"name": in.Name, "email": in.Email})

	if err := in.Validate(); err != nil {
		metrics.SignUpsTotal.WithLabelValues("invalid").Inc()
		return h.rerender(c, views.PageSignUp, page, err)
	}

	err := h.deps.Auth.SignUp(c.Request().Context(), in)
	metrics.SignUpsTotal.WithLabelValues(signUpResult(err)).Inc()
	if err != nil {
		return h.rerender(c, views.PageSignUp, page, err)
	}
	return h.redirectWithFlash(c, service.SignInPath, views.FlashSuccess, signUpMessage)
}

func (h *PageHandler) signUpPage(form map[string]string) views.Page {
	return views.Page{Title: "Sign up", Form: form, Providers: h.deps.Providers}
}

// SocialSignIn sends the user agent to the provider. The callback always
// returns to the application root.
func (h *PageHandler) SocialSignIn(c echo.Context) error {
	url, err := h.deps.Social.SignInSocial(c.Request().Context(), c.Param("provider"), service.HomePath)
	if err != nil {
		return h.redirectWithFlash(c, service.SignInPath, views.FlashError, userMessage(h.log, c, err))
	}
	return c.Redirect(http.StatusSeeOther, url)
}

func (h *PageHandler) SignOut(c echo.Context) error {
	if token := h.deps.Cookies.Token(c); token != "" {
		if err := h.deps.Auth.SignOut(c.Request().Context(), token); err != nil {
			h.log.Warn().Err(err).Msg("sign out failed")
		}
	}
	h.deps.Cookies.Clear(c)
	return c.Redirect(http.StatusSeeOther, service.SignInPath)
}

func (h *PageHandler) ProfileForm(c echo.Context) error {
	profile, err := h.currentProfile(c)
	if err != nil {
		return h.profileUnavailable(c, err)
	}
	return h.render(c, http.StatusOK, views.PageUpdateProfile, views.Page{Title: "Update profile", Profile: profile})
}

// UpdateProfile validates the form, uploads a new image when one was
// attached and submits name and image. The stored email is kept whatever the
// form says.
func (h *PageHandler) UpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()

	current, err := h.currentProfile(c)
	if err != nil {
		return h.profileUnavailable(c, err)
	}

	in := validation.Profile{
		Email: current.Email,
		Name:  c.FormValue("name"),
		Image: c.FormValue("image"),
	}
	if c.FormValue("remove_image") != "" {
		in.Image = ""
	}

	page := views.Page{
		Title:   "Update profile",
		Profile: domain.Profile{Email: in.Email, Name: in.Name, Image: in.Image, TwoFactorEnabled: current.TwoFactorEnabled},
	}

	if err := in.Validate(); err != nil {
		metrics.ProfileUpdatesTotal.WithLabelValues("invalid").Inc()
		return h.rerender(c, views.PageUpdateProfile, page, err)
	}

	if file, err := c.FormFile("file"); err == nil {
		url, err := uploadImage(ctx, h.deps.Images, file)
		if err != nil {
			errs := &validation.Errors{}
			errs.Add("image", userMessage(h.log, c, err))
			return h.rerender(c, views.PageUpdateProfile, page, errs)
		}
		in.Image = url
	} else if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}

	session, err := h.deps.Profiles.Update(ctx, h.deps.Cookies.Token(c), in)
	metrics.ProfileUpdatesTotal.WithLabelValues(updateResult(err)).Inc()
	if err != nil {
		if _, ok := validation.AsErrors(err); ok {
			return h.rerender(c, views.PageUpdateProfile, page, err)
		}
		return h.redirectWithFlash(c, profilePath, views.FlashError, userMessage(h.log, c, err))
	}

	h.deps.Cookies.Write(c, session)
	middleware.Replace(c, session)
	return h.redirectWithFlash(c, profilePath, views.FlashSuccess, profileUpdatedMessage)
}

func (h *PageHandler) currentProfile(c echo.Context) (domain.Profile, error) {
	session, err := middleware.Current(c)
	if err != nil {
		return domain.Profile{}, err
	}
	return h.deps.Profiles.Get(c.Request().Context(), session.UserID)
}

// profileUnavailable sends users whose session or account is gone back to
// sign-in.
func (h *PageHandler) profileUnavailable(c echo.Context, err error) error {
	if errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrUnauthorized) {
		h.deps.Cookies.Clear(c)
		return c.Redirect(http.StatusSeeOther, service.SignInPath)
	}
	return err
}

func (h *PageHandler) RequestPasswordForm(c echo.Context) error {
	return h.render(c, http.StatusOK, views.PageRequestPassword, views.Page{Title: "Reset password"})
}

func (h *PageHandler) RequestPassword(c echo.Context) error {
	in := validation.RequestPassword{Email: c.FormValue("email"), RedirectTo: resetPasswordPath}
	page := views.Page{Title: "Reset password", Form: map[string]string{"email": in.Email}}

	if err := in.Validate(); err != nil {
		return h.rerender(c, views.PageRequestPassword, page, err)
	}
	if err := h.deps.Auth.RequestPasswordReset(c.Request().Context(), in); err != nil {
		return h.rerender(c, views.PageRequestPassword, page, err)
	}
	return h.redirectWithFlash(c, requestPasswordPath, views.FlashSuccess, resetRequestedMessage)
}

func (h *PageHandler) ResetPasswordForm(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return h.redirectWithFlash(c, requestPasswordPath, views.FlashError, domain.ErrInvalidToken.Error())
	}
	return h.render(c, http.StatusOK, views.PageResetPassword, views.Page{Title: "Choose a new password", Token: token})
}

func (h *PageHandler) ResetPassword(c echo.Context) error {
	var in validation.ResetPassword
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	page := views.Page{Title: "Choose a new password", Token: in.Token}

	if err := in.Validate(); err != nil {
		return h.rerender(c, views.PageResetPassword, page, err)
	}
	if err := h.deps.Auth.ResetPassword(c.Request().Context(), in); err != nil {
		if errors.Is(err, domain.ErrInvalidToken) || errors.Is(err, domain.ErrTokenExpired) {
			return h.redirectWithFlash(c, requestPasswordPath, views.FlashError, userMessage(h.log, c, err))
		}
		return h.rerender(c, views.PageResetPassword, page, err)
	}

	h.deps.Cookies.Clear(c)
	return h.redirectWithFlash(c, service.SignInPath, views.FlashSuccess, passwordResetMessage)
}
