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

// AuthHandler serves the JSON auth surface under /api/auth.
type AuthHandler struct {
	auth    ports.AuthService
	social  ports.SocialAuthService
	cookies *middleware.SessionCookies
	log     zerolog.Logger
}

func NewAuthHandler(auth ports.AuthService, social ports.SocialAuthService, cookies *middleware.SessionCookies, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, social: social, cookies: cookies, log: log}
}

type sessionResponse struct {
	Session *domain.Session `json:"session"`
	User    *domain.User    `json:"user"`
}

func newSessionResponse(s *domain.Session) sessionResponse {
	session := *s
	session.User = nil
	return sessionResponse{Session: &session, User: s.User}
}

type socialRequest struct {
	Provider    string `json:"provider"`
	CallbackURL string `json:"callbackURL"`
}

type redirectResponse struct {
	URL      string `json:"url"`
	Redirect bool   `json:"redirect"`
}

type statusResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message,omitempty"`
}

// SignInEmail authenticates with email and password.
//
// @Summary      Sign in with email
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      validation.SignIn  true  "Credentials"
// @Success      200   {object}  sessionResponse
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      422   {object}  map[string]any
// @Failure      429   {object}  map[string]string
// @Router       /api/auth/sign-in/email [post]
func (h *AuthHandler) SignInEmail(c echo.Context) error {
	var req validation.SignIn
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	session, err := h.auth.SignIn(c.Request().Context(), req, clientInfo(c))
	metrics.SignInsTotal.WithLabelValues(signInResult(err)).Inc()
	if err != nil {
		return err
	}

	h.cookies.Write(c, session)
	middleware.Replace(c, session)
	return c.JSON(http.StatusOK, newSessionResponse(session))
}

// SignUpEmail registers a credential account and sends a verification email.
//
// @Summary      Sign up with email
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      validation.SignUp  true  "New account"
// @Success      200   {object}  statusResponse
// @Failure      409   {object}  map[string]string
// @Failure      422   {object}  map[string]any
// @Router       /api/auth/sign-up/email [post]
func (h *AuthHandler) SignUpEmail(c echo.Context) error {
	var req validation.SignUp
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		metrics.SignUpsTotal.WithLabelValues("invalid").Inc()
		return err
	}

	err := h.auth.SignUp(c.Request().Context(), req)
	metrics.SignUpsTotal.WithLabelValues(signUpResult(err)).Inc()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, statusResponse{Status: true, Message: signUpMessage})
}

// SignInSocial starts an OAuth handshake.
//
// @Summary      Sign in with a social provider
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      socialRequest  true  "Provider and callback"
// @Success      200   {object}  redirectResponse
// @Failure      404   {object}  map[string]string
// @Router       /api/auth/sign-in/social [post]
func (h *AuthHandler) SignInSocial(c echo.Context) error {
	var req socialRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	url, err := h.social.SignInSocial(c.Request().Context(), req.Provider, req.CallbackURL)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, redirectResponse{URL: url, Redirect: true})
}

// Callback finishes an OAuth handshake. The user agent lands here from the
// provider, so every outcome is a redirect.
//
// @Summary      OAuth callback
// @Tags         auth
// @Param        provider  path   string  true  "google or github"
// @Param        state     query  string  true  "Handshake state"
// @Param        code      query  string  true  "Authorization code"
// @Success      302
// @Router       /api/auth/callback/{provider} [get]
func (h *AuthHandler) Callback(c echo.Context) error {
	provider := c.Param("provider")

	if reason := c.QueryParam("error"); reason != "" {
		metrics.SocialSignInsTotal.WithLabelValues(provider, "error").Inc()
		h.log.Warn().Str("provider", provider).Str("reason", reason).Msg("oauth provider returned an error")
		setFlash(c, views.FlashError, "Sign in was cancelled")
		return c.Redirect(http.StatusFound, service.SignInPath)
	}

	session, callbackURL, err := h.social.CompleteSocial(
		c.Request().Context(), provider, c.QueryParam("state"), c.QueryParam("code"), clientInfo(c),
	)
	metrics.SocialSignInsTotal.WithLabelValues(provider, result(err)).Inc()
	if err != nil {
		setFlash(c, views.FlashError, userMessage(h.log, c, err))
		return c.Redirect(http.StatusFound, service.SignInPath)
	}

	h.cookies.Write(c, session)
	return c.Redirect(http.StatusFound, service.SafeRedirect(callbackURL, service.HomePath))
}

// GetSession returns the current session, or null.
//
// @Summary      Current session
// @Tags         auth
// @Produce      json
// @Success      200  {object}  sessionResponse
// @Router       /api/auth/get-session [get]
func (h *AuthHandler) GetSession(c echo.Context) error {
	session, err := middleware.Current(c)
	if errors.Is(err, domain.ErrUnauthorized) {
		return c.JSON(http.StatusOK, nil)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newSessionResponse(session))
}

// UpdateUser changes the name or image of the signed-in user.
//
// @Summary      Update user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      ports.UpdateUserInput  true  "Fields to change"
// @Success      200   {object}  statusResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      422   {object}  map[string]any
// @Router       /api/auth/update-user [post]
func (h *AuthHandler) UpdateUser(c echo.Context) error {
	var req ports.UpdateUserInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	session, err := h.auth.UpdateUser(c.Request().Context(), h.cookies.Token(c), req)
	metrics.ProfileUpdatesTotal.WithLabelValues(updateResult(err)).Inc()
	if err != nil {
		return err
	}

	h.cookies.Write(c, session)
	middleware.Replace(c, session)
	return c.JSON(http.StatusOK, statusResponse{Status: true})
}

// SignOut revokes the current session.
//
// @Summary      Sign out
// @Tags         auth
// @Produce      json
// @Success      200  {object}  statusResponse
// @Router       /api/auth/sign-out [post]
func (h *AuthHandler) SignOut(c echo.Context) error {
	if token := h.cookies.Token(c); token != "" {
		if err := h.auth.SignOut(c.Request().Context(), token); err != nil {
			return err
		}
	}
	h.cookies.Clear(c)
	middleware.Replace(c, nil)
	return c.JSON(http.StatusOK, statusResponse{Status: true})
}

// VerifyEmail consumes a verification link and redirects to its callback.
//
// @Summary      Verify email
// @Tags         auth
// @Param        token        query  string  true   "Verification token"
// @Param        callbackURL  query  string  false  "Where to go afterwards"
// @Success      302
// @Router       /api/auth/verify-email [get]
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	if err := h.auth.VerifyEmail(c.Request().Context(), c.QueryParam("token")); err != nil {
		setFlash(c, views.FlashError, userMessage(h.log, c, err))
		return c.Redirect(http.StatusFound, service.SignInPath)
	}

	setFlash(c, views.FlashSuccess, "Email verified. You can now sign in.")
	return c.Redirect(http.StatusFound, service.SafeRedirect(c.QueryParam("callbackURL"), service.HomePath))
}

// RequestPasswordReset emails a reset link. The response does not reveal
// whether the address is registered.
//
// @Summary      Request password reset
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      validation.RequestPassword  true  "Email and redirect path"
// @Success      200   {object}  statusResponse
// @Failure      422   {object}  map[string]any
// @Router       /api/auth/request-password-reset [post]
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	var req validation.RequestPassword
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	if err := h.auth.RequestPasswordReset(c.Request().Context(), req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, statusResponse{Status: true, Message: resetRequestedMessage})
}

// ResetPassword sets a new password from a reset token and revokes every
// session of the user.
//
// @Summary      Reset password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      validation.ResetPassword  true  "Token and new password"
// @Success      200   {object}  statusResponse
// @Failure      400   {object}  map[string]string
// @Failure      422   {object}  map[string]any
// @Router       /api/auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req validation.ResetPassword
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	if err := h.auth.ResetPassword(c.Request().Context(), req); err != nil {
		return err
	}
	h.cookies.Clear(c)
	return c.JSON(http.StatusOK, statusResponse{Status: true})
}
