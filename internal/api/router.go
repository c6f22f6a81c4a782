package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/account-service/docs"
	"github.com/99minutos/account-service/internal/api/handler"
	"github.com/99minutos/account-service/internal/api/middleware"
	"github.com/99minutos/account-service/internal/core/ports"
	"github.com/99minutos/account-service/internal/infrastructure/http/handlers"
	"github.com/99minutos/account-service/internal/pkg/errtrack"
)

// Dependencies are the collaborators the router wires into handlers.
type Dependencies struct {
	Log       zerolog.Logger
	Tracker   *errtrack.Tracker
	Auth      ports.AuthService
	Social    ports.SocialAuthService
	Profiles  ports.ProfileService
	Images    ports.ImageStore
	Cookies   *middleware.SessionCookies
	Renderer  echo.Renderer
	AppName   string
	Providers []string
	Readiness map[string]handlers.Check
	// Registry receives the HTTP metrics. Nil means the default registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if deps.Registry != nil {
		registerer, gatherer = deps.Registry, deps.Registry
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.Renderer = deps.Renderer
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log, deps.Tracker)

	// --- Global middleware ---
	e.Use(middleware.Recover(deps.Log, deps.Tracker))
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "accounts",
		Registerer: registerer,
	}))
	e.Use(echomiddleware.BodyLimit("6M"))
	e.Use(middleware.Sessions(deps.Auth, deps.Cookies))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Auth, deps.Social, deps.Cookies, deps.Log)
	uploadHandler := handler.NewUploadHandler(deps.Images)
	pageHandler := handler.NewPageHandler(handler.PageDeps{
		Auth:      deps.Auth,
		Social:    deps.Social,
		Profiles:  deps.Profiles,
		Images:    deps.Images,
		Cookies:   deps.Cookies,
		AppName:   deps.AppName,
		Providers: deps.Providers,
	}, deps.Log)

	requireSession := middleware.RequireAPISession()
	authenticated := middleware.RequireAuthenticated()
	anonymous := middleware.RequireAnonymous()

	// --- Auth API ---
	auth := e.Group("/api/auth")
	auth.POST("/sign-in/email", authHandler.SignInEmail)
	auth.POST("/sign-up/email", authHandler.SignUpEmail)
	auth.POST("/sign-in/social", authHandler.SignInSocial)
	auth.GET("/callback/:provider", authHandler.Callback)
	auth.GET("/get-session", authHandler.GetSession)
	auth.POST("/update-user", authHandler.UpdateUser, requireSession)
	auth.POST("/sign-out", authHandler.SignOut)
	auth.GET("/verify-email", authHandler.VerifyEmail)
	auth.POST("/request-password-reset", authHandler.RequestPasswordReset)
	auth.POST("/reset-password", authHandler.ResetPassword)

	e.POST("/api/uploadthing/:endpoint", uploadHandler.Upload, requireSession)

	// --- Pages ---
	e.GET("/", pageHandler.Home, authenticated)
	e.GET("/sign-in", pageHandler.SignInForm, anonymous)
	e.POST("/sign-in", pageHandler.SignIn, anonymous)
	e.GET("/sign-up", pageHandler.SignUpForm, anonymous)
	e.POST("/sign-up", pageHandler.SignUp, anonymous)
	e.POST("/sign-in/social/:provider", pageHandler.SocialSignIn, anonymous)
	e.POST("/sign-out", pageHandler.SignOut)
	e.GET("/update-profile", pageHandler.ProfileForm, authenticated)
	e.POST("/update-profile", pageHandler.UpdateProfile, authenticated)
	e.GET("/request-password", pageHandler.RequestPasswordForm)
	e.POST("/request-password", pageHandler.RequestPassword)
	e.GET("/reset-password", pageHandler.ResetPasswordForm)
	e.POST("/reset-password", pageHandler.ResetPassword)

	// --- Operations (no auth required) ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	healthHandler := handlers.NewHealthHandler()
	readinessHandler := handlers.NewReadinessHandler(deps.Readiness)
	e.GET("/health", healthHandler.Liveness)           // liveness: is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness: are dependencies up?

	return e
}
