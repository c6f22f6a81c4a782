// @title        Account Service API
// @version      1.0
// @description  Email/password and social sign-in, email verification, password reset and profile editing.
// @BasePath     /
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/99minutos/account-service/internal/api"
	"github.com/99minutos/account-service/internal/api/middleware"
	"github.com/99minutos/account-service/internal/api/views"
	"github.com/99minutos/account-service/internal/core/ports"
	"github.com/99minutos/account-service/internal/core/service"
	"github.com/99minutos/account-service/internal/infrastructure/config"
	mongodb "github.com/99minutos/account-service/internal/infrastructure/db/mongo"
	redisdb "github.com/99minutos/account-service/internal/infrastructure/db/redis"
	"github.com/99minutos/account-service/internal/infrastructure/http/handlers"
	"github.com/99minutos/account-service/internal/infrastructure/mail"
	"github.com/99minutos/account-service/internal/infrastructure/oauth"
	"github.com/99minutos/account-service/internal/infrastructure/queue"
	"github.com/99minutos/account-service/internal/infrastructure/storage"
	"github.com/99minutos/account-service/internal/pkg/errtrack"
	"github.com/99minutos/account-service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "account-service: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "account-service",
	})
	displayAppName(cfg.AppName)

	tracker, err := errtrack.New(errtrack.Options{DSN: cfg.Sentry.DSN, Environment: cfg.Env})
	if err != nil {
		log.Warn().Err(err).Msg("error tracking disabled")
	}
	defer tracker.Flush(2 * time.Second)

	// --- Persistence ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	users := mongodb.NewUserRepository(db)
	accounts := mongodb.NewAccountRepository(db)
	sessions := mongodb.NewSessionRepository(db)
	verifications := mongodb.NewVerificationRepository(db)
	if err := mongodb.EnsureIndexes(ctx, users, accounts, sessions, verifications); err != nil {
		return err
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		return err
	}
	defer rdb.Close()

	images, err := storage.NewImageStore(storage.Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
		PublicURL: cfg.Storage.PublicURL,
	})
	if err != nil {
		return err
	}
	if err := images.EnsureBucket(ctx); err != nil {
		return err
	}

	// --- Email ---
	emails, err := mail.NewRenderer()
	if err != nil {
		return err
	}
	dispatcher := queue.NewDispatcher(
		cfg.Mail.Workers, cfg.Mail.Buffer,
		mail.NewResendSender(cfg.Mail.ResendAPIKey, cfg.Mail.From),
		tracker, log,
	)
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	dispatcher.Start(dispatchCtx)
	defer func() {
		stopDispatch()
		dispatcher.Wait()
	}()

	// --- Services ---
	authService := service.NewAuthService(service.AuthDeps{
		Users:         users,
		Accounts:      accounts,
		Sessions:      sessions,
		Verifications: verifications,
		Limiter:       redisdb.NewAttemptLimiter(rdb, 0, 0),
		Emails:        emails,
		Dispatcher:    dispatcher,
	}, service.AuthConfig{
		BaseURL:                  cfg.BaseURL,
		AppName:                  cfg.AppName,
		RequireEmailVerification: cfg.Session.RequireEmailVerification,
		SessionTTL:               cfg.Session.TTL,
		SessionUpdateAge:         cfg.Session.UpdateAge,
		ImageHosts:               cfg.Storage.AllowedHosts,
		ImageOrigins:             []string{images.BaseURL()},
	}, log)

	providers := oauthProviders(ctx, cfg, log)
	socialService := service.NewSocialAuthService(
		providers, redisdb.NewStateStore(rdb), users, accounts, sessions, cfg.Session.TTL, log,
	)
	profileService := service.NewProfileService(users, authService, log)

	renderer, err := views.NewRenderer()
	if err != nil {
		return err
	}

	codec := service.NewJWTSessionCodec(cfg.Session.Secret, cfg.Session.CookieCacheTTL)
	e := api.NewRouter(api.Dependencies{
		Log:       log,
		Tracker:   tracker,
		Auth:      authService,
		Social:    socialService,
		Profiles:  profileService,
		Images:    images,
		Cookies:   middleware.NewSessionCookies(codec, !cfg.IsDevelopment(), cfg.Session.CookieCacheTTL),
		Renderer:  renderer,
		AppName:   cfg.AppName,
		Providers: socialService.Providers(),
		Readiness: map[string]handlers.Check{
			"mongo": func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			"minio": images.Ping,
		},
	})

	// --- Serve ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// oauthProviders builds the providers whose credentials are configured.
// Google needs its discovery document; a failure disables it.
func oauthProviders(ctx context.Context, cfg *config.Config, log zerolog.Logger) []ports.OAuthProvider {
	callback := func(provider string) string {
		return cfg.BaseURL + "/api/auth/callback/" + provider
	}

	var providers []ports.OAuthProvider
	if cfg.OAuth.GoogleClientID != "" {
		google, err := oauth.NewGoogle(ctx, oauth.Credentials{
			ClientID:     cfg.OAuth.GoogleClientID,
			ClientSecret: cfg.OAuth.GoogleClientSecret,
			RedirectURL:  callback("google"),
		})
		if err != nil {
			log.Error().Err(err).Msg("google sign-in disabled")
		} else {
			providers = append(providers, google)
		}
	}
	if cfg.OAuth.GitHubClientID != "" {
		providers = append(providers, oauth.NewGitHub(oauth.Credentials{
			ClientID:     cfg.OAuth.GitHubClientID,
			ClientSecret: cfg.OAuth.GitHubClientSecret,
			RedirectURL:  callback("github"),
		}))
	}
	return providers
}

func displayAppName(name string) {
	figure.NewFigure(name, "cybermedium", true).Print()
	fmt.Println()
}
