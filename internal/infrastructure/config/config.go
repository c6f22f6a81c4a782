package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`
	BaseURL  string `env:"BASE_URL,  default=http://localhost:8080"`
	AppName  string `env:"APP_NAME,  default=betterauth-next"`

	Session SessionConfig
	Mongo   MongoConfig
	Redis   RedisConfig
	OAuth   OAuthConfig
	Mail    MailConfig
	Storage StorageConfig
	Sentry  SentryConfig
}

type SessionConfig struct {
	Secret                   string        `env:"SESSION_SECRET"`
	TTL                      time.Duration `env:"SESSION_TTL,                default=168h"`
	UpdateAge                time.Duration `env:"SESSION_UPDATE_AGE,         default=24h"`
	CookieCacheTTL           time.Duration `env:"SESSION_COOKIE_CACHE_TTL,   default=60m"`
	RequireEmailVerification bool          `env:"REQUIRE_EMAIL_VERIFICATION, default=true"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=account_service"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type OAuthConfig struct {
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
}

type MailConfig struct {
	ResendAPIKey string `env:"RESEND_API_KEY"`
	From         string `env:"EMAIL_FROM,    default=Acme <onboarding@resend.dev>"`
	Workers      int    `env:"EMAIL_WORKERS, default=4"`
	Buffer       int    `env:"EMAIL_BUFFER,  default=256"`
}

type StorageConfig struct {
	Endpoint     string   `env:"MINIO_ENDPOINT,      default=localhost:9000"`
	AccessKey    string   `env:"MINIO_ACCESS_KEY,    default=minioadmin"`
	SecretKey    string   `env:"MINIO_SECRET_KEY,    default=minioadmin"`
	Bucket       string   `env:"MINIO_BUCKET,        default=avatars"`
	UseSSL       bool     `env:"MINIO_USE_SSL,       default=false"`
	PublicURL    string   `env:"MINIO_PUBLIC_URL"`
	AllowedHosts []string `env:"IMAGE_ALLOWED_HOSTS, default=utfs.io"`
}

type SentryConfig struct {
	DSN string `env:"SENTRY_DSN"`
}

func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Session.Secret == "" {
		if !c.IsDevelopment() {
			return errors.New("config: SESSION_SECRET is required outside development")
		}
		c.Session.Secret = "development-only-secret"
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return nil
}
