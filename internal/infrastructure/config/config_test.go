package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/require"
)

func process(t *testing.T, env map[string]string) (*Config, error) {
	t.Helper()
	var cfg Config
	err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.MapLookuper(env),
	})
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func TestDefaults(t *testing.T) {
	cfg, err := process(t, map[string]string{})
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "Acme <onboarding@resend.dev>", cfg.Mail.From)
	require.Equal(t, "betterauth-next", cfg.AppName)
	require.Equal(t, 7*24*time.Hour, cfg.Session.TTL)
	require.Equal(t, 24*time.Hour, cfg.Session.UpdateAge)
	require.Equal(t, time.Hour, cfg.Session.CookieCacheTTL)
	require.True(t, cfg.Session.RequireEmailVerification)
	require.Equal(t, []string{"utfs.io"}, cfg.Storage.AllowedHosts)
	require.NotEmpty(t, cfg.Session.Secret)
}

func TestProductionRequiresSecret(t *testing.T) {
	_, err := process(t, map[string]string{"ENV": "production"})
	require.Error(t, err)

	cfg, err := process(t, map[string]string{
		"ENV":                 "production",
		"SESSION_SECRET":      "s3cr3t",
		"BASE_URL":            "https://accounts.example.com/",
		"IMAGE_ALLOWED_HOSTS": "utfs.io,*.cdn.example.com",
	})
	require.NoError(t, err)
	require.Equal(t, "https://accounts.example.com", cfg.BaseURL)
	require.Equal(t, []string{"utfs.io", "*.cdn.example.com"}, cfg.Storage.AllowedHosts)
	require.False(t, cfg.IsDevelopment())
}
