package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	testAccessSecret  = strings.Repeat("a", MinSecretLength)
	testRefreshSecret = strings.Repeat("r", MinSecretLength)
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_ACCESS_TOKEN_SECRET", testAccessSecret)
	t.Setenv("AUTH_REFRESH_TOKEN_SECRET", testRefreshSecret)
	t.Setenv("FRONTEND_URL", "https://crm.example.com/")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "9000", cfg.App.Port)
	require.Equal(t, "https://crm.example.com", cfg.App.FrontendURL)
	require.Equal(t, 30*time.Minute, cfg.Auth.AccessTokenTTL())
	require.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenTTL())
	require.Equal(t, 10*time.Minute, cfg.Auth.PasswordResetTTL())
	require.Equal(t, time.Hour, cfg.Auth.CleanupInterval())
	require.Equal(t, 24*time.Hour, cfg.Auth.Retention())
	require.False(t, cfg.Auth.RotateRefreshTokens)
	require.Equal(t, "refreshToken", cfg.Auth.RefreshCookieName)
	require.Equal(t, "/auth", cfg.Auth.RefreshCookiePath)
	require.Equal(t, 100, cfg.RateLimit.MaxRequests)
	require.Equal(t, 15*time.Minute, cfg.RateLimit.Window())
	require.False(t, cfg.App.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTH_ACCESS_TOKEN_SECRET", testAccessSecret)
	t.Setenv("AUTH_REFRESH_TOKEN_SECRET", testRefreshSecret)
	t.Setenv("APP_ENV", "Production")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "5")
	t.Setenv("AUTH_ROTATE_REFRESH_TOKENS", "true")
	t.Setenv("AUTH_TOKEN_CLEANUP_INTERVAL_MINUTES", "0")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.App.IsProduction())
	require.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenTTL())
	require.True(t, cfg.Auth.RotateRefreshTokens)
	require.Zero(t, cfg.Auth.CleanupInterval())
	require.Equal(t, 100, cfg.RateLimit.MaxRequests)
}

func TestLoadRejectsBadSecrets(t *testing.T) {
	tests := []struct {
		name    string
		access  string
		refresh string
	}{
		{name: "missing access", access: "", refresh: testRefreshSecret},
		{name: "missing refresh", access: testAccessSecret, refresh: ""},
		{name: "short access", access: "short", refresh: testRefreshSecret},
		{name: "short refresh", access: testAccessSecret, refresh: "short"},
		{name: "same secret", access: testAccessSecret, refresh: testAccessSecret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("AUTH_ACCESS_TOKEN_SECRET", tt.access)
			t.Setenv("AUTH_REFRESH_TOKEN_SECRET", tt.refresh)
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoadSeedRequiresPasswords(t *testing.T) {
	t.Setenv("AUTH_ACCESS_TOKEN_SECRET", testAccessSecret)
	t.Setenv("AUTH_REFRESH_TOKEN_SECRET", testRefreshSecret)
	t.Setenv("SEED_USERS", "true")
	t.Setenv("SEED_ADMIN_PASSWORD", "AdminPa$$wOrd")

	_, err := Load()
	require.Error(t, err)
}
