package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MinSecretLength is the shortest signing secret accepted for JWTs.
const MinSecretLength = 32

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	RateLimit    RateLimitConfig
	Notification NotificationConfig
	Seed         SeedConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	FrontendURL           string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string
	Format string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	AccessTokenSecret       string
	RefreshTokenSecret      string
	AccessTokenTTLMinutes   int
	RefreshTokenTTLDays     int
	PasswordResetTTLMinutes int
	BcryptCost              int
	RotateRefreshTokens     bool
	TokenCleanupIntervalMin int
	TokenRetentionHours     int
	RefreshCookieName       string
	RefreshCookiePath       string
}

// RateLimitConfig throttles unauthenticated auth endpoints.
type RateLimitConfig struct {
	Enabled       bool
	MaxRequests   int
	WindowSeconds int
	Prefix        string
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// SeedConfig controls creation of the default CRM users.
type SeedConfig struct {
	Enabled         bool
	AdminPassword   string
	ManagerPassword string
	RepPassword     string
}

// Load reads configuration from environment variables, applying defaults where possible.
// Signing secrets have no defaults; a missing or weak secret is an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "clientflow-auth"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "9000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			FrontendURL:           strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			AccessTokenSecret:       os.Getenv("AUTH_ACCESS_TOKEN_SECRET"),
			RefreshTokenSecret:      os.Getenv("AUTH_REFRESH_TOKEN_SECRET"),
			AccessTokenTTLMinutes:   getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 30),
			RefreshTokenTTLDays:     getEnvAsInt("AUTH_REFRESH_TOKEN_TTL_DAYS", 7),
			PasswordResetTTLMinutes: getEnvAsInt("AUTH_PASSWORD_RESET_TTL_MINUTES", 10),
			BcryptCost:              getEnvAsInt("AUTH_BCRYPT_COST", 10),
			RotateRefreshTokens:     getEnvAsBool("AUTH_ROTATE_REFRESH_TOKENS", false),
			TokenCleanupIntervalMin: getEnvAsInt("AUTH_TOKEN_CLEANUP_INTERVAL_MINUTES", 60),
			TokenRetentionHours:     getEnvAsInt("AUTH_TOKEN_RETENTION_HOURS", 24),
			RefreshCookieName:       getEnv("AUTH_REFRESH_COOKIE_NAME", "refreshToken"),
			RefreshCookiePath:       getEnv("AUTH_REFRESH_COOKIE_PATH", "/auth"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvAsBool("RATE_LIMIT_ENABLED", true),
			MaxRequests:   getEnvAsInt("RATE_LIMIT_MAX_REQUESTS", 100),
			WindowSeconds: getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 900),
			Prefix:        getEnv("RATE_LIMIT_PREFIX", "clientflow:rl"),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@clientflow.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
		Seed: SeedConfig{
			Enabled:         getEnvAsBool("SEED_USERS", false),
			AdminPassword:   os.Getenv("SEED_ADMIN_PASSWORD"),
			ManagerPassword: os.Getenv("SEED_MANAGER_PASSWORD"),
			RepPassword:     os.Getenv("SEED_REP_PASSWORD"),
		},
	}

	if err := cfg.Auth.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Seed.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the signing secrets are present, long enough and distinct.
func (a AuthConfig) Validate() error {
	if a.AccessTokenSecret == "" {
		return errors.New("AUTH_ACCESS_TOKEN_SECRET is required")
	}
	if a.RefreshTokenSecret == "" {
		return errors.New("AUTH_REFRESH_TOKEN_SECRET is required")
	}
	if len(a.AccessTokenSecret) < MinSecretLength {
		return fmt.Errorf("AUTH_ACCESS_TOKEN_SECRET must be at least %d characters", MinSecretLength)
	}
	if len(a.RefreshTokenSecret) < MinSecretLength {
		return fmt.Errorf("AUTH_REFRESH_TOKEN_SECRET must be at least %d characters", MinSecretLength)
	}
	if a.AccessTokenSecret == a.RefreshTokenSecret {
		return errors.New("AUTH_ACCESS_TOKEN_SECRET and AUTH_REFRESH_TOKEN_SECRET must differ")
	}
	return nil
}

// AccessTokenTTL returns the access token lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	if a.AccessTokenTTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token lifetime.
func (a AuthConfig) RefreshTokenTTL() time.Duration {
	if a.RefreshTokenTTLDays <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(a.RefreshTokenTTLDays) * 24 * time.Hour
}

// PasswordResetTTL returns the reset token lifetime.
func (a AuthConfig) PasswordResetTTL() time.Duration {
	if a.PasswordResetTTLMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(a.PasswordResetTTLMinutes) * time.Minute
}

// CleanupInterval returns how often stale tokens are swept; zero disables the sweep.
func (a AuthConfig) CleanupInterval() time.Duration {
	if a.TokenCleanupIntervalMin <= 0 {
		return 0
	}
	return time.Duration(a.TokenCleanupIntervalMin) * time.Minute
}

// Retention returns how long expired or blacklisted rows are kept.
func (a AuthConfig) Retention() time.Duration {
	if a.TokenRetentionHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(a.TokenRetentionHours) * time.Hour
}

// Window returns the rate-limit window.
func (r RateLimitConfig) Window() time.Duration {
	if r.WindowSeconds <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(r.WindowSeconds) * time.Second
}

// Validate requires passwords for every seeded user when seeding is on.
func (s SeedConfig) Validate() error {
	if !s.Enabled {
		return nil
	}
	if s.AdminPassword == "" || s.ManagerPassword == "" || s.RepPassword == "" {
		return errors.New("SEED_USERS requires SEED_ADMIN_PASSWORD, SEED_MANAGER_PASSWORD and SEED_REP_PASSWORD")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// IsProduction reports whether the service runs with production settings.
func (a AppConfig) IsProduction() bool {
	return strings.EqualFold(a.Env, "production")
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
