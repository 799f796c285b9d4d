package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/corvid-labs/auth-service/internal/domain"
)

const (
	defaultAccessTokenTTL  = "1h"
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// ErrMissingSecret is returned when no signing secret is configured.
var ErrMissingSecret = errors.New("JWT_ACCESS_SECRET is not defined")

// ConfigError reports a fatal startup misconfiguration.
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN               string
	MaxConns          int32
	MinConns          int32
	RunMigrations     bool
	ConnMaxIdleSec    int32
	ConnMaxLifeSec    int32
	ConnectTimeoutSec int32
	RequireTLS        bool
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	Development bool
}

// AuthConfig defines authentication parameters.
//
// AccessTokenTTL comes from JWT_ACCESS_EXPIRES_IN and is fatal when malformed.
// RefreshTokenTTL comes from JWT_REFRESH_EXPIRES_IN and falls back to 7d.
type AuthConfig struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	DefaultRole     domain.Role
	HashConcurrency int64
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, &ConfigError{Key: "REDIS_DB", Err: err}
	}

	dsn, err := loadDSN()
	if err != nil {
		return nil, err
	}

	auth, err := loadAuth()
	if err != nil {
		return nil, err
	}

	env := getEnv("APP_ENV", "development")

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "auth-service"),
			Env:                   env,
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:               dsn,
			MaxConns:          int32(getEnvAsInt("POSTGRES_MAX_CONNS", 20)),
			MinConns:          int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:     getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec:    int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec:    int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
			ConnectTimeoutSec: int32(getEnvAsInt("POSTGRES_CONNECT_TIMEOUT_SECONDS", 10)),
			RequireTLS:        env == "production",
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: env != "production",
		},
		Auth: *auth,
	}

	return cfg, nil
}

func loadDSN() (string, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = os.Getenv("POSTGRES_DSN")
	}
	if dsn == "" {
		return "", &ConfigError{Key: "DATABASE_URL", Err: errors.New("not set")}
	}
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return "", &ConfigError{Key: "DATABASE_URL", Err: errors.New("must be a postgres:// or postgresql:// connection string")}
	}
	return dsn, nil
}

func loadAuth() (*AuthConfig, error) {
	secret := os.Getenv("JWT_ACCESS_SECRET")
	if secret == "" {
		return nil, &ConfigError{Key: "JWT_ACCESS_SECRET", Err: ErrMissingSecret}
	}

	accessTTL, err := ParseTokenDuration(getEnv("JWT_ACCESS_EXPIRES_IN", defaultAccessTokenTTL))
	if err != nil {
		return nil, &ConfigError{Key: "JWT_ACCESS_EXPIRES_IN", Err: err}
	}

	refreshTTL, err := ParseTokenDuration(os.Getenv("JWT_REFRESH_EXPIRES_IN"))
	if err != nil {
		refreshTTL = defaultRefreshTokenTTL
	}

	role := domain.Role(strings.ToUpper(getEnv("AUTH_DEFAULT_ROLE", string(domain.DefaultRole))))
	if !role.Assignable() {
		return nil, &ConfigError{Key: "AUTH_DEFAULT_ROLE", Err: fmt.Errorf("role %q is not assignable at registration", role)}
	}

	concurrency := getEnvAsInt("AUTH_HASH_CONCURRENCY", runtime.GOMAXPROCS(0))
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	return &AuthConfig{
		JWTSecret:       secret,
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: refreshTTL,
		DefaultRole:     role,
		HashConcurrency: int64(concurrency),
	}, nil
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
