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

const (
	MirrorNone     = "none"
	MirrorPostgres = "postgres"
	MirrorRedis    = "redis"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string
	PostgresDSN string
	AutoMigrate bool

	MirrorDriver      string
	MirrorPostgresDSN string
	MirrorAsync       bool
	MirrorTimeout     time.Duration
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	SyncInterval      time.Duration
	SyncOnce          bool

	JWTSecret  string
	JWTIssuer  string
	TokenTTL   time.Duration
	BcryptCost int
	AdminEmail string
}

// Load reads the process environment. A .env file in the working directory
// is applied first when present; variables already set win over it.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "voting-app"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	cfg := Config{
		ServiceName: service,
		HTTPPort:    port,
		PostgresDSN: strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		AutoMigrate: envBool("AUTO_MIGRATE", true),

		MirrorDriver:      strings.ToLower(strings.TrimSpace(os.Getenv("MIRROR_DRIVER"))),
		MirrorPostgresDSN: strings.TrimSpace(os.Getenv("MIRROR_POSTGRES_DSN")),
		MirrorAsync:       envBool("MIRROR_ASYNC", true),
		MirrorTimeout:     envDuration("MIRROR_TIMEOUT", 2*time.Second),
		RedisAddr:         strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           envInt("REDIS_DB", 0),
		SyncInterval:      envDuration("SYNC_INTERVAL", 15*time.Minute),
		SyncOnce:          envBool("SYNC_ONCE", true),

		JWTSecret:  os.Getenv("JWT_SECRET"),
		JWTIssuer:  strings.TrimSpace(os.Getenv("JWT_ISSUER")),
		TokenTTL:   envDuration("TOKEN_TTL", 24*time.Hour),
		BcryptCost: envInt("BCRYPT_COST", 10),
		AdminEmail: strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL"))),
	}
	if cfg.MirrorDriver == "" {
		cfg.MirrorDriver = MirrorNone
	}
	return cfg, cfg.Validate()
}

// Validate reports every missing or inconsistent setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.PostgresDSN == "" {
		errs = append(errs, errors.New("POSTGRES_DSN is required"))
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.MirrorDriver {
	case MirrorNone:
	case MirrorPostgres:
		if c.MirrorPostgresDSN == "" {
			errs = append(errs, errors.New("MIRROR_POSTGRES_DSN is required when MIRROR_DRIVER=postgres"))
		} else if c.MirrorPostgresDSN == c.PostgresDSN {
			errs = append(errs, errors.New("MIRROR_POSTGRES_DSN must point at a different database than POSTGRES_DSN"))
		}
	case MirrorRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required when MIRROR_DRIVER=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("MIRROR_DRIVER %q is not one of none, postgres, redis", c.MirrorDriver))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST %d is outside 4..31", c.BcryptCost))
	}
	return errors.Join(errs...)
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
