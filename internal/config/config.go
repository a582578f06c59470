// Package config loads process-wide settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultPort        = "5000"
	defaultDriver      = "pgx"
	defaultBcryptCost  = 10
	defaultCORSOrigins = "http://localhost:3000,http://localhost:5173"
)

// DefaultTokenTTL is how long a session token stays valid unless TOKEN_TTL says otherwise.
const DefaultTokenTTL = 7 * 24 * time.Hour

var ErrMissingSecret = errors.New("JWT_SECRET must be set")

type Google struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// Enabled reports whether Google sign-in has enough configuration to run.
func (g Google) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type Config struct {
	Port          string
	Env           string
	DBDriver      string
	DBURL         string
	JWTSecret     []byte
	TokenTTL      time.Duration
	BcryptCost    int
	CORSOrigins   []string
	Google        Google
	AdminEmail    string
	AdminPassword string
}

func (c *Config) Production() bool {
	return c.Env == "production"
}

// Load reads .env (if present) and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("environment_file_not_loaded", "error", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", defaultPort),
		Env:           os.Getenv("APP_ENV"),
		DBDriver:      getEnv("DB_DRIVER", defaultDriver),
		DBURL:         os.Getenv("DB_URL"),
		JWTSecret:     []byte(os.Getenv("JWT_SECRET")),
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", defaultCORSOrigins)),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		Google: Google{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			CallbackURL:  os.Getenv("GOOGLE_CALLBACK_URL"),
		},
	}

	if len(cfg.JWTSecret) == 0 {
		return nil, ErrMissingSecret
	}
	if cfg.DBURL == "" {
		return nil, errors.New("DB_URL must be set")
	}
	switch cfg.DBDriver {
	case "pgx", "sqlite3":
	default:
		return nil, fmt.Errorf("DB_DRIVER %q is not supported (want pgx or sqlite3)", cfg.DBDriver)
	}

	ttl, err := getDuration("TOKEN_TTL", DefaultTokenTTL)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("TOKEN_TTL must be positive, got %s", ttl)
	}
	cfg.TokenTTL = ttl

	cost, err := getInt("BCRYPT_COST", defaultBcryptCost)
	if err != nil {
		return nil, err
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("BCRYPT_COST must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, cost)
	}
	cfg.BcryptCost = cost

	if (cfg.AdminEmail == "") != (cfg.AdminPassword == "") {
		return nil, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
