// Package config loads process configuration once at startup.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cpa03/basefly-sub001/internal/csp"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

// Environment names accepted in NODE_ENV
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// DevJWTSecret is used outside production when JWT_SECRET is unset
const DevJWTSecret = "change-me-in-production-min-32-chars"

const minJWTSecretLength = 32

// Config holds process-wide configuration. It is built once by Load and
// treated as read-only afterwards.
type Config struct {
	Env      string `env:"NODE_ENV" envDefault:"development"`
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Database
	DatabaseURL string `env:"DATABASE_URL" envDefault:"postgres://localhost:5432/basefly?sslmode=disable"`
	DBMaxConns  int    `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns  int    `env:"DB_MIN_CONNS" envDefault:"5"`

	// Auth
	AdminEmails []string      `env:"ADMIN_EMAIL" envSeparator:","`
	JWTSecret   string        `env:"JWT_SECRET"`
	JWTIssuer   string        `env:"JWT_ISSUER" envDefault:"basefly"`
	JWTTTL      time.Duration `env:"JWT_TTL" envDefault:"1h"`

	// HTTP
	AllowedOrigins    []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	MaxBodySize       string        `env:"MAX_BODY_SIZE" envDefault:"1M"`
	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"100"`
	RateLimitDuration time.Duration `env:"RATE_LIMIT_DURATION" envDefault:"1m"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Billing
	PlansFile string `env:"PLANS_FILE" envDefault:"internal/plan/definitions/plans.yaml"`
	AppURL    string `env:"NEXT_PUBLIC_APP_URL" envDefault:"http://localhost:3000"`

	// Janitor
	JanitorInterval  time.Duration `env:"JANITOR_INTERVAL" envDefault:"1h"`
	ClusterRetention time.Duration `env:"CLUSTER_RETENTION" envDefault:"720h"`

	// CSPHeader is assembled from the NEXT_PUBLIC_CSP_* overrides
	CSPHeader string

	// UsingDevSecret is set when JWT_SECRET was empty and DevJWTSecret applied
	UsingDevSecret bool
}

// Load reads the given .env files (".env" when none are named) if they
// exist, then parses the process environment. Variables already set in the
// process take precedence over .env values.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	return LoadFrom(environMap(os.Environ()))
}

// LoadFrom parses configuration from an explicit environment snapshot
func LoadFrom(environ map[string]string) (*Config, error) {
	if environ == nil {
		environ = map[string]string{}
	}

	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.AdminEmails = normalizeEmails(cfg.AdminEmails)
	cfg.AllowedOrigins = trimAll(cfg.AllowedOrigins)
	cfg.CSPHeader = csp.BuildHeader(environ)

	if cfg.JWTSecret == "" && cfg.Env != EnvProduction {
		cfg.JWTSecret = DevJWTSecret
		cfg.UsingDevSecret = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate performs runtime validations on the loaded configuration
func (c *Config) Validate() error {
	switch c.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("NODE_ENV must be one of development, production, test (got %q)", c.Env)
	}

	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535 (got %d)", c.Port)
	}

	if c.Env == EnvProduction {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if len(c.JWTSecret) < minJWTSecretLength {
			return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
		}
	}

	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) must be <= DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}

	if c.RateLimitRequests <= 0 || c.RateLimitDuration <= 0 {
		return fmt.Errorf("rate limit must be positive (got %d per %s)", c.RateLimitRequests, c.RateLimitDuration)
	}

	if c.JanitorInterval <= 0 || c.ClusterRetention <= 0 {
		return fmt.Errorf("JANITOR_INTERVAL and CLUSTER_RETENTION must be positive")
	}

	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive (got %s)", c.JWTTTL)
	}

	return nil
}

// IsProduction reports whether NODE_ENV is production
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// IsAdmin reports whether email is on the admin allowlist
func (c *Config) IsAdmin(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, admin := range c.AdminEmails {
		if admin == email {
			return true
		}
	}
	return false
}

func normalizeEmails(emails []string) []string {
	out := []string{}
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

func trimAll(values []string) []string {
	out := []string{}
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func environMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			m[k] = v
		}
	}
	return m
}
