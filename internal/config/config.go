package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config errors
var (
	ErrMissingCSRFKey    = errors.New("CAMP_CSRF_KEY must be set to 32 bytes in production")
	ErrShortCSRFKey      = errors.New("CAMP_CSRF_KEY must be exactly 32 bytes")
	ErrMissingAdminHash  = errors.New("CAMP_ADMIN_PASSWORD_HASH must be set in production")
	ErrPlainAdminPass    = errors.New("CAMP_ADMIN_PASSWORD is not accepted in production; set CAMP_ADMIN_PASSWORD_HASH")
	ErrInvalidRemoteURL  = errors.New("CAMP_REMOTE_REGISTRATIONS_URL must be an absolute http(s) URL")
	ErrInvalidLogFormat  = errors.New("CAMP_LOG_FORMAT must be 'text' or 'json'")
	ErrInvalidEnv        = errors.New("CAMP_ENV must be 'development' or 'production'")
	ErrMissingAdminUser  = errors.New("CAMP_ADMIN_USERNAME cannot be empty")
	ErrNonPositiveConfig = errors.New("timeouts and limits must be positive")
)

// Event describes the camp shown on the landing page and in emails.
type Event struct {
	Name        string `env:"CAMP_EVENT_NAME" envDefault:"Youth Camp"`
	Dates       string `env:"CAMP_EVENT_DATES" envDefault:"TBA"`
	Location    string `env:"CAMP_EVENT_LOCATION" envDefault:"TBA"`
	Ages        string `env:"CAMP_EVENT_AGES" envDefault:"All ages welcome; under 18s need a guardian"`
	Cost        string `env:"CAMP_EVENT_COST"`
	Description string `env:"CAMP_EVENT_DESCRIPTION"`
}

// Config is the typed process configuration read from CAMP_* variables.
type Config struct {
	Env       string `env:"CAMP_ENV" envDefault:"development"`
	Addr      string `env:"CAMP_ADDR" envDefault:":8080"`
	DBPath    string `env:"CAMP_DB_PATH" envDefault:"camp.db"`
	StaticDir string `env:"CAMP_STATIC_DIR" envDefault:"static"`
	CSRFKey   string `env:"CAMP_CSRF_KEY"`

	// TrustedOrigins are extra host:port origins allowed to post forms.
	TrustedOrigins []string `env:"CAMP_TRUSTED_ORIGINS" envSeparator:","`

	AdminUsername     string `env:"CAMP_ADMIN_USERNAME" envDefault:"admin"`
	AdminPasswordHash string `env:"CAMP_ADMIN_PASSWORD_HASH"`
	AdminPassword     string `env:"CAMP_ADMIN_PASSWORD"`

	RemoteRegistrationsURL string        `env:"CAMP_REMOTE_REGISTRATIONS_URL"`
	RemoteTimeout          time.Duration `env:"CAMP_REMOTE_TIMEOUT" envDefault:"10s"`

	ResendKey string `env:"CAMP_RESEND_KEY"`
	EmailFrom string `env:"CAMP_EMAIL_FROM" envDefault:"Youth Camp <noreply@example.org>"`
	ReplyTo   string `env:"CAMP_REPLY_TO"`

	RateLimit   int           `env:"CAMP_RATE_LIMIT" envDefault:"10"` // unsafe requests per second per client IP
	SlowQuery   time.Duration `env:"CAMP_SLOW_QUERY" envDefault:"50ms"`
	SlowRequest time.Duration `env:"CAMP_SLOW_REQUEST" envDefault:"500ms"`
	DraftTTL    time.Duration `env:"CAMP_DRAFT_TTL" envDefault:"2h"`
	SessionTTL  time.Duration `env:"CAMP_SESSION_TTL" envDefault:"12h"`

	LogLevel  string `env:"CAMP_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"CAMP_LOG_FORMAT" envDefault:"text"`

	Event Event
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates the process configuration.
// POST: a returned Config has passed Validate
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsProduction reports whether the server runs with production safeguards.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// UsesRemoteSource reports whether the dashboard reads from the remote collection.
func (c Config) UsesRemoteSource() bool {
	return c.RemoteRegistrationsURL != ""
}

// Validate checks cross-field rules and production requirements.
// PRE: Config has been parsed
// POST: Returns nil if the server may start with this configuration
func (c Config) Validate() error {
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		return ErrInvalidEnv
	}
	if strings.TrimSpace(c.AdminUsername) == "" {
		return ErrMissingAdminUser
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return ErrInvalidLogFormat
	}
	if c.RemoteTimeout <= 0 || c.RateLimit <= 0 || c.DraftTTL <= 0 || c.SessionTTL <= 0 {
		return ErrNonPositiveConfig
	}
	if c.CSRFKey != "" && len(c.CSRFKey) != 32 {
		return ErrShortCSRFKey
	}
	if c.UsesRemoteSource() {
		u, err := url.Parse(c.RemoteRegistrationsURL)
		if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
			return ErrInvalidRemoteURL
		}
	}
	if c.IsProduction() {
		if c.CSRFKey == "" {
			return ErrMissingCSRFKey
		}
		if c.AdminPassword != "" {
			return ErrPlainAdminPass
		}
		if c.AdminPasswordHash == "" {
			return ErrMissingAdminHash
		}
	}
	return nil
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to Info.
func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
