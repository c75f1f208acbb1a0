package config

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Env != EnvDevelopment || cfg.Addr != ":8080" || cfg.DBPath != "camp.db" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.RemoteTimeout != 10*time.Second || cfg.DraftTTL != 2*time.Hour || cfg.SessionTTL != 12*time.Hour {
		t.Errorf("unexpected durations: remote=%v draft=%v session=%v", cfg.RemoteTimeout, cfg.DraftTTL, cfg.SessionTTL)
	}
	if cfg.UsesRemoteSource() {
		t.Error("remote source should be off by default")
	}
	if cfg.Event.Name != "Youth Camp" {
		t.Errorf("Event.Name = %q", cfg.Event.Name)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("CAMP_ADDR", ":9090")
	t.Setenv("CAMP_REMOTE_REGISTRATIONS_URL", "https://api.example.org/registrations")
	t.Setenv("CAMP_REMOTE_TIMEOUT", "3s")
	t.Setenv("CAMP_EVENT_NAME", "Summer Camp 2027")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.RemoteTimeout != 3*time.Second || cfg.Event.Name != "Summer Camp 2027" {
		t.Errorf("env not applied: %+v", cfg)
	}
	if !cfg.UsesRemoteSource() {
		t.Error("remote source should be on")
	}
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("CAMP_RATE_LIMIT", "lots")
	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("err = %v, want parse env prefix", err)
	}
}

func validProduction() Config {
	return Config{
		Env:               EnvProduction,
		AdminUsername:     "admin",
		AdminPasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		CSRFKey:           strings.Repeat("k", 32),
		LogFormat:         "json",
		RemoteTimeout:     time.Second,
		RateLimit:         10,
		DraftTTL:          time.Hour,
		SessionTTL:        time.Hour,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"valid production", func(*Config) {}, nil},
		{"unknown env", func(c *Config) { c.Env = "staging" }, ErrInvalidEnv},
		{"missing csrf key", func(c *Config) { c.CSRFKey = "" }, ErrMissingCSRFKey},
		{"short csrf key", func(c *Config) { c.CSRFKey = "short" }, ErrShortCSRFKey},
		{"missing hash", func(c *Config) { c.AdminPasswordHash = "" }, ErrMissingAdminHash},
		{"plain password", func(c *Config) { c.AdminPassword = "hunter2" }, ErrPlainAdminPass},
		{"blank username", func(c *Config) { c.AdminUsername = " " }, ErrMissingAdminUser},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, ErrInvalidLogFormat},
		{"zero timeout", func(c *Config) { c.RemoteTimeout = 0 }, ErrNonPositiveConfig},
		{"relative remote url", func(c *Config) { c.RemoteRegistrationsURL = "/registrations" }, ErrInvalidRemoteURL},
		{"ftp remote url", func(c *Config) { c.RemoteRegistrationsURL = "ftp://example.org/x" }, ErrInvalidRemoteURL},
		{"https remote url", func(c *Config) { c.RemoteRegistrationsURL = "https://example.org/x" }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validProduction()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"nope":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := (Config{LogLevel: in}).SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
