package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	emailPkg "campreg/internal/adapters/email"
	web "campreg/internal/adapters/http"
	"campreg/internal/adapters/http/middleware"
	"campreg/internal/adapters/http/perf"
	"campreg/internal/adapters/metrics"
	"campreg/internal/adapters/storage"
	adminStore "campreg/internal/adapters/storage/admin"
	"campreg/internal/adapters/storage/blob"
	regStore "campreg/internal/adapters/storage/registration"
	"campreg/internal/application/projections"
	"campreg/internal/config"
	adminDomain "campreg/internal/domain/admin"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server_failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// run wires the stores and serves until ctx is cancelled.
func run(ctx context.Context, cfg config.Config) error {
	// WAL mode, foreign keys and busy timeout for concurrent readers
	dsn := cfg.DBPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	if err := storage.MigrateDB(db, cfg.DBPath); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	m := metrics.New()
	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector,
		storage.WithSlowQuery(cfg.SlowQuery),
		storage.WithQueryObserver(m),
	)
	blobs := blob.NewSQLiteStore(timedDB)

	local := regStore.NewLocalStore(blobs)
	var dashboard projections.RegistrationReader = local
	if cfg.UsesRemoteSource() {
		dashboard = regStore.NewRemoteStore(cfg.RemoteRegistrationsURL, &http.Client{Timeout: cfg.RemoteTimeout})
		slog.Info("dashboard_source", "source", "remote", "url", cfg.RemoteRegistrationsURL)
	}

	admin, err := adminCredential(cfg)
	if err != nil {
		return err
	}
	admins, err := adminStore.NewMemoryStore(admin)
	if err != nil {
		return fmt.Errorf("admin credential: %w", err)
	}

	sessions := middleware.NewSessionStore(blobs, cfg.SessionTTL)
	if err := sessions.Load(ctx); err != nil {
		// A corrupt session blob only logs everyone out.
		slog.Warn("store_error", "op", "load_sessions", "error", err)
	}

	var sender emailPkg.Sender
	switch {
	case cfg.ResendKey != "":
		sender = emailPkg.NewResendSender(cfg.ResendKey, cfg.EmailFrom, cfg.ReplyTo)
		slog.Info("email_sender", "provider", "resend")
	case cfg.IsProduction():
		slog.Warn("email_sender", "provider", "none", "reason", "CAMP_RESEND_KEY unset; confirmation emails are disabled")
	default:
		sender = emailPkg.NewNoopSender()
		slog.Info("email_sender", "provider", "noop")
	}

	srv, err := web.NewServer(web.Deps{
		Config:        cfg,
		Registrations: local,
		Dashboard:     dashboard,
		Admins:        admins,
		Sessions:      sessions,
		EmailSender:   sender,
		Metrics:       m,
		Perf:          collector,
		Health:        timedDB.PingContext,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		srv.Run(gctx)
		return nil
	})
	g.Go(func() error {
		slog.Info("server_start", "version", version, "addr", cfg.Addr, "env", cfg.Env, "schema", storage.LatestSchemaVersion())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		slog.Info("server_stop")
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// adminCredential resolves the dashboard login from configuration.
// Production requires a bcrypt hash; development also accepts a plaintext
// password, or generates one and logs it.
func adminCredential(cfg config.Config) (adminDomain.Admin, error) {
	a := adminDomain.Admin{Username: cfg.AdminUsername, PasswordHash: cfg.AdminPasswordHash}
	if a.PasswordHash != "" {
		return a, nil
	}

	password := cfg.AdminPassword
	if password == "" {
		b := make([]byte, 18)
		if _, err := rand.Read(b); err != nil {
			return adminDomain.Admin{}, fmt.Errorf("generate admin password: %w", err)
		}
		password = base64.RawURLEncoding.EncodeToString(b)
		slog.Warn("admin_password_generated", "username", a.Username, "password", password)
	}
	hash, err := adminDomain.HashPassword(password)
	if err != nil {
		return adminDomain.Admin{}, fmt.Errorf("CAMP_ADMIN_PASSWORD: %w", err)
	}
	a.PasswordHash = hash
	return a, nil
}
