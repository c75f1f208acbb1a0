package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	domain "campreg/internal/domain/admin"
)

// AdminStoreForLogin defines the store interface needed by AdminLogin.
// Update must run fn atomically with respect to other Updates.
type AdminStoreForLogin interface {
	Update(ctx context.Context, fn func(*domain.Admin) error) error
}

// LoginMetrics receives login outcomes. May be nil.
type LoginMetrics interface {
	IncLogin(result string)
}

// AdminLoginInput carries input for the login orchestrator.
type AdminLoginInput struct {
	Username string
	Password string
}

// AdminLoginResult carries the result of a successful login.
type AdminLoginResult struct {
	Username string
}

// AdminLoginDeps holds dependencies for AdminLogin.
type AdminLoginDeps struct {
	AdminStore AdminStoreForLogin
	Metrics    LoginMetrics
	Now        func() time.Time
}

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAdminLocked        = errors.New("too many failed attempts; try again in 15 minutes")
)

// ExecuteAdminLogin validates credentials for the dashboard gate.
// PRE: none
// POST: success resets the failure counter; a wrong username or password counts
// towards the lockout
// INVARIANT: no credential is checked while the gate is locked
func ExecuteAdminLogin(ctx context.Context, input AdminLoginInput, deps AdminLoginDeps) (AdminLoginResult, error) {
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	record := func(result string) {
		if deps.Metrics != nil {
			deps.Metrics.IncLogin(result)
		}
	}

	// The lock check, the password check and the counter update happen in one
	// Update so parallel guesses cannot overwrite each other's failures.
	var (
		a       domain.Admin
		invalid bool
	)
	err := deps.AdminStore.Update(ctx, func(cur *domain.Admin) error {
		at := now()
		if cur.IsLocked(at) {
			return ErrAdminLocked
		}
		if input.Username == "" || input.Password == "" ||
			!cur.MatchesUsername(input.Username) || cur.CheckPassword(input.Password) != nil {
			cur.RecordFailedLogin(at)
			invalid = true
		} else {
			cur.ResetFailedLogins()
		}
		a = *cur
		return nil
	})
	switch {
	case errors.Is(err, ErrAdminLocked):
		slog.Info("auth_event", "event", "login_blocked", "reason", "locked")
		record("locked")
		return AdminLoginResult{}, ErrAdminLocked
	case err != nil:
		return AdminLoginResult{}, err
	case invalid:
		slog.Info("auth_event", "event", "login_failed", "failed_logins", a.FailedLogins, "locked", a.IsLocked(now()))
		record("invalid")
		return AdminLoginResult{}, ErrInvalidCredentials
	}

	slog.Info("auth_event", "event", "login_success", "username", a.Username)
	record("success")
	return AdminLoginResult{Username: a.Username}, nil
}
