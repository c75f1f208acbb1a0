package admin

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Lockout policy
const (
	MaxFailedLogins = 5
	LockoutDuration = 15 * time.Minute
)

// bcryptCost matches the cost used for every stored hash.
const bcryptCost = 12

// MinPasswordLength applies to passwords hashed by this package.
const MinPasswordLength = 12

// Domain errors
var (
	ErrEmptyUsername    = errors.New("admin username cannot be empty")
	ErrEmptyHash        = errors.New("admin password hash cannot be empty")
	ErrWrongPassword    = errors.New("incorrect password")
	ErrPasswordTooShort = errors.New("password must be at least 12 characters")
	ErrInvalidHash      = errors.New("admin password hash is not a bcrypt hash")
)

// Admin is the single dashboard operator and its lockout state.
type Admin struct {
	Username     string
	PasswordHash string
	FailedLogins int
	LockedUntil  time.Time
}

// Validate checks if the Admin has usable credentials.
// PRE: Admin struct is populated
// POST: Returns nil if valid, error otherwise
func (a *Admin) Validate() error {
	if strings.TrimSpace(a.Username) == "" {
		return ErrEmptyUsername
	}
	if a.PasswordHash == "" {
		return ErrEmptyHash
	}
	if _, err := bcrypt.Cost([]byte(a.PasswordHash)); err != nil {
		return ErrInvalidHash
	}
	return nil
}

// MatchesUsername compares in constant time.
func (a *Admin) MatchesUsername(username string) bool {
	return subtle.ConstantTimeCompare([]byte(a.Username), []byte(strings.TrimSpace(username))) == 1
}

// CheckPassword verifies a plaintext password against the stored hash.
// INVARIANT: Admin fields are not mutated
func (a *Admin) CheckPassword(plaintext string) error {
	if a.PasswordHash == "" {
		return ErrWrongPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(plaintext)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// IsLocked reports whether the gate is closed at now.
// INVARIANT: Admin fields are not mutated
func (a *Admin) IsLocked(now time.Time) bool {
	return !a.LockedUntil.IsZero() && now.Before(a.LockedUntil)
}

// RecordFailedLogin increments the counter and locks after MaxFailedLogins.
// POST: FailedLogins incremented; LockedUntil set if the limit is reached
func (a *Admin) RecordFailedLogin(now time.Time) {
	a.FailedLogins++
	if a.FailedLogins >= MaxFailedLogins {
		a.LockedUntil = now.Add(LockoutDuration)
		a.FailedLogins = 0
	}
}

// ResetFailedLogins clears the failed login counter and lock.
// POST: FailedLogins is 0, LockedUntil is zero
func (a *Admin) ResetFailedLogins() {
	a.FailedLogins = 0
	a.LockedUntil = time.Time{}
}

// HashPassword returns a bcrypt hash for plaintext.
// PRE: len(plaintext) >= MinPasswordLength
func HashPassword(plaintext string) (string, error) {
	if len(plaintext) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
