package service

import (
	"context"
	"math"
	"time"

	"github.com/nixflow/repair-tracker/internal/model"
	"github.com/nixflow/repair-tracker/internal/utils"
)

const (
	maxLoginAttempts = 5
	lockoutDuration  = 15 * time.Minute
)

// AuthService is the auth guard: it verifies credentials, issues session
// tokens, and enforces the per-account lockout policy.  Lockout expiry is
// evaluated lazily on the next login attempt; there is no background timer.
type AuthService struct {
	users    UserStore
	secret   string
	ttlHours int

	now func() time.Time
}

// NewAuthService wires the auth guard.
func NewAuthService(users UserStore, secret string, ttlHours int) *AuthService {
	return &AuthService{
		users:    users,
		secret:   secret,
		ttlHours: ttlHours,
		now:      time.Now,
	}
}

// LoginResult carries the issued session and the role's permission record.
// The permission copy is for client UX only; enforcement always consults
// the policy table server-side.
type LoginResult struct {
	Token       string
	Expires     time.Time
	Username    string
	Role        model.Role
	Permissions model.Permissions
}

// Login runs the account state machine for one attempt:
//
//	active --failed--> active (counter+1), or locked once the counter
//	reaches 5 (15-minute expiry);
//	locked --attempt before expiry--> rejected, counter frozen;
//	locked --expiry elapsed--> active with counter reset, then the
//	attempt is judged on credentials alone;
//	active --success--> counter reset, last login recorded, token issued.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrAccountDisabled
	}

	now := s.now().UTC()
	if u.LockedUntil != nil {
		if now.Before(*u.LockedUntil) {
			remaining := int(math.Ceil(u.LockedUntil.Sub(now).Minutes()))
			return nil, &AccountLockedError{RemainingMinutes: remaining}
		}
		// Lock expired: reset before judging this attempt.
		u.LockedUntil = nil
		u.LoginAttempts = 0
		if err := s.users.SaveLoginState(ctx, u); err != nil {
			return nil, err
		}
	}

	if !utils.VerifyPassword(u.PasswordHash, password) {
		u.LoginAttempts++
		if u.LoginAttempts >= maxLoginAttempts {
			until := now.Add(lockoutDuration)
			u.LockedUntil = &until
			if err := s.users.SaveLoginState(ctx, u); err != nil {
				return nil, err
			}
			return nil, ErrTooManyAttempts
		}
		if err := s.users.SaveLoginState(ctx, u); err != nil {
			return nil, err
		}
		return nil, ErrInvalidCredentials
	}

	u.LoginAttempts = 0
	u.LockedUntil = nil
	u.LastLogin = &now
	if err := s.users.SaveLoginState(ctx, u); err != nil {
		return nil, err
	}

	tok, err := utils.NewSessionToken(s.secret, u, s.ttlHours)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Token:       tok.Token,
		Expires:     tok.Exp,
		Username:    u.Username,
		Role:        u.Role,
		Permissions: model.RolePermissions(u.Role),
	}, nil
}
