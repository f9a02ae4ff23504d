package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nixflow/repair-tracker/internal/model"
	"github.com/nixflow/repair-tracker/internal/utils"
)

const testSecret = "test-secret"

func testUser(t *testing.T, username, password string, role model.Role) *model.User {
	t.Helper()
	hash, err := utils.HashPassword(password, 4) // min cost keeps the tests fast
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &model.User{
		ID:           1,
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
}

func newTestAuth(t *testing.T, users *stubUserStore) *AuthService {
	t.Helper()
	svc := NewAuthService(users, testSecret, 24)
	svc.now = fixedClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	return svc
}

func TestLoginSuccess(t *testing.T) {
	users := newStubUserStore(testUser(t, "admin", "Admin@123", model.RoleAdmin))
	svc := newTestAuth(t, users)

	res, err := svc.Login(context.Background(), "admin", "Admin@123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Role != model.RoleAdmin || !res.Permissions.CanManageUsers {
		t.Fatalf("result = %+v", res)
	}

	tok, err := jwt.Parse(res.Token, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	}, jwt.WithTimeFunc(svc.now))
	if err != nil || !tok.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	claims := tok.Claims.(jwt.MapClaims)
	if claims["username"] != "admin" || claims["role"] != "ADMIN" {
		t.Fatalf("claims = %v", claims)
	}

	stored := users.users["admin"]
	if stored.LastLogin == nil || stored.LoginAttempts != 0 {
		t.Fatalf("login state not recorded: %+v", stored)
	}
}

func TestLoginWrongPasswordAndUnknownUserLookAlike(t *testing.T) {
	users := newStubUserStore(testUser(t, "admin", "Admin@123", model.RoleAdmin))
	svc := newTestAuth(t, users)
	ctx := context.Background()

	_, err1 := svc.Login(ctx, "admin", "wrong-pass")
	_, err2 := svc.Login(ctx, "nobody", "whatever-pass")
	if !errors.Is(err1, ErrInvalidCredentials) || !errors.Is(err2, ErrInvalidCredentials) {
		t.Fatalf("errs = %v / %v, want identical ErrInvalidCredentials", err1, err2)
	}
}

func TestLoginDisabledAccount(t *testing.T) {
	u := testUser(t, "ghost", "Ghost@123", model.RoleUser)
	u.IsActive = false
	svc := newTestAuth(t, newStubUserStore(u))

	_, err := svc.Login(context.Background(), "ghost", "Ghost@123")
	if !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("err = %v, want ErrAccountDisabled", err)
	}
}

func TestLoginLockoutAfterFiveFailures(t *testing.T) {
	users := newStubUserStore(testUser(t, "tech", "Tech@123", model.RoleTech))
	svc := newTestAuth(t, users)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := svc.Login(ctx, "tech", "bad-pass"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}
	if _, err := svc.Login(ctx, "tech", "bad-pass"); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("fifth attempt: %v, want ErrTooManyAttempts", err)
	}

	// Locked: even the correct password is rejected and the counter stays.
	_, err := svc.Login(ctx, "tech", "Tech@123")
	var locked *AccountLockedError
	if !errors.As(err, &locked) {
		t.Fatalf("while locked: %v, want AccountLockedError", err)
	}
	if locked.RemainingMinutes != 15 {
		t.Fatalf("remaining = %d, want 15", locked.RemainingMinutes)
	}
	if users.users["tech"].LoginAttempts != 5 {
		t.Fatalf("counter moved while locked: %d", users.users["tech"].LoginAttempts)
	}
}

func TestLoginLockoutRemainingMinutesRoundsUp(t *testing.T) {
	users := newStubUserStore(testUser(t, "tech", "Tech@123", model.RoleTech))
	svc := newTestAuth(t, users)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		svc.Login(ctx, "tech", "bad-pass")
	}

	// 14m30s left reports as 15.
	svc.now = fixedClock(svc.now().Add(30 * time.Second))
	_, err := svc.Login(ctx, "tech", "Tech@123")
	var locked *AccountLockedError
	if !errors.As(err, &locked) {
		t.Fatalf("err = %v", err)
	}
	if locked.RemainingMinutes != 15 {
		t.Fatalf("remaining = %d, want 15 (ceiling)", locked.RemainingMinutes)
	}
}

func TestLoginLockExpiryResetsCounter(t *testing.T) {
	users := newStubUserStore(testUser(t, "tech", "Tech@123", model.RoleTech))
	svc := newTestAuth(t, users)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		svc.Login(ctx, "tech", "bad-pass")
	}

	svc.now = fixedClock(svc.now().Add(16 * time.Minute))

	// A failed attempt after expiry starts the count from one again.
	if _, err := svc.Login(ctx, "tech", "bad-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("post-expiry failure: %v", err)
	}
	u := users.users["tech"]
	if u.LoginAttempts != 1 || u.LockedUntil != nil {
		t.Fatalf("state after expiry = attempts %d, locked %v", u.LoginAttempts, u.LockedUntil)
	}

	if _, err := svc.Login(ctx, "tech", "Tech@123"); err != nil {
		t.Fatalf("login after expiry: %v", err)
	}
	if users.users["tech"].LoginAttempts != 0 {
		t.Fatalf("counter not reset on success")
	}
}

func TestLoginSuccessResetsCounter(t *testing.T) {
	users := newStubUserStore(testUser(t, "viewer", "Viewer@123", model.RoleViewer))
	svc := newTestAuth(t, users)
	ctx := context.Background()

	svc.Login(ctx, "viewer", "bad-pass")
	svc.Login(ctx, "viewer", "bad-pass")
	if users.users["viewer"].LoginAttempts != 2 {
		t.Fatalf("attempts = %d", users.users["viewer"].LoginAttempts)
	}

	if _, err := svc.Login(ctx, "viewer", "Viewer@123"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if users.users["viewer"].LoginAttempts != 0 {
		t.Fatalf("counter not reset: %d", users.users["viewer"].LoginAttempts)
	}
}
