package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/nixflow/repair-tracker/internal/model"
	"github.com/nixflow/repair-tracker/internal/service"
	"github.com/nixflow/repair-tracker/internal/utils"
)

type memUserStore struct {
	users map[string]*model.User
}

func (s *memUserStore) GetByUsername(_ context.Context, username string) (*model.User, error) {
	u, ok := s.users[username]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *memUserStore) SaveLoginState(_ context.Context, u *model.User) error {
	cp := *u
	s.users[u.Username] = &cp
	return nil
}

func newAuthTestHandler(t *testing.T) *AuthHandler {
	t.Helper()
	hash, err := utils.HashPassword("Admin@123", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	store := &memUserStore{users: map[string]*model.User{
		"admin": {ID: 1, Username: "admin", PasswordHash: hash, Role: model.RoleAdmin, IsActive: true},
	}}
	return NewAuthHandler(service.NewAuthService(store, "handler-test-secret", 24))
}

func TestLoginHandlerSuccess(t *testing.T) {
	h := newAuthTestHandler(t)

	rec := doJSON(t, h.Login, http.MethodPost, "/api/auth/login",
		`{"username":"admin","password":"Admin@123"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	res := decodeBody(t, rec)
	session, _ := res["session"].(map[string]interface{})
	if session["role"] != "ADMIN" || session["token"] == "" {
		t.Fatalf("session = %v", session)
	}
	perms, _ := res["permissions"].(map[string]interface{})
	if perms["canManageUsers"] != true || perms["defaultPage"] != "dashboard" {
		t.Fatalf("permissions = %v", perms)
	}
}

func TestLoginHandlerValidation(t *testing.T) {
	h := newAuthTestHandler(t)

	cases := []struct {
		name string
		body string
	}{
		{"missing username", `{"password":"Admin@123"}`},
		{"short username", `{"username":"ab","password":"Admin@123"}`},
		{"short password", `{"username":"admin","password":"abc"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, h.Login, http.MethodPost, "/api/auth/login", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
			}
		})
	}
}

func TestLoginHandlerBadCredentials(t *testing.T) {
	h := newAuthTestHandler(t)

	rec := doJSON(t, h.Login, http.MethodPost, "/api/auth/login",
		`{"username":"admin","password":"wrong-pass"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	res := decodeBody(t, rec)
	if res["error"] != "Invalid username or password" {
		t.Fatalf("error = %v", res["error"])
	}
}

func TestLoginHandlerLockout(t *testing.T) {
	h := newAuthTestHandler(t)

	for i := 0; i < 4; i++ {
		doJSON(t, h.Login, http.MethodPost, "/api/auth/login",
			`{"username":"admin","password":"wrong-pass"}`)
	}
	rec := doJSON(t, h.Login, http.MethodPost, "/api/auth/login",
		`{"username":"admin","password":"wrong-pass"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	res := decodeBody(t, rec)
	if res["error"] != "Too many failed login attempts. Account locked for 15 minutes." {
		t.Fatalf("error = %v", res["error"])
	}

	// Correct password while locked is still rejected.
	rec = doJSON(t, h.Login, http.MethodPost, "/api/auth/login",
		`{"username":"admin","password":"Admin@123"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
}

func TestCheckAccess(t *testing.T) {
	h := newAuthTestHandler(t)

	rec := doJSONWithRole(t, h.CheckAccess, "/api/auth/check-access?page=reports", "VIEWER")
	res := decodeBody(t, rec)
	if res["hasAccess"] != true || res["defaultPage"] != "reports" {
		t.Fatalf("body = %v", res)
	}

	rec = doJSONWithRole(t, h.CheckAccess, "/api/auth/check-access?page=form", "VIEWER")
	res = decodeBody(t, rec)
	if res["hasAccess"] != false {
		t.Fatalf("body = %v", res)
	}

	rec = doJSONWithRole(t, h.CheckAccess, "/api/auth/check-access", "VIEWER")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing page: status = %d", rec.Code)
	}
}

func doJSONWithRole(t *testing.T, h echo.HandlerFunc, target, role string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("role", role)
	c.Set("username", "someone")
	if err := h(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	return rec
}
