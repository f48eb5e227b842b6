package handler

import (
	"net/http"
	"testing"

	"github.com/stacksift/api/internal/testutil"
)

func TestRegister(t *testing.T) {
	env := testHandler(t)

	rec := serve(env.h.Register, newRequest(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"name":     "Ada Lovelace",
		"email":    "Ada@Example.com",
		"password": "password123",
		"role":     "ADMIN",
	}, ""))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	resp := decodeResponse[struct {
		Message string  `json:"message"`
		Data    apiUser `json:"data"`
	}](t, rec)
	if resp.Data.Email != "ada@example.com" {
		t.Errorf("email = %q, want lowercased", resp.Data.Email)
	}
	if len(resp.Data.Roles) != 1 || resp.Data.Roles[0] != "USER" {
		t.Errorf("roles = %v, client-supplied role must be ignored", resp.Data.Roles)
	}
	if resp.Data.AvatarURL == "" {
		t.Error("expected gravatar fallback avatar")
	}
}

func TestRegister_Errors(t *testing.T) {
	env := testHandler(t)
	testutil.CreateTestUser(t, env.db, "taken@example.com", "Taken")

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"invalid email", map[string]string{"name": "A", "email": "not-an-email", "password": "password123"}, http.StatusBadRequest, ErrCodeValidationError},
		{"short password", map[string]string{"name": "A", "email": "a@example.com", "password": "short"}, http.StatusBadRequest, ErrCodeValidationError},
		{"missing name", map[string]string{"email": "a@example.com", "password": "password123"}, http.StatusBadRequest, ErrCodeValidationError},
		{"duplicate", map[string]string{"name": "A", "email": "TAKEN@example.com", "password": "password123"}, http.StatusConflict, ErrCodeConflict},
		{"not json", "nope", http.StatusBadRequest, ErrCodeInvalidJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(env.h.Register, newRequest(t, http.MethodPost, "/api/v1/auth/register", tt.body, ""))
			expectError(t, rec, tt.status, tt.code)
		})
	}
}

func TestLoginAndRefresh(t *testing.T) {
	env := testHandler(t)
	u := testutil.CreateTestUser(t, env.db, "login@example.com", "Login")

	rec := serve(env.h.Login, newRequest(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "login@example.com",
		"password": testutil.TestPassword,
	}, ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}
	session := decodeResponse[sessionResponse](t, rec)
	if session.User.ID != u.ID || session.AccessToken == "" || session.RefreshToken == "" {
		t.Fatalf("unexpected session: %+v", session)
	}

	rec = serve(env.h.RefreshToken, newRequest(t, http.MethodPost, "/api/v1/auth/refresh-token", map[string]string{
		"token": session.RefreshToken,
	}, ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, body = %s", rec.Code, rec.Body.String())
	}
	refreshed := decodeResponse[refreshResponse](t, rec)
	claims, err := env.tokens.ParseAccess(refreshed.AccessToken)
	if err != nil || claims.Subject != u.ID {
		t.Errorf("refreshed access token invalid: %v", err)
	}

	rec = serve(env.h.RefreshToken, newRequest(t, http.MethodPost, "/api/v1/auth/refresh-token", map[string]string{
		"token": session.AccessToken,
	}, ""))
	expectError(t, rec, http.StatusUnauthorized, ErrCodeNotAuthenticated)
}

func TestLogin_Errors(t *testing.T) {
	env := testHandler(t)
	testutil.CreateTestUser(t, env.db, "login@example.com", "Login")
	if _, err := env.db.Exec(`INSERT INTO users (id, name, email, google_id, created_at, updated_at) VALUES ('g1', 'G', 'google@example.com', 'sub-1', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`); err != nil {
		t.Fatal(err)
	}

	rec := serve(env.h.Login, newRequest(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "login@example.com", "password": "wrong-password",
	}, ""))
	expectError(t, rec, http.StatusUnauthorized, ErrCodeNotAuthenticated)

	rec = serve(env.h.Login, newRequest(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "google@example.com", "password": "password123",
	}, ""))
	expectError(t, rec, http.StatusBadRequest, ErrCodeValidationError)
	if resp := decodeResponse[apiErrorResponse](t, rec); resp.Error.Message != "Did you sign up with Google?" {
		t.Errorf("message = %q", resp.Error.Message)
	}
}

func TestGoogleLogin_NotConfigured(t *testing.T) {
	env := testHandler(t)

	rec := serve(env.h.GoogleLogin, newRequest(t, http.MethodPost, "/api/v1/auth/google", map[string]string{"token": "x"}, ""))
	expectError(t, rec, http.StatusNotFound, ErrCodeNotFound)
}

func TestVerifyPassword(t *testing.T) {
	env := testHandler(t)
	u := testutil.CreateTestUser(t, env.db, "verify@example.com", "Verify")

	tests := []struct {
		name     string
		password string
		status   int
	}{
		{"correct", testutil.TestPassword, http.StatusOK},
		{"wrong", "wrong-password", http.StatusUnauthorized},
		{"missing", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(env.h.VerifyPassword, newRequest(t, http.MethodPost, "/api/v1/auth/verify-password", map[string]string{
				"password": tt.password,
			}, u.ID))
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}
