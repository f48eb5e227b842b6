package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMiddleware(t *testing.T) {
	tokens := NewTokenService("access", "refresh", time.Minute, time.Hour)
	userToken, _ := tokens.IssueAccess("user-1", []string{"USER"})
	adminToken, _ := tokens.IssueAccess("admin-1", []string{"USER", "ADMIN"})

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(UserIDFromContext(r.Context())))
	})

	tests := []struct {
		name       string
		guard      func(http.Handler) http.Handler
		header     string
		wantStatus int
		wantBody   string
	}{
		{"anonymous passes token middleware", nil, "", http.StatusOK, ""},
		{"valid token sets user", nil, "Bearer " + userToken, http.StatusOK, "user-1"},
		{"lowercase scheme", nil, "bearer " + userToken, http.StatusOK, "user-1"},
		{"invalid token", nil, "Bearer nope", http.StatusUnauthorized, ""},
		{"require auth anonymous", RequireAuth(), "", http.StatusUnauthorized, ""},
		{"require auth ok", RequireAuth(), "Bearer " + userToken, http.StatusOK, "user-1"},
		{"require admin as user", RequireRole("ADMIN"), "Bearer " + userToken, http.StatusForbidden, ""},
		{"require admin anonymous", RequireRole("ADMIN"), "", http.StatusUnauthorized, ""},
		{"require admin ok", RequireRole("ADMIN"), "Bearer " + adminToken, http.StatusOK, "admin-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h http.Handler = ok
			if tt.guard != nil {
				h = tt.guard(h)
			}
			h = TokenMiddleware(tokens)(h)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}
