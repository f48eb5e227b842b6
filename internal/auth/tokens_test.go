package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func TestTokenService_AccessRoundTrip(t *testing.T) {
	tokens := NewTokenService("access", "refresh", time.Minute, time.Hour)

	signed, err := tokens.IssueAccess("user-1", []string{"USER", "ADMIN"})
	if err != nil {
		t.Fatalf("IssueAccess() error = %v", err)
	}
	claims, err := tokens.ParseAccess(signed)
	if err != nil {
		t.Fatalf("ParseAccess() error = %v", err)
	}
	if claims.Subject != "user-1" || len(claims.Roles) != 2 {
		t.Errorf("claims = %+v", claims)
	}
}

func TestTokenService_Rejects(t *testing.T) {
	tokens := NewTokenService("access", "refresh", time.Minute, time.Hour)

	expired := NewTokenService("access", "refresh", time.Minute, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expiredToken, _ := expired.IssueAccess("user-1", nil)

	otherSecret, _ := NewTokenService("other", "refresh", time.Minute, time.Hour).IssueAccess("user-1", nil)
	refresh, _ := tokens.IssueRefresh("user-1")

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("access"))

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"expired", expiredToken},
		{"wrong secret", otherSecret},
		{"refresh token", refresh},
		{"alg none", none},
		{"missing subject", noSubject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tokens.ParseAccess(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("ParseAccess() error = %v, want %v", err, ErrInvalidToken)
			}
		})
	}
}

func TestTokenService_RefreshUsesOwnSecret(t *testing.T) {
	tokens := NewTokenService("access", "refresh", time.Minute, time.Hour)

	refresh, err := tokens.IssueRefresh("user-1")
	if err != nil {
		t.Fatalf("IssueRefresh() error = %v", err)
	}
	if sub, err := tokens.ParseRefresh(refresh); err != nil || sub != "user-1" {
		t.Errorf("ParseRefresh() = %q, %v", sub, err)
	}

	access, _ := tokens.IssueAccess("user-1", nil)
	if _, err := tokens.ParseRefresh(access); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ParseRefresh(access) error = %v, want %v", err, ErrInvalidToken)
	}
}
