package user

import (
	"slices"
	"time"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"

	DefaultCoverGradient = "default"
)

type User struct {
	ID            string
	Name          string
	Email         string
	PasswordHash  *string // nil for accounts created through Google sign-in
	GoogleID      *string
	AvatarURL     *string
	Roles         []string
	Bio           string
	CoverGradient string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasRole reports whether the user holds role.
func (u *User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// HasPassword is false for Google-only accounts.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

type CreateUserInput struct {
	Name         string
	Email        string
	PasswordHash *string
	GoogleID     *string
	AvatarURL    *string
}
