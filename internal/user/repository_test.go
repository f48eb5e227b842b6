package user

import (
	"context"
	"errors"
	"testing"

	"github.com/stacksift/api/internal/testutil"
)

func ptr(s string) *string {
	return &s
}

func newRepo(t *testing.T) *Repository {
	t.Helper()
	return NewRepository(testutil.TestDB(t))
}

func TestRepository_Create(t *testing.T) {
	tests := []struct {
		name         string
		input        CreateUserInput
		wantEmail    string
		wantPassword bool
		wantGoogle   bool
	}{
		{
			name:         "password account",
			input:        CreateUserInput{Name: "Grace Hopper", Email: "  Grace@Example.com ", PasswordHash: ptr("$2a$04$fakehash")},
			wantEmail:    "grace@example.com",
			wantPassword: true,
		},
		{
			name: "google account",
			input: CreateUserInput{
				Name:      "Alan Kay",
				Email:     "alan@example.com",
				GoogleID:  ptr("108234"),
				AvatarURL: ptr("https://lh3.googleusercontent.com/a/photo.jpg"),
			},
			wantEmail:  "alan@example.com",
			wantGoogle: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newRepo(t)
			ctx := context.Background()

			created, err := repo.Create(ctx, tt.input)
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			u, err := repo.GetByID(ctx, created.ID)
			if err != nil {
				t.Fatalf("GetByID() error = %v", err)
			}

			if u.ID == "" || u.CreatedAt.IsZero() {
				t.Errorf("missing ID or CreatedAt: %+v", u)
			}
			if u.Email != tt.wantEmail {
				t.Errorf("Email = %q, want %q", u.Email, tt.wantEmail)
			}
			if u.Name != tt.input.Name {
				t.Errorf("Name = %q, want %q", u.Name, tt.input.Name)
			}
			if len(u.Roles) != 1 || u.Roles[0] != RoleUser {
				t.Errorf("Roles = %v, want [%s]", u.Roles, RoleUser)
			}
			if u.CoverGradient != DefaultCoverGradient {
				t.Errorf("CoverGradient = %q, want %q", u.CoverGradient, DefaultCoverGradient)
			}
			if u.HasPassword() != tt.wantPassword {
				t.Errorf("HasPassword() = %v, want %v", u.HasPassword(), tt.wantPassword)
			}
			if (u.GoogleID != nil) != tt.wantGoogle {
				t.Errorf("GoogleID = %v, want set=%v", u.GoogleID, tt.wantGoogle)
			}
		})
	}
}

func TestRepository_Create_DuplicateEmail(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	if _, err := repo.Create(ctx, CreateUserInput{Name: "A", Email: "dup@example.com", PasswordHash: ptr("$2a$04$x")}); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}
	_, err := repo.Create(ctx, CreateUserInput{Name: "B", Email: "DUP@example.com", PasswordHash: ptr("$2a$04$y")})
	if !errors.Is(err, ErrEmailAlreadyInUse) {
		t.Errorf("second Create() error = %v, want %v", err, ErrEmailAlreadyInUse)
	}
}

func TestRepository_Lookup(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	created, err := repo.Create(ctx, CreateUserInput{Name: "Find Me", Email: "findme@example.com", PasswordHash: ptr("$2a$04$x")})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		lookup  func() (*User, error)
		wantErr error
	}{
		{"by id", func() (*User, error) { return repo.GetByID(ctx, created.ID) }, nil},
		{"by email ignores case", func() (*User, error) { return repo.GetByEmail(ctx, "FindMe@Example.com") }, nil},
		{"unknown id", func() (*User, error) { return repo.GetByID(ctx, "01HZZZZZZZZZZZZZZZZZZZZZZZ") }, ErrUserNotFound},
		{"unknown email", func() (*User, error) { return repo.GetByEmail(ctx, "nobody@example.com") }, ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := tt.lookup()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && u.ID != created.ID {
				t.Errorf("ID = %q, want %q", u.ID, created.ID)
			}
		})
	}
}

func TestRepository_Update(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	u, _ := repo.Create(ctx, CreateUserInput{Name: "Original", Email: "update@example.com", PasswordHash: ptr("$2a$04$x")})
	u.Name = "Renamed"
	u.Bio = "Building tools"
	u.CoverGradient = "sunset"
	u.AvatarURL = ptr("https://example.com/avatar.png")

	if err := repo.Update(ctx, u); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "Renamed" || got.Bio != "Building tools" || got.CoverGradient != "sunset" {
		t.Errorf("profile = %q/%q/%q", got.Name, got.Bio, got.CoverGradient)
	}
	if got.AvatarURL == nil || *got.AvatarURL != *u.AvatarURL {
		t.Errorf("AvatarURL = %v, want %q", got.AvatarURL, *u.AvatarURL)
	}
}

func TestRepository_WritesReportConflicts(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	_, _ = repo.Create(ctx, CreateUserInput{Name: "A", Email: "a@example.com", GoogleID: ptr("g-1")})
	b, _ := repo.Create(ctx, CreateUserInput{Name: "B", Email: "b@example.com", PasswordHash: ptr("$2a$04$x")})
	b.GoogleID = ptr("g-1")

	ghost := &User{ID: "missing", Name: "x", CoverGradient: DefaultCoverGradient}

	tests := []struct {
		name    string
		write   func() error
		wantErr error
	}{
		{"update taken google id", func() error { return repo.Update(ctx, b) }, ErrGoogleIDInUse},
		{"update missing user", func() error { return repo.Update(ctx, ghost) }, ErrUserNotFound},
		{"password for missing user", func() error { return repo.UpdatePassword(ctx, "missing", "$2a$04$y") }, ErrUserNotFound},
		{"roles for missing user", func() error { return repo.SetRoles(ctx, "missing", []string{RoleAdmin}) }, ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.write(); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRepository_PasswordAndRoles(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	u, _ := repo.Create(ctx, CreateUserInput{Name: "Linker", Email: "linker@example.com", GoogleID: ptr("g-2")})

	if err := repo.UpdatePassword(ctx, u.ID, "$2a$04$newhash"); err != nil {
		t.Fatalf("UpdatePassword() error = %v", err)
	}
	if err := repo.SetRoles(ctx, u.ID, []string{RoleUser, RoleAdmin}); err != nil {
		t.Fatalf("SetRoles() error = %v", err)
	}

	got, _ := repo.GetByID(ctx, u.ID)
	if got.PasswordHash == nil || *got.PasswordHash != "$2a$04$newhash" {
		t.Errorf("PasswordHash = %v", got.PasswordHash)
	}
	if !got.HasRole(RoleAdmin) || !got.HasRole(RoleUser) {
		t.Errorf("Roles = %v, want USER and ADMIN", got.Roles)
	}
}
