package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/stacksift/api/internal/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrGoogleAccount      = errors.New("this account has no password. Did you sign up with Google?")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrPasswordRequired   = errors.New("password is required")
	ErrNameRequired       = errors.New("name is required")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrGoogleDisabled     = errors.New("google sign-in is not configured")
)

const minPasswordLength = 8

type Service struct {
	userRepo   *user.Repository
	tokens     *TokenService
	google     GoogleVerifier
	bcryptCost int
}

// NewService creates a Service. google may be nil when Google sign-in is not
// configured.
func NewService(userRepo *user.Repository, tokens *TokenService, google GoogleVerifier, bcryptCost int) *Service {
	return &Service{
		userRepo:   userRepo,
		tokens:     tokens,
		google:     google,
		bcryptCost: bcryptCost,
	}
}

// Session is the result of a successful sign-in.
type Session struct {
	User         *user.User
	AccessToken  string
	RefreshToken string
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register creates a password account. New accounts always get the USER role.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*user.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, ErrNameRequired
	}
	if err := validateEmail(input.Email); err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}

	hash, err := HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	return s.userRepo.Create(ctx, user.CreateUserInput{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: &hash,
	})
}

type LoginInput struct {
	Email    string
	Password string
}

func (s *Service) Login(ctx context.Context, input LoginInput) (*Session, error) {
	if input.Email == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !u.HasPassword() {
		return nil, ErrGoogleAccount
	}
	if !CheckPassword(input.Password, *u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.newSession(u)
}

// Refresh exchanges a refresh token for a new access token. Roles are read
// from the database so a role change takes effect on the next refresh.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	userID, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return "", err
	}

	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}

	return s.tokens.IssueAccess(u.ID, u.Roles)
}

// GoogleLogin signs in with a Google ID token. An existing account with the
// same email is linked to the Google identity; otherwise one is created.
func (s *Service) GoogleLogin(ctx context.Context, idToken string) (*Session, error) {
	if s.google == nil {
		return nil, ErrGoogleDisabled
	}

	identity, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}
	if !identity.EmailVerified {
		return nil, ErrGoogleTokenInvalid
	}

	u, err := s.userRepo.GetByEmail(ctx, identity.Email)
	switch {
	case err == nil:
		if err := s.linkGoogle(ctx, u, identity); err != nil {
			return nil, err
		}
	case errors.Is(err, user.ErrUserNotFound):
		name := strings.TrimSpace(identity.Name)
		if name == "" {
			name, _, _ = strings.Cut(identity.Email, "@")
		}
		input := user.CreateUserInput{
			Name:     name,
			Email:    identity.Email,
			GoogleID: &identity.Subject,
		}
		if identity.Picture != "" {
			input.AvatarURL = &identity.Picture
		}
		u, err = s.userRepo.Create(ctx, input)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	return s.newSession(u)
}

func (s *Service) linkGoogle(ctx context.Context, u *user.User, identity *GoogleIdentity) error {
	changed := false
	if u.GoogleID == nil {
		u.GoogleID = &identity.Subject
		changed = true
	}
	if u.AvatarURL == nil && identity.Picture != "" {
		u.AvatarURL = &identity.Picture
		changed = true
	}
	if !changed {
		return nil
	}
	return s.userRepo.Update(ctx, u)
}

// VerifyPassword re-checks the caller's password before a sensitive action.
// Accounts without a password pass.
func (s *Service) VerifyPassword(ctx context.Context, userID, password string) error {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !u.HasPassword() {
		return nil
	}
	if password == "" {
		return ErrPasswordRequired
	}
	if !CheckPassword(password, *u.PasswordHash) {
		return ErrInvalidCredentials
	}
	return nil
}

// SetPassword validates and stores a new password for the user.
func (s *Service) SetPassword(ctx context.Context, userID, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}
	return s.userRepo.UpdatePassword(ctx, userID, hash)
}

func (s *Service) GetCurrentUser(ctx context.Context, userID string) (*user.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

func (s *Service) newSession(u *user.User) (*Session, error) {
	access, err := s.tokens.IssueAccess(u.ID, u.Roles)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefresh(u.ID)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, AccessToken: access, RefreshToken: refresh}, nil
}

func validatePassword(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	if len(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

func validateEmail(email string) error {
	local, domain, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok || local == "" || domain == "" || strings.ContainsAny(domain, "@ ") {
		return ErrInvalidEmail
	}
	return nil
}
