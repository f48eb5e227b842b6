package user

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailAlreadyInUse = errors.New("email already in use")
	ErrGoogleIDInUse     = errors.New("google account already linked to another user")
)

const userColumns = `id, name, email, password_hash, google_id, avatar_url, roles, bio, cover_gradient, created_at, updated_at`

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a user with the USER role. Emails are stored lowercased.
func (r *Repository) Create(ctx context.Context, input CreateUserInput) (*User, error) {
	id := ulid.Make().String()
	now := time.Now().UTC()
	email := strings.ToLower(strings.TrimSpace(input.Email))
	roles := []string{RoleUser}

	rolesJSON, err := json.Marshal(roles)
	if err != nil {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, google_id, avatar_url, roles, bio, cover_gradient, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, '', ?, ?, ?)
	`, id, input.Name, email, input.PasswordHash, input.GoogleID, input.AvatarURL, string(rolesJSON),
		DefaultCoverGradient, now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrEmailAlreadyInUse
		}
		return nil, err
	}

	return &User{
		ID:            id,
		Name:          input.Name,
		Email:         email,
		PasswordHash:  input.PasswordHash,
		GoogleID:      input.GoogleID,
		AvatarURL:     input.AvatarURL,
		Roles:         roles,
		CoverGradient: DefaultCoverGradient,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = ?
	`, id))
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE email = ?
	`, strings.ToLower(strings.TrimSpace(email))))
}

// Update writes the profile fields of user. Email, password and roles are
// changed through their own methods.
func (r *Repository) Update(ctx context.Context, user *User) error {
	user.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			name = ?, avatar_url = ?, bio = ?, cover_gradient = ?, google_id = ?, updated_at = ?
		WHERE id = ?
	`, user.Name, user.AvatarURL, user.Bio, user.CoverGradient, user.GoogleID, user.UpdatedAt.Format(time.RFC3339), user.ID)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrGoogleIDInUse
		}
		return err
	}
	return requireRow(res)
}

func (r *Repository) UpdatePassword(ctx context.Context, userID string, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?
	`, passwordHash, time.Now().UTC().Format(time.RFC3339), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetRoles replaces the user's roles.
func (r *Repository) SetRoles(ctx context.Context, userID string, roles []string) error {
	rolesJSON, err := json.Marshal(roles)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET roles = ?, updated_at = ? WHERE id = ?
	`, string(rolesJSON), time.Now().UTC().Format(time.RFC3339), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *Repository) scanUser(row *sql.Row) (*User, error) {
	var user User
	var passwordHash, googleID, avatarURL sql.NullString
	var roles, createdAt, updatedAt string

	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&passwordHash,
		&googleID,
		&avatarURL,
		&roles,
		&user.Bio,
		&user.CoverGradient,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	if passwordHash.Valid {
		user.PasswordHash = &passwordHash.String
	}
	if googleID.Valid {
		user.GoogleID = &googleID.String
	}
	if avatarURL.Valid {
		user.AvatarURL = &avatarURL.String
	}
	if err := json.Unmarshal([]byte(roles), &user.Roles); err != nil {
		return nil, fmt.Errorf("decoding roles for user %s: %w", user.ID, err)
	}
	user.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	user.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &user, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
