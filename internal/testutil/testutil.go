package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stacksift/api/internal/database"
	"golang.org/x/crypto/bcrypt"
)

// TestPassword is the plaintext password of every user created by CreateTestUser.
const TestPassword = "password123"

// TestDB creates an in-memory SQLite database with migrations applied.
// The database is automatically closed when the test completes.
func TestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(":memory:", database.Options{})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		t.Fatalf("running migrations: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db.DB
}

// hashPassword creates a bcrypt hash with low cost for tests
func hashPassword(password string) string {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), 4)
	return string(hash)
}

// TestUser represents a test user
type TestUser struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// CreateTestUser creates a user directly in the database without using the user package
func CreateTestUser(t *testing.T, db *sql.DB, email, name string) *TestUser {
	t.Helper()
	return createUser(t, db, email, name, `["USER"]`)
}

// CreateTestAdmin creates a user holding both the USER and ADMIN roles.
func CreateTestAdmin(t *testing.T, db *sql.DB, email, name string) *TestUser {
	t.Helper()
	return createUser(t, db, email, name, `["USER","ADMIN"]`)
}

func createUser(t *testing.T, db *sql.DB, email, name, roles string) *TestUser {
	t.Helper()

	id := ulid.Make().String()
	hash := hashPassword(TestPassword)
	now := time.Now().UTC()

	_, err := db.ExecContext(context.Background(), `
		INSERT INTO users (id, name, email, password_hash, roles, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, name, email, hash, roles, now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		t.Fatalf("creating test user: %v", err)
	}

	return &TestUser{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
	}
}

// TestWebsite represents a test website
type TestWebsite struct {
	ID       string
	Title    string
	URL      string
	Category string
	AddedBy  string
}

// CreateTestWebsite creates an approved website directly in the database.
func CreateTestWebsite(t *testing.T, db *sql.DB, addedBy, title, rawURL, category string) *TestWebsite {
	t.Helper()

	id := ulid.Make().String()
	now := time.Now().UTC()

	_, err := db.ExecContext(context.Background(), `
		INSERT INTO websites (id, title, url, domain, description, category, tags, added_by, approved, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, '[]', ?, 1, ?, ?)
	`, id, title, rawURL, title, title+" description", category, addedBy, now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		t.Fatalf("creating test website: %v", err)
	}

	return &TestWebsite{
		ID:       id,
		Title:    title,
		URL:      rawURL,
		Category: category,
		AddedBy:  addedBy,
	}
}

// CreateTestCollection creates an empty collection owned by userID.
func CreateTestCollection(t *testing.T, db *sql.DB, userID, name string) string {
	t.Helper()

	id := ulid.Make().String()
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := db.ExecContext(context.Background(), `
		INSERT INTO collections (id, user_id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, userID, name, now, now)
	if err != nil {
		t.Fatalf("creating test collection: %v", err)
	}
	return id
}
