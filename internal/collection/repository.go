package collection

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stacksift/api/internal/website"
)

var (
	ErrNotFound        = errors.New("collection not found")
	ErrNameTaken       = errors.New("folder already exists")
	ErrNameRequired    = errors.New("collection name is required")
	ErrWebsiteNotFound = errors.New("website not found")
)

// Repository stores collections. Every method takes the owner's ID and
// only touches collections that user owns.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, userID, name string) (*Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	id := ulid.Make().String()
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO collections (id, user_id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, userID, name, now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrNameTaken
		}
		return nil, fmt.Errorf("inserting collection: %w", err)
	}

	return &Collection{
		ID:        id,
		Name:      name,
		UserID:    userID,
		Websites:  []website.Website{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ListByUser returns the user's collections newest first, websites populated.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]Collection, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, user_id, created_at, updated_at
		FROM collections WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	defer rows.Close()

	collections := []Collection{}
	index := make(map[string]int)
	for rows.Next() {
		var c Collection
		var createdAt, updatedAt string
		if err := rows.Scan(&c.ID, &c.Name, &c.UserID, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		c.Websites = []website.Website{}
		index[c.ID] = len(collections)
		collections = append(collections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(collections) == 0 {
		return collections, nil
	}

	wrows, err := r.db.QueryContext(ctx, `
		SELECT cw.collection_id, w.id, w.title, w.url, w.domain, w.description, w.category, w.tags,
			w.screenshot_url, w.views, w.created_at
		FROM collection_websites cw
		JOIN collections c ON c.id = cw.collection_id
		JOIN websites w ON w.id = cw.website_id
		WHERE c.user_id = ?
		ORDER BY cw.added_at, w.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing collection websites: %w", err)
	}
	defer wrows.Close()

	for wrows.Next() {
		var collectionID, tagsJSON, createdAt string
		var screenshotURL sql.NullString
		var w website.Website
		if err := wrows.Scan(&collectionID, &w.ID, &w.Title, &w.URL, &w.Domain, &w.Description, &w.Category,
			&tagsJSON, &screenshotURL, &w.Views, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(tagsJSON), &w.Tags); err != nil || w.Tags == nil {
			w.Tags = []string{}
		}
		if screenshotURL.Valid {
			w.ScreenshotURL = &screenshotURL.String
		}
		w.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

		i := index[collectionID]
		collections[i].Websites = append(collections[i].Websites, w)
	}
	return collections, wrows.Err()
}

// AddWebsite adds a website to the collection. Adding a member twice is a no-op.
func (r *Repository) AddWebsite(ctx context.Context, userID, collectionID, websiteID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := touchOwned(ctx, tx, userID, collectionID); err != nil {
		return err
	}

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM websites WHERE id = ?)`, websiteID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrWebsiteNotFound
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO collection_websites (collection_id, website_id, added_at) VALUES (?, ?, ?)
		ON CONFLICT (collection_id, website_id) DO NOTHING
	`, collectionID, websiteID, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("adding website to collection: %w", err)
	}
	return tx.Commit()
}

// RemoveWebsite removes a website from the collection. Removing a
// non-member is a no-op.
func (r *Repository) RemoveWebsite(ctx context.Context, userID, collectionID, websiteID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := touchOwned(ctx, tx, userID, collectionID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM collection_websites WHERE collection_id = ? AND website_id = ?
	`, collectionID, websiteID); err != nil {
		return fmt.Errorf("removing website from collection: %w", err)
	}
	return tx.Commit()
}

func (r *Repository) Delete(ctx context.Context, userID, collectionID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM collections WHERE id = ? AND user_id = ?`, collectionID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM collections WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}

// touchOwned bumps updated_at on a collection the user owns, or returns ErrNotFound.
func touchOwned(ctx context.Context, tx *sql.Tx, userID, collectionID string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE collections SET updated_at = ? WHERE id = ? AND user_id = ?
	`, time.Now().UTC().Format(time.RFC3339), collectionID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
