package linkpreview

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Repository persists fetched page metadata in link_preview_cache.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Get returns the live cache entry for url, or nil when there is none.
func (r *Repository) Get(ctx context.Context, url string) (*CacheEntry, error) {
	var (
		c                    CacheEntry
		fetchedAt, expiresAt string
		title, description   sql.NullString
		imageURL, siteName   sql.NullString
		fetchError           sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT url, title, description, image_url, site_name, fetched_at, expires_at, fetch_error
		FROM link_preview_cache
		WHERE url = ? AND expires_at > ?
	`, url, time.Now().UTC().Format(time.RFC3339)).Scan(
		&c.URL, &title, &description, &imageURL, &siteName, &fetchedAt, &expiresAt, &fetchError)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.Title = title.String
	c.Description = description.String
	c.ImageURL = imageURL.String
	c.SiteName = siteName.String
	c.FetchError = fetchError.String
	c.FetchedAt, _ = time.Parse(time.RFC3339, fetchedAt)
	c.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt)
	return &c, nil
}

// Put stores c, replacing any previous entry for the same URL.
func (r *Repository) Put(ctx context.Context, c *CacheEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO link_preview_cache (url, title, description, image_url, site_name, fetched_at, expires_at, fetch_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (url) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			image_url = excluded.image_url,
			site_name = excluded.site_name,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at,
			fetch_error = excluded.fetch_error
	`, c.URL, optional(c.Title), optional(c.Description), optional(c.ImageURL), optional(c.SiteName),
		c.FetchedAt.UTC().Format(time.RFC3339), c.ExpiresAt.UTC().Format(time.RFC3339), optional(c.FetchError))
	return err
}

// DeleteExpired removes expired entries and returns how many were dropped.
func (r *Repository) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM link_preview_cache WHERE expires_at <= ?`, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func optional(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
