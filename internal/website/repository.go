package website

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
	ErrNotFound         = errors.New("website not found")
	ErrURLAlreadyExists = errors.New("website with this URL already exists")
)

// selectColumns expects the viewer ID as its only argument.
const selectColumns = `
	w.id, w.title, w.url, w.domain, w.description, w.category, w.tags, w.screenshot_url,
	w.added_by, w.approved, w.views, w.created_at, w.updated_at,
	(SELECT COUNT(*) FROM website_upvotes u WHERE u.website_id = w.id),
	EXISTS(SELECT 1 FROM website_upvotes u WHERE u.website_id = w.id AND u.user_id = ?)`

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, input CreateInput) (*Website, error) {
	id := ulid.Make().String()
	now := time.Now().UTC()

	tags := input.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, err
	}
	category := input.Category
	if category == "" {
		category = DefaultCategory
	}
	var addedBy *string
	if input.AddedBy != "" {
		addedBy = &input.AddedBy
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO websites (id, title, url, domain, description, category, tags, screenshot_url, added_by, approved, views, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?)
	`, id, input.Title, input.URL, input.Domain, input.Description, category, string(tagsJSON),
		input.ScreenshotURL, addedBy, now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrURLAlreadyExists
		}
		return nil, fmt.Errorf("inserting website: %w", err)
	}

	return &Website{
		ID:            id,
		Title:         input.Title,
		URL:           input.URL,
		Domain:        input.Domain,
		Description:   input.Description,
		Category:      category,
		Tags:          tags,
		ScreenshotURL: input.ScreenshotURL,
		AddedBy:       addedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (r *Repository) ExistsByURL(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM websites WHERE url = ?)`, url).Scan(&exists)
	return exists, err
}

func (r *Repository) GetByID(ctx context.Context, id, viewerID string) (*Website, error) {
	w, err := scanWebsite(r.db.QueryRowContext(ctx, `
		SELECT `+selectColumns+` FROM websites w WHERE w.id = ?
	`, viewerID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return w, err
}

// View increments the view counter and returns the updated website.
func (r *Repository) View(ctx context.Context, id, viewerID string) (*Website, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE websites SET views = views + 1 WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("incrementing views: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id, viewerID)
}

// List returns websites newest first. Search is a case-insensitive substring
// match over title, description and tags; Category is an exact match.
func (r *Repository) List(ctx context.Context, params ListParams) (*ListResult, error) {
	params = normalizeListParams(params)

	var where []string
	var args []any
	if params.ApprovedOnly {
		where = append(where, "w.approved = 1")
	}
	if params.Category != "" {
		where = append(where, "w.category = ?")
		args = append(args, params.Category)
	}
	if params.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(params.Search)) + "%"
		where = append(where, `(LOWER(w.title) LIKE ? ESCAPE '\' OR LOWER(w.description) LIKE ? ESCAPE '\' OR LOWER(w.tags) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}
	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM websites w `+clause, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting websites: %w", err)
	}

	queryArgs := append([]any{params.ViewerID}, args...)
	queryArgs = append(queryArgs, params.Limit, (params.Page-1)*params.Limit)
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+selectColumns+` FROM websites w `+clause+`
		ORDER BY w.created_at DESC, w.id DESC
		LIMIT ? OFFSET ?
	`, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("listing websites: %w", err)
	}
	defer rows.Close()

	websites := []Website{}
	for rows.Next() {
		w, err := scanWebsite(rows)
		if err != nil {
			return nil, err
		}
		websites = append(websites, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &ListResult{
		Websites:   websites,
		Total:      total,
		Page:       params.Page,
		TotalPages: (total + params.Limit - 1) / params.Limit,
	}, nil
}

// ToggleUpvote adds the user's upvote, or removes it if present. It returns
// whether the user now upvotes the website and the new total.
func (r *Repository) ToggleUpvote(ctx context.Context, websiteID, userID string) (bool, int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, err
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM websites WHERE id = ?)`, websiteID).Scan(&exists); err != nil {
		return false, 0, err
	}
	if !exists {
		return false, 0, ErrNotFound
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM website_upvotes WHERE website_id = ? AND user_id = ?`, websiteID, userID)
	if err != nil {
		return false, 0, err
	}
	removed, _ := res.RowsAffected()
	upvoted := removed == 0
	if upvoted {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO website_upvotes (website_id, user_id, created_at) VALUES (?, ?, ?)
		`, websiteID, userID, time.Now().UTC().Format(time.RFC3339))
		if err != nil {
			return false, 0, err
		}
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM website_upvotes WHERE website_id = ?`, websiteID).Scan(&count); err != nil {
		return false, 0, err
	}

	return upvoted, count, tx.Commit()
}

func (r *Repository) SetApproved(ctx context.Context, id string, approved bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE websites SET approved = ?, updated_at = ? WHERE id = ?
	`, approved, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByUser returns how many websites the user has submitted.
func (r *Repository) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM websites WHERE added_by = ?`, userID).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWebsite(s scanner) (*Website, error) {
	var w Website
	var tagsJSON, createdAt, updatedAt string
	var screenshotURL, addedBy sql.NullString
	if err := s.Scan(&w.ID, &w.Title, &w.URL, &w.Domain, &w.Description, &w.Category, &tagsJSON,
		&screenshotURL, &addedBy, &w.Approved, &w.Views, &createdAt, &updatedAt, &w.Upvotes, &w.Upvoted); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tagsJSON), &w.Tags); err != nil || w.Tags == nil {
		w.Tags = []string{}
	}
	if screenshotURL.Valid {
		w.ScreenshotURL = &screenshotURL.String
	}
	if addedBy.Valid {
		w.AddedBy = &addedBy.String
	}
	w.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	w.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &w, nil
}

func normalizeListParams(p ListParams) ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	p.Search = strings.TrimSpace(p.Search)
	p.Category = strings.TrimSpace(p.Category)
	return p
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
