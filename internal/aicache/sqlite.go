package aicache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stacksift/api/internal/ai"
)

// SQLiteStore keeps the cache in the ai_cache table. Expired rows are
// invisible to Lookup and removed by DeleteExpired.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLiteStore creates a SQLiteStore whose entries expire after ttl.
func NewSQLiteStore(db *sql.DB, ttl time.Duration) *SQLiteStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SQLiteStore{db: db, ttl: ttl, now: time.Now}
}

func (s *SQLiteStore) Lookup(ctx context.Context, key string) ([]ai.Suggestion, bool, error) {
	var raw, createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT results, created_at FROM ai_cache WHERE cache_key = ?
	`, key).Scan(&raw, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading ai cache: %w", err)
	}

	created, err := time.Parse(time.RFC3339, createdAt)
	if err != nil || !s.now().Before(created.Add(s.ttl)) {
		return nil, false, nil
	}

	var results []ai.Suggestion
	if err := json.Unmarshal([]byte(raw), &results); err != nil {
		return nil, false, fmt.Errorf("decoding ai cache entry: %w", err)
	}
	if len(results) == 0 {
		return nil, false, nil
	}
	return results, true, nil
}

func (s *SQLiteStore) Store(ctx context.Context, key string, results []ai.Suggestion) error {
	if len(results) == 0 {
		return ErrEmptyResults
	}

	raw, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encoding ai cache entry: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ai_cache (cache_key, results, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			results = excluded.results,
			created_at = excluded.created_at
	`, key, string(raw), s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("writing ai cache: %w", err)
	}
	return nil
}

// DeleteExpired removes entries older than the TTL and reports how many went.
func (s *SQLiteStore) DeleteExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.ttl).UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, `DELETE FROM ai_cache WHERE created_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting expired ai cache entries: %w", err)
	}
	return res.RowsAffected()
}

// Close is a no-op; the database handle is owned by the caller.
func (s *SQLiteStore) Close() error {
	return nil
}
