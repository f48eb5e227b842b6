// Package aicache stores AI tool suggestions keyed by normalized query.
package aicache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/stacksift/api/internal/ai"
)

// DefaultTTL is how long a cached result set stays servable.
const DefaultTTL = 7 * 24 * time.Hour

// ErrEmptyResults is returned by Store when asked to cache nothing.
var ErrEmptyResults = errors.New("refusing to cache empty results")

// Store is a query-keyed suggestion cache. Lookup is a pure read and reports
// a miss for absent or expired entries. Store upserts, so concurrent writers
// for one key leave a single entry holding the last write.
type Store interface {
	Lookup(ctx context.Context, key string) ([]ai.Suggestion, bool, error)
	Store(ctx context.Context, key string, results []ai.Suggestion) error
	DeleteExpired(ctx context.Context) (int64, error)
	Close() error
}

// Normalize maps a user query to its cache key: surrounding whitespace
// trimmed, letters lowercased. Inner whitespace and punctuation are kept.
func Normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}
